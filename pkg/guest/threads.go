// Copyright 2026 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package guest

import (
	"sort"
	"time"

	"gvisor.dev/gmon/pkg/errors/monitorerr"
	"gvisor.dev/gmon/pkg/log"
	"gvisor.dev/gmon/pkg/sync"
)

// DefaultSlowSafepoint is the default threshold above which a safepoint
// drain is reported.
const DefaultSlowSafepoint = 100 * time.Millisecond

// ThreadSet is the registry of live guest threads. It is the entry point for
// other runtime subsystems that need to raise guest interrupts or queue
// safepoint actions on threads they only know by ID.
type ThreadSet struct {
	// slowSafepoint is the drain duration above which threads warn. It is
	// immutable after NewThreadSet.
	slowSafepoint time.Duration

	// mu protects the fields below.
	mu sync.Mutex

	// lastID is the last ThreadID handed out.
	lastID ThreadID

	// threads maps IDs to live threads.
	threads map[ThreadID]*Thread
}

// ThreadSetOption configures a ThreadSet.
type ThreadSetOption func(*ThreadSet)

// WithSlowSafepoint sets the safepoint drain duration above which threads
// log a warning.
func WithSlowSafepoint(d time.Duration) ThreadSetOption {
	return func(ts *ThreadSet) {
		ts.slowSafepoint = d
	}
}

// NewThreadSet returns an empty ThreadSet.
func NewThreadSet(opts ...ThreadSetOption) *ThreadSet {
	ts := &ThreadSet{
		slowSafepoint: DefaultSlowSafepoint,
		threads:       make(map[ThreadID]*Thread),
	}
	for _, opt := range opts {
		opt(ts)
	}
	return ts
}

// NewThread creates and registers a new thread. The returned thread must be
// used only by the goroutine that runs it.
func (ts *ThreadSet) NewThread(name string) *Thread {
	t := &Thread{
		ts:            ts,
		name:          name,
		interruptChan: make(chan struct{}, 1),
	}
	t.slowLog = log.RateLimitedLogger(t, slowSafepointLogInterval)

	ts.mu.Lock()
	ts.lastID++
	t.id = ts.lastID
	ts.threads[t.id] = t
	ts.mu.Unlock()

	t.Debugf("Thread created")
	return t
}

// Lookup returns the live thread with the given ID, or nil.
func (ts *ThreadSet) Lookup(tid ThreadID) *Thread {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.threads[tid]
}

// Exit removes t from ts. Pending safepoint actions are discarded.
//
// Preconditions: t must not be blocked in a monitor.
func (ts *ThreadSet) Exit(t *Thread) {
	ts.mu.Lock()
	delete(ts.threads, t.id)
	ts.mu.Unlock()

	t.exited.Store(true)
	t.actionsMu.Lock()
	dropped := len(t.actions)
	t.actions = nil
	t.actionCount.Store(0)
	t.actionsMu.Unlock()
	if dropped != 0 {
		t.Debugf("Thread exited with %d pending safepoint actions", dropped)
	}
}

// Threads returns the live threads ordered by ID.
func (ts *ThreadSet) Threads() []*Thread {
	ts.mu.Lock()
	threads := make([]*Thread, 0, len(ts.threads))
	for _, t := range ts.threads {
		threads = append(threads, t)
	}
	ts.mu.Unlock()
	sort.Slice(threads, func(i, j int) bool { return threads[i].id < threads[j].id })
	return threads
}

// GuestInterrupt raises the guest interrupt of the thread with the given ID.
func (ts *ThreadSet) GuestInterrupt(tid ThreadID) error {
	t := ts.Lookup(tid)
	if t == nil {
		return monitorerr.Wrap(monitorerr.ErrNoSuchThread, "thread %d", tid)
	}
	t.GuestInterrupt()
	return nil
}

// RequestSafepoint queues a on every live thread and wakes threads that are
// blocked. It returns the number of threads a was queued on. It does not wait
// for the actions to run.
func (ts *ThreadSet) RequestSafepoint(a Action) int {
	threads := ts.Threads()
	for _, t := range threads {
		t.RegisterAction(a)
	}
	return len(threads)
}
