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
	"fmt"
	"sync/atomic"
	"time"

	"gvisor.dev/gmon/pkg/atomicbitops"
	"gvisor.dev/gmon/pkg/log"
	"gvisor.dev/gmon/pkg/sync"
)

// Thread represents a guest thread.
//
// All fields that are "exclusive to the thread goroutine" can only be
// accessed by the goroutine that runs the thread.
type Thread struct {
	// ts is the ThreadSet that created the thread. ts is immutable.
	ts *ThreadSet

	// id is the thread's ID. id is immutable.
	id ThreadID

	// name is a human readable name used in logs. name is immutable.
	name string

	// interruptChan is notified whenever the thread goroutine should stop
	// blocking: a safepoint action was registered or the guest interrupt
	// was raised. interruptChan is effectively a condition variable that
	// can be used in select statements.
	interruptChan chan struct{}

	// guestInterrupted is the guest interrupt flag. It is set by any
	// goroutine and cleared only by the thread goroutine.
	guestInterrupted atomicbitops.Bool

	// sleepSite is the site passed to the current SleepStart, or nil if
	// the thread is not sleeping. It is written by the thread goroutine and
	// read by others for diagnostics only.
	sleepSite atomic.Pointer[site]

	// actionsMu protects actions.
	actionsMu sync.Mutex

	// actions is the queue of pending safepoint actions.
	actions []Action

	// actionCount is len(actions), readable without actionsMu to make the
	// empty check in PollSafepoint cheap.
	actionCount atomicbitops.Int32

	// slowLog reports safepoint drains that exceed the ThreadSet's
	// threshold, at most once per slowSafepointLogInterval.
	slowLog log.Logger

	// exited is set by ThreadSet.Exit.
	exited atomicbitops.Bool

	// Statistics, see Stats.
	sleeps       atomicbitops.Uint64
	interrupts   atomicbitops.Uint64
	polls        atomicbitops.Uint64
	actionsRun   atomicbitops.Uint64
	guestRaised  atomicbitops.Uint64
	guestHandled atomicbitops.Uint64
}

type site struct {
	v any
}

const slowSafepointLogInterval = 10 * time.Second

// ID returns the thread's ID.
func (t *Thread) ID() ThreadID {
	return t.id
}

// ThreadID implements Context.ThreadID.
func (t *Thread) ThreadID() ThreadID {
	return t.id
}

// Name returns the thread's name.
func (t *Thread) Name() string {
	return t.name
}

// String implements fmt.Stringer.String.
func (t *Thread) String() string {
	return fmt.Sprintf("%d:%s", t.id, t.name)
}

// Exited returns true if the thread has been removed from its ThreadSet.
func (t *Thread) Exited() bool {
	return t.exited.Load()
}

// SleepStart implements Context.SleepStart.
func (t *Thread) SleepStart(s any) <-chan struct{} {
	t.sleeps.Add(1)
	t.sleepSite.Store(&site{v: s})
	return t.interruptChan
}

// SleepFinish implements Context.SleepFinish.
func (t *Thread) SleepFinish(success bool) {
	t.sleepSite.Store(nil)
	if !success {
		t.interrupts.Add(1)
	}
}

// BlockedOn returns the site the thread is currently sleeping on and true,
// or nil and false if the thread is not sleeping. The result is a best-effort
// snapshot and may be stale by the time it is returned.
func (t *Thread) BlockedOn() (any, bool) {
	s := t.sleepSite.Load()
	if s == nil {
		return nil, false
	}
	return s.v, true
}

// interrupt notifies the thread goroutine that it should stop blocking. It
// is safe to call from any goroutine.
func (t *Thread) interrupt() {
	select {
	case t.interruptChan <- struct{}{}:
	default:
	}
}

// Debugf logs a debug message prefixed with the thread's identity.
func (t *Thread) Debugf(format string, v ...any) {
	if log.IsLogging(log.Debug) {
		log.Log().DebugfAtDepth(1, t.logPrefix()+format, v...)
	}
}

// Infof logs an info message prefixed with the thread's identity.
func (t *Thread) Infof(format string, v ...any) {
	if log.IsLogging(log.Info) {
		log.Log().InfofAtDepth(1, t.logPrefix()+format, v...)
	}
}

// Warningf logs a warning prefixed with the thread's identity.
func (t *Thread) Warningf(format string, v ...any) {
	if log.IsLogging(log.Warning) {
		log.Log().WarningfAtDepth(1, t.logPrefix()+format, v...)
	}
}

// IsLogging implements log.Logger.IsLogging.
func (t *Thread) IsLogging(level log.Level) bool {
	return log.IsLogging(level)
}

func (t *Thread) logPrefix() string {
	return fmt.Sprintf("[% 4d:%s] ", t.id, t.name)
}

// ThreadStats are counters describing a thread's interaction with blocking
// primitives.
type ThreadStats struct {
	// Sleeps is the number of calls to SleepStart.
	Sleeps uint64
	// Interrupts is the number of sleeps ended by the wake channel.
	Interrupts uint64
	// Polls is the number of calls to PollSafepoint.
	Polls uint64
	// ActionsRun is the number of safepoint actions executed.
	ActionsRun uint64
	// GuestInterruptsRaised is the number of times the guest interrupt was
	// raised.
	GuestInterruptsRaised uint64
	// GuestInterruptsConsumed is the number of times a raised guest
	// interrupt was consumed.
	GuestInterruptsConsumed uint64
}

// Stats returns a snapshot of the thread's counters.
func (t *Thread) Stats() ThreadStats {
	return ThreadStats{
		Sleeps:                  t.sleeps.Load(),
		Interrupts:              t.interrupts.Load(),
		Polls:                   t.polls.Load(),
		ActionsRun:              t.actionsRun.Load(),
		GuestInterruptsRaised:   t.guestRaised.Load(),
		GuestInterruptsConsumed: t.guestHandled.Load(),
	}
}
