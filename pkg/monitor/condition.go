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

package monitor

import (
	"gvisor.dev/gmon/pkg/atomicbitops"
	"gvisor.dev/gmon/pkg/guest"
)

// waiter is a thread parked in Lock.Await.
type waiter struct {
	waiterEntry

	// tid is the waiting thread. tid is immutable.
	tid guest.ThreadID

	// ch is notified exactly once, when the waiter is signaled. It has a
	// buffer of one so that signalers never block.
	ch chan struct{}

	// signaled is set when the waiter is removed from the queue by a
	// signal. It is protected by Lock.mu.
	signaled bool
}

func newWaiter(tid guest.ThreadID) *waiter {
	return &waiter{
		tid: tid,
		ch:  make(chan struct{}, 1),
	}
}

// condition is the wait queue of a Lock. It is created the first time a
// thread waits or signals.
type condition struct {
	// waiters is the FIFO of parked threads. It is protected by Lock.mu.
	waiters waiterList

	// count is waiters.Len(). It is written with Lock.mu held and may be
	// read without it.
	count atomicbitops.Int32
}

// enqueueLocked adds w at the back of the queue.
//
// Preconditions: Lock.mu must be locked.
func (c *condition) enqueueLocked(w *waiter) {
	c.waiters.PushBack(w)
	c.count.Add(1)
}

// dequeueLocked removes w from the queue. It returns false if w had already
// been removed by a signal.
//
// Preconditions: Lock.mu must be locked.
func (c *condition) dequeueLocked(w *waiter) bool {
	if w.signaled {
		return false
	}
	c.waiters.Remove(w)
	c.count.Add(-1)
	return true
}

// signalLocked wakes the longest waiting thread, if any. It returns the
// number of threads woken.
//
// Preconditions: Lock.mu must be locked.
func (c *condition) signalLocked() int {
	w := c.waiters.Front()
	if w == nil {
		return 0
	}
	c.wakeLocked(w)
	return 1
}

// signalAllLocked wakes every waiting thread and returns how many there
// were.
//
// Preconditions: Lock.mu must be locked.
func (c *condition) signalAllLocked() int {
	n := 0
	for w := c.waiters.Front(); w != nil; w = c.waiters.Front() {
		c.wakeLocked(w)
		n++
	}
	return n
}

func (c *condition) wakeLocked(w *waiter) {
	c.waiters.Remove(w)
	c.count.Add(-1)
	w.signaled = true
	w.ch <- struct{}{}
}
