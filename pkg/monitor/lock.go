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

// Package monitor implements guest monitors: reentrant mutual exclusion
// locks with an associated wait queue, used to implement guest-level
// synchronized blocks and wait/notify.
//
// Guest monitors differ from a sync.Mutex in three ways:
//
//   - Ownership is attributed to guest threads, not goroutines, and a thread
//     may acquire a monitor it already holds. The monitor is released when
//     every acquisition has been matched by a release.
//
//   - A thread blocked on a monitor never prevents the runtime from reaching
//     a safepoint. Whenever the runtime requests one, the blocked thread
//     wakes, runs its pending safepoint actions and resumes waiting.
//
//   - Some operations can be aborted by a guest interrupt, which is
//     unrelated to the runtime's own wakeups.
//
// All operations that act on behalf of a thread take the guest.Context of
// the calling thread.
package monitor

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"gvisor.dev/gmon/pkg/errors/monitorerr"
	"gvisor.dev/gmon/pkg/guest"
	"gvisor.dev/gmon/pkg/log"
	"gvisor.dev/gmon/pkg/sync"
)

// Lock is a guest monitor.
//
// Locks must be created with New, NewRaw or Slot.Get. A Lock must not be
// copied after first use.
//
// Acquisition is not fair: a thread calling Lock may take a free monitor
// ahead of threads that have been blocked longer.
type Lock struct {
	// mu provides internal exclusion for the fields below. It is never held
	// while a thread blocks.
	mu sync.Mutex

	// own is the owning thread and its hold count.
	own ownership

	// contenders is the number of threads blocked acquiring the lock. It
	// is protected by mu.
	contenders int32

	// acquireCh is notified when the lock is released while contenders is
	// non-zero. It has a buffer of one so that a release never blocks and
	// a notification sent between a contender's failed attempt and its
	// select is not lost.
	acquireCh chan struct{}

	// cond is the wait queue, created by the first Await, Signal or
	// SignalAll. Once set it never changes.
	cond atomic.Pointer[condition]

	// cause is the event that created the monitor. cause is immutable.
	cause Cause
}

// maxTimeoutMillis is the largest Await limit representable as a
// time.Duration.
const maxTimeoutMillis = math.MaxInt64 / int64(time.Millisecond)

// New returns a free monitor created for the runtime's own use.
func New() *Lock {
	return newLock(CauseInternal)
}

// NewRaw returns a free monitor that is not associated with any guest
// object, as created by native agents.
func NewRaw() *Lock {
	return newLock(CauseRawCreate)
}

func newLock(cause Cause) *Lock {
	inflations.Increment(cause.metricValue())
	l := &Lock{
		acquireCh: make(chan struct{}, 1),
		cause:     cause,
	}
	if log.IsLogging(log.Debug) {
		log.Debugf("Inflated monitor %p: %v", l, cause)
	}
	return l
}

// Cause returns the event that created the monitor.
func (l *Lock) Cause() Cause {
	return l.cause
}

// Lock acquires the monitor for the calling thread, blocking until it is
// available. If the thread already holds the monitor, its hold count is
// incremented.
//
// While blocked, the thread services safepoint requests and keeps waiting.
// A guest interrupt does not abort Lock and is left raised.
func (l *Lock) Lock(ctx guest.Context) {
	tid := ctx.ThreadID()
	if l.TryLock(ctx) {
		return
	}
	l.acquireSlow(ctx, l.takeFunc(tid), false /* interruptible */)
}

// TryLock acquires the monitor for the calling thread if it is free or
// already held by the thread, and returns whether it did. It never blocks.
func (l *Lock) TryLock(ctx guest.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.own.tryAcquireLocked(ctx.ThreadID())
}

// LockInterruptible is like Lock, but gives up if the calling thread's guest
// interrupt is raised before the monitor is acquired. In that case the
// interrupt is consumed and ErrGuestInterrupted is returned.
//
// A raised interrupt is honored even if the monitor is free.
func (l *Lock) LockInterruptible(ctx guest.Context) error {
	if ctx.ConsumeGuestInterrupt() {
		guestInterruptAborts.Increment(opLock)
		return monitorerr.ErrGuestInterrupted
	}
	if l.TryLock(ctx) {
		return nil
	}
	if err := l.acquireSlow(ctx, l.takeFunc(ctx.ThreadID()), true /* interruptible */); err != nil {
		guestInterruptAborts.Increment(opLock)
		ctx.Debugf("Acquisition of %v aborted by guest interrupt", l)
		return err
	}
	return nil
}

// LockInterruptibly is not supported by guest monitors, whose only
// interruptible acquisition is LockInterruptible. It always returns
// ErrUnsupportedOperation.
func (l *Lock) LockInterruptibly(ctx guest.Context) error {
	ctx.Debugf("LockInterruptibly called on %v", l)
	return monitorerr.ErrUnsupportedOperation
}

// NewCondition is not supported: every monitor has exactly one wait queue,
// reached through Await, Signal and SignalAll. It always returns
// ErrUnsupportedOperation.
func (l *Lock) NewCondition() error {
	return monitorerr.ErrUnsupportedOperation
}

// Unlock releases one hold of the calling thread. The monitor becomes free
// when the hold count drops to zero.
//
// It returns ErrIllegalMonitorState, without changing any state, if the
// calling thread does not hold the monitor.
func (l *Lock) Unlock(ctx guest.Context) error {
	l.mu.Lock()
	freed, err := l.own.releaseLocked(ctx.ThreadID())
	if freed {
		l.wakeAcquirerLocked()
	}
	l.mu.Unlock()
	return err
}

// takeFunc returns a function that tries to take one hold for tid.
func (l *Lock) takeFunc(tid guest.ThreadID) func() bool {
	return func() bool {
		return l.own.tryAcquireLocked(tid)
	}
}

// acquireSlow blocks until take succeeds. take is called with l.mu held.
// If interruptible is true, acquireSlow returns ErrGuestInterrupted if the
// thread's guest interrupt is raised first.
func (l *Lock) acquireSlow(ctx guest.Context, take func() bool, interruptible bool) error {
	l.mu.Lock()
	if take() {
		l.mu.Unlock()
		return nil
	}
	l.contenders++
	l.mu.Unlock()

	contendedAcquisitions.Increment()
	if ctx.IsLogging(log.Debug) {
		ctx.Debugf("Blocking on %v", l)
	}

	attempt := func(interrupt <-chan struct{}) blockResult {
		for {
			select {
			case <-l.acquireCh:
			case <-interrupt:
				return blockHostInterrupted
			}
			l.mu.Lock()
			if take() {
				l.contenders--
				l.mu.Unlock()
				return blockCompleted
			}
			l.mu.Unlock()
		}
	}
	if !interruptible {
		blockUninterruptible(ctx, l, attempt)
		return nil
	}
	cancel := func() bool {
		l.mu.Lock()
		l.contenders--
		l.mu.Unlock()
		return true
	}
	_, err := blockInterruptible(ctx, l, attempt, cancel)
	return err
}

// wakeAcquirerLocked notifies one blocked acquirer, if any.
//
// Preconditions: l.mu must be locked.
func (l *Lock) wakeAcquirerLocked() {
	if l.contenders == 0 {
		return
	}
	select {
	case l.acquireCh <- struct{}{}:
	default:
	}
}

// waitCondition returns l's wait queue, creating it if necessary.
func (l *Lock) waitCondition() *condition {
	if c := l.cond.Load(); c != nil {
		return c
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	c := l.cond.Load()
	if c == nil {
		c = &condition{}
		l.cond.Store(c)
	}
	return c
}

// Await releases the monitor completely and parks the calling thread until
// it is signaled, timeoutMillis milliseconds have passed, or its guest
// interrupt is raised. A timeoutMillis of 0 waits without a time limit.
// The monitor is always reacquired, with the hold count it had, before
// Await returns; reacquisition is not interruptible.
//
// A timed Await returns true if the thread was signaled and false if the
// time limit passed first. An untimed Await (timeoutMillis == 0) returns
// false once signaled. If the guest interrupt is raised before the thread is
// signaled, the interrupt is consumed and ErrGuestInterrupted is returned;
// this includes an interrupt raised before the call. If a signal and an
// interrupt race, the signal wins and the interrupt remains raised.
//
// Await returns ErrIllegalArgument if timeoutMillis is negative and
// ErrIllegalMonitorState if the calling thread does not hold the monitor,
// in that order and without blocking.
func (l *Lock) Await(ctx guest.Context, timeoutMillis int64) (bool, error) {
	if timeoutMillis < 0 {
		return false, monitorerr.ErrIllegalArgument
	}
	tid := ctx.ThreadID()
	if !l.own.heldBy(tid) {
		return false, monitorerr.ErrIllegalMonitorState
	}
	if ctx.ConsumeGuestInterrupt() {
		guestInterruptAborts.Increment(opWait)
		return false, monitorerr.ErrGuestInterrupted
	}

	// The deadline is fixed on entry and is not extended by safepoint
	// polls. Limits too large to represent are treated as no limit.
	var expired <-chan time.Time
	if timeoutMillis > 0 && timeoutMillis <= maxTimeoutMillis {
		timer := time.NewTimer(time.Duration(timeoutMillis) * time.Millisecond)
		defer timer.Stop()
		expired = timer.C
	}

	c := l.waitCondition()
	w := newWaiter(tid)
	l.mu.Lock()
	c.enqueueLocked(w)
	holds := l.own.releaseAllLocked()
	l.wakeAcquirerLocked()
	l.mu.Unlock()

	attempt := func(interrupt <-chan struct{}) blockResult {
		select {
		case <-w.ch:
			return blockCompleted
		case <-expired:
			return blockDeadlineExpired
		case <-interrupt:
			return blockHostInterrupted
		}
	}
	res, err := blockInterruptible(ctx, l, attempt, func() bool { return l.dequeue(c, w) })
	if res == blockDeadlineExpired && !l.dequeue(c, w) {
		// Signaled at the same time as the deadline.
		res = blockCompleted
	}

	l.reacquire(ctx, holds)

	switch {
	case err != nil:
		guestInterruptAborts.Increment(opWait)
		ctx.Debugf("Wait on %v aborted by guest interrupt", l)
		return false, err
	case res == blockDeadlineExpired:
		waitTimeouts.Increment()
		return false, nil
	default:
		return timeoutMillis != 0, nil
	}
}

// dequeue removes w from c. It returns false if w was already signaled.
func (l *Lock) dequeue(c *condition, w *waiter) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return c.dequeueLocked(w)
}

// reacquire takes the monitor back after a wait, restoring the saved hold
// count. It ignores the guest interrupt.
func (l *Lock) reacquire(ctx guest.Context, holds int32) {
	tid := ctx.ThreadID()
	l.acquireSlow(ctx, func() bool {
		return l.own.restoreLocked(tid, holds)
	}, false /* interruptible */)
}

// Signal wakes the thread that has been waiting the longest, if any. The
// woken thread returns from Await once it reacquires the monitor.
//
// Signal does not require the calling thread to hold the monitor.
func (l *Lock) Signal(ctx guest.Context) {
	c := l.waitCondition()
	l.mu.Lock()
	n := c.signalLocked()
	l.mu.Unlock()
	l.signaled(ctx, n)
}

// SignalAll wakes every waiting thread.
//
// SignalAll does not require the calling thread to hold the monitor.
func (l *Lock) SignalAll(ctx guest.Context) {
	c := l.waitCondition()
	l.mu.Lock()
	n := c.signalAllLocked()
	l.mu.Unlock()
	l.signaled(ctx, n)
}

func (l *Lock) signaled(ctx guest.Context, n int) {
	if n == 0 {
		return
	}
	signalsDelivered.IncrementBy(uint64(n))
	if ctx.IsLogging(log.Debug) {
		ctx.Debugf("Signaled %d waiters of %v", n, l)
	}
}

// IsHeldByCurrentThread returns true if the calling thread holds the
// monitor.
func (l *Lock) IsHeldByCurrentThread(ctx guest.Context) bool {
	return l.own.heldBy(ctx.ThreadID())
}

// HoldCount returns the number of holds of the calling thread, or 0 if it
// does not hold the monitor.
func (l *Lock) HoldCount(ctx guest.Context) int {
	return l.own.holdCount(ctx.ThreadID())
}

// OwnerThread returns the thread holding the monitor and true, or
// guest.NoThread and false if the monitor is free. The answer may be stale
// when it reaches the caller.
func (l *Lock) OwnerThread() (guest.ThreadID, bool) {
	tid := l.own.ownerThread()
	return tid, tid != guest.NoThread
}

// Waiters returns the number of threads in Await that have not yet been
// signaled. The answer may be stale when it reaches the caller.
func (l *Lock) Waiters() int {
	c := l.cond.Load()
	if c == nil {
		return 0
	}
	return int(c.count.Load())
}

// String implements fmt.Stringer.String.
func (l *Lock) String() string {
	owner, ok := l.OwnerThread()
	if !ok {
		return fmt.Sprintf("monitor %p[free, waiters=%d]", l, l.Waiters())
	}
	return fmt.Sprintf("monitor %p[owner=%d, holds=%d, waiters=%d]", l, owner, l.own.holds.Load(), l.Waiters())
}
