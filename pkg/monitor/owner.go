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
	"math"

	"gvisor.dev/gmon/pkg/atomicbitops"
	"gvisor.dev/gmon/pkg/errors/monitorerr"
	"gvisor.dev/gmon/pkg/guest"
)

// ownership records which thread holds a Lock and how many times.
//
// Both fields are written only with Lock.mu held, owner first on acquisition
// and last on release. They are loaded atomically so that queries from
// threads that do not hold the lock need not take Lock.mu; such a query may
// observe a stale owner or hold count. Queries made by the owner about
// itself are always exact.
type ownership struct {
	owner atomicbitops.Int64
	holds atomicbitops.Int32
}

// ownerThread returns the owning thread, or guest.NoThread.
func (o *ownership) ownerThread() guest.ThreadID {
	return guest.ThreadID(o.owner.Load())
}

func (o *ownership) heldBy(tid guest.ThreadID) bool {
	return o.ownerThread() == tid
}

// holdCount returns the number of holds tid has, or 0 if tid is not the
// owner.
func (o *ownership) holdCount(tid guest.ThreadID) int {
	if !o.heldBy(tid) {
		return 0
	}
	return int(o.holds.Load())
}

// tryAcquireLocked takes one hold for tid if the lock is free or already held
// by tid.
//
// Preconditions: Lock.mu must be locked.
func (o *ownership) tryAcquireLocked(tid guest.ThreadID) bool {
	switch o.ownerThread() {
	case guest.NoThread:
		o.owner.Store(int64(tid))
		o.holds.Store(1)
		return true
	case tid:
		if o.holds.Load() == math.MaxInt32 {
			panic("maximum monitor hold count exceeded")
		}
		o.holds.Add(1)
		return true
	default:
		return false
	}
}

// restoreLocked makes tid the owner with the given number of holds if the
// lock is free.
//
// Preconditions: Lock.mu must be locked. tid does not hold the lock.
func (o *ownership) restoreLocked(tid guest.ThreadID, holds int32) bool {
	if o.ownerThread() != guest.NoThread {
		return false
	}
	o.owner.Store(int64(tid))
	o.holds.Store(holds)
	return true
}

// releaseLocked drops one hold of tid. It returns true if the lock became
// free.
//
// Preconditions: Lock.mu must be locked.
func (o *ownership) releaseLocked(tid guest.ThreadID) (bool, error) {
	if o.ownerThread() != tid {
		return false, monitorerr.ErrIllegalMonitorState
	}
	switch n := o.holds.Add(-1); {
	case n > 0:
		return false, nil
	case n == 0:
		o.owner.Store(int64(guest.NoThread))
		return true, nil
	default:
		panic("monitor released with no holds")
	}
}

// releaseAllLocked drops every hold of the owner and returns how many there
// were.
//
// Preconditions: Lock.mu must be locked. The lock is held.
func (o *ownership) releaseAllLocked() int32 {
	holds := o.holds.Swap(0)
	o.owner.Store(int64(guest.NoThread))
	return holds
}
