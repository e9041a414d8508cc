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
	"sync/atomic"

	"gvisor.dev/gmon/pkg/sync"
)

// Slot is the monitor word of a guest object. Most objects are never
// synchronized on, so the Lock is only created when first needed; this is
// called inflation.
//
// The zero value of Slot is an uninflated slot. A Slot must not be copied
// after first use.
type Slot struct {
	// mu serializes inflation.
	mu sync.Mutex

	// lock is the inflated monitor, or nil.
	lock atomic.Pointer[Lock]
}

// Get returns the monitor of the slot, inflating it if necessary. cause is
// recorded if this call inflates the slot, and ignored otherwise. All
// callers observe the same Lock.
func (s *Slot) Get(cause Cause) *Lock {
	if l := s.lock.Load(); l != nil {
		return l
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if l := s.lock.Load(); l != nil {
		return l
	}
	l := newLock(cause)
	s.lock.Store(l)
	return l
}

// Peek returns the monitor of the slot, or nil if it was never inflated.
func (s *Slot) Peek() *Lock {
	return s.lock.Load()
}

// Inflated returns true if the slot has a monitor.
func (s *Slot) Inflated() bool {
	return s.lock.Load() != nil
}
