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

// GuestInterrupt raises t's guest interrupt. If t is sleeping in a blocking
// primitive it is woken so that interruptible operations can observe the
// interrupt without waiting for an unrelated wakeup.
//
// GuestInterrupt may be called from any goroutine.
func (t *Thread) GuestInterrupt() {
	t.guestRaised.Add(1)
	// The flag must be visible before the wakeup, so that a thread woken
	// by interruptChan always observes it.
	t.guestInterrupted.Store(true)
	t.interrupt()
}

// GuestInterrupted implements Context.GuestInterrupted.
//
// GuestInterrupted may be called from any goroutine.
func (t *Thread) GuestInterrupted() bool {
	return t.guestInterrupted.Load()
}

// ConsumeGuestInterrupt implements Context.ConsumeGuestInterrupt.
//
// Preconditions: The caller must be running on the thread goroutine.
func (t *Thread) ConsumeGuestInterrupt() bool {
	if t.guestInterrupted.Swap(false) {
		t.guestHandled.Add(1)
		return true
	}
	return false
}

// ClearGuestInterrupt implements Context.ClearGuestInterrupt.
//
// Preconditions: The caller must be running on the thread goroutine.
func (t *Thread) ClearGuestInterrupt() {
	t.ConsumeGuestInterrupt()
}
