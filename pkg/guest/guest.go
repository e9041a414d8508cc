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

// Package guest models the guest threads hosted by the runtime, as seen by
// blocking primitives such as guest monitors.
//
// Each guest thread is represented by a Thread, which is bound to a single
// host goroutine for its whole life. A Thread carries two independent
// signals:
//
//   - A wake channel, notified whenever the thread should stop blocking:
//     either because the runtime has queued a safepoint action for it (a
//     "host interrupt") or because its guest interrupt was raised.
//
//   - The guest-interrupted flag, which is meaningful only to guest-level
//     interruptible operations. It is set by any goroutine and cleared only
//     by the thread itself.
//
// Blocking primitives receive the thread as a Context and must select on the
// channel returned by Context.SleepStart while they are parked.
package guest

import (
	"gvisor.dev/gmon/pkg/log"
)

// ThreadID identifies a guest thread. IDs are never reused within a
// ThreadSet.
type ThreadID int64

// NoThread is the ThreadID that identifies no thread.
const NoThread ThreadID = 0

// A Context represents the guest thread executing a blocking operation. It
// carries the thread's identity and the hooks that a blocked thread uses to
// cooperate with the runtime.
//
// Like a sentry Task, a Context is owned by the goroutine of the thread it
// represents: it is *not safe* to use the same Context from multiple
// goroutines, except for methods documented otherwise.
type Context interface {
	log.Logger

	// ThreadID returns the ID of the thread.
	ThreadID() ThreadID

	// SleepStart indicates the beginning of an interruptible sleep on site.
	// It returns a channel that is notified when the sleep should be
	// abandoned because a safepoint action is pending or the guest
	// interrupt was raised. site is an opaque description of what the
	// thread blocks on.
	SleepStart(site any) <-chan struct{}

	// SleepFinish indicates the end of a sleep begun by SleepStart. success
	// is false if the sleep ended because the channel returned by
	// SleepStart was notified; that notification has been consumed.
	SleepFinish(success bool)

	// PollSafepoint runs all safepoint actions pending for the thread. site
	// is passed to each action. PollSafepoint may block.
	PollSafepoint(site any)

	// GuestInterrupted returns true if the thread's guest interrupt is
	// raised. It does not clear the flag.
	GuestInterrupted() bool

	// ConsumeGuestInterrupt atomically tests and clears the thread's guest
	// interrupt, returning whether it was raised.
	ConsumeGuestInterrupt() bool

	// ClearGuestInterrupt clears the thread's guest interrupt.
	ClearGuestInterrupt()
}
