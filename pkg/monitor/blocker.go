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
	"gvisor.dev/gmon/pkg/errors/monitorerr"
	"gvisor.dev/gmon/pkg/guest"
)

// blockResult is the outcome of one attempt at a blocking operation.
type blockResult int

const (
	// blockCompleted means the operation finished normally.
	blockCompleted blockResult = iota

	// blockHostInterrupted means the thread's wake channel was notified
	// before the operation finished. The operation may be retried after
	// the thread has polled its safepoint.
	blockHostInterrupted

	// blockDeadlineExpired means a timed operation ran out of time.
	blockDeadlineExpired
)

func (r blockResult) String() string {
	switch r {
	case blockCompleted:
		return "completed"
	case blockHostInterrupted:
		return "host-interrupted"
	case blockDeadlineExpired:
		return "deadline-expired"
	default:
		return "unknown"
	}
}

// attemptFunc performs one attempt at a blocking operation. It must return
// blockHostInterrupted promptly once interrupt is readable, and must not
// consume from interrupt otherwise.
type attemptFunc func(interrupt <-chan struct{}) blockResult

// cancelFunc withdraws a blocking operation that is being abandoned because
// of a guest interrupt. It returns false if the operation already completed
// and can no longer be withdrawn.
type cancelFunc func() bool

// blockUninterruptible drives attempt until it completes or its deadline
// expires. Host interrupts are serviced by polling the safepoint and
// retrying; the guest interrupt is ignored and left untouched.
func blockUninterruptible(ctx guest.Context, site any, attempt attemptFunc) blockResult {
	for {
		res := attempt(ctx.SleepStart(site))
		ctx.SleepFinish(res != blockHostInterrupted)
		if res != blockHostInterrupted {
			return res
		}
		pollSafepoint(ctx, site)
	}
}

// blockInterruptible is like blockUninterruptible, but also checks the guest
// interrupt before every attempt. If it is raised, the operation is
// withdrawn with cancel, the interrupt is consumed and ErrGuestInterrupted
// is returned. If cancel reports the operation already completed, the
// interrupt is left raised and blockCompleted is returned.
func blockInterruptible(ctx guest.Context, site any, attempt attemptFunc, cancel cancelFunc) (blockResult, error) {
	for {
		if ctx.GuestInterrupted() {
			if !cancel() {
				return blockCompleted, nil
			}
			ctx.ConsumeGuestInterrupt()
			return blockHostInterrupted, monitorerr.ErrGuestInterrupted
		}
		res := attempt(ctx.SleepStart(site))
		ctx.SleepFinish(res != blockHostInterrupted)
		if res != blockHostInterrupted {
			return res, nil
		}
		pollSafepoint(ctx, site)
	}
}

func pollSafepoint(ctx guest.Context, site any) {
	safepointPolls.Increment()
	ctx.PollSafepoint(site)
}
