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
	"time"
)

// Action is work that the runtime wants a thread to perform at its next
// safepoint, e.g. publishing its stack for a collection or acknowledging a
// suspension request.
type Action interface {
	// RunAction is executed on the goroutine of t. site is the value that
	// the thread passed to PollSafepoint; for a thread blocked on a monitor
	// it is that monitor, otherwise it may be nil.
	RunAction(t *Thread, site any)
}

// ActionFunc adapts an ordinary function to Action.
type ActionFunc func(t *Thread, site any)

// RunAction implements Action.RunAction.
func (f ActionFunc) RunAction(t *Thread, site any) {
	f(t, site)
}

// RegisterAction queues a to be run by t at its next safepoint poll. If t is
// blocked in a safepoint-cooperative primitive, it is woken to run a.
//
// RegisterAction may be called from any goroutine, including from within a
// running Action; such actions run in the same poll.
func (t *Thread) RegisterAction(a Action) {
	t.actionsMu.Lock()
	t.actions = append(t.actions, a)
	t.actionCount.Add(1)
	t.actionsMu.Unlock()
	t.interrupt()
}

// PendingActions returns the number of queued safepoint actions.
func (t *Thread) PendingActions() int {
	return int(t.actionCount.Load())
}

// PollSafepoint implements Context.PollSafepoint. Actions run in the order
// they were registered.
//
// Preconditions: The caller must be running on the thread goroutine.
func (t *Thread) PollSafepoint(site any) {
	t.polls.Add(1)
	if t.actionCount.Load() == 0 {
		return
	}
	start := time.Now()
	for t.actionCount.Load() != 0 {
		t.actionsMu.Lock()
		queue := t.actions
		t.actions = nil
		t.actionCount.Store(0)
		t.actionsMu.Unlock()

		for _, a := range queue {
			a.RunAction(t, site)
			t.actionsRun.Add(1)
		}
	}
	if d := time.Since(start); d > t.ts.slowSafepoint {
		t.slowLog.Warningf("Safepoint actions took %v while blocked on %v", d, site)
	}
}
