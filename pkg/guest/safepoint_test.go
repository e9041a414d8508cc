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
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestPollSafepointRunsActionsInOrder(t *testing.T) {
	thread := NewThreadSet().NewThread("t")
	var got []string
	record := func(name string) Action {
		return ActionFunc(func(th *Thread, site any) {
			if th != thread {
				t.Errorf("action %s ran on %v, want %v", name, th, thread)
			}
			got = append(got, name+":"+site.(string))
		})
	}
	thread.RegisterAction(record("a"))
	thread.RegisterAction(ActionFunc(func(th *Thread, site any) {
		got = append(got, "b:"+site.(string))
		// Actions registered by actions run in the same poll.
		th.RegisterAction(record("c"))
	}))
	if n := thread.PendingActions(); n != 2 {
		t.Fatalf("PendingActions() = %d, want 2", n)
	}

	thread.PollSafepoint("here")

	want := []string{"a:here", "b:here", "c:here"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("actions ran in unexpected order (-want +got):\n%s", diff)
	}
	if n := thread.PendingActions(); n != 0 {
		t.Errorf("PendingActions() = %d after poll, want 0", n)
	}
	if s := thread.Stats(); s.ActionsRun != 3 || s.Polls != 1 {
		t.Errorf("Stats() = %+v, want 3 actions in 1 poll", s)
	}

	// Nothing pending: no actions run.
	thread.PollSafepoint("again")
	if len(got) != 3 {
		t.Errorf("empty poll ran actions: %v", got)
	}
}

func TestRegisterActionWakesSleeper(t *testing.T) {
	thread := NewThreadSet().NewThread("t")
	ch := thread.SleepStart(nil)
	go thread.RegisterAction(ActionFunc(func(*Thread, any) {}))
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("sleeper was not woken by RegisterAction")
	}
	thread.SleepFinish(false)
	if thread.GuestInterrupted() {
		t.Errorf("safepoint request raised the guest interrupt")
	}
}

func TestRequestSafepoint(t *testing.T) {
	ts := NewThreadSet()
	threads := []*Thread{ts.NewThread("a"), ts.NewThread("b"), ts.NewThread("c")}
	ts.Exit(threads[2])

	ran := make(map[ThreadID]int)
	n := ts.RequestSafepoint(ActionFunc(func(th *Thread, _ any) {
		ran[th.ID()]++
	}))
	if n != 2 {
		t.Fatalf("RequestSafepoint queued on %d threads, want 2", n)
	}
	for _, th := range threads {
		th.PollSafepoint(nil)
	}
	want := map[ThreadID]int{threads[0].ID(): 1, threads[1].ID(): 1}
	if diff := cmp.Diff(want, ran); diff != "" {
		t.Errorf("unexpected actions (-want +got):\n%s", diff)
	}
}

func TestExitDropsActions(t *testing.T) {
	ts := NewThreadSet()
	thread := ts.NewThread("t")
	ran := false
	thread.RegisterAction(ActionFunc(func(*Thread, any) { ran = true }))
	ts.Exit(thread)
	thread.PollSafepoint(nil)
	if ran {
		t.Errorf("action ran after Exit")
	}
}
