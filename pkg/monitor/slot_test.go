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
	"sync"
	"testing"
)

func TestSlotInflatesOnce(t *testing.T) {
	var s Slot
	if s.Inflated() || s.Peek() != nil {
		t.Fatalf("zero Slot is inflated")
	}
	before := inflations.Value(CauseWait.metricValue())

	const goroutines = 16
	locks := make([]*Lock, goroutines)
	var wg sync.WaitGroup
	for i := range locks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			locks[i] = s.Get(CauseWait)
		}(i)
	}
	wg.Wait()

	for i, l := range locks {
		if l != locks[0] {
			t.Fatalf("Get returned different monitors: %p and %p (goroutine %d)", locks[0], l, i)
		}
	}
	if !s.Inflated() || s.Peek() != locks[0] {
		t.Errorf("Slot not inflated to the returned monitor")
	}
	if got := inflations.Value(CauseWait.metricValue()) - before; got != 1 {
		t.Errorf("inflations increased by %d, want 1", got)
	}
	if got := locks[0].Cause(); got != CauseWait {
		t.Errorf("Cause() = %v, want %v", got, CauseWait)
	}
	// Later causes do not replace the first.
	if l := s.Get(CauseEnter); l != locks[0] || l.Cause() != CauseWait {
		t.Errorf("Get(%v) = %p with cause %v, want %p with cause %v", CauseEnter, l, l.Cause(), locks[0], CauseWait)
	}
}

func TestSlotMonitorIsUsable(t *testing.T) {
	th := newThreads(1)[0]
	var s Slot
	l := s.Get(CauseEnter)
	l.Lock(th)
	if !s.Get(CauseEnter).IsHeldByCurrentThread(th) {
		t.Errorf("monitor of slot not held after Lock")
	}
	mustUnlock(t, l, th)
}

func TestCause(t *testing.T) {
	for _, test := range []struct {
		cause  Cause
		text   string
		metric string
	}{
		{CauseInternal, "Runtime Internal", "internal"},
		{CauseEnter, "Monitor Enter", "enter"},
		{CauseNativeExit, "Native Monitor Exit", "native_exit"},
		{CauseRawNotifyAll, "Raw Monitor Notify All", "raw_notify_all"},
		{numCauses, "Unknown", "internal"},
	} {
		if got := test.cause.String(); got != test.text {
			t.Errorf("Cause(%d).String() = %q, want %q", test.cause, got, test.text)
		}
		if got := test.cause.metricValue(); got != test.metric {
			t.Errorf("Cause(%d).metricValue() = %q, want %q", test.cause, got, test.metric)
		}
	}
	if got := NewRaw().Cause(); got != CauseRawCreate {
		t.Errorf("NewRaw().Cause() = %v, want %v", got, CauseRawCreate)
	}
	if got := New().Cause(); got != CauseInternal {
		t.Errorf("New().Cause() = %v, want %v", got, CauseInternal)
	}
}
