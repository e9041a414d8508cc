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

	"gvisor.dev/gmon/pkg/errors/monitorerr"
)

func TestThreadIDs(t *testing.T) {
	ts := NewThreadSet()
	a := ts.NewThread("a")
	b := ts.NewThread("b")
	if a.ID() == NoThread || b.ID() == NoThread {
		t.Fatalf("got IDs %d, %d; want non-zero", a.ID(), b.ID())
	}
	if a.ID() == b.ID() {
		t.Fatalf("threads share ID %d", a.ID())
	}
	if got := ts.Lookup(b.ID()); got != b {
		t.Errorf("Lookup(%d) = %v, want %v", b.ID(), got, b)
	}

	ts.Exit(a)
	if got := ts.Lookup(a.ID()); got != nil {
		t.Errorf("Lookup of exited thread = %v, want nil", got)
	}
	if !a.Exited() {
		t.Errorf("Exited() = false after Exit")
	}
	c := ts.NewThread("c")
	if c.ID() == a.ID() {
		t.Errorf("ID %d reused", c.ID())
	}
	threads := ts.Threads()
	if len(threads) != 2 || threads[0] != b || threads[1] != c {
		t.Errorf("Threads() = %v, want [%v %v]", threads, b, c)
	}
}

func TestGuestInterruptFlag(t *testing.T) {
	thread := NewThreadSet().NewThread("t")
	if thread.GuestInterrupted() {
		t.Fatalf("new thread is guest-interrupted")
	}
	thread.GuestInterrupt()
	if !thread.GuestInterrupted() {
		t.Fatalf("GuestInterrupted() = false after GuestInterrupt")
	}
	// Observing the flag does not clear it.
	if !thread.GuestInterrupted() {
		t.Fatalf("GuestInterrupted() cleared the flag")
	}
	if !thread.ConsumeGuestInterrupt() {
		t.Fatalf("ConsumeGuestInterrupt() = false, want true")
	}
	if thread.ConsumeGuestInterrupt() {
		t.Fatalf("second ConsumeGuestInterrupt() = true, want false")
	}

	thread.GuestInterrupt()
	thread.ClearGuestInterrupt()
	if thread.GuestInterrupted() {
		t.Fatalf("GuestInterrupted() = true after ClearGuestInterrupt")
	}
	s := thread.Stats()
	if s.GuestInterruptsRaised != 2 || s.GuestInterruptsConsumed != 2 {
		t.Errorf("Stats() = %+v, want 2 raised and 2 consumed", s)
	}
}

func TestGuestInterruptWakesSleeper(t *testing.T) {
	thread := NewThreadSet().NewThread("t")
	ch := thread.SleepStart("site")
	if s, ok := thread.BlockedOn(); !ok || s != "site" {
		t.Errorf("BlockedOn() = %v, %t; want site, true", s, ok)
	}
	go thread.GuestInterrupt()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("sleeper was not woken by guest interrupt")
	}
	thread.SleepFinish(false)
	if _, ok := thread.BlockedOn(); ok {
		t.Errorf("BlockedOn() reports a site after SleepFinish")
	}
	if !thread.GuestInterrupted() {
		t.Errorf("guest interrupt flag not set after wakeup")
	}
	if got := thread.Stats().Interrupts; got != 1 {
		t.Errorf("Stats().Interrupts = %d, want 1", got)
	}
}

func TestThreadSetGuestInterrupt(t *testing.T) {
	ts := NewThreadSet()
	thread := ts.NewThread("t")
	if err := ts.GuestInterrupt(thread.ID()); err != nil {
		t.Fatalf("GuestInterrupt(%d) failed: %v", thread.ID(), err)
	}
	if !thread.GuestInterrupted() {
		t.Errorf("thread not interrupted")
	}
	err := ts.GuestInterrupt(thread.ID() + 100)
	if !monitorerr.Equals(monitorerr.ErrNoSuchThread, err) {
		t.Errorf("GuestInterrupt(unknown) = %v, want %v", err, monitorerr.ErrNoSuchThread)
	}
}
