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

package cmd

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/google/subcommands"
	"gvisor.dev/gmon/gmon/config"
	"gvisor.dev/gmon/pkg/atomicbitops"
	"gvisor.dev/gmon/pkg/errors/monitorerr"
	"gvisor.dev/gmon/pkg/guest"
	"gvisor.dev/gmon/pkg/monitor"
)

// Interrupt implements subcommands.Command for the "interrupt" command.
type Interrupt struct {
	timeout time.Duration
}

// Name implements subcommands.Command.Name.
func (*Interrupt) Name() string {
	return "interrupt"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Interrupt) Synopsis() string {
	return "block threads on monitors and abort them with guest interrupts"
}

// Usage implements subcommands.Command.Usage.
func (*Interrupt) Usage() string {
	return `interrupt [flags] - one thread holds a monitor while the others block acquiring it or waiting on a second monitor, then interrupts them all.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (i *Interrupt) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&i.timeout, "timeout", 10*time.Second, "how long to wait for threads to block and to abort.")
}

// Execute implements subcommands.Command.Execute.
func (i *Interrupt) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	w := newWorkload(conf)
	start := time.Now()
	aborted, err := i.run(ctx, w)
	if err != nil {
		Fatalf("interrupt: %v", err)
	}
	fmt.Printf("%d blocked threads aborted by guest interrupts\n", aborted)
	if err := w.report("interrupt", start); err != nil {
		Fatalf("interrupt: %v", err)
	}
	return subcommands.ExitSuccess
}

// interruptTest is the shared state of one run.
type interruptTest struct {
	w       *workload
	timeout time.Duration

	// held is held by the interrupter while the targets block. Odd targets
	// block acquiring it.
	held *monitor.Lock

	// waitOn is waited on by even targets.
	waitOn *monitor.Lock

	// holding is closed once held is held.
	holding chan struct{}

	// targets is the number of threads to interrupt.
	targets int

	// aborted counts targets whose operation was aborted.
	aborted atomicbitops.Int32
}

func (i *Interrupt) run(ctx context.Context, w *workload) (int, error) {
	it := &interruptTest{
		w:       w,
		timeout: i.timeout,
		held:    monitor.New(),
		waitOn:  monitor.New(),
		holding: make(chan struct{}),
		targets: w.conf.Threads,
	}
	err := w.run(ctx, "interrupt", it.targets+1, func(ctx context.Context, idx int, t *guest.Thread) error {
		if idx == 0 {
			return it.interrupter(ctx, t)
		}
		select {
		case <-it.holding:
		case <-ctx.Done():
			return ctx.Err()
		}
		if idx%2 == 1 {
			return it.lockTarget(t)
		}
		return it.waitTarget(t)
	})
	return int(it.aborted.Load()), err
}

func (it *interruptTest) lockTarget(t *guest.Thread) error {
	err := it.held.LockInterruptible(t)
	if !monitorerr.Equals(monitorerr.ErrGuestInterrupted, err) {
		return fmt.Errorf("%v: LockInterruptible returned %v, want %v", t, err, monitorerr.ErrGuestInterrupted)
	}
	if it.held.IsHeldByCurrentThread(t) {
		return fmt.Errorf("%v: holds the monitor after an aborted acquisition", t)
	}
	return it.finish(t)
}

func (it *interruptTest) waitTarget(t *guest.Thread) error {
	it.waitOn.Lock(t)
	signaled, err := it.waitOn.Await(t, 0)
	if signaled || !monitorerr.Equals(monitorerr.ErrGuestInterrupted, err) {
		it.waitOn.Unlock(t)
		return fmt.Errorf("%v: Await returned %t, %v; want false, %v", t, signaled, err, monitorerr.ErrGuestInterrupted)
	}
	if err := it.waitOn.Unlock(t); err != nil {
		return fmt.Errorf("%v: monitor not held after an aborted wait: %w", t, err)
	}
	return it.finish(t)
}

func (it *interruptTest) finish(t *guest.Thread) error {
	if t.GuestInterrupted() {
		return fmt.Errorf("%v: guest interrupt still raised after abort", t)
	}
	it.aborted.Add(1)
	return nil
}

// interrupter holds it.held, waits until every target is blocked, interrupts
// them and waits until they have all aborted.
func (it *interruptTest) interrupter(ctx context.Context, t *guest.Thread) error {
	it.held.Lock(t)
	defer it.held.Unlock(t)
	close(it.holding)

	ctx, cancel := context.WithTimeout(ctx, it.timeout)
	defer cancel()
	poll := func(cb func() error) error {
		return backoff.Retry(func() error {
			// Keep servicing safepoints while polling.
			t.PollSafepoint(nil)
			return cb()
		}, backoff.WithContext(backoff.NewConstantBackOff(time.Millisecond), ctx))
	}

	if err := poll(func() error {
		blocked := 0
		for _, other := range it.w.threads.Threads() {
			if site, ok := other.BlockedOn(); ok && (site == it.held || site == it.waitOn) {
				blocked++
			}
		}
		if blocked != it.targets {
			return fmt.Errorf("%d of %d threads blocked", blocked, it.targets)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("waiting for threads to block: %w", err)
	}

	for _, other := range it.w.threads.Threads() {
		if other == t {
			continue
		}
		if err := it.w.threads.GuestInterrupt(other.ID()); err != nil {
			return err
		}
	}

	if err := poll(func() error {
		if n := int(it.aborted.Load()); n != it.targets {
			return fmt.Errorf("%d of %d threads aborted", n, it.targets)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("waiting for threads to abort: %w", err)
	}
	return nil
}
