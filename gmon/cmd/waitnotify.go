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

	"github.com/google/subcommands"
	"gvisor.dev/gmon/gmon/config"
	"gvisor.dev/gmon/pkg/atomicbitops"
	"gvisor.dev/gmon/pkg/guest"
	"gvisor.dev/gmon/pkg/monitor"
)

// WaitNotify implements subcommands.Command for the "waitnotify" command.
type WaitNotify struct {
	capacity int
}

// Name implements subcommands.Command.Name.
func (*WaitNotify) Name() string {
	return "waitnotify"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*WaitNotify) Synopsis() string {
	return "run producers and consumers that hand items over through a monitor"
}

// Usage implements subcommands.Command.Usage.
func (*WaitNotify) Usage() string {
	return `waitnotify [flags] - half of the threads produce --iterations items each into a bounded queue guarded by a monitor, the others consume them.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (wn *WaitNotify) SetFlags(f *flag.FlagSet) {
	f.IntVar(&wn.capacity, "capacity", 4, "capacity of the queue.")
}

// Execute implements subcommands.Command.Execute.
func (wn *WaitNotify) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 || wn.capacity < 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	w := newWorkload(conf)
	start := time.Now()
	q, err := wn.run(ctx, w)
	if err != nil {
		Fatalf("waitnotify: %v", err)
	}
	fmt.Printf("%d items handed over, %d timed waits expired\n", q.produced, q.timeouts.Load())
	if err := w.report("waitnotify", start); err != nil {
		Fatalf("waitnotify: %v", err)
	}
	return subcommands.ExitSuccess
}

// boundedQueue is a FIFO of at most capacity items guarded by a monitor.
type boundedQueue struct {
	mon           *monitor.Lock
	capacity      int
	timeoutMillis int64

	// timeouts counts timed waits that expired.
	timeouts atomicbitops.Uint64

	// The fields below are protected by mon.
	items []int
	// produced is the number of items put so far.
	produced int
	// remaining is the number of items still to be taken.
	remaining int
}

// await waits on the queue's monitor.
//
// Preconditions: mon is held by t.
func (q *boundedQueue) await(t *guest.Thread) error {
	signaled, err := q.mon.Await(t, q.timeoutMillis)
	if err != nil {
		return err
	}
	// An untimed wait never reports a signal.
	if !signaled && q.timeoutMillis != 0 {
		q.timeouts.Add(1)
	}
	return nil
}

func (q *boundedQueue) put(t *guest.Thread, v int) error {
	q.mon.Lock(t)
	for len(q.items) == q.capacity {
		if err := q.await(t); err != nil {
			q.mon.Unlock(t)
			return err
		}
	}
	q.items = append(q.items, v)
	q.produced++
	q.mon.SignalAll(t)
	return q.mon.Unlock(t)
}

// take removes the oldest item. It returns false if all items have been
// taken.
func (q *boundedQueue) take(t *guest.Thread) (int, bool, error) {
	q.mon.Lock(t)
	for len(q.items) == 0 && q.remaining > 0 {
		if err := q.await(t); err != nil {
			q.mon.Unlock(t)
			return 0, false, err
		}
	}
	if q.remaining == 0 {
		return 0, false, q.mon.Unlock(t)
	}
	v := q.items[0]
	q.items = q.items[1:]
	q.remaining--
	q.mon.SignalAll(t)
	return v, true, q.mon.Unlock(t)
}

func (wn *WaitNotify) run(ctx context.Context, w *workload) (*boundedQueue, error) {
	producers := (w.conf.Threads + 1) / 2
	consumers := w.conf.Threads - producers
	if consumers == 0 {
		consumers = 1
	}
	q := &boundedQueue{
		mon:           monitor.New(),
		capacity:      wn.capacity,
		timeoutMillis: w.conf.WaitTimeoutMillis(),
		remaining:     producers * w.conf.Iterations,
	}

	sums := make([]int, producers+consumers)
	err := w.run(ctx, "waitnotify", producers+consumers, func(ctx context.Context, i int, t *guest.Thread) error {
		if i < producers {
			for v := 1; v <= w.conf.Iterations; v++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := q.put(t, v); err != nil {
					return fmt.Errorf("%v: put: %w", t, err)
				}
				t.PollSafepoint(nil)
			}
			return nil
		}
		for {
			v, ok, err := q.take(t)
			if err != nil {
				return fmt.Errorf("%v: take: %w", t, err)
			}
			if !ok {
				return nil
			}
			sums[i] += v
			t.PollSafepoint(nil)
		}
	})
	if err != nil {
		return nil, err
	}

	total := 0
	for _, s := range sums {
		total += s
	}
	if want := producers * w.conf.Iterations * (w.conf.Iterations + 1) / 2; total != want {
		return nil, fmt.Errorf("consumed items sum to %d, want %d", total, want)
	}
	return q, nil
}
