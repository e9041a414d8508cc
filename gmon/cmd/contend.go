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
	"gvisor.dev/gmon/pkg/guest"
	"gvisor.dev/gmon/pkg/log"
	"gvisor.dev/gmon/pkg/monitor"
)

// Contend implements subcommands.Command for the "contend" command.
type Contend struct {
	depth int
}

// Name implements subcommands.Command.Name.
func (*Contend) Name() string {
	return "contend"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Contend) Synopsis() string {
	return "run threads that repeatedly enter the same monitor"
}

// Usage implements subcommands.Command.Usage.
func (*Contend) Usage() string {
	return `contend [flags] - every thread enters a shared monitor --iterations times, reentering it --depth times, and increments a shared counter.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (c *Contend) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.depth, "depth", 2, "number of nested acquisitions per iteration.")
}

// Execute implements subcommands.Command.Execute.
func (c *Contend) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 || c.depth < 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	w := newWorkload(conf)
	start := time.Now()
	counter, err := c.run(ctx, w)
	if err != nil {
		Fatalf("contend: %v", err)
	}
	if want := conf.Threads * conf.Iterations; counter != want {
		Fatalf("contend: counter is %d, want %d", counter, want)
	}
	fmt.Printf("%d threads completed %d iterations each\n", conf.Threads, conf.Iterations)
	if err := w.report("contend", start); err != nil {
		Fatalf("contend: %v", err)
	}
	return subcommands.ExitSuccess
}

func (c *Contend) run(ctx context.Context, w *workload) (int, error) {
	var s monitor.Slot
	counter := 0 // Protected by the monitor of s.
	err := w.run(ctx, "contend", w.conf.Threads, func(ctx context.Context, _ int, t *guest.Thread) error {
		for i := 0; i < w.conf.Iterations; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			l := s.Get(monitor.CauseEnter)
			for d := 0; d < c.depth; d++ {
				l.Lock(t)
			}
			if got := l.HoldCount(t); got != c.depth {
				return fmt.Errorf("%v: hold count is %d, want %d", t, got, c.depth)
			}
			counter++
			for d := 0; d < c.depth; d++ {
				if err := l.Unlock(t); err != nil {
					return fmt.Errorf("%v: %w", t, err)
				}
			}
			// Running threads reach safepoints between iterations.
			t.PollSafepoint(nil)
		}
		log.Debugf("%v done: %+v", t, t.Stats())
		return nil
	})
	return counter, err
}
