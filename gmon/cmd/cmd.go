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

// Package cmd holds implementations of the gmon commands.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
	"gvisor.dev/gmon/gmon/config"
	"gvisor.dev/gmon/pkg/atomicbitops"
	"gvisor.dev/gmon/pkg/guest"
	"gvisor.dev/gmon/pkg/log"
	"gvisor.dev/gmon/pkg/metric"
)

// ErrorLogger is where error messages should be written to. These messages
// are consumed by the user who ran gmon, in addition to the debug log.
var ErrorLogger io.Writer = os.Stderr

// Fatalf logs to stderr and the debug log, then exits with status 128.
func Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Warningf("FATAL ERROR: %s", msg)
	fmt.Fprintf(ErrorLogger, "%s\n", msg)
	os.Exit(128)
}

// workload is a set of guest threads running on behalf of a command, and
// the runtime activity around them.
type workload struct {
	conf    *config.Config
	threads *guest.ThreadSet

	// safepoints counts safepoint actions run by the workload's threads.
	safepoints atomicbitops.Uint64
}

func newWorkload(conf *config.Config) *workload {
	return &workload{
		conf:    conf,
		threads: guest.NewThreadSet(guest.WithSlowSafepoint(conf.SlowSafepoint)),
	}
}

// safepointAction is queued on every thread each time the workload requests
// a safepoint.
func (w *workload) safepointAction() guest.Action {
	return guest.ActionFunc(func(t *guest.Thread, site any) {
		w.safepoints.Add(1)
		if site != nil && t.IsLogging(log.Debug) {
			t.Debugf("Safepoint while blocked on %v", site)
		}
	})
}

// run starts one goroutine per thread running fn, plus a goroutine that
// requests safepoints periodically, and waits for all threads to finish.
// It returns the first error returned by fn.
func (w *workload) run(ctx context.Context, name string, n int, fn func(ctx context.Context, i int, t *guest.Thread) error) error {
	threads := make([]*guest.Thread, n)
	for i := range threads {
		threads[i] = w.threads.NewThread(fmt.Sprintf("%s-%d", name, i))
	}

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		w.requestSafepoints(done)
	}()

	for i, t := range threads {
		i, t := i, t
		g.Go(func() error {
			defer w.threads.Exit(t)
			return fn(gctx, i, t)
		})
	}
	err := g.Wait()
	close(done)
	<-stopped
	return err
}

func (w *workload) requestSafepoints(done <-chan struct{}) {
	if w.conf.SafepointInterval == 0 {
		return
	}
	ticker := time.NewTicker(w.conf.SafepointInterval)
	defer ticker.Stop()
	action := w.safepointAction()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			w.threads.RequestSafepoint(action)
		}
	}
}

// report logs workload statistics and writes metrics if requested.
func (w *workload) report(name string, start time.Time) error {
	log.Infof("%s finished in %v, %d safepoint actions run", name, time.Since(start), w.safepoints.Load())
	return writeMetrics(w.conf)
}

func writeMetrics(conf *config.Config) error {
	switch conf.Metrics {
	case "":
		return nil
	case "-":
		return metric.WritePrometheus(os.Stdout, conf.MetricsPrefix)
	default:
		f, err := os.Create(conf.Metrics)
		if err != nil {
			return fmt.Errorf("creating metrics file: %w", err)
		}
		defer f.Close()
		return metric.WritePrometheus(f, conf.MetricsPrefix)
	}
}
