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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gvisor.dev/gmon/gmon/config"
)

func testConfig(threads, iterations int) *config.Config {
	return &config.Config{
		LogFormat:         config.LogFormatText,
		Threads:           threads,
		Iterations:        iterations,
		SafepointInterval: time.Millisecond,
		SlowSafepoint:     time.Second,
		MetricsPrefix:     "gmon",
	}
}

func TestContend(t *testing.T) {
	conf := testConfig(6, 200)
	c := &Contend{depth: 3}
	counter, err := c.run(context.Background(), newWorkload(conf))
	if err != nil {
		t.Fatalf("contend failed: %v", err)
	}
	if want := conf.Threads * conf.Iterations; counter != want {
		t.Errorf("counter = %d, want %d", counter, want)
	}
}

func TestWaitNotify(t *testing.T) {
	for _, timeout := range []time.Duration{0, time.Millisecond} {
		t.Run(timeout.String(), func(t *testing.T) {
			conf := testConfig(5, 100)
			conf.WaitTimeout = timeout
			wn := &WaitNotify{capacity: 2}
			q, err := wn.run(context.Background(), newWorkload(conf))
			if err != nil {
				t.Fatalf("waitnotify failed: %v", err)
			}
			if want := 3 * conf.Iterations; q.produced != want {
				t.Errorf("produced %d items, want %d", q.produced, want)
			}
			if timeout == 0 && q.timeouts.Load() != 0 {
				t.Errorf("%d untimed waits expired", q.timeouts.Load())
			}
		})
	}
}

func TestInterrupt(t *testing.T) {
	conf := testConfig(6, 1)
	i := &Interrupt{timeout: 10 * time.Second}
	aborted, err := i.run(context.Background(), newWorkload(conf))
	if err != nil {
		t.Fatalf("interrupt failed: %v", err)
	}
	if aborted != conf.Threads {
		t.Errorf("%d threads aborted, want %d", aborted, conf.Threads)
	}
}

func TestWriteMetrics(t *testing.T) {
	conf := testConfig(2, 10)
	c := &Contend{depth: 1}
	if _, err := c.run(context.Background(), newWorkload(conf)); err != nil {
		t.Fatalf("contend failed: %v", err)
	}

	conf.Metrics = filepath.Join(t.TempDir(), "metrics.txt")
	if err := writeMetrics(conf); err != nil {
		t.Fatalf("writeMetrics failed: %v", err)
	}
	out, err := os.ReadFile(conf.Metrics)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	for _, want := range []string{
		"# TYPE gmon_monitor_inflations counter",
		`gmon_monitor_inflations{cause="enter"}`,
		"gmon_monitor_safepoint_polls",
	} {
		if !strings.Contains(string(out), want) {
			t.Errorf("metrics output does not contain %q:\n%s", want, out)
		}
	}
}
