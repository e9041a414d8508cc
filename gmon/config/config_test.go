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

package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestFlags(t *testing.T) *flag.FlagSet {
	t.Helper()
	testFlags := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(testFlags)
	return testFlags
}

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gmon.toml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	c, err := NewFromFlags(newTestFlags(t))
	if err != nil {
		t.Fatal(err)
	}
	want := &Config{
		LogFormat:         LogFormatText,
		Threads:           4,
		Iterations:        1000,
		SafepointInterval: 5 * time.Millisecond,
		SlowSafepoint:     100 * time.Millisecond,
		MetricsPrefix:     "gmon",
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("default config mismatch (-want +got):\n%s", diff)
	}

	// All defaults doesn't require setting flags.
	if flags := c.ToFlags(); len(flags) > 0 {
		t.Errorf("default flags not set correctly for: %s", flags)
	}
}

func TestFromFlags(t *testing.T) {
	testFlags := newTestFlags(t)
	for name, val := range map[string]string{
		"debug":              "true",
		"threads":            "16",
		"safepoint-interval": "1ms",
		"wait-timeout":       "250ms",
	} {
		if err := testFlags.Set(name, val); err != nil {
			t.Fatalf("Flag set %s=%s: %v", name, val, err)
		}
	}

	c, err := NewFromFlags(testFlags)
	if err != nil {
		t.Fatal(err)
	}
	if want := true; c.Debug != want {
		t.Errorf("Debug=%v, want: %v", c.Debug, want)
	}
	if want := 16; c.Threads != want {
		t.Errorf("Threads=%v, want: %v", c.Threads, want)
	}
	if want := time.Millisecond; c.SafepointInterval != want {
		t.Errorf("SafepointInterval=%v, want: %v", c.SafepointInterval, want)
	}
	if want := int64(250); c.WaitTimeoutMillis() != want {
		t.Errorf("WaitTimeoutMillis()=%v, want: %v", c.WaitTimeoutMillis(), want)
	}
}

func TestToFlagsFromFlags(t *testing.T) {
	testFlags := newTestFlags(t)
	testFlags.Set("debug", "true")
	testFlags.Set("threads", "4") // Matches default value.
	testFlags.Set("iterations", "7")
	testFlags.Set("log-format", "json")
	c, err := NewFromFlags(testFlags)
	if err != nil {
		t.Fatal(err)
	}

	got := c.ToFlags()
	want := []string{"--debug=true", "--log-format=json", "--iterations=7"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ToFlags() mismatch (-want +got):\n%s", diff)
	}
}

func TestValidationFail(t *testing.T) {
	for _, tc := range []struct {
		name  string
		flags map[string]string
		err   string
	}{
		{
			name:  "log-format",
			flags: map[string]string{"log-format": "xml"},
			err:   "invalid log format",
		},
		{
			name:  "threads",
			flags: map[string]string{"threads": "0"},
			err:   "threads must be at least 1",
		},
		{
			name:  "iterations",
			flags: map[string]string{"iterations": "-1"},
			err:   "iterations must be at least 1",
		},
		{
			name:  "negative-duration",
			flags: map[string]string{"safepoint-interval": "-1s"},
			err:   "safepoint-interval must not be negative",
		},
		{
			name:  "sub-millisecond-timeout",
			flags: map[string]string{"wait-timeout": "1500us"},
			err:   "whole number of milliseconds",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			testFlags := newTestFlags(t)
			for name, val := range tc.flags {
				if err := testFlags.Set(name, val); err != nil {
					t.Fatalf("Flag set %s=%s: %v", name, val, err)
				}
			}
			_, err := NewFromFlags(testFlags)
			if err == nil || !strings.Contains(err.Error(), tc.err) {
				t.Errorf("NewFromFlags() = %v, want error containing %q", err, tc.err)
			}
		})
	}
}

func TestConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
debug = true
threads = 8
iterations = 50
wait_timeout = "20ms"
metrics = "-"
`)
	testFlags := newTestFlags(t)
	testFlags.Set("config", path)
	// Command line flags take precedence over the file.
	testFlags.Set("threads", "2")

	c, err := NewFromFlags(testFlags)
	if err != nil {
		t.Fatal(err)
	}
	want := &Config{
		ConfigFile:        path,
		Debug:             true,
		LogFormat:         LogFormatText,
		Threads:           2,
		Iterations:        50,
		SafepointInterval: 5 * time.Millisecond,
		SlowSafepoint:     100 * time.Millisecond,
		WaitTimeout:       20 * time.Millisecond,
		Metrics:           "-",
		MetricsPrefix:     "gmon",
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigFileErrors(t *testing.T) {
	for _, tc := range []struct {
		name     string
		contents string
		err      string
	}{
		{
			name:     "unknown key",
			contents: "threads = 2\nbogus = 1\n",
			err:      "unknown keys",
		},
		{
			name:     "syntax",
			contents: "threads = \n",
			err:      "reading config file",
		},
		{
			name:     "invalid value",
			contents: "threads = 0\n",
			err:      "threads must be at least 1",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			testFlags := newTestFlags(t)
			testFlags.Set("config", writeConfigFile(t, tc.contents))
			_, err := NewFromFlags(testFlags)
			if err == nil || !strings.Contains(err.Error(), tc.err) {
				t.Errorf("NewFromFlags() = %v, want error containing %q", err, tc.err)
			}
		})
	}
}
