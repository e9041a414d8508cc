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

// Package config provides basic infrastructure to set configuration settings
// for gmon. Each setting is a field in Config tagged with the name of the
// command line flag that sets it and, optionally, the key that sets it in a
// TOML configuration file.
package config

import (
	"fmt"
	"reflect"
	"time"

	"gvisor.dev/gmon/pkg/log"
)

// Log formats accepted by --log-format.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds configuration that is not part of the workload description.
//
// Follow these steps to add a new flag:
//  1. Create a new field in Config.
//  2. Add a field tag with the flag name, and a toml tag if the setting can
//     be set from a configuration file.
//  3. Register a new flag in flags.go, with name and description.
//  4. Add any necessary validation into validate().
type Config struct {
	// ConfigFile is the path of an optional TOML file with settings. Flags
	// set on the command line take precedence over the file.
	ConfigFile string `flag:"config"`

	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug" toml:"debug"`

	// DebugLog is the path to log debug information to, if not empty. If
	// it ends with '/', a file with a default name is created in that
	// directory.
	DebugLog string `flag:"debug-log" toml:"debug_log"`

	// LogFormat is the log format: "text" or "json".
	LogFormat string `flag:"log-format" toml:"log_format"`

	// AlsoLogToStderr sends log messages to stderr in addition to
	// DebugLog.
	AlsoLogToStderr bool `flag:"alsologtostderr" toml:"alsologtostderr"`

	// Threads is the number of guest threads a workload runs.
	Threads int `flag:"threads" toml:"threads"`

	// Iterations is the number of operations each thread performs.
	Iterations int `flag:"iterations" toml:"iterations"`

	// SafepointInterval is the period at which safepoints are requested
	// on all threads. Zero disables safepoint requests.
	SafepointInterval time.Duration `flag:"safepoint-interval" toml:"safepoint_interval"`

	// SlowSafepoint is the safepoint drain time above which a thread logs
	// a warning.
	SlowSafepoint time.Duration `flag:"slow-safepoint" toml:"slow_safepoint"`

	// WaitTimeout is the timeout used by timed waits. Zero waits without a
	// time limit.
	WaitTimeout time.Duration `flag:"wait-timeout" toml:"wait_timeout"`

	// Metrics is where metrics are written after a workload completes:
	// empty for nowhere, "-" for stdout, otherwise a file path.
	Metrics string `flag:"metrics" toml:"metrics"`

	// MetricsPrefix is prepended to exported metric names.
	MetricsPrefix string `flag:"metrics-prefix" toml:"metrics_prefix"`
}

func (c *Config) validate() error {
	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("invalid log format %q, must be %q or %q", c.LogFormat, LogFormatText, LogFormatJSON)
	}
	if c.Threads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", c.Threads)
	}
	if c.Iterations < 1 {
		return fmt.Errorf("iterations must be at least 1, got %d", c.Iterations)
	}
	for name, d := range map[string]time.Duration{
		"safepoint-interval": c.SafepointInterval,
		"slow-safepoint":     c.SlowSafepoint,
		"wait-timeout":       c.WaitTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative, got %v", name, d)
		}
	}
	if c.WaitTimeout%time.Millisecond != 0 {
		return fmt.Errorf("wait-timeout must be a whole number of milliseconds, got %v", c.WaitTimeout)
	}
	return nil
}

// WaitTimeoutMillis returns WaitTimeout in the unit taken by monitor waits.
func (c *Config) WaitTimeoutMillis() int64 {
	return c.WaitTimeout.Milliseconds()
}

// Log logs important aspects of the configuration to the given log function.
func (c *Config) Log() {
	log.Infof("Config:")
	obj := reflect.ValueOf(c).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		log.Infof("\t%s: %s", f.Name, getVal(obj.Field(i)))
	}
}
