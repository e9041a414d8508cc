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

// Package testutil contains utility functions for gmon tests.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
)

// pollInterval is the interval between Poll attempts.
const pollInterval = 5 * time.Millisecond

// Poll is a shorthand function to poll for something with given timeout.
func Poll(cb func() error, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return PollContext(ctx, cb)
}

// PollContext is like Poll, but takes a context instead of a timeout.
func PollContext(ctx context.Context, cb func() error) error {
	b := backoff.WithContext(backoff.NewConstantBackOff(pollInterval), ctx)
	return backoff.Retry(cb, b)
}

// WaitFor polls cond until it returns true or timeout elapses. desc is used
// to build the error message.
func WaitFor(cond func() bool, timeout time.Duration, desc string) error {
	return Poll(func() error {
		if !cond() {
			return fmt.Errorf("timed out waiting for %s", desc)
		}
		return nil
	}, timeout)
}
