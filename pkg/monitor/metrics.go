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
	"gvisor.dev/gmon/pkg/metric"
)

const (
	opLock = "lock"
	opWait = "wait"
)

var (
	inflations = metric.MustCreateNewUint64Metric(
		"/monitor/inflations",
		"Number of monitors created, by the event that required them.",
		metric.NewField("cause", causeMetricValues()))

	contendedAcquisitions = metric.MustCreateNewUint64Metric(
		"/monitor/contended_acquisitions",
		"Number of monitor acquisitions that had to block.")

	guestInterruptAborts = metric.MustCreateNewUint64Metric(
		"/monitor/guest_interrupted",
		"Number of interruptible monitor operations aborted by a guest interrupt.",
		metric.NewField("op", []string{opLock, opWait}))

	safepointPolls = metric.MustCreateNewUint64Metric(
		"/monitor/safepoint_polls",
		"Number of safepoint polls made by threads blocked on monitors.")

	waitTimeouts = metric.MustCreateNewUint64Metric(
		"/monitor/wait_timeouts",
		"Number of timed waits that returned without being signaled.")

	signalsDelivered = metric.MustCreateNewUint64Metric(
		"/monitor/signals",
		"Number of waiters woken by Signal or SignalAll.")
)
