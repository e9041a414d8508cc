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

// Cause identifies the runtime event that forced a monitor into existence.
// It is used for diagnostics only.
type Cause int

// Inflation causes.
const (
	CauseInternal Cause = iota
	CauseEnter
	CauseWait
	CauseNotify
	CauseNativeEnter
	CauseNativeExit
	CauseRawCreate
	CauseRawEnter
	CauseRawExit
	CauseRawWait
	CauseRawNotify
	CauseRawNotifyAll

	numCauses
)

var causeInfo = [numCauses]struct {
	text   string
	metric string
}{
	CauseInternal:     {"Runtime Internal", "internal"},
	CauseEnter:        {"Monitor Enter", "enter"},
	CauseWait:         {"Monitor Wait", "wait"},
	CauseNotify:       {"Monitor Notify", "notify"},
	CauseNativeEnter:  {"Native Monitor Enter", "native_enter"},
	CauseNativeExit:   {"Native Monitor Exit", "native_exit"},
	CauseRawCreate:    {"Raw Monitor Create", "raw_create"},
	CauseRawEnter:     {"Raw Monitor Enter", "raw_enter"},
	CauseRawExit:      {"Raw Monitor Exit", "raw_exit"},
	CauseRawWait:      {"Raw Monitor Wait", "raw_wait"},
	CauseRawNotify:    {"Raw Monitor Notify", "raw_notify"},
	CauseRawNotifyAll: {"Raw Monitor Notify All", "raw_notify_all"},
}

// String implements fmt.Stringer.String.
func (c Cause) String() string {
	if c < 0 || c >= numCauses {
		return "Unknown"
	}
	return causeInfo[c].text
}

// metricValue returns the value of the cause field in monitor metrics.
func (c Cause) metricValue() string {
	if c < 0 || c >= numCauses {
		return causeInfo[CauseInternal].metric
	}
	return causeInfo[c].metric
}

func causeMetricValues() []string {
	vals := make([]string, 0, numCauses)
	for _, info := range causeInfo {
		vals = append(vals, info.metric)
	}
	return vals
}
