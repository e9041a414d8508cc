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

package metric

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistration(t *testing.T) {
	if _, err := NewUint64Metric("/test/registration", "a counter"); err != nil {
		t.Fatalf("NewUint64Metric failed: %v", err)
	}
	if _, err := NewUint64Metric("/test/registration", "again"); err != ErrNameInUse {
		t.Errorf("duplicate registration: got %v, want %v", err, ErrNameInUse)
	}
	for _, name := range []string{"", "/", "no_slash", "/bad-char", "/space here"} {
		if _, err := NewUint64Metric(name, "invalid"); err != ErrInvalidName {
			t.Errorf("NewUint64Metric(%q): got %v, want %v", name, err, ErrInvalidName)
		}
	}
	if _, err := NewUint64Metric("/test/nofields", "empty field", NewField("kind", nil)); err != ErrFieldHasNoAllowedValues {
		t.Errorf("field without values: got %v, want %v", err, ErrFieldHasNoAllowedValues)
	}
}

func TestIncrement(t *testing.T) {
	m := MustCreateNewUint64Metric("/test/increment", "fielded counter",
		NewField("op", []string{"lock", "wait"}),
		NewField("result", []string{"ok", "interrupted"}))

	m.Increment("lock", "ok")
	m.Increment("lock", "ok")
	m.IncrementBy(5, "wait", "interrupted")

	want := map[string]uint64{
		"/test/increment{lock,ok}":          2,
		"/test/increment{lock,interrupted}": 0,
		"/test/increment{wait,ok}":          0,
		"/test/increment{wait,interrupted}": 5,
	}
	got := make(map[string]uint64)
	for k, v := range Values() {
		if strings.HasPrefix(k, "/test/increment{") {
			got[k] = v
		}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Values() mismatch (-want +got):\n%s", diff)
	}
	if v := m.Value("wait", "interrupted"); v != 5 {
		t.Errorf("Value = %d, want 5", v)
	}
}

func TestIncrementInvalidField(t *testing.T) {
	m := MustCreateNewUint64Metric("/test/invalid_field", "fielded counter", NewField("op", []string{"lock"}))
	defer func() {
		if recover() == nil {
			t.Errorf("Increment with an unknown field value did not panic")
		}
	}()
	m.Increment("unlock")
}

func TestWritePrometheus(t *testing.T) {
	m := MustCreateNewUint64Metric("/test/export/acquisitions", "Number of acquisitions.", NewField("cause", []string{"enter", "wait"}))
	m.IncrementBy(3, "enter")

	var buf bytes.Buffer
	if err := WritePrometheus(&buf, "gmon"); err != nil {
		t.Fatalf("WritePrometheus failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"# HELP gmon_test_export_acquisitions Number of acquisitions.",
		"# TYPE gmon_test_export_acquisitions counter",
		`gmon_test_export_acquisitions{cause="enter"} 3`,
		`gmon_test_export_acquisitions{cause="wait"} 0`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
