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

package log

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// Tests that Level can marshal/unmarshal properly.
func TestLevelMarshal(t *testing.T) {
	ls := []Level{Warning, Info, Debug}
	for _, want := range ls {
		b, err := json.Marshal(&want)
		if err != nil {
			t.Errorf("error marshaling %v: %v", want, err)
		}
		var got Level
		if err := json.Unmarshal(b, &got); err != nil {
			t.Errorf("error unmarshaling %q: %v", b, err)
		}
		if got != want {
			t.Errorf("marshal/unmarsal %v didn't match, got %v", want, got)
		}
	}
}

// Tests that Level can be unmarshaled from a string.
func TestUnmarshalFromString(t *testing.T) {
	tcs := []struct {
		input string
		want  Level
	}{
		{"warning", Warning},
		{"info", Info},
		{"debug", Debug},
	}

	for _, tc := range tcs {
		var got Level
		if err := json.Unmarshal([]byte("\""+tc.input+"\""), &got); err != nil {
			t.Errorf("error unmarshaling %q: %v", tc.input, err)
		}
		if got != tc.want {
			t.Errorf("unmarshal %q got %v want %v", tc.input, got, tc.want)
		}
	}
}

func TestUnmarshalFromNumber(t *testing.T) {
	var got Level
	if err := json.Unmarshal([]byte("2"), &got); err != nil || got != Debug {
		t.Errorf("unmarshal 2 = (%v, %v), want (%v, nil)", got, err, Debug)
	}
	for _, bad := range []string{"3", "-1", `"verbose"`} {
		if err := json.Unmarshal([]byte(bad), &got); err == nil {
			t.Errorf("unmarshal %s succeeded, want error", bad)
		}
	}
}

func TestJSONEmitter(t *testing.T) {
	tw := &testWriter{}
	e := JSONEmitter{&Writer{Next: tw}}
	e.Emit(0, Info, time.Unix(0, 0).UTC(), "lock %d contended", 7)
	if len(tw.lines) != 2 {
		t.Fatalf("got %d writes, want the record and a newline: %v", len(tw.lines), tw.lines)
	}
	var got jsonRecord
	if err := json.Unmarshal([]byte(tw.lines[0]), &got); err != nil {
		t.Fatalf("error unmarshaling %q: %v", tw.lines[0], err)
	}
	if got.Level != Info {
		t.Errorf("level = %v, want %v", got.Level, Info)
	}
	if want := "lock 7 contended"; got.Msg != want {
		t.Errorf("msg = %q, want %q", got.Msg, want)
	}
	if !strings.HasPrefix(got.Caller, "json_test.go:") {
		t.Errorf("caller = %q, want prefix %q", got.Caller, "json_test.go:")
	}
	if got.TID <= 0 {
		t.Errorf("tid = %d, want a host thread id", got.TID)
	}
	if !got.Time.Equal(time.Unix(0, 0)) {
		t.Errorf("time = %v, want the epoch", got.Time)
	}
}
