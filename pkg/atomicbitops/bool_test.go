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

package atomicbitops

import "testing"

func TestBool(t *testing.T) {
	b := FromBool(true)
	if !b.Load() {
		t.Fatalf("FromBool(true).Load() = false")
	}
	if b.CompareAndSwap(false, true) {
		t.Errorf("CompareAndSwap(false, true) succeeded on a true flag")
	}
	if !b.CompareAndSwap(true, false) || b.Load() {
		t.Errorf("CompareAndSwap(true, false) did not clear the flag")
	}
	if b.Swap(true) {
		t.Errorf("Swap returned true for a cleared flag")
	}
	if !b.Swap(false) {
		t.Errorf("Swap returned false for a set flag")
	}
	b.Store(true)
	if !b.Load() {
		t.Errorf("Load after Store(true) = false")
	}
}
