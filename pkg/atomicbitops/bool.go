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

// Bool is an atomic boolean flag stored as a Uint32 holding 0 or 1.
type Bool struct {
	v Uint32
}

func b2u(val bool) uint32 {
	if val {
		return 1
	}
	return 0
}

// FromBool returns a Bool initialized to val.
func FromBool(val bool) Bool {
	return Bool{v: FromUint32(b2u(val))}
}

// Load returns the current value.
func (b *Bool) Load() bool {
	return b.v.Load() != 0
}

// Store sets the value to val.
func (b *Bool) Store(val bool) {
	b.v.Store(b2u(val))
}

// Swap sets the value to val and returns the previous value.
func (b *Bool) Swap(val bool) bool {
	return b.v.Swap(b2u(val)) != 0
}

// CompareAndSwap sets the value to newVal if it is currently oldVal, and
// reports whether it did.
func (b *Bool) CompareAndSwap(oldVal, newVal bool) bool {
	return b.v.CompareAndSwap(b2u(oldVal), b2u(newVal))
}
