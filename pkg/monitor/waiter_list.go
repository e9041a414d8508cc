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

// waiterList is an intrusive list of waiters. Entries can be added to or
// removed from the list in O(1) time and with no additional memory
// allocations.
//
// The zero value for waiterList is an empty list ready to use.
//
// To iterate over a list (where l is a waiterList):
//
//	for w := l.Front(); w != nil; w = w.Next() {
//		// do something with w.
//	}
type waiterList struct {
	head *waiter
	tail *waiter
}

// Empty returns true iff the list is empty.
func (l *waiterList) Empty() bool {
	return l.head == nil
}

// Front returns the first element of list l or nil.
func (l *waiterList) Front() *waiter {
	return l.head
}

// Len returns the number of elements in the list.
//
// NOTE: This is an O(n) operation.
func (l *waiterList) Len() (count int) {
	for w := l.Front(); w != nil; w = w.Next() {
		count++
	}
	return count
}

// PushBack inserts the element w at the back of list l.
func (l *waiterList) PushBack(w *waiter) {
	w.SetNext(nil)
	w.SetPrev(l.tail)
	if l.tail != nil {
		l.tail.SetNext(w)
	} else {
		l.head = w
	}
	l.tail = w
}

// Remove removes w from l.
func (l *waiterList) Remove(w *waiter) {
	prev := w.Prev()
	next := w.Next()

	if prev != nil {
		prev.SetNext(next)
	} else if l.head == w {
		l.head = next
	}

	if next != nil {
		next.SetPrev(prev)
	} else if l.tail == w {
		l.tail = prev
	}

	w.SetNext(nil)
	w.SetPrev(nil)
}

// waiterEntry is a default implementation of the linker for waiterList.
// Embedding it in a struct makes that struct linkable.
type waiterEntry struct {
	next *waiter
	prev *waiter
}

// Next returns the entry that follows e in the list.
func (e *waiterEntry) Next() *waiter {
	return e.next
}

// Prev returns the entry that precedes e in the list.
func (e *waiterEntry) Prev() *waiter {
	return e.prev
}

// SetNext assigns 'entry' as the entry that follows e in the list.
func (e *waiterEntry) SetNext(w *waiter) {
	e.next = w
}

// SetPrev assigns 'entry' as the entry that precedes e in the list.
func (e *waiterEntry) SetPrev(w *waiter) {
	e.prev = w
}
