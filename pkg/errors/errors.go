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

// Package errors holds the standardized error definition for gmon.
package errors

// Kind classifies an Error. Kinds mirror the exception classes that guest
// code observes when a monitor operation fails.
type Kind int

// Error kinds.
const (
	// IllegalMonitorState indicates that the calling thread does not own a
	// monitor that the operation requires it to own.
	IllegalMonitorState Kind = iota + 1

	// IllegalArgument indicates a malformed argument, such as a negative
	// timeout.
	IllegalArgument

	// GuestInterrupted indicates that an interruptible operation was
	// abandoned because the calling guest thread was interrupted.
	GuestInterrupted

	// UnsupportedOperation indicates use of an entry point that the monitor
	// deliberately does not provide.
	UnsupportedOperation

	// NoSuchThread indicates that a thread lookup failed.
	NoSuchThread
)

// String implements fmt.Stringer.String.
func (k Kind) String() string {
	switch k {
	case IllegalMonitorState:
		return "IllegalMonitorState"
	case IllegalArgument:
		return "IllegalArgument"
	case GuestInterrupted:
		return "GuestInterrupted"
	case UnsupportedOperation:
		return "UnsupportedOperation"
	case NoSuchThread:
		return "NoSuchThread"
	default:
		return "Unknown"
	}
}

// Error represents a monitor failure with a descriptive message.
type Error struct {
	kind    Kind
	message string
}

// New creates a new *Error.
func New(kind Kind, message string) *Error {
	return &Error{
		kind:    kind,
		message: message,
	}
}

// Error implements error.Error.
func (e *Error) Error() string { return e.message }

// Kind returns the underlying Kind value.
func (e *Error) Kind() Kind { return e.kind }
