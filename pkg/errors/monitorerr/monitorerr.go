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

// Package monitorerr contains the errors returned by guest monitors,
// exported as error interface pointers. This allows for fast comparison and
// return operations, comparable to unix.Errno constants.
package monitorerr

import (
	"errors"
	"fmt"

	gerrors "gvisor.dev/gmon/pkg/errors"
)

// The following errors are returned by monitor operations. They are compared
// by identity; wrapping callers should use Equals or errors.Is.
var (
	noError *gerrors.Error = nil

	// ErrIllegalMonitorState is returned by Unlock and Await when the calling
	// thread does not own the monitor.
	ErrIllegalMonitorState = gerrors.New(gerrors.IllegalMonitorState, "current thread is not owner")

	// ErrIllegalArgument is returned for a negative timeout.
	ErrIllegalArgument = gerrors.New(gerrors.IllegalArgument, "timeout value is negative")

	// ErrGuestInterrupted is returned by interruptible operations when the
	// calling thread is guest-interrupted before or while blocking.
	ErrGuestInterrupted = gerrors.New(gerrors.GuestInterrupted, "guest thread interrupted")

	// ErrUnsupportedOperation is returned by entry points that monitors do
	// not support.
	ErrUnsupportedOperation = gerrors.New(gerrors.UnsupportedOperation, "operation not supported by guest monitors")

	// ErrNoSuchThread is returned when a thread ID does not name a live
	// guest thread.
	ErrNoSuchThread = gerrors.New(gerrors.NoSuchThread, "no such guest thread")
)

// ToError converts an *errors.Error to an error, preserving nil.
func ToError(err *gerrors.Error) error {
	if err == noError {
		return nil
	}
	return err
}

// Equals checks if an error is the given *errors.Error, looking through
// wrapped errors.
func Equals(e *gerrors.Error, err error) bool {
	if e == nil {
		return err == nil
	}
	return errors.Is(err, e)
}

// KindOf returns the Kind of err if err is or wraps an *errors.Error.
func KindOf(err error) (gerrors.Kind, bool) {
	var e *gerrors.Error
	if errors.As(err, &e) {
		return e.Kind(), true
	}
	return 0, false
}

// Wrap annotates e with a formatted detail message. The result still
// satisfies Equals(e, ...).
func Wrap(e *gerrors.Error, format string, v ...any) error {
	return fmt.Errorf("%w: %s", e, fmt.Sprintf(format, v...))
}
