// Package process provides interfaces and types for attaching to a process and
// doing address arithmetic over its memory.
package process

import (
	"errors"
	"fmt"
)

// This file holds the error kinds shared by the platform implementations.
// The rest of the API surface lives in:
// - types.go: ProcessID, ProcessInfo
// - process_state.go: ProcessState constants
// - memory_types.go: ProcessMemoryAddress, ProcessMemorySize, ProcessMemoryOffset, hex codec
// - process_interface.go: Process, Session interfaces
// - process_finder.go: ProcessFinder interface
// - process_helper.go: ProcessOpener interface
// - path.go: address strings and pointer chains

var (
	// ErrAddressNotMapped is returned when a memory address is not found within any mapped region of a process.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// before the process has been successfully opened or after it has been closed.
	ErrProcessNotOpen = errors.New("process not open")

	// ErrProcessExited is returned once the attached process has terminated.
	// A session never recovers from it; a new one has to be opened.
	ErrProcessExited = errors.New("process has exited")

	// ErrProcessNotFound is returned when no process matches a lookup.
	ErrProcessNotFound = errors.New("process not found")

	ErrInvalidPointer = errors.New("invalid pointer read")
)

// FormatError reports text that is not valid hexadecimal.
type FormatError struct {
	Input string
	Err   error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid hex value %q: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("invalid hex value %q", e.Input)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// OverflowError reports address arithmetic leaving the 64-bit address space.
// Delta is set by Add, Size by AddSize.
type OverflowError struct {
	Address ProcessMemoryAddress
	Delta   ProcessMemoryOffset
	Size    ProcessMemorySize
}

func (e *OverflowError) Error() string {
	if e.Size != 0 {
		return fmt.Sprintf("address overflow: %s + %#x", e.Address.ToString(), uint64(e.Size))
	}
	return fmt.Sprintf("address overflow: %s %+d", e.Address.ToString(), int64(e.Delta))
}

// OpenError reports a failure to attach to a process.
type OpenError struct {
	PID ProcessID
	Err error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open process %d: %v", e.PID, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}
