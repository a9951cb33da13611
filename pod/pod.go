// Package pod reads and writes plain-old-data values in process memory using
// their in-memory layout. T must not contain Go pointers.
package pod

import (
	"fmt"
	"unsafe"

	"memwatch/process"
)

func SizeOf[T any]() process.ProcessMemorySize {
	var t T
	return process.ProcessMemorySize(unsafe.Sizeof(t))
}

// Decode copies the first SizeOf[T] bytes of data into a T.
func Decode[T any](data []byte) (T, error) {
	var v T
	size := int(unsafe.Sizeof(v))
	if len(data) < size {
		return v, fmt.Errorf("pod: need %d bytes for %T, have %d", size, v, len(data))
	}
	if size == 0 {
		return v, nil
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&v)), size), data)
	return v, nil
}

// Encode returns the raw bytes of v.
func Encode[T any](v T) []byte {
	size := int(unsafe.Sizeof(v))
	out := make([]byte, size)
	if size > 0 {
		copy(out, unsafe.Slice((*byte)(unsafe.Pointer(&v)), size))
	}
	return out
}

func ReadT[T any](proc process.Process, addr process.ProcessMemoryAddress) (T, error) {
	data, err := proc.ReadMemory(addr, SizeOf[T]())
	if err != nil {
		return *new(T), err
	}
	return Decode[T](data)
}

func WriteT[T any](proc process.Process, addr process.ProcessMemoryAddress, v T) error {
	return proc.WriteMemory(addr, Encode(v))
}
