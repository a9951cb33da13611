package process

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// AddressSeparator joins the parts of an address string.
const AddressSeparator = ","

// ParseAddressString splits an address string such as "140001A00,18,2C" into its
// base address and the offsets that follow it.
func ParseAddressString(desc string) (ProcessMemoryAddress, []ProcessMemorySize, error) {
	parts := strings.Split(strings.TrimSuffix(strings.TrimSpace(desc), AddressSeparator), AddressSeparator)

	base, err := ParseHex(parts[0])
	if err != nil {
		return 0, nil, fmt.Errorf("address string %q: base: %w", desc, err)
	}

	offsets := make([]ProcessMemorySize, 0, len(parts)-1)
	for i, part := range parts[1:] {
		off, err := ParseHex(part)
		if err != nil {
			return 0, nil, fmt.Errorf("address string %q: offset %d: %w", desc, i, err)
		}
		offsets = append(offsets, ProcessMemorySize(off))
	}

	return base, offsets, nil
}

// ResolvePointerChain walks pointer fields at all offsets except the last, which is
// treated as a raw byte offset into the final struct, and returns that address.
//
// Example:
//
//	// base -> [ +0 ]ptrA -> [ +24 ]ptrB
//	// final address is ptrB + 504
//	addr, err := process.ResolvePointerChain(proc, base, 0, 24, 504)
func ResolvePointerChain(proc Process, base ProcessMemoryAddress, offsets ...ProcessMemorySize) (ProcessMemoryAddress, error) {
	if len(offsets) == 0 {
		return base, nil
	}

	current := base

	// Deref each offset except the last
	for i := 0; i < len(offsets)-1; i++ {
		addr, err := AddSize(current, offsets[i])
		if err != nil {
			return 0, fmt.Errorf("pointer chain step %d: %w", i, err)
		}

		ptr, err := readPointer(proc, addr)
		if err != nil {
			return 0, fmt.Errorf("pointer chain step %d (addr=%#x): %w", i, uint64(addr), err)
		}
		if ptr == 0 {
			return 0, fmt.Errorf("pointer chain: NULL pointer at step %d (addr=%#x + off=%#x): %w",
				i, uint64(current), uint64(offsets[i]), ErrInvalidPointer)
		}
		if !proc.IsValidAddress(ptr) {
			return 0, fmt.Errorf("pointer chain: pointer %#x at step %d is not mapped: %w",
				uint64(ptr), i, ErrInvalidPointer)
		}
		current = ptr
	}

	// Last offset is a raw byte offset into `current` (no deref)
	final, err := AddSize(current, offsets[len(offsets)-1])
	if err != nil {
		return 0, fmt.Errorf("pointer chain final offset: %w", err)
	}
	return final, nil
}

// ResolveAddressString parses desc and walks its pointer chain.
func ResolveAddressString(proc Process, desc string) (ProcessMemoryAddress, error) {
	base, offsets, err := ParseAddressString(desc)
	if err != nil {
		return 0, err
	}
	return ResolvePointerChain(proc, base, offsets...)
}

// pointers are 8 bytes, little endian
func readPointer(proc Process, addr ProcessMemoryAddress) (ProcessMemoryAddress, error) {
	data, err := proc.ReadMemory(addr, 8)
	if err != nil {
		return 0, err
	}
	if len(data) < 8 {
		return 0, ErrInvalidPointer
	}
	return ProcessMemoryAddress(binary.LittleEndian.Uint64(data)), nil
}
