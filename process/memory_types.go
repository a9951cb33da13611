package process

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ProcessMemoryAddress represents a memory address within a process
type ProcessMemoryAddress uint64

func (pma ProcessMemoryAddress) ToString() string {
	return fmt.Sprintf("0x%X", uint64(pma))
}

// Hex returns the canonical form used in configuration and address strings.
func (pma ProcessMemoryAddress) Hex() string {
	return FormatHex(pma)
}

// ProcessMemorySize represents a size of memory region
type ProcessMemorySize uint

func (pms ProcessMemorySize) ToString() string {
	return fmt.Sprintf("%d bytes", uint(pms))
}

// ProcessMemoryOffset is a signed displacement relative to a module base
type ProcessMemoryOffset int64

func (pmo ProcessMemoryOffset) ToString() string {
	if pmo < 0 {
		return fmt.Sprintf("-0x%X", offsetMagnitude(pmo))
	}
	return fmt.Sprintf("0x%X", uint64(pmo))
}

// ParseHex parses an address written as hexadecimal digits.
// An optional 0x prefix is accepted, nothing else is.
func ParseHex(s string) (ProcessMemoryAddress, error) {
	digits := trimHexPrefix(strings.TrimSpace(s))
	if digits == "" {
		return 0, &FormatError{Input: s}
	}
	for i := 0; i < len(digits); i++ {
		if !isHexDigit(digits[i]) {
			return 0, &FormatError{Input: s}
		}
	}

	v, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, &FormatError{Input: s, Err: err}
	}
	return ProcessMemoryAddress(v), nil
}

// FormatHex formats an address as uppercase hex without prefix or padding.
func FormatHex(a ProcessMemoryAddress) string {
	return strings.ToUpper(strconv.FormatUint(uint64(a), 16))
}

// ParseOffset parses a signed hex offset such as "1A0" or "-10".
func ParseOffset(s string) (ProcessMemoryOffset, error) {
	t := strings.TrimSpace(s)
	neg := strings.HasPrefix(t, "-")
	if neg {
		t = t[1:]
	}

	mag, err := ParseHex(t)
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			return 0, &FormatError{Input: s, Err: fe.Err}
		}
		return 0, err
	}

	if neg {
		if uint64(mag) > uint64(math.MaxInt64)+1 {
			return 0, &FormatError{Input: s, Err: strconv.ErrRange}
		}
		return ProcessMemoryOffset(-int64(mag-1) - 1), nil
	}
	if uint64(mag) > math.MaxInt64 {
		return 0, &FormatError{Input: s, Err: strconv.ErrRange}
	}
	return ProcessMemoryOffset(mag), nil
}

// Add applies delta to a. The result must stay inside the 64-bit address space.
func Add(a ProcessMemoryAddress, delta ProcessMemoryOffset) (ProcessMemoryAddress, error) {
	if delta >= 0 {
		r := a + ProcessMemoryAddress(delta)
		if r < a {
			return 0, &OverflowError{Address: a, Delta: delta}
		}
		return r, nil
	}

	mag := ProcessMemoryAddress(offsetMagnitude(delta))
	if mag > a {
		return 0, &OverflowError{Address: a, Delta: delta}
	}
	return a - mag, nil
}

// AddSize advances a by n bytes. The result must stay inside the 64-bit address space.
func AddSize(a ProcessMemoryAddress, n ProcessMemorySize) (ProcessMemoryAddress, error) {
	r := a + ProcessMemoryAddress(n)
	if r < a {
		return 0, &OverflowError{Address: a, Size: n}
	}
	return r, nil
}

// AddHex adds two hex strings and returns the sum in canonical form.
func AddHex(a, b string) (string, error) {
	x, err := ParseHex(a)
	if err != nil {
		return "", err
	}
	y, err := ParseOffset(b)
	if err != nil {
		return "", err
	}
	r, err := Add(x, y)
	if err != nil {
		return "", err
	}
	return FormatHex(r), nil
}

// offsetMagnitude returns |o| without overflowing on math.MinInt64.
func offsetMagnitude(o ProcessMemoryOffset) uint64 {
	if o >= 0 {
		return uint64(o)
	}
	return uint64(-(o + 1)) + 1
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
