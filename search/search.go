// Package search walks the pointer graph below an address looking for a byte
// pattern, and reports the offset paths that reach it.
package search

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"

	"memwatch/process"
)

// Searcher holds configuration for the search
type Searcher struct {
	MaxStructSize uint
	MaxDepth      int
	MinAlignment  uint
	MaxResults    int
}

// Option is a function that configures a Searcher
type Option func(*Searcher)

func WithMaxStructSize(size uint) Option {
	return func(s *Searcher) {
		s.MaxStructSize = size
	}
}

func WithMaxDepth(depth int) Option {
	return func(s *Searcher) {
		s.MaxDepth = depth
	}
}

func WithMinAlignment(align uint) Option {
	return func(s *Searcher) {
		s.MinAlignment = align
	}
}

func WithMaxResults(n int) Option {
	return func(s *Searcher) {
		s.MaxResults = n
	}
}

// Result is one path to a match. Every offset but the last is a pointer field,
// the same shape process.ResolvePointerChain takes.
type Result struct {
	Path []process.ProcessMemorySize
}

// String renders the path as hex offsets joined by process.AddressSeparator.
func (r Result) String() string {
	parts := make([]string, len(r.Path))
	for i, off := range r.Path {
		parts[i] = process.FormatHex(process.ProcessMemoryAddress(off))
	}
	return strings.Join(parts, process.AddressSeparator)
}

// Search looks for pattern in the MaxStructSize bytes at base and, through
// 8-byte aligned pointer fields, in every struct reachable within MaxDepth hops.
func Search(proc process.Process, base process.ProcessMemoryAddress, pattern []byte, options ...Option) ([]Result, error) {
	s := &Searcher{
		MaxStructSize: 256,
		MaxDepth:      3,
		MinAlignment:  4,
		MaxResults:    100,
	}
	for _, opt := range options {
		opt(s)
	}

	if len(pattern) == 0 {
		return nil, errors.New("search: empty pattern")
	}
	if s.MinAlignment == 0 {
		s.MinAlignment = 1
	}

	var results []Result
	visited := make(map[process.ProcessMemoryAddress]bool)

	full := func() bool {
		return s.MaxResults > 0 && len(results) >= s.MaxResults
	}

	var walk func(addr process.ProcessMemoryAddress, depth int, path []process.ProcessMemorySize)
	walk = func(addr process.ProcessMemoryAddress, depth int, path []process.ProcessMemorySize) {
		if depth > s.MaxDepth || visited[addr] || full() {
			return
		}
		visited[addr] = true

		data, err := proc.ReadMemory(addr, process.ProcessMemorySize(s.MaxStructSize))
		if err != nil {
			return
		}

		for offset := uint(0); offset < uint(len(data)); offset += s.MinAlignment {
			if full() {
				return
			}

			if bytes.HasPrefix(data[offset:], pattern) {
				results = append(results, Result{Path: extend(path, offset)})
			}

			if offset%8 != 0 || depth >= s.MaxDepth || offset+8 > uint(len(data)) {
				continue
			}
			ptr := process.ProcessMemoryAddress(binary.LittleEndian.Uint64(data[offset:]))
			if ptr != 0 && proc.IsValidAddress(ptr) {
				walk(ptr, depth+1, extend(path, offset))
			}
		}
	}

	walk(base, 0, nil)
	return results, nil
}

func extend(path []process.ProcessMemorySize, offset uint) []process.ProcessMemorySize {
	out := make([]process.ProcessMemorySize, len(path), len(path)+1)
	copy(out, path)
	return append(out, process.ProcessMemorySize(offset))
}
