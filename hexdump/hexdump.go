// Package hexdump formats process memory for the console.
package hexdump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"memwatch/coloransi"
	"memwatch/process/memory_map"
)

// Options controls a dump.
type Options struct {
	// BytesPerLine defaults to 16
	BytesPerLine int

	// Address of data[0], printed in the offset column
	Address uint64

	// MaxLines limits the output, 0 for no limit
	MaxLines int

	// Highlight marks every occurrence of the pattern
	Highlight []byte

	// MemoryMap, when set, annotates lines whose first quadword points into a mapped region
	MemoryMap []memory_map.MemoryMapItem

	Palette coloransi.Palette
}

// Dump returns the dump as a string.
func Dump(data []byte, opts Options) string {
	var buf bytes.Buffer
	Write(&buf, data, opts)
	return buf.String()
}

// Write writes one line per BytesPerLine bytes:
//
//	0000000140001000  4d 5a 90 00 03 00 00 00 | 04 00 00 00 ff ff 00 00 | MZ...... ........
func Write(w io.Writer, data []byte, opts Options) {
	if opts.BytesPerLine <= 0 {
		opts.BytesPerLine = 16
	}

	marks := highlightMask(data, opts.Highlight)

	lines := 0
	for off := 0; off < len(data); off += opts.BytesPerLine {
		if opts.MaxLines > 0 && lines >= opts.MaxLines {
			fmt.Fprintf(w, "... %d more bytes\n", len(data)-off)
			return
		}

		end := off + opts.BytesPerLine
		if end > len(data) {
			end = len(data)
		}
		writeLine(w, data[off:end], marks[off:end], opts.Address+uint64(off), opts)
		lines++
	}
}

func writeLine(w io.Writer, line []byte, marks []bool, addr uint64, opts Options) {
	p := opts.Palette
	half := opts.BytesPerLine / 2

	fmt.Fprint(w, p.Foreground(coloransi.Cyan, fmt.Sprintf("%016X", addr)), "  ")

	for i := 0; i < opts.BytesPerLine; i++ {
		if i > 0 {
			if i == half && opts.BytesPerLine >= 8 {
				fmt.Fprint(w, " | ")
			} else {
				fmt.Fprint(w, " ")
			}
		}
		if i >= len(line) {
			fmt.Fprint(w, "  ")
			continue
		}
		fmt.Fprint(w, colorByte(p, line[i], marks[i], fmt.Sprintf("%02x", line[i])))
	}

	fmt.Fprint(w, " | ")
	for i, b := range line {
		if i == half && opts.BytesPerLine >= 8 {
			fmt.Fprint(w, " ")
		}
		c := "."
		if b >= 0x20 && b < 0x7f {
			c = string(rune(b))
		}
		fmt.Fprint(w, colorByte(p, b, marks[i], c))
	}

	if len(opts.MemoryMap) > 0 && len(line) >= 8 {
		ptr := binary.LittleEndian.Uint64(line[:8])
		if region := memory_map.FindRegion(ptr, opts.MemoryMap); region != nil {
			fmt.Fprint(w, "  -> ", p.Foreground(coloransi.Yellow, fmt.Sprintf("0x%X", ptr)))
			if region.Path != "" {
				fmt.Fprint(w, " ", region.Path)
			}
		}
	}

	fmt.Fprintln(w)
}

func colorByte(p coloransi.Palette, b byte, marked bool, text string) string {
	switch {
	case marked:
		return p.Color(coloransi.Black, coloransi.Orange, text)
	case b == 0:
		return p.Foreground(coloransi.BrightBlack, text)
	default:
		return p.Foreground(coloransi.Green, text)
	}
}

// highlightMask flags every byte covered by an occurrence of pattern.
func highlightMask(data, pattern []byte) []bool {
	marks := make([]bool, len(data))
	if len(pattern) == 0 {
		return marks
	}
	for i := 0; i+len(pattern) <= len(data); i++ {
		if bytes.Equal(data[i:i+len(pattern)], pattern) {
			for j := range pattern {
				marks[i+j] = true
			}
		}
	}
	return marks
}
