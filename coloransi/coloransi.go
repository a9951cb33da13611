// Package coloransi renders console output with ANSI colors that can be
// switched off when stdout is not a terminal.
package coloransi

import (
	"fmt"
	"strings"
)

// ColorCode is either a basic ANSI color (30-37, 90-97) or a 24 bit RGB value
// stored in the upper three bytes.
type ColorCode uint32

// ANSI color codes
const (
	Black   ColorCode = 30
	Red     ColorCode = 31
	Green   ColorCode = 32
	Yellow  ColorCode = 33
	Blue    ColorCode = 34
	Magenta ColorCode = 35
	Cyan    ColorCode = 36
	White   ColorCode = 37

	BrightBlack ColorCode = Black + 60
	BrightRed   ColorCode = Red + 60
	BrightGreen ColorCode = Green + 60

	backgroundOffset ColorCode = 10
	rgbMask          ColorCode = 0xFFFFFF00
)

// RGB creates a ColorCode from RGB values
func RGB(r, g, b uint8) ColorCode {
	return ColorCode(uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8)
}

var Orange = RGB(255, 140, 0)

// IsRGB checks if the ColorCode represents an RGB color
func (c ColorCode) IsRGB() bool {
	return c&rgbMask != 0
}

func (c ColorCode) foreground() string {
	if c.IsRGB() {
		return fmt.Sprintf("\033[38;2;%d;%d;%dm", (c>>24)&0xFF, (c>>16)&0xFF, (c>>8)&0xFF)
	}
	return fmt.Sprintf("\033[%dm", c)
}

func (c ColorCode) background() string {
	if c.IsRGB() {
		return fmt.Sprintf("\033[48;2;%d;%d;%dm", (c>>24)&0xFF, (c>>16)&0xFF, (c>>8)&0xFF)
	}
	return fmt.Sprintf("\033[%dm", c+backgroundOffset)
}

const reset = "\033[0m"

// Palette applies colors when Enabled and passes text through otherwise.
type Palette struct {
	Enabled bool
}

// Foreground formats v with a foreground color.
func (p Palette) Foreground(fg ColorCode, v ...interface{}) string {
	text := join(v)
	if !p.Enabled {
		return text
	}
	return fg.foreground() + text + reset
}

// Color formats v with foreground and background colors.
func (p Palette) Color(fg, bg ColorCode, v ...interface{}) string {
	text := join(v)
	if !p.Enabled {
		return text
	}
	return fg.foreground() + bg.background() + text + reset
}

func join(v []interface{}) string {
	args := make([]string, len(v))
	for i, arg := range v {
		args[i] = fmt.Sprint(arg)
	}
	return strings.Join(args, " ")
}
