// Package offsets holds the module-relative offsets of the tracked memory regions.
package offsets

import (
	"fmt"

	"memwatch/process"
)

// Region names. The set is fixed at build time; adding a region means adding it here.
const (
	Base   = "base"
	Camera = "camera"
	Gpose  = "gpose"
	Emote  = "emote"
)

// every required region in load order
var regions = []string{Base, Camera, Gpose, Emote}

// Names returns the required region names in load order.
func Names() []string {
	names := make([]string, len(regions))
	copy(names, regions)
	return names
}

// MissingKeyError reports a required region absent from the settings.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("offset %q is missing from settings", e.Key)
}

// Table is an immutable region -> offset mapping.
type Table struct {
	offsets map[string]process.ProcessMemoryOffset
}

// Load parses every required region from source. Keys that are not region names
// are ignored.
func Load(source map[string]string) (*Table, error) {
	t := &Table{offsets: make(map[string]process.ProcessMemoryOffset, len(regions))}

	for _, name := range regions {
		raw, ok := source[name]
		if !ok {
			return nil, &MissingKeyError{Key: name}
		}

		off, err := process.ParseOffset(raw)
		if err != nil {
			return nil, fmt.Errorf("offset %q: %w", name, err)
		}
		t.offsets[name] = off
	}

	return t, nil
}

// Get returns the offset of a region.
func (t *Table) Get(name string) (process.ProcessMemoryOffset, bool) {
	off, ok := t.offsets[name]
	return off, ok
}

// Names returns the region names in load order.
func (t *Table) Names() []string {
	return Names()
}

func (t *Table) Len() int {
	return len(t.offsets)
}
