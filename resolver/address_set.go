package resolver

import (
	"memwatch/process"
)

var unresolved = &AddressSet{}

// AddressSet is a point-in-time view of resolved region addresses. Values are
// never mutated after publication.
type AddressSet struct {
	moduleBase process.ProcessMemoryAddress
	addrs      map[string]process.ProcessMemoryAddress
	names      []string
	generation uint64
	resolved   bool
}

// Resolved is false until the first successful recompute.
func (s *AddressSet) Resolved() bool {
	return s.resolved
}

// Generation counts successful recomputes; 0 means unresolved.
func (s *AddressSet) Generation() uint64 {
	return s.generation
}

// ModuleBase returns the module base the set was computed from.
func (s *AddressSet) ModuleBase() process.ProcessMemoryAddress {
	return s.moduleBase
}

// Get returns the absolute address of a region.
func (s *AddressSet) Get(name string) (process.ProcessMemoryAddress, bool) {
	addr, ok := s.addrs[name]
	return addr, ok
}

// Hex returns the address of a region in canonical hex, "" when unknown.
func (s *AddressSet) Hex(name string) string {
	addr, ok := s.addrs[name]
	if !ok {
		return ""
	}
	return process.FormatHex(addr)
}

func (s *AddressSet) mustHex(name string) string {
	if h := s.Hex(name); h != "" {
		return h
	}
	return "?"
}

// Names returns the region names in table order.
func (s *AddressSet) Names() []string {
	names := make([]string, len(s.names))
	copy(names, s.names)
	return names
}

// Map returns a copy of the addresses keyed by region.
func (s *AddressSet) Map() map[string]process.ProcessMemoryAddress {
	out := make(map[string]process.ProcessMemoryAddress, len(s.addrs))
	for k, v := range s.addrs {
		out[k] = v
	}
	return out
}
