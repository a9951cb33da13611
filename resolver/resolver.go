// Package resolver turns module-relative offsets into absolute addresses inside
// the attached process and publishes them to readers on other goroutines.
package resolver

import (
	"fmt"
	"strings"
	"sync/atomic"

	"memwatch/offsets"
	"memwatch/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// Resolver owns the resolved address set of one session. Recompute is called by
// a single writer; IsReady and Snapshot are safe from any goroutine.
type Resolver struct {
	session  process.Session
	offsets  *offsets.Table
	resolved atomic.Pointer[AddressSet]
	log      *logger.Logger
}

// New creates a resolver with an unresolved address set.
func New(session process.Session, table *offsets.Table) *Resolver {
	r := &Resolver{
		session: session,
		offsets: table,
		log:     logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "resolver")),
	}
	r.resolved.Store(unresolved)
	return r
}

// IsReady reports whether the attached process is still running.
func (r *Resolver) IsReady() bool {
	return !r.session.HasExited()
}

// Recompute resolves every region against the current module base and swaps the
// result in. On error the previous set stays published.
func (r *Resolver) Recompute() error {
	if !r.IsReady() {
		return process.ErrProcessExited
	}

	base, err := r.session.ModuleBaseAddress()
	if err != nil {
		return fmt.Errorf("module base: %w", err)
	}

	names := r.offsets.Names()
	addrs := make(map[string]process.ProcessMemoryAddress, len(names))
	for _, name := range names {
		off, _ := r.offsets.Get(name)
		addr, err := process.Add(base, off)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", name, err)
		}
		addrs[name] = addr
	}

	next := &AddressSet{
		moduleBase: base,
		addrs:      addrs,
		names:      names,
		generation: r.resolved.Load().generation + 1,
		resolved:   true,
	}

	if prev := r.resolved.Swap(next); prev.moduleBase != base {
		r.log.Debugln("Module base", base.ToString(), "camera at", next.mustHex(offsets.Camera))
	}
	return nil
}

// Snapshot returns the current set. It is immutable and never blocks.
func (r *Resolver) Snapshot() *AddressSet {
	return r.resolved.Load()
}

// Offsets returns the table the resolver was built with.
func (r *Resolver) Offsets() *offsets.Table {
	return r.offsets
}

// Concat joins address string parts with the separator understood by
// process.ParseAddressString. Trailing separators are dropped.
func Concat(parts ...string) string {
	var sb strings.Builder
	for _, part := range parts {
		sb.WriteString(part)
		sb.WriteString(process.AddressSeparator)
	}
	return strings.TrimRight(sb.String(), process.AddressSeparator)
}
