// Package session wires settings, the attached process, the resolver, the
// notification bus and the polling loop into one unit.
package session

import (
	"context"
	"fmt"

	"memwatch/config"
	"memwatch/mediator"
	"memwatch/offsets"
	"memwatch/poller"
	"memwatch/process"
	"memwatch/resolver"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// Session is an attached process plus everything watching it.
type Session struct {
	proc     process.Process
	table    *offsets.Table
	resolver *resolver.Resolver
	bus      *mediator.Mediator
	loop     *poller.Loop
	log      *logger.Logger
}

// Open loads offsets from cfg.Settings and attaches to the target process.
func Open(ctx context.Context, opener process.ProcessOpener, cfg config.Config) (*Session, error) {
	cfg = cfg.WithDefaults()
	return OpenWithSource(ctx, opener, config.NewSource(cfg.Settings), cfg)
}

// OpenWithSource is Open with an explicit settings source.
func OpenWithSource(ctx context.Context, opener process.ProcessOpener, src config.Source, cfg config.Config) (*Session, error) {
	cfg = cfg.WithDefaults()
	log := logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "session"))

	raw, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	table, err := offsets.Load(raw)
	if err != nil {
		return nil, fmt.Errorf("load offsets: %w", err)
	}

	var proc process.Process
	if cfg.PID > 0 {
		proc, err = opener.NewWithPID(process.ProcessID(cfg.PID))
	} else {
		proc, err = opener.OpenProcessByName(cfg.ProcessName)
	}
	if err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}

	log.Infoln("Attached to pid", proc.GetPID(), "with", table.Len(), "offsets")

	res := resolver.New(proc, table)
	bus := mediator.New()

	return &Session{
		proc:     proc,
		table:    table,
		resolver: res,
		bus:      bus,
		loop:     poller.New(res, bus, cfg.Interval),
		log:      log,
	}, nil
}

// Start resolves once right away and then hands off to the polling loop.
func (s *Session) Start(ctx context.Context) error {
	if err := s.resolver.Recompute(); err != nil {
		s.log.Warn("Initial resolve failed: ", err)
	}
	return s.loop.Start(ctx)
}

// Close stops the loop and releases the process handle.
func (s *Session) Close() error {
	s.loop.Stop()
	return s.proc.Close()
}

// Done is closed when the polling loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.loop.Done()
}

func (s *Session) Resolver() *resolver.Resolver { return s.resolver }
func (s *Session) Mediator() *mediator.Mediator { return s.bus }
func (s *Session) Process() process.Process     { return s.proc }
func (s *Session) Offsets() *offsets.Table      { return s.table }
func (s *Session) Loop() *poller.Loop           { return s.loop }
