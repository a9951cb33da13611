// Package config handles runtime configuration and the offset settings source.
package config

import (
	"time"

	"memwatch/poller"
)

const (
	// DefaultProcessName is the DirectX 11 game client.
	DefaultProcessName = "ffxiv_dx11"

	// DefaultSettings is read from the working directory unless overridden.
	DefaultSettings = "Settings.xml"
)

// Config holds runtime wiring options for building a session.
type Config struct {
	ProcessName string        // target image name, ".exe" optional
	PID         int           // attach to this PID instead of looking up ProcessName
	Settings    string        // offsets file path or http(s) URL
	Interval    time.Duration // poll interval
}

// Default returns the configuration used when no flags are given.
func Default() Config {
	return Config{
		ProcessName: DefaultProcessName,
		Settings:    DefaultSettings,
		Interval:    poller.DefaultInterval,
	}
}

// WithDefaults fills zero fields from Default.
func (c Config) WithDefaults() Config {
	d := Default()
	if c.ProcessName == "" {
		c.ProcessName = d.ProcessName
	}
	if c.Settings == "" {
		c.Settings = d.Settings
	}
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	return c
}
