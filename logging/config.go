package logging

import "time"

// Well-known sink names. The router addresses sinks by name and the app
// layer decides which of them a deployment enables.
const (
	SinkConsole = "console"
	SinkJSON    = "json"
	SinkMemory  = "memory"
)

// Config tunes the event router and its sinks.
type Config struct {
	EnabledSinks     []string
	BufferSize       int
	MinimumSeverity  Severity
	Fields           map[string]any
	JSON             JSONConfig
	Console          ConsoleConfig
	DropWarnInterval time.Duration
}

// JSONConfig tunes the newline-delimited file sink. FilePath empty leaves
// the sink disabled.
type JSONConfig struct {
	FilePath      string
	MaxBatch      int
	FlushInterval time.Duration
}

// ConsoleConfig tunes the zerolog console sink.
type ConsoleConfig struct {
	UseColor bool
}

// DefaultConfig enables the console sink only. Event volume here is tick
// driven, so the queue is sized for a few seconds of frames at 60 Hz.
func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{SinkConsole},
		BufferSize:       512,
		MinimumSeverity:  SeverityInfo,
		DropWarnInterval: 5 * time.Second,
		JSON: JSONConfig{
			MaxBatch:      32,
			FlushInterval: 2 * time.Second,
		},
	}
}

// Normalized clamps queue and flush settings back into usable ranges.
func (c Config) Normalized() Config {
	defaults := DefaultConfig()
	normalized := c
	if normalized.BufferSize <= 0 {
		normalized.BufferSize = defaults.BufferSize
	}
	if normalized.DropWarnInterval <= 0 {
		normalized.DropWarnInterval = defaults.DropWarnInterval
	}
	if normalized.JSON.MaxBatch <= 0 {
		normalized.JSON.MaxBatch = defaults.JSON.MaxBatch
	}
	if normalized.JSON.FlushInterval <= 0 {
		normalized.JSON.FlushInterval = defaults.JSON.FlushInterval
	}
	return normalized
}

// HasSink reports whether name is in the enabled set.
func (c Config) HasSink(name string) bool {
	for _, s := range c.EnabledSinks {
		if s == name {
			return true
		}
	}
	return false
}

// CloneFields copies the static fields attached to every routed event.
func (c Config) CloneFields() map[string]any {
	if len(c.Fields) == 0 {
		return nil
	}
	cloned := make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		cloned[k] = v
	}
	return cloned
}
