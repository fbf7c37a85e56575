package telemetry

import (
	"log"

	"github.com/rs/zerolog"

	"nightdrive/server/logging"
)

// Logger exposes the logging capabilities required by server components.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts functions into the Logger interface.
type LoggerFunc func(format string, args ...any)

// Printf implements Logger for LoggerFunc.
func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogger adapts a standard library logger to the Logger interface.
func WrapLogger(logger *log.Logger) Logger {
	return &loggerAdapter{logger: logger}
}

type loggerAdapter struct {
	logger *log.Logger
}

func (l *loggerAdapter) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}

// WrapZerolog adapts a zerolog logger to the Logger interface so components
// written against Printf-style logging stay structured.
func WrapZerolog(logger zerolog.Logger) Logger {
	return &zerologAdapter{logger: logger}
}

type zerologAdapter struct {
	logger zerolog.Logger
}

func (l *zerologAdapter) Printf(format string, args ...any) {
	if l == nil {
		return
	}
	l.logger.Info().Msgf(format, args...)
}

// Metrics exposes the telemetry methods required by server components.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

// WrapMetrics adapts the logging metrics store into the Metrics interface.
func WrapMetrics(metrics *logging.Metrics) Metrics {
	return &metricsAdapter{metrics: metrics}
}

type metricsAdapter struct {
	metrics *logging.Metrics
}

func (m *metricsAdapter) Add(key string, delta uint64) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.TelemetryAdd(key, delta)
}

func (m *metricsAdapter) Store(key string, value uint64) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.TelemetryStore(key, value)
}

// Fanout returns a Metrics that reports into every provided sink, skipping
// nils. Used to feed the diagnostics store and the otel exporter at once.
func Fanout(sinks ...Metrics) Metrics {
	var active []Metrics
	for _, sink := range sinks {
		if sink != nil {
			active = append(active, sink)
		}
	}
	return fanoutMetrics(active)
}

type fanoutMetrics []Metrics

func (f fanoutMetrics) Add(key string, delta uint64) {
	for _, sink := range f {
		sink.Add(key, delta)
	}
}

func (f fanoutMetrics) Store(key string, value uint64) {
	for _, sink := range f {
		sink.Store(key, value)
	}
}
