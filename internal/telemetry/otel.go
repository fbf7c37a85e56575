package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/metric"
)

// WrapMeter adapts an OpenTelemetry meter into the Metrics interface.
// Add-keys become counters, Store-keys become gauges; instruments are created
// lazily the first time a key is reported and cached after.
func WrapMeter(meter metric.Meter, logger Logger) Metrics {
	return &otelMetrics{
		meter:    meter,
		logger:   logger,
		counters: make(map[string]metric.Int64Counter),
		gauges:   make(map[string]metric.Int64Gauge),
	}
}

type otelMetrics struct {
	meter  metric.Meter
	logger Logger

	mu       sync.Mutex
	counters map[string]metric.Int64Counter
	gauges   map[string]metric.Int64Gauge
}

func (m *otelMetrics) Add(key string, delta uint64) {
	if m == nil || m.meter == nil || key == "" {
		return
	}
	counter := m.counter(key)
	if counter == nil {
		return
	}
	counter.Add(context.Background(), int64(delta))
}

func (m *otelMetrics) Store(key string, value uint64) {
	if m == nil || m.meter == nil || key == "" {
		return
	}
	gauge := m.gauge(key)
	if gauge == nil {
		return
	}
	gauge.Record(context.Background(), int64(value))
}

func (m *otelMetrics) counter(key string) metric.Int64Counter {
	m.mu.Lock()
	defer m.mu.Unlock()
	if counter, ok := m.counters[key]; ok {
		return counter
	}
	counter, err := m.meter.Int64Counter(key)
	if err != nil {
		if m.logger != nil {
			m.logger.Printf("telemetry: failed to create counter %s: %v", key, err)
		}
		return nil
	}
	m.counters[key] = counter
	return counter
}

func (m *otelMetrics) gauge(key string) metric.Int64Gauge {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gauge, ok := m.gauges[key]; ok {
		return gauge
	}
	gauge, err := m.meter.Int64Gauge(key)
	if err != nil {
		if m.logger != nil {
			m.logger.Printf("telemetry: failed to create gauge %s: %v", key, err)
		}
		return nil
	}
	m.gauges[key] = gauge
	return gauge
}
