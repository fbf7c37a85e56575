package telemetry

import (
	"testing"

	"nightdrive/server/logging"
)

func TestWrapMetricsReportsIntoStore(t *testing.T) {
	store := logging.NewMetrics()
	metrics := WrapMetrics(store)

	metrics.Add("frames", 2)
	metrics.Add("frames", 3)
	metrics.Store("speed", 88)

	if got := store.TelemetryValue("frames"); got != 5 {
		t.Fatalf("expected counter 5, got %d", got)
	}
	if got := store.TelemetryValue("speed"); got != 88 {
		t.Fatalf("expected gauge 88, got %d", got)
	}
}

func TestWrapMetricsToleratesNilStore(t *testing.T) {
	metrics := WrapMetrics(nil)
	metrics.Add("frames", 1)
	metrics.Store("speed", 1)
}

func TestFanoutSkipsNilSinks(t *testing.T) {
	store := logging.NewMetrics()
	metrics := Fanout(nil, WrapMetrics(store), nil)

	metrics.Add("ticks", 4)
	if got := store.TelemetryValue("ticks"); got != 4 {
		t.Fatalf("expected 4, got %d", got)
	}
}

func TestLoggerFuncForwarding(t *testing.T) {
	var captured string
	logger := LoggerFunc(func(format string, args ...any) {
		captured = format
	})
	logger.Printf("hello %s", "world")
	if captured != "hello %s" {
		t.Fatalf("unexpected format capture: %q", captured)
	}

	var nilLogger LoggerFunc
	nilLogger.Printf("must not panic")
}
