package sim

import (
	"context"
	"sync"
	"testing"

	"nightdrive/server/internal/effects"
	"nightdrive/server/internal/rig"
	"nightdrive/server/internal/scene"
	"nightdrive/server/logging"
)

// testCoreConfig keeps the generated city small so engine tests stay fast.
func testCoreConfig(seed string) CoreConfig {
	sceneCfg := scene.DefaultConfig()
	sceneCfg.Seed = seed
	sceneCfg.BlocksPerSide = 2
	sceneCfg.MaxFloors = 3
	sceneCfg.LampSpacing = 0.25
	sceneCfg.MergeGeometry = false
	return CoreConfig{
		Scene:            sceneCfg,
		Rig:              rig.DefaultTuning(),
		Particles:        effects.DefaultFieldConfig(),
		KeyframeCapacity: 4,
	}
}

func newTestCore(t *testing.T, seed string, deps Deps) *Core {
	t.Helper()
	core, err := NewCore(testCoreConfig(seed), deps)
	if err != nil {
		t.Fatalf("NewCore: %v", err)
	}
	return core
}

type recordingMetrics struct {
	mu       sync.Mutex
	counters map[string]uint64
	gauges   map[string]uint64
}

func (m *recordingMetrics) Add(key string, delta uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]uint64)
	}
	m.counters[key] += delta
}

func (m *recordingMetrics) Store(key string, value uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gauges == nil {
		m.gauges = make(map[string]uint64)
	}
	m.gauges[key] = value
}

func (m *recordingMetrics) counter(key string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key]
}

func (m *recordingMetrics) gauge(key string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gauges[key]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []logging.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event logging.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) byType(eventType logging.EventType) []logging.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var matched []logging.Event
	for _, event := range p.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}
