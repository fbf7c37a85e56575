package server

import (
	"sync"
	"testing"
	"time"

	"nightdrive/server/internal/scene"
	"nightdrive/server/internal/sim"
	"nightdrive/server/logging"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestHub(t *testing.T, clock logging.Clock) *Hub {
	t.Helper()
	cfg := DefaultHubConfig()
	cfg.Core.Scene = scene.Config{
		Seed:          "hub-test",
		BlocksPerSide: 2,
		MaxFloors:     3,
		LampSpacing:   0.25,
	}
	cfg.Clock = clock
	hub, err := NewHubWithConfig(cfg, nil)
	if err != nil {
		t.Fatalf("NewHubWithConfig: %v", err)
	}
	return hub
}

func TestHubJoinRegistersViewers(t *testing.T) {
	hub := newTestHub(t, nil)

	first := hub.Join()
	second := hub.Join()
	if first.ID == second.ID {
		t.Fatalf("expected distinct viewer ids, got %q twice", first.ID)
	}
	if !hub.HasViewer(first.ID) || !hub.HasViewer(second.ID) {
		t.Fatalf("expected both viewers registered")
	}
	if len(first.TrackPoints) < 3 {
		t.Fatalf("expected track control points in join payload")
	}
	if len(first.City) == 0 || len(first.Vehicle) == 0 || len(first.Lamps) == 0 {
		t.Fatalf("expected scene geometry in join payload")
	}
	if first.State.Running {
		t.Fatalf("expected drive stopped before any start command")
	}
	if diag := hub.DiagnosticsSnapshot(); len(diag) != 2 {
		t.Fatalf("expected 2 diagnostics entries, got %d", len(diag))
	}
}

func TestHubUpdateHeartbeat(t *testing.T) {
	hub := newTestHub(t, nil)
	join := hub.Join()

	received := time.Now()
	rtt, ok := hub.UpdateHeartbeat(join.ID, received, received.Add(-50*time.Millisecond).UnixMilli())
	if !ok {
		t.Fatalf("expected heartbeat for registered viewer to succeed")
	}
	if rtt < 50*time.Millisecond || rtt > time.Second {
		t.Fatalf("unexpected rtt %v", rtt)
	}
	if _, ok := hub.UpdateHeartbeat("ghost", received, 0); ok {
		t.Fatalf("expected heartbeat for unknown viewer to fail")
	}

	// The heartbeat rides the command queue so the loop observes liveness.
	if pending := hub.Engine().Pending(); pending != 1 {
		t.Fatalf("expected 1 staged heartbeat command, got %d", pending)
	}
}

func TestHubStartStopThroughLoop(t *testing.T) {
	hub := newTestHub(t, nil)
	join := hub.Join()
	dt := 1.0 / 60.0

	if ok, reason := hub.Engine().Enqueue(sim.Command{Type: sim.CommandStart, ActorID: join.ID}); !ok {
		t.Fatalf("enqueue start failed: %q", reason)
	}
	result := hub.Engine().Advance(sim.LoopTickContext{Tick: 1, Now: time.Now(), Delta: dt})
	if !result.Snapshot.Running || result.Snapshot.Speed <= 0 {
		t.Fatalf("expected drive running after start, got %+v", result.Snapshot)
	}

	if ok, reason := hub.Engine().Enqueue(sim.Command{Type: sim.CommandStop, ActorID: join.ID}); !ok {
		t.Fatalf("enqueue stop failed: %q", reason)
	}
	stopped := hub.Engine().Advance(sim.LoopTickContext{Tick: 2, Now: time.Now(), Delta: dt})
	if stopped.Snapshot.Running {
		t.Fatalf("expected drive stopped")
	}
	if stopped.Snapshot.Progress != result.Snapshot.Progress || stopped.Snapshot.Speed != result.Snapshot.Speed {
		t.Fatalf("stop mutated committed motion: %+v vs %+v", stopped.Snapshot, result.Snapshot)
	}
}

func TestHubKeyframeRequestLifecycle(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	hub := newTestHub(t, clock)
	join := hub.Join()

	hub.ForceKeyframe()
	size, _, newest := hub.Engine().KeyframeWindow()
	if size != 1 {
		t.Fatalf("expected one journaled keyframe, got %d", size)
	}

	keyframe, nack, ok := hub.HandleKeyframeRequest(join.ID, newest)
	if !ok || nack != nil {
		t.Fatalf("expected keyframe hit, got nack=%+v ok=%v", nack, ok)
	}
	if keyframe.Sequence != newest {
		t.Fatalf("unexpected keyframe sequence %d", keyframe.Sequence)
	}

	// A second request inside the window is rate limited.
	_, nack, ok = hub.HandleKeyframeRequest(join.ID, newest)
	if !ok || nack == nil || nack.Reason != "rate_limited" {
		t.Fatalf("expected rate-limited nack, got %+v", nack)
	}

	// Past the gap, an evicted sequence nacks with a resync hint and a
	// fresh keyframe is journaled for the retry.
	clock.Advance(time.Second)
	_, nack, ok = hub.HandleKeyframeRequest(join.ID, newest+100)
	if !ok || nack == nil || nack.Reason != "expired" || !nack.Resync {
		t.Fatalf("expected expired nack with resync, got %+v", nack)
	}
	if size, _, _ := hub.Engine().KeyframeWindow(); size != 2 {
		t.Fatalf("expected forced keyframe after miss, journal size %d", size)
	}

	if _, _, ok := hub.HandleKeyframeRequest("ghost", newest); ok {
		t.Fatalf("expected unknown viewer request to be dropped")
	}

	stats := hub.TelemetrySnapshot()
	if stats.KeyframeRequests != 3 || stats.KeyframeNacksRateLimited != 1 || stats.KeyframeNacksExpired != 1 {
		t.Fatalf("unexpected keyframe telemetry: %+v", stats)
	}
}

func TestHubSetKeyframeIntervalClamps(t *testing.T) {
	hub := newTestHub(t, nil)
	if applied := hub.SetKeyframeInterval(0); applied != defaultKeyframeInterval {
		t.Fatalf("expected default interval, got %d", applied)
	}
	if applied := hub.SetKeyframeInterval(10_000); applied != maxKeyframeInterval {
		t.Fatalf("expected clamped interval, got %d", applied)
	}
	if applied := hub.SetKeyframeInterval(90); applied != 90 || hub.KeyframeInterval() != 90 {
		t.Fatalf("expected requested interval to stick, got %d", applied)
	}
}

func TestHubStaleViewerSweep(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	hub := newTestHub(t, clock)
	join := hub.Join()

	hub.sweepStaleViewers(sim.LoopTickContext{Now: clock.Now().Add(disconnectAfter / 2)})
	if !hub.HasViewer(join.ID) {
		t.Fatalf("expected fresh viewer to survive sweep")
	}

	hub.sweepStaleViewers(sim.LoopTickContext{Now: clock.Now().Add(disconnectAfter + time.Second)})
	if hub.HasViewer(join.ID) {
		t.Fatalf("expected stale viewer to be disconnected")
	}
}
