package sim

import (
	"context"
	"testing"

	"nightdrive/server/internal/rig"
	"nightdrive/server/internal/track"
	simlog "nightdrive/server/logging/simulation"
)

const testDt = 1.0 / 60.0

func TestCoreStopPreservesMotionExactly(t *testing.T) {
	core := newTestCore(t, "stop-resume", Deps{})

	if err := core.Apply([]Command{{Type: CommandStart, ActorID: "viewer-1"}}); err != nil {
		t.Fatalf("Apply start: %v", err)
	}
	for i := 0; i < 120; i++ {
		core.Step(testDt)
	}
	running := core.Snapshot()
	if !running.Running {
		t.Fatalf("expected running snapshot")
	}
	if running.Speed <= 0 || running.Progress <= 0 {
		t.Fatalf("expected motion to have advanced, got %+v", running)
	}

	if err := core.Apply([]Command{{Type: CommandStop, ActorID: "viewer-1"}}); err != nil {
		t.Fatalf("Apply stop: %v", err)
	}
	for i := 0; i < 30; i++ {
		core.Step(testDt)
	}
	stopped := core.Snapshot()
	if stopped.Running {
		t.Fatalf("expected stopped snapshot")
	}
	if stopped.Progress != running.Progress || stopped.Speed != running.Speed {
		t.Fatalf("stop mutated motion: running=%+v stopped=%+v", running, stopped)
	}
	if stopped.Tick != running.Tick+30 {
		t.Fatalf("expected tick to keep advancing while stopped, got %d want %d", stopped.Tick, running.Tick+30)
	}

	// Resuming must continue from the committed motion state, not restart.
	if err := core.Apply([]Command{{Type: CommandStart, ActorID: "viewer-1"}}); err != nil {
		t.Fatalf("Apply restart: %v", err)
	}
	core.Step(testDt)
	resumed := core.Snapshot()

	want := rig.Advance(rig.MotionState{Progress: stopped.Progress, Speed: stopped.Speed}, core.cfg.Rig, testDt)
	if resumed.Speed != want.Speed || resumed.Progress != want.Progress {
		t.Fatalf("resume diverged: got speed=%v progress=%v, want speed=%v progress=%v",
			resumed.Speed, resumed.Progress, want.Speed, want.Progress)
	}
}

func TestCoreDuplicateTransitionsAreNoops(t *testing.T) {
	publisher := &recordingPublisher{}
	core := newTestCore(t, "dup-transitions", Deps{Publisher: publisher})

	if err := core.Apply([]Command{
		{Type: CommandStop},
		{Type: CommandStart},
		{Type: CommandStart},
		{Type: CommandStop},
		{Type: CommandStop},
	}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	transitions := publisher.byType(simlog.EventRunStateChanged)
	if len(transitions) != 2 {
		t.Fatalf("expected 2 committed transitions, got %d", len(transitions))
	}
	if core.Running() {
		t.Fatalf("expected core stopped after final command")
	}
}

func TestCoreSpeedRampMatchesClosedForm(t *testing.T) {
	core := newTestCore(t, "ramp", Deps{})
	tuning := core.cfg.Rig

	if err := core.Apply([]Command{{Type: CommandStart}}); err != nil {
		t.Fatalf("Apply start: %v", err)
	}

	// Fold the exact same operation sequence the engine performs so float
	// results match bit for bit.
	var speed, progress float64
	for i := 0; i < 900; i++ {
		core.Step(testDt)
		speed += tuning.Acceleration * testDt
		if speed > tuning.MaxSpeed {
			speed = tuning.MaxSpeed
		}
		progress = track.Wrap(progress + speed*testDt*tuning.UnitConversion)
	}

	snap := core.Snapshot()
	if snap.Speed != speed {
		t.Fatalf("speed diverged from reference ramp: got %v want %v", snap.Speed, speed)
	}
	if snap.Progress != progress {
		t.Fatalf("progress diverged from reference ramp: got %v want %v", snap.Progress, progress)
	}
	if snap.Speed > tuning.MaxSpeed {
		t.Fatalf("speed exceeded cap: %v > %v", snap.Speed, tuning.MaxSpeed)
	}
}

func TestCoreSnapshotDerivedState(t *testing.T) {
	core := newTestCore(t, "derived", Deps{})
	if err := core.Apply([]Command{{Type: CommandStart}}); err != nil {
		t.Fatalf("Apply start: %v", err)
	}
	for i := 0; i < 240; i++ {
		core.Step(testDt)
	}

	snap := core.Snapshot()
	curve := core.Scene().Curve()

	wantFrame := rig.FrameAt(curve, snap.Progress)
	if snap.Vehicle != wantFrame {
		t.Fatalf("vehicle frame does not match committed progress: got %+v want %+v", snap.Vehicle, wantFrame)
	}
	wantCamera := rig.CameraAt(wantFrame, core.cfg.Rig)
	if snap.Camera != wantCamera {
		t.Fatalf("camera pose does not match vehicle frame: got %+v want %+v", snap.Camera, wantCamera)
	}
	if snap.Camera.Up != rig.WorldUp {
		t.Fatalf("camera up drifted: %+v", snap.Camera.Up)
	}
	if len(snap.Particles) != core.cfg.Particles.Count {
		t.Fatalf("expected %d particles, got %d", core.cfg.Particles.Count, len(snap.Particles))
	}
}

func TestCoreKeyframeJournalEviction(t *testing.T) {
	core := newTestCore(t, "journal", Deps{})

	var lastResult KeyframeRecordResult
	for i := 0; i < 6; i++ {
		core.Step(testDt)
		_, lastResult = core.RecordKeyframe()
	}

	if lastResult.Size != 4 {
		t.Fatalf("expected journal capped at 4, got %d", lastResult.Size)
	}
	if lastResult.OldestSequence != 3 || lastResult.NewestSequence != 6 {
		t.Fatalf("unexpected journal window: %+v", lastResult)
	}
	if len(lastResult.Evicted) != 1 || lastResult.Evicted[0].Sequence != 2 {
		t.Fatalf("unexpected eviction report: %+v", lastResult.Evicted)
	}

	if _, ok := core.KeyframeBySequence(1); ok {
		t.Fatalf("expected sequence 1 to be evicted")
	}
	frame, ok := core.KeyframeBySequence(5)
	if !ok || frame.Sequence != 5 {
		t.Fatalf("expected sequence 5 to be retrievable, got %+v ok=%v", frame, ok)
	}
	latest, ok := core.LatestKeyframe()
	if !ok || latest.Sequence != 6 {
		t.Fatalf("expected latest sequence 6, got %+v ok=%v", latest, ok)
	}
	size, oldest, newest := core.KeyframeWindow()
	if size != 4 || oldest != 3 || newest != 6 {
		t.Fatalf("unexpected window: size=%d oldest=%d newest=%d", size, oldest, newest)
	}
}

func TestCoreTickMetrics(t *testing.T) {
	metrics := &recordingMetrics{}
	core := newTestCore(t, "metrics", Deps{Metrics: metrics})
	if err := core.Apply([]Command{{Type: CommandStart}}); err != nil {
		t.Fatalf("Apply start: %v", err)
	}
	for i := 0; i < 10; i++ {
		core.Step(testDt)
	}
	if got := metrics.counter(tickMetricKey); got != 10 {
		t.Fatalf("expected 10 tick increments, got %d", got)
	}
	if metrics.gauge(speedGaugeMetricKey) == 0 {
		t.Fatalf("expected speed gauge to be populated")
	}
}

func TestCoreShutdownDisposesScene(t *testing.T) {
	core := newTestCore(t, "shutdown", Deps{})
	world := core.Scene()
	core.Shutdown(context.Background())
	if !world.Disposed() {
		t.Fatalf("expected scene disposed after shutdown")
	}
	if leaked := world.Leaked(); len(leaked) != 0 {
		t.Fatalf("expected no leaked resources, got %v", leaked)
	}
}
