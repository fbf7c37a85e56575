package scene

import (
	"reflect"
	"testing"
)

func TestBuildIsDeterministicPerSeed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = "scene-determinism"

	first, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("first build failed: %v", err)
	}
	second, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("second build failed: %v", err)
	}

	if !reflect.DeepEqual(first.City, second.City) {
		t.Fatalf("city generation diverged for identical seeds")
	}
	if !reflect.DeepEqual(first.Lamps, second.Lamps) {
		t.Fatalf("lamp placement diverged for identical seeds")
	}
	if !reflect.DeepEqual(first.Vehicle, second.Vehicle) {
		t.Fatalf("vehicle assembly diverged for identical seeds")
	}
}

func TestBuildDiffersAcrossSeeds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = "seed-a"
	a, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	cfg.Seed = "seed-b"
	b, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if reflect.DeepEqual(a.City, b.City) {
		t.Fatalf("expected different seeds to generate different cities")
	}
}

func TestDisposeReleasesEverythingOnce(t *testing.T) {
	s, err := Build(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if leaked := s.Leaked(); len(leaked) == 0 {
		t.Fatalf("expected undisposed scene to report leaks")
	}

	s.Dispose()
	if leaked := s.Leaked(); len(leaked) != 0 {
		t.Fatalf("expected no leaks after dispose, got %v", leaked)
	}
	if !s.Disposed() {
		t.Fatalf("scene should report disposed")
	}

	// Double dispose stays a no-op.
	s.Dispose()
	if leaked := s.Leaked(); len(leaked) != 0 {
		t.Fatalf("double dispose changed leak state: %v", leaked)
	}
}

func TestBuildingsAvoidTrackBand(t *testing.T) {
	cfg := DefaultConfig()
	buildings := NewDeterministicRNG(cfg.Seed, "buildings")
	windows := NewDeterministicRNG(cfg.Seed, "windows")

	for _, inst := range BuildCity(cfg, buildings, windows) {
		if inst.Shape != ShapeBox {
			continue
		}
		x, z := inst.Position.X(), inst.Position.Z()
		radius := x*x + z*z
		if radius > trackBandInner*trackBandInner && radius < trackBandOuter*trackBandOuter {
			t.Fatalf("building %s sits on the road band at (%v, %v)", inst.ID, x, z)
		}
	}
}

func TestVehicleHasBoundParts(t *testing.T) {
	parts := BuildVehicle()
	found := map[string]bool{}
	for _, p := range parts {
		if p.Part != "" {
			found[p.Part] = true
		}
	}
	for _, want := range []string{PartBody, PartSteeringWheel, PartWheel} {
		if !found[want] {
			t.Fatalf("vehicle is missing part binding %q", want)
		}
	}
}

func TestLampSpacingControlsCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LampSpacing = 0.1
	s, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	// One post and one glow per placement.
	if got, want := len(s.Lamps), 20; got != want {
		t.Fatalf("expected %d lamp instances, got %d", want, got)
	}
}

func TestDeterministicSeedValueSeparatesLabels(t *testing.T) {
	if DeterministicSeedValue("root", "buildings") == DeterministicSeedValue("root", "windows") {
		t.Fatalf("labels must map to distinct rng streams")
	}
	if DeterministicSeedValue("root", "buildings") != DeterministicSeedValue("root", "buildings") {
		t.Fatalf("seed derivation must be stable")
	}
}

func TestConfigNormalizedClampsMaxFloors(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, defaultMaxFloors},
		{1, minMaxFloors},
		{2, minMaxFloors},
		{3, 3},
		{14, 14},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		cfg.MaxFloors = tc.in
		if got := cfg.Normalized().MaxFloors; got != tc.want {
			t.Fatalf("maxFloors %d normalized to %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestBuildAcceptsLowMaxFloors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Seed = "low-floors"
	cfg.MaxFloors = 2

	built, err := Build(cfg, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if len(built.City) == 0 {
		t.Fatalf("expected buildings to generate")
	}
}
