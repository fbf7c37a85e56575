// Package scene builds the static world once at start: the road loop, the
// procedural city, street lamps, and the vehicle mesh description. Everything
// is a pure function of the scene config and its seed. The scene owns its
// resources; Dispose must run before the scene is dropped.
package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"nightdrive/server/internal/track"
)

// Resource tracks one disposable asset group. Rendering buffers live on the
// client, but the server mirrors the ownership discipline so leaks are
// observable in tests and diagnostics.
type Resource struct {
	name     string
	released bool
}

// Name identifies the resource group.
func (r *Resource) Name() string {
	if r == nil {
		return ""
	}
	return r.name
}

// Released reports whether the resource was disposed.
func (r *Resource) Released() bool {
	if r == nil {
		return false
	}
	return r.released
}

// Scene is the assembled static world. Mesh slices are never mutated after
// Build returns.
type Scene struct {
	Config      Config         `json:"config"`
	TrackPoints []mgl64.Vec3   `json:"trackPoints"`
	City        []MeshInstance `json:"city"`
	Lamps       []MeshInstance `json:"lamps"`
	Vehicle     []MeshInstance `json:"vehicle"`

	curve     *track.Curve
	resources []*Resource
	disposed  bool
}

// Build assembles the full static scene. Construction is the only failure
// path in the system: any builder error disposes partial work and reports up,
// leaving no half-built scene behind.
func Build(cfg Config, logger Logger) (*Scene, error) {
	cfg = cfg.Normalized()
	s := &Scene{Config: cfg}

	points := DefaultTrackPoints()
	curve, err := track.New(points)
	if err != nil {
		s.Dispose()
		return nil, fmt.Errorf("scene: build track: %w", err)
	}
	s.curve = curve
	s.TrackPoints = points
	s.register("track")

	buildings := NewDeterministicRNG(cfg.Seed, "buildings")
	windows := NewDeterministicRNG(cfg.Seed, "windows")
	city := BuildCity(cfg, buildings, windows)
	if cfg.MergeGeometry {
		city = MergeByPalette(city, logger)
	}
	s.City = city
	s.register("city")

	s.Lamps = BuildLamps(curve, cfg)
	s.register("lamps")

	s.Vehicle = BuildVehicle()
	s.register("vehicle")

	return s, nil
}

// Curve exposes the road centerline for the rig.
func (s *Scene) Curve() *track.Curve {
	if s == nil {
		return nil
	}
	return s.curve
}

// Dispose releases every registered resource exactly once. Safe to call more
// than once; later calls are no-ops.
func (s *Scene) Dispose() {
	if s == nil || s.disposed {
		return
	}
	for _, res := range s.resources {
		res.released = true
	}
	s.disposed = true
}

// Disposed reports whether teardown has run.
func (s *Scene) Disposed() bool {
	return s != nil && s.disposed
}

// Leaked lists resources never released. Non-empty after the scene is
// dropped means GPU-side buffers would have leaked on the client.
func (s *Scene) Leaked() []string {
	if s == nil {
		return nil
	}
	var leaked []string
	for _, res := range s.resources {
		if !res.released {
			leaked = append(leaked, res.name)
		}
	}
	return leaked
}

func (s *Scene) register(name string) {
	s.resources = append(s.resources, &Resource{name: name})
}
