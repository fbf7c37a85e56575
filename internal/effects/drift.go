// Package effects holds the speed-feedback particle field: a fixed pool of
// points drifting along the travel axis, recycled behind the origin once they
// cross the forward despawn threshold. Purely cosmetic; nothing else in the
// simulation reads it.
package effects

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// FieldConfig tunes the drift pool. The zero value is unusable; call
// Normalized or start from DefaultFieldConfig.
type FieldConfig struct {
	Count          int     `json:"count" mapstructure:"count"`
	ReferenceSpeed float64 `json:"referenceSpeed" mapstructure:"referenceSpeed"`
	DriftScale     float64 `json:"driftScale" mapstructure:"driftScale"`
	DespawnZ       float64 `json:"despawnZ" mapstructure:"despawnZ"`
	SpawnDepth     float64 `json:"spawnDepth" mapstructure:"spawnDepth"`
	SpawnWidth     float64 `json:"spawnWidth" mapstructure:"spawnWidth"`
	SpawnHeight    float64 `json:"spawnHeight" mapstructure:"spawnHeight"`
	MinVelocity    float64 `json:"minVelocity" mapstructure:"minVelocity"`
	MaxVelocity    float64 `json:"maxVelocity" mapstructure:"maxVelocity"`
	OpacityFloor   float64 `json:"opacityFloor" mapstructure:"opacityFloor"`
}

// DefaultFieldConfig returns the drift tuning used when configuration does
// not override it.
func DefaultFieldConfig() FieldConfig {
	return FieldConfig{
		Count:          160,
		ReferenceSpeed: 120,
		DriftScale:     55,
		DespawnZ:       20,
		SpawnDepth:     60,
		SpawnWidth:     24,
		SpawnHeight:    10,
		MinVelocity:    0.4,
		MaxVelocity:    1.0,
		OpacityFloor:   0.05,
	}
}

// Normalized clamps degenerate values so every Field invariant holds.
func (cfg FieldConfig) Normalized() FieldConfig {
	defaults := DefaultFieldConfig()
	normalized := cfg
	if normalized.Count <= 0 {
		normalized.Count = defaults.Count
	}
	if normalized.ReferenceSpeed <= 0 {
		normalized.ReferenceSpeed = defaults.ReferenceSpeed
	}
	if normalized.DriftScale <= 0 {
		normalized.DriftScale = defaults.DriftScale
	}
	if normalized.SpawnDepth <= 0 {
		normalized.SpawnDepth = defaults.SpawnDepth
	}
	if normalized.SpawnWidth <= 0 {
		normalized.SpawnWidth = defaults.SpawnWidth
	}
	if normalized.SpawnHeight <= 0 {
		normalized.SpawnHeight = defaults.SpawnHeight
	}
	if normalized.MinVelocity <= 0 {
		normalized.MinVelocity = defaults.MinVelocity
	}
	if normalized.MaxVelocity < normalized.MinVelocity {
		normalized.MaxVelocity = normalized.MinVelocity
	}
	if normalized.OpacityFloor < 0 {
		normalized.OpacityFloor = 0
	} else if normalized.OpacityFloor > 1 {
		normalized.OpacityFloor = 1
	}
	return normalized
}

type particle struct {
	position mgl64.Vec3
	velocity float64
}

// Field is the fixed-size drift pool. All randomness flows through the
// injected RNG so two fields built with the same seed replay identically.
type Field struct {
	cfg       FieldConfig
	particles []particle
	rng       *rand.Rand
}

// NewField seeds a pool of cfg.Count particles inside the spawn volume.
func NewField(cfg FieldConfig, rng *rand.Rand) *Field {
	cfg = cfg.Normalized()
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	field := &Field{
		cfg:       cfg,
		particles: make([]particle, cfg.Count),
		rng:       rng,
	}
	for i := range field.particles {
		field.particles[i] = field.spawn()
	}
	return field
}

// Step displaces every particle along the travel axis by its velocity scaled
// with the current speed factor, recycling any particle that crossed the
// despawn threshold back into the spawn volume.
func (f *Field) Step(speed, dt float64) {
	if f == nil || dt <= 0 {
		return
	}
	factor := speed / f.cfg.ReferenceSpeed
	for i := range f.particles {
		f.particles[i].position[2] += f.particles[i].velocity * factor * dt * f.cfg.DriftScale
		if f.particles[i].position.Z() > f.cfg.DespawnZ {
			f.particles[i] = f.spawn()
		}
	}
}

// Opacity is a saturating linear ramp of the speed factor, clamped between
// the configured floor and 1.
func (f *Field) Opacity(speed float64) float64 {
	if f == nil {
		return 0
	}
	opacity := speed / f.cfg.ReferenceSpeed
	if opacity < f.cfg.OpacityFloor {
		opacity = f.cfg.OpacityFloor
	}
	if opacity > 1 {
		opacity = 1
	}
	return opacity
}

// Len reports the pool size, fixed for the life of the field.
func (f *Field) Len() int {
	if f == nil {
		return 0
	}
	return len(f.particles)
}

// Positions copies the current particle positions for snapshotting.
func (f *Field) Positions() []mgl64.Vec3 {
	if f == nil {
		return nil
	}
	positions := make([]mgl64.Vec3, len(f.particles))
	for i, p := range f.particles {
		positions[i] = p.position
	}
	return positions
}

// spawn places a fresh particle behind the origin inside the spawn volume
// with a velocity in [MinVelocity, MaxVelocity).
func (f *Field) spawn() particle {
	return particle{
		position: mgl64.Vec3{
			(f.rng.Float64() - 0.5) * f.cfg.SpawnWidth,
			f.rng.Float64() * f.cfg.SpawnHeight,
			-f.rng.Float64() * f.cfg.SpawnDepth,
		},
		velocity: f.cfg.MinVelocity + f.rng.Float64()*(f.cfg.MaxVelocity-f.cfg.MinVelocity),
	}
}
