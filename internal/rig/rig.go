// Package rig derives the vehicle frame and driver's-eye camera pose from a
// closed track curve. All functions are pure kinematics: the only state is
// MotionState, owned by the simulation engine and advanced once per tick.
package rig

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"nightdrive/server/internal/track"
)

// WorldUp is pinned as the camera up vector before every look-at derivation
// to keep roll stable when the heading passes through ±90°.
var WorldUp = mgl64.Vec3{0, 1, 0}

// MotionState is the scalar state advanced each tick: normalized arc-position
// on the loop and current speed.
type MotionState struct {
	Progress float64 `json:"progress"`
	Speed    float64 `json:"speed"`
}

// EyeOffset positions the camera in the vehicle's local frame.
type EyeOffset struct {
	Lateral      float64 `json:"lateral" mapstructure:"lateral"`
	Vertical     float64 `json:"vertical" mapstructure:"vertical"`
	Longitudinal float64 `json:"longitudinal" mapstructure:"longitudinal"`
}

// Tuning carries every rig constant. Values are normalized once at
// construction; the zero value is unusable.
type Tuning struct {
	MaxSpeed       float64   `json:"maxSpeed" mapstructure:"maxSpeed"`
	Acceleration   float64   `json:"acceleration" mapstructure:"acceleration"`
	UnitConversion float64   `json:"unitConversion" mapstructure:"unitConversion"`
	Lookahead      float64   `json:"lookahead" mapstructure:"lookahead"`
	SteerEpsilon   float64   `json:"steerEpsilon" mapstructure:"steerEpsilon"`
	SteerGain      float64   `json:"steerGain" mapstructure:"steerGain"`
	ShakeThreshold float64   `json:"shakeThreshold" mapstructure:"shakeThreshold"`
	ShakeGain      float64   `json:"shakeGain" mapstructure:"shakeGain"`
	Eye            EyeOffset `json:"eye" mapstructure:"eye"`
}

// DefaultTuning returns the rig constants used when no configuration
// overrides them.
func DefaultTuning() Tuning {
	return Tuning{
		MaxSpeed:       120,
		Acceleration:   0.5,
		UnitConversion: 1.0 / 1200.0,
		Lookahead:      14,
		SteerEpsilon:   0.01,
		SteerGain:      8,
		ShakeThreshold: 90,
		ShakeGain:      0.004,
		Eye:            EyeOffset{Lateral: -0.55, Vertical: 1.18, Longitudinal: 0.6},
	}
}

// Normalized clamps nonsensical tuning values back to usable defaults.
func (t Tuning) Normalized() Tuning {
	defaults := DefaultTuning()
	normalized := t
	if normalized.MaxSpeed <= 0 {
		normalized.MaxSpeed = defaults.MaxSpeed
	}
	if normalized.Acceleration < 0 {
		normalized.Acceleration = 0
	}
	if normalized.UnitConversion <= 0 {
		normalized.UnitConversion = defaults.UnitConversion
	}
	if normalized.Lookahead <= 0 {
		normalized.Lookahead = defaults.Lookahead
	}
	if normalized.SteerEpsilon <= 0 {
		normalized.SteerEpsilon = defaults.SteerEpsilon
	}
	if normalized.ShakeThreshold < 0 {
		normalized.ShakeThreshold = 0
	}
	if normalized.ShakeGain < 0 {
		normalized.ShakeGain = 0
	}
	return normalized
}

// VehicleFrame is the derived pose of the vehicle proxy at a progress value.
// Heading follows the convention locked by TestHeadingTracksIncreasingProgress:
// zero heading points along +X and headings increase counter-clockwise when
// viewed from +Y, so heading = atan2(-tangent.Z, tangent.X).
type VehicleFrame struct {
	Position mgl64.Vec3 `json:"position"`
	Heading  float64    `json:"heading"`
}

// CameraPose is the derived driver's-eye pose. Up is always exactly WorldUp.
type CameraPose struct {
	Eye    mgl64.Vec3 `json:"eye"`
	Target mgl64.Vec3 `json:"target"`
	Up     mgl64.Vec3 `json:"up"`
}

// Advance applies one tick of constant acceleration capped at MaxSpeed and
// wraps progress modulo 1. There is no deceleration path: once at the cap the
// speed stays there.
func Advance(state MotionState, tuning Tuning, dt float64) MotionState {
	speed := state.Speed + tuning.Acceleration*dt
	if speed > tuning.MaxSpeed {
		speed = tuning.MaxSpeed
	}
	return MotionState{
		Progress: track.Wrap(state.Progress + speed*dt*tuning.UnitConversion),
		Speed:    speed,
	}
}

// FrameAt samples the curve and derives the vehicle frame at progress.
func FrameAt(curve *track.Curve, progress float64) VehicleFrame {
	tangent := curve.TangentAt(progress)
	return VehicleFrame{
		Position: curve.PositionAt(progress),
		Heading:  math.Atan2(-tangent.Z(), tangent.X()),
	}
}

// Forward returns the horizontal unit vector the vehicle nose points along.
func (f VehicleFrame) Forward() mgl64.Vec3 {
	return mgl64.Vec3{math.Cos(f.Heading), 0, -math.Sin(f.Heading)}
}

// Right returns the horizontal unit vector out of the vehicle's right side.
func (f VehicleFrame) Right() mgl64.Vec3 {
	return mgl64.Vec3{math.Sin(f.Heading), 0, math.Cos(f.Heading)}
}

// SteerAngle estimates the cosmetic steering-wheel rotation from the heading
// change between progress and progress+ε, signed by the vertical component of
// the tangent cross product.
func SteerAngle(curve *track.Curve, progress float64, tuning Tuning) float64 {
	t0 := curve.TangentAt(progress)
	t1 := curve.TangentAt(progress + tuning.SteerEpsilon)

	dot := t0.Dot(t1)
	if dot > 1 {
		dot = 1
	} else if dot < -1 {
		dot = -1
	}
	angle := math.Acos(dot)
	if t0.Cross(t1).Y() < 0 {
		angle = -angle
	}
	return angle * tuning.SteerGain
}

// CameraAt derives the driver's-eye pose for a vehicle frame. The look-at
// target sits Lookahead ahead of the vehicle along its forward axis with its
// height pinned to the eye height, never the ground.
func CameraAt(frame VehicleFrame, tuning Tuning) CameraPose {
	forward := frame.Forward()
	eye := frame.Position.
		Add(frame.Right().Mul(tuning.Eye.Lateral)).
		Add(WorldUp.Mul(tuning.Eye.Vertical)).
		Add(forward.Mul(tuning.Eye.Longitudinal))

	target := frame.Position.Add(forward.Mul(tuning.Lookahead))
	target[1] = eye.Y()

	return CameraPose{Eye: eye, Target: target, Up: WorldUp}
}

// Shake returns the speed-reactive camera jitter for this tick. It is
// recomputed fresh every call and never accumulates; below the threshold it
// is exactly zero.
func Shake(state MotionState, tuning Tuning, rng *rand.Rand) mgl64.Vec3 {
	if rng == nil || state.Speed <= tuning.ShakeThreshold {
		return mgl64.Vec3{}
	}
	magnitude := (state.Speed - tuning.ShakeThreshold) * tuning.ShakeGain
	return mgl64.Vec3{
		(rng.Float64()*2 - 1) * magnitude,
		(rng.Float64()*2 - 1) * magnitude,
		(rng.Float64()*2 - 1) * magnitude,
	}
}
