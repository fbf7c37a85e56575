package track

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func squareLoop() []mgl64.Vec3 {
	return []mgl64.Vec3{
		{-40, 0, -40},
		{40, 0, -40},
		{40, 0, 40},
		{-40, 0, 40},
	}
}

func TestNewRejectsTooFewPoints(t *testing.T) {
	_, err := New([]mgl64.Vec3{{0, 0, 0}, {1, 0, 0}})
	require.ErrorIs(t, err, ErrTooFewPoints)
}

func TestNewCopiesControlPoints(t *testing.T) {
	points := squareLoop()
	curve, err := New(points)
	require.NoError(t, err)

	before := curve.PositionAt(0.125)
	points[0] = mgl64.Vec3{999, 999, 999}
	after := curve.PositionAt(0.125)

	assert.Equal(t, before, after, "mutating the input slice must not affect the curve")
}

func TestPositionPeriodicity(t *testing.T) {
	curve, err := New(squareLoop())
	require.NoError(t, err)

	for _, tt := range []float64{0, 0.1, 0.25, 0.333, 0.5, 0.75, 0.999} {
		assert.Equal(t, curve.PositionAt(tt), curve.PositionAt(tt+1), "position at t=%v", tt)
		assert.Equal(t, curve.TangentAt(tt), curve.TangentAt(tt+1), "tangent at t=%v", tt)
	}
}

func TestNegativeParameterIsDefined(t *testing.T) {
	curve, err := New(squareLoop())
	require.NoError(t, err)

	assert.Equal(t, curve.PositionAt(0.75), curve.PositionAt(-0.25))
	assert.Equal(t, curve.TangentAt(0.75), curve.TangentAt(-0.25))
}

func TestCurvePassesThroughControlPoints(t *testing.T) {
	points := squareLoop()
	curve, err := New(points)
	require.NoError(t, err)

	// At t = i/n a Catmull-Rom spline interpolates control point i exactly.
	n := float64(len(points))
	for i, want := range points {
		got := curve.PositionAt(float64(i) / n)
		assert.InDelta(t, want.X(), got.X(), 1e-9, "point %d X", i)
		assert.InDelta(t, want.Y(), got.Y(), 1e-9, "point %d Y", i)
		assert.InDelta(t, want.Z(), got.Z(), 1e-9, "point %d Z", i)
	}
}

func TestTangentIsUnitLength(t *testing.T) {
	curve, err := New(squareLoop())
	require.NoError(t, err)

	for tt := 0.0; tt < 1.0; tt += 0.05 {
		tangent := curve.TangentAt(tt)
		assert.InDelta(t, 1.0, tangent.Len(), 1e-9, "tangent length at t=%v", tt)
	}
}

func TestTangentMatchesFiniteDifference(t *testing.T) {
	curve, err := New(squareLoop())
	require.NoError(t, err)

	const h = 1e-6
	for tt := 0.0; tt < 1.0; tt += 0.1 {
		numeric := curve.PositionAt(tt + h).Sub(curve.PositionAt(tt - h))
		if length := numeric.Len(); length > 0 {
			numeric = numeric.Mul(1 / length)
		}
		analytic := curve.TangentAt(tt)
		assert.InDelta(t, numeric.X(), analytic.X(), 1e-4, "t=%v X", tt)
		assert.InDelta(t, numeric.Y(), analytic.Y(), 1e-4, "t=%v Y", tt)
		assert.InDelta(t, numeric.Z(), analytic.Z(), 1e-4, "t=%v Z", tt)
	}
}

func TestC1ContinuityAcrossSegmentJoints(t *testing.T) {
	curve, err := New(squareLoop())
	require.NoError(t, err)

	const eps = 1e-9
	n := float64(curve.Len())
	for i := 0; i < curve.Len(); i++ {
		joint := float64(i) / n
		before := curve.TangentAt(Wrap(joint - eps))
		after := curve.TangentAt(joint + eps)
		assert.InDelta(t, before.X(), after.X(), 1e-6, "joint %d X", i)
		assert.InDelta(t, before.Y(), after.Y(), 1e-6, "joint %d Y", i)
		assert.InDelta(t, before.Z(), after.Z(), 1e-6, "joint %d Z", i)
	}
}

func TestWrap(t *testing.T) {
	assert.Equal(t, 0.0, Wrap(0))
	assert.Equal(t, 0.25, Wrap(1.25))
	assert.InDelta(t, 0.75, Wrap(-0.25), 1e-12)
	assert.InDelta(t, 0.5, Wrap(-3.5), 1e-12)
	if got := Wrap(math.Nextafter(1, 0)); got >= 1 {
		t.Fatalf("Wrap must stay below 1, got %v", got)
	}
}
