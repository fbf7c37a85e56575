package track

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// MinControlPoints is the smallest loop a curve can be built from.
const MinControlPoints = 3

// ErrTooFewPoints is returned when a curve is constructed from fewer than
// MinControlPoints control points.
var ErrTooFewPoints = errors.New("track: curve requires at least 3 control points")

// Curve is a closed Catmull-Rom spline through an ordered set of control
// points. The parameter t is interpreted modulo 1, so every real t maps onto
// the loop; t and t+1 describe the same point. A curve is immutable after
// construction.
type Curve struct {
	points []mgl64.Vec3
}

// New builds a closed curve through the provided control points. The slice is
// copied so later mutation by the caller cannot affect the curve.
func New(points []mgl64.Vec3) (*Curve, error) {
	if len(points) < MinControlPoints {
		return nil, ErrTooFewPoints
	}
	copied := make([]mgl64.Vec3, len(points))
	copy(copied, points)
	return &Curve{points: copied}, nil
}

// Len reports the number of control points.
func (c *Curve) Len() int {
	if c == nil {
		return 0
	}
	return len(c.points)
}

// ControlPoints returns a copy of the control points in loop order.
func (c *Curve) ControlPoints() []mgl64.Vec3 {
	if c == nil {
		return nil
	}
	copied := make([]mgl64.Vec3, len(c.points))
	copy(copied, c.points)
	return copied
}

// PositionAt evaluates the spline at the wrapped parameter t.
func (c *Curve) PositionAt(t float64) mgl64.Vec3 {
	segment, u := c.locate(t)
	p0, p1, p2, p3 := c.segmentPoints(segment)

	u2 := u * u
	u3 := u2 * u

	// Uniform Catmull-Rom basis, tension 0.5.
	w0 := -0.5*u3 + u2 - 0.5*u
	w1 := 1.5*u3 - 2.5*u2 + 1
	w2 := -1.5*u3 + 2*u2 + 0.5*u
	w3 := 0.5*u3 - 0.5*u2

	return p0.Mul(w0).Add(p1.Mul(w1)).Add(p2.Mul(w2)).Add(p3.Mul(w3))
}

// TangentAt evaluates the unit tangent of the spline at the wrapped
// parameter t, pointing in the direction of increasing t.
func (c *Curve) TangentAt(t float64) mgl64.Vec3 {
	segment, u := c.locate(t)
	p0, p1, p2, p3 := c.segmentPoints(segment)

	u2 := u * u

	// Analytic derivative of the Catmull-Rom basis.
	w0 := -1.5*u2 + 2*u - 0.5
	w1 := 4.5*u2 - 5*u
	w2 := -4.5*u2 + 4*u + 0.5
	w3 := 1.5*u2 - u

	d := p0.Mul(w0).Add(p1.Mul(w1)).Add(p2.Mul(w2)).Add(p3.Mul(w3))
	if length := d.Len(); length > 0 {
		return d.Mul(1 / length)
	}
	return d
}

// Wrap maps any real parameter onto [0,1) with a floored modulo, so negative
// inputs stay defined.
func Wrap(t float64) float64 {
	wrapped := math.Mod(t, 1)
	if wrapped < 0 {
		wrapped++
	}
	return wrapped
}

// locate maps t onto a control-point segment index and the local parameter
// within it.
func (c *Curve) locate(t float64) (int, float64) {
	scaled := Wrap(t) * float64(len(c.points))
	segment := int(math.Floor(scaled))
	if segment >= len(c.points) {
		segment = len(c.points) - 1
	}
	return segment, scaled - float64(segment)
}

// segmentPoints returns the four control points governing a segment, wrapping
// indices across the loop boundary.
func (c *Curve) segmentPoints(segment int) (mgl64.Vec3, mgl64.Vec3, mgl64.Vec3, mgl64.Vec3) {
	n := len(c.points)
	p0 := c.points[(segment-1+n)%n]
	p1 := c.points[segment%n]
	p2 := c.points[(segment+1)%n]
	p3 := c.points[(segment+2)%n]
	return p0, p1, p2, p3
}
