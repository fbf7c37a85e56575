package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Part names the client binds per-frame state to.
const (
	PartBody          = "body"
	PartSteeringWheel = "steering_wheel"
	PartWheel         = "wheel"
)

// BuildVehicle assembles the procedural car as primitives in the vehicle's
// local frame: nose along +X, Y up, origin under the body center at road
// level. The layout is fixed; only the rig moves it.
func BuildVehicle() []MeshInstance {
	parts := []MeshInstance{
		{
			ID:       "car-body",
			Part:     PartBody,
			Shape:    ShapeBox,
			Size:     mgl64.Vec3{4.2, 0.65, 1.9},
			Position: mgl64.Vec3{0, 0.62, 0},
			Palette:  PaletteCarBody,
		},
		{
			ID:       "car-cabin",
			Shape:    ShapeBox,
			Size:     mgl64.Vec3{2.0, 0.62, 1.7},
			Position: mgl64.Vec3{-0.35, 1.22, 0},
			Palette:  PaletteGlassDark,
		},
		{
			ID:       "car-dashboard",
			Shape:    ShapeBox,
			Size:     mgl64.Vec3{0.28, 0.22, 1.6},
			Position: mgl64.Vec3{0.62, 1.02, 0},
			Palette:  PaletteDashboard,
		},
		{
			ID:       "car-steering-wheel",
			Part:     PartSteeringWheel,
			Shape:    ShapeCylinder,
			Size:     mgl64.Vec3{0.38, 0.04, 0.38},
			Position: mgl64.Vec3{0.48, 1.08, -0.42},
			Palette:  PaletteSteelDark,
		},
	}

	// Wheels: front pair leads the nose (+X), left side is -Z.
	wheelOffsets := []mgl64.Vec3{
		{1.35, 0.34, -0.88},
		{1.35, 0.34, 0.88},
		{-1.35, 0.34, -0.88},
		{-1.35, 0.34, 0.88},
	}
	for i, offset := range wheelOffsets {
		parts = append(parts, MeshInstance{
			ID:       fmt.Sprintf("car-wheel-%d", i),
			Part:     PartWheel,
			Shape:    ShapeCylinder,
			Size:     mgl64.Vec3{0.68, 0.3, 0.68},
			Position: offset,
			Palette:  PaletteRubber,
		})
	}

	// Light pairs share sizes; only sign of Z and palette differ.
	for i, z := range []float64{-0.62, 0.62} {
		parts = append(parts,
			MeshInstance{
				ID:       fmt.Sprintf("car-headlight-%d", i),
				Shape:    ShapeBox,
				Size:     mgl64.Vec3{0.06, 0.16, 0.34},
				Position: mgl64.Vec3{2.11, 0.68, z},
				Palette:  PaletteHeadlight,
				Emissive: true,
			},
			MeshInstance{
				ID:       fmt.Sprintf("car-taillight-%d", i),
				Shape:    ShapeBox,
				Size:     mgl64.Vec3{0.06, 0.14, 0.4},
				Position: mgl64.Vec3{-2.11, 0.72, z},
				Palette:  PaletteTaillight,
				Emissive: true,
			},
		)
	}

	return parts
}
