package scene

import "github.com/go-gl/mathgl/mgl64"

// Shape enumerates the primitive kinds the client knows how to build.
type Shape string

const (
	ShapeBox      Shape = "box"
	ShapeCylinder Shape = "cylinder"
	ShapePlane    Shape = "plane"
	ShapeSphere   Shape = "sphere"
)

// Palette names the client-side material a mesh instance is drawn with. The
// server never authors materials, only references them.
type Palette string

const (
	PaletteAsphalt    Palette = "asphalt"
	PaletteConcrete   Palette = "concrete"
	PaletteGlassDark  Palette = "glass_dark"
	PaletteWindowLit  Palette = "window_lit"
	PaletteCarBody    Palette = "car_body"
	PaletteCarTrim    Palette = "car_trim"
	PaletteRubber     Palette = "rubber"
	PaletteHeadlight  Palette = "headlight"
	PaletteTaillight  Palette = "taillight"
	PaletteLampGlow   Palette = "lamp_glow"
	PaletteLampPost   Palette = "lamp_post"
	PaletteDashboard  Palette = "dashboard"
	PaletteSteelDark  Palette = "steel_dark"
	PaletteMergedMask Palette = "merged"
)

// MeshInstance describes one primitive the client instantiates: shape, size,
// transform, and palette reference. Part names let the client bind animated
// pieces (the steering wheel) to per-frame state.
type MeshInstance struct {
	ID        string     `json:"id"`
	Part      string     `json:"part,omitempty"`
	Shape     Shape      `json:"shape"`
	Size      mgl64.Vec3 `json:"size"`
	Position  mgl64.Vec3 `json:"position"`
	RotationY float64    `json:"rotationY,omitempty"`
	Palette   Palette    `json:"palette"`
	Emissive  bool       `json:"emissive,omitempty"`

	// Merged carries the member instances of a batched mesh produced by the
	// merge optimizer; empty for plain instances.
	Merged []MeshInstance `json:"merged,omitempty"`
}
