package scene

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"nightdrive/server/internal/track"
)

const (
	buildingFloorHeight = 3.2
	windowColumnsPerRow = 2
	windowSize          = 1.1
	lampHeight          = 7.5
	lampLateralOffset   = 9.0

	// Lots whose center falls inside this radial band would collide with the
	// road loop, so the generator leaves them empty.
	trackBandInner = 58.0
	trackBandOuter = 100.0
)

// BuildCity lays out the building grid around the road loop. Footprints,
// heights, and palettes come from the injected RNG; window lights from a
// second stream so tweaking one knob never reshuffles the other.
func BuildCity(cfg Config, buildings, windows *rand.Rand) []MeshInstance {
	cfg = cfg.Normalized()
	pitch := cfg.LotSize + cfg.StreetWidth
	half := float64(cfg.BlocksPerSide-1) * pitch / 2

	instances := make([]MeshInstance, 0, cfg.BlocksPerSide*cfg.BlocksPerSide)
	for row := 0; row < cfg.BlocksPerSide; row++ {
		for col := 0; col < cfg.BlocksPerSide; col++ {
			cx := float64(col)*pitch - half
			cz := float64(row)*pitch - half

			radius := math.Hypot(cx, cz)
			if radius > trackBandInner && radius < trackBandOuter {
				continue
			}

			floors := 3 + buildings.Intn(cfg.MaxFloors-2)
			height := float64(floors) * buildingFloorHeight
			width := cfg.LotSize * (0.6 + buildings.Float64()*0.35)
			depth := cfg.LotSize * (0.6 + buildings.Float64()*0.35)
			palette := PaletteConcrete
			if buildings.Float64() < 0.4 {
				palette = PaletteGlassDark
			}

			id := fmt.Sprintf("building-%d-%d", row, col)
			instances = append(instances, MeshInstance{
				ID:       id,
				Shape:    ShapeBox,
				Size:     mgl64.Vec3{width, height, depth},
				Position: mgl64.Vec3{cx, height / 2, cz},
				Palette:  palette,
			})
			instances = append(instances, litWindows(id, cx, cz, width, depth, floors, cfg.WindowLitChance, windows)...)
		}
	}
	return instances
}

// litWindows emits emissive planes for the subset of window slots that roll
// lit. Only lit windows become instances; dark ones are the facade itself.
func litWindows(buildingID string, cx, cz, width, depth float64, floors int, litChance float64, rng *rand.Rand) []MeshInstance {
	var lit []MeshInstance
	for floor := 0; floor < floors; floor++ {
		y := float64(floor)*buildingFloorHeight + buildingFloorHeight/2
		for column := 0; column < windowColumnsPerRow; column++ {
			offset := (float64(column) - float64(windowColumnsPerRow-1)/2) * width * 0.4
			// Two opposing facades keep the instance count bounded; the far
			// sides of a building are never visible from the road loop.
			for side, z := range []float64{cz - depth/2 - 0.01, cz + depth/2 + 0.01} {
				if rng.Float64() >= litChance {
					continue
				}
				lit = append(lit, MeshInstance{
					ID:       fmt.Sprintf("%s-w%d-%d-%d", buildingID, floor, column, side),
					Shape:    ShapePlane,
					Size:     mgl64.Vec3{windowSize, windowSize, 0},
					Position: mgl64.Vec3{cx + offset, y, z},
					Palette:  PaletteWindowLit,
					Emissive: true,
				})
			}
		}
	}
	return lit
}

// BuildLamps places street lamps at fixed arc intervals along the loop,
// offset to the outside of the road.
func BuildLamps(curve *track.Curve, cfg Config) []MeshInstance {
	cfg = cfg.Normalized()
	count := int(1 / cfg.LampSpacing)
	if count < 1 {
		count = 1
	}

	lamps := make([]MeshInstance, 0, count*2)
	for i := 0; i < count; i++ {
		t := float64(i) * cfg.LampSpacing
		position := curve.PositionAt(t)
		tangent := curve.TangentAt(t)
		// Outward lateral: rotate the horizontal tangent a quarter turn.
		lateral := mgl64.Vec3{-tangent.Z(), 0, tangent.X()}
		if length := lateral.Len(); length > 0 {
			lateral = lateral.Mul(lampLateralOffset / length)
		}
		base := position.Add(lateral)

		lamps = append(lamps,
			MeshInstance{
				ID:       fmt.Sprintf("lamp-post-%d", i),
				Shape:    ShapeCylinder,
				Size:     mgl64.Vec3{0.18, lampHeight, 0.18},
				Position: mgl64.Vec3{base.X(), lampHeight / 2, base.Z()},
				Palette:  PaletteLampPost,
			},
			MeshInstance{
				ID:       fmt.Sprintf("lamp-glow-%d", i),
				Shape:    ShapeSphere,
				Size:     mgl64.Vec3{0.5, 0.5, 0.5},
				Position: mgl64.Vec3{base.X(), lampHeight, base.Z()},
				Palette:  PaletteLampGlow,
				Emissive: true,
			},
		)
	}
	return lamps
}
