package sim

import (
	"github.com/go-gl/mathgl/mgl64"

	"nightdrive/server/internal/rig"
)

// Snapshot captures the per-tick state exposed to non-simulation callers:
// the frame payload a viewer renders plus the HUD speed readout.
type Snapshot struct {
	Tick            uint64           `json:"tick"`
	Running         bool             `json:"running"`
	Progress        float64          `json:"progress"`
	Speed           float64          `json:"speed"`
	Vehicle         rig.VehicleFrame `json:"vehicle"`
	Camera          rig.CameraPose   `json:"camera"`
	SteerAngle      float64          `json:"steerAngle"`
	Shake           mgl64.Vec3       `json:"shake"`
	Particles       []mgl64.Vec3     `json:"particles,omitempty"`
	ParticleOpacity float64          `json:"particleOpacity"`
}
