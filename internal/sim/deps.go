package sim

import (
	"nightdrive/server/internal/telemetry"
	"nightdrive/server/logging"
)

// Deps carries shared infrastructure dependencies required by the simulation
// engine. Every field is optional; nil dependencies degrade to no-ops.
type Deps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Clock     logging.Clock
	Publisher logging.Publisher
}
