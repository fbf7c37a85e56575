// Package simulation holds the typed event helpers the tick loop publishes.
package simulation

import (
	"context"

	"nightdrive/server/logging"
)

const (
	// EventRunStateChanged is emitted when a start or stop command commits.
	EventRunStateChanged logging.EventType = "simulation.run_state_changed"
	// EventSceneBuilt is emitted once the static scene finishes assembly.
	EventSceneBuilt logging.EventType = "simulation.scene_built"
	// EventSceneDisposed is emitted when scene teardown completes.
	EventSceneDisposed logging.EventType = "simulation.scene_disposed"
	// EventTickBudgetOverrun is emitted when a tick exceeds its time budget.
	EventTickBudgetOverrun logging.EventType = "simulation.tick_budget_overrun"
)

// RunStatePayload captures a committed run-state transition.
type RunStatePayload struct {
	Running  bool    `json:"running"`
	Progress float64 `json:"progress"`
	Speed    float64 `json:"speed"`
}

// RunStateChanged publishes a start/stop transition.
func RunStateChanged(ctx context.Context, pub logging.Publisher, tick uint64, payload RunStatePayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRunStateChanged,
		Tick:     tick,
		Actor:    logging.EntityRef{ID: "rig", Kind: logging.EntityKindVehicle},
		Severity: logging.SeverityInfo,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}

// SceneBuiltPayload captures headline figures of the assembled scene.
type SceneBuiltPayload struct {
	Seed          string `json:"seed"`
	CityInstances int    `json:"cityInstances"`
	LampInstances int    `json:"lampInstances"`
	Merged        bool   `json:"merged"`
}

// SceneBuilt publishes the scene construction summary.
func SceneBuilt(ctx context.Context, pub logging.Publisher, payload SceneBuiltPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSceneBuilt,
		Actor:    logging.EntityRef{ID: payload.Seed, Kind: logging.EntityKindScene},
		Severity: logging.SeverityInfo,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}

// SceneDisposed publishes teardown completion, listing leaked resource
// groups when the release discipline was violated.
func SceneDisposed(ctx context.Context, pub logging.Publisher, leaked []string) {
	if pub == nil {
		return
	}
	severity := logging.SeverityInfo
	if len(leaked) > 0 {
		severity = logging.SeverityWarn
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSceneDisposed,
		Actor:    logging.EntityRef{Kind: logging.EntityKindScene},
		Severity: severity,
		Category: logging.CategorySimulation,
		Payload:  map[string]any{"leaked": leaked},
	})
}

// TickBudgetOverrunPayload captures timing details for a budget breach.
type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
}

// TickBudgetOverrun publishes a warning when a tick ran past its budget.
func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetOverrunPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTickBudgetOverrun,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindWorld},
		Severity: logging.SeverityWarn,
		Category: logging.CategorySimulation,
		Payload:  payload,
	})
}
