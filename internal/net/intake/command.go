// Package intake validates inbound client messages and stages the commands
// they carry onto the simulation queue.
package intake

import (
	"time"

	"nightdrive/server"
	"nightdrive/server/internal/net/proto"
	"nightdrive/server/internal/sim"
)

// Engine is the slice of the loop the intake pipeline needs.
type Engine interface {
	Enqueue(sim.Command) (bool, string)
}

// CommandContext carries the hub accessors used to validate and stamp a
// staged command.
type CommandContext struct {
	Engine    Engine
	HasViewer func(string) bool
	Tick      func() uint64
	Now       func() time.Time
}

// StageClientCommand validates the message, stamps origin metadata, and
// enqueues the command. It returns the staged command, whether staging
// succeeded, and the rejection reason when it did not.
func StageClientCommand(ctx CommandContext, viewerID string, msg proto.ClientMessage) (sim.Command, bool, string) {
	var zero sim.Command

	command, ok := proto.ClientCommand(msg)
	if !ok {
		return zero, false, server.CommandRejectInvalidAction
	}

	if ctx.HasViewer != nil && !ctx.HasViewer(viewerID) {
		return zero, false, server.CommandRejectUnknownActor
	}

	command.ActorID = viewerID
	if ctx.Tick != nil {
		command.OriginTick = ctx.Tick()
	}
	if ctx.Now != nil {
		command.IssuedAt = ctx.Now()
	} else {
		command.IssuedAt = time.Now()
	}

	if ctx.Engine == nil {
		return zero, false, sim.CommandRejectQueueFull
	}
	if ok, reason := ctx.Engine.Enqueue(command); !ok {
		return zero, false, reason
	}

	return command, true, ""
}
