package intake

import (
	"testing"
	"time"

	"nightdrive/server"
	"nightdrive/server/internal/net/proto"
	"nightdrive/server/internal/sim"
)

type fakeEngine struct {
	staged []sim.Command
	reject string
}

func (f *fakeEngine) Enqueue(cmd sim.Command) (bool, string) {
	if f.reject != "" {
		return false, f.reject
	}
	f.staged = append(f.staged, cmd)
	return true, ""
}

func TestStageClientCommandStampsMetadata(t *testing.T) {
	engine := &fakeEngine{}
	issued := time.UnixMilli(1_700_000_000_000)
	ctx := CommandContext{
		Engine:    engine,
		HasViewer: func(id string) bool { return id == "viewer-1" },
		Tick:      func() uint64 { return 42 },
		Now:       func() time.Time { return issued },
	}

	cmd, ok, reason := StageClientCommand(ctx, "viewer-1", proto.ClientMessage{Type: proto.TypeStart})
	if !ok {
		t.Fatalf("expected start to stage, got %q", reason)
	}
	if cmd.Type != sim.CommandStart || cmd.ActorID != "viewer-1" {
		t.Fatalf("unexpected command: %+v", cmd)
	}
	if cmd.OriginTick != 42 || !cmd.IssuedAt.Equal(issued) {
		t.Fatalf("origin metadata not stamped: %+v", cmd)
	}
	if len(engine.staged) != 1 {
		t.Fatalf("expected one staged command, got %d", len(engine.staged))
	}
}

func TestStageClientCommandRejectsUnknownViewer(t *testing.T) {
	ctx := CommandContext{
		Engine:    &fakeEngine{},
		HasViewer: func(string) bool { return false },
	}
	_, ok, reason := StageClientCommand(ctx, "ghost", proto.ClientMessage{Type: proto.TypeStop})
	if ok || reason != server.CommandRejectUnknownActor {
		t.Fatalf("expected unknown actor rejection, got ok=%v reason=%q", ok, reason)
	}
}

func TestStageClientCommandRejectsInvalidType(t *testing.T) {
	ctx := CommandContext{Engine: &fakeEngine{}}
	_, ok, reason := StageClientCommand(ctx, "viewer-1", proto.ClientMessage{Type: "warp"})
	if ok || reason != server.CommandRejectInvalidAction {
		t.Fatalf("expected invalid action rejection, got ok=%v reason=%q", ok, reason)
	}
}

func TestStageClientCommandPropagatesQueueRejection(t *testing.T) {
	ctx := CommandContext{Engine: &fakeEngine{reject: sim.CommandRejectQueueLimit}}
	_, ok, reason := StageClientCommand(ctx, "viewer-1", proto.ClientMessage{Type: proto.TypeStart})
	if ok || reason != sim.CommandRejectQueueLimit {
		t.Fatalf("expected queue rejection, got ok=%v reason=%q", ok, reason)
	}
}
