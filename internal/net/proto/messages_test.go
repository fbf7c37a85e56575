package proto

import (
	"encoding/json"
	"testing"

	"nightdrive/server/internal/sim"
)

func TestClientCommand(t *testing.T) {
	t.Run("start command", func(t *testing.T) {
		cmd, ok := ClientCommand(ClientMessage{Type: TypeStart})
		if !ok {
			t.Fatalf("expected start command to be recognized")
		}
		if cmd.Type != sim.CommandStart {
			t.Fatalf("expected start command type, got %q", cmd.Type)
		}
	})

	t.Run("stop command", func(t *testing.T) {
		cmd, ok := ClientCommand(ClientMessage{Type: TypeStop})
		if !ok {
			t.Fatalf("expected stop command to be recognized")
		}
		if cmd.Type != sim.CommandStop {
			t.Fatalf("expected stop command type, got %q", cmd.Type)
		}
	})

	t.Run("heartbeat is not a simulation command", func(t *testing.T) {
		if _, ok := ClientCommand(ClientMessage{Type: TypeHeartbeat}); ok {
			t.Fatalf("expected heartbeat to be handled outside the command pipeline")
		}
	})

	t.Run("unknown type rejected", func(t *testing.T) {
		if _, ok := ClientCommand(ClientMessage{Type: "teleport"}); ok {
			t.Fatalf("expected unknown message type to be rejected")
		}
	})
}

func TestDecodeClientMessage(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"start","seq":7}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Ver != Version {
		t.Fatalf("expected default version %d, got %d", Version, msg.Ver)
	}
	if msg.CommandSeq == nil || *msg.CommandSeq != 7 {
		t.Fatalf("unexpected command seq: %+v", msg.CommandSeq)
	}

	if _, err := DecodeClientMessage([]byte(`{"ver":99,"type":"start"}`)); err == nil {
		t.Fatalf("expected unsupported version to be rejected")
	}

	if _, err := DecodeClientMessage([]byte(`{not json`)); err == nil {
		t.Fatalf("expected malformed payload to be rejected")
	}
}

func TestEncodeCommandAckOmitsZeroTick(t *testing.T) {
	data, err := EncodeCommandAck(CommandAck{Seq: 3})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["type"] != "commandAck" {
		t.Fatalf("unexpected type: %v", decoded["type"])
	}
	if _, present := decoded["tick"]; present {
		t.Fatalf("expected zero tick to be omitted, got %v", decoded)
	}
}

func TestEncodeFrameV1StampsVersionAndType(t *testing.T) {
	data, err := EncodeFrameV1(FrameV1{
		Tick:  42,
		State: sim.Snapshot{Tick: 42, Running: true, Speed: 12.5},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded struct {
		Ver   int    `json:"ver"`
		Type  string `json:"type"`
		Tick  uint64 `json:"t"`
		State struct {
			Running bool    `json:"running"`
			Speed   float64 `json:"speed"`
		} `json:"state"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Ver != Version || decoded.Type != TypeFrame {
		t.Fatalf("unexpected envelope: %+v", decoded)
	}
	if decoded.Tick != 42 || !decoded.State.Running || decoded.State.Speed != 12.5 {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
}

func TestEncodeKeyframeNackV1(t *testing.T) {
	data, err := EncodeKeyframeNackV1(KeyframeNackV1{Sequence: 9, Reason: "expired", Resync: true})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded KeyframeNackV1
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Type != TypeKeyframeNack || decoded.Sequence != 9 || !decoded.Resync {
		t.Fatalf("unexpected nack: %+v", decoded)
	}
}
