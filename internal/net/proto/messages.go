package proto

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"nightdrive/server/internal/scene"
	"nightdrive/server/internal/sim"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1

	// Type identifiers for outbound websocket payloads.
	typeCommandAck    = "commandAck"
	typeCommandReject = "commandReject"
	typeHeartbeat     = "heartbeat"
	typeFrame         = "frame"
	typeKeyframe      = "keyframe"
	typeKeyframeNack  = "keyframeNack"
)

// Client message type identifiers.
const (
	TypeStart       = "start"
	TypeStop        = "stop"
	TypeHeartbeat   = "heartbeat"
	TypeKeyframeReq = "keyframeRequest"
)

// Exported aliases for outbound message type identifiers.
const (
	TypeFrame        = typeFrame
	TypeKeyframe     = typeKeyframe
	TypeKeyframeNack = typeKeyframeNack
)

// ClientMessage captures an inbound websocket message from a viewer.
type ClientMessage struct {
	Ver         int     `json:"ver,omitempty"`
	Type        string  `json:"type"`
	SentAt      int64   `json:"sentAt,omitempty"`
	Ack         *uint64 `json:"ack,omitempty"`
	KeyframeSeq *uint64 `json:"keyframeSeq,omitempty"`
	CommandSeq  *uint64 `json:"seq,omitempty"`
}

// DecodeClientMessage converts raw websocket payloads into a structured
// message, rejecting protocol versions the server does not speak.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	return msg, nil
}

// ClientCommand maps an inbound message onto the structured simulation
// command it carries. Origin metadata is populated by the hub when the
// command is accepted for processing.
func ClientCommand(msg ClientMessage) (sim.Command, bool) {
	switch msg.Type {
	case TypeStart:
		return sim.Command{Type: sim.CommandStart}, true
	case TypeStop:
		return sim.Command{Type: sim.CommandStop}, true
	default:
		return sim.Command{}, false
	}
}

// CommandAck describes an acknowledgement of a processed command.
type CommandAck struct {
	Seq  uint64
	Tick uint64
}

// EncodeCommandAck renders a command acknowledgement response.
func EncodeCommandAck(msg CommandAck) ([]byte, error) {
	frame := struct {
		Ver  int    `json:"ver"`
		Type string `json:"type"`
		Seq  uint64 `json:"seq"`
		Tick uint64 `json:"tick,omitempty"`
	}{
		Ver:  Version,
		Type: typeCommandAck,
		Seq:  msg.Seq,
	}
	if msg.Tick > 0 {
		frame.Tick = msg.Tick
	}
	return json.Marshal(frame)
}

// CommandReject notifies the client that a command was refused.
type CommandReject struct {
	Seq    uint64
	Reason string
	Retry  bool
	Tick   uint64
}

// EncodeCommandReject renders a command rejection response.
func EncodeCommandReject(msg CommandReject) ([]byte, error) {
	frame := struct {
		Ver    int    `json:"ver"`
		Type   string `json:"type"`
		Seq    uint64 `json:"seq"`
		Reason string `json:"reason"`
		Retry  bool   `json:"retry,omitempty"`
		Tick   uint64 `json:"tick,omitempty"`
	}{
		Ver:    Version,
		Type:   typeCommandReject,
		Seq:    msg.Seq,
		Reason: msg.Reason,
	}
	if msg.Retry {
		frame.Retry = true
	}
	if msg.Tick > 0 {
		frame.Tick = msg.Tick
	}
	return json.Marshal(frame)
}

// Heartbeat echoes timing metadata back to the client.
type Heartbeat struct {
	ServerTime int64
	ClientTime int64
	RTTMillis  int64
}

// EncodeHeartbeat renders a heartbeat acknowledgement payload.
func EncodeHeartbeat(msg Heartbeat) ([]byte, error) {
	frame := struct {
		Ver        int    `json:"ver"`
		Type       string `json:"type"`
		ServerTime int64  `json:"serverTime"`
		ClientTime int64  `json:"clientTime"`
		RTTMillis  int64  `json:"rtt"`
	}{
		Ver:        Version,
		Type:       typeHeartbeat,
		ServerTime: msg.ServerTime,
		ClientTime: msg.ClientTime,
		RTTMillis:  msg.RTTMillis,
	}
	return json.Marshal(frame)
}

// FrameV1 captures the version 1 per-tick frame payload: everything the
// renderer needs to pose the camera rig and paint the HUD speed readout.
type FrameV1 struct {
	Ver              int          `json:"ver"`
	Type             string       `json:"type"`
	Tick             uint64       `json:"t"`
	KeyframeSeq      uint64       `json:"keyframeSeq,omitempty"`
	ServerTime       int64        `json:"serverTime"`
	State            sim.Snapshot `json:"state"`
	KeyframeInterval int          `json:"keyframeInterval,omitempty"`
}

// ProtoFrame tags the struct as a websocket frame payload.
func (FrameV1) ProtoFrame() {}

// EncodeFrameV1 renders a versioned frame payload.
func EncodeFrameV1(msg FrameV1) ([]byte, error) {
	if msg.Type == "" {
		msg.Type = typeFrame
	}
	msg.Ver = Version
	return json.Marshal(msg)
}

// JoinResponseV1 captures the version 1 join response layout. The static
// scene rides along so the client can upload geometry once and then render
// from frame payloads alone.
type JoinResponseV1 struct {
	Ver              int                  `json:"ver"`
	ID               string               `json:"id"`
	TrackPoints      []mgl64.Vec3         `json:"trackPoints"`
	City             []scene.MeshInstance `json:"city"`
	Lamps            []scene.MeshInstance `json:"lamps"`
	Vehicle          []scene.MeshInstance `json:"vehicle"`
	Config           sim.CoreConfig       `json:"config"`
	State            sim.Snapshot         `json:"state"`
	KeyframeInterval int                  `json:"keyframeInterval,omitempty"`
}

// ProtoJoinResponse tags the struct as a join response payload.
func (JoinResponseV1) ProtoJoinResponse() {}

// EncodeJoinResponseV1 renders a versioned join response payload.
func EncodeJoinResponseV1(msg JoinResponseV1) ([]byte, error) {
	msg.Ver = Version
	return json.Marshal(msg)
}

// KeyframeV1 captures the version 1 resync payload layout.
type KeyframeV1 struct {
	Ver         int          `json:"ver"`
	Type        string       `json:"type"`
	Sequence    uint64       `json:"sequence"`
	Tick        uint64       `json:"t"`
	State       sim.Snapshot `json:"state"`
	SceneConfig scene.Config `json:"sceneConfig"`
	RecordedAt  int64        `json:"recordedAt"`
}

// ProtoKeyframe tags the struct as a keyframe payload.
func (KeyframeV1) ProtoKeyframe() {}

// EncodeKeyframeV1 renders a versioned keyframe payload.
func EncodeKeyframeV1(msg KeyframeV1) ([]byte, error) {
	if msg.Type == "" {
		msg.Type = typeKeyframe
	}
	msg.Ver = Version
	return json.Marshal(msg)
}

// KeyframeNackV1 tells the client a requested keyframe is gone and whether a
// fresh one is on the way.
type KeyframeNackV1 struct {
	Ver      int    `json:"ver"`
	Type     string `json:"type"`
	Sequence uint64 `json:"sequence"`
	Reason   string `json:"reason"`
	Resync   bool   `json:"resync,omitempty"`
}

// ProtoKeyframeNack tags the struct as a keyframe nack payload.
func (KeyframeNackV1) ProtoKeyframeNack() {}

// EncodeKeyframeNackV1 renders a versioned keyframe nack payload.
func EncodeKeyframeNackV1(msg KeyframeNackV1) ([]byte, error) {
	if msg.Type == "" {
		msg.Type = typeKeyframeNack
	}
	msg.Ver = Version
	return json.Marshal(msg)
}
