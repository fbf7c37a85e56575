package ws

import (
	"time"

	"github.com/gorilla/websocket"

	"nightdrive/server"
	"nightdrive/server/internal/net/intake"
	"nightdrive/server/internal/net/proto"
	"nightdrive/server/internal/sim"
	"nightdrive/server/internal/telemetry"
)

// subscription is the slice of the hub's per-connection state a session
// writes through.
type subscription interface {
	WriteMessage(messageType int, data []byte) error
	LastCommandSeq() uint64
	StoreLastCommandSeq(seq uint64)
}

// session pumps one viewer's websocket: decoding inbound messages, staging
// commands, and answering with acks, heartbeats, and keyframes.
type session struct {
	hub      *server.Hub
	logger   telemetry.Logger
	viewerID string
	conn     *websocket.Conn
	sub      subscription
}

func (s *session) run() {
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.hub.Disconnect(s.viewerID)
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			s.logf("discarding malformed message from %s: %v", s.viewerID, err)
			continue
		}

		if msg.Ack != nil {
			s.hub.RecordAck(s.viewerID, *msg.Ack)
		}

		seq := uint64(0)
		if msg.CommandSeq != nil && *msg.CommandSeq > 0 {
			seq = *msg.CommandSeq
		}

		switch msg.Type {
		case proto.TypeStart, proto.TypeStop:
			if !s.handleCommand(msg, seq) {
				return
			}
		case proto.TypeHeartbeat:
			if !s.handleHeartbeat(msg) {
				return
			}
		case proto.TypeKeyframeReq:
			if msg.KeyframeSeq == nil {
				continue
			}
			if !s.handleKeyframeRequest(*msg.KeyframeSeq) {
				return
			}
		default:
			s.logf("unknown message type %q from %s", msg.Type, s.viewerID)
		}
	}
}

// handleCommand stages a start/stop command, deduplicating retransmits by
// sequence number. It returns false when the session must end.
func (s *session) handleCommand(msg proto.ClientMessage, seq uint64) bool {
	if seq > 0 {
		if last := s.sub.LastCommandSeq(); last > 0 && seq <= last {
			return s.sendAck(seq, 0, false)
		}
	}

	cmd, ok, reason := intake.StageClientCommand(intake.CommandContext{
		Engine:    s.hub.Engine(),
		HasViewer: s.hub.HasViewer,
		Tick:      s.hub.Tick,
		Now:       time.Now,
	}, s.viewerID, msg)

	if seq == 0 {
		if !ok && reason == server.CommandRejectUnknownActor {
			s.logf("command ignored for unknown viewer %s", s.viewerID)
		}
		return true
	}

	if ok {
		return s.sendAck(seq, cmd.OriginTick, true)
	}

	retry := reason == sim.CommandRejectQueueLimit
	data, err := proto.EncodeCommandReject(proto.CommandReject{Seq: seq, Reason: reason, Retry: retry})
	if err != nil {
		s.logf("failed to marshal reject for %s: %v", s.viewerID, err)
		return true
	}
	return s.write(data)
}

func (s *session) sendAck(seq, tick uint64, advance bool) bool {
	data, err := proto.EncodeCommandAck(proto.CommandAck{Seq: seq, Tick: tick})
	if err != nil {
		s.logf("failed to marshal ack for %s: %v", s.viewerID, err)
		return true
	}
	if !s.write(data) {
		return false
	}
	if advance {
		s.sub.StoreLastCommandSeq(seq)
	}
	return true
}

func (s *session) handleHeartbeat(msg proto.ClientMessage) bool {
	now := time.Now()
	rtt, ok := s.hub.UpdateHeartbeat(s.viewerID, now, msg.SentAt)
	if !ok {
		return true
	}
	data, err := proto.EncodeHeartbeat(proto.Heartbeat{
		ServerTime: now.UnixMilli(),
		ClientTime: msg.SentAt,
		RTTMillis:  rtt.Milliseconds(),
	})
	if err != nil {
		s.logf("failed to marshal heartbeat ack for %s: %v", s.viewerID, err)
		return true
	}
	return s.write(data)
}

func (s *session) handleKeyframeRequest(sequence uint64) bool {
	keyframe, nack, ok := s.hub.HandleKeyframeRequest(s.viewerID, sequence)
	if !ok {
		return true
	}
	var data []byte
	var err error
	if nack != nil {
		data, err = proto.EncodeKeyframeNackV1(*nack)
	} else {
		data, err = proto.EncodeKeyframeV1(keyframe)
	}
	if err != nil {
		s.logf("failed to marshal keyframe for %s: %v", s.viewerID, err)
		return true
	}
	return s.write(data)
}

// write sends a payload, tearing the session down on failure.
func (s *session) write(data []byte) bool {
	if err := s.sub.WriteMessage(websocket.TextMessage, data); err != nil {
		s.hub.Disconnect(s.viewerID)
		return false
	}
	return true
}

func (s *session) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
