package sim

import "time"

// CommandType enumerates the supported simulation commands.
type CommandType string

const (
	// CommandStart boots or resumes the drive from the last committed
	// motion state.
	CommandStart CommandType = "Start"
	// CommandStop halts frame advancement, preserving the motion state.
	CommandStop CommandType = "Stop"
	// CommandHeartbeat updates connectivity metadata for a viewer.
	CommandHeartbeat CommandType = "Heartbeat"
)

// HeartbeatCommand carries connectivity metadata for a viewer.
type HeartbeatCommand struct {
	ReceivedAt time.Time     `json:"receivedAt"`
	ClientSent int64         `json:"clientSent"`
	RTT        time.Duration `json:"rtt"`
}

// Command represents an intent captured for processing on the next tick.
type Command struct {
	OriginTick uint64            `json:"originTick"`
	ActorID    string            `json:"actorId"`
	Type       CommandType       `json:"type"`
	IssuedAt   time.Time         `json:"issuedAt"`
	Heartbeat  *HeartbeatCommand `json:"heartbeat,omitempty"`
}
