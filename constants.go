package server

import "time"

const (
	ProtocolVersion = 1

	writeWait         = 10 * time.Second
	heartbeatInterval = 2 * time.Second
	disconnectAfter   = 3 * heartbeatInterval

	// defaultKeyframeInterval is the resync keyframe cadence in ticks.
	defaultKeyframeInterval = 120
	maxKeyframeInterval     = 600

	// keyframeRequestMinGap rate-limits per-viewer keyframe requests.
	keyframeRequestMinGap = 250 * time.Millisecond
)

// Command rejection reasons reported to clients alongside the queue-level
// reasons defined by the sim package.
const (
	CommandRejectUnknownActor  = "unknown_actor"
	CommandRejectInvalidAction = "invalid_action"
)

// HeartbeatInterval reports the cadence clients are expected to ping at.
func HeartbeatInterval() time.Duration {
	return heartbeatInterval
}
