package sim

// Engine defines the minimal surface area exposed to non-simulation callers.
type Engine interface {
	Deps() Deps
	Apply([]Command) error
	Step(dt float64)
	Snapshot() Snapshot
	Running() bool
	RecordKeyframe() (Keyframe, KeyframeRecordResult)
	LatestKeyframe() (Keyframe, bool)
	KeyframeBySequence(uint64) (Keyframe, bool)
	KeyframeWindow() (int, uint64, uint64)
}
