package sim

import (
	"sync"
	"time"

	"nightdrive/server/internal/scene"
)

// Keyframe captures the immutable resync snapshot stored in the journal.
type Keyframe struct {
	Tick        uint64       `json:"tick"`
	Sequence    uint64       `json:"sequence"`
	Snapshot    Snapshot     `json:"snapshot"`
	SceneConfig scene.Config `json:"sceneConfig"`
	RecordedAt  time.Time    `json:"recordedAt"`
}

// KeyframeEviction describes a keyframe dropped from the journal and why.
type KeyframeEviction struct {
	Sequence uint64 `json:"sequence"`
	Tick     uint64 `json:"tick"`
	Reason   string `json:"reason,omitempty"`
}

// KeyframeRecordResult reports journal state after storing a keyframe.
type KeyframeRecordResult struct {
	Size           int                `json:"size"`
	OldestSequence uint64             `json:"oldestSequence"`
	NewestSequence uint64             `json:"newestSequence"`
	Evicted        []KeyframeEviction `json:"evicted,omitempty"`
}

const evictReasonCapacity = "capacity"

// keyframeJournal is a bounded ring of recent keyframes viewers can resync
// from without a full rejoin.
type keyframeJournal struct {
	mu       sync.Mutex
	capacity int
	frames   []Keyframe
	nextSeq  uint64
}

func newKeyframeJournal(capacity int) *keyframeJournal {
	if capacity < 1 {
		capacity = 1
	}
	return &keyframeJournal{capacity: capacity}
}

func (j *keyframeJournal) record(frame Keyframe) KeyframeRecordResult {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.nextSeq++
	frame.Sequence = j.nextSeq
	j.frames = append(j.frames, frame)

	var evicted []KeyframeEviction
	for len(j.frames) > j.capacity {
		oldest := j.frames[0]
		j.frames = j.frames[1:]
		evicted = append(evicted, KeyframeEviction{
			Sequence: oldest.Sequence,
			Tick:     oldest.Tick,
			Reason:   evictReasonCapacity,
		})
	}

	return KeyframeRecordResult{
		Size:           len(j.frames),
		OldestSequence: j.frames[0].Sequence,
		NewestSequence: j.frames[len(j.frames)-1].Sequence,
		Evicted:        evicted,
	}
}

func (j *keyframeJournal) bySequence(sequence uint64) (Keyframe, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, frame := range j.frames {
		if frame.Sequence == sequence {
			return frame, true
		}
	}
	return Keyframe{}, false
}

func (j *keyframeJournal) latest() (Keyframe, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.frames) == 0 {
		return Keyframe{}, false
	}
	return j.frames[len(j.frames)-1], true
}

func (j *keyframeJournal) window() (int, uint64, uint64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.frames) == 0 {
		return 0, 0, 0
	}
	return len(j.frames), j.frames[0].Sequence, j.frames[len(j.frames)-1].Sequence
}
