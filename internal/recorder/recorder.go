// Package recorder persists a per-tick frame trace to sqlite for offline
// inspection of a run. Recording is strictly off the simulation goroutine:
// the loop hook only enqueues, and a writer goroutine batches inserts.
package recorder

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"nightdrive/server/internal/sim"
	"nightdrive/server/internal/telemetry"
)

const (
	defaultQueueSize  = 1024
	defaultBatchSize  = 64
	defaultFlushEvery = time.Second
)

// Status values reported to diagnostics.
const (
	StatusDisabled  = "disabled"
	StatusRecording = "recording"
	StatusClosed    = "closed"
)

// Config controls the recorder. A disabled recorder accepts frames and drops
// them without touching the filesystem.
type Config struct {
	Enabled bool
	DSN     string
}

// FrameRow is one persisted tick.
type FrameRow struct {
	ID         uint   `gorm:"primarykey"`
	Tick       uint64 `gorm:"index"`
	Running    bool
	Progress   float64
	Speed      float64
	SteerAngle float64
	StepMicros int64
	RecordedAt time.Time
}

// TableName pins the sqlite table name.
func (FrameRow) TableName() string {
	return "frames"
}

// Recorder owns the sqlite handle and the writer goroutine.
type Recorder struct {
	db     *gorm.DB
	logger telemetry.Logger

	frames chan FrameRow
	done   chan struct{}

	// mu guards closed against the enqueue path: Close may not close the
	// frames channel while a RecordFrame send is in flight.
	mu     sync.RWMutex
	closed bool

	enabled bool
	written atomic.Uint64
	dropped atomic.Uint64
}

// New opens the sqlite database at cfg.DSN and starts the writer. A disabled
// config returns a no-op recorder and never touches the DSN.
func New(cfg Config, log telemetry.Logger) (*Recorder, error) {
	if log == nil {
		log = telemetry.LoggerFunc(func(string, ...any) {})
	}
	if !cfg.Enabled {
		return &Recorder{logger: log}, nil
	}

	db, err := gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        defaultBatchSize,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("recorder: open %q: %w", cfg.DSN, err)
	}
	if err := db.AutoMigrate(&FrameRow{}); err != nil {
		return nil, fmt.Errorf("recorder: migrate: %w", err)
	}

	rec := &Recorder{
		db:      db,
		logger:  log,
		enabled: true,
		frames:  make(chan FrameRow, defaultQueueSize),
		done:    make(chan struct{}),
	}
	go rec.run()
	return rec, nil
}

// RecordFrame enqueues one tick for persistence. Frames are dropped rather
// than blocking when the writer falls behind.
func (r *Recorder) RecordFrame(result sim.LoopStepResult) {
	if r == nil || !r.enabled {
		return
	}
	row := FrameRow{
		Tick:       result.Tick,
		Running:    result.Snapshot.Running,
		Progress:   result.Snapshot.Progress,
		Speed:      result.Snapshot.Speed,
		SteerAngle: result.Snapshot.SteerAngle,
		StepMicros: result.Duration.Microseconds(),
		RecordedAt: result.Now,
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.frames <- row:
	default:
		if dropped := r.dropped.Add(1); dropped&(dropped-1) == 0 {
			r.logger.Printf("recorder: writer behind, dropped %d frames", dropped)
		}
	}
}

// Status reports the recorder state for diagnostics.
func (r *Recorder) Status() string {
	if r == nil || !r.enabled {
		return StatusDisabled
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return StatusClosed
	}
	return StatusRecording
}

// Written reports the number of frames flushed to sqlite.
func (r *Recorder) Written() uint64 {
	if r == nil {
		return 0
	}
	return r.written.Load()
}

// Dropped reports the number of frames discarded under backpressure.
func (r *Recorder) Dropped() uint64 {
	if r == nil {
		return 0
	}
	return r.dropped.Load()
}

// Close stops accepting frames, waits for the writer to drain, and returns
// once everything enqueued so far is flushed or ctx expires.
func (r *Recorder) Close(ctx context.Context) error {
	if r == nil || !r.enabled {
		return nil
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.frames)
	r.mu.Unlock()
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("recorder: close: %w", ctx.Err())
	}
}

func (r *Recorder) run() {
	defer close(r.done)

	batch := make([]FrameRow, 0, defaultBatchSize)
	ticker := time.NewTicker(defaultFlushEvery)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := r.db.Create(&batch).Error; err != nil {
			r.logger.Printf("recorder: insert %d frames: %v", len(batch), err)
		} else {
			r.written.Add(uint64(len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case row, ok := <-r.frames:
			if !ok {
				flush()
				return
			}
			batch = append(batch, row)
			if len(batch) >= defaultBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
