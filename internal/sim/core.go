package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"nightdrive/server/internal/effects"
	"nightdrive/server/internal/rig"
	"nightdrive/server/internal/scene"
	"nightdrive/server/internal/track"
	simlog "nightdrive/server/logging/simulation"
)

const (
	tickMetricKey       = "sim_ticks_total"
	speedGaugeMetricKey = "sim_speed_centi"

	defaultKeyframeCapacity = 32
)

// CoreConfig assembles everything the engine needs to build its world.
type CoreConfig struct {
	Scene            scene.Config        `json:"scene"`
	Rig              rig.Tuning          `json:"rig"`
	Particles        effects.FieldConfig `json:"particles"`
	KeyframeCapacity int                 `json:"keyframeCapacity"`
}

// Normalized applies per-section normalization and journal defaults.
func (cfg CoreConfig) Normalized() CoreConfig {
	normalized := cfg
	normalized.Scene = cfg.Scene.Normalized()
	normalized.Rig = cfg.Rig.Normalized()
	normalized.Particles = cfg.Particles.Normalized()
	if normalized.KeyframeCapacity < 1 {
		normalized.KeyframeCapacity = defaultKeyframeCapacity
	}
	return normalized
}

// DefaultCoreConfig returns the engine configuration used when nothing
// overrides it.
func DefaultCoreConfig() CoreConfig {
	return CoreConfig{
		Scene:            scene.DefaultConfig(),
		Rig:              rig.DefaultTuning(),
		Particles:        effects.DefaultFieldConfig(),
		KeyframeCapacity: defaultKeyframeCapacity,
	}
}

// Core owns the entire mutable simulation state: motion, derived poses, the
// particle field, and the run flag. Exactly two run states exist, running and
// stopped; a stop preserves the committed motion state so a later start
// resumes from it.
type Core struct {
	mu   sync.Mutex
	deps Deps
	cfg  CoreConfig

	world *scene.Scene
	curve *track.Curve

	tick    uint64
	running bool
	motion  rig.MotionState
	frame   rig.VehicleFrame
	camera  rig.CameraPose
	steer   float64
	shake   mgl64.Vec3

	field    *effects.Field
	shakeRNG *rand.Rand

	journal *keyframeJournal
}

// NewCore builds the static scene and a ready-but-stopped engine. Scene
// construction is the single failure path: an error here leaves nothing
// half-built behind.
func NewCore(cfg CoreConfig, deps Deps) (*Core, error) {
	cfg = cfg.Normalized()

	world, err := scene.Build(cfg.Scene, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("sim: build scene: %w", err)
	}

	core := &Core{
		deps:     deps,
		cfg:      cfg,
		world:    world,
		curve:    world.Curve(),
		field:    effects.NewField(cfg.Particles, scene.NewDeterministicRNG(cfg.Scene.Seed, "particles")),
		shakeRNG: scene.NewDeterministicRNG(cfg.Scene.Seed, "shake"),
		journal:  newKeyframeJournal(cfg.KeyframeCapacity),
	}
	core.frame = rig.FrameAt(core.curve, 0)
	core.camera = rig.CameraAt(core.frame, cfg.Rig)

	simlog.SceneBuilt(context.Background(), deps.Publisher, simlog.SceneBuiltPayload{
		Seed:          cfg.Scene.Seed,
		CityInstances: len(world.City),
		LampInstances: len(world.Lamps),
		Merged:        cfg.Scene.MergeGeometry,
	})

	return core, nil
}

// Deps returns the injected dependencies.
func (c *Core) Deps() Deps {
	if c == nil {
		return Deps{}
	}
	return c.deps
}

// Scene exposes the static world for join payloads.
func (c *Core) Scene() *scene.Scene {
	if c == nil {
		return nil
	}
	return c.world
}

// Running reports whether the drive is advancing.
func (c *Core) Running() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Apply commits staged commands. Start and Stop are pure transitions between
// the two run states; duplicates are no-ops. Heartbeats carry no simulation
// effect and are handled upstream.
func (c *Core) Apply(commands []Command) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, cmd := range commands {
		switch cmd.Type {
		case CommandStart:
			if !c.running {
				c.running = true
				c.publishRunStateLocked()
			}
		case CommandStop:
			if c.running {
				c.running = false
				c.publishRunStateLocked()
			}
		case CommandHeartbeat:
			// Connectivity bookkeeping lives in the hub.
		default:
			if c.deps.Logger != nil {
				c.deps.Logger.Printf("sim: ignoring unknown command type %q from %s", cmd.Type, cmd.ActorID)
			}
		}
	}
	return nil
}

// Step advances exactly one tick. The update order is fixed: advance motion,
// sample the path, orient the vehicle, derive the camera, then the cosmetic
// layers (steering proxy, shake, particles). While stopped only the tick
// counter moves.
func (c *Core) Step(dt float64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick++
	if c.deps.Metrics != nil {
		c.deps.Metrics.Add(tickMetricKey, 1)
	}

	if !c.running || dt <= 0 {
		return
	}

	c.motion = rig.Advance(c.motion, c.cfg.Rig, dt)
	c.frame = rig.FrameAt(c.curve, c.motion.Progress)
	c.camera = rig.CameraAt(c.frame, c.cfg.Rig)
	c.steer = rig.SteerAngle(c.curve, c.motion.Progress, c.cfg.Rig)
	c.shake = rig.Shake(c.motion, c.cfg.Rig, c.shakeRNG)
	c.field.Step(c.motion.Speed, dt)

	if c.deps.Metrics != nil {
		c.deps.Metrics.Store(speedGaugeMetricKey, uint64(c.motion.Speed*100))
	}
}

// Snapshot copies the state exposed to non-simulation callers.
func (c *Core) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Core) snapshotLocked() Snapshot {
	return Snapshot{
		Tick:            c.tick,
		Running:         c.running,
		Progress:        c.motion.Progress,
		Speed:           c.motion.Speed,
		Vehicle:         c.frame,
		Camera:          c.camera,
		SteerAngle:      c.steer,
		Shake:           c.shake,
		Particles:       c.field.Positions(),
		ParticleOpacity: c.field.Opacity(c.motion.Speed),
	}
}

// RecordKeyframe stores the current state in the resync journal.
func (c *Core) RecordKeyframe() (Keyframe, KeyframeRecordResult) {
	if c == nil {
		return Keyframe{}, KeyframeRecordResult{}
	}
	c.mu.Lock()
	frame := Keyframe{
		Tick:        c.tick,
		Snapshot:    c.snapshotLocked(),
		SceneConfig: c.cfg.Scene,
	}
	if c.deps.Clock != nil {
		frame.RecordedAt = c.deps.Clock.Now()
	}
	c.mu.Unlock()

	result := c.journal.record(frame)
	frame.Sequence = result.NewestSequence
	return frame, result
}

// LatestKeyframe returns the newest journal entry, if any.
func (c *Core) LatestKeyframe() (Keyframe, bool) {
	if c == nil {
		return Keyframe{}, false
	}
	return c.journal.latest()
}

// KeyframeBySequence looks up a journal entry for a resync request.
func (c *Core) KeyframeBySequence(sequence uint64) (Keyframe, bool) {
	if c == nil {
		return Keyframe{}, false
	}
	return c.journal.bySequence(sequence)
}

// KeyframeWindow reports journal occupancy and its sequence bounds.
func (c *Core) KeyframeWindow() (int, uint64, uint64) {
	if c == nil {
		return 0, 0, 0
	}
	return c.journal.window()
}

// Shutdown disposes the scene and reports any leaked resource groups.
func (c *Core) Shutdown(ctx context.Context) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.running = false
	world := c.world
	c.mu.Unlock()

	world.Dispose()
	simlog.SceneDisposed(ctx, c.deps.Publisher, world.Leaked())
}

func (c *Core) publishRunStateLocked() {
	simlog.RunStateChanged(context.Background(), c.deps.Publisher, c.tick, simlog.RunStatePayload{
		Running:  c.running,
		Progress: c.motion.Progress,
		Speed:    c.motion.Speed,
	})
}

var _ Engine = (*Core)(nil)
