package server

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"nightdrive/server/internal/net/proto"
	"nightdrive/server/internal/sim"
	"nightdrive/server/internal/telemetry"
	"nightdrive/server/logging"
	netlog "nightdrive/server/logging/network"
	simlog "nightdrive/server/logging/simulation"
)

// HubConfig assembles the engine, loop, and transport tuning for a hub.
type HubConfig struct {
	Core             sim.CoreConfig
	Loop             sim.LoopConfig
	KeyframeInterval int
	Logger           telemetry.Logger
	Metrics          telemetry.Metrics
	Clock            logging.Clock

	// OnFrame, when set, observes every completed tick after broadcast.
	OnFrame func(sim.LoopStepResult)
}

// DefaultHubConfig returns the hub settings used when nothing overrides them.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		Core:             sim.DefaultCoreConfig(),
		Loop:             sim.DefaultLoopConfig(),
		KeyframeInterval: defaultKeyframeInterval,
	}
}

type viewerState struct {
	id            string
	joinedAt      time.Time
	lastHeartbeat time.Time
	lastRTT       time.Duration
	lastAck       uint64
}

// subscriber serializes websocket writes for one viewer connection.
type subscriber struct {
	conn           *websocket.Conn
	mu             sync.Mutex
	lastCommandSeq atomic.Uint64
}

// WriteMessage sends a frame under the write deadline, holding the write
// lock so the broadcast path and per-session responses never interleave.
func (s *subscriber) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

// LastCommandSeq reports the newest acknowledged command sequence.
func (s *subscriber) LastCommandSeq() uint64 {
	return s.lastCommandSeq.Load()
}

// StoreLastCommandSeq records the newest acknowledged command sequence.
func (s *subscriber) StoreLastCommandSeq(seq uint64) {
	s.lastCommandSeq.Store(seq)
}

// Hub owns the live viewers, their subscriptions, and the simulation loop
// that feeds them frames.
type Hub struct {
	mu          sync.Mutex
	viewers     map[string]*viewerState
	subscribers map[string]*subscriber
	lastRequest map[string]time.Time

	nextID atomic.Uint64
	tick   atomic.Uint64

	core   *sim.Core
	engine *sim.Loop

	config           HubConfig
	keyframeInterval atomic.Int64
	lastKeyframeSeq  atomic.Uint64

	telemetry *telemetryCounters
	publisher logging.Publisher
	logger    telemetry.Logger
	clock     logging.Clock
}

// NewHub constructs a hub with default configuration.
func NewHub(publisher logging.Publisher) (*Hub, error) {
	return NewHubWithConfig(DefaultHubConfig(), publisher)
}

// NewHubWithConfig builds the scene, engine, and loop behind a ready hub.
func NewHubWithConfig(cfg HubConfig, publisher logging.Publisher) (*Hub, error) {
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = logging.SystemClock{}
	}

	hub := &Hub{
		viewers:     make(map[string]*viewerState),
		subscribers: make(map[string]*subscriber),
		lastRequest: make(map[string]time.Time),
		config:      cfg,
		telemetry:   newTelemetryCounters(),
		publisher:   publisher,
		logger:      cfg.Logger,
		clock:       clock,
	}
	hub.keyframeInterval.Store(int64(normalizeKeyframeInterval(cfg.KeyframeInterval)))

	core, err := sim.NewCore(cfg.Core, sim.Deps{
		Logger:    cfg.Logger,
		Metrics:   cfg.Metrics,
		Clock:     clock,
		Publisher: publisher,
	})
	if err != nil {
		return nil, fmt.Errorf("hub: %w", err)
	}
	hub.core = core

	hub.engine = sim.NewLoop(core, cfg.Loop, sim.LoopHooks{
		NextTick:  func() uint64 { return hub.tick.Add(1) },
		Prepare:   hub.sweepStaleViewers,
		AfterStep: hub.afterStep,
		OnQueueWarning: func(length int) {
			if hub.logger != nil {
				hub.logger.Printf("[backpressure] command queue depth %d", length)
			}
		},
	})

	return hub, nil
}

func normalizeKeyframeInterval(interval int) int {
	if interval < 1 {
		return defaultKeyframeInterval
	}
	if interval > maxKeyframeInterval {
		return maxKeyframeInterval
	}
	return interval
}

// Engine exposes the command queue for the intake pipeline.
func (h *Hub) Engine() *sim.Loop {
	return h.engine
}

// Tick reports the latest started tick.
func (h *Hub) Tick() uint64 {
	return h.tick.Load()
}

// TickRate reports the configured simulation rate in ticks per second.
func (h *Hub) TickRate() int {
	rate := h.config.Loop.TickRate
	if rate <= 0 {
		rate = sim.DefaultLoopConfig().TickRate
	}
	return rate
}

// CurrentConfig returns the normalized engine configuration.
func (h *Hub) CurrentConfig() sim.CoreConfig {
	return h.config.Core.Normalized()
}

// KeyframeInterval reports the active keyframe cadence in ticks.
func (h *Hub) KeyframeInterval() int {
	return int(h.keyframeInterval.Load())
}

// SetKeyframeInterval applies a viewer-requested cadence and returns the
// clamped value actually in effect.
func (h *Hub) SetKeyframeInterval(interval int) int {
	applied := normalizeKeyframeInterval(interval)
	h.keyframeInterval.Store(int64(applied))
	return applied
}

// HasViewer reports whether the viewer is registered.
func (h *Hub) HasViewer(viewerID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.viewers[viewerID]
	return ok
}

// Join registers a new viewer and returns the static scene plus the latest
// committed frame so the client can render before its socket opens.
func (h *Hub) Join() proto.JoinResponseV1 {
	id := fmt.Sprintf("viewer-%d", h.nextID.Add(1))
	now := h.clock.Now()

	h.mu.Lock()
	h.viewers[id] = &viewerState{
		id:            id,
		joinedAt:      now,
		lastHeartbeat: now,
	}
	h.mu.Unlock()

	netlog.ViewerJoined(context.Background(), h.publisher, id)

	world := h.core.Scene()
	return proto.JoinResponseV1{
		ID:               id,
		TrackPoints:      world.TrackPoints,
		City:             world.City,
		Lamps:            world.Lamps,
		Vehicle:          world.Vehicle,
		Config:           h.CurrentConfig(),
		State:            h.engine.Snapshot(),
		KeyframeInterval: h.KeyframeInterval(),
	}
}

// Subscribe associates a websocket connection with a registered viewer and
// returns the initial frame to send.
func (h *Hub) Subscribe(viewerID string, conn *websocket.Conn) (*subscriber, proto.FrameV1, bool) {
	h.mu.Lock()
	state, ok := h.viewers[viewerID]
	if !ok {
		h.mu.Unlock()
		return nil, proto.FrameV1{}, false
	}
	state.lastHeartbeat = h.clock.Now()

	if existing, ok := h.subscribers[viewerID]; ok {
		existing.conn.Close()
	}
	sub := &subscriber{conn: conn}
	h.subscribers[viewerID] = sub
	h.mu.Unlock()

	snapshot := h.engine.Snapshot()
	frame := proto.FrameV1{
		Tick:        snapshot.Tick,
		KeyframeSeq: h.lastKeyframeSeq.Load(),
		ServerTime:  h.clock.Now().UnixMilli(),
		State:       snapshot,
	}
	return sub, frame, true
}

// Disconnect removes a viewer and closes any active subscriber connection.
func (h *Hub) Disconnect(viewerID string) bool {
	return h.disconnect(viewerID, "closed")
}

func (h *Hub) disconnect(viewerID, reason string) bool {
	h.mu.Lock()
	sub, subOK := h.subscribers[viewerID]
	if subOK {
		delete(h.subscribers, viewerID)
	}
	_, viewerOK := h.viewers[viewerID]
	if viewerOK {
		delete(h.viewers, viewerID)
	}
	delete(h.lastRequest, viewerID)
	h.mu.Unlock()

	if subOK {
		sub.conn.Close()
	}
	if viewerOK {
		netlog.ViewerDisconnected(context.Background(), h.publisher, viewerID, reason)
	}
	return viewerOK
}

// RecordAck stores the newest frame tick the viewer confirmed rendering.
func (h *Hub) RecordAck(viewerID string, ack uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if state, ok := h.viewers[viewerID]; ok && ack > state.lastAck {
		state.lastAck = ack
	}
}

// UpdateHeartbeat records connectivity metadata and stages a heartbeat
// command so the tick loop observes viewer liveness in-band.
func (h *Hub) UpdateHeartbeat(viewerID string, receivedAt time.Time, clientSent int64) (time.Duration, bool) {
	h.mu.Lock()
	state, ok := h.viewers[viewerID]
	if !ok {
		h.mu.Unlock()
		return 0, false
	}
	state.lastHeartbeat = receivedAt

	var rtt time.Duration
	if clientSent > 0 {
		clientTime := time.UnixMilli(clientSent)
		if clientTime.Before(receivedAt.Add(5 * time.Second)) {
			rtt = receivedAt.Sub(clientTime)
			if rtt < 0 {
				rtt = 0
			}
			state.lastRTT = rtt
		}
	}
	lastRTT := state.lastRTT
	h.mu.Unlock()

	h.engine.Enqueue(sim.Command{
		Type:       sim.CommandHeartbeat,
		ActorID:    viewerID,
		OriginTick: h.tick.Load(),
		IssuedAt:   receivedAt,
		Heartbeat: &sim.HeartbeatCommand{
			ReceivedAt: receivedAt,
			ClientSent: clientSent,
			RTT:        lastRTT,
		},
	})

	return lastRTT, true
}

// HandleKeyframeRequest serves a journaled keyframe, or a nack when the
// sequence has expired or the viewer is asking too fast.
func (h *Hub) HandleKeyframeRequest(viewerID string, sequence uint64) (proto.KeyframeV1, *proto.KeyframeNackV1, bool) {
	now := h.clock.Now()

	h.mu.Lock()
	if _, ok := h.viewers[viewerID]; !ok {
		h.mu.Unlock()
		return proto.KeyframeV1{}, nil, false
	}
	if last, ok := h.lastRequest[viewerID]; ok && now.Sub(last) < keyframeRequestMinGap {
		h.mu.Unlock()
		h.telemetry.IncrementKeyframeRateLimited()
		h.telemetry.RecordKeyframeRequest(0, false)
		return proto.KeyframeV1{}, &proto.KeyframeNackV1{Sequence: sequence, Reason: "rate_limited"}, true
	}
	h.lastRequest[viewerID] = now
	h.mu.Unlock()

	frame, ok := h.engine.KeyframeBySequence(sequence)
	if !ok {
		h.telemetry.IncrementKeyframeExpired()
		h.telemetry.RecordKeyframeRequest(0, false)
		// Record a fresh keyframe so the follow-up request can succeed.
		h.ForceKeyframe()
		return proto.KeyframeV1{}, &proto.KeyframeNackV1{Sequence: sequence, Reason: "expired", Resync: true}, true
	}

	h.telemetry.RecordKeyframeRequest(h.clock.Now().Sub(now), true)
	return proto.KeyframeV1{
		Sequence:    frame.Sequence,
		Tick:        frame.Tick,
		State:       frame.Snapshot,
		SceneConfig: frame.SceneConfig,
		RecordedAt:  frame.RecordedAt.UnixMilli(),
	}, nil, true
}

// ForceKeyframe records a keyframe outside the regular cadence.
func (h *Hub) ForceKeyframe() {
	frame, result := h.engine.RecordKeyframe()
	h.lastKeyframeSeq.Store(frame.Sequence)
	h.telemetry.RecordKeyframeJournal(result.Size, result.OldestSequence, result.NewestSequence)
}

// RunSimulation drives the fixed-rate tick loop until the stop channel
// closes.
func (h *Hub) RunSimulation(stop <-chan struct{}) {
	h.engine.Run(stop)
}

// Shutdown tears down the engine and its scene.
func (h *Hub) Shutdown(ctx context.Context) {
	h.core.Shutdown(ctx)
}

// Snapshot exposes the latest committed simulation state.
func (h *Hub) Snapshot() sim.Snapshot {
	return h.engine.Snapshot()
}

// TelemetrySnapshot exposes broadcast and keyframe counters.
func (h *Hub) TelemetrySnapshot() TelemetrySnapshot {
	return h.telemetry.Snapshot()
}

// DiagnosticsViewer is the per-viewer connectivity view served over HTTP.
type DiagnosticsViewer struct {
	Ver           int    `json:"ver"`
	ID            string `json:"id"`
	LastHeartbeat int64  `json:"lastHeartbeat"`
	RTTMillis     int64  `json:"rttMillis"`
	LastAck       uint64 `json:"lastAck"`
}

// DiagnosticsSnapshot exposes heartbeat data for the diagnostics endpoint.
func (h *Hub) DiagnosticsSnapshot() []DiagnosticsViewer {
	h.mu.Lock()
	defer h.mu.Unlock()

	viewers := make([]DiagnosticsViewer, 0, len(h.viewers))
	for _, state := range h.viewers {
		viewers = append(viewers, DiagnosticsViewer{
			Ver:           ProtocolVersion,
			ID:            state.id,
			LastHeartbeat: state.lastHeartbeat.UnixMilli(),
			RTTMillis:     state.lastRTT.Milliseconds(),
			LastAck:       state.lastAck,
		})
	}
	return viewers
}

// sweepStaleViewers drops viewers whose heartbeats stopped arriving.
func (h *Hub) sweepStaleViewers(ctx sim.LoopTickContext) {
	h.mu.Lock()
	var stale []string
	for id, state := range h.viewers {
		if ctx.Now.Sub(state.lastHeartbeat) > disconnectAfter {
			stale = append(stale, id)
		}
	}
	h.mu.Unlock()

	for _, id := range stale {
		if h.logger != nil {
			h.logger.Printf("disconnecting %s due to heartbeat timeout", id)
		}
		h.disconnect(id, "heartbeat_timeout")
	}
}

// afterStep runs on the loop goroutine once per tick: keyframe cadence,
// frame broadcast, telemetry, and the optional frame observer.
func (h *Hub) afterStep(result sim.LoopStepResult) {
	interval := h.keyframeInterval.Load()
	if interval > 0 && result.Tick%uint64(interval) == 0 {
		h.ForceKeyframe()
	}

	h.broadcastFrame(result)
	h.telemetry.RecordTickDuration(result.Duration)

	if result.Duration > result.Budget && result.Budget > 0 {
		simlog.TickBudgetOverrun(context.Background(), h.publisher, result.Tick, simlog.TickBudgetOverrunPayload{
			DurationMillis: result.Duration.Milliseconds(),
			BudgetMillis:   result.Budget.Milliseconds(),
			Ratio:          float64(result.Duration) / float64(result.Budget),
		})
	}

	if h.config.OnFrame != nil {
		h.config.OnFrame(result)
	}
}

// broadcastFrame marshals the frame once and fans it out to every
// subscriber, disconnecting the ones whose sockets fail.
func (h *Hub) broadcastFrame(result sim.LoopStepResult) {
	frame := proto.FrameV1{
		Tick:        result.Tick,
		KeyframeSeq: h.lastKeyframeSeq.Load(),
		ServerTime:  result.Now.UnixMilli(),
		State:       result.Snapshot,
	}
	data, err := proto.EncodeFrameV1(frame)
	if err != nil {
		if h.logger != nil {
			h.logger.Printf("failed to marshal frame: %v", err)
		}
		return
	}

	h.mu.Lock()
	subs := make(map[string]*subscriber, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs[id] = sub
	}
	h.mu.Unlock()

	for id, sub := range subs {
		if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
			if h.logger != nil {
				h.logger.Printf("failed to send frame to %s: %v", id, err)
			}
			h.disconnect(id, "write_failed")
		}
	}
	h.telemetry.RecordBroadcast(len(data), len(subs))
}
