// Package net assembles the HTTP surface: join, websocket upgrade,
// diagnostics, and static client assets.
package net

import (
	"encoding/json"
	nethttp "net/http"
	"net/http/pprof"
	"time"

	"nightdrive/server"
	"nightdrive/server/internal/net/ws"
	"nightdrive/server/internal/observability"
	"nightdrive/server/internal/telemetry"
)

// HTTPHandlerConfig carries transport wiring options.
type HTTPHandlerConfig struct {
	ClientDir     string
	Logger        telemetry.Logger
	Observability observability.Config

	// RecorderStatus, when set, is surfaced on the diagnostics endpoint.
	RecorderStatus func() string
}

// NewHTTPHandler builds the HTTP mux serving the viewer client and API.
func NewHTTPHandler(hub *server.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		recorder := "disabled"
		if cfg.RecorderStatus != nil {
			recorder = cfg.RecorderStatus()
		}
		payload := struct {
			Status     string                     `json:"status"`
			ServerTime int64                      `json:"serverTime"`
			Viewers    []server.DiagnosticsViewer `json:"viewers"`
			TickRate   int                        `json:"tickRate"`
			Heartbeat  int64                      `json:"heartbeatMillis"`
			Telemetry  server.TelemetrySnapshot   `json:"telemetry"`
			Recorder   string                     `json:"recorder"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Viewers:    hub.DiagnosticsSnapshot(),
			TickRate:   hub.TickRate(),
			Heartbeat:  server.HeartbeatInterval().Milliseconds(),
			Telemetry:  hub.TelemetrySnapshot(),
			Recorder:   recorder,
		}

		data, err := json.Marshal(payload)
		if err != nil {
			nethttp.Error(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/join", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			nethttp.Error(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		join := hub.Join()
		join.Ver = server.ProtocolVersion
		data, err := json.Marshal(join)
		if err != nil {
			nethttp.Error(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	wsHandler := ws.NewHandler(hub, ws.HandlerConfig{Logger: cfg.Logger})
	mux.HandleFunc("/ws", wsHandler.Handle)

	if cfg.Observability.EnablePprofTrace {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	if cfg.ClientDir != "" {
		mux.Handle("/", nethttp.FileServer(nethttp.Dir(cfg.ClientDir)))
	}

	return mux
}
