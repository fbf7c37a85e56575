// Package app wires configuration, logging, telemetry, the simulation hub,
// and the HTTP surface into a runnable server process.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	server "nightdrive/server"
	"nightdrive/server/internal/config"
	servernet "nightdrive/server/internal/net"
	"nightdrive/server/internal/observability"
	"nightdrive/server/internal/recorder"
	"nightdrive/server/internal/telemetry"
	"nightdrive/server/logging"
	"nightdrive/server/logging/sinks"
)

const shutdownTimeout = 10 * time.Second

// Config carries process-level overrides for Run. Everything else comes from
// nightdrive.yaml and NIGHTDRIVE_* environment variables.
type Config struct {
	// ConfigDir is where nightdrive.yaml is looked up; empty means the
	// working directory.
	ConfigDir string
	Logger    telemetry.Logger
}

// Run starts the server and blocks until ctx is cancelled or the listener
// fails. Shutdown drains HTTP, stops the simulation, and flushes the
// recorder and logging router.
func Run(ctx context.Context, appCfg Config) error {
	cfg, err := config.Load(appCfg.ConfigDir)
	if err != nil {
		return err
	}

	telemetryLogger := appCfg.Logger
	if telemetryLogger == nil {
		console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		telemetryLogger = telemetry.WrapZerolog(zerolog.New(console).With().Timestamp().Logger())
	}

	logCfg := logging.DefaultConfig()
	logCfg.JSON.FilePath = cfg.Log.JSONPath
	if logCfg.JSON.FilePath != "" {
		logCfg.EnabledSinks = append(logCfg.EnabledSinks, logging.SinkJSON)
	}
	named := []logging.NamedSink{
		{Name: logging.SinkConsole, Sink: sinks.NewConsoleSink(os.Stdout, logCfg.Console)},
	}
	if logCfg.HasSink(logging.SinkJSON) {
		file, err := os.OpenFile(logCfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("app: open json log %q: %w", logCfg.JSON.FilePath, err)
		}
		defer file.Close()
		named = append(named, logging.NamedSink{
			Name: logging.SinkJSON,
			Sink: sinks.NewJSON(file, logCfg.JSON.FlushInterval),
		})
	}

	router, err := logging.NewRouter(logging.SystemClock{}, logCfg, named)
	if err != nil {
		return fmt.Errorf("app: construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("app: close logging router: %v", cerr)
		}
	}()

	metrics := telemetry.Fanout(
		telemetry.WrapMetrics(logging.NewMetrics()),
		telemetry.WrapMeter(otel.Meter("nightdrive/server"), telemetryLogger),
	)

	rec, err := recorder.New(recorder.Config{
		Enabled: cfg.Recorder.Enabled,
		DSN:     cfg.Recorder.DSN,
	}, telemetryLogger)
	if err != nil {
		telemetryLogger.Printf("app: recorder unavailable, continuing without frame trace: %v", err)
		rec = nil
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := rec.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("app: close recorder: %v", cerr)
		}
	}()

	hubCfg := server.DefaultHubConfig()
	hubCfg.Core = cfg.CoreConfig()
	hubCfg.Loop = cfg.LoopConfig()
	if cfg.KeyframeInterval > 0 {
		hubCfg.KeyframeInterval = cfg.KeyframeInterval
	}
	hubCfg.Logger = telemetryLogger
	hubCfg.Metrics = metrics
	if rec != nil {
		hubCfg.OnFrame = rec.RecordFrame
	}

	hub, err := server.NewHubWithConfig(hubCfg, router)
	if err != nil {
		return fmt.Errorf("app: construct hub: %w", err)
	}

	stop := make(chan struct{})
	var stopOnce sync.Once
	stopSim := func() { stopOnce.Do(func() { close(stop) }) }
	simDone := make(chan struct{})
	go func() {
		defer close(simDone)
		hub.RunSimulation(stop)
	}()
	// Runs before the recorder-close defer: the loop goroutine must be
	// joined so no frame is enqueued after the recorder shuts down.
	defer func() {
		stopSim()
		<-simDone
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		hub.Shutdown(closeCtx)
	}()

	clientDir, err := server.ResolveClientDir()
	if err != nil {
		telemetryLogger.Printf("app: %v, serving without static assets", err)
		clientDir = ""
	}

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		ClientDir:      clientDir,
		Logger:         telemetryLogger,
		Observability:  observability.Config{EnablePprofTrace: cfg.EnablePprofTrace},
		RecorderStatus: rec.Status,
	})

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: handler}
	serveErr := make(chan error, 1)
	go func() {
		telemetryLogger.Printf("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("app: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		telemetryLogger.Printf("app: http shutdown: %v", err)
	}
	return nil
}
