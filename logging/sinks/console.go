package sinks

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"nightdrive/server/logging"
)

// ConsoleSink renders events through zerolog's console writer so local runs
// get structured, readable output.
type ConsoleSink struct {
	logger zerolog.Logger
}

func NewConsoleSink(w io.Writer, cfg logging.ConsoleConfig) *ConsoleSink {
	writer := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    !cfg.UseColor,
		TimeFormat: time.RFC3339,
	}
	return &ConsoleSink{logger: zerolog.New(writer).With().Timestamp().Logger()}
}

func (s *ConsoleSink) Write(event logging.Event) error {
	line := s.logger.WithLevel(zerologLevel(event.Severity)).
		Str("type", string(event.Type)).
		Uint64("tick", event.Tick)
	if event.Actor.ID != "" || event.Actor.Kind != "" {
		line = line.Str("actor", formatEntity(event.Actor))
	}
	if event.Category != "" {
		line = line.Str("category", event.Category)
	}
	if event.Payload != nil {
		line = line.Interface("payload", event.Payload)
	}
	for k, v := range event.Extra {
		line = line.Interface(k, v)
	}
	line.Send()
	return nil
}

func (s *ConsoleSink) Close(context.Context) error {
	return nil
}

func zerologLevel(sev logging.Severity) zerolog.Level {
	switch sev {
	case logging.SeverityDebug:
		return zerolog.DebugLevel
	case logging.SeverityInfo:
		return zerolog.InfoLevel
	case logging.SeverityWarn:
		return zerolog.WarnLevel
	case logging.SeverityError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func formatEntity(ref logging.EntityRef) string {
	if ref.ID == "" {
		return string(ref.Kind)
	}
	if ref.Kind == "" {
		return ref.ID
	}
	return string(ref.Kind) + ":" + ref.ID
}
