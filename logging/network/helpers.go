// Package network holds the typed event helpers the transport layer publishes.
package network

import (
	"context"

	"nightdrive/server/logging"
)

const (
	// EventViewerJoined is emitted when a viewer registers.
	EventViewerJoined logging.EventType = "network.viewer_joined"
	// EventViewerDisconnected is emitted when a viewer drops or times out.
	EventViewerDisconnected logging.EventType = "network.viewer_disconnected"
)

// ViewerJoined publishes a viewer registration.
func ViewerJoined(ctx context.Context, pub logging.Publisher, viewerID string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventViewerJoined,
		Actor:    logging.EntityRef{ID: viewerID, Kind: logging.EntityKindViewer},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
	})
}

// ViewerDisconnected publishes a viewer departure with its cause.
func ViewerDisconnected(ctx context.Context, pub logging.Publisher, viewerID, reason string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventViewerDisconnected,
		Actor:    logging.EntityRef{ID: viewerID, Kind: logging.EntityKindViewer},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  map[string]any{"reason": reason},
	})
}
