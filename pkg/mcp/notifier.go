package mcp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/mermaidsync/internal/streaming"
	"github.com/rendis/mermaidsync/pkg/schema"
)

// forwardedEvents are the document events pushed to watching clients.
var forwardedEvents = []string{
	schema.EventPreviewRendered,
	schema.EventPreviewFailed,
	schema.EventDocumentSaved,
	schema.EventDocumentDeleted,
	schema.EventAutosaveFailed,
}

// sender is the part of server.MCPServer the notifier needs.
type sender interface {
	SendNotificationToSpecificClient(sessionID string, method string, params map[string]any) error
}

// DocumentNotifier pushes document events to the MCP sessions watching them.
type DocumentNotifier struct {
	sender   sender
	watchers *WatchRegistry
	logger   *slog.Logger
}

// NewDocumentNotifier creates a notifier that pushes via MCP notifications.
func NewDocumentNotifier(s *Server) *DocumentNotifier {
	return &DocumentNotifier{sender: s.mcpServer, watchers: s.watchers, logger: s.logger}
}

// Notify sends payload to every session watching documentID.
// Best-effort: sessions that went away are dropped from the registry.
func (n *DocumentNotifier) Notify(_ context.Context, documentID string, payload map[string]any) error {
	var errs []error
	for _, sid := range n.watchers.SessionsFor(documentID) {
		err := n.sender.SendNotificationToSpecificClient(sid, "notifications/message", payload)
		if errors.Is(err, server.ErrSessionNotFound) {
			n.watchers.Remove(sid)
			continue
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Forward relays hub events to watchers until ctx is cancelled or the
// hub closes the subscription.
func (n *DocumentNotifier) Forward(ctx context.Context, hub streaming.EventHub) error {
	ch, cancel, err := hub.Subscribe(ctx, streaming.EventFilter{EventTypes: forwardedEvents})
	if err != nil {
		return err
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			payload := map[string]any{
				"level":  "info",
				"logger": "mermaidsync",
				"data": map[string]any{
					"document_id": ev.DocumentID,
					"event_type":  ev.EventType,
					"payload":     ev.Payload,
				},
			}
			if ev.EventType == schema.EventPreviewFailed || ev.EventType == schema.EventAutosaveFailed {
				payload["level"] = "warning"
			}
			if err := n.Notify(ctx, ev.DocumentID, payload); err != nil {
				n.logger.Warn("notify watchers failed", "document_id", ev.DocumentID, "error", err)
			}
			if ev.EventType == schema.EventDocumentDeleted {
				n.watchers.Forget(ev.DocumentID)
			}
		}
	}
}
