package mcp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/mermaidsync/internal/streaming"
	"github.com/rendis/mermaidsync/pkg/schema"
)

type sent struct {
	sessionID string
	params    map[string]any
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sent
	gone map[string]bool
}

func (f *fakeSender) SendNotificationToSpecificClient(sessionID, _ string, params map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone[sessionID] {
		return server.ErrSessionNotFound
	}
	f.sent = append(f.sent, sent{sessionID: sessionID, params: params})
	return nil
}

func (f *fakeSender) all() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.sent...)
}

func newTestNotifier(gone ...string) (*DocumentNotifier, *fakeSender) {
	fs := &fakeSender{gone: map[string]bool{}}
	for _, g := range gone {
		fs.gone[g] = true
	}
	s := NewServer(ServerDeps{})
	n := NewDocumentNotifier(s)
	n.sender = fs
	return n, fs
}

func TestDocumentNotifier_NotifyWatchers(t *testing.T) {
	n, fs := newTestNotifier()
	n.watchers.Register("doc-1", "s1")
	n.watchers.Register("doc-1", "s2")
	n.watchers.Register("doc-2", "s3")

	require.NoError(t, n.Notify(context.Background(), "doc-1", map[string]any{"k": "v"}))

	got := fs.all()
	require.Len(t, got, 2)
	assert.Equal(t, "s1", got[0].sessionID)
	assert.Equal(t, "s2", got[1].sessionID)
}

func TestDocumentNotifier_DropsGoneSessions(t *testing.T) {
	n, _ := newTestNotifier("s1")
	n.watchers.Register("doc-1", "s1")

	require.NoError(t, n.Notify(context.Background(), "doc-1", map[string]any{}))
	assert.Empty(t, n.watchers.SessionsFor("doc-1"))
}

func TestDocumentNotifier_Forward(t *testing.T) {
	n, fs := newTestNotifier()
	n.watchers.Register("doc-1", "s1")
	hub := streaming.NewMemoryHub()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Forward(ctx, hub) }()

	// Wait for the subscription before publishing.
	require.Eventually(t, func() bool {
		_ = hub.Publish(ctx, streaming.StreamEvent{DocumentID: "doc-1", EventType: schema.EventPreviewFailed, Payload: map[string]any{"error": "x"}})
		return len(fs.all()) > 0
	}, 2*time.Second, 10*time.Millisecond)

	got := fs.all()[0]
	assert.Equal(t, "warning", got.params["level"])
	data := got.params["data"].(map[string]any)
	assert.Equal(t, "doc-1", data["document_id"])
	assert.Equal(t, schema.EventPreviewFailed, data["event_type"])

	require.NoError(t, hub.Publish(ctx, streaming.StreamEvent{DocumentID: "doc-1", EventType: schema.EventDocumentDeleted}))
	require.Eventually(t, func() bool { return len(n.watchers.SessionsFor("doc-1")) == 0 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("forward did not stop")
	}
}
