// Package session owns live diagram documents. A Session is the single
// writer of its document: mutations, text loads and type switches are
// serialised, the Mermaid source is regenerated after each change, and the
// preview is re-rendered on a debounce timer so bursts of edits coalesce
// into one render.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rendis/mermaidsync/internal/diagram"
	"github.com/rendis/mermaidsync/internal/grammar"
	"github.com/rendis/mermaidsync/internal/layout"
	"github.com/rendis/mermaidsync/internal/logging"
	"github.com/rendis/mermaidsync/internal/render"
	"github.com/rendis/mermaidsync/internal/store"
	"github.com/rendis/mermaidsync/internal/streaming"
	"github.com/rendis/mermaidsync/pkg/schema"
)

// DefaultDebounce is the quiet period before a preview is rendered.
const DefaultDebounce = 300 * time.Millisecond

// renderTimeout bounds a single preview render.
const renderTimeout = 30 * time.Second

// Preview is the payload of preview_rendered and preview_failed events.
type Preview struct {
	Version     uint64        `json:"version"`
	DiagramType diagram.Type  `json:"diagram_type"`
	Source      string        `json:"source"`
	Renderer    string        `json:"renderer,omitempty"`
	Format      render.Format `json:"format,omitempty"`
	MediaType   string        `json:"media_type,omitempty"`
	Data        []byte        `json:"data,omitempty"`
	Error       string        `json:"error,omitempty"`
	Code        string        `json:"code,omitempty"`
}

// Session is a live, editable document.
type Session struct {
	id         string
	documentID string
	deps       *deps

	mu        sync.Mutex
	doc       *diagram.Document
	name      string
	view      store.View
	createdAt time.Time
	version   uint64
	saved     uint64
	output    grammar.Output
	timer     *time.Timer
	closed    bool
}

// deps are the collaborators shared by every session of a Manager.
type deps struct {
	renderer  render.Renderer
	layouter  layout.Layouter
	hub       streaming.EventHub
	store     store.Store
	revisions *store.RevisionLog
	debounce  time.Duration
	logger    *slog.Logger
}

func newSession(id, documentID string, rec *store.Record, d *deps) *Session {
	s := &Session{
		id:         id,
		documentID: documentID,
		deps:       d,
		doc:        rec.Document,
		name:       rec.Name,
		view:       rec.View,
		createdAt:  rec.CreatedAt,
	}
	s.output = grammar.Generate(s.doc)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// DocumentID returns the identifier of the edited document.
func (s *Session) DocumentID() string { return s.documentID }

// Name returns the document name.
func (s *Session) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Rename changes the document name and marks the session dirty.
func (s *Session) Rename(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name != s.name {
		s.name = name
		s.version++
	}
}

// SetView stores the canvas viewport. Viewport changes do not make the
// session dirty on their own.
func (s *Session) SetView(v store.View) {
	s.mu.Lock()
	s.view = v
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the current document.
func (s *Session) Snapshot() *diagram.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Version counts the changes applied since the session was opened.
func (s *Session) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Dirty reports whether the session has changes that were not saved.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version != s.saved
}

// Generate returns the Mermaid source of the current document.
func (s *Session) Generate() grammar.Output {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output
}

// ctx adds the correlation IDs of s. Caller holds s.mu or owns s exclusively.
func (s *Session) ctx(ctx context.Context) context.Context {
	return logging.WithIDs(ctx, s.documentID, s.id, string(s.doc.Type))
}

// Mutate applies fn to a copy of the document. When fn fails the document
// is left untouched; otherwise the copy replaces it, the source is
// regenerated and a preview is scheduled.
func (s *Session) Mutate(ctx context.Context, fn func(d *diagram.Document) error) (grammar.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return grammar.Output{}, errClosed(s.documentID)
	}

	draft := s.doc.Clone()
	if err := fn(draft); err != nil {
		return grammar.Output{}, err
	}
	if !draft.Type.Valid() {
		return grammar.Output{}, schema.NewErrorf(schema.ErrCodeValidation, "unsupported diagram type %q", draft.Type)
	}
	s.commit(ctx, draft, schema.EventModelMutated)
	return s.output, nil
}

// LoadSource replaces the document with the parse of text. Parsing is
// best-effort and never fails. When a layouter is configured the new
// document is arranged; a layout failure is logged and the document keeps
// its unplaced geometry.
func (s *Session) LoadSource(ctx context.Context, text string) (grammar.Output, error) {
	d := grammar.Parse(text)
	if s.deps.layouter != nil {
		if err := layout.Arrange(ctx, d, s.deps.layouter); err != nil {
			s.deps.logger.WarnContext(logging.WithIDs(ctx, s.documentID, s.id, string(d.Type)), "layout failed", slog.String("error", err.Error()))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return grammar.Output{}, errClosed(s.documentID)
	}
	s.commit(ctx, d, schema.EventModelReplaced)
	return s.output, nil
}

// SwitchType replaces the model with an empty document of type t. Only the
// title carries over; elements of the previous type are discarded.
func (s *Session) SwitchType(ctx context.Context, t diagram.Type) (grammar.Output, error) {
	if !t.Valid() {
		return grammar.Output{}, schema.NewErrorf(schema.ErrCodeValidation, "unsupported diagram type %q", t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return grammar.Output{}, errClosed(s.documentID)
	}
	if s.doc.Type == t {
		return s.output, nil
	}
	draft := diagram.New(t)
	draft.Title = s.doc.Title
	s.commit(ctx, draft, schema.EventTypeSwitched)
	return s.output, nil
}

// commit installs d as the current document. Caller holds s.mu.
func (s *Session) commit(ctx context.Context, d *diagram.Document, event string) {
	s.doc = d
	s.version++
	s.output = grammar.Generate(d)

	ctx = s.ctx(ctx)
	s.deps.logger.DebugContext(ctx, "document changed",
		slog.String("event", event),
		slog.Uint64("version", s.version),
	)
	s.publish(ctx, event, map[string]any{"version": s.version, "diagram_type": d.Type})
	s.publish(ctx, schema.EventSourceGenerated, s.output)
	s.schedulePreview()
}

// schedulePreview (re)starts the debounce timer. Caller holds s.mu.
func (s *Session) schedulePreview() {
	if s.deps.renderer == nil {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.deps.debounce, s.renderPreview)
}

// RenderNow renders the current source immediately, bypassing the debounce.
func (s *Session) RenderNow(ctx context.Context) (*Preview, error) {
	s.mu.Lock()
	version, typ, source := s.version, s.doc.Type, s.output.Text
	s.mu.Unlock()
	return s.render(ctx, version, typ, source)
}

// renderPreview is the debounce timer callback.
func (s *Session) renderPreview() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	version, typ, source := s.version, s.doc.Type, s.output.Text
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), renderTimeout)
	defer cancel()
	_, _ = s.render(ctx, version, typ, source)
}

// render runs the renderer and publishes the outcome. A result for a
// version older than the current one is discarded since a newer render is
// already scheduled.
func (s *Session) render(ctx context.Context, version uint64, typ diagram.Type, source string) (*Preview, error) {
	if s.deps.renderer == nil {
		return nil, render.Failed("none", schema.NewError(schema.ErrCodeRenderFailed, "no renderer configured"))
	}
	ctx = logging.WithIDs(ctx, s.documentID, s.id, string(typ))

	preview := &Preview{Version: version, DiagramType: typ, Source: source}
	p, err := s.deps.renderer.Render(ctx, source)
	if err != nil {
		failed := render.Failed(s.deps.renderer.Name(), err)
		preview.Error = failed.Message
		preview.Code = failed.Code
		err = failed
	} else {
		preview.Renderer = p.Renderer
		preview.Format = p.Format
		preview.MediaType = p.Format.MediaType()
		preview.Data = p.Data
	}

	if s.Version() != version {
		s.deps.logger.DebugContext(ctx, "discarding stale preview", slog.Uint64("version", version))
		return preview, err
	}
	if err != nil {
		s.deps.logger.WarnContext(ctx, "preview failed", slog.String("error", err.Error()))
		s.publish(ctx, schema.EventPreviewFailed, preview)
		return preview, err
	}
	s.publish(ctx, schema.EventPreviewRendered, preview)
	return preview, nil
}

func (s *Session) publish(ctx context.Context, eventType string, payload any) {
	if s.deps.hub == nil {
		return
	}
	err := s.deps.hub.Publish(context.WithoutCancel(ctx), streaming.StreamEvent{
		DocumentID: s.documentID,
		SessionID:  s.id,
		EventType:  eventType,
		Payload:    payload,
	})
	if err != nil {
		s.deps.logger.WarnContext(ctx, "publish failed", slog.String("event", eventType), slog.String("error", err.Error()))
	}
}

// Save persists the document and records its source as a revision.
func (s *Session) Save(ctx context.Context) (*store.Record, error) {
	return s.save(ctx, "save")
}

func (s *Session) save(ctx context.Context, reason string) (*store.Record, error) {
	if s.deps.store == nil {
		return nil, schema.NewError(schema.ErrCodeStore, "no store configured")
	}

	s.mu.Lock()
	version := s.version
	rec := &store.Record{
		ID:        s.documentID,
		Name:      s.name,
		Document:  s.doc.Clone(),
		View:      s.view,
		Source:    s.output.Text,
		CreatedAt: s.createdAt,
	}
	ctx = s.ctx(ctx)
	s.mu.Unlock()

	if err := s.deps.store.SaveDocument(ctx, rec); err != nil {
		return nil, err
	}
	if s.deps.revisions != nil {
		if _, err := s.deps.revisions.Record(ctx, rec.ID, rec.DiagramType, rec.Source, reason); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	s.createdAt = rec.CreatedAt
	if version > s.saved {
		s.saved = version
	}
	s.mu.Unlock()

	s.deps.logger.InfoContext(ctx, "document saved", slog.String("reason", reason), slog.Uint64("version", version))
	s.publish(ctx, schema.EventDocumentSaved, map[string]any{"version": version, "reason": reason})
	return rec, nil
}

// close stops the pending preview. Later edits are rejected.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func errClosed(documentID string) *schema.Error {
	return schema.NewErrorf(schema.ErrCodeConflict, "session for document %s is closed", documentID)
}
