package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/mermaidsync/internal/diagram"
	"github.com/rendis/mermaidsync/internal/layout"
	"github.com/rendis/mermaidsync/internal/render"
	"github.com/rendis/mermaidsync/internal/store"
	"github.com/rendis/mermaidsync/internal/streaming"
	"github.com/rendis/mermaidsync/pkg/schema"
)

// Options configures a Manager. Every collaborator is optional: without a
// renderer no previews are produced, without a store sessions cannot be
// opened from or saved to disk.
type Options struct {
	Renderer render.Renderer
	Layouter layout.Layouter
	Hub      streaming.EventHub
	Store    store.Store
	// Debounce is the preview quiet period; zero means DefaultDebounce.
	Debounce time.Duration
	Logger   *slog.Logger
}

// Manager tracks the open sessions, one per document.
type Manager struct {
	deps *deps

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager.
func NewManager(opts Options) *Manager {
	d := &deps{
		renderer: opts.Renderer,
		layouter: opts.Layouter,
		hub:      opts.Hub,
		store:    opts.Store,
		debounce: opts.Debounce,
		logger:   opts.Logger,
	}
	if d.debounce <= 0 {
		d.debounce = DefaultDebounce
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.store != nil {
		d.revisions = store.NewRevisionLog(d.store)
	}
	return &Manager{deps: d, sessions: make(map[string]*Session)}
}

// Revisions returns the revision log backing saves, or nil without a store.
func (m *Manager) Revisions() *store.RevisionLog { return m.deps.revisions }

// Create starts a session on a new, unsaved document.
func (m *Manager) Create(ctx context.Context, name string, t diagram.Type) (*Session, error) {
	if !t.Valid() {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unsupported diagram type %q", t)
	}
	if name == "" {
		name = store.DefaultName
	}
	rec := &store.Record{Name: name, Document: diagram.New(t), View: store.DefaultView}
	s := newSession(uuid.New().String(), uuid.New().String(), rec, m.deps)
	// A new document is dirty until its first save.
	s.version = 1

	m.mu.Lock()
	m.sessions[s.documentID] = s
	m.mu.Unlock()

	m.deps.logger.InfoContext(s.ctx(ctx), "session created")
	return s, nil
}

// Open returns the session of a stored document, loading it on first use.
func (m *Manager) Open(ctx context.Context, documentID string) (*Session, error) {
	if s, ok := m.Get(documentID); ok {
		return s, nil
	}
	if m.deps.store == nil {
		return nil, schema.NewError(schema.ErrCodeStore, "no store configured")
	}

	rec, err := m.deps.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another caller may have opened it while the store was read.
	if s, ok := m.sessions[documentID]; ok {
		return s, nil
	}
	s := newSession(uuid.New().String(), documentID, rec, m.deps)
	m.sessions[documentID] = s
	m.deps.logger.InfoContext(s.ctx(ctx), "session opened")
	return s, nil
}

// Get returns an already open session.
func (m *Manager) Get(documentID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[documentID]
	return s, ok
}

// Close ends the session of a document without saving it.
func (m *Manager) Close(documentID string) bool {
	m.mu.Lock()
	s, ok := m.sessions[documentID]
	delete(m.sessions, documentID)
	m.mu.Unlock()
	if ok {
		s.close()
	}
	return ok
}

// Delete closes the session of a document and removes it from the store.
func (m *Manager) Delete(ctx context.Context, documentID string) error {
	m.Close(documentID)
	if m.deps.store == nil {
		return schema.NewError(schema.ErrCodeStore, "no store configured")
	}
	if err := m.deps.store.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	if mh, ok := m.deps.hub.(*streaming.MemoryHub); ok {
		mh.Forget(documentID)
	}
	if m.deps.hub != nil {
		_ = m.deps.hub.Publish(ctx, streaming.StreamEvent{DocumentID: documentID, EventType: schema.EventDocumentDeleted})
	}
	return nil
}

// Dirty lists the documents with unsaved changes, sorted by ID.
func (m *Manager) Dirty() []string {
	m.mu.Lock()
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.mu.Unlock()

	var ids []string
	for _, s := range open {
		if s.Dirty() {
			ids = append(ids, s.documentID)
		}
	}
	sort.Strings(ids)
	return ids
}

// SaveSession saves an open document. It implements scheduler.Saver.
func (m *Manager) SaveSession(ctx context.Context, documentID string) error {
	s, ok := m.Get(documentID)
	if !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "session for document %s not found", documentID)
	}
	if _, err := s.save(ctx, "autosave"); err != nil {
		if m.deps.hub != nil {
			_ = m.deps.hub.Publish(context.WithoutCancel(ctx), streaming.StreamEvent{
				DocumentID: documentID,
				SessionID:  s.id,
				EventType:  schema.EventAutosaveFailed,
				Payload:    map[string]any{"error": err.Error()},
			})
		}
		return err
	}
	return nil
}

// Shutdown closes every session. Unsaved changes are not written.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	open := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range open {
		s.close()
	}
}
