package panel

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rendis/mermaidsync/internal/diagram"
	"github.com/rendis/mermaidsync/internal/expressions"
	"github.com/rendis/mermaidsync/internal/grammar"
	"github.com/rendis/mermaidsync/internal/layout"
	"github.com/rendis/mermaidsync/internal/session"
	"github.com/rendis/mermaidsync/internal/store"
	"github.com/rendis/mermaidsync/pkg/schema"
)

// --- Stateless grammar API ---

type textBody struct {
	Text string `json:"text"`
	// Type forces the grammar used by /api/parse.
	Type diagram.Type `json:"type,omitempty"`
	// Layout arranges the parsed document before it is returned.
	Layout bool `json:"layout,omitempty"`
}

// handleDetect reports the diagram type of a text.
func (s *PanelServer) handleDetect(w http.ResponseWriter, r *http.Request) {
	var body textBody
	if !decodeBody(w, r, &body) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"type": grammar.Detect(body.Text)})
}

// handleParse turns text into a document, optionally laid out.
func (s *PanelServer) handleParse(w http.ResponseWriter, r *http.Request) {
	var body textBody
	if !decodeBody(w, r, &body) {
		return
	}

	var d *diagram.Document
	if body.Type != "" {
		if !body.Type.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported diagram type %q", body.Type))
			return
		}
		d = grammar.ParseAs(body.Type, body.Text)
	} else {
		d = grammar.Parse(body.Text)
	}

	if body.Layout {
		if err := layout.Arrange(r.Context(), d, s.deps.Layouter); err != nil {
			writeSchemaError(w, err)
			return
		}
	}

	resp := map[string]any{"document": d}
	if s.deps.Validator != nil {
		resp["validation"] = s.deps.Validator.Validate(d)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGenerate turns a document into text.
func (s *PanelServer) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Document *diagram.Document `json:"document"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Document == nil {
		writeError(w, http.StatusBadRequest, "document is required")
		return
	}
	writeJSON(w, http.StatusOK, grammar.Generate(body.Document))
}

// handleValidate runs the validation pipeline over a document.
func (s *PanelServer) handleValidate(w http.ResponseWriter, r *http.Request) {
	if s.deps.Validator == nil {
		writeError(w, http.StatusServiceUnavailable, "validator not configured")
		return
	}
	var body struct {
		Document *diagram.Document `json:"document"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	result := s.deps.Validator.Validate(body.Document)
	writeJSON(w, http.StatusOK, map[string]any{"valid": result.Valid(), "result": result})
}

// handleRender renders text and answers with the preview bytes.
func (s *PanelServer) handleRender(w http.ResponseWriter, r *http.Request) {
	if s.deps.Renderer == nil {
		writeError(w, http.StatusServiceUnavailable, "renderer not configured")
		return
	}
	var body textBody
	if !decodeBody(w, r, &body) {
		return
	}
	p, err := s.deps.Renderer.Render(r.Context(), body.Text)
	if err != nil {
		writeSchemaError(w, err)
		return
	}
	w.Header().Set("Content-Type", p.Format.MediaType())
	w.Header().Set("X-Renderer", p.Renderer)
	w.WriteHeader(http.StatusOK)
	w.Write(p.Data)
}

// --- Documents ---

// documentView is the JSON form of an open document.
type documentView struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Session  string            `json:"session_id"`
	Version  uint64            `json:"version"`
	Dirty    bool              `json:"dirty"`
	Document *diagram.Document `json:"document"`
	Output   grammar.Output    `json:"output"`
}

func viewOf(sess *session.Session) documentView {
	return documentView{
		ID:       sess.DocumentID(),
		Name:     sess.Name(),
		Session:  sess.ID(),
		Version:  sess.Version(),
		Dirty:    sess.Dirty(),
		Document: sess.Snapshot(),
		Output:   sess.Generate(),
	}
}

// openSession resolves the {id} path value to a live session.
func (s *PanelServer) openSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	if s.deps.Sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "sessions not configured")
		return nil, false
	}
	sess, err := s.deps.Sessions.Open(r.Context(), r.PathValue("id"))
	if err != nil {
		writeSchemaError(w, err)
		return nil, false
	}
	return sess, true
}

// handleListDocuments lists stored documents.
func (s *PanelServer) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "store not configured")
		return
	}
	filter := store.DocumentFilter{
		DiagramType:  diagram.Type(r.URL.Query().Get("type")),
		NameContains: r.URL.Query().Get("name"),
		Limit:        queryInt(r, "limit", 50),
		Offset:       queryInt(r, "offset", 0),
	}
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid since: %v", err))
			return
		}
		filter.Since = &t
	}
	docs, err := s.deps.Store.ListDocuments(r.Context(), filter)
	if err != nil {
		writeSchemaError(w, err)
		return
	}
	if docs == nil {
		docs = []*store.DocumentSummary{}
	}
	writeJSON(w, http.StatusOK, docs)
}

// handleCreateDocument starts a document, optionally from source text, and
// saves it.
func (s *PanelServer) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "sessions not configured")
		return
	}
	var body struct {
		Name   string       `json:"name"`
		Type   diagram.Type `json:"type"`
		Source string       `json:"source"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Type == "" {
		body.Type = grammar.Detect(body.Source)
	}

	ctx := r.Context()
	sess, err := s.deps.Sessions.Create(ctx, body.Name, body.Type)
	if err != nil {
		writeSchemaError(w, err)
		return
	}
	if body.Source != "" {
		if _, err := sess.LoadSource(ctx, body.Source); err != nil {
			writeSchemaError(w, err)
			return
		}
	}
	if _, err := sess.Save(ctx); err != nil {
		s.deps.Sessions.Close(sess.DocumentID())
		writeSchemaError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(sess))
}

// handleGetDocument returns the live state of a document.
func (s *PanelServer) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

// handleDeleteDocument removes a document and its history.
func (s *PanelServer) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "sessions not configured")
		return
	}
	id := r.PathValue("id")
	if err := s.deps.Sessions.Delete(r.Context(), id); err != nil {
		writeSchemaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true", "document_id": id})
}

// handleLoadSource replaces a document with the parse of the posted text.
func (s *PanelServer) handleLoadSource(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	var body textBody
	if !decodeBody(w, r, &body) {
		return
	}
	if _, err := sess.LoadSource(r.Context(), body.Text); err != nil {
		writeSchemaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

// handleSwitchType changes the active diagram type.
func (s *PanelServer) handleSwitchType(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	var body struct {
		Type diagram.Type `json:"type"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	out, err := sess.SwitchType(r.Context(), body.Type)
	if err != nil {
		writeSchemaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleSetView stores the canvas viewport.
func (s *PanelServer) handleSetView(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	var view store.View
	if !decodeBody(w, r, &view) {
		return
	}
	if view.Zoom <= 0 {
		writeError(w, http.StatusBadRequest, "zoom must be positive")
		return
	}
	sess.SetView(view)
	writeJSON(w, http.StatusOK, view)
}

// handleAddElement inserts one element: {"kind": "...", "element": {...}}.
func (s *PanelServer) handleAddElement(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	var body struct {
		Kind    string          `json:"kind"`
		Element json.RawMessage `json:"element"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	kind, ok := diagram.ParseKind(body.Kind)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown element kind %q", body.Kind))
		return
	}
	el, err := diagram.DecodeElement(kind, body.Element)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := sess.Mutate(r.Context(), func(d *diagram.Document) error {
		err := d.Add(el)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, diagram.ErrDuplicateID):
			return schema.NewError(schema.ErrCodeConflict, err.Error()).WithElement(el.ElementID())
		default:
			return schema.NewError(schema.ErrCodeValidation, err.Error()).WithElement(el.ElementID())
		}
	})
	if err != nil {
		writeSchemaError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"kind": kind, "id": el.ElementID(), "output": out})
}

// handleRemoveElement deletes one element by kind and id.
func (s *PanelServer) handleRemoveElement(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	kind, ok := diagram.ParseKind(r.PathValue("kind"))
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown element kind %q", r.PathValue("kind")))
		return
	}
	id := r.PathValue("eid")
	out, err := sess.Mutate(r.Context(), func(d *diagram.Document) error {
		if !d.Remove(kind, id) {
			return schema.NewErrorf(schema.ErrCodeNotFound, "%s %s not found", kind, id).WithElement(id)
		}
		return nil
	})
	if err != nil {
		writeSchemaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleSaveDocument persists the live document.
func (s *PanelServer) handleSaveDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	rec, err := sess.Save(r.Context())
	if err != nil {
		writeSchemaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handlePreviewDocument renders the document right away. The result is
// also published on the document's event stream.
func (s *PanelServer) handlePreviewDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	p, err := sess.RenderNow(r.Context())
	if err != nil && p == nil {
		writeSchemaError(w, err)
		return
	}
	status := http.StatusOK
	if p.Error != "" {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, p)
}

// handleQueryDocument evaluates a CEL, expr or jq expression over the
// live document.
func (s *PanelServer) handleQueryDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	var body struct {
		Engine     string `json:"engine"`
		Expression string `json:"expression"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Engine == "" {
		body.Engine = "cel"
	}
	res, err := expressions.Run(r.Context(), body.Engine, sess.Snapshot(), body.Expression)
	if err != nil {
		writeSchemaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleListRevisions returns the saved source history of a document.
func (s *PanelServer) handleListRevisions(w http.ResponseWriter, r *http.Request) {
	if s.deps.Sessions == nil || s.deps.Sessions.Revisions() == nil {
		writeError(w, http.StatusServiceUnavailable, "store not configured")
		return
	}
	revs, err := s.deps.Sessions.Revisions().History(r.Context(), r.PathValue("id"))
	if err != nil {
		writeSchemaError(w, err)
		return
	}
	if revs == nil {
		revs = []*store.Revision{}
	}
	writeJSON(w, http.StatusOK, revs)
}
