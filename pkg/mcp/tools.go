package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/mermaidsync/internal/diagram"
	"github.com/rendis/mermaidsync/internal/expressions"
	"github.com/rendis/mermaidsync/internal/grammar"
	"github.com/rendis/mermaidsync/internal/layout"
	"github.com/rendis/mermaidsync/internal/render"
	"github.com/rendis/mermaidsync/internal/session"
	"github.com/rendis/mermaidsync/internal/store"
	"github.com/rendis/mermaidsync/pkg/schema"
)

// handleDetect reports the diagram type of a text.
func (s *Server) handleDetect(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text is required"), nil
	}
	return marshalResult(map[string]any{"type": grammar.Detect(text)})
}

// handleParse turns text into a document, optionally laid out and validated.
func (s *Server) handleParse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text is required"), nil
	}

	var d *diagram.Document
	if t := diagram.Type(req.GetString("type", "")); t != "" {
		if !t.Valid() {
			return mcp.NewToolResultError(fmt.Sprintf("unsupported diagram type %q", t)), nil
		}
		d = grammar.ParseAs(t, text)
	} else {
		d = grammar.Parse(text)
	}

	if req.GetBool("layout", false) {
		if layoutErr := layout.Arrange(ctx, d, s.layouter); layoutErr != nil {
			return toolError("layout failed", layoutErr), nil
		}
	}

	out := map[string]any{"document": d}
	if s.validator != nil && req.GetBool("validate", true) {
		out["validation"] = s.validator.Validate(d)
	}
	return marshalResult(out)
}

// handleGenerate turns a document into text.
func (s *Server) handleGenerate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := documentArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if d == nil {
		return mcp.NewToolResultError("document is required"), nil
	}
	return marshalResult(grammar.Generate(d))
}

// handleRender renders text to a preview.
func (s *Server) handleRender(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text is required"), nil
	}
	if s.renderer == nil {
		return mcp.NewToolResultError("no renderer configured"), nil
	}

	p, renderErr := s.renderer.Render(ctx, text)
	if renderErr != nil {
		return toolError("render failed", renderErr), nil
	}
	if p.Format == render.FormatPNG {
		caption := fmt.Sprintf("rendered by %s", p.Renderer)
		return mcp.NewToolResultImage(caption, base64.StdEncoding.EncodeToString(p.Data), p.Format.MediaType()), nil
	}
	return mcp.NewToolResultText(string(p.Data)), nil
}

// handleSave creates or updates a stored document.
func (s *Server) handleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.sessions == nil {
		return mcp.NewToolResultError("no document store configured"), nil
	}

	id := req.GetString("id", "")
	name := req.GetString("name", "")
	source := req.GetString("source", "")
	doc, err := documentArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sess *session.Session
	if id != "" {
		sess, err = s.sessions.Open(ctx, id)
	} else {
		t := diagram.Type(req.GetString("type", ""))
		switch {
		case source != "":
			t = grammar.Detect(source)
		case doc != nil:
			t = doc.Type
		case t == "":
			t = diagram.TypeFlowchart
		}
		sess, err = s.sessions.Create(ctx, name, t)
	}
	if err != nil {
		return toolError("open document failed", err), nil
	}

	if name != "" {
		sess.Rename(name)
	}
	switch {
	case source != "":
		_, err = sess.LoadSource(ctx, source)
	case doc != nil:
		_, err = sess.Mutate(ctx, func(d *diagram.Document) error {
			*d = *doc
			return nil
		})
	}
	if err != nil {
		return toolError("update document failed", err), nil
	}

	rec, err := sess.Save(ctx)
	if err != nil {
		return toolError("save failed", err), nil
	}
	s.captureWatch(ctx, rec.ID)

	return marshalResult(map[string]any{
		"id":           rec.ID,
		"name":         rec.Name,
		"diagram_type": rec.DiagramType,
		"source":       rec.Source,
		"updated_at":   rec.UpdatedAt,
	})
}

// handleLoad returns a stored document with its generated source.
func (s *Server) handleLoad(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id is required"), nil
	}
	if s.sessions == nil {
		return mcp.NewToolResultError("no document store configured"), nil
	}

	sess, err := s.sessions.Open(ctx, id)
	if err != nil {
		return toolError("load failed", err), nil
	}
	if req.GetBool("watch", false) {
		s.captureWatch(ctx, id)
	}

	out := sess.Generate()
	return marshalResult(map[string]any{
		"id":          sess.DocumentID(),
		"name":        sess.Name(),
		"dirty":       sess.Dirty(),
		"document":    sess.Snapshot(),
		"source":      out.Text,
		"groups":      out.Groups,
		"placeholder": out.Placeholder,
	})
}

// handleList lists stored documents.
func (s *Server) handleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError("no document store configured"), nil
	}
	filter := mcp.ParseStringMap(req, "filter", nil)

	df := store.DocumentFilter{
		Limit:  extractInt(filter, "limit", 50),
		Offset: extractInt(filter, "offset", 0),
	}
	if t, ok := filter["type"].(string); ok {
		df.DiagramType = diagram.Type(t)
	}
	if name, ok := filter["name"].(string); ok {
		df.NameContains = name
	}
	if since, ok := filter["since"].(string); ok && since != "" {
		if t, err := time.Parse(time.RFC3339, since); err == nil {
			df.Since = &t
		}
	}

	docs, err := s.store.ListDocuments(ctx, df)
	if err != nil {
		return toolError("query failed", err), nil
	}
	if docs == nil {
		docs = []*store.DocumentSummary{}
	}
	return marshalResult(docs)
}

// handleQuery evaluates an expression over a stored or open document.
func (s *Server) handleQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id is required"), nil
	}
	expression, err := req.RequireString("expression")
	if err != nil {
		return mcp.NewToolResultError("expression is required"), nil
	}
	if s.sessions == nil {
		return mcp.NewToolResultError("no document store configured"), nil
	}

	sess, err := s.sessions.Open(ctx, id)
	if err != nil {
		return toolError("load failed", err), nil
	}
	res, err := expressions.Run(ctx, req.GetString("engine", "cel"), sess.Snapshot(), expression)
	if err != nil {
		return toolError("query failed", err), nil
	}
	return marshalResult(res)
}

// handleDelete removes a stored document.
func (s *Server) handleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id is required"), nil
	}
	if s.sessions == nil {
		return mcp.NewToolResultError("no document store configured"), nil
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return toolError("delete failed", err), nil
	}
	return marshalResult(map[string]any{"ok": true, "id": id})
}

// handleHistory lists the revisions of a document.
func (s *Server) handleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id is required"), nil
	}
	if s.sessions == nil || s.sessions.Revisions() == nil {
		return mcp.NewToolResultError("no document store configured"), nil
	}
	revs, err := s.sessions.Revisions().History(ctx, id)
	if err != nil {
		return toolError("history failed", err), nil
	}
	if revs == nil {
		revs = []*store.Revision{}
	}
	return marshalResult(revs)
}

// --- Internal helpers ---

// documentArg decodes the optional "document" argument.
func documentArg(req mcp.CallToolRequest) (*diagram.Document, error) {
	raw := mcp.ParseStringMap(req, "document", nil)
	if raw == nil {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	var d diagram.Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	if d.Type == "" {
		d.Type = diagram.TypeFlowchart
	}
	if !d.Type.Valid() {
		return nil, fmt.Errorf("unsupported diagram type %q", d.Type)
	}
	return &d, nil
}

// toolError formats err as a tool error, keeping the error code visible.
func toolError(prefix string, err error) *mcp.CallToolResult {
	var se *schema.Error
	if errors.As(err, &se) {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", prefix, se.Error()))
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", prefix, err))
}

// extractInt safely extracts an integer from a filter map.
func extractInt(filter map[string]any, key string, defaultVal int) int {
	if filter == nil {
		return defaultVal
	}
	v, ok := filter[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case float64:
		return int(val)
	case int:
		return val
	case string:
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

// captureWatch subscribes the calling MCP session to a document's events.
func (s *Server) captureWatch(ctx context.Context, documentID string) {
	if cs := server.ClientSessionFromContext(ctx); cs != nil {
		s.watchers.Register(documentID, cs.SessionID())
	}
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
