// Package panel serves the browser editor: an HTTP JSON API over the
// grammar and the document sessions, a Server-Sent Events preview stream
// and two HTML pages.
package panel

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/rendis/mermaidsync/internal/layout"
	"github.com/rendis/mermaidsync/internal/render"
	"github.com/rendis/mermaidsync/internal/session"
	"github.com/rendis/mermaidsync/internal/store"
	"github.com/rendis/mermaidsync/internal/streaming"
	"github.com/rendis/mermaidsync/internal/validation"
)

//go:embed templates static
var content embed.FS

// PanelDeps holds the dependencies for the panel server.
type PanelDeps struct {
	Sessions  *session.Manager
	Store     store.Store
	Hub       streaming.EventHub
	Renderer  render.Renderer
	Layouter  layout.Layouter
	Validator validation.Validator
	Logger    *slog.Logger
}

// PanelServer serves the web editor.
type PanelServer struct {
	deps  PanelDeps
	pages map[string]*template.Template
}

// NewPanelServer creates a new PanelServer with parsed templates.
func NewPanelServer(deps PanelDeps) *PanelServer {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	funcMap := template.FuncMap{
		"json":      toJSON,
		"timeAgo":   timeAgo,
		"typeBadge": typeBadge,
		"truncate":  truncate,
	}

	base := template.Must(
		template.New("").Funcs(funcMap).ParseFS(content, "templates/base.html"),
	)

	// Each page clones the shared set so that its {{define "content"}}
	// doesn't collide with others.
	pageFiles := []string{
		"documents.html",
		"editor.html",
	}

	pages := make(map[string]*template.Template, len(pageFiles))
	for _, pf := range pageFiles {
		clone := template.Must(base.Clone())
		pages[pf] = template.Must(clone.ParseFS(content, "templates/"+pf))
	}

	return &PanelServer{
		deps:  deps,
		pages: pages,
	}
}

// Handler returns the HTTP handler for the panel routes.
func (s *PanelServer) Handler() http.Handler {
	mux := http.NewServeMux()

	staticFS, _ := fs.Sub(content, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Pages.
	mux.HandleFunc("GET /{$}", s.handleDocumentsPage)
	mux.HandleFunc("GET /documents/{id}", s.handleEditorPage)

	// SSE streams.
	mux.HandleFunc("GET /sse/events", s.handleSSEGlobal)
	mux.HandleFunc("GET /sse/documents/{id}", s.handleSSEDocument)

	// Stateless grammar API.
	mux.HandleFunc("POST /api/detect", s.handleDetect)
	mux.HandleFunc("POST /api/parse", s.handleParse)
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/validate", s.handleValidate)
	mux.HandleFunc("POST /api/render", s.handleRender)

	// Documents and their live sessions.
	mux.HandleFunc("GET /api/documents", s.handleListDocuments)
	mux.HandleFunc("POST /api/documents", s.handleCreateDocument)
	mux.HandleFunc("GET /api/documents/{id}", s.handleGetDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", s.handleDeleteDocument)
	mux.HandleFunc("PUT /api/documents/{id}/source", s.handleLoadSource)
	mux.HandleFunc("PUT /api/documents/{id}/type", s.handleSwitchType)
	mux.HandleFunc("PUT /api/documents/{id}/view", s.handleSetView)
	mux.HandleFunc("POST /api/documents/{id}/elements", s.handleAddElement)
	mux.HandleFunc("DELETE /api/documents/{id}/elements/{kind}/{eid}", s.handleRemoveElement)
	mux.HandleFunc("POST /api/documents/{id}/save", s.handleSaveDocument)
	mux.HandleFunc("POST /api/documents/{id}/preview", s.handlePreviewDocument)
	mux.HandleFunc("POST /api/documents/{id}/query", s.handleQueryDocument)
	mux.HandleFunc("GET /api/documents/{id}/revisions", s.handleListRevisions)

	return mux
}

// renderPage executes a page template by name.
func (s *PanelServer) renderPage(w http.ResponseWriter, page string, data any) {
	tmpl, ok := s.pages[page]
	if !ok {
		s.deps.Logger.Error("template not found", "page", page)
		http.Error(w, fmt.Sprintf("template %q not found", page), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		s.deps.Logger.Error("template render error", "page", page, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
