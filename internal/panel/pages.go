package panel

import (
	"net/http"

	"github.com/rendis/mermaidsync/internal/diagram"
	"github.com/rendis/mermaidsync/internal/store"
)

// --- Page data types ---

type pageData struct {
	Title  string
	Active string
}

type documentsData struct {
	pageData
	Documents []*store.DocumentSummary
	Types     []diagram.Type
	Type      string
	Name      string
	Limit     int
	Offset    int
}

type editorData struct {
	pageData
	Doc   documentView
	Types []diagram.Type
}

// handleDocumentsPage lists stored documents.
func (s *PanelServer) handleDocumentsPage(w http.ResponseWriter, r *http.Request) {
	data := documentsData{
		pageData: pageData{Title: "Documents", Active: "documents"},
		Types:    diagram.Types,
		Type:     r.URL.Query().Get("type"),
		Name:     r.URL.Query().Get("name"),
		Limit:    queryInt(r, "limit", 50),
		Offset:   queryInt(r, "offset", 0),
	}
	if s.deps.Store != nil {
		docs, err := s.deps.Store.ListDocuments(r.Context(), store.DocumentFilter{
			DiagramType:  diagram.Type(data.Type),
			NameContains: data.Name,
			Limit:        data.Limit,
			Offset:       data.Offset,
		})
		if err != nil {
			s.deps.Logger.Error("list documents failed", "error", err)
		}
		data.Documents = docs
	}
	s.renderPage(w, "documents.html", data)
}

// handleEditorPage shows the text editor and live preview of a document.
func (s *PanelServer) handleEditorPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.openSession(w, r)
	if !ok {
		return
	}
	doc := viewOf(sess)
	s.renderPage(w, "editor.html", editorData{
		pageData: pageData{Title: doc.Name, Active: "editor"},
		Doc:      doc,
		Types:    diagram.Types,
	})
}
