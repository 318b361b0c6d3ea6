package store

import (
	"time"

	"github.com/rendis/mermaidsync/internal/diagram"
)

// RecordVersion is the format version written into every record.
const RecordVersion = "1.0"

// View is the canvas viewport saved alongside a document.
type View struct {
	Zoom float64 `json:"zoom"`
	PanX float64 `json:"pan_x"`
	PanY float64 `json:"pan_y"`
}

// DefaultView is used when a record carries no viewport.
var DefaultView = View{Zoom: 1}

// Record is the persisted representation of one diagram document.
type Record struct {
	Version     string            `json:"version"`
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	DiagramType diagram.Type      `json:"diagram_type"`
	Document    *diagram.Document `json:"document"`
	View        View              `json:"view"`
	Source      string            `json:"source,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Revision is an immutable entry in a document's source history.
type Revision struct {
	ID          int64        `json:"id"`
	DocumentID  string       `json:"document_id"`
	Sequence    int64        `json:"sequence"`
	DiagramType diagram.Type `json:"diagram_type"`
	Source      string       `json:"source"`
	Reason      string       `json:"reason,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// DocumentFilter narrows ListDocuments results.
type DocumentFilter struct {
	DiagramType diagram.Type
	// NameContains matches case-insensitively.
	NameContains string
	Since        *time.Time
	Limit        int
	Offset       int
}

// DocumentSummary is a listing row without the document body.
type DocumentSummary struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	DiagramType diagram.Type `json:"diagram_type"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
