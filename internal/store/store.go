package store

import "context"

// Store defines the persistence layer contract.
// All implementations must be safe for concurrent use.
type Store interface {
	// Documents
	SaveDocument(ctx context.Context, rec *Record) error
	GetDocument(ctx context.Context, id string) (*Record, error)
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]*DocumentSummary, error)
	DeleteDocument(ctx context.Context, id string) error

	// Revisions (append-only)
	AppendRevision(ctx context.Context, rev *Revision) error
	ListRevisions(ctx context.Context, documentID string, since int64) ([]*Revision, error)

	// Maintenance
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}

// Validator checks the JSON form of a record. The store calls it before
// writing and after reading.
type Validator interface {
	ValidateRecord(data []byte) error
}
