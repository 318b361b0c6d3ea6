package store

import (
	"context"
	"fmt"

	"github.com/rendis/mermaidsync/internal/diagram"
	"github.com/rendis/mermaidsync/pkg/schema"
)

// RevisionLog keeps the source history of documents on top of a Store.
type RevisionLog struct {
	store Store
}

// NewRevisionLog wraps a Store to provide revision history operations.
func NewRevisionLog(s Store) *RevisionLog {
	return &RevisionLog{store: s}
}

// Record appends source as a new revision unless it matches the latest one.
// It reports whether a revision was written.
func (rl *RevisionLog) Record(ctx context.Context, documentID string, typ diagram.Type, source, reason string) (bool, error) {
	latest, err := rl.Latest(ctx, documentID)
	if err != nil && !schema.HasCode(err, schema.ErrCodeNotFound) {
		return false, err
	}
	if latest != nil && latest.Source == source && latest.DiagramType == typ {
		return false, nil
	}
	rev := &Revision{DocumentID: documentID, DiagramType: typ, Source: source, Reason: reason}
	if err := rl.store.AppendRevision(ctx, rev); err != nil {
		return false, err
	}
	return true, nil
}

// History returns every revision of a document, oldest first.
// Returns an error if sequence gaps are detected.
func (rl *RevisionLog) History(ctx context.Context, documentID string) ([]*Revision, error) {
	revs, err := rl.store.ListRevisions(ctx, documentID, 0)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	for i, r := range revs {
		expected := int64(i + 1)
		if r.Sequence != expected {
			return nil, schema.NewErrorf(schema.ErrCodeStore,
				"sequence gap in document %s: expected %d, got %d", documentID, expected, r.Sequence)
		}
	}
	return revs, nil
}

// Latest returns the newest revision, or NOT_FOUND when the document has none.
func (rl *RevisionLog) Latest(ctx context.Context, documentID string) (*Revision, error) {
	revs, err := rl.History(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if len(revs) == 0 {
		return nil, storeNotFound("revision for document", documentID)
	}
	return revs[len(revs)-1], nil
}

// At returns the revision with the given sequence.
func (rl *RevisionLog) At(ctx context.Context, documentID string, sequence int64) (*Revision, error) {
	revs, err := rl.store.ListRevisions(ctx, documentID, sequence-1)
	if err != nil {
		return nil, err
	}
	if len(revs) == 0 || revs[0].Sequence != sequence {
		return nil, storeNotFound("revision", fmt.Sprintf("%s#%d", documentID, sequence))
	}
	return revs[0], nil
}
