package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/rendis/mermaidsync/internal/diagram"
	"github.com/rendis/mermaidsync/pkg/schema"
)

// DefaultName is given to records saved without a name.
const DefaultName = "Untitled diagram"

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db        *sql.DB
	validator Validator
}

// Option configures a LibSQLStore.
type Option func(*LibSQLStore)

// WithValidator checks every record against v on save and load.
func WithValidator(v Validator) Option {
	return func(s *LibSQLStore) { s.validator = v }
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string, opts ...Option) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	s := &LibSQLStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DB returns the underlying *sql.DB for advanced usage (e.g. the revision log).
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// --- Documents ---

// SaveDocument inserts or replaces a record. Missing ids are generated, the
// version is stamped and CreatedAt survives later saves.
func (s *LibSQLStore) SaveDocument(ctx context.Context, rec *Record) error {
	if rec == nil || rec.Document == nil {
		return schema.NewError(schema.ErrCodeValidation, "record has no document")
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Name == "" {
		rec.Name = DefaultName
	}
	if rec.View == (View{}) {
		rec.View = DefaultView
	}
	rec.Version = RecordVersion
	rec.DiagramType = rec.Document.Type
	rec.CreatedAt = timeOrNow(rec.CreatedAt)
	rec.UpdatedAt = time.Now().UTC()

	if err := s.validate(rec); err != nil {
		return err
	}

	doc, err := json.Marshal(rec.Document)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	view, err := json.Marshal(rec.View)
	if err != nil {
		return fmt.Errorf("marshal view: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, name, diagram_type, version, document, view, source, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, diagram_type=excluded.diagram_type,
		   version=excluded.version, document=excluded.document, view=excluded.view,
		   source=excluded.source, updated_at=excluded.updated_at`,
		rec.ID, rec.Name, string(rec.DiagramType), rec.Version, string(doc), string(view),
		nullStr(rec.Source), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "save document %s", rec.ID).WithCause(err)
	}

	// The original creation time wins on update.
	return s.db.QueryRowContext(ctx, `SELECT created_at FROM documents WHERE id = ?`, rec.ID).Scan(&rec.CreatedAt)
}

// GetDocument loads one record.
func (s *LibSQLStore) GetDocument(ctx context.Context, id string) (*Record, error) {
	rec := &Record{}
	var (
		docJSON, viewJSON, diagramType string
		source                         sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, diagram_type, version, document, view, source, created_at, updated_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Name, &diagramType, &rec.Version, &docJSON, &viewJSON, &source, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("document", id)
	}
	if err != nil {
		return nil, err
	}
	rec.DiagramType = diagram.Type(diagramType)
	rec.Source = source.String

	rec.Document = &diagram.Document{}
	if err := json.Unmarshal([]byte(docJSON), rec.Document); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	if err := json.Unmarshal([]byte(viewJSON), &rec.View); err != nil {
		return nil, fmt.Errorf("unmarshal view: %w", err)
	}
	if err := s.validate(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListDocuments returns summaries, most recently updated first.
func (s *LibSQLStore) ListDocuments(ctx context.Context, filter DocumentFilter) ([]*DocumentSummary, error) {
	var where []string
	var args []any

	if filter.DiagramType != "" {
		where = append(where, "diagram_type = ?")
		args = append(args, string(filter.DiagramType))
	}
	if filter.NameContains != "" {
		where = append(where, "LOWER(name) LIKE ?")
		args = append(args, "%"+strings.ToLower(filter.NameContains)+"%")
	}
	if filter.Since != nil {
		where = append(where, "updated_at >= ?")
		args = append(args, *filter.Since)
	}

	query := "SELECT id, name, diagram_type, updated_at FROM documents"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC, id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*DocumentSummary
	for rows.Next() {
		sum := &DocumentSummary{}
		var diagramType string
		if err := rows.Scan(&sum.ID, &sum.Name, &diagramType, &sum.UpdatedAt); err != nil {
			return nil, err
		}
		sum.DiagramType = diagram.Type(diagramType)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// DeleteDocument removes a record and its revisions.
func (s *LibSQLStore) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM revisions WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("delete revisions: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := checkRowsAffected(res, "document", id); err != nil {
		return err
	}
	return tx.Commit()
}

// --- Revisions ---

// AppendRevision appends a revision with a monotonically increasing
// per-document sequence.
func (s *LibSQLStore) AppendRevision(ctx context.Context, rev *Revision) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// In WAL mode BeginTx may start a deferred transaction; a write forces
	// the lock before the sequence is read.
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_version (version, name) VALUES (-1, '_lock_noop')`); err != nil {
		return fmt.Errorf("acquire write lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schema_version WHERE version = -1`); err != nil {
		return fmt.Errorf("cleanup write lock: %w", err)
	}

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE id = ?`, rev.DocumentID).Scan(&exists); err != nil {
		return fmt.Errorf("check document: %w", err)
	}
	if exists == 0 {
		return storeNotFound("document", rev.DocumentID)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) + 1 FROM revisions WHERE document_id = ?`, rev.DocumentID,
	).Scan(&seq); err != nil {
		return fmt.Errorf("get next sequence: %w", err)
	}
	rev.Sequence = seq
	rev.CreatedAt = timeOrNow(rev.CreatedAt)

	res, err := tx.ExecContext(ctx,
		`INSERT INTO revisions (document_id, sequence, diagram_type, source, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rev.DocumentID, seq, string(rev.DiagramType), rev.Source, nullStr(rev.Reason), rev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		rev.ID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit revision: %w", err)
	}
	return nil
}

// ListRevisions returns revisions with sequence > since, oldest first.
func (s *LibSQLStore) ListRevisions(ctx context.Context, documentID string, since int64) ([]*Revision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, sequence, diagram_type, source, reason, created_at
		 FROM revisions WHERE document_id = ? AND sequence > ? ORDER BY sequence ASC`,
		documentID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Revision
	for rows.Next() {
		rev := &Revision{}
		var diagramType string
		var reason sql.NullString
		if err := rows.Scan(&rev.ID, &rev.DocumentID, &rev.Sequence, &diagramType, &rev.Source, &reason, &rev.CreatedAt); err != nil {
			return nil, err
		}
		rev.DiagramType = diagram.Type(diagramType)
		rev.Reason = reason.String
		out = append(out, rev)
	}
	return out, rows.Err()
}

// --- helpers ---

func (s *LibSQLStore) validate(rec *Record) error {
	if s.validator == nil {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize record").WithCause(err)
	}
	return s.validator.ValidateRecord(data)
}

func storeNotFound(resource, id string) *schema.Error {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %s not found", resource, id)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
