package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/askpdf/askpdf/internal/db"
)

// Document is one uploaded source file. Rows are created on successful
// ingestion, never mutated, and removed only on full reset.
type Document struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	StoredPath string    `json:"stored_path"`
	Pages      int       `json:"pages"`
	Chunks     int       `json:"chunks"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// HistoryEntry is one answered question, kept for display only.
type HistoryEntry struct {
	ID       string    `json:"id"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Model    string    `json:"model"`
	Sources  []string  `json:"sources"`
	AskedAt  time.Time `json:"asked_at"`
}

// Store persists the document registry and the bounded question history.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// AddDocument registers an ingested document. If doc.ID is empty a UUID is
// generated. The stored row is returned.
func (s *Store) AddDocument(ctx context.Context, doc Document) (Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, filename, stored_path, pages, chunks, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, doc.StoredPath, doc.Pages, doc.Chunks,
		doc.UploadedAt.UTC().Format(time.DateTime),
	)
	if err != nil {
		return Document{}, fmt.Errorf("inserting document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns all registered documents in upload order.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, stored_path, pages, chunks, uploaded_at
		FROM documents ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			d  Document
			ts string
		)
		if err := rows.Scan(&d.ID, &d.Filename, &d.StoredPath, &d.Pages, &d.Chunks, &ts); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		d.UploadedAt = parseTime(ts)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// CountDocuments returns the number of registered documents.
func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// LastUpload returns the most recent upload time, or the zero time when the
// registry is empty.
func (s *Store) LastUpload(ctx context.Context) (time.Time, error) {
	var ts sql.NullString
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(uploaded_at) FROM documents").Scan(&ts); err != nil {
		return time.Time{}, fmt.Errorf("querying last upload: %w", err)
	}
	if !ts.Valid || ts.String == "" {
		return time.Time{}, nil
	}
	return parseTime(ts.String), nil
}

// RemoveDocument deletes a single registry row. Used to undo bookkeeping
// for an ingest that failed partway.
func (s *Store) RemoveDocument(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// ClearDocuments removes every registry row.
func (s *Store) ClearDocuments(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("clearing documents: %w", err)
	}
	return nil
}

// AppendHistory records an answered question and prunes the log down to
// limit entries. limit <= 0 disables history entirely.
func (s *Store) AppendHistory(ctx context.Context, entry HistoryEntry, limit int) error {
	if limit <= 0 {
		return nil
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.AskedAt.IsZero() {
		entry.AskedAt = time.Now().UTC()
	}

	sources, err := json.Marshal(entry.Sources)
	if err != nil {
		return fmt.Errorf("marshalling sources: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO query_history (id, question, answer, model, sources, asked_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Question, entry.Answer, entry.Model,
		string(sources), entry.AskedAt.UTC().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("inserting history entry: %w", err)
	}

	// rowid reflects insertion order exactly, unlike second-resolution
	// timestamps.
	_, err = s.db.ExecContext(ctx, `
		DELETE FROM query_history WHERE rowid NOT IN (
			SELECT rowid FROM query_history ORDER BY rowid DESC LIMIT ?
		)`, limit)
	if err != nil {
		return fmt.Errorf("pruning history: %w", err)
	}
	return nil
}

// RecentHistory returns up to limit entries, newest first.
func (s *Store) RecentHistory(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question, answer, model, sources, asked_at
		FROM query_history ORDER BY rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			e           HistoryEntry
			sourcesJSON string
			ts          string
		)
		if err := rows.Scan(&e.ID, &e.Question, &e.Answer, &e.Model, &sourcesJSON, &ts); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		if err := json.Unmarshal([]byte(sourcesJSON), &e.Sources); err != nil {
			e.Sources = nil
		}
		e.AskedAt = parseTime(ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ClearHistory removes every history entry.
func (s *Store) ClearHistory(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM query_history"); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

func parseTime(ts string) time.Time {
	if t, err := time.Parse(time.DateTime, ts); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t
	}
	return time.Time{}
}
