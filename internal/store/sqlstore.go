// Package store persists topics, default comments, personalized comments
// and saved reports.
//
// SQLStore is the production backend on SQLite. MemStore keeps everything
// in maps and is used by tests and by `qatool report` when no database is
// wanted.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mayerbet/QAtool/internal/catalog"
	"github.com/mayerbet/QAtool/internal/comments"
	"github.com/mayerbet/QAtool/internal/identity"
	"github.com/mayerbet/QAtool/internal/report"
)

// ErrNotFound is returned by Update when the row does not exist.
var ErrNotFound = errors.New("store: not found")

// timeLayout is fixed width so created_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLStore implements catalog.Source, comments.Backend (with atomic upsert
// and listing) and report.Saver on SQLite.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(path string) (*SQLStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: create dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	// One connection keeps ":memory:" a single database and serializes
	// writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}
	s := &SQLStore{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	if _, err := s.db.Exec(schemaV1); err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	var v int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
			return fmt.Errorf("store: set schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("store: read schema version: %w", err)
	case v != schemaVersion:
		return fmt.Errorf("store: unknown schema version %d", v)
	}
	return nil
}

// Close releases the database.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// FetchTopics implements catalog.Source.
func (s *SQLStore) FetchTopics(ctx context.Context) ([]catalog.Topic, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, label, guide, position FROM topics ORDER BY position, id")
	if err != nil {
		return nil, fmt.Errorf("store: list topics: %w", err)
	}
	defer rows.Close()
	var out []catalog.Topic
	for rows.Next() {
		var t catalog.Topic
		var id string
		if err := rows.Scan(&id, &t.Label, &t.Guide, &t.Position); err != nil {
			return nil, fmt.Errorf("store: scan topic: %w", err)
		}
		t.ID = catalog.TopicID(id)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list topics: %w", err)
	}
	return out, nil
}

// FetchDefaultComments implements catalog.Source.
func (s *SQLStore) FetchDefaultComments(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT label, text FROM default_comments")
	if err != nil {
		return nil, fmt.Errorf("store: list default comments: %w", err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var label, text string
		if err := rows.Scan(&label, &text); err != nil {
			return nil, fmt.Errorf("store: scan default comment: %w", err)
		}
		out[label] = text
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list default comments: %w", err)
	}
	return out, nil
}

// TopicCount returns how many topics are stored.
func (s *SQLStore) TopicCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM topics").Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count topics: %w", err)
	}
	return n, nil
}

// ImportResult summarizes a seed import.
type ImportResult struct {
	Topics   int
	Defaults int
}

// ImportSeed writes the seed's topics and default comments in one
// transaction. Existing rows with the same id (topics) or label (defaults)
// are replaced; nothing else is touched.
func (s *SQLStore) ImportSeed(ctx context.Context, seed catalog.Seed) (ImportResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportResult{}, fmt.Errorf("store: begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var res ImportResult
	for _, t := range seed.CatalogTopics() {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO topics(id, label, guide, position) VALUES(?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET label = excluded.label, guide = excluded.guide, position = excluded.position`,
			string(t.ID), t.Label, t.Guide, t.Position); err != nil {
			return ImportResult{}, fmt.Errorf("store: import topic %s: %w", t.ID, err)
		}
		res.Topics++
	}
	for label, text := range seed.DefaultComments() {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO default_comments(label, text) VALUES(?, ?)
ON CONFLICT(label) DO UPDATE SET text = excluded.text`, label, text); err != nil {
			return ImportResult{}, fmt.Errorf("store: import default comment %q: %w", label, err)
		}
		res.Defaults++
	}
	if err := tx.Commit(); err != nil {
		return ImportResult{}, fmt.Errorf("store: commit import: %w", err)
	}
	return res, nil
}

// Lookup implements comments.Backend.
func (s *SQLStore) Lookup(ctx context.Context, user identity.UserID, topic catalog.TopicID) (comments.Record, bool, error) {
	var text, updated string
	err := s.db.QueryRowContext(ctx,
		"SELECT text, updated_at FROM user_comments WHERE user_id = ? AND topic_id = ?",
		string(user), string(topic)).Scan(&text, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return comments.Record{}, false, nil
	}
	if err != nil {
		return comments.Record{}, false, fmt.Errorf("store: lookup comment: %w", err)
	}
	return comments.Record{UserID: user, TopicID: topic, Text: text, UpdatedAt: parseTime(updated)}, true, nil
}

// Update implements comments.Backend.
func (s *SQLStore) Update(ctx context.Context, user identity.UserID, topic catalog.TopicID, text string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE user_comments SET text = ?, updated_at = ? WHERE user_id = ? AND topic_id = ?",
		text, s.stamp(), string(user), string(topic))
	if err != nil {
		return fmt.Errorf("store: update comment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update comment: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("store: update comment %s/%s: %w", user, topic, ErrNotFound)
	}
	return nil
}

// Insert implements comments.Backend. A second insert for the same
// (user, topic) fails with comments.ErrDuplicate.
func (s *SQLStore) Insert(ctx context.Context, user identity.UserID, topic catalog.TopicID, text string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO user_comments(user_id, topic_id, text, updated_at) VALUES(?, ?, ?, ?)",
		string(user), string(topic), text, s.stamp())
	if isConstraint(err) {
		return fmt.Errorf("store: insert comment %s/%s: %w", user, topic, comments.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("store: insert comment: %w", err)
	}
	return nil
}

// UpsertPersonalized implements comments.AtomicUpserter.
func (s *SQLStore) UpsertPersonalized(ctx context.Context, user identity.UserID, topic catalog.TopicID, text string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO user_comments(user_id, topic_id, text, updated_at) VALUES(?, ?, ?, ?)
ON CONFLICT(user_id, topic_id) DO UPDATE SET text = excluded.text, updated_at = excluded.updated_at`,
		string(user), string(topic), text, s.stamp())
	if err != nil {
		return fmt.Errorf("store: upsert comment: %w", err)
	}
	return nil
}

// ListPersonalized implements comments.Lister.
func (s *SQLStore) ListPersonalized(ctx context.Context, user identity.UserID) ([]comments.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT topic_id, text, updated_at FROM user_comments WHERE user_id = ? ORDER BY topic_id",
		string(user))
	if err != nil {
		return nil, fmt.Errorf("store: list comments: %w", err)
	}
	defer rows.Close()
	var out []comments.Record
	for rows.Next() {
		var topic, text, updated string
		if err := rows.Scan(&topic, &text, &updated); err != nil {
			return nil, fmt.Errorf("store: scan comment: %w", err)
		}
		out = append(out, comments.Record{
			UserID:    user,
			TopicID:   catalog.TopicID(topic),
			Text:      text,
			UpdatedAt: parseTime(updated),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list comments: %w", err)
	}
	return out, nil
}

// SaveReport implements report.Saver.
func (s *SQLStore) SaveReport(ctx context.Context, rec report.Record) (report.Record, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO reports(id, user_id, evaluator_name, contact_id, text, created_at)
VALUES(?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.UserID), rec.EvaluatorName, rec.ContactID, rec.Text, rec.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return report.Record{}, fmt.Errorf("store: save report: %w", err)
	}
	return rec, nil
}

// ListReports returns a user's saved reports, newest first.
func (s *SQLStore) ListReports(ctx context.Context, user identity.UserID) ([]report.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, evaluator_name, contact_id, text, created_at
FROM reports WHERE user_id = ? ORDER BY created_at DESC`, string(user))
	if err != nil {
		return nil, fmt.Errorf("store: list reports: %w", err)
	}
	defer rows.Close()
	var out []report.Record
	for rows.Next() {
		rec := report.Record{UserID: user}
		var created string
		if err := rows.Scan(&rec.ID, &rec.EvaluatorName, &rec.ContactID, &rec.Text, &created); err != nil {
			return nil, fmt.Errorf("store: scan report: %w", err)
		}
		rec.CreatedAt = parseTime(created)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list reports: %w", err)
	}
	return out, nil
}

func (s *SQLStore) stamp() string {
	return s.now().UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isConstraint(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
