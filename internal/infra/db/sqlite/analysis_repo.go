package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/bryanwahyu/knowledge-extractor/internal/application"
	domain "github.com/bryanwahyu/knowledge-extractor/internal/domain/analysis"
)

// timestamps are stored as fixed-width UTC text so they sort lexically
const timeLayout = "2006-01-02 15:04:05.000000"

type AnalysisRepository struct {
	db    *sql.DB
	clock application.Clock
}

func NewAnalysisRepository(db *sql.DB, clock application.Clock) *AnalysisRepository {
	if clock == nil {
		clock = application.NewMonotonicClock(nil)
	}
	return &AnalysisRepository{db: db, clock: clock}
}

// Migrate creates the analyses table if needed.
func (r *AnalysisRepository) Migrate(ctx context.Context) error {
	stmts := []string{`
CREATE TABLE IF NOT EXISTS analyses (
  id         INTEGER PRIMARY KEY AUTOINCREMENT,
  text_input TEXT NOT NULL,
  summary    TEXT NOT NULL DEFAULT '',
  metadata   TEXT NOT NULL DEFAULT '{}',
  created_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses (created_at DESC, id DESC);`,
	}
	for _, q := range stmts {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return errors.Wrap(err, "failed to migrate analyses")
		}
	}
	return nil
}

// Append inserts an analysis and returns it with its id and created_at.
// The pool holds a single connection, so the transaction keeps other writers
// out between reading the clock and assigning the id.
func (r *AnalysisRepository) Append(ctx context.Context, text, summary string, md domain.Metadata) (*domain.Record, error) {
	const q = `
INSERT INTO analyses (text_input, summary, metadata, created_at)
VALUES (?,?,?,?);
`
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin insert")
	}
	defer tx.Rollback()

	created := r.clock.Now().UTC()
	res, err := tx.ExecContext(ctx, q, text, summary, md, created.Format(timeLayout))
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert analysis")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read analysis id")
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit analysis")
	}
	return &domain.Record{
		ID:        id,
		TextInput: text,
		Summary:   summary,
		Metadata:  md,
		CreatedAt: created,
	}, nil
}

// ListAll returns every analysis, newest first.
func (r *AnalysisRepository) ListAll(ctx context.Context) ([]*domain.Record, error) {
	const q = `
SELECT id, text_input, summary, metadata, created_at
FROM analyses
ORDER BY created_at DESC, id DESC;
`
	return r.query(ctx, q)
}

// FindByTopicSubstring matches s anywhere in the serialized metadata, case-sensitive.
func (r *AnalysisRepository) FindByTopicSubstring(ctx context.Context, s string) ([]*domain.Record, error) {
	const q = `
SELECT id, text_input, summary, metadata, created_at
FROM analyses
WHERE instr(metadata, ?) > 0
ORDER BY created_at DESC, id DESC;
`
	return r.query(ctx, q, s)
}

// FindByKeywordOrTextSubstring matches s in the serialized metadata or the original text.
func (r *AnalysisRepository) FindByKeywordOrTextSubstring(ctx context.Context, s string) ([]*domain.Record, error) {
	const q = `
SELECT id, text_input, summary, metadata, created_at
FROM analyses
WHERE instr(metadata, ?) > 0 OR instr(text_input, ?) > 0
ORDER BY created_at DESC, id DESC;
`
	return r.query(ctx, q, s, s)
}

func (r *AnalysisRepository) query(ctx context.Context, q string, args ...any) ([]*domain.Record, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query analyses")
	}
	defer rows.Close()

	out := []*domain.Record{}
	for rows.Next() {
		var a domain.Record
		var created string
		if err := rows.Scan(&a.ID, &a.TextInput, &a.Summary, &a.Metadata, &created); err != nil {
			return nil, errors.Wrap(err, "failed to scan analysis")
		}
		t, err := time.ParseInLocation(timeLayout, created, time.UTC)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid created_at %q", created)
		}
		a.CreatedAt = t
		out = append(out, &a)
	}
	return out, rows.Err()
}
