package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/bryanwahyu/knowledge-extractor/internal/application"
	domain "github.com/bryanwahyu/knowledge-extractor/internal/domain/analysis"
)

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

func (r *AnalysisRepository) Migrate(ctx context.Context) error {
	stmts := []string{`
CREATE TABLE IF NOT EXISTS analyses (
  id         BIGSERIAL PRIMARY KEY,
  text_input TEXT NOT NULL,
  summary    TEXT NOT NULL DEFAULT '',
  metadata   TEXT NOT NULL DEFAULT '{}',
  created_at TIMESTAMPTZ NOT NULL
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

// appendLockKey identifies the transaction-scoped advisory lock taken by Append.
const appendLockKey int64 = 0x616e616c79736573

// Append inserts an analysis record and returns it with the generated id.
// The advisory lock is held until commit, so the sequence value and the
// clock reading are taken in the same order by every writer.
func (r *AnalysisRepository) Append(ctx context.Context, text, summary string, md domain.Metadata) (*domain.Record, error) {
	const q = `
INSERT INTO analyses (text_input, summary, metadata, created_at)
VALUES ($1,$2,$3,$4)
RETURNING id;
`
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin insert")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1);", appendLockKey); err != nil {
		return nil, errors.Wrap(err, "failed to acquire append lock")
	}

	created := r.clock.Now().UTC()
	var id int64
	if err := tx.QueryRowContext(ctx, q, text, summary, md, created).Scan(&id); err != nil {
		return nil, errors.Wrap(err, "failed to insert analysis")
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit analysis")
	}
	return &domain.Record{ID: id, TextInput: text, Summary: summary, Metadata: md, CreatedAt: created}, nil
}

func (r *AnalysisRepository) ListAll(ctx context.Context) ([]*domain.Record, error) {
	const q = `
SELECT id, text_input, summary, metadata, created_at
FROM analyses
ORDER BY created_at DESC, id DESC;
`
	return r.query(ctx, q)
}

// FindByTopicSubstring uses strpos so the term is never treated as a LIKE pattern
func (r *AnalysisRepository) FindByTopicSubstring(ctx context.Context, s string) ([]*domain.Record, error) {
	const q = `
SELECT id, text_input, summary, metadata, created_at
FROM analyses
WHERE strpos(metadata, $1) > 0
ORDER BY created_at DESC, id DESC;
`
	return r.query(ctx, q, s)
}

func (r *AnalysisRepository) FindByKeywordOrTextSubstring(ctx context.Context, s string) ([]*domain.Record, error) {
	const q = `
SELECT id, text_input, summary, metadata, created_at
FROM analyses
WHERE strpos(metadata, $1) > 0 OR strpos(text_input, $1) > 0
ORDER BY created_at DESC, id DESC;
`
	return r.query(ctx, q, s)
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
		var created time.Time
		if err := rows.Scan(&a.ID, &a.TextInput, &a.Summary, &a.Metadata, &created); err != nil {
			return nil, errors.Wrap(err, "failed to scan analysis")
		}
		a.CreatedAt = created.UTC()
		out = append(out, &a)
	}
	return out, rows.Err()
}
