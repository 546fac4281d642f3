package mysql

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

// Migrate creates the analyses table if needed. metadata is plain text rather than
// a JSON column so the stored serialization is exactly what substring search sees.
func (r *AnalysisRepository) Migrate(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS analyses (
  id         BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
  text_input LONGTEXT NOT NULL,
  summary    TEXT NOT NULL,
  metadata   LONGTEXT NOT NULL,
  created_at DATETIME(6) NOT NULL,
  INDEX idx_analyses_created_at (created_at, id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
`
	if _, err := r.db.ExecContext(ctx, q); err != nil {
		return errors.Wrap(err, "failed to migrate analyses")
	}
	return nil
}

// appendLock is a named server lock held while the clock is read and the row
// inserted, so ids and created_at advance together across connections.
const appendLock = "analyses_append"

// Append inserts an analysis record. GET_LOCK belongs to the session, so the
// whole write runs on one pinned connection that releases it on the way out.
func (r *AnalysisRepository) Append(ctx context.Context, text, summary string, md domain.Metadata) (*domain.Record, error) {
	const q = `
INSERT INTO analyses (text_input, summary, metadata, created_at)
VALUES (?,?,?,?);
`
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get connection")
	}
	defer conn.Close()

	var got sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?);", appendLock, 10).Scan(&got); err != nil {
		return nil, errors.Wrap(err, "failed to acquire append lock")
	}
	if !got.Valid || got.Int64 != 1 {
		return nil, errors.New("timed out waiting for append lock")
	}
	defer conn.ExecContext(context.WithoutCancel(ctx), "SELECT RELEASE_LOCK(?);", appendLock)

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin insert")
	}
	defer tx.Rollback()

	created := r.clock.Now().UTC()
	res, err := tx.ExecContext(ctx, q, text, summary, md, created)
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

// FindByTopicSubstring matches on the binary metadata text, so case matters.
func (r *AnalysisRepository) FindByTopicSubstring(ctx context.Context, s string) ([]*domain.Record, error) {
	const q = `
SELECT id, text_input, summary, metadata, created_at
FROM analyses
WHERE LOCATE(CAST(? AS BINARY), CAST(metadata AS BINARY)) > 0
ORDER BY created_at DESC, id DESC;
`
	return r.query(ctx, q, s)
}

func (r *AnalysisRepository) FindByKeywordOrTextSubstring(ctx context.Context, s string) ([]*domain.Record, error) {
	const q = `
SELECT id, text_input, summary, metadata, created_at
FROM analyses
WHERE LOCATE(CAST(? AS BINARY), CAST(metadata AS BINARY)) > 0
   OR LOCATE(CAST(? AS BINARY), CAST(text_input AS BINARY)) > 0
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
		var created time.Time
		if err := rows.Scan(&a.ID, &a.TextInput, &a.Summary, &a.Metadata, &created); err != nil {
			return nil, errors.Wrap(err, "failed to scan analysis")
		}
		a.CreatedAt = created.UTC()
		out = append(out, &a)
	}
	return out, rows.Err()
}
