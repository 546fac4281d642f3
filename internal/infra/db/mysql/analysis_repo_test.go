package mysql

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/knowledge-extractor/internal/domain/analysis"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testTime = time.Date(2026, 2, 3, 4, 5, 6, 789000000, time.UTC)

const storedMetadata = `{"title": "T", "topics": ["health"], "keywords": ["care"], "confidence": 0.6}`

func newMockRepo(t *testing.T) (*AnalysisRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAnalysisRepository(db, fixedClock{testTime}), mock
}

func testMetadata() domain.Metadata {
	return domain.NewMetadata(
		domain.Field{Key: domain.KeyTitle, Value: "T"},
		domain.Field{Key: domain.KeyTopics, Value: []string{"health"}},
		domain.Field{Key: domain.KeyKeywords, Value: []string{"care"}},
		domain.Field{Key: domain.KeyConfidence, Value: 0.6},
	)
}

func analysisRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "text_input", "summary", "metadata", "created_at"})
}

func TestAppend_HoldsNamedLockAroundInsert(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT GET_LOCK(?, ?)")).
		WithArgs(appendLock, 10).
		WillReturnRows(sqlmock.NewRows([]string{"got"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO analyses (text_input, summary, metadata, created_at)")).
		WithArgs("some text", "a summary", storedMetadata, testTime).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()
	mock.ExpectExec(regexp.QuoteMeta("SELECT RELEASE_LOCK(?)")).
		WithArgs(appendLock).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec, err := repo.Append(context.Background(), "some text", "a summary", testMetadata())
	require.NoError(t, err)

	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, testTime, rec.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_LockTimeout(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT GET_LOCK(?, ?)")).
		WithArgs(appendLock, 10).
		WillReturnRows(sqlmock.NewRows([]string{"got"}).AddRow(0))

	_, err := repo.Append(context.Background(), "text", "", testMetadata())
	assert.ErrorContains(t, err, "append lock")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_InsertFailureReleasesLock(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT GET_LOCK(?, ?)")).
		WithArgs(appendLock, 10).
		WillReturnRows(sqlmock.NewRows([]string{"got"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO analyses")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()
	mock.ExpectExec(regexp.QuoteMeta("SELECT RELEASE_LOCK(?)")).
		WithArgs(appendLock).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Append(context.Background(), "text", "", testMetadata())
	assert.ErrorContains(t, err, "failed to insert analysis")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByTopicSubstring_BinaryLocate(t *testing.T) {
	repo, mock := newMockRepo(t)
	jakarta := time.FixedZone("WIB", 7*60*60)

	mock.ExpectQuery(regexp.QuoteMeta(
		"WHERE LOCATE(CAST(? AS BINARY), CAST(metadata AS BINARY)) > 0 ORDER BY created_at DESC, id DESC")).
		WithArgs("health").
		WillReturnRows(analysisRows().
			AddRow(2, "second", "s2", []byte(storedMetadata), testTime.In(jakarta)).
			AddRow(1, "first", "s1", storedMetadata, testTime.Add(-time.Hour)))

	recs, err := repo.FindByTopicSubstring(context.Background(), "health")
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, int64(2), recs[0].ID)
	assert.Equal(t, time.UTC, recs[0].CreatedAt.Location())
	assert.True(t, testTime.Equal(recs[0].CreatedAt))
	assert.Equal(t, []string{"title", "topics", "keywords", "confidence"}, recs[0].Metadata.Keys())
	assert.Equal(t, []string{"health"}, recs[1].Metadata.Topics())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByKeywordOrTextSubstring_MatchesMetadataOrText(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"WHERE LOCATE(CAST(? AS BINARY), CAST(metadata AS BINARY)) > 0 " +
			"OR LOCATE(CAST(? AS BINARY), CAST(text_input AS BINARY)) > 0")).
		WithArgs("50%_off", "50%_off").
		WillReturnRows(analysisRows())

	recs, err := repo.FindByKeywordOrTextSubstring(context.Background(), "50%_off")
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAll_QueryError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC")).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.ListAll(context.Background())
	assert.ErrorContains(t, err, "failed to query analyses")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAll_BadMetadata(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM analyses")).
		WillReturnRows(analysisRows().AddRow(1, "t", "", "not json", testTime))

	_, err := repo.ListAll(context.Background())
	assert.ErrorContains(t, err, "failed to scan analysis")
}
