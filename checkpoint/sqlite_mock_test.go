package checkpoint

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pevans/newsharvest"
	"github.com/pevans/newsharvest/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: create a SQLite store over a mocked connection
func createMockSQLiteStore(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &SQLiteStore{db: db, log: logger.NewNop()}, mock
}

// TestSQLiteStore_SaveRollsBackOnError verifies a failed write leaves the
// stored days untouched
func TestSQLiteStore_SaveRollsBackOnError(t *testing.T) {
	store, mock := createMockSQLiteStore(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT OR REPLACE INTO day_buckets")
	prep.ExpectExec().
		WithArgs("detik", "finance", int64(1577836800), "[]").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err := store.Save(context.Background(), testIdentity, newsharvest.CrawlState{1577836800: nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestSQLiteStore_SaveCommitError verifies commit failures are returned
func TestSQLiteStore_SaveCommitError(t *testing.T) {
	store, mock := createMockSQLiteStore(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT OR REPLACE INTO day_buckets")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	err := store.Save(context.Background(), testIdentity, newsharvest.CrawlState{1577836800: {}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit checkpoint")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestSQLiteStore_LoadQueryError verifies a failed read gives an empty state
func TestSQLiteStore_LoadQueryError(t *testing.T) {
	store, mock := createMockSQLiteStore(t)

	mock.ExpectQuery("SELECT day_key, records FROM day_buckets").
		WithArgs("detik", "finance").
		WillReturnError(errors.New("no such table"))

	state := store.Load(context.Background(), testIdentity)
	assert.NotNil(t, state)
	assert.Empty(t, state)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestSQLiteStore_LoadSkipsMalformedRows verifies unreadable days are
// dropped and the rest are kept
func TestSQLiteStore_LoadSkipsMalformedRows(t *testing.T) {
	store, mock := createMockSQLiteStore(t)

	rows := sqlmock.NewRows([]string{"day_key", "records"}).
		AddRow(int64(1577836800), `[{"title": "A", "url": "https://example.com/a", "timestamp": 1577840000}]`).
		AddRow(int64(1577923200), `{not json`)
	mock.ExpectQuery("SELECT day_key, records FROM day_buckets").
		WithArgs("detik", "finance").
		WillReturnRows(rows)

	state := store.Load(context.Background(), testIdentity)
	require.Len(t, state, 1)
	assert.Equal(t, "A", state[1577836800][0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}
