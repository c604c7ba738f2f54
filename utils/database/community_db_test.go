package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"durandal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommunityDB(t *testing.T) *CommunityDB {
	t.Helper()
	store, err := InitCommunityDB(filepath.Join(t.TempDir(), "data", "durandal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// newMockCommunityDB creates a sqlmock-backed store with expectation checking.
func newMockCommunityDB(t *testing.T) (*CommunityDB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewCommunityDB(sqlx.NewDb(db, "sqlite3")), mock
}

func sampleRecord() *model.GuildRecord {
	rec := model.NewGuildRecord("g1")
	rec.LogChannelID = "c1"
	rec.TimeoutRoleID = "r1"
	rec.Timeouts["u1"] = model.TimeoutEntry{
		GuildID:     "g1",
		UserID:      "u1",
		ExpiresAt:   model.NormalizeTime(time.Date(2026, 3, 1, 12, 30, 0, 123456789, time.UTC)),
		Reason:      "spam",
		RequestedBy: "mod1",
	}
	rec.Namelocks["u2"] = true
	return rec
}

func TestCommunityDBRoundTrip(t *testing.T) {
	store := newTestCommunityDB(t)
	ctx := context.Background()

	rec := sampleRecord()
	require.NoError(t, store.Put(ctx, rec))

	got, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
	assert.True(t, got.Timeouts["u1"].ExpiresAt.Equal(rec.Timeouts["u1"].ExpiresAt))
}

func TestCommunityDBPutReplaces(t *testing.T) {
	store := newTestCommunityDB(t)
	ctx := context.Background()

	rec := sampleRecord()
	require.NoError(t, store.Put(ctx, rec))

	delete(rec.Timeouts, "u1")
	delete(rec.Namelocks, "u2")
	rec.LogChannelID = "c2"
	require.NoError(t, store.Put(ctx, rec))

	got, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, got.Timeouts)
	assert.Empty(t, got.Namelocks)
	assert.Equal(t, "c2", got.LogChannelID)
}

func TestCommunityDBGetMissing(t *testing.T) {
	store := newTestCommunityDB(t)
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestCommunityDBListAndDelete(t *testing.T) {
	store := newTestCommunityDB(t)
	ctx := context.Background()

	for _, id := range []string{"g3", "g1", "g2"} {
		require.NoError(t, store.Put(ctx, model.NewGuildRecord(id)))
	}
	ids, err := store.ListGuildIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2", "g3"}, ids)

	require.NoError(t, store.Delete(ctx, "g2"))
	ids, err = store.ListGuildIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g3"}, ids)
}

func TestCommunityDBMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "durandal.db")
	store, err := InitCommunityDB(path)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), sampleRecord()))
	require.NoError(t, store.Close())

	reopened, err := InitCommunityDB(path)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.Migrate())

	got, err := reopened.Get(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "spam", got.Timeouts["u1"].Reason)
}

func TestCommunityDBPutRollsBackOnFailure(t *testing.T) {
	store, mock := newMockCommunityDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO communities").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM timeouts WHERE guild_id = \\?").
		WithArgs("g1").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err := store.Put(context.Background(), sampleRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
}

func TestCommunityDBGetNoRows(t *testing.T) {
	store, mock := newMockCommunityDB(t)

	mock.ExpectQuery("SELECT guild_id, log_channel_id, timeout_role_id, schema_version FROM communities").
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows([]string{"guild_id", "log_channel_id", "timeout_role_id", "schema_version"}))

	_, err := store.Get(context.Background(), "g1")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestCommunityDBGetQueryError(t *testing.T) {
	store, mock := newMockCommunityDB(t)

	mock.ExpectQuery("SELECT guild_id, log_channel_id, timeout_role_id, schema_version FROM communities").
		WithArgs("g1").
		WillReturnError(errors.New("database is locked"))

	_, err := store.Get(context.Background(), "g1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRecordNotFound)
}
