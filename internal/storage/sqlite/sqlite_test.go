package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessiond/internal/domain/models"
	"sessiond/internal/storage"
)

func newStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "sessiond.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	schema, err := os.ReadFile("../../../migrations/1_init.up.sql")
	require.NoError(t, err)

	_, err = s.db.Exec(string(schema))
	require.NoError(t, err)

	return s
}

func (s *Storage) countSessions(t *testing.T) int {
	t.Helper()

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM session").Scan(&n))
	return n
}

func TestSaveAccount_DuplicateUsername(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()

	_, err := s.SaveAccount(ctx, "alice", "s1", "h1")
	require.NoError(t, err)

	_, err = s.SaveAccount(ctx, "alice", "s2", "h2")
	require.ErrorIs(t, err, storage.ErrAccountExists)
}

func TestAccountByUsername(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()

	id, err := s.SaveAccount(ctx, "alice", "s1", "h1")
	require.NoError(t, err)

	account, err := s.AccountByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, account.ID)
	assert.Equal(t, "s1", account.Salt)
	assert.Equal(t, "h1", account.PassHash)
	assert.Empty(t, account.RefreshToken)

	_, err = s.AccountByUsername(ctx, "bob")
	require.ErrorIs(t, err, storage.ErrAccountNotFound)
}

func TestSaveSessionReplaceRefresh(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()

	id, err := s.SaveAccount(ctx, "alice", "s1", "h1")
	require.NoError(t, err)

	require.NoError(t, s.SaveSessionReplaceRefresh(ctx, id, "sess1", 1000, "rt1"))
	require.NoError(t, s.SaveSessionReplaceRefresh(ctx, id, "sess2", 2000, "rt2"))

	account, err := s.AccountByRefreshToken(ctx, "rt2")
	require.NoError(t, err)
	assert.Equal(t, id, account.ID)

	// rt1 was overwritten
	_, err = s.AccountByRefreshToken(ctx, "rt1")
	require.ErrorIs(t, err, storage.ErrAccountNotFound)

	sessions, err := s.Sessions(ctx, id)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestSaveSessionRotateRefresh(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()

	id, err := s.SaveAccount(ctx, "alice", "s1", "h1")
	require.NoError(t, err)
	require.NoError(t, s.SaveSessionReplaceRefresh(ctx, id, "sess1", 1000, "rt1"))

	require.NoError(t, s.SaveSessionRotateRefresh(ctx, id, "sess2", 2000, "rt1", "rt2"))

	account, err := s.AccountByRefreshToken(ctx, "rt2")
	require.NoError(t, err)
	assert.Equal(t, id, account.ID)
}

func TestSaveSessionRotateRefresh_StaleTokenInsertsNothing(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()

	id, err := s.SaveAccount(ctx, "alice", "s1", "h1")
	require.NoError(t, err)
	require.NoError(t, s.SaveSessionReplaceRefresh(ctx, id, "sess1", 1000, "rt1"))

	before := s.countSessions(t)

	err = s.SaveSessionRotateRefresh(ctx, id, "sess2", 2000, "already-rotated", "rt2")
	require.ErrorIs(t, err, storage.ErrRefreshTokenStale)

	// the whole transaction rolled back: no session row, token unchanged
	assert.Equal(t, before, s.countSessions(t))
	_, err = s.AccountByRefreshToken(ctx, "rt1")
	require.NoError(t, err)
}

func TestDeleteSession(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()

	id, err := s.SaveAccount(ctx, "alice", "s1", "h1")
	require.NoError(t, err)
	require.NoError(t, s.SaveSessionReplaceRefresh(ctx, id, "sess1", 1000, "rt1"))
	require.NoError(t, s.SaveSessionReplaceRefresh(ctx, id, "sess2", 2000, "rt2"))

	require.NoError(t, s.DeleteSession(ctx, "sess1"))

	sessions, err := s.Sessions(ctx, id)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, models.Session{AccountID: id, SessionToken: "sess2", ExpireAt: 2000}, sessions[0])
}
