package suite

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/require"

	authhttp "sessiond/internal/http/auth"
	"sessiond/internal/services/auth"
	"sessiond/internal/storage/sqlite"
)

// Suite spins up the full stack (sqlite with migrations applied, auth
// service, HTTP router) on a throwaway database.
type Suite struct {
	*testing.T
	Server *httptest.Server
}

func New(t *testing.T) (context.Context, *Suite) {
	t.Helper()

	storagePath := filepath.Join(t.TempDir(), "sessiond.db")
	migrateUp(t, storagePath)

	storage, err := sqlite.New(storagePath)
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	authService := auth.New(log, rand.Reader, storage, storage, storage, storage, 30*time.Minute, 168*time.Hour)

	server := httptest.NewServer(authhttp.New(log, authService).Router())
	t.Cleanup(server.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	return ctx, &Suite{T: t, Server: server}
}

// Post sends a JSON request and decodes the JSON response body.
func (s *Suite) Post(ctx context.Context, path string, body any) (int, map[string]any) {
	s.Helper()

	raw, err := json.Marshal(body)
	require.NoError(s.T, err)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Server.URL+path, bytes.NewReader(raw))
	require.NoError(s.T, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Server.Client().Do(req)
	require.NoError(s.T, err)
	defer resp.Body.Close()

	var payload map[string]any
	require.NoError(s.T, json.NewDecoder(resp.Body).Decode(&payload))

	return resp.StatusCode, payload
}

func migrateUp(t *testing.T, storagePath string) {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	require.True(t, ok)
	migrationsPath := filepath.Join(filepath.Dir(thisFile), "..", "..", "migrations")

	m, err := migrate.New("file://"+migrationsPath, "sqlite3://"+storagePath)
	require.NoError(t, err)
	require.NoError(t, m.Up())

	srcErr, dbErr := m.Close()
	require.NoError(t, srcErr)
	require.NoError(t, dbErr)
}
