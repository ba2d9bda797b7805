package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/joacominatel/dbdash/internal/app"
	"github.com/joacominatel/dbdash/internal/auth"
	"github.com/joacominatel/dbdash/internal/database"
	_ "github.com/joacominatel/dbdash/internal/database/sqlite"
)

// newTestServer connects a service to a fresh SQLite file, seeds an admin and
// a viewer, and backs revocation with miniredis.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()

	service := app.NewService(database.Options{})
	require.NoError(t, service.Connect(context.Background(), "", filepath.Join(dir, "api.db")))
	t.Cleanup(func() { _ = service.Disconnect() })

	conn, err := service.Conn()
	require.NoError(t, err)
	store := auth.NewStore(conn)
	_, err = store.Create(context.Background(), "admin@example.com", "adminpw", auth.RoleAdmin)
	require.NoError(t, err)
	_, err = store.Create(context.Background(), "viewer@example.com", "viewerpw", auth.RoleViewer)
	require.NoError(t, err)

	storage := filepath.Join(dir, "storage")
	require.NoError(t, os.MkdirAll(storage, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(storage, "export.csv"), []byte("id,email\n1,a\n"), 0o600))

	mr := miniredis.RunT(t)
	revoker := auth.NewRedisRevoker(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	tokens := auth.NewTokens("test-secret", time.Hour, time.Minute)
	return New(Options{Addr: "127.0.0.1:0", StorageDir: storage}, service, tokens, revoker)
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	return rw
}

func login(t *testing.T, h http.Handler, email, password string) string {
	t.Helper()
	rw := do(t, h, http.MethodPost, "/api/login", "", loginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, rw.Code, rw.Body.String())

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	require.Equal(t, email, resp.User.Email)
	return resp.Token
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", "", nil).Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/readyz", "", nil).Code)

	rw := do(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rw.Code)
	require.Contains(t, rw.Body.String(), "go_goroutines")
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	login(t, h, "admin@example.com", "adminpw")

	rw := do(t, h, http.MethodPost, "/api/login", "", loginRequest{Email: "admin@example.com", Password: "wrong"})
	require.Equal(t, http.StatusUnauthorized, rw.Code)

	rw = do(t, h, http.MethodPost, "/api/login", "", loginRequest{Email: "admin@example.com"})
	require.Equal(t, http.StatusBadRequest, rw.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMeAndLogout(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()
	token := login(t, h, "viewer@example.com", "viewerpw")

	rw := do(t, h, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, rw.Code)
	var me auth.User
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &me))
	require.Equal(t, "viewer@example.com", me.Email)
	require.Equal(t, auth.RoleViewer, me.Role)

	require.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/me", "", nil).Code)
	require.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/me", "garbage", nil).Code)

	require.Equal(t, http.StatusNoContent, do(t, h, http.MethodPost, "/api/logout", token, nil).Code)
	require.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/me", token, nil).Code)
}

func TestUsersRequiresAdmin(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	viewer := login(t, h, "viewer@example.com", "viewerpw")
	require.Equal(t, http.StatusForbidden, do(t, h, http.MethodGet, "/api/users", viewer, nil).Code)

	admin := login(t, h, "admin@example.com", "adminpw")
	rw := do(t, h, http.MethodGet, "/api/users", admin, nil)
	require.Equal(t, http.StatusOK, rw.Code)

	var users []auth.User
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &users))
	require.Len(t, users, 2)
	require.Equal(t, "admin@example.com", users[0].Email)
}

func TestUsersAdminWrites(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()
	admin := login(t, h, "admin@example.com", "adminpw")
	viewer := login(t, h, "viewer@example.com", "viewerpw")

	rw := do(t, h, http.MethodGet, "/api/users", admin, nil)
	require.Equal(t, "2", rw.Header().Get("X-Total-Count"))
	var users []auth.User
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &users))
	adminID, viewerID := users[0].ID, users[1].ID
	viewerPath := fmt.Sprintf("/api/users/%d", viewerID)

	require.Equal(t, http.StatusForbidden, do(t, h, http.MethodPatch, viewerPath, viewer, setRoleRequest{Role: auth.RoleAdmin}).Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPatch, viewerPath, admin, setRoleRequest{Role: "root"}).Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPatch, "/api/users/abc", admin, setRoleRequest{}).Code)
	require.Equal(t, http.StatusConflict,
		do(t, h, http.MethodPatch, fmt.Sprintf("/api/users/%d", adminID), admin, setRoleRequest{Role: auth.RoleViewer}).Code)

	rw = do(t, h, http.MethodPatch, viewerPath, admin, setRoleRequest{Role: auth.RoleAdmin})
	require.Equal(t, http.StatusOK, rw.Code, rw.Body.String())
	var updated auth.User
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &updated))
	require.Equal(t, auth.RoleAdmin, updated.Role)

	// the promoted viewer's existing token now passes the admin check
	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/users", viewer, nil).Code)

	require.Equal(t, http.StatusConflict, do(t, h, http.MethodDelete, fmt.Sprintf("/api/users/%d", adminID), admin, nil).Code)
	require.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, viewerPath, admin, nil).Code)
	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, viewerPath, admin, nil).Code)
	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodPatch, viewerPath, admin, setRoleRequest{}).Code)
	require.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/me", viewer, nil).Code)
}

func TestStorageTransfer(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()
	token := login(t, h, "viewer@example.com", "viewerpw")

	rw := do(t, h, http.MethodPost, "/api/storage/token", token, storageTokenRequest{Name: "export.csv"})
	require.Equal(t, http.StatusOK, rw.Code, rw.Body.String())
	var resp storageTokenResponse
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	require.True(t, resp.ExpiresAt.After(time.Now()))

	rw = do(t, h, http.MethodGet, "/api/storage/"+resp.Token, "", nil)
	require.Equal(t, http.StatusOK, rw.Code)
	require.Equal(t, "id,email\n1,a\n", rw.Body.String())
	require.Contains(t, rw.Header().Get("Content-Disposition"), "export.csv")

	// a session token is not a transfer token
	require.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/storage/"+token, "", nil).Code)

	for _, name := range []string{"../api.db", "missing.csv", ""} {
		rw = do(t, h, http.MethodPost, "/api/storage/token", token, storageTokenRequest{Name: name})
		require.NotEqual(t, http.StatusOK, rw.Code, name)
	}
}

func TestNotConnected(t *testing.T) {
	service := app.NewService(database.Options{})
	srv := New(Options{}, service, auth.NewTokens("s", 0, 0), nil)
	h := srv.Handler()

	rw := do(t, h, http.MethodPost, "/api/login", "", loginRequest{Email: "a@b.c", Password: "x"})
	require.Equal(t, http.StatusServiceUnavailable, rw.Code)
	require.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/readyz", "", nil).Code)
}

func TestStartShutdown(t *testing.T) {
	srv := newTestServer(t)
	require.False(t, srv.Running())

	require.NoError(t, srv.Start())
	require.True(t, srv.Running())
	require.ErrorIs(t, srv.Start(), ErrAlreadyRunning)

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	require.False(t, srv.Running())
	require.NoError(t, srv.Shutdown(ctx))
}

func TestPrepare(t *testing.T) {
	srv := newTestServer(t)
	require.NoError(t, srv.Prepare(context.Background()))

	idle := New(Options{}, app.NewService(database.Options{}), auth.NewTokens("s", 0, 0), nil)
	require.ErrorIs(t, idle.Prepare(context.Background()), app.ErrNotConnected)
}
