package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesaa/talondash/internal/containers"
	"github.com/vesaa/talondash/internal/models"
	"github.com/vesaa/talondash/internal/tiles"
)

type fakeSnapshots struct {
	calls [][]tiles.Name
}

func (f *fakeSnapshots) BuildSnapshot(_ context.Context, names []tiles.Name) (tiles.Snapshot, error) {
	f.calls = append(f.calls, names)
	snap := tiles.Snapshot{}
	for _, n := range names {
		snap[n] = []string{}
	}
	return snap, nil
}

type fakeControl struct {
	err  error
	last string
}

func (f *fakeControl) Control(_ context.Context, action containers.Action, name string) error {
	f.last = string(action) + " " + name
	return f.err
}

type fakeActions struct {
	mu   sync.Mutex
	rows []models.ContainerAction
}

func (f *fakeActions) RecordAction(a *models.ContainerAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, *a)
	return nil
}

func (f *fakeActions) RecentActions(limit int) ([]models.ContainerAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.rows) {
		limit = len(f.rows)
	}
	return f.rows[:limit], nil
}

type testEnv struct {
	srv     *Server
	snaps   *fakeSnapshots
	control *fakeControl
	actions *fakeActions
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		snaps:   &fakeSnapshots{},
		control: &fakeControl{},
		actions: &fakeActions{},
	}
	env.srv = New(Deps{
		Snapshots:  env.snaps,
		Containers: env.control,
		Actions:    env.actions,
		Auth: NewAuthenticator(Credentials{
			JWTSecret:     "test-secret",
			AdminUser:     "admin",
			AdminPassword: "hunter2",
			TokenTTL:      time.Hour,
		}),
		MaxBodyBytes: 1 << 10,
	})
	return env
}

func (e *testEnv) do(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	w := e.do(http.MethodPost, "/api/login", `{"username":"admin","password":"hunter2"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
		Type      string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3600, body.ExpiresIn)
	assert.Equal(t, "Bearer", body.Type)
	return body.Token
}

func TestSystemInfo(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/system-info?tiles=cpuUsage,thermal", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cpuUsage":[],"thermal":[]}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	require.Len(t, env.snaps.calls, 1)
	assert.Equal(t, []tiles.Name{tiles.CPUUsage, tiles.Thermal}, env.snaps.calls[0])
}

func TestSystemInfoUnknownTile(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/system-info?tiles=cpuUsage,gpu", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"unknown tile(s): gpu","unknown":["gpu"]}`, w.Body.String())
	assert.Empty(t, env.snaps.calls)
}

func TestSystemInfoNoTiles(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/system-info", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())
	assert.Empty(t, env.snaps.calls)
}

func TestRequestIDPropagated(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/tiles", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
	assert.Contains(t, w.Body.String(), "physicalDrives")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/login", `{"username":"admin","password":"nope"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodPost, "/api/login", `{"username":"admin"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDockerActionRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/docker/restart", `{"containerName":"web"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodPost, "/api/docker/restart", `{"containerName":"web"}`, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, env.control.last)
}

func TestDockerActionSuccessIsAudited(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	w := env.do(http.MethodPost, "/api/docker/restart", `{"containerName":"web"}`, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"Container web restarted successfully"}`, w.Body.String())
	assert.Equal(t, "restart web", env.control.last)

	require.Len(t, env.actions.rows, 1)
	row := env.actions.rows[0]
	assert.True(t, row.Success)
	assert.Equal(t, "admin", row.RequestedBy)
	assert.Equal(t, "restart", row.Action)

	w = env.do(http.MethodGet, "/api/docker/actions?limit=5", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"container":"web"`)
}

func TestDockerActionValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	w := env.do(http.MethodPost, "/api/docker/explode", `{"containerName":"web"}`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid action"}`, w.Body.String())

	w = env.do(http.MethodPost, "/api/docker/start", `{}`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Container name is required"}`, w.Body.String())

	w = env.do(http.MethodGet, "/api/docker/actions?limit=x", "", token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.actions.rows)
}

func TestDockerActionFailure(t *testing.T) {
	env := newTestEnv(t)
	env.control.err = errors.New("docker stop web: exit status 1")
	token := env.login(t)

	w := env.do(http.MethodPost, "/api/docker/stop", `{"containerName":"web"}`, token)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to stop container")

	require.Len(t, env.actions.rows, 1)
	assert.False(t, env.actions.rows[0].Success)
	assert.Contains(t, env.actions.rows[0].Message, "exit status 1")
}

func TestBodyLimit(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)
	big := `{"containerName":"` + string(bytes.Repeat([]byte("a"), 4<<10)) + `"}`

	w := env.do(http.MethodPost, "/api/docker/start", big, token)
	assert.NotEqual(t, http.StatusOK, w.Code)
	assert.Empty(t, env.control.last)
}

func TestStaticFallback(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/some/dashboard/route", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<title>talondash</title>")

	w = env.do(http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	w := newTestEnv(t).do(http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
