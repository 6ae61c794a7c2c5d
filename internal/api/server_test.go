// SPDX-License-Identifier: MIT

package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aathif-M/workpulse/internal/auth"
	"github.com/Aathif-M/workpulse/internal/breaks"
	"github.com/Aathif-M/workpulse/internal/clock"
	"github.com/Aathif-M/workpulse/internal/config"
	"github.com/Aathif-M/workpulse/internal/hub"
	"github.com/Aathif-M/workpulse/internal/store"
)

type testEnv struct {
	srv   *httptest.Server
	store *store.Store
	hub   *hub.Hub
	clk   *clock.Fake
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "api.sqlite"), store.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	sessions := auth.NewMemorySessions(time.Hour)
	h := hub.New()
	t.Cleanup(h.Close)
	clk := clock.NewFake(time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC))

	cfg := config.Defaults()
	cfg.RateLimitEnabled = false

	server := New(cfg, st, sessions, h, clk)
	srv := httptest.NewServer(server.Router())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, store: st, hub: h, clk: clk}
}

func (e *testEnv) createUser(t *testing.T, name, email string, role breaks.Role, allowed []int64) breaks.User {
	t.Helper()
	hash, err := auth.HashPassword("sekrit-pass")
	require.NoError(t, err)
	u, err := e.store.CreateUser(context.Background(), breaks.User{
		Name:          name,
		Email:         email,
		Role:          role,
		AllowedBreaks: allowed,
	}, hash)
	require.NoError(t, err)
	return u
}

func (e *testEnv) createBreakType(t *testing.T, name string, duration int64) breaks.BreakType {
	t.Helper()
	bt, err := e.store.CreateBreakType(context.Background(), breaks.BreakType{
		Name: name, Duration: duration, IsActive: true,
	})
	require.NoError(t, err)
	return bt
}

func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": "sekrit-pass",
	})
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body loginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

func (e *testEnv) do(t *testing.T, method, path, token string, payload any) *http.Response {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "Asha", "asha@example.com", breaks.RoleAgent, nil)

	resp := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "asha@example.com",
		"password": "wrong",
	})
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "sekrit-pass",
	})
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode,
		"unknown email is indistinguishable from wrong password")
}

func TestAuthenticatedMe(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "Asha", "asha@example.com", breaks.RoleAgent, nil)
	token := env.login(t, "asha@example.com")

	resp := env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode[breaks.User](t, resp)
	assert.Equal(t, "asha@example.com", me.Email)
	assert.True(t, me.IsOnline)

	resp = env.do(t, http.MethodGet, "/api/auth/me", "bogus-token", nil)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBreakLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "Asha", "asha@example.com", breaks.RoleAgent, nil)
	bt := env.createBreakType(t, "Lunch", 600)
	token := env.login(t, "asha@example.com")

	resp := env.do(t, http.MethodPost, "/api/breaks/start", token, map[string]int64{"breakTypeId": bt.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	started := decode[breaks.Session](t, resp)
	assert.Equal(t, breaks.StatusOngoing, started.Status)
	assert.True(t, started.ExpectedEndTime.Equal(started.StartTime.Add(600*time.Second)))

	// second start conflicts
	resp = env.do(t, http.MethodPost, "/api/breaks/start", token, map[string]int64{"breakTypeId": bt.ID})
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// overrun by 100s, then end
	env.clk.Advance(700 * time.Second)
	resp = env.do(t, http.MethodPost, "/api/breaks/end", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ended := decode[breaks.Session](t, resp)
	assert.Equal(t, breaks.StatusEnded, ended.Status)
	require.NotNil(t, ended.ViolationDuration)
	assert.EqualValues(t, 100, *ended.ViolationDuration)

	// ending again is an invalid state
	resp = env.do(t, http.MethodPost, "/api/breaks/end", token, nil)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/breaks/history", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decode[[]breaks.Session](t, resp)
	require.Len(t, history, 1)
	assert.Equal(t, ended.ID, history[0].ID)
}

func TestStartBreakForbiddenByAllowlist(t *testing.T) {
	env := newTestEnv(t)
	lunch := env.createBreakType(t, "Lunch", 600)
	coffee := env.createBreakType(t, "Coffee", 300)
	env.createUser(t, "Ravi", "ravi@example.com", breaks.RoleAgent, []int64{lunch.ID})
	token := env.login(t, "ravi@example.com")

	resp := env.do(t, http.MethodPost, "/api/breaks/start", token, map[string]int64{"breakTypeId": coffee.ID})
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestManagerScopeGating(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "Asha", "asha@example.com", breaks.RoleAgent, nil)
	env.createUser(t, "Mira", "mira@example.com", breaks.RoleManager, nil)
	agentToken := env.login(t, "asha@example.com")
	managerToken := env.login(t, "mira@example.com")

	resp := env.do(t, http.MethodGet, "/api/users", agentToken, nil)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/users", managerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users := decode[[]breaks.User](t, resp)
	assert.Len(t, users, 2)

	resp = env.do(t, http.MethodGet, "/api/breaks/history/all", agentToken, nil)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestManagerSeesActiveSessionInUserList(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "Asha", "asha@example.com", breaks.RoleAgent, nil)
	env.createUser(t, "Mira", "mira@example.com", breaks.RoleManager, nil)
	bt := env.createBreakType(t, "Lunch", 600)
	agentToken := env.login(t, "asha@example.com")
	managerToken := env.login(t, "mira@example.com")

	resp := env.do(t, http.MethodPost, "/api/breaks/start", agentToken, map[string]int64{"breakTypeId": bt.ID})
	_ = resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/users", managerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users := decode[[]breaks.User](t, resp)
	var asha *breaks.User
	for i := range users {
		if users[i].Email == "asha@example.com" {
			asha = &users[i]
		}
	}
	require.NotNil(t, asha)
	require.Len(t, asha.BreakSessions, 1)
	assert.Equal(t, breaks.StatusOngoing, asha.BreakSessions[0].Status)
	assert.True(t, asha.IsOnline)
}

func TestBreakTypeCRUD(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "Mira", "mira@example.com", breaks.RoleManager, nil)
	token := env.login(t, "mira@example.com")

	resp := env.do(t, http.MethodPost, "/api/break-types", token, map[string]any{
		"name": "Tea", "duration": 300,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[breaks.BreakType](t, resp)
	assert.True(t, created.IsActive)

	resp = env.do(t, http.MethodPut, fmt.Sprintf("/api/break-types/%d", created.ID), token, map[string]any{
		"name": "Tea", "duration": 450,
	})
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/break-types", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	types := decode[[]breaks.BreakType](t, resp)
	require.Len(t, types, 1)
	assert.EqualValues(t, 450, types[0].Duration)

	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/break-types/%d", created.ID), token, nil)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/break-types", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	types = decode[[]breaks.BreakType](t, resp)
	assert.Empty(t, types)
}

func TestForceLogoutRevokesTokens(t *testing.T) {
	env := newTestEnv(t)
	agent := env.createUser(t, "Asha", "asha@example.com", breaks.RoleAgent, nil)
	env.createUser(t, "Adi", "adi@example.com", breaks.RoleAdmin, nil)
	agentToken := env.login(t, "asha@example.com")
	adminToken := env.login(t, "adi@example.com")

	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/users/%d/logout", agent.ID), adminToken, nil)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/auth/me", agentToken, nil)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChangePasswordRotatesToken(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "Asha", "asha@example.com", breaks.RoleAgent, nil)
	token := env.login(t, "asha@example.com")

	resp := env.do(t, http.MethodPost, "/api/auth/password", token, map[string]string{
		"currentPassword": "sekrit-pass",
		"newPassword":     "even-more-sekrit",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	fresh := body["token"]
	require.NotEmpty(t, fresh)

	// old token is gone, the fresh one works
	resp = env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/auth/me", fresh, nil)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.srv.Client().Get(env.srv.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEventStreamDeliversIdentityScopedEvents(t *testing.T) {
	env := newTestEnv(t)
	agent := env.createUser(t, "Asha", "asha@example.com", breaks.RoleAgent, nil)
	token := env.login(t, "asha@example.com")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.srv.URL+"/api/events?token="+token, nil)
	require.NoError(t, err)
	resp, err := env.srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	// the subscription registers synchronously inside the handler before
	// the first flush, so waiting for headers is enough to publish safely
	env.hub.Publish(hub.Event{
		Type:    hub.EventBreakWarning,
		UserID:  agent.ID,
		Message: "Your Lunch break ends in 5m",
	})

	reader := bufio.NewReader(resp.Body)
	var eventLine, dataLine string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "event: "):
			eventLine = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLine = strings.TrimPrefix(line, "data: ")
		}
		if eventLine != "" && dataLine != "" {
			break
		}
	}

	assert.Equal(t, "break_warning", eventLine)
	var ev hub.Event
	require.NoError(t, json.Unmarshal([]byte(dataLine), &ev))
	assert.Equal(t, agent.ID, ev.UserID)
	assert.Contains(t, ev.Message, "Lunch")
}
