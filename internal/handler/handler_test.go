package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lobbytrack/lobbytrack/internal/domain"
	"github.com/lobbytrack/lobbytrack/internal/events"
	"github.com/lobbytrack/lobbytrack/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	report *service.Report
	gotNow time.Time
}

func (s *stubRunner) Run(_ context.Context, now time.Time) *service.Report {
	s.gotNow = now
	return s.report
}

func TestCronSyncHandlerResponseShape(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	runner := &stubRunner{report: &service.Report{
		Success:   true,
		Timestamp: now,
		Schedules: map[domain.Lane]string{domain.LaneAzure: "24h", domain.LaneRamp: "off"},
		Results: map[domain.Lane]service.LaneResult{
			domain.LaneAzure: {Ran: true, Result: &service.Result{Synced: 2, Total: 2}},
			domain.LaneRamp:  {},
		},
	}}
	h := NewCronSyncHandler(runner, nil)
	h.now = func() time.Time { return now }

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/cron/sync", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, now, runner.gotNow)
	assert.JSONEq(t, `{
		"success": true,
		"timestamp": "2026-05-01T00:00:00Z",
		"schedules": {"azure": "24h", "ramp": "off"},
		"results": {"azure": {"ran": true, "synced": 2, "total": 2}, "ramp": {"ran": false}}
	}`, rec.Body.String())
}

func TestWriteServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		want string
	}{
		{"configuration", &domain.ConfigurationError{Integration: "azure", Message: "set AZURE_TENANT_ID"}, http.StatusInternalServerError, "AZURE_TENANT_ID"},
		{"auth", fmt.Errorf("list: %w", &domain.AuthError{Integration: "ramp", Status: 401}), http.StatusBadGateway, "reauthenticate"},
		{"upstream", &domain.UpstreamError{Integration: "azure", Status: 500, Body: "boom"}, http.StatusBadGateway, "status=500"},
		{"plan", fmt.Errorf("azure: %w", service.ErrFeatureUnavailable), http.StatusForbidden, "plan"},
		{"nothing selected", service.ErrNothingSelected, http.StatusBadRequest, "no records"},
		{"preview expired", service.ErrPreviewExpired, http.StatusConflict, "preview"},
		{"other", errors.New("db down"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, slog.Default(), tt.err)
			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestReadyReportsFailingDependency(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{
		"postgres": PingFunc(func(context.Context) error { return nil }),
		"redis":    PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	}, nil)

	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Checks["postgres"])
	assert.Contains(t, body.Checks["redis"], "connection refused")
}

func TestAuditHandlerRejectsBadLimit(t *testing.T) {
	h := NewAuditHandler(nil, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/audit?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsHandlerRejectsUnknownLane(t *testing.T) {
	h := NewSettingsHandler(nil, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/settings/sync/{lane}", h.PutSync)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/settings/sync/okta", strings.NewReader(`{"schedule":"1h"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventsHandlerStreamsHubEvents(t *testing.T) {
	hub := events.NewHub(8)
	srv := httptest.NewServer(NewEventsHandler(hub, nil, nil))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
	hub.Publish(events.Event{Type: events.LaneCompleted, Lane: "ramp", Data: map[string]any{"synced": 3}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got events.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, events.LaneCompleted, got.Type)
	assert.Equal(t, "ramp", got.Lane)
	assert.EqualValues(t, 3, got.Data["synced"])
}

type stubAvatars map[string][]byte

func (s stubAvatars) Put(context.Context, string, string, []byte) error { return nil }

func (s stubAvatars) Get(_ context.Context, id string) (string, []byte, error) {
	data, ok := s[id]
	if !ok {
		return "", nil, domain.ErrNotFound
	}
	return "", data, nil
}

func TestAvatarHandler(t *testing.T) {
	const id = "0b7f6c1e-6c61-4f0f-9d8a-2d5f1d0e4a11"
	png := []byte("\x89PNG\r\n\x1a\n0000")
	mux := http.NewServeMux()
	mux.Handle("GET /api/avatars/{id}", NewAvatarHandler(stubAvatars{id: png}, nil))

	tests := []struct {
		name string
		path string
		code int
	}{
		{"stored", "/api/avatars/" + id, http.StatusOK},
		{"missing", "/api/avatars/6a0c2a4e-1111-4a4a-8b8b-000000000000", http.StatusNotFound},
		{"not a uuid", "/api/avatars/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
				assert.Equal(t, png, rec.Body.Bytes())
			}
		})
	}
}
