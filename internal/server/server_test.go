package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/stockcart/internal/auth"
	"github.com/aristath/stockcart/internal/modules/automation"
	"github.com/aristath/stockcart/internal/notify"
	"github.com/aristath/stockcart/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
	err  error
}

func (j stubJob) Name() string                { return j.name }
func (j stubJob) Run(context.Context) error { return j.err }

type stubDB struct{ err error }

func (d stubDB) HealthCheck(context.Context) error { return d.err }

type stubTicks struct{ last automation.TickSummary }

func (s stubTicks) LastTick() automation.TickSummary { return s.last }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)

	return New(Config{
		Log:       logger,
		Port:      0,
		DevMode:   true,
		Hub:       notify.NewHub(logger),
		Scheduler: scheduler.New(logger),
	})
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, "stockcart", response["service"])
}

func TestServer_Orders(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/orders", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest("GET", "/api/orders", nil)
	req.Header.Set(auth.UserIDHeader, "u1")
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestServer_Contact(t *testing.T) {
	s := newTestServer(t)

	body, _ := json.Marshal(ContactRequest{Name: "A", Email: "a@example.com", Subject: "Hi", Message: "Hello"})
	req := httptest.NewRequest("POST", "/api/contact", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "success", response["status"])

	req = httptest.NewRequest("POST", "/api/contact", bytes.NewReader([]byte(`{"name":"A"}`)))
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_CORSAllowsUserHeader(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	s := New(Config{Log: logger, DevMode: true, AllowedOrigins: []string{"http://localhost:5173"}})

	req := httptest.NewRequest("OPTIONS", "/api/orders", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	req.Header.Set("Access-Control-Request-Headers", auth.UserIDHeader)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSystemHandlers_Status(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	hub := notify.NewHub(logger)

	h := NewSystemHandlers(logger, stubDB{}, stubTicks{}, hub, nil, nil)
	snapshot := h.GetSystemStatusSnapshot(context.Background())
	assert.Equal(t, "healthy", snapshot.Status)
	assert.Equal(t, "healthy", snapshot.Database)
	assert.Nil(t, snapshot.LastTick, "no tick has run yet")
	assert.Zero(t, snapshot.WebsocketSessions)

	h = NewSystemHandlers(logger, stubDB{err: errors.New("corrupt")}, nil, nil, nil, nil)
	snapshot = h.GetSystemStatusSnapshot(context.Background())
	assert.Equal(t, "degraded", snapshot.Status)
	assert.Equal(t, "unhealthy", snapshot.Database)
}

func TestSystemHandlers_TypedNilDependencies(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	var sched *scheduler.Scheduler

	h := NewSystemHandlers(logger, nil, nil, nil, sched, nil)

	req := httptest.NewRequest("GET", "/api/system/jobs", nil)
	w := httptest.NewRecorder()
	h.HandleJobsStatus(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSystemHandlers_TriggerJob(t *testing.T) {
	s := newTestServer(t)

	s.RegisterJob(stubJob{name: "ok"})
	s.RegisterJob(stubJob{name: "broken", err: errors.New("boom")})

	tests := []struct {
		job      string
		wantCode int
	}{
		{"ok", http.StatusOK},
		{"broken", http.StatusInternalServerError},
		{"missing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.job, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/system/jobs/"+tt.job+"/run", nil)
			w := httptest.NewRecorder()
			s.Router().ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}

	req := httptest.NewRequest("GET", "/api/system/jobs", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	var response JobsStatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, 2, response.TotalJobs)
	assert.Equal(t, "broken", response.Jobs[0].Name)
}
