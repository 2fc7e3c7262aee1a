package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type mockPinger struct {
	PingFunc func(ctx context.Context) error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func TestLive_AlwaysOK(t *testing.T) {
	handler := NewHealthHandler(nil, nil)

	rr := httptest.NewRecorder()
	handler.Live(rr, httptest.NewRequest(http.MethodGet, "/live", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestReady_AllStoresUp(t *testing.T) {
	handler := NewHealthHandler(&mockPinger{}, &mockPinger{})

	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestReady_RedisDown(t *testing.T) {
	handler := NewHealthHandler(&mockPinger{}, &mockPinger{
		PingFunc: func(ctx context.Context) error { return errors.New("connection refused") },
	})

	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	var status map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&status); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if status["status"] != "degraded" || status["redis"] != "unreachable" || status["database"] != "ok" {
		t.Fatalf("unexpected status body: %v", status)
	}
}
