package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) PingContext(context.Context) error {
	return m.pingErr
}

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		pinger     Pinger
		wantStatus int
		wantBody   string
	}{
		{"nil pinger", nil, http.StatusOK, "serving"},
		{"pinger success", &mockPinger{}, http.StatusOK, "serving"},
		{"pinger failure", &mockPinger{pingErr: errors.New("connection refused")}, http.StatusServiceUnavailable, "not_serving"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewServer(tt.pinger).Ready(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), `"status":"`+tt.wantBody+`"`) {
				t.Errorf("body = %s, want status %s", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestLive(t *testing.T) {
	rec := httptest.NewRecorder()
	NewServer(&mockPinger{pingErr: errors.New("down")}).Live(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Live status = %d, want 200 regardless of database", rec.Code)
	}
}
