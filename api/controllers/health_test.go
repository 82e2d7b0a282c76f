package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leasewise/leasewise-backend/pkg/config"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	resp := httptest.NewRecorder()
	HealthLive(cfg)(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if got := resp.Header().Get("X-LeaseWise-Env"); got != "test" {
		t.Fatalf("unexpected env header %q", got)
	}
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	cases := []struct {
		name   string
		db     Pinger
		redis  Pinger
		status int
	}{
		{name: "all healthy", db: stubPinger{}, redis: stubPinger{}, status: http.StatusOK},
		{name: "redis not configured", db: stubPinger{}, status: http.StatusOK},
		{name: "database down", db: stubPinger{err: errors.New("dial tcp")}, status: http.StatusServiceUnavailable},
		{name: "redis down", db: stubPinger{}, redis: stubPinger{err: errors.New("timeout")}, status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := httptest.NewRecorder()
			HealthReady(cfg, testLogger(), tc.db, tc.redis)(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			if resp.Code != tc.status {
				t.Fatalf("unexpected status %d", resp.Code)
			}
		})
	}
}
