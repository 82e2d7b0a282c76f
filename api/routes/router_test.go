package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/leasewise/leasewise-backend/internal/rollback"
	pkgAuth "github.com/leasewise/leasewise-backend/pkg/auth"
	"github.com/leasewise/leasewise-backend/pkg/config"
	"github.com/leasewise/leasewise-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubRollbackService struct {
	applied []uuid.UUID
}

func (s *stubRollbackService) List(context.Context, uuid.UUID, string) ([]rollback.SuggestionDTO, error) {
	return []rollback.SuggestionDTO{}, nil
}

func (s *stubRollbackService) Accept(_ context.Context, _ uuid.UUID, id uuid.UUID) (*rollback.SuggestionDTO, error) {
	return &rollback.SuggestionDTO{ID: id, Status: "accepted"}, nil
}

func (s *stubRollbackService) Reject(_ context.Context, _ uuid.UUID, id uuid.UUID) (*rollback.SuggestionDTO, error) {
	return &rollback.SuggestionDTO{ID: id, Status: "rejected"}, nil
}

func (s *stubRollbackService) Apply(_ context.Context, _ uuid.UUID, id uuid.UUID) (*rollback.SuggestionDTO, error) {
	s.applied = append(s.applied, id)
	return &rollback.SuggestionDTO{ID: id, Status: "applied"}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", CORSOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "leasewise", ExpirationMinutes: 30},
	}
}

func newTestRouter(svc Services) (http.Handler, *config.Config) {
	cfg := testConfig()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewRouter(cfg, logg, stubPinger{}, nil, svc), cfg
}

func bearer(t *testing.T, cfg *config.Config, userID uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{UserID: userID})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthRoutes(t *testing.T) {
	router, _ := newTestRouter(Services{})

	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: unexpected status %d", path, resp.Code)
		}
	}
}

func TestAPIRequiresAuth(t *testing.T) {
	router, _ := newTestRouter(Services{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/schedules", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestRollbackApplyRoute(t *testing.T) {
	svc := &stubRollbackService{}
	router, cfg := newTestRouter(Services{Rollback: svc})
	id := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rollback-suggestions/"+id.String()+"/apply", nil)
	req.Header.Set("Authorization", bearer(t, cfg, uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if len(svc.applied) != 1 || svc.applied[0] != id {
		t.Fatalf("unexpected applied ids %v", svc.applied)
	}
}

func TestUnwiredServiceReportsUnavailable(t *testing.T) {
	router, cfg := newTestRouter(Services{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/preferences", nil)
	req.Header.Set("Authorization", bearer(t, cfg, uuid.New()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	router, _ := newTestRouter(Services{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v2/anything", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}
