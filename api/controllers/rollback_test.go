package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/leasewise/leasewise-backend/internal/rollback"
	pkgerrors "github.com/leasewise/leasewise-backend/pkg/errors"
)

type stubRollbackService struct {
	listFn   func(ctx context.Context, ownerID uuid.UUID, status string) ([]rollback.SuggestionDTO, error)
	acceptFn func(ctx context.Context, ownerID, id uuid.UUID) (*rollback.SuggestionDTO, error)
	rejectFn func(ctx context.Context, ownerID, id uuid.UUID) (*rollback.SuggestionDTO, error)
	applyFn  func(ctx context.Context, ownerID, id uuid.UUID) (*rollback.SuggestionDTO, error)
}

func (s *stubRollbackService) List(ctx context.Context, ownerID uuid.UUID, status string) ([]rollback.SuggestionDTO, error) {
	return s.listFn(ctx, ownerID, status)
}

func (s *stubRollbackService) Accept(ctx context.Context, ownerID, id uuid.UUID) (*rollback.SuggestionDTO, error) {
	return s.acceptFn(ctx, ownerID, id)
}

func (s *stubRollbackService) Reject(ctx context.Context, ownerID, id uuid.UUID) (*rollback.SuggestionDTO, error) {
	return s.rejectFn(ctx, ownerID, id)
}

func (s *stubRollbackService) Apply(ctx context.Context, ownerID, id uuid.UUID) (*rollback.SuggestionDTO, error) {
	return s.applyFn(ctx, ownerID, id)
}

func TestListRollbackSuggestionsPassesStatus(t *testing.T) {
	svc := &stubRollbackService{
		listFn: func(ctx context.Context, oid uuid.UUID, status string) ([]rollback.SuggestionDTO, error) {
			if status != "pending" {
				t.Fatalf("unexpected status filter %q", status)
			}
			return []rollback.SuggestionDTO{{ID: uuid.New(), Status: "pending", Confidence: 80}}, nil
		},
	}

	req := withOwner(httptest.NewRequest(http.MethodGet, "/api/v1/rollback-suggestions?status=pending", nil), uuid.New())
	resp := httptest.NewRecorder()
	ListRollbackSuggestions(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var payload struct {
		Items []rollback.SuggestionDTO `json:"items"`
	}
	decodeData(t, resp, &payload)
	if len(payload.Items) != 1 || payload.Items[0].Confidence != 80 {
		t.Fatalf("unexpected items %+v", payload.Items)
	}
}

func TestApplyRollbackSuggestion(t *testing.T) {
	ownerID := uuid.New()
	id := uuid.New()
	svc := &stubRollbackService{
		applyFn: func(ctx context.Context, oid, sid uuid.UUID) (*rollback.SuggestionDTO, error) {
			if oid != ownerID || sid != id {
				t.Fatalf("unexpected ids %s %s", oid, sid)
			}
			return &rollback.SuggestionDTO{ID: sid, Status: "applied"}, nil
		},
	}

	req := withOwner(httptest.NewRequest(http.MethodPost, "/api/v1/rollback-suggestions/"+id.String()+"/apply", nil), ownerID)
	req = withParams(req, map[string]string{"suggestionId": id.String()})
	resp := httptest.NewRecorder()
	ApplyRollbackSuggestion(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var dto rollback.SuggestionDTO
	decodeData(t, resp, &dto)
	if dto.Status != "applied" {
		t.Fatalf("unexpected status %s", dto.Status)
	}
}

func TestRejectRollbackSuggestionConflict(t *testing.T) {
	id := uuid.New()
	svc := &stubRollbackService{
		rejectFn: func(context.Context, uuid.UUID, uuid.UUID) (*rollback.SuggestionDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "suggestion already decided")
		},
	}

	req := withOwner(httptest.NewRequest(http.MethodPost, "/api/v1/rollback-suggestions/"+id.String()+"/reject", nil), uuid.New())
	req = withParams(req, map[string]string{"suggestionId": id.String()})
	resp := httptest.NewRecorder()
	RejectRollbackSuggestion(svc, testLogger())(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

func TestAcceptRollbackSuggestionInvalidID(t *testing.T) {
	req := withOwner(httptest.NewRequest(http.MethodPost, "/api/v1/rollback-suggestions/x/accept", nil), uuid.New())
	req = withParams(req, map[string]string{"suggestionId": "x"})
	resp := httptest.NewRecorder()
	AcceptRollbackSuggestion(&stubRollbackService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}
