package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/leasewise/leasewise-backend/api/responses"
	"github.com/leasewise/leasewise-backend/internal/rollback"
	pkgerrors "github.com/leasewise/leasewise-backend/pkg/errors"
	"github.com/leasewise/leasewise-backend/pkg/logger"
)

func rollbackUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rollback service unavailable"))
}

// ListRollbackSuggestions returns the caller's suggestions, newest first.
func ListRollbackSuggestions(svc rollback.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			rollbackUnavailable(w, r, logg)
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}

		items, err := svc.List(r.Context(), ownerID, strings.TrimSpace(r.URL.Query().Get("status")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

func AcceptRollbackSuggestion(svc rollback.Service, logg *logger.Logger) http.HandlerFunc {
	return suggestionDecision(svc, logg, rollback.Service.Accept)
}

func RejectRollbackSuggestion(svc rollback.Service, logg *logger.Logger) http.HandlerFunc {
	return suggestionDecision(svc, logg, rollback.Service.Reject)
}

// ApplyRollbackSuggestion restores the suggested preference version.
func ApplyRollbackSuggestion(svc rollback.Service, logg *logger.Logger) http.HandlerFunc {
	return suggestionDecision(svc, logg, rollback.Service.Apply)
}

type suggestionAction func(rollback.Service, context.Context, uuid.UUID, uuid.UUID) (*rollback.SuggestionDTO, error)

func suggestionDecision(svc rollback.Service, logg *logger.Logger, action suggestionAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			rollbackUnavailable(w, r, logg)
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}
		id, ok := requireParam(w, r, logg, "suggestionId")
		if !ok {
			return
		}

		resp, err := action(svc, r.Context(), ownerID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}
