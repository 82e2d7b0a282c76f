package rollback

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leasewise/leasewise-backend/pkg/db/models"
	"github.com/leasewise/leasewise-backend/pkg/enums"
	pkgerrors "github.com/leasewise/leasewise-backend/pkg/errors"
)

// Service exposes suggestion decisions to owners.
type Service interface {
	List(ctx context.Context, ownerID uuid.UUID, status string) ([]SuggestionDTO, error)
	Accept(ctx context.Context, ownerID, id uuid.UUID) (*SuggestionDTO, error)
	Reject(ctx context.Context, ownerID, id uuid.UUID) (*SuggestionDTO, error)
	Apply(ctx context.Context, ownerID, id uuid.UUID) (*SuggestionDTO, error)
}

// Restorer makes a preference version live again.
type Restorer interface {
	Restore(ctx context.Context, ownerID, versionID uuid.UUID) (*models.PreferenceVersion, error)
}

type ServiceParams struct {
	Repo     Repository
	Restorer Restorer
	Now      func() time.Time
}

type service struct {
	repo     Repository
	restorer Restorer
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "rollback repository required")
	}
	if params.Restorer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "preference restorer required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, restorer: params.Restorer, now: now}, nil
}

func (s *service) List(ctx context.Context, ownerID uuid.UUID, status string) ([]SuggestionDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	var filter *enums.SuggestionStatus
	if strings.TrimSpace(status) != "" {
		parsed, err := enums.ParseSuggestionStatus(strings.TrimSpace(status))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filter = &parsed
	}
	rows, err := s.repo.ListByOwner(ctx, ownerID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rollback suggestions")
	}
	items := make([]SuggestionDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, NewSuggestionDTO(row))
	}
	return items, nil
}

func (s *service) Accept(ctx context.Context, ownerID, id uuid.UUID) (*SuggestionDTO, error) {
	return s.decide(ctx, ownerID, id, enums.SuggestionStatusAccepted, nil)
}

func (s *service) Reject(ctx context.Context, ownerID, id uuid.UUID) (*SuggestionDTO, error) {
	return s.decide(ctx, ownerID, id, enums.SuggestionStatusRejected, nil)
}

// Apply restores the suggested version through the preferences history and
// then marks the suggestion applied.
func (s *service) Apply(ctx context.Context, ownerID, id uuid.UUID) (*SuggestionDTO, error) {
	return s.decide(ctx, ownerID, id, enums.SuggestionStatusApplied, func(suggestion *models.RollbackSuggestion) error {
		if _, err := s.restorer.Restore(ctx, ownerID, suggestion.SuggestedVersionID); err != nil {
			if pkgerrors.As(err) != nil {
				return err
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore preferences")
		}
		return nil
	})
}

func (s *service) decide(ctx context.Context, ownerID, id uuid.UUID, next enums.SuggestionStatus, before func(*models.RollbackSuggestion) error) (*SuggestionDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "suggestion id required")
	}
	suggestion, err := s.repo.FindForOwner(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rollback suggestion not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load rollback suggestion")
	}
	if !suggestion.Status.CanTransitionTo(next) {
		return nil, pkgerrors.Messagef(pkgerrors.CodeStateConflict, "suggestion is %s and cannot become %s", suggestion.Status, next)
	}
	if before != nil {
		if err := before(suggestion); err != nil {
			return nil, err
		}
	}

	at := s.now().UTC()
	ok, err := s.repo.Transition(ctx, suggestion.ID, suggestion.Status, next, at)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rollback suggestion")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "suggestion was decided concurrently")
	}
	suggestion.Status = next
	suggestion.DecidedAt = &at
	dto := NewSuggestionDTO(*suggestion)
	return &dto, nil
}
