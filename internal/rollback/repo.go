package rollback

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/leasewise/leasewise-backend/internal/repo"
	"github.com/leasewise/leasewise-backend/pkg/db/models"
	"github.com/leasewise/leasewise-backend/pkg/enums"
)

// Repository persists rollback suggestions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, suggestion *models.RollbackSuggestion) (bool, error)
	SuggestedFailures(ctx context.Context, failureIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, status *enums.SuggestionStatus) ([]models.RollbackSuggestion, error)
	FindForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.RollbackSuggestion, error)
	Transition(ctx context.Context, id uuid.UUID, from, to enums.SuggestionStatus, at time.Time) (bool, error)
}

type repositoryImpl struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{Base: r.Base.WithTx(tx)}
}

// Create inserts the suggestion unless one already exists for its failure
// record, reporting whether a row was written.
func (r *repositoryImpl) Create(ctx context.Context, suggestion *models.RollbackSuggestion) (bool, error) {
	result := r.DB(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "failure_record_id"}}, DoNothing: true}).
		Create(suggestion)
	return result.RowsAffected > 0, result.Error
}

func (r *repositoryImpl) SuggestedFailures(ctx context.Context, failureIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(failureIDs))
	if len(failureIDs) == 0 {
		return out, nil
	}
	var ids []uuid.UUID
	err := r.DB(ctx).Model(&models.RollbackSuggestion{}).
		Where("failure_record_id IN ?", failureIDs).
		Pluck("failure_record_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (r *repositoryImpl) ListByOwner(ctx context.Context, ownerID uuid.UUID, status *enums.SuggestionStatus) ([]models.RollbackSuggestion, error) {
	q := r.DB(ctx).Where("owner_id = ?", ownerID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var rows []models.RollbackSuggestion
	err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) FindForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.RollbackSuggestion, error) {
	var s models.RollbackSuggestion
	if err := r.DB(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// Transition moves a suggestion from one status to another. It reports false
// when the suggestion was no longer in the from status.
func (r *repositoryImpl) Transition(ctx context.Context, id uuid.UUID, from, to enums.SuggestionStatus, at time.Time) (bool, error) {
	result := r.DB(ctx).Model(&models.RollbackSuggestion{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "decided_at": at})
	return result.RowsAffected > 0, result.Error
}
