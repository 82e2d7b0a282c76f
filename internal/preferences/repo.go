package preferences

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/leasewise/leasewise-backend/internal/repo"
	"github.com/leasewise/leasewise-backend/pkg/db/models"
)

// Repository persists the live preference record and its version history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Transaction(ctx context.Context, fn func(Repository) error) error
	GetLive(ctx context.Context, ownerID uuid.UUID) (*models.ReportPreference, error)
	UpsertLive(ctx context.Context, pref *models.ReportPreference) error
	MaxVersionNumber(ctx context.Context, ownerID uuid.UUID) (int, error)
	CreateVersion(ctx context.Context, version *models.PreferenceVersion) error
	PruneVersions(ctx context.Context, ownerID uuid.UUID, keep int) (int64, error)
	ListVersions(ctx context.Context, ownerID uuid.UUID) ([]models.PreferenceVersion, error)
	FindVersion(ctx context.Context, ownerID, id uuid.UUID) (*models.PreferenceVersion, error)
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

func (r *repositoryImpl) Transaction(ctx context.Context, fn func(Repository) error) error {
	return r.Base.Transaction(ctx, func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

func (r *repositoryImpl) GetLive(ctx context.Context, ownerID uuid.UUID) (*models.ReportPreference, error) {
	var pref models.ReportPreference
	if err := r.DB(ctx).Where("owner_id = ?", ownerID).First(&pref).Error; err != nil {
		return nil, err
	}
	return &pref, nil
}

func (r *repositoryImpl) UpsertLive(ctx context.Context, pref *models.ReportPreference) error {
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"snapshot", "updated_at"}),
		}).
		Create(pref).Error
}

func (r *repositoryImpl) MaxVersionNumber(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var max int
	err := r.DB(ctx).Model(&models.PreferenceVersion{}).
		Where("owner_id = ?", ownerID).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&max).Error
	return max, err
}

func (r *repositoryImpl) CreateVersion(ctx context.Context, version *models.PreferenceVersion) error {
	return r.DB(ctx).Create(version).Error
}

// PruneVersions deletes everything older than the keep newest versions.
func (r *repositoryImpl) PruneVersions(ctx context.Context, ownerID uuid.UUID, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	var cutoff []int
	err := r.DB(ctx).Model(&models.PreferenceVersion{}).
		Where("owner_id = ?", ownerID).
		Order("version_number DESC").
		Offset(keep - 1).
		Limit(1).
		Pluck("version_number", &cutoff).Error
	if err != nil || len(cutoff) == 0 {
		return 0, err
	}
	result := r.DB(ctx).
		Where("owner_id = ? AND version_number < ?", ownerID, cutoff[0]).
		Delete(&models.PreferenceVersion{})
	return result.RowsAffected, result.Error
}

// ListVersions returns the owner's versions, newest first.
func (r *repositoryImpl) ListVersions(ctx context.Context, ownerID uuid.UUID) ([]models.PreferenceVersion, error) {
	var rows []models.PreferenceVersion
	err := r.DB(ctx).
		Where("owner_id = ?", ownerID).
		Order("version_number DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) FindVersion(ctx context.Context, ownerID, id uuid.UUID) (*models.PreferenceVersion, error) {
	var v models.PreferenceVersion
	if err := r.DB(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}
