package deliveries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leasewise/leasewise-backend/internal/repo"
	"github.com/leasewise/leasewise-backend/pkg/db/models"
	"github.com/leasewise/leasewise-backend/pkg/enums"
	"github.com/leasewise/leasewise-backend/pkg/pagination"
)

// Repository persists delivery attempts and failure streaks.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	RecordAttempts(ctx context.Context, attempts []models.DeliveryAttempt) error
	ListAttempts(ctx context.Context, scheduleID uuid.UUID, params pagination.Params) ([]models.DeliveryAttempt, string, error)
	RecordFailure(ctx context.Context, scheduleID uuid.UUID, reason enums.FailureReason, cause string, now time.Time) (*models.FailureRecord, error)
	ResolveFailures(ctx context.Context, scheduleID uuid.UUID, now time.Time) (int64, error)
	ListOpenFailures(ctx context.Context, minCount int) ([]models.FailureRecord, error)
	FindFailure(ctx context.Context, id uuid.UUID) (*models.FailureRecord, error)
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

func (r *repositoryImpl) RecordAttempts(ctx context.Context, attempts []models.DeliveryAttempt) error {
	if len(attempts) == 0 {
		return nil
	}
	return r.DB(ctx).Create(&attempts).Error
}

func (r *repositoryImpl) ListAttempts(ctx context.Context, scheduleID uuid.UUID, params pagination.Params) ([]models.DeliveryAttempt, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	query := r.DB(ctx).Model(&models.DeliveryAttempt{}).Where("schedule_id = ?", scheduleID)
	if cursor != nil {
		clause, args := cursor.Before("created_at")
		query = query.Where(clause, args...)
	}

	var rows []models.DeliveryAttempt
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&rows).Error; err != nil {
		return nil, "", err
	}

	page, next := pagination.Page(rows, params.Limit, func(a models.DeliveryAttempt) pagination.Cursor {
		return pagination.Cursor{At: a.CreatedAt, ID: a.ID}
	})
	return page, next, nil
}

// RecordFailure extends the open streak for scheduleID, or opens a new one.
// The reason always reflects the most recent failure.
func (r *repositoryImpl) RecordFailure(ctx context.Context, scheduleID uuid.UUID, reason enums.FailureReason, cause string, now time.Time) (*models.FailureRecord, error) {
	if !reason.IsValid() {
		return nil, fmt.Errorf("invalid failure reason %q", reason)
	}
	var lastError *string
	if cause != "" {
		lastError = &cause
	}

	var record models.FailureRecord
	err := r.Transaction(ctx, func(tx *gorm.DB) error {
		err := tx.Where("schedule_id = ? AND resolved_at IS NULL", scheduleID).
			Order("last_failed_at DESC").
			First(&record).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			record = models.FailureRecord{
				ScheduleID:    scheduleID,
				Reason:        reason,
				LastError:     lastError,
				FailureCount:  1,
				FirstFailedAt: now,
				LastFailedAt:  now,
			}
			return tx.Create(&record).Error
		case err != nil:
			return err
		}

		record.FailureCount++
		record.Reason = reason
		record.LastError = lastError
		record.LastFailedAt = now
		return tx.Model(&record).Updates(map[string]any{
			"failure_count":  record.FailureCount,
			"reason":         record.Reason,
			"last_error":     record.LastError,
			"last_failed_at": record.LastFailedAt,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repositoryImpl) ResolveFailures(ctx context.Context, scheduleID uuid.UUID, now time.Time) (int64, error) {
	result := r.DB(ctx).Model(&models.FailureRecord{}).
		Where("schedule_id = ? AND resolved_at IS NULL", scheduleID).
		Update("resolved_at", now)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) ListOpenFailures(ctx context.Context, minCount int) ([]models.FailureRecord, error) {
	var rows []models.FailureRecord
	err := r.DB(ctx).
		Where("resolved_at IS NULL AND failure_count >= ?", minCount).
		Order("last_failed_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) FindFailure(ctx context.Context, id uuid.UUID) (*models.FailureRecord, error) {
	var record models.FailureRecord
	if err := r.DB(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}
