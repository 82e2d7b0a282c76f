package schedules

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leasewise/leasewise-backend/internal/repo"
	"github.com/leasewise/leasewise-backend/pkg/db/models"
	"github.com/leasewise/leasewise-backend/pkg/enums"
	"github.com/leasewise/leasewise-backend/pkg/pagination"
)

// Repository persists report schedules and their execution claims.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, schedule *models.Schedule) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Schedule, error)
	FindForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.Schedule, error)
	ListByOwner(ctx context.Context, query ListQuery) ([]models.Schedule, string, error)
	Update(ctx context.Context, schedule *models.Schedule, change Change) (bool, error)
	FindDue(ctx context.Context, now time.Time) ([]models.Schedule, error)
	Claim(ctx context.Context, id uuid.UUID, now time.Time, ttl time.Duration) (uuid.UUID, bool, error)
	Advance(ctx context.Context, id, token uuid.UUID, sentAt, next time.Time) (bool, error)
	Release(ctx context.Context, id, token uuid.UUID) error
}

// ListQuery filters an owner's schedules.
type ListQuery struct {
	OwnerID uuid.UUID
	Status  *enums.ScheduleStatus
	pagination.Params
}

// Change guards an owner write against the executor. From is the status the
// caller read; Reschedule also writes next_send_at.
type Change struct {
	From       enums.ScheduleStatus
	Reschedule bool
}

// editableColumns are written by Update; claim columns and last_sent_at are
// owned by Claim/Advance/Release.
var editableColumns = []string{
	"name", "property_id", "frequency", "day_of_week", "day_of_month", "send_hour", "send_minute",
	"timezone", "recipients", "metrics", "status", "updated_at",
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

func (r *repositoryImpl) Create(ctx context.Context, schedule *models.Schedule) error {
	return r.DB(ctx).Create(schedule).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	var schedule models.Schedule
	if err := r.DB(ctx).Where("id = ?", id).First(&schedule).Error; err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *repositoryImpl) FindForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.Schedule, error) {
	var schedule models.Schedule
	if err := r.DB(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&schedule).Error; err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *repositoryImpl) ListByOwner(ctx context.Context, query ListQuery) ([]models.Schedule, string, error) {
	cursor, err := pagination.ParseCursor(query.Cursor)
	if err != nil {
		return nil, "", err
	}

	q := r.DB(ctx).Model(&models.Schedule{}).Where("owner_id = ?", query.OwnerID)
	if query.Status != nil {
		q = q.Where("status = ?", *query.Status)
	}
	if cursor != nil {
		clause, args := cursor.Before("created_at")
		q = q.Where(clause, args...)
	}

	var rows []models.Schedule
	if err := q.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(query.Limit)).Find(&rows).Error; err != nil {
		return nil, "", err
	}
	page, next := pagination.Page(rows, query.Limit, func(s models.Schedule) pagination.Cursor {
		return pagination.Cursor{At: s.CreatedAt, ID: s.ID}
	})
	return page, next, nil
}

// Update writes the owner-editable columns. next_send_at is only written when
// change.Reschedule is set, and never while an execution holds the claim, so a
// stale read cannot roll back an Advance. It reports false when the row no
// longer has change.From or is claimed during a reschedule.
func (r *repositoryImpl) Update(ctx context.Context, schedule *models.Schedule, change Change) (bool, error) {
	columns := editableColumns
	q := r.DB(ctx).Model(schedule).Where("status = ?", change.From)
	if change.Reschedule {
		columns = append(append([]string{}, editableColumns...), "next_send_at")
		q = q.Where("claim_token IS NULL")
	}
	result := q.Select(columns).Updates(schedule)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindDue returns active schedules whose next send instant is at or before now.
// It never mutates; callers must Claim a row before executing it.
func (r *repositoryImpl) FindDue(ctx context.Context, now time.Time) ([]models.Schedule, error) {
	var rows []models.Schedule
	err := r.DB(ctx).
		Where("status = ? AND next_send_at <= ?", enums.ScheduleStatusActive, now.UTC()).
		Order("next_send_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// Claim marks the schedule as in progress. It succeeds only while the row is
// active, still due, and not held by an unexpired claim.
func (r *repositoryImpl) Claim(ctx context.Context, id uuid.UUID, now time.Time, ttl time.Duration) (uuid.UUID, bool, error) {
	now = now.UTC()
	token := uuid.New()
	result := r.DB(ctx).Model(&models.Schedule{}).
		Where("id = ? AND status = ? AND next_send_at <= ?", id, enums.ScheduleStatusActive, now).
		Where("claim_token IS NULL OR claimed_at < ?", now.Add(-ttl)).
		Updates(map[string]any{
			"claim_token": token,
			"claimed_at":  now,
		})
	if result.Error != nil {
		return uuid.Nil, false, result.Error
	}
	if result.RowsAffected == 0 {
		return uuid.Nil, false, nil
	}
	return token, true, nil
}

// Advance records a completed execution and drops the claim. It is a no-op
// when token no longer owns the row.
func (r *repositoryImpl) Advance(ctx context.Context, id, token uuid.UUID, sentAt, next time.Time) (bool, error) {
	result := r.DB(ctx).Model(&models.Schedule{}).
		Where("id = ? AND claim_token = ?", id, token).
		Updates(map[string]any{
			"last_sent_at": sentAt.UTC(),
			"next_send_at": next.UTC(),
			"claim_token":  nil,
			"claimed_at":   nil,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *repositoryImpl) Release(ctx context.Context, id, token uuid.UUID) error {
	return r.DB(ctx).Model(&models.Schedule{}).
		Where("id = ? AND claim_token = ?", id, token).
		Updates(map[string]any{
			"claim_token": nil,
			"claimed_at":  nil,
		}).Error
}
