package sweeps

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/leasewise/leasewise-backend/internal/repo"
	"github.com/leasewise/leasewise-backend/pkg/db/models"
	"github.com/leasewise/leasewise-backend/pkg/enums"
)

// FlagStore persists which thresholds have already been notified per subject.
type FlagStore interface {
	SentThresholds(ctx context.Context, kind enums.NotificationKind, subjectIDs []uuid.UUID) (map[uuid.UUID]map[int]bool, error)
	MarkSent(ctx context.Context, logs []models.NotificationLog) error
}

type flagRepository struct {
	repo.Base
}

func NewFlagRepository(db *gorm.DB) FlagStore {
	return &flagRepository{Base: repo.NewBase(db)}
}

func (r *flagRepository) SentThresholds(ctx context.Context, kind enums.NotificationKind, subjectIDs []uuid.UUID) (map[uuid.UUID]map[int]bool, error) {
	out := make(map[uuid.UUID]map[int]bool)
	if len(subjectIDs) == 0 {
		return out, nil
	}
	var rows []models.NotificationLog
	err := r.DB(ctx).
		Where("kind = ? AND subject_id IN ?", kind, subjectIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if out[row.SubjectID] == nil {
			out[row.SubjectID] = make(map[int]bool)
		}
		out[row.SubjectID][row.Threshold] = true
	}
	return out, nil
}

// MarkSent inserts flags, ignoring ones another sweep already wrote.
func (r *flagRepository) MarkSent(ctx context.Context, logs []models.NotificationLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}, {Name: "subject_id"}, {Name: "threshold_days"}},
			DoNothing: true,
		}).
		Create(&logs).Error
}
