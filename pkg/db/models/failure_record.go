package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leasewise/leasewise-backend/pkg/enums"
)

// FailureRecord tracks a streak of consecutive failed executions for one schedule.
// At most one record per schedule is open (ResolvedAt nil) at a time.
type FailureRecord struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ScheduleID    uuid.UUID           `gorm:"column:schedule_id;type:uuid;not null;index"`
	Reason        enums.FailureReason `gorm:"column:reason;not null"`
	LastError     *string             `gorm:"column:last_error"`
	FailureCount  int                 `gorm:"column:failure_count;not null;default:0"`
	FirstFailedAt time.Time           `gorm:"column:first_failed_at;not null"`
	LastFailedAt  time.Time           `gorm:"column:last_failed_at;not null"`
	ResolvedAt    *time.Time          `gorm:"column:resolved_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (FailureRecord) TableName() string { return "failure_records" }

func (f *FailureRecord) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
