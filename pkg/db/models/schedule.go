package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/leasewise/leasewise-backend/pkg/db/types"
	"github.com/leasewise/leasewise-backend/pkg/enums"
)

// Schedule is a recurring report-delivery configuration. PropertyID scopes the
// report to a single property; nil means the owner's whole portfolio.
type Schedule struct {
	ID         uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID    uuid.UUID             `gorm:"column:owner_id;type:uuid;not null;index"`
	PropertyID *uuid.UUID            `gorm:"column:property_id;type:uuid"`
	Name       string                `gorm:"column:name;not null"`
	Frequency  enums.Frequency       `gorm:"column:frequency;not null"`
	DayOfWeek  *int                  `gorm:"column:day_of_week"`
	DayOfMonth *int                  `gorm:"column:day_of_month"`
	SendHour   int                   `gorm:"column:send_hour;not null"`
	SendMinute int                   `gorm:"column:send_minute;not null"`
	Timezone   string                `gorm:"column:timezone;not null;default:'UTC'"`
	Recipients dbtypes.StringList    `gorm:"column:recipients;type:text;not null"`
	Metrics    dbtypes.StringList    `gorm:"column:metrics;type:text;not null"`
	Status     enums.ScheduleStatus  `gorm:"column:status;not null;default:'active';index:idx_schedules_due,priority:1"`
	NextSendAt time.Time             `gorm:"column:next_send_at;not null;index:idx_schedules_due,priority:2"`
	LastSentAt *time.Time            `gorm:"column:last_sent_at"`
	ClaimToken *uuid.UUID            `gorm:"column:claim_token;type:uuid"`
	ClaimedAt  *time.Time            `gorm:"column:claimed_at"`
	CreatedAt  time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (Schedule) TableName() string { return "report_schedules" }

func (s *Schedule) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
