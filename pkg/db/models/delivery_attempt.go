package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leasewise/leasewise-backend/pkg/enums"
)

// DeliveryAttempt is the append-only audit row written once per recipient per execution.
type DeliveryAttempt struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	ScheduleID  uuid.UUID            `gorm:"column:schedule_id;type:uuid;not null;index"`
	ExecutionID uuid.UUID            `gorm:"column:execution_id;type:uuid;not null"`
	Recipient   string               `gorm:"column:recipient;not null"`
	Status      enums.DeliveryStatus `gorm:"column:status;not null"`
	Error       *string              `gorm:"column:error"`
	SentAt      *time.Time           `gorm:"column:sent_at"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (DeliveryAttempt) TableName() string { return "delivery_attempts" }

func (a *DeliveryAttempt) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
