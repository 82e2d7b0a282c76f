package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leasewise/leasewise-backend/pkg/enums"
)

// NotificationLog is the per-threshold sent flag for tenant notifications.
// SubjectID is the payment id for overdue rent and the lease id for expirations.
type NotificationLog struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	Kind      enums.NotificationKind `gorm:"column:kind;not null;uniqueIndex:ux_notification_logs_subject,priority:1"`
	SubjectID uuid.UUID              `gorm:"column:subject_id;type:uuid;not null;uniqueIndex:ux_notification_logs_subject,priority:2"`
	Threshold int                    `gorm:"column:threshold_days;not null;uniqueIndex:ux_notification_logs_subject,priority:3"`
	TenantID  uuid.UUID              `gorm:"column:tenant_id;type:uuid;not null"`
	Delivered int                    `gorm:"column:delivered_count;not null;default:0"`
	SentAt    time.Time              `gorm:"column:sent_at;not null"`
}

func (NotificationLog) TableName() string { return "notification_logs" }

func (n *NotificationLog) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
