package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leasewise/leasewise-backend/pkg/enums"
)

// RollbackSuggestion links an open failure streak to a prior preference version.
type RollbackSuggestion struct {
	ID                 uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID            uuid.UUID              `gorm:"column:owner_id;type:uuid;not null;index"`
	FailureRecordID    uuid.UUID              `gorm:"column:failure_record_id;type:uuid;not null;uniqueIndex"`
	SuggestedVersionID uuid.UUID              `gorm:"column:suggested_version_id;type:uuid;not null"`
	Reason             string                 `gorm:"column:reason;not null"`
	Confidence         int                    `gorm:"column:confidence;not null"`
	Status             enums.SuggestionStatus `gorm:"column:status;not null;default:'pending'"`
	DecidedAt          *time.Time             `gorm:"column:decided_at"`
	CreatedAt          time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (RollbackSuggestion) TableName() string { return "rollback_suggestions" }

func (r *RollbackSuggestion) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
