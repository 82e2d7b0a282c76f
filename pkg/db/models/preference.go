package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leasewise/leasewise-backend/pkg/enums"
)

// PreferenceSnapshot is the full preference state captured by a version:
// the selected metrics plus the defaults applied to new schedules.
type PreferenceSnapshot struct {
	Metrics    []string        `json:"metrics"`
	Frequency  enums.Frequency `json:"frequency"`
	SendHour   int             `json:"send_hour"`
	SendMinute int             `json:"send_minute"`
	DayOfWeek  *int            `json:"day_of_week,omitempty"`
	DayOfMonth *int            `json:"day_of_month,omitempty"`
	Timezone   string          `json:"timezone,omitempty"`
	Recipients []string        `json:"recipients,omitempty"`
}

func (s *PreferenceSnapshot) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = PreferenceSnapshot{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("PreferenceSnapshot: unsupported Scan type %T", src)
	}
	return json.Unmarshal(raw, s)
}

func (s PreferenceSnapshot) Value() (driver.Value, error) {
	if s.Metrics == nil {
		s.Metrics = []string{}
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// ReportPreference is the live, per-owner preference record.
type ReportPreference struct {
	OwnerID   uuid.UUID          `gorm:"column:owner_id;type:uuid;primaryKey"`
	Snapshot  PreferenceSnapshot `gorm:"column:snapshot;type:text;not null"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (ReportPreference) TableName() string { return "report_preferences" }

// PreferenceVersion is an immutable snapshot in an owner's version history.
type PreferenceVersion struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID       uuid.UUID          `gorm:"column:owner_id;type:uuid;not null;uniqueIndex:ux_preference_versions_owner_number,priority:1"`
	VersionNumber int                `gorm:"column:version_number;not null;uniqueIndex:ux_preference_versions_owner_number,priority:2"`
	Snapshot      PreferenceSnapshot `gorm:"column:snapshot;type:text;not null"`
	Description   *string            `gorm:"column:description"`
	CreatedAt     time.Time          `gorm:"column:created_at;not null"`
}

func (PreferenceVersion) TableName() string { return "preference_versions" }

func (v *PreferenceVersion) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
