package preferences

import (
	"time"

	"github.com/google/uuid"

	"github.com/leasewise/leasewise-backend/pkg/db/models"
	"github.com/leasewise/leasewise-backend/pkg/enums"
)

// SnapshotInput is the request shape for saving preferences.
type SnapshotInput struct {
	Metrics     []string `json:"metrics" validate:"required,min=1,dive,required"`
	Frequency   string   `json:"frequency" validate:"required,oneof=weekly biweekly monthly quarterly annually"`
	SendHour    int      `json:"send_hour" validate:"min=0,max=23"`
	SendMinute  int      `json:"send_minute" validate:"min=0,max=59"`
	DayOfWeek   *int     `json:"day_of_week,omitempty" validate:"omitempty,min=0,max=6"`
	DayOfMonth  *int     `json:"day_of_month,omitempty" validate:"omitempty,min=1,max=31"`
	Timezone    string   `json:"timezone,omitempty" validate:"omitempty,max=64"`
	Recipients  []string `json:"recipients,omitempty" validate:"omitempty,max=25,dive,required,email"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=255"`
}

// PreferencesDTO is the live preference state returned to clients.
type PreferencesDTO struct {
	Snapshot  models.PreferenceSnapshot `json:"snapshot"`
	UpdatedAt *time.Time                `json:"updated_at,omitempty"`
}

type VersionDTO struct {
	ID            uuid.UUID                 `json:"id"`
	VersionNumber int                       `json:"version_number"`
	Snapshot      models.PreferenceSnapshot `json:"snapshot"`
	Description   *string                   `json:"description,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
}

func NewVersionDTO(v models.PreferenceVersion) VersionDTO {
	return VersionDTO{
		ID:            v.ID,
		VersionNumber: v.VersionNumber,
		Snapshot:      v.Snapshot,
		Description:   v.Description,
		CreatedAt:     v.CreatedAt,
	}
}

// DiffDTO names the two versions compared alongside the change set.
type DiffDTO struct {
	From   int    `json:"from_version"`
	To     int    `json:"to_version"`
	Change Change `json:"change"`
}

// DefaultSnapshot is what an owner sees before saving anything: every metric,
// monthly on the 1st at 09:00 UTC.
func DefaultSnapshot() models.PreferenceSnapshot {
	metrics := make([]string, 0, len(enums.ReportMetrics()))
	for _, m := range enums.ReportMetrics() {
		metrics = append(metrics, m.String())
	}
	day := 1
	return models.PreferenceSnapshot{
		Metrics:    metrics,
		Frequency:  enums.FrequencyMonthly,
		SendHour:   9,
		DayOfMonth: &day,
		Timezone:   "UTC",
	}
}
