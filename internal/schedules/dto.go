package schedules

import (
	"time"

	"github.com/google/uuid"

	"github.com/leasewise/leasewise-backend/pkg/db/models"
	"github.com/leasewise/leasewise-backend/pkg/types"
)

// Definition is the complete user-editable shape of a schedule.
type Definition struct {
	Name       string     `json:"name" validate:"required,max=120"`
	PropertyID *uuid.UUID `json:"property_id,omitempty"`
	Frequency  string     `json:"frequency" validate:"required,oneof=weekly biweekly monthly quarterly annually"`
	DayOfWeek  *int       `json:"day_of_week,omitempty" validate:"omitempty,min=0,max=6"`
	DayOfMonth *int       `json:"day_of_month,omitempty" validate:"omitempty,min=1,max=31"`
	SendHour   int        `json:"send_hour" validate:"min=0,max=23"`
	SendMinute int        `json:"send_minute" validate:"min=0,max=59"`
	Timezone   string     `json:"timezone,omitempty" validate:"omitempty,max=64"`
	Recipients []string   `json:"recipients" validate:"required,min=1,max=25,dive,required,email"`
	Metrics    []string   `json:"metrics" validate:"required,min=1,dive,required"`
}

// UpdateInput carries a partial update. Absent fields keep their value;
// PropertyID, DayOfWeek and DayOfMonth may be cleared with an explicit null.
type UpdateInput struct {
	Name       *string                   `json:"name,omitempty"`
	PropertyID types.Nullable[uuid.UUID] `json:"property_id"`
	Frequency  *string                   `json:"frequency,omitempty"`
	DayOfWeek  types.Nullable[int]       `json:"day_of_week"`
	DayOfMonth types.Nullable[int]       `json:"day_of_month"`
	SendHour   *int                      `json:"send_hour,omitempty"`
	SendMinute *int                      `json:"send_minute,omitempty"`
	Timezone   *string                   `json:"timezone,omitempty"`
	Recipients []string                  `json:"recipients,omitempty"`
	Metrics    []string                  `json:"metrics,omitempty"`
}

func (u UpdateInput) apply(def Definition) Definition {
	if u.Name != nil {
		def.Name = *u.Name
	}
	def.PropertyID = u.PropertyID.Apply(def.PropertyID)
	if u.Frequency != nil {
		def.Frequency = *u.Frequency
	}
	def.DayOfWeek = u.DayOfWeek.Apply(def.DayOfWeek)
	def.DayOfMonth = u.DayOfMonth.Apply(def.DayOfMonth)
	if u.SendHour != nil {
		def.SendHour = *u.SendHour
	}
	if u.SendMinute != nil {
		def.SendMinute = *u.SendMinute
	}
	if u.Timezone != nil {
		def.Timezone = *u.Timezone
	}
	if u.Recipients != nil {
		def.Recipients = u.Recipients
	}
	if u.Metrics != nil {
		def.Metrics = u.Metrics
	}
	return def
}

func definitionOf(s *models.Schedule) Definition {
	return Definition{
		Name:       s.Name,
		PropertyID: s.PropertyID,
		Frequency:  s.Frequency.String(),
		DayOfWeek:  s.DayOfWeek,
		DayOfMonth: s.DayOfMonth,
		SendHour:   s.SendHour,
		SendMinute: s.SendMinute,
		Timezone:   s.Timezone,
		Recipients: s.Recipients.Clone(),
		Metrics:    s.Metrics.Clone(),
	}
}

// ScheduleDTO is the API representation of a schedule.
type ScheduleDTO struct {
	ID         uuid.UUID  `json:"id"`
	OwnerID    uuid.UUID  `json:"owner_id"`
	PropertyID *uuid.UUID `json:"property_id,omitempty"`
	Name       string     `json:"name"`
	Frequency  string     `json:"frequency"`
	DayOfWeek  *int       `json:"day_of_week,omitempty"`
	DayOfMonth *int       `json:"day_of_month,omitempty"`
	SendHour   int        `json:"send_hour"`
	SendMinute int        `json:"send_minute"`
	Timezone   string     `json:"timezone"`
	Recipients []string   `json:"recipients"`
	Metrics    []string   `json:"metrics"`
	Status     string     `json:"status"`
	NextSendAt time.Time  `json:"next_send_at"`
	LastSentAt *time.Time `json:"last_sent_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func NewScheduleDTO(s models.Schedule) ScheduleDTO {
	return ScheduleDTO{
		ID:         s.ID,
		OwnerID:    s.OwnerID,
		PropertyID: s.PropertyID,
		Name:       s.Name,
		Frequency:  s.Frequency.String(),
		DayOfWeek:  s.DayOfWeek,
		DayOfMonth: s.DayOfMonth,
		SendHour:   s.SendHour,
		SendMinute: s.SendMinute,
		Timezone:   s.Timezone,
		Recipients: nonNil(s.Recipients.Clone()),
		Metrics:    nonNil(s.Metrics.Clone()),
		Status:     s.Status.String(),
		NextSendAt: s.NextSendAt,
		LastSentAt: s.LastSentAt,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}

// DeliveryDTO is one row of a schedule's delivery history.
type DeliveryDTO struct {
	ID          uuid.UUID  `json:"id"`
	ExecutionID uuid.UUID  `json:"execution_id"`
	Recipient   string     `json:"recipient"`
	Status      string     `json:"status"`
	Error       *string    `json:"error,omitempty"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func NewDeliveryDTO(a models.DeliveryAttempt) DeliveryDTO {
	return DeliveryDTO{
		ID:          a.ID,
		ExecutionID: a.ExecutionID,
		Recipient:   a.Recipient,
		Status:      a.Status.String(),
		Error:       a.Error,
		SentAt:      a.SentAt,
		CreatedAt:   a.CreatedAt,
	}
}

// TestSendInput optionally overrides the recipients of a test send.
type TestSendInput struct {
	Recipients []string `json:"recipients,omitempty" validate:"omitempty,max=25,dive,required,email"`
}

// TestSendResult reports what a test send did.
type TestSendResult struct {
	ExecutionID uuid.UUID `json:"execution_id"`
	Outcome     string    `json:"outcome"`
	Sent        int       `json:"sent"`
	Failed      int       `json:"failed"`
	Reason      string    `json:"reason,omitempty"`
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
