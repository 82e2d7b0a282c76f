package schedules

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leasewise/leasewise-backend/internal/cadence"
	"github.com/leasewise/leasewise-backend/internal/reports"
	"github.com/leasewise/leasewise-backend/pkg/db/models"
	dbtypes "github.com/leasewise/leasewise-backend/pkg/db/types"
	"github.com/leasewise/leasewise-backend/pkg/enums"
	pkgerrors "github.com/leasewise/leasewise-backend/pkg/errors"
	"github.com/leasewise/leasewise-backend/pkg/pagination"
	"github.com/leasewise/leasewise-backend/pkg/validation"
)

// Service exposes the owner-facing schedule operations.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, def Definition) (*models.Schedule, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Schedule, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, input UpdateInput) (*models.Schedule, error)
	Pause(ctx context.Context, ownerID, id uuid.UUID) (*models.Schedule, error)
	Resume(ctx context.Context, ownerID, id uuid.UUID) (*models.Schedule, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	TestSend(ctx context.Context, ownerID, id uuid.UUID, input TestSendInput) (*TestSendResult, error)
	Deliveries(ctx context.Context, ownerID, id uuid.UUID, params pagination.Params) (*DeliveriesResult, error)
}

// PropertyChecker confirms scope references belong to the owner.
type PropertyChecker interface {
	OwnsProperty(ctx context.Context, ownerID, propertyID uuid.UUID) (bool, error)
}

// AttemptLister reads delivery history.
type AttemptLister interface {
	ListAttempts(ctx context.Context, scheduleID uuid.UUID, params pagination.Params) ([]models.DeliveryAttempt, string, error)
}

// TestSender sends a report immediately without advancing the schedule.
type TestSender interface {
	SendNow(ctx context.Context, scheduleID uuid.UUID, recipients []string) (reports.Result, error)
}

// ListParams filters and paginates an owner's schedules.
type ListParams struct {
	OwnerID uuid.UUID
	Status  string
	Limit   int
	Cursor  string
}

type ListResult struct {
	Items  []ScheduleDTO `json:"items"`
	Cursor string        `json:"cursor"`
}

type DeliveriesResult struct {
	Items  []DeliveryDTO `json:"items"`
	Cursor string        `json:"cursor"`
}

// ServiceParams wires the schedules service.
type ServiceParams struct {
	Repo       Repository
	Properties PropertyChecker
	Attempts   AttemptLister
	Sender     TestSender
	Now        func() time.Time
}

type service struct {
	repo       Repository
	properties PropertyChecker
	attempts   AttemptLister
	sender     TestSender
	now        func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "schedules repository required")
	}
	if params.Properties == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "property checker required")
	}
	if params.Attempts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "delivery attempts reader required")
	}
	if params.Sender == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "test sender required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:       params.Repo,
		properties: params.Properties,
		attempts:   params.Attempts,
		sender:     params.Sender,
		now:        now,
	}, nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, def Definition) (*models.Schedule, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	schedule := &models.Schedule{OwnerID: ownerID, Status: enums.ScheduleStatusActive}
	if err := s.applyDefinition(ctx, schedule, def); err != nil {
		return nil, err
	}
	if err := s.reschedule(schedule); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create schedule")
	}
	return schedule, nil
}

func (s *service) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Schedule, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "schedule id required")
	}
	schedule, err := s.repo.FindForOwner(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "schedule not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load schedule")
	}
	return schedule, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.OwnerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	query := ListQuery{OwnerID: params.OwnerID, Params: pagination.Params{Limit: params.Limit, Cursor: params.Cursor}}
	if strings.TrimSpace(params.Status) != "" {
		status, err := enums.ParseScheduleStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		query.Status = &status
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, next, err := s.repo.ListByOwner(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list schedules")
	}
	items := make([]ScheduleDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, NewScheduleDTO(row))
	}
	return &ListResult{Items: items, Cursor: next}, nil
}

// Update applies input to an active or paused schedule. A cadence change on an
// active schedule recomputes the next send from now.
func (s *service) Update(ctx context.Context, ownerID, id uuid.UUID, input UpdateInput) (*models.Schedule, error) {
	schedule, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if schedule.Status == enums.ScheduleStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "completed schedules cannot be edited")
	}

	change := Change{From: schedule.Status}
	before := cadenceKey(schedule)
	if err := s.applyDefinition(ctx, schedule, input.apply(definitionOf(schedule))); err != nil {
		return nil, err
	}
	if schedule.Status == enums.ScheduleStatusActive && cadenceKey(schedule) != before {
		if err := s.reschedule(schedule); err != nil {
			return nil, err
		}
		change.Reschedule = true
	}
	if err := s.write(ctx, schedule, change, "update schedule"); err != nil {
		return nil, err
	}
	return schedule, nil
}

func (s *service) Pause(ctx context.Context, ownerID, id uuid.UUID) (*models.Schedule, error) {
	schedule, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	switch schedule.Status {
	case enums.ScheduleStatusPaused:
		return schedule, nil
	case enums.ScheduleStatusCompleted:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "completed schedules cannot be paused")
	}
	change := Change{From: schedule.Status}
	schedule.Status = enums.ScheduleStatusPaused
	if err := s.write(ctx, schedule, change, "pause schedule"); err != nil {
		return nil, err
	}
	return schedule, nil
}

// Resume reactivates a paused schedule with a next send computed from now, so
// sends missed while paused are not replayed.
func (s *service) Resume(ctx context.Context, ownerID, id uuid.UUID) (*models.Schedule, error) {
	schedule, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	switch schedule.Status {
	case enums.ScheduleStatusActive:
		return schedule, nil
	case enums.ScheduleStatusCompleted:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "completed schedules cannot be resumed")
	}
	change := Change{From: schedule.Status, Reschedule: true}
	schedule.Status = enums.ScheduleStatusActive
	if err := s.reschedule(schedule); err != nil {
		return nil, err
	}
	if err := s.write(ctx, schedule, change, "resume schedule"); err != nil {
		return nil, err
	}
	return schedule, nil
}

// Delete retires the schedule. The row and its history are kept.
func (s *service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	schedule, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if schedule.Status == enums.ScheduleStatusCompleted {
		return nil
	}
	change := Change{From: schedule.Status}
	schedule.Status = enums.ScheduleStatusCompleted
	return s.write(ctx, schedule, change, "delete schedule")
}

// write persists an owner change. A row that moved on since it was read
// (another status transition, or a delivery in flight during a reschedule)
// is a conflict the caller can retry.
func (s *service) write(ctx context.Context, schedule *models.Schedule, change Change, op string) error {
	ok, err := s.repo.Update(ctx, schedule, change)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeScheduleBusy, "schedule changed while saving; retry")
	}
	stored, err := s.repo.FindByID(ctx, schedule.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
	}
	*schedule = *stored
	return nil
}

func (s *service) TestSend(ctx context.Context, ownerID, id uuid.UUID, input TestSendInput) (*TestSendResult, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	schedule, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	recipients, err := normaliseRecipients(input.Recipients)
	if err != nil {
		return nil, err
	}

	res, err := s.sender.SendNow(ctx, schedule.ID, recipients)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send test report")
	}
	return &TestSendResult{
		ExecutionID: res.ExecutionID,
		Outcome:     string(res.Outcome),
		Sent:        res.Sent,
		Failed:      res.Failed,
		Reason:      res.FailureReason.String(),
	}, nil
}

func (s *service) Deliveries(ctx context.Context, ownerID, id uuid.UUID, params pagination.Params) (*DeliveriesResult, error) {
	schedule, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.attempts.ListAttempts(ctx, schedule.ID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deliveries")
	}
	items := make([]DeliveryDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, NewDeliveryDTO(row))
	}
	return &DeliveriesResult{Items: items, Cursor: next}, nil
}

// applyDefinition validates def and copies it onto schedule.
func (s *service) applyDefinition(ctx context.Context, schedule *models.Schedule, def Definition) error {
	def.Name = strings.TrimSpace(def.Name)
	def.Frequency = strings.ToLower(strings.TrimSpace(def.Frequency))
	def.Timezone = strings.TrimSpace(def.Timezone)
	if def.Timezone == "" {
		def.Timezone = "UTC"
	}
	if err := validation.Struct(def); err != nil {
		return err
	}

	frequency, err := enums.ParseFrequency(def.Frequency)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid frequency")
	}
	recipients, err := normaliseRecipients(def.Recipients)
	if err != nil {
		return err
	}
	metrics, err := normaliseMetrics(def.Metrics)
	if err != nil {
		return err
	}
	spec := cadence.Spec{
		Frequency:  frequency,
		DayOfWeek:  def.DayOfWeek,
		DayOfMonth: def.DayOfMonth,
		Hour:       def.SendHour,
		Minute:     def.SendMinute,
	}
	if spec.Location, err = cadence.LoadLocation(def.Timezone); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid timezone").
			WithDetails(map[string]string{"timezone": "must be an IANA time zone"})
	}
	if err := spec.Validate(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cadence")
	}

	if def.PropertyID != nil {
		owned, err := s.properties.OwnsProperty(ctx, schedule.OwnerID, *def.PropertyID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check property")
		}
		if !owned {
			return pkgerrors.New(pkgerrors.CodeNotFound, "property not found")
		}
	}

	schedule.Name = def.Name
	schedule.PropertyID = def.PropertyID
	schedule.Frequency = frequency
	schedule.DayOfWeek = def.DayOfWeek
	schedule.DayOfMonth = def.DayOfMonth
	schedule.SendHour = def.SendHour
	schedule.SendMinute = def.SendMinute
	schedule.Timezone = def.Timezone
	schedule.Recipients = recipients
	schedule.Metrics = metrics
	return nil
}

func (s *service) reschedule(schedule *models.Schedule) error {
	spec, err := cadence.SpecFromSchedule(*schedule)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cadence")
	}
	next, err := cadence.NextFire(s.now(), spec)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "no next send time")
	}
	schedule.NextSendAt = next.UTC()
	return nil
}

// cadenceKey captures the fields that determine when a schedule fires.
func cadenceKey(s *models.Schedule) string {
	return fmt.Sprintf("%s|%s|%s|%02d:%02d|%s",
		s.Frequency, optional(s.DayOfWeek), optional(s.DayOfMonth), s.SendHour, s.SendMinute, s.Timezone)
}

func optional(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

// normaliseRecipients lowercases and de-duplicates addresses, keeping order.
func normaliseRecipients(in []string) (dbtypes.StringList, error) {
	if in == nil {
		return nil, nil
	}
	seen := make(map[string]bool, len(in))
	out := make(dbtypes.StringList, 0, len(in))
	for _, raw := range in {
		addr := strings.ToLower(strings.TrimSpace(raw))
		if validation.Var(addr, "required,email") != nil {
			return nil, pkgerrors.Messagef(pkgerrors.CodeValidation, "invalid recipient %q", raw)
		}
		if seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, addr)
	}
	return out, nil
}

func normaliseMetrics(in []string) (dbtypes.StringList, error) {
	seen := make(map[enums.ReportMetric]bool, len(in))
	out := make(dbtypes.StringList, 0, len(in))
	for _, raw := range in {
		metric, err := enums.ParseReportMetric(strings.TrimSpace(raw))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid metric").
				WithDetails(map[string]string{"metrics": "unknown metric " + raw})
		}
		if seen[metric] {
			continue
		}
		seen[metric] = true
		out = append(out, metric.String())
	}
	return out, nil
}
