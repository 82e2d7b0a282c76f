package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/leasewise/leasewise-backend/internal/reports"
	"github.com/leasewise/leasewise-backend/internal/sweeps"
	"github.com/leasewise/leasewise-backend/pkg/db/models"
	"github.com/leasewise/leasewise-backend/pkg/logger"
)

const (
	JobReportDispatch      = "report-dispatch"
	JobOverdueRentSweep    = "overdue-rent-sweep"
	JobLeaseExpiration     = "lease-expiration-sweep"
	JobRollbackSuggestions = "rollback-suggestions"
)

// DueFinder lists schedules ready to send.
type DueFinder interface {
	FindDue(ctx context.Context, now time.Time) ([]models.Schedule, error)
}

// ReportExecutor runs one scheduled report.
type ReportExecutor interface {
	Execute(ctx context.Context, scheduleID uuid.UUID) (reports.Result, error)
}

// Sweep is a notification sweep evaluated at now.
type Sweep interface {
	Run(ctx context.Context, now time.Time) (sweeps.Summary, error)
}

// SuggestionEvaluator turns failure streaks into rollback suggestions.
type SuggestionEvaluator interface {
	Evaluate(ctx context.Context, now time.Time) ([]models.RollbackSuggestion, error)
}

type ReportDispatchJobParams struct {
	Schedules DueFinder
	Executor  ReportExecutor
	Logger    *logger.Logger
	Now       func() time.Time
}

// ReportDispatchJob executes every due schedule. Each execution claims its
// schedule first, so overlapping scans never send the same period twice.
type ReportDispatchJob struct {
	schedules DueFinder
	executor  ReportExecutor
	logg      *logger.Logger
	now       func() time.Time
}

func NewReportDispatchJob(params ReportDispatchJobParams) (*ReportDispatchJob, error) {
	if params.Schedules == nil {
		return nil, errors.New("schedule finder required")
	}
	if params.Executor == nil {
		return nil, errors.New("report executor required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &ReportDispatchJob{
		schedules: params.Schedules,
		executor:  params.Executor,
		logg:      params.Logger,
		now:       now,
	}, nil
}

func (j *ReportDispatchJob) Name() string { return JobReportDispatch }

func (j *ReportDispatchJob) Run(ctx context.Context) error {
	due, err := j.schedules.FindDue(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("find due schedules: %w", err)
	}
	counts := map[reports.Outcome]int{}
	var errs error
	for _, schedule := range due {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		res, err := j.executor.Execute(ctx, schedule.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("schedule %s: %w", schedule.ID, err))
			continue
		}
		counts[res.Outcome]++
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"due":       len(due),
		"delivered": counts[reports.OutcomeDelivered],
		"partial":   counts[reports.OutcomePartial],
		"failed":    counts[reports.OutcomeFailed],
		"skipped":   counts[reports.OutcomeSkipped],
	}), "report dispatch summary")
	return errs
}

// SweepJob adapts a notification sweep to a Job.
type SweepJob struct {
	name  string
	sweep Sweep
	now   func() time.Time
}

func NewSweepJob(name string, sweep Sweep, now func() time.Time) (*SweepJob, error) {
	if name == "" {
		return nil, errors.New("job name required")
	}
	if sweep == nil {
		return nil, errors.New("sweep required")
	}
	if now == nil {
		now = time.Now
	}
	return &SweepJob{name: name, sweep: sweep, now: now}, nil
}

func (j *SweepJob) Name() string { return j.name }

func (j *SweepJob) Run(ctx context.Context) error {
	_, err := j.sweep.Run(ctx, j.now().UTC())
	return err
}

// RollbackJob evaluates open failure streaks for rollback suggestions.
type RollbackJob struct {
	engine SuggestionEvaluator
	now    func() time.Time
}

func NewRollbackJob(engine SuggestionEvaluator, now func() time.Time) (*RollbackJob, error) {
	if engine == nil {
		return nil, errors.New("suggestion evaluator required")
	}
	if now == nil {
		now = time.Now
	}
	return &RollbackJob{engine: engine, now: now}, nil
}

func (j *RollbackJob) Name() string { return JobRollbackSuggestions }

func (j *RollbackJob) Run(ctx context.Context) error {
	_, err := j.engine.Evaluate(ctx, j.now().UTC())
	return err
}
