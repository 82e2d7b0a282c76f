package rollback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/leasewise/leasewise-backend/internal/preferences"
	"github.com/leasewise/leasewise-backend/pkg/db/models"
	"github.com/leasewise/leasewise-backend/pkg/enums"
	"github.com/leasewise/leasewise-backend/pkg/logger"
)

const (
	DefaultFailureThreshold = 3

	baseConfidenceChanged = 60
	baseConfidenceStale   = 25
	perExtraFailure       = 5
	maxStreakBonus        = 20
	metricsChangedBonus   = 15
	deliveryPenalty       = 20
	networkPenalty        = 30
)

// FailureSource lists open failure streaks.
type FailureSource interface {
	ListOpenFailures(ctx context.Context, minCount int) ([]models.FailureRecord, error)
}

// ScheduleLookup resolves the owner of a failing schedule.
type ScheduleLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Schedule, error)
}

// PreferenceReader exposes the live preferences and version history.
type PreferenceReader interface {
	Get(ctx context.Context, ownerID uuid.UUID) (*preferences.PreferencesDTO, error)
	ListVersions(ctx context.Context, ownerID uuid.UUID) ([]preferences.VersionDTO, error)
}

type EngineParams struct {
	Repo        Repository
	Failures    FailureSource
	Schedules   ScheduleLookup
	Preferences PreferenceReader
	Threshold   int
	Logger      *logger.Logger
}

// Engine proposes preference rollbacks for schedules that keep failing.
type Engine struct {
	repo      Repository
	failures  FailureSource
	schedules ScheduleLookup
	prefs     PreferenceReader
	threshold int
	logg      *logger.Logger
}

func NewEngine(params EngineParams) (*Engine, error) {
	if params.Repo == nil {
		return nil, errors.New("rollback repository required")
	}
	if params.Failures == nil {
		return nil, errors.New("failure source required")
	}
	if params.Schedules == nil {
		return nil, errors.New("schedule lookup required")
	}
	if params.Preferences == nil {
		return nil, errors.New("preference reader required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	threshold := params.Threshold
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	return &Engine{
		repo:      params.Repo,
		failures:  params.Failures,
		schedules: params.Schedules,
		prefs:     params.Preferences,
		threshold: threshold,
		logg:      params.Logger,
	}, nil
}

// Evaluate creates at most one suggestion per open failure streak that has
// reached the threshold. A streak that fails to evaluate does not stop others.
func (e *Engine) Evaluate(ctx context.Context, now time.Time) ([]models.RollbackSuggestion, error) {
	open, err := e.failures.ListOpenFailures(ctx, e.threshold)
	if err != nil {
		return nil, fmt.Errorf("list open failures: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(open))
	for _, rec := range open {
		ids = append(ids, rec.ID)
	}
	existing, err := e.repo.SuggestedFailures(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load existing suggestions: %w", err)
	}

	var (
		created []models.RollbackSuggestion
		errs    error
	)
	for _, rec := range open {
		if existing[rec.ID] {
			continue
		}
		suggestion, err := e.evaluate(ctx, rec)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failure %s: %w", rec.ID, err))
			continue
		}
		if suggestion == nil {
			continue
		}
		suggestion.CreatedAt = now.UTC()
		ok, err := e.repo.Create(ctx, suggestion)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failure %s: create suggestion: %w", rec.ID, err))
			continue
		}
		if !ok {
			continue
		}
		created = append(created, *suggestion)

		logCtx := e.logg.WithFields(ctx, map[string]any{
			"owner_id":          suggestion.OwnerID.String(),
			"schedule_id":       rec.ScheduleID.String(),
			"failure_record_id": rec.ID.String(),
			"confidence":        suggestion.Confidence,
		})
		e.logg.Info(logCtx, "rollback suggested")
	}
	return created, errs
}

func (e *Engine) evaluate(ctx context.Context, rec models.FailureRecord) (*models.RollbackSuggestion, error) {
	schedule, err := e.schedules.FindByID(ctx, rec.ScheduleID)
	if err != nil {
		return nil, fmt.Errorf("load schedule: %w", err)
	}
	versions, err := e.prefs.ListVersions(ctx, schedule.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	candidate, changedAfter := pickVersion(versions, rec.FirstFailedAt)
	if candidate == nil {
		return nil, nil
	}
	current, err := e.prefs.Get(ctx, schedule.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}

	change := preferences.DiffSnapshots(candidate.Snapshot, current.Snapshot)
	metricsDiffer := len(change.MetricsAdded) > 0 || len(change.MetricsRemoved) > 0
	confidence := Confidence(rec.Reason, rec.FailureCount, e.threshold, changedAfter, metricsDiffer)
	if confidence <= 0 {
		return nil, nil
	}
	return &models.RollbackSuggestion{
		OwnerID:            schedule.OwnerID,
		FailureRecordID:    rec.ID,
		SuggestedVersionID: candidate.ID,
		Reason:             reasonText(rec, candidate.VersionNumber, changedAfter),
		Confidence:         confidence,
		Status:             enums.SuggestionStatusPending,
	}, nil
}

// pickVersion chooses the version to roll back to given versions newest
// first. When preferences changed after the streak began, the newest version
// from before the streak is the candidate. Otherwise the version before the
// newest is offered, and changedAfter is false.
func pickVersion(versions []preferences.VersionDTO, firstFailedAt time.Time) (*preferences.VersionDTO, bool) {
	if len(versions) == 0 {
		return nil, false
	}
	if !versions[0].CreatedAt.After(firstFailedAt) {
		if len(versions) < 2 {
			return nil, false
		}
		return &versions[1], false
	}
	for i := range versions {
		if versions[i].CreatedAt.Before(firstFailedAt) {
			return &versions[i], true
		}
	}
	return nil, false
}

// Confidence scores a suggestion from 0 to 100.
func Confidence(reason enums.FailureReason, failures, threshold int, changedAfter, metricsDiffer bool) int {
	score := baseConfidenceStale
	if changedAfter {
		score = baseConfidenceChanged
	}
	if extra := failures - threshold; extra > 0 {
		score += min(extra*perExtraFailure, maxStreakBonus)
	}
	switch reason {
	case enums.FailureReasonPDFGeneration, enums.FailureReasonUnknown:
		if metricsDiffer {
			score += metricsChangedBonus
		}
	case enums.FailureReasonEmailDelivery, enums.FailureReasonInvalidRecipient:
		score -= deliveryPenalty
	case enums.FailureReasonNetworkError:
		score -= networkPenalty
	}
	return max(0, min(score, 100))
}

func reasonText(rec models.FailureRecord, version int, changedAfter bool) string {
	since := rec.FirstFailedAt.UTC().Format("2006-01-02 15:04 MST")
	if changedAfter {
		return fmt.Sprintf("%d consecutive %s failures since %s, after preferences changed; version %d is the last state before the failures began",
			rec.FailureCount, rec.Reason, since, version)
	}
	return fmt.Sprintf("%d consecutive %s failures since %s; version %d is the previous saved state",
		rec.FailureCount, rec.Reason, since, version)
}
