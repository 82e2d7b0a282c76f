package preferences

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/leasewise/leasewise-backend/internal/cadence"
	"github.com/leasewise/leasewise-backend/pkg/db"
	"github.com/leasewise/leasewise-backend/pkg/db/models"
	"github.com/leasewise/leasewise-backend/pkg/enums"
	pkgerrors "github.com/leasewise/leasewise-backend/pkg/errors"
	"github.com/leasewise/leasewise-backend/pkg/logger"
	"github.com/leasewise/leasewise-backend/pkg/validation"
)

const (
	DefaultMaxVersions = 20
	versionAttempts    = 3
	versionIndex       = "ux_preference_versions_owner_number"
)

// Service manages the live preferences and their version history.
type Service interface {
	Get(ctx context.Context, ownerID uuid.UUID) (*PreferencesDTO, error)
	Save(ctx context.Context, ownerID uuid.UUID, input SnapshotInput) (*models.PreferenceVersion, error)
	SaveVersion(ctx context.Context, ownerID uuid.UUID, snapshot models.PreferenceSnapshot, description *string) (*models.PreferenceVersion, error)
	Restore(ctx context.Context, ownerID, versionID uuid.UUID) (*models.PreferenceVersion, error)
	ListVersions(ctx context.Context, ownerID uuid.UUID) ([]VersionDTO, error)
	DiffVersions(ctx context.Context, ownerID, fromID, toID uuid.UUID) (*DiffDTO, error)
}

type ServiceParams struct {
	Repo        Repository
	MaxVersions int
	Logger      *logger.Logger
	Now         func() time.Time
}

type service struct {
	repo        Repository
	maxVersions int
	logg        *logger.Logger
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "preferences repository required")
	}
	maxVersions := params.MaxVersions
	if maxVersions <= 0 {
		maxVersions = DefaultMaxVersions
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:        params.Repo,
		maxVersions: maxVersions,
		logg:        params.Logger,
		now:         now,
	}, nil
}

func (s *service) Get(ctx context.Context, ownerID uuid.UUID) (*PreferencesDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	live, err := s.repo.GetLive(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &PreferencesDTO{Snapshot: DefaultSnapshot()}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load preferences")
	}
	updated := live.UpdatedAt
	return &PreferencesDTO{Snapshot: live.Snapshot, UpdatedAt: &updated}, nil
}

// Save overwrites the live record and appends a version in one transaction.
func (s *service) Save(ctx context.Context, ownerID uuid.UUID, input SnapshotInput) (*models.PreferenceVersion, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	snapshot, err := snapshotOf(input)
	if err != nil {
		return nil, err
	}
	return s.write(ctx, ownerID, snapshot, input.Description, true)
}

// SaveVersion appends a version without touching the live record.
func (s *service) SaveVersion(ctx context.Context, ownerID uuid.UUID, snapshot models.PreferenceSnapshot, description *string) (*models.PreferenceVersion, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	return s.write(ctx, ownerID, snapshot, description, false)
}

// Restore makes the target version live again and records that as a new
// version. The target itself is left untouched.
func (s *service) Restore(ctx context.Context, ownerID, versionID uuid.UUID) (*models.PreferenceVersion, error) {
	target, err := s.findVersion(ctx, ownerID, versionID)
	if err != nil {
		return nil, err
	}
	description := fmt.Sprintf("Restored from version %d", target.VersionNumber)
	version, err := s.write(ctx, ownerID, target.Snapshot, &description, true)
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"owner_id":      ownerID.String(),
			"restored_from": target.VersionNumber,
			"version":       version.VersionNumber,
		})
		s.logg.Info(logCtx, "preferences restored")
	}
	return version, nil
}

func (s *service) ListVersions(ctx context.Context, ownerID uuid.UUID) ([]VersionDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	rows, err := s.repo.ListVersions(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list preference versions")
	}
	items := make([]VersionDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, NewVersionDTO(row))
	}
	return items, nil
}

func (s *service) DiffVersions(ctx context.Context, ownerID, fromID, toID uuid.UUID) (*DiffDTO, error) {
	from, err := s.findVersion(ctx, ownerID, fromID)
	if err != nil {
		return nil, err
	}
	to, err := s.findVersion(ctx, ownerID, toID)
	if err != nil {
		return nil, err
	}
	return &DiffDTO{
		From:   from.VersionNumber,
		To:     to.VersionNumber,
		Change: DiffSnapshots(from.Snapshot, to.Snapshot),
	}, nil
}

func (s *service) findVersion(ctx context.Context, ownerID, id uuid.UUID) (*models.PreferenceVersion, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "version id required")
	}
	v, err := s.repo.FindVersion(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "preference version not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load preference version")
	}
	return v, nil
}

// write appends a version numbered max+1, optionally replacing the live record
// in the same transaction. A concurrent writer taking the same number trips
// the unique index and the whole transaction is retried.
func (s *service) write(ctx context.Context, ownerID uuid.UUID, snapshot models.PreferenceSnapshot, description *string, live bool) (*models.PreferenceVersion, error) {
	var (
		version *models.PreferenceVersion
		err     error
	)
	for attempt := 0; attempt < versionAttempts; attempt++ {
		version = nil
		err = s.repo.Transaction(ctx, func(tx Repository) error {
			now := s.now().UTC()
			if live {
				if err := tx.UpsertLive(ctx, &models.ReportPreference{OwnerID: ownerID, Snapshot: snapshot, UpdatedAt: now}); err != nil {
					return err
				}
			}
			max, err := tx.MaxVersionNumber(ctx, ownerID)
			if err != nil {
				return err
			}
			v := &models.PreferenceVersion{
				OwnerID:       ownerID,
				VersionNumber: max + 1,
				Snapshot:      snapshot,
				Description:   description,
				CreatedAt:     now,
			}
			if err := tx.CreateVersion(ctx, v); err != nil {
				return err
			}
			version = v
			return nil
		})
		if err == nil || !db.IsUniqueViolation(err, versionIndex) {
			break
		}
	}
	if err != nil {
		if db.IsUniqueViolation(err, versionIndex) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "preference version number taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save preference version")
	}

	if _, err := s.repo.PruneVersions(ctx, ownerID, s.maxVersions); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithField(ctx, "owner_id", ownerID.String()), "prune preference versions", err)
	}
	return version, nil
}

func snapshotOf(input SnapshotInput) (models.PreferenceSnapshot, error) {
	input.Frequency = strings.ToLower(strings.TrimSpace(input.Frequency))
	input.Timezone = strings.TrimSpace(input.Timezone)
	if input.Timezone == "" {
		input.Timezone = "UTC"
	}
	if err := validation.Struct(input); err != nil {
		return models.PreferenceSnapshot{}, err
	}
	frequency, err := enums.ParseFrequency(input.Frequency)
	if err != nil {
		return models.PreferenceSnapshot{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid frequency")
	}

	metrics := make([]string, 0, len(input.Metrics))
	seen := map[string]bool{}
	for _, raw := range input.Metrics {
		metric, err := enums.ParseReportMetric(strings.ToLower(strings.TrimSpace(raw)))
		if err != nil {
			return models.PreferenceSnapshot{}, pkgerrors.Messagef(pkgerrors.CodeValidation, "unknown metric %q", raw)
		}
		if !seen[metric.String()] {
			seen[metric.String()] = true
			metrics = append(metrics, metric.String())
		}
	}

	spec := cadence.Spec{
		Frequency:  frequency,
		DayOfWeek:  input.DayOfWeek,
		DayOfMonth: input.DayOfMonth,
		Hour:       input.SendHour,
		Minute:     input.SendMinute,
	}
	if spec.Location, err = cadence.LoadLocation(input.Timezone); err != nil {
		return models.PreferenceSnapshot{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid timezone")
	}
	if err := spec.Validate(); err != nil {
		return models.PreferenceSnapshot{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cadence")
	}

	var recipients []string
	for _, r := range input.Recipients {
		recipients = append(recipients, strings.ToLower(strings.TrimSpace(r)))
	}
	return models.PreferenceSnapshot{
		Metrics:    metrics,
		Frequency:  frequency,
		SendHour:   input.SendHour,
		SendMinute: input.SendMinute,
		DayOfWeek:  input.DayOfWeek,
		DayOfMonth: input.DayOfMonth,
		Timezone:   input.Timezone,
		Recipients: recipients,
	}, nil
}
