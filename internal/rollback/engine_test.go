package rollback

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/leasewise/leasewise-backend/internal/deliveries"
	"github.com/leasewise/leasewise-backend/internal/preferences"
	"github.com/leasewise/leasewise-backend/pkg/db/dbtest"
	"github.com/leasewise/leasewise-backend/pkg/db/models"
	"github.com/leasewise/leasewise-backend/pkg/enums"
	"github.com/leasewise/leasewise-backend/pkg/logger"
)

type fakeSchedules map[uuid.UUID]uuid.UUID

func (f fakeSchedules) FindByID(_ context.Context, id uuid.UUID) (*models.Schedule, error) {
	owner, ok := f[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.Schedule{ID: id, OwnerID: owner}, nil
}

type harness struct {
	engine     *Engine
	repo       Repository
	prefs      preferences.Service
	deliveries deliveries.Repository
	schedules  fakeSchedules
	clock      time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn := dbtest.Open(t)
	h := &harness{
		repo:       NewRepository(conn),
		deliveries: deliveries.NewRepository(conn),
		schedules:  fakeSchedules{},
		clock:      time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
	}
	prefs, err := preferences.NewService(preferences.ServiceParams{
		Repo: preferences.NewRepository(conn),
		Now:  func() time.Time { return h.clock },
	})
	require.NoError(t, err)
	h.prefs = prefs

	engine, err := NewEngine(EngineParams{
		Repo:        h.repo,
		Failures:    h.deliveries,
		Schedules:   h.schedules,
		Preferences: prefs,
		Threshold:   3,
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	h.engine = engine
	return h
}

func (h *harness) save(t *testing.T, at time.Time, metrics ...string) *models.PreferenceVersion {
	t.Helper()
	h.clock = at
	v, err := h.prefs.Save(context.Background(), h.ownerOf(t), preferences.SnapshotInput{Metrics: metrics, Frequency: "monthly", SendHour: 9})
	require.NoError(t, err)
	return v
}

func (h *harness) ownerOf(t *testing.T) uuid.UUID {
	t.Helper()
	for _, owner := range h.schedules {
		return owner
	}
	t.Fatalf("no schedule registered")
	return uuid.Nil
}

func (h *harness) fail(t *testing.T, scheduleID uuid.UUID, reason enums.FailureReason, start time.Time, n int) models.FailureRecord {
	t.Helper()
	var rec *models.FailureRecord
	var err error
	for i := 0; i < n; i++ {
		rec, err = h.deliveries.RecordFailure(context.Background(), scheduleID, reason, "boom", start.Add(time.Duration(i)*6*time.Hour))
		require.NoError(t, err)
	}
	return *rec
}

func TestEvaluateSuggestsVersionBeforeStreak(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	scheduleID, owner := uuid.New(), uuid.New()
	h.schedules[scheduleID] = owner

	good := h.save(t, time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC), "income")
	h.save(t, time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC), "income", "occupancy_rate", "new_leases")
	streakStart := time.Date(2026, 4, 5, 8, 0, 0, 0, time.UTC)
	rec := h.fail(t, scheduleID, enums.FailureReasonPDFGeneration, streakStart, 4)

	now := time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC)
	created, err := h.engine.Evaluate(ctx, now)
	require.NoError(t, err)
	require.Len(t, created, 1)
	got := created[0]
	require.Equal(t, owner, got.OwnerID)
	require.Equal(t, rec.ID, got.FailureRecordID)
	require.Equal(t, good.ID, got.SuggestedVersionID)
	require.Equal(t, 60+5+15, got.Confidence)
	require.Equal(t, enums.SuggestionStatusPending, got.Status)
	require.Contains(t, got.Reason, "version 1")

	again, err := h.engine.Evaluate(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	require.Empty(t, again)
}

func TestEvaluateOffersPreviousVersionWhenNothingChanged(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	scheduleID, owner := uuid.New(), uuid.New()
	h.schedules[scheduleID] = owner

	older := h.save(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), "income")
	h.save(t, time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC), "income")
	h.fail(t, scheduleID, enums.FailureReasonUnknown, time.Date(2026, 4, 5, 8, 0, 0, 0, time.UTC), 3)

	created, err := h.engine.Evaluate(ctx, time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.Equal(t, older.ID, created[0].SuggestedVersionID)
	require.Equal(t, 25, created[0].Confidence)
}

func TestEvaluateSkipsBelowThresholdAndDropsZeroConfidence(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	short, network := uuid.New(), uuid.New()
	owner := uuid.New()
	h.schedules[short] = owner
	h.schedules[network] = owner

	h.save(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), "income")
	h.save(t, time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC), "outstanding")
	h.fail(t, short, enums.FailureReasonPDFGeneration, time.Date(2026, 4, 5, 8, 0, 0, 0, time.UTC), 2)
	// 25 - 30 clamps to zero.
	h.fail(t, network, enums.FailureReasonNetworkError, time.Date(2026, 4, 5, 8, 0, 0, 0, time.UTC), 3)

	created, err := h.engine.Evaluate(ctx, time.Date(2026, 4, 12, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Empty(t, created)
}

func TestConfidence(t *testing.T) {
	cases := []struct {
		name          string
		reason        enums.FailureReason
		failures      int
		changedAfter  bool
		metricsDiffer bool
		want          int
	}{
		{"changed pdf with metric drift", enums.FailureReasonPDFGeneration, 3, true, true, 75},
		{"stale unknown", enums.FailureReasonUnknown, 3, false, false, 25},
		{"streak bonus capped", enums.FailureReasonPDFGeneration, 20, true, false, 80},
		{"delivery penalty", enums.FailureReasonEmailDelivery, 4, true, true, 45},
		{"invalid recipient", enums.FailureReasonInvalidRecipient, 3, false, false, 5},
		{"network clamps", enums.FailureReasonNetworkError, 3, false, false, 0},
		{"all bonuses", enums.FailureReasonUnknown, 100, true, true, 95},
	}
	for _, tc := range cases {
		if got := Confidence(tc.reason, tc.failures, 3, tc.changedAfter, tc.metricsDiffer); got != tc.want {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.want, got)
		}
	}
}

func TestPickVersion(t *testing.T) {
	start := time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC)
	v := func(n int, at time.Time) preferences.VersionDTO {
		return preferences.VersionDTO{ID: uuid.New(), VersionNumber: n, CreatedAt: at}
	}
	if got, _ := pickVersion(nil, start); got != nil {
		t.Fatalf("expected no candidate without versions")
	}
	only := []preferences.VersionDTO{v(1, start.Add(-time.Hour))}
	if got, _ := pickVersion(only, start); got != nil {
		t.Fatalf("expected no candidate with a single old version")
	}
	allNewer := []preferences.VersionDTO{v(2, start.Add(2*time.Hour)), v(1, start.Add(time.Hour))}
	if got, _ := pickVersion(allNewer, start); got != nil {
		t.Fatalf("expected no candidate when every version is newer")
	}
	mixed := []preferences.VersionDTO{v(3, start.Add(time.Hour)), v(2, start.Add(-time.Hour)), v(1, start.Add(-2*time.Hour))}
	got, changed := pickVersion(mixed, start)
	if got == nil || got.VersionNumber != 2 || !changed {
		t.Fatalf("expected version 2 after change, got %+v changed=%v", got, changed)
	}
}
