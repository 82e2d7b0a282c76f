package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/leasewise/leasewise-backend/internal/deliveries"
	"github.com/leasewise/leasewise-backend/internal/dispatch"
	"github.com/leasewise/leasewise-backend/internal/rentals"
	"github.com/leasewise/leasewise-backend/pkg/db/dbtest"
	"github.com/leasewise/leasewise-backend/pkg/db/models"
	"github.com/leasewise/leasewise-backend/pkg/enums"
	"github.com/leasewise/leasewise-backend/pkg/logger"
	"github.com/leasewise/leasewise-backend/pkg/metrics"
)

var executorNow = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

type fakeScheduleStore struct {
	schedule  models.Schedule
	claimable bool
	claims    int
	advanced  []time.Time
	released  int
}

func (f *fakeScheduleStore) FindByID(_ context.Context, id uuid.UUID) (*models.Schedule, error) {
	if id != f.schedule.ID {
		return nil, gorm.ErrRecordNotFound
	}
	s := f.schedule
	return &s, nil
}

func (f *fakeScheduleStore) Claim(_ context.Context, _ uuid.UUID, _ time.Time, _ time.Duration) (uuid.UUID, bool, error) {
	f.claims++
	if !f.claimable {
		return uuid.Nil, false, nil
	}
	return uuid.New(), true, nil
}

func (f *fakeScheduleStore) Advance(_ context.Context, _, _ uuid.UUID, _, next time.Time) (bool, error) {
	f.advanced = append(f.advanced, next)
	return true, nil
}

func (f *fakeScheduleStore) Release(context.Context, uuid.UUID, uuid.UUID) error {
	f.released++
	return nil
}

type emptySource struct{}

func (emptySource) PropertyName(context.Context, rentals.Scope) (string, error) {
	return "Sea Point Flats", nil
}
func (emptySource) PaymentsDueBetween(context.Context, rentals.Scope, time.Time, time.Time) ([]models.Payment, error) {
	return nil, nil
}
func (emptySource) LeasesOverlapping(context.Context, rentals.Scope, time.Time, time.Time) ([]models.Lease, error) {
	return nil, nil
}
func (emptySource) CountUnits(context.Context, rentals.Scope) (int64, error) { return 0, nil }

type stubRenderer struct {
	err   error
	calls int
	// hang blocks until the render context ends; onHang runs first.
	hang   bool
	onHang func()
}

func (r *stubRenderer) Render(ctx context.Context, _ string, _ []PeriodRow, _ []enums.ReportMetric) ([]byte, error) {
	r.calls++
	if r.hang {
		if r.onHang != nil {
			r.onHang()
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.3 stub"), nil
}

type scriptedDispatcher struct {
	outcome func(target string) error
	items   []dispatch.Item
}

func (d *scriptedDispatcher) Dispatch(_ context.Context, items []dispatch.Item) []dispatch.Result {
	d.items = append(d.items, items...)
	out := make([]dispatch.Result, 0, len(items))
	for _, item := range items {
		res := dispatch.Result{Item: item, Target: item.Target}
		if d.outcome != nil {
			res.Err = d.outcome(item.Target)
		}
		if res.Err == nil {
			res.SentAt = executorNow
		}
		out = append(out, res)
	}
	return out
}

type executorHarness struct {
	exec       *Executor
	store      *fakeScheduleStore
	renderer   *stubRenderer
	dispatcher *scriptedDispatcher
	deliveries deliveries.Repository
	db         *gorm.DB
}

func newExecutorHarness(t *testing.T) executorHarness {
	t.Helper()
	db := dbtest.Open(t)
	store := &fakeScheduleStore{
		claimable: true,
		schedule: models.Schedule{
			ID:         uuid.New(),
			OwnerID:    uuid.New(),
			Name:       "Monthly owner pack",
			Frequency:  enums.FrequencyMonthly,
			SendHour:   8,
			Timezone:   "UTC",
			Recipients: []string{"owner@example.com", "accountant@example.com"},
			Metrics:    []string{"income", "occupancy_rate"},
			Status:     enums.ScheduleStatusActive,
			NextSendAt: executorNow.Add(-time.Minute),
		},
	}
	agg, err := NewAggregator(emptySource{}, 12)
	require.NoError(t, err)
	h := executorHarness{
		store:      store,
		renderer:   &stubRenderer{},
		dispatcher: &scriptedDispatcher{},
		deliveries: deliveries.NewRepository(db),
		db:         db,
	}
	h.exec, err = NewExecutor(ExecutorParams{
		Schedules:     store,
		Deliveries:    h.deliveries,
		Source:        emptySource{},
		Aggregator:    agg,
		Renderer:      h.renderer,
		Dispatcher:    h.dispatcher,
		Metrics:       metrics.NewDispatchMetrics(nil),
		Logger:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		ClaimTTL:      15 * time.Minute,
		RenderTimeout: time.Second,
		Now:           func() time.Time { return executorNow },
	})
	require.NoError(t, err)
	return h
}

func (h executorHarness) attempts(t *testing.T) []models.DeliveryAttempt {
	t.Helper()
	var rows []models.DeliveryAttempt
	require.NoError(t, h.db.Order("recipient ASC").Find(&rows).Error)
	return rows
}

func (h executorHarness) openFailures(t *testing.T) []models.FailureRecord {
	t.Helper()
	rows, err := h.deliveries.ListOpenFailures(context.Background(), 1)
	require.NoError(t, err)
	return rows
}

func TestExecuteDeliversAndAdvances(t *testing.T) {
	h := newExecutorHarness(t)

	res, err := h.exec.Execute(context.Background(), h.store.schedule.ID)
	require.NoError(t, err)
	require.Equal(t, OutcomeDelivered, res.Outcome)
	require.Equal(t, 2, res.Sent)
	require.Len(t, h.store.advanced, 1)
	require.True(t, h.store.advanced[0].Equal(time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)), "next send %s", h.store.advanced[0])
	require.Zero(t, h.store.released)

	attempts := h.attempts(t)
	require.Len(t, attempts, 2)
	for _, a := range attempts {
		require.Equal(t, enums.DeliveryStatusSent, a.Status)
		require.NotNil(t, a.SentAt)
		require.Equal(t, res.ExecutionID, a.ExecutionID)
	}

	item := h.dispatcher.items[0]
	require.Equal(t, enums.ChannelEmail, item.Channel)
	require.Len(t, item.Attachments, 1)
	require.Equal(t, "monthly-owner-pack-2026-06-01.pdf", item.Attachments[0].Filename)
}

func TestExecutePartialDeliveryStillAdvances(t *testing.T) {
	h := newExecutorHarness(t)
	h.dispatcher.outcome = func(target string) error {
		if target == "accountant@example.com" {
			return fmt.Errorf("%w: bad mailbox", dispatch.ErrInvalidRecipient)
		}
		return nil
	}

	res, err := h.exec.Execute(context.Background(), h.store.schedule.ID)
	require.NoError(t, err)
	require.Equal(t, OutcomePartial, res.Outcome)
	require.Len(t, h.store.advanced, 1)

	attempts := h.attempts(t)
	require.Equal(t, enums.DeliveryStatusBounced, attempts[0].Status)
	require.NotNil(t, attempts[0].Error)
	require.Equal(t, enums.DeliveryStatusSent, attempts[1].Status)
}

func TestExecuteAllRecipientsFailingKeepsScheduleDue(t *testing.T) {
	h := newExecutorHarness(t)
	h.dispatcher.outcome = func(string) error {
		return &dispatch.TransportError{Channel: enums.ChannelEmail, Err: errors.New("550 rejected")}
	}

	for i := 0; i < 2; i++ {
		res, err := h.exec.Execute(context.Background(), h.store.schedule.ID)
		require.NoError(t, err)
		require.Equal(t, OutcomeFailed, res.Outcome)
		require.Equal(t, enums.FailureReasonEmailDelivery, res.FailureReason)
	}
	require.Empty(t, h.store.advanced)
	require.Equal(t, 2, h.store.released)

	open := h.openFailures(t)
	require.Len(t, open, 1)
	require.Equal(t, 2, open[0].FailureCount)
	for _, a := range h.attempts(t) {
		require.Equal(t, enums.DeliveryStatusFailed, a.Status)
	}
}

func TestExecuteRenderFailureRecordsNoAttempts(t *testing.T) {
	h := newExecutorHarness(t)
	h.renderer.err = errors.New("font missing")

	res, err := h.exec.Execute(context.Background(), h.store.schedule.ID)
	require.NoError(t, err)
	require.Equal(t, OutcomeFailed, res.Outcome)
	require.Equal(t, enums.FailureReasonPDFGeneration, res.FailureReason)

	var renderErr *RenderError
	require.ErrorAs(t, res.Err, &renderErr)
	require.Empty(t, h.attempts(t))
	require.Empty(t, h.dispatcher.items)
	require.Empty(t, h.store.advanced)
	require.Equal(t, 1, h.store.released)
	require.Len(t, h.openFailures(t), 1)
}

func TestExecuteRenderTimeoutIsPDFGeneration(t *testing.T) {
	h := newExecutorHarness(t)
	h.exec.renderTimeout = 20 * time.Millisecond
	h.renderer.hang = true

	res, err := h.exec.Execute(context.Background(), h.store.schedule.ID)
	require.NoError(t, err)
	require.Equal(t, OutcomeFailed, res.Outcome)
	require.Equal(t, enums.FailureReasonPDFGeneration, res.FailureReason)
	require.ErrorIs(t, res.Err, context.DeadlineExceeded)
	require.Len(t, h.openFailures(t), 1)
}

func TestExecuteCancelledDuringRenderIsUnknown(t *testing.T) {
	h := newExecutorHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.renderer.hang = true
	h.renderer.onHang = cancel

	res, err := h.exec.Execute(ctx, h.store.schedule.ID)
	require.NoError(t, err)
	require.Equal(t, OutcomeFailed, res.Outcome)
	require.Equal(t, enums.FailureReasonUnknown, res.FailureReason)
	require.ErrorIs(t, res.Err, context.Canceled)

	var renderErr *RenderError
	require.False(t, errors.As(res.Err, &renderErr))
	require.Len(t, h.openFailures(t), 1, "the failure is recorded after cancellation")
}

func TestExecuteSuccessResolvesOpenStreak(t *testing.T) {
	h := newExecutorHarness(t)
	h.renderer.err = errors.New("boom")
	_, err := h.exec.Execute(context.Background(), h.store.schedule.ID)
	require.NoError(t, err)
	require.Len(t, h.openFailures(t), 1)

	h.renderer.err = nil
	res, err := h.exec.Execute(context.Background(), h.store.schedule.ID)
	require.NoError(t, err)
	require.Equal(t, OutcomeDelivered, res.Outcome)
	require.Empty(t, h.openFailures(t))
}

func TestExecuteSkipsWhenClaimFails(t *testing.T) {
	h := newExecutorHarness(t)
	h.store.claimable = false

	res, err := h.exec.Execute(context.Background(), h.store.schedule.ID)
	require.NoError(t, err)
	require.Equal(t, OutcomeSkipped, res.Outcome)
	require.Zero(t, h.renderer.calls)
	require.Zero(t, h.store.released)
}

func TestSendNowDoesNotTouchSchedule(t *testing.T) {
	h := newExecutorHarness(t)

	res, err := h.exec.SendNow(context.Background(), h.store.schedule.ID, []string{"preview@example.com"})
	require.NoError(t, err)
	require.Equal(t, OutcomeDelivered, res.Outcome)
	require.Zero(t, h.store.claims)
	require.Empty(t, h.store.advanced)
	require.Len(t, h.dispatcher.items, 1)
	require.Equal(t, "preview@example.com", h.dispatcher.items[0].Target)
}

func TestSendNowFailureOpensNoStreak(t *testing.T) {
	h := newExecutorHarness(t)
	h.dispatcher.outcome = func(string) error { return context.DeadlineExceeded }

	res, err := h.exec.SendNow(context.Background(), h.store.schedule.ID, nil)
	require.NoError(t, err)
	require.Equal(t, OutcomeFailed, res.Outcome)
	require.Equal(t, enums.FailureReasonNetworkError, res.FailureReason)
	require.Empty(t, h.openFailures(t))
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Monthly owner pack": "monthly-owner-pack",
		"  Q3 / 2026!! ":     "q3-2026",
		"!!!":                "report",
	}
	for in, want := range cases {
		if got := slug(in); got != want {
			t.Fatalf("slug(%q) = %q, want %q", in, got, want)
		}
	}
}
