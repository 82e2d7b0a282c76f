package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leasewise/leasewise-backend/internal/cadence"
	"github.com/leasewise/leasewise-backend/internal/dispatch"
	"github.com/leasewise/leasewise-backend/internal/rentals"
	"github.com/leasewise/leasewise-backend/pkg/db/models"
	"github.com/leasewise/leasewise-backend/pkg/email"
	"github.com/leasewise/leasewise-backend/pkg/enums"
	"github.com/leasewise/leasewise-backend/pkg/logger"
	"github.com/leasewise/leasewise-backend/pkg/metrics"
)

// Outcome summarises one execution.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomePartial   Outcome = "partial"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// ScheduleStore is the part of the schedules repository the executor needs.
type ScheduleStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Schedule, error)
	Claim(ctx context.Context, id uuid.UUID, now time.Time, ttl time.Duration) (uuid.UUID, bool, error)
	Advance(ctx context.Context, id, token uuid.UUID, sentAt, next time.Time) (bool, error)
	Release(ctx context.Context, id, token uuid.UUID) error
}

// DeliveryStore records the audit trail of an execution.
type DeliveryStore interface {
	RecordAttempts(ctx context.Context, attempts []models.DeliveryAttempt) error
	RecordFailure(ctx context.Context, scheduleID uuid.UUID, reason enums.FailureReason, cause string, now time.Time) (*models.FailureRecord, error)
	ResolveFailures(ctx context.Context, scheduleID uuid.UUID, now time.Time) (int64, error)
}

// Dispatcher is satisfied by *dispatch.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, items []dispatch.Item) []dispatch.Result
}

// Result describes what an execution did. Err carries the render or delivery
// failure, if any; infrastructure errors are returned separately.
type Result struct {
	ScheduleID    uuid.UUID
	ExecutionID   uuid.UUID
	Outcome       Outcome
	Sent          int
	Failed        int
	NextSendAt    *time.Time
	FailureReason enums.FailureReason
	Err           error
}

// ExecutorParams wires an Executor.
type ExecutorParams struct {
	Schedules     ScheduleStore
	Deliveries    DeliveryStore
	Source        Source
	Aggregator    *Aggregator
	Renderer      Renderer
	Dispatcher    Dispatcher
	Metrics       *metrics.DispatchMetrics
	Logger        *logger.Logger
	BrandName     string
	ClaimTTL      time.Duration
	RenderTimeout time.Duration
	Now           func() time.Time
}

// Executor runs due schedules end to end.
type Executor struct {
	schedules     ScheduleStore
	deliveries    DeliveryStore
	source        Source
	aggregator    *Aggregator
	renderer      Renderer
	dispatcher    Dispatcher
	metrics       *metrics.DispatchMetrics
	logg          *logger.Logger
	brand         string
	claimTTL      time.Duration
	renderTimeout time.Duration
	now           func() time.Time
}

func NewExecutor(params ExecutorParams) (*Executor, error) {
	switch {
	case params.Schedules == nil:
		return nil, errors.New("schedule store required")
	case params.Deliveries == nil:
		return nil, errors.New("delivery store required")
	case params.Source == nil:
		return nil, errors.New("report source required")
	case params.Aggregator == nil:
		return nil, errors.New("aggregator required")
	case params.Renderer == nil:
		return nil, errors.New("renderer required")
	case params.Dispatcher == nil:
		return nil, errors.New("dispatcher required")
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.ClaimTTL <= 0:
		return nil, errors.New("claim ttl must be positive")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	brand := strings.TrimSpace(params.BrandName)
	if brand == "" {
		brand = "LeaseWise"
	}
	return &Executor{
		schedules:     params.Schedules,
		deliveries:    params.Deliveries,
		source:        params.Source,
		aggregator:    params.Aggregator,
		renderer:      params.Renderer,
		dispatcher:    params.Dispatcher,
		metrics:       params.Metrics,
		logg:          params.Logger,
		brand:         brand,
		claimTTL:      params.ClaimTTL,
		renderTimeout: params.RenderTimeout,
		now:           now,
	}, nil
}

// Execute claims a due schedule, builds and sends its report, and advances it
// when at least one recipient accepted the report. A schedule that is not due
// or is claimed elsewhere yields OutcomeSkipped.
func (e *Executor) Execute(ctx context.Context, scheduleID uuid.UUID) (Result, error) {
	ctx = e.logg.WithScheduleID(ctx, scheduleID.String())
	now := e.now().UTC()
	res := Result{ScheduleID: scheduleID, ExecutionID: uuid.New()}

	token, ok, err := e.schedules.Claim(ctx, scheduleID, now, e.claimTTL)
	if err != nil {
		return res, fmt.Errorf("claim schedule: %w", err)
	}
	if !ok {
		res.Outcome = OutcomeSkipped
		e.metrics.ObserveExecution(string(res.Outcome))
		return res, nil
	}

	advanced := false
	defer func() {
		if advanced {
			return
		}
		if err := e.schedules.Release(context.WithoutCancel(ctx), scheduleID, token); err != nil {
			e.logg.Error(ctx, "release schedule claim", err)
		}
	}()

	schedule, err := e.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		return res, fmt.Errorf("load schedule: %w", err)
	}
	ctx = e.logg.WithOwnerID(ctx, schedule.OwnerID.String())

	spec, err := cadence.SpecFromSchedule(*schedule)
	if err == nil {
		var next time.Time
		next, err = cadence.NextFire(now, spec)
		res.NextSendAt = &next
	}
	if err != nil {
		res.NextSendAt = nil
		return e.fail(ctx, res, enums.FailureReasonUnknown, fmt.Errorf("compute next send: %w", err), now)
	}

	doc, scopeName, err := e.build(ctx, schedule, now)
	if err != nil {
		reason := enums.FailureReasonUnknown
		var renderErr *RenderError
		if errors.As(err, &renderErr) {
			reason = enums.FailureReasonPDFGeneration
		}
		res.NextSendAt = nil
		return e.fail(ctx, res, reason, err, now)
	}

	results := e.deliver(ctx, schedule, doc, scopeName, schedule.Recipients, now)
	if err := e.recordAttempts(ctx, res.ExecutionID, schedule.ID, results); err != nil {
		return res, err
	}
	res.Sent, res.Failed = count(results)

	if res.Sent == 0 {
		res.NextSendAt = nil
		reason, cause := classify(results)
		return e.fail(ctx, res, reason, cause, now)
	}

	ok, err = e.schedules.Advance(ctx, scheduleID, token, now, *res.NextSendAt)
	if err != nil {
		return res, fmt.Errorf("advance schedule: %w", err)
	}
	advanced = true
	if !ok {
		e.logg.Warn(ctx, "schedule claim lost before advance")
	}
	if _, err := e.deliveries.ResolveFailures(ctx, scheduleID, now); err != nil {
		e.logg.Error(ctx, "resolve failure records", err)
	}

	res.Outcome = OutcomeDelivered
	if res.Failed > 0 {
		res.Outcome = OutcomePartial
		res.Err = firstError(results)
	}
	e.metrics.ObserveExecution(string(res.Outcome))
	e.logg.Info(e.logg.WithFields(ctx, map[string]any{
		"execution_id": res.ExecutionID.String(),
		"outcome":      string(res.Outcome),
		"sent":         res.Sent,
		"failed":       res.Failed,
		"next_send_at": res.NextSendAt.Format(time.RFC3339),
	}), "scheduled report executed")
	return res, nil
}

// SendNow renders the schedule's report and sends it to recipients, or to the
// schedule's own recipients when none are given. The schedule is neither
// claimed nor advanced and failures do not open a failure streak.
func (e *Executor) SendNow(ctx context.Context, scheduleID uuid.UUID, recipients []string) (Result, error) {
	ctx = e.logg.WithScheduleID(ctx, scheduleID.String())
	now := e.now().UTC()
	res := Result{ScheduleID: scheduleID, ExecutionID: uuid.New()}

	schedule, err := e.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		return res, fmt.Errorf("load schedule: %w", err)
	}
	if len(recipients) == 0 {
		recipients = schedule.Recipients
	}

	doc, scopeName, err := e.build(ctx, schedule, now)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.FailureReason = enums.FailureReasonUnknown
		var renderErr *RenderError
		if errors.As(err, &renderErr) {
			res.FailureReason = enums.FailureReasonPDFGeneration
		}
		res.Err = err
		e.logg.Error(ctx, "test send failed", err)
		return res, nil
	}

	results := e.deliver(ctx, schedule, doc, scopeName, recipients, now)
	if err := e.recordAttempts(ctx, res.ExecutionID, schedule.ID, results); err != nil {
		return res, err
	}
	res.Sent, res.Failed = count(results)
	switch {
	case res.Sent == 0:
		res.Outcome = OutcomeFailed
		res.FailureReason, res.Err = classify(results)
	case res.Failed > 0:
		res.Outcome = OutcomePartial
		res.Err = firstError(results)
	default:
		res.Outcome = OutcomeDelivered
	}
	return res, nil
}

func (e *Executor) fail(ctx context.Context, res Result, reason enums.FailureReason, cause error, now time.Time) (Result, error) {
	res.Outcome = OutcomeFailed
	res.FailureReason = reason
	res.Err = cause
	e.metrics.ObserveExecution(string(res.Outcome))

	ctx = e.logg.WithFields(ctx, map[string]any{
		"execution_id": res.ExecutionID.String(),
		"reason":       reason.String(),
	})
	e.logg.Error(ctx, "scheduled report failed", cause)

	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if _, err := e.deliveries.RecordFailure(context.WithoutCancel(ctx), res.ScheduleID, reason, msg, now); err != nil {
		return res, fmt.Errorf("record failure: %w", err)
	}
	return res, nil
}

// build aggregates the dataset and renders it. Render failures, including a
// render that outlives renderTimeout, come back as *RenderError; a render cut
// short because ctx itself ended does not.
func (e *Executor) build(ctx context.Context, schedule *models.Schedule, now time.Time) ([]byte, string, error) {
	scope := rentals.Scope{OwnerID: schedule.OwnerID, PropertyID: schedule.PropertyID}
	scopeName, err := e.source.PropertyName(ctx, scope)
	if err != nil {
		return nil, "", fmt.Errorf("resolve scope name: %w", err)
	}
	rows, err := e.aggregator.Build(ctx, scope, now)
	if err != nil {
		return nil, "", fmt.Errorf("aggregate report: %w", err)
	}

	metricsSelected := make([]enums.ReportMetric, 0, len(schedule.Metrics))
	for _, m := range schedule.Metrics {
		metricsSelected = append(metricsSelected, enums.ReportMetric(m))
	}
	title := fmt.Sprintf("%s: %s", schedule.Name, scopeName)

	doc, err := e.render(ctx, title, rows, metricsSelected)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", fmt.Errorf("render report: %w", err)
		}
		return nil, "", &RenderError{Err: err}
	}
	return doc, scopeName, nil
}

func (e *Executor) render(ctx context.Context, title string, rows []PeriodRow, selected []enums.ReportMetric) ([]byte, error) {
	if e.renderTimeout <= 0 {
		return e.renderer.Render(ctx, title, rows, selected)
	}
	ctx, cancel := context.WithTimeout(ctx, e.renderTimeout)
	defer cancel()

	type rendered struct {
		doc []byte
		err error
	}
	done := make(chan rendered, 1)
	go func() {
		doc, err := e.renderer.Render(ctx, title, rows, selected)
		done <- rendered{doc: doc, err: err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		return out.doc, out.err
	}
}

func (e *Executor) deliver(ctx context.Context, schedule *models.Schedule, doc []byte, scopeName string, recipients []string, now time.Time) []dispatch.Result {
	subject := fmt.Sprintf("%s %s report: %s", e.brand, schedule.Frequency, scopeName)
	body := fmt.Sprintf("Hello,\n\nAttached is your %s report \"%s\" for %s, covering the %d months to %s.\n\n%s",
		schedule.Frequency, schedule.Name, scopeName, e.aggregator.periods, now.Format("January 2006"), e.brand)
	attachment := email.Attachment{
		Filename:    fmt.Sprintf("%s-%s.pdf", slug(schedule.Name), now.Format("2006-01-02")),
		ContentType: "application/pdf",
		Data:        doc,
	}

	items := make([]dispatch.Item, 0, len(recipients))
	for _, to := range recipients {
		items = append(items, dispatch.Item{
			Channel:     enums.ChannelEmail,
			Target:      to,
			Subject:     subject,
			Body:        body,
			Attachments: []email.Attachment{attachment},
		})
	}
	return e.dispatcher.Dispatch(ctx, items)
}

func (e *Executor) recordAttempts(ctx context.Context, executionID, scheduleID uuid.UUID, results []dispatch.Result) error {
	attempts := make([]models.DeliveryAttempt, 0, len(results))
	for _, r := range results {
		attempt := models.DeliveryAttempt{
			ScheduleID:  scheduleID,
			ExecutionID: executionID,
			Recipient:   r.Item.Target,
			Status:      enums.DeliveryStatusSent,
		}
		switch {
		case r.OK():
			sentAt := r.SentAt
			attempt.SentAt = &sentAt
		case errors.Is(r.Err, dispatch.ErrInvalidRecipient):
			attempt.Status = enums.DeliveryStatusBounced
		default:
			attempt.Status = enums.DeliveryStatusFailed
		}
		if r.Err != nil {
			msg := r.Err.Error()
			attempt.Error = &msg
		}
		attempts = append(attempts, attempt)
	}
	if err := e.deliveries.RecordAttempts(context.WithoutCancel(ctx), attempts); err != nil {
		return fmt.Errorf("record delivery attempts: %w", err)
	}
	return nil
}

func count(results []dispatch.Result) (sent, failed int) {
	for _, r := range results {
		if r.OK() {
			sent++
		} else {
			failed++
		}
	}
	return sent, failed
}

// classify picks the failure reason for an execution where nothing was sent.
func classify(results []dispatch.Result) (enums.FailureReason, error) {
	if len(results) == 0 {
		return enums.FailureReasonInvalidRecipient, errors.New("schedule has no recipients")
	}
	allInvalid := true
	network := false
	for _, r := range results {
		if !errors.Is(r.Err, dispatch.ErrInvalidRecipient) {
			allInvalid = false
		}
		if dispatch.IsNetworkError(r.Err) {
			network = true
		}
	}
	cause := firstError(results)
	switch {
	case allInvalid:
		return enums.FailureReasonInvalidRecipient, cause
	case network:
		return enums.FailureReasonNetworkError, cause
	default:
		return enums.FailureReasonEmailDelivery, cause
	}
}

func firstError(results []dispatch.Result) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "report"
	}
	return out
}
