// Package sweeps matches overdue payments and expiring leases against day
// thresholds and notifies the affected tenants.
package sweeps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leasewise/leasewise-backend/internal/dispatch"
	"github.com/leasewise/leasewise-backend/internal/rentals"
	"github.com/leasewise/leasewise-backend/pkg/db/models"
	"github.com/leasewise/leasewise-backend/pkg/enums"
	"github.com/leasewise/leasewise-backend/pkg/logger"
)

const expirationWindow = 30 * 24 * time.Hour

// Source is the rentals read model the sweeps scan.
type Source interface {
	OverduePayments(ctx context.Context, now time.Time) ([]rentals.OverduePayment, error)
	LeasesEndingBetween(ctx context.Context, from, to time.Time) ([]rentals.ExpiringLease, error)
}

// Dispatcher is satisfied by *dispatch.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, items []dispatch.Item) []dispatch.Result
}

// Params wires either sweep.
type Params struct {
	Source     Source
	Flags      FlagStore
	Dispatcher Dispatcher
	Mode       MatchMode
	BrandName  string
	Logger     *logger.Logger
}

// Summary counts what one sweep run did. Matched subjects are either
// Notified (at least one channel accepted), Failed, or Skipped for lack of
// contact details.
type Summary struct {
	Matched  int
	Notified int
	Failed   int
	Skipped  int
}

type notice struct {
	subjectID uuid.UUID
	contact   rentals.Contact
	subject   string
	body      string
	sms       string
	threshold int
	flags     []int
}

type sweeper struct {
	kind       enums.NotificationKind
	source     Source
	flags      FlagStore
	dispatcher Dispatcher
	brand      string
	logg       *logger.Logger
	matcher    matcher
}

func newSweeper(kind enums.NotificationKind, params Params, thresholds []int, reached func(days, t int) bool) (sweeper, error) {
	switch {
	case params.Source == nil:
		return sweeper{}, errors.New("sweep source required")
	case params.Flags == nil:
		return sweeper{}, errors.New("flag store required")
	case params.Dispatcher == nil:
		return sweeper{}, errors.New("dispatcher required")
	case params.Logger == nil:
		return sweeper{}, errors.New("logger required")
	}
	mode := params.Mode
	if mode == "" {
		mode = ModeAtLeast
	}
	if mode != ModeExact && mode != ModeAtLeast {
		return sweeper{}, fmt.Errorf("invalid match mode %q", mode)
	}
	brand := strings.TrimSpace(params.BrandName)
	if brand == "" {
		brand = "LeaseWise"
	}
	return sweeper{
		kind:       kind,
		source:     params.Source,
		flags:      params.Flags,
		dispatcher: params.Dispatcher,
		brand:      brand,
		logg:       params.Logger,
		matcher:    matcher{mode: mode, thresholds: thresholds, reached: reached},
	}, nil
}

// notify sends every notice and flags the ones at least one channel accepted.
func (s sweeper) notify(ctx context.Context, notices []notice, now time.Time) (Summary, error) {
	summary := Summary{Matched: len(notices)}
	var flags []models.NotificationLog

	for _, n := range notices {
		items := make([]dispatch.Item, 0, 2)
		if n.contact.Email != nil && strings.TrimSpace(*n.contact.Email) != "" {
			items = append(items, dispatch.Item{Channel: enums.ChannelEmail, Target: *n.contact.Email, Subject: n.subject, Body: n.body})
		}
		if n.contact.Phone != nil && strings.TrimSpace(*n.contact.Phone) != "" {
			items = append(items, dispatch.Item{Channel: enums.ChannelSMS, Target: *n.contact.Phone, Body: n.sms})
		}
		if len(items) == 0 {
			summary.Skipped++
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"kind":      s.kind.String(),
				"tenant_id": n.contact.TenantID.String(),
			}), "tenant has no contact details")
			continue
		}

		delivered := 0
		for _, res := range s.dispatcher.Dispatch(ctx, items) {
			if res.OK() {
				delivered++
			}
		}
		if delivered == 0 {
			summary.Failed++
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"kind":       s.kind.String(),
				"subject_id": n.subjectID.String(),
				"threshold":  n.threshold,
			}), "notification not delivered on any channel")
			continue
		}
		summary.Notified++
		for _, t := range n.flags {
			flags = append(flags, models.NotificationLog{
				Kind:      s.kind,
				SubjectID: n.subjectID,
				Threshold: t,
				TenantID:  n.contact.TenantID,
				Delivered: delivered,
				SentAt:    now,
			})
		}
	}

	if err := s.flags.MarkSent(context.WithoutCancel(ctx), flags); err != nil {
		return summary, fmt.Errorf("mark notifications sent: %w", err)
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"kind":     s.kind.String(),
		"matched":  summary.Matched,
		"notified": summary.Notified,
		"failed":   summary.Failed,
		"skipped":  summary.Skipped,
	}), "notification sweep finished")
	return summary, nil
}

// OverdueRentSweep reminds tenants about unpaid rent 7, 14 and 30 days late.
type OverdueRentSweep struct {
	sweeper
}

func NewOverdueRentSweep(params Params) (*OverdueRentSweep, error) {
	s, err := newSweeper(enums.NotificationKindOverdueRent, params, OverdueThresholds,
		func(days, t int) bool { return days >= t })
	if err != nil {
		return nil, err
	}
	return &OverdueRentSweep{sweeper: s}, nil
}

func (s *OverdueRentSweep) Run(ctx context.Context, now time.Time) (Summary, error) {
	now = now.UTC()
	payments, err := s.source.OverduePayments(ctx, now)
	if err != nil {
		return Summary{}, fmt.Errorf("load overdue payments: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(payments))
	for _, p := range payments {
		ids = append(ids, p.PaymentID)
	}
	sent, err := s.flags.SentThresholds(ctx, s.kind, ids)
	if err != nil {
		return Summary{}, fmt.Errorf("load sent flags: %w", err)
	}

	var notices []notice
	for _, p := range payments {
		days := wholeDays(p.DueDate, now)
		threshold, flags, ok := s.matcher.match(days, sent[p.PaymentID])
		if !ok {
			continue
		}
		amount := p.Outstanding().StringFixed(2)
		due := p.DueDate.Format("2 January 2006")
		notices = append(notices, notice{
			subjectID: p.PaymentID,
			contact:   p.Contact,
			threshold: threshold,
			flags:     flags,
			subject:   fmt.Sprintf("Rent overdue: %s %s", p.PropertyName, p.UnitLabel),
			body: fmt.Sprintf("Hi %s,\n\nYour rent payment for %s %s was due on %s and is now %d days overdue. "+
				"The outstanding amount is %s.\n\nPlease settle it as soon as possible or contact your landlord.\n\n%s",
				p.FullName, p.PropertyName, p.UnitLabel, due, days, amount, s.brand),
			sms: fmt.Sprintf("%s: rent of %s for %s %s due %s is %d days overdue. Please pay as soon as possible.",
				s.brand, amount, p.PropertyName, p.UnitLabel, due, days),
		})
	}
	return s.notify(ctx, notices, now)
}

// LeaseExpirationSweep warns tenants 30, 14 and 7 days before their lease ends.
type LeaseExpirationSweep struct {
	sweeper
}

func NewLeaseExpirationSweep(params Params) (*LeaseExpirationSweep, error) {
	s, err := newSweeper(enums.NotificationKindLeaseExpiration, params, ExpirationThresholds,
		func(days, t int) bool { return days <= t })
	if err != nil {
		return nil, err
	}
	return &LeaseExpirationSweep{sweeper: s}, nil
}

func (s *LeaseExpirationSweep) Run(ctx context.Context, now time.Time) (Summary, error) {
	now = now.UTC()
	leases, err := s.source.LeasesEndingBetween(ctx, now, now.Add(expirationWindow))
	if err != nil {
		return Summary{}, fmt.Errorf("load expiring leases: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(leases))
	for _, l := range leases {
		ids = append(ids, l.LeaseID)
	}
	sent, err := s.flags.SentThresholds(ctx, s.kind, ids)
	if err != nil {
		return Summary{}, fmt.Errorf("load sent flags: %w", err)
	}

	var notices []notice
	for _, l := range leases {
		days := wholeDays(now, l.EndDate)
		threshold, flags, ok := s.matcher.match(days, sent[l.LeaseID])
		if !ok {
			continue
		}
		end := l.EndDate.Format("2 January 2006")
		notices = append(notices, notice{
			subjectID: l.LeaseID,
			contact:   l.Contact,
			threshold: threshold,
			flags:     flags,
			subject:   fmt.Sprintf("Your lease at %s %s ends in %d days", l.PropertyName, l.UnitLabel, days),
			body: fmt.Sprintf("Hi %s,\n\nYour lease for %s %s ends on %s, %d days from today. "+
				"Please let your landlord know whether you intend to renew.\n\n%s",
				l.FullName, l.PropertyName, l.UnitLabel, end, days, s.brand),
			sms: fmt.Sprintf("%s: your lease for %s %s ends on %s (%d days). Contact your landlord about renewal.",
				s.brand, l.PropertyName, l.UnitLabel, end, days),
		})
	}
	return s.notify(ctx, notices, now)
}
