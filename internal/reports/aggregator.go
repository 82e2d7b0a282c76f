// Package reports builds, renders and delivers scheduled owner reports.
package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/leasewise/leasewise-backend/internal/rentals"
	"github.com/leasewise/leasewise-backend/pkg/db/models"
	"github.com/leasewise/leasewise-backend/pkg/enums"
)

// DefaultPeriods is the trailing window covered by a report.
const DefaultPeriods = 12

// Source is the subset of the rentals read model a report draws on.
type Source interface {
	PropertyName(ctx context.Context, scope rentals.Scope) (string, error)
	PaymentsDueBetween(ctx context.Context, scope rentals.Scope, from, to time.Time) ([]models.Payment, error)
	LeasesOverlapping(ctx context.Context, scope rentals.Scope, from, to time.Time) ([]models.Lease, error)
	CountUnits(ctx context.Context, scope rentals.Scope) (int64, error)
}

// PeriodRow holds one calendar month of figures. Rates are percentages.
type PeriodRow struct {
	Start           time.Time
	End             time.Time
	Income          decimal.Decimal
	Billed          decimal.Decimal
	Outstanding     decimal.Decimal
	OverduePayments int
	OccupancyRate   float64
	CollectionRate  float64
	NewLeases       int
	ExpiringLeases  int
}

// Label renders the period as "Jan 2026".
func (r PeriodRow) Label() string {
	return r.Start.Format("Jan 2006")
}

// Aggregator computes the monthly dataset behind a report.
type Aggregator struct {
	source  Source
	periods int
}

func NewAggregator(source Source, periods int) (*Aggregator, error) {
	if source == nil {
		return nil, errors.New("report source required")
	}
	if periods <= 0 {
		periods = DefaultPeriods
	}
	return &Aggregator{source: source, periods: periods}, nil
}

// Build returns one row per month, oldest first, ending with the month that
// contains now.
func (a *Aggregator) Build(ctx context.Context, scope rentals.Scope, now time.Time) ([]PeriodRow, error) {
	now = now.UTC()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	windowStart := current.AddDate(0, -(a.periods - 1), 0)
	windowEnd := current.AddDate(0, 1, 0)

	payments, err := a.source.PaymentsDueBetween(ctx, scope, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	leases, err := a.source.LeasesOverlapping(ctx, scope, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("load leases: %w", err)
	}
	units, err := a.source.CountUnits(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("count units: %w", err)
	}

	rows := make([]PeriodRow, a.periods)
	for i := range rows {
		start := windowStart.AddDate(0, i, 0)
		rows[i] = PeriodRow{
			Start:       start,
			End:         start.AddDate(0, 1, 0),
			Income:      decimal.Zero,
			Billed:      decimal.Zero,
			Outstanding: decimal.Zero,
		}
	}

	for _, p := range payments {
		idx := periodIndex(rows, p.DueDate)
		if idx < 0 || p.Status == enums.PaymentStatusRefunded {
			continue
		}
		row := &rows[idx]
		row.Billed = row.Billed.Add(p.Amount)
		row.Income = row.Income.Add(p.Paid)
		if p.Status != enums.PaymentStatusPaid {
			remaining := p.Amount.Sub(p.Paid)
			if remaining.IsPositive() {
				row.Outstanding = row.Outstanding.Add(remaining)
			}
			if p.DueDate.Before(now) {
				row.OverduePayments++
			}
		}
	}

	occupied := make([]map[uuid.UUID]struct{}, len(rows))
	for _, l := range leases {
		if idx := periodIndex(rows, l.StartDate); idx >= 0 {
			rows[idx].NewLeases++
		}
		if idx := periodIndex(rows, l.EndDate); idx >= 0 {
			rows[idx].ExpiringLeases++
		}
		for i := range rows {
			if l.StartDate.Before(rows[i].End) && !l.EndDate.Before(rows[i].Start) {
				if occupied[i] == nil {
					occupied[i] = make(map[uuid.UUID]struct{})
				}
				occupied[i][l.UnitID] = struct{}{}
			}
		}
	}

	for i := range rows {
		if units > 0 {
			rows[i].OccupancyRate = percent(float64(len(occupied[i])), float64(units))
		}
		if rows[i].Billed.IsPositive() {
			rate, _ := rows[i].Income.Div(rows[i].Billed).Mul(decimal.NewFromInt(100)).Round(1).Float64()
			rows[i].CollectionRate = rate
		}
	}
	return rows, nil
}

func periodIndex(rows []PeriodRow, at time.Time) int {
	at = at.UTC()
	for i, row := range rows {
		if !at.Before(row.Start) && at.Before(row.End) {
			return i
		}
	}
	return -1
}

func percent(part, whole float64) float64 {
	v := part / whole * 100
	if v > 100 {
		v = 100
	}
	return float64(int(v*10+0.5)) / 10
}
