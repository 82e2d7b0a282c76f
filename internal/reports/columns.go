package reports

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/leasewise/leasewise-backend/pkg/enums"
)

// Column describes how one metric appears in a rendered report: a table
// column plus a line in the summary block.
type Column struct {
	Metric  enums.ReportMetric
	Header  string
	Value   func(PeriodRow) string
	Summary func([]PeriodRow) string
}

var columns = map[enums.ReportMetric]Column{
	enums.ReportMetricIncome: {
		Header:  "Income",
		Value:   func(r PeriodRow) string { return money(r.Income) },
		Summary: func(rows []PeriodRow) string { return "Total income: " + money(sumDecimal(rows, incomeOf)) },
	},
	enums.ReportMetricOutstanding: {
		Header:  "Outstanding",
		Value:   func(r PeriodRow) string { return money(r.Outstanding) },
		Summary: func(rows []PeriodRow) string { return "Total outstanding: " + money(sumDecimal(rows, outstandingOf)) },
	},
	enums.ReportMetricOverduePayments: {
		Header:  "Overdue",
		Value:   func(r PeriodRow) string { return strconv.Itoa(r.OverduePayments) },
		Summary: func(rows []PeriodRow) string { return fmt.Sprintf("Overdue payments: %d", sumInt(rows, overdueOf)) },
	},
	enums.ReportMetricOccupancyRate: {
		Header:  "Occupancy",
		Value:   func(r PeriodRow) string { return pct(r.OccupancyRate) },
		Summary: func(rows []PeriodRow) string { return "Average occupancy: " + pct(average(rows, occupancyOf)) },
	},
	enums.ReportMetricCollectionRate: {
		Header:  "Collection",
		Value:   func(r PeriodRow) string { return pct(r.CollectionRate) },
		Summary: func(rows []PeriodRow) string { return "Average collection rate: " + pct(average(rows, collectionOf)) },
	},
	enums.ReportMetricNewLeases: {
		Header:  "New leases",
		Value:   func(r PeriodRow) string { return strconv.Itoa(r.NewLeases) },
		Summary: func(rows []PeriodRow) string { return fmt.Sprintf("New leases: %d", sumInt(rows, newLeasesOf)) },
	},
	enums.ReportMetricExpiringLeases: {
		Header:  "Expiring",
		Value:   func(r PeriodRow) string { return strconv.Itoa(r.ExpiringLeases) },
		Summary: func(rows []PeriodRow) string { return fmt.Sprintf("Expiring leases: %d", sumInt(rows, expiringOf)) },
	},
}

func incomeOf(r PeriodRow) decimal.Decimal      { return r.Income }
func outstandingOf(r PeriodRow) decimal.Decimal { return r.Outstanding }
func overdueOf(r PeriodRow) int                 { return r.OverduePayments }
func occupancyOf(r PeriodRow) float64           { return r.OccupancyRate }
func collectionOf(r PeriodRow) float64          { return r.CollectionRate }
func newLeasesOf(r PeriodRow) int               { return r.NewLeases }
func expiringOf(r PeriodRow) int                { return r.ExpiringLeases }

// ColumnsFor returns the columns for the selected metrics in canonical order.
// Unknown and duplicate metrics are ignored.
func ColumnsFor(selected []enums.ReportMetric) []Column {
	want := make(map[enums.ReportMetric]bool, len(selected))
	for _, m := range selected {
		want[m] = true
	}
	out := make([]Column, 0, len(selected))
	for _, m := range enums.ReportMetrics() {
		if !want[m] {
			continue
		}
		col := columns[m]
		col.Metric = m
		out = append(out, col)
	}
	return out
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func pct(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

func sumDecimal(rows []PeriodRow, get func(PeriodRow) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(get(r))
	}
	return total
}

func sumInt(rows []PeriodRow, get func(PeriodRow) int) int {
	total := 0
	for _, r := range rows {
		total += get(r)
	}
	return total
}

func average(rows []PeriodRow, get func(PeriodRow) float64) float64 {
	if len(rows) == 0 {
		return 0
	}
	total := 0.0
	for _, r := range rows {
		total += get(r)
	}
	return total / float64(len(rows))
}
