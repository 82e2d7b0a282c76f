package enums

import "fmt"

// ReportMetric names a column that can be selected for a scheduled report.
type ReportMetric string

const (
	ReportMetricIncome          ReportMetric = "income"
	ReportMetricOutstanding     ReportMetric = "outstanding"
	ReportMetricOverduePayments ReportMetric = "overdue_payments"
	ReportMetricOccupancyRate   ReportMetric = "occupancy_rate"
	ReportMetricCollectionRate  ReportMetric = "collection_rate"
	ReportMetricNewLeases       ReportMetric = "new_leases"
	ReportMetricExpiringLeases  ReportMetric = "expiring_leases"
)

var validReportMetrics = []ReportMetric{
	ReportMetricIncome,
	ReportMetricOutstanding,
	ReportMetricOverduePayments,
	ReportMetricOccupancyRate,
	ReportMetricCollectionRate,
	ReportMetricNewLeases,
	ReportMetricExpiringLeases,
}

// String implements fmt.Stringer.
func (r ReportMetric) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReportMetric.
func (r ReportMetric) IsValid() bool {
	for _, candidate := range validReportMetrics {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReportMetric converts raw input into a ReportMetric.
func ParseReportMetric(value string) (ReportMetric, error) {
	for _, candidate := range validReportMetrics {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid report metric %q", value)
}

// ReportMetrics returns every selectable metric in canonical column order.
func ReportMetrics() []ReportMetric {
	out := make([]ReportMetric, len(validReportMetrics))
	copy(out, validReportMetrics)
	return out
}
