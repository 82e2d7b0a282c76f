package enums

import "fmt"

// Frequency is the cadence of a recurring report schedule.
type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnually  Frequency = "annually"
)

var validFrequencies = []Frequency{
	FrequencyWeekly,
	FrequencyBiweekly,
	FrequencyMonthly,
	FrequencyQuarterly,
	FrequencyAnnually,
}

// String implements fmt.Stringer.
func (f Frequency) String() string {
	return string(f)
}

// IsValid reports whether the value is a known Frequency.
func (f Frequency) IsValid() bool {
	for _, candidate := range validFrequencies {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFrequency converts raw input into a Frequency.
func ParseFrequency(value string) (Frequency, error) {
	for _, candidate := range validFrequencies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid frequency %q", value)
}

// MonthStep returns the number of calendar months between fires for month-based
// cadences, or 0 for week-based ones.
func (f Frequency) MonthStep() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 3
	case FrequencyAnnually:
		return 12
	default:
		return 0
	}
}
