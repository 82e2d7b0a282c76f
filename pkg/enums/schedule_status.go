package enums

import "fmt"

// ScheduleStatus tracks whether a schedule is eligible for dispatch.
type ScheduleStatus string

const (
	ScheduleStatusActive    ScheduleStatus = "active"
	ScheduleStatusPaused    ScheduleStatus = "paused"
	ScheduleStatusCompleted ScheduleStatus = "completed"
)

var validScheduleStatuses = []ScheduleStatus{
	ScheduleStatusActive,
	ScheduleStatusPaused,
	ScheduleStatusCompleted,
}

// String implements fmt.Stringer.
func (s ScheduleStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ScheduleStatus.
func (s ScheduleStatus) IsValid() bool {
	for _, candidate := range validScheduleStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseScheduleStatus converts raw input into a ScheduleStatus.
func ParseScheduleStatus(value string) (ScheduleStatus, error) {
	for _, candidate := range validScheduleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid schedule status %q", value)
}
