package enums

import "fmt"

// LeaseStatus mirrors the lifecycle of a lease agreement.
type LeaseStatus string

const (
	LeaseStatusDraft      LeaseStatus = "draft"
	LeaseStatusActive     LeaseStatus = "active"
	LeaseStatusEnded      LeaseStatus = "ended"
	LeaseStatusTerminated LeaseStatus = "terminated"
)

var validLeaseStatuses = []LeaseStatus{
	LeaseStatusDraft,
	LeaseStatusActive,
	LeaseStatusEnded,
	LeaseStatusTerminated,
}

// String implements fmt.Stringer.
func (l LeaseStatus) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LeaseStatus.
func (l LeaseStatus) IsValid() bool {
	for _, candidate := range validLeaseStatuses {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLeaseStatus converts raw input into a LeaseStatus.
func ParseLeaseStatus(value string) (LeaseStatus, error) {
	for _, candidate := range validLeaseStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lease status %q", value)
}
