package enums

import "fmt"

// SuggestionStatus tracks the owner's decision on a rollback suggestion.
type SuggestionStatus string

const (
	SuggestionStatusPending  SuggestionStatus = "pending"
	SuggestionStatusAccepted SuggestionStatus = "accepted"
	SuggestionStatusRejected SuggestionStatus = "rejected"
	SuggestionStatusApplied  SuggestionStatus = "applied"
)

var validSuggestionStatuses = []SuggestionStatus{
	SuggestionStatusPending,
	SuggestionStatusAccepted,
	SuggestionStatusRejected,
	SuggestionStatusApplied,
}

// String implements fmt.Stringer.
func (s SuggestionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SuggestionStatus.
func (s SuggestionStatus) IsValid() bool {
	for _, candidate := range validSuggestionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSuggestionStatus converts raw input into a SuggestionStatus.
func ParseSuggestionStatus(value string) (SuggestionStatus, error) {
	for _, candidate := range validSuggestionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid suggestion status %q", value)
}

// CanTransitionTo reports whether an owner decision may move a suggestion from s to next.
func (s SuggestionStatus) CanTransitionTo(next SuggestionStatus) bool {
	switch s {
	case SuggestionStatusPending:
		return next == SuggestionStatusAccepted || next == SuggestionStatusRejected || next == SuggestionStatusApplied
	case SuggestionStatusAccepted:
		return next == SuggestionStatusApplied || next == SuggestionStatusRejected
	default:
		return false
	}
}
