package enums

import "fmt"

// NotificationKind identifies which sweep produced a tenant notification.
type NotificationKind string

const (
	NotificationKindOverdueRent     NotificationKind = "overdue_rent"
	NotificationKindLeaseExpiration NotificationKind = "lease_expiration"
)

var validNotificationKinds = []NotificationKind{
	NotificationKindOverdueRent,
	NotificationKindLeaseExpiration,
}

// String implements fmt.Stringer.
func (n NotificationKind) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationKind.
func (n NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts raw input into a NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
