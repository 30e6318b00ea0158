package enums

import "fmt"

// SubscriberStatus is the canonical subscription state shared by the webhook
// reconciler and the dashboard CRUD surface.
type SubscriberStatus string

const (
	SubscriberStatusActive   SubscriberStatus = "active"
	SubscriberStatusCanceled SubscriberStatus = "canceled"
	SubscriberStatusOverdue  SubscriberStatus = "overdue"
)

var validSubscriberStatuses = []SubscriberStatus{
	SubscriberStatusActive,
	SubscriberStatusCanceled,
	SubscriberStatusOverdue,
}

// String implements fmt.Stringer.
func (s SubscriberStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s SubscriberStatus) IsValid() bool {
	for _, candidate := range validSubscriberStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSubscriberStatus converts raw input into a SubscriberStatus.
func ParseSubscriberStatus(value string) (SubscriberStatus, error) {
	for _, candidate := range validSubscriberStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscriber status %q", value)
}
