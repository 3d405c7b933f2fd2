package enums

import "fmt"

// SessionStatus tracks a cashier drawer session from open to close.
type SessionStatus string

const (
	SessionStatusOpen      SessionStatus = "open"
	SessionStatusSuspended SessionStatus = "suspended"
	SessionStatusClosed    SessionStatus = "closed"
)

var validSessionStatuses = []SessionStatus{
	SessionStatusOpen,
	SessionStatusSuspended,
	SessionStatusClosed,
}

// String implements fmt.Stringer.
func (s SessionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SessionStatus.
func (s SessionStatus) IsValid() bool {
	for _, candidate := range validSessionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsLive reports whether the session still holds the terminal's drawer.
func (s SessionStatus) IsLive() bool {
	return s == SessionStatusOpen || s == SessionStatusSuspended
}

// ParseSessionStatus converts raw input into a SessionStatus.
func ParseSessionStatus(value string) (SessionStatus, error) {
	for _, candidate := range validSessionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid session status %q", value)
}
