package models

import (
	"strings"
	"time"
)

// SessionRecord tracks one active device for an account. Records are keyed by
// (account id, origin IP, user agent); re-admission from the same tuple
// refreshes the existing record instead of creating a new one. Records are
// never hard-deleted here; deactivation flips IsActive and physical cleanup
// is a housekeeping concern.
type SessionRecord struct {
	ID                string    `json:"id" db:"id"`
	AccountID         string    `json:"account_id" db:"account_id"`
	TenantID          *string   `json:"tenant_id,omitempty" db:"tenant_id"`
	IPAddress         string    `json:"ip_address" db:"ip_address"`
	UserAgent         string    `json:"user_agent" db:"user_agent"`
	DeviceFingerprint *string   `json:"device_fingerprint,omitempty" db:"device_fingerprint"`
	IsActive          bool      `json:"is_active" db:"is_active"`
	LastActivity      time.Time `json:"last_activity" db:"last_activity"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// DeviceType derives a coarse device class from the user agent.
func (s *SessionRecord) DeviceType() string {
	ua := strings.ToLower(s.UserAgent)
	switch {
	case strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad"):
		return "Tablet"
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "android") || strings.Contains(ua, "iphone"):
		return "Mobile"
	default:
		return "Desktop"
	}
}

// Browser derives the browser family from the user agent.
func (s *SessionRecord) Browser() string {
	ua := strings.ToLower(s.UserAgent)
	switch {
	case strings.Contains(ua, "edge"):
		return "Edge"
	case strings.Contains(ua, "chrome"):
		return "Chrome"
	case strings.Contains(ua, "firefox"):
		return "Firefox"
	case strings.Contains(ua, "safari"):
		return "Safari"
	default:
		return "Unknown"
	}
}
