package models

// ErrorResponse is the uniform error envelope for denied or failed requests.
// Reason is machine-readable; Error is the human-readable message. Internal
// failure detail is never included.
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// MembershipStatusResponse answers the client-side membership poll.
type MembershipStatusResponse struct {
	Valid       bool `json:"valid"`
	PledgeCents int  `json:"pledge_cents"`
}

// SessionInfo is the client-facing view of one device session.
type SessionInfo struct {
	ID           string `json:"id"`
	IPAddress    string `json:"ip_address"`
	DeviceType   string `json:"device_type"`
	Browser      string `json:"browser"`
	IsActive     bool   `json:"is_active"`
	LastActivity string `json:"last_activity"`
}

// SessionListResponse lists the caller's device sessions.
type SessionListResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

// VideoListResponse lists tenant-scoped videos.
type VideoListResponse struct {
	Videos []Video `json:"videos"`
}
