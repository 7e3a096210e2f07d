package models

import (
	"time"
)

// Paid membership threshold: $2.00/month in minor currency units.
const PaidThresholdCents = 200

// Account represents a platform account backed by a Patreon identity.
type Account struct {
	ID          string     `json:"id" db:"id"`
	TenantID    *string    `json:"tenant_id,omitempty" db:"tenant_id"`
	Name        string     `json:"name" db:"name"`
	Email       string     `json:"email" db:"email"`
	PatreonID   string     `json:"patreon_id" db:"patreon_id"`
	PatreonToken string    `json:"-" db:"patreon_token"` // Never serialize the access credential
	PledgeCents int        `json:"pledge_cents" db:"pledge_cents"`
	IsAdmin     bool       `json:"is_admin" db:"is_admin"`
	BannedAt    *time.Time `json:"banned_at,omitempty" db:"banned_at"`
	LoggedOutAt *time.Time `json:"-" db:"logged_out_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// IsPaidMember reports whether the locally cached pledge meets the paid
// threshold. The admission gate re-verifies against the provider; this is the
// seed value refreshed at OAuth time.
func (a *Account) IsPaidMember() bool {
	return a.PledgeCents >= PaidThresholdCents
}

// IsBanned reports whether the account is currently banned.
func (a *Account) IsBanned() bool {
	return a.BannedAt != nil
}
