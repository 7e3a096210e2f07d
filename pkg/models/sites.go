package models

import (
	"time"
)

// Site represents one operator-owned tenant on the shared platform. Every
// tenant-owned entity carries the site's id and must be read and written
// through the resolved tenant context.
type Site struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description *string   `json:"description,omitempty" db:"description"`
	Domain      *string   `json:"domain,omitempty" db:"domain"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
