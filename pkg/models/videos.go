package models

import (
	"time"
)

// Video is the representative tenant-owned resource. Storage, transcoding,
// and playback are handled elsewhere; this service only reads metadata under
// the resolved tenant context.
type Video struct {
	ID          string    `json:"id" db:"id"`
	TenantID    string    `json:"tenant_id" db:"tenant_id"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description,omitempty" db:"description"`
	CategoryID  *string   `json:"category_id,omitempty" db:"category_id"`
	IsPublished bool      `json:"is_published" db:"is_published"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
