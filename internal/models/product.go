package models

import (
	"time"

	"github.com/lib/pq"
)

// Product is a catalog entry. The catalog is a small flat list (USB + AI
// access bundles), keyed by a human-readable slug.
type Product struct {
	Slug      string         `gorm:"primaryKey" json:"id"`
	Name      string         `json:"name"`
	Price     int64          `json:"price"`
	Image     string         `json:"image"`
	Features  pq.StringArray `gorm:"type:text[]" json:"features"`
	IsActive  bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
