package models

import (
	"time"

	"github.com/google/uuid"
)

// Affiliate is a per-user commission account. The primary key is the owning
// user's id, so there is exactly one affiliate per user.
type Affiliate struct {
	UserID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"uid"`
	Email             string     `json:"email"`
	Code              string     `gorm:"uniqueIndex" json:"code"`
	Link              string     `json:"link"`
	CommissionRate    *float64   `json:"commission_rate,omitempty"`
	TotalOrders       int64      `json:"total_orders"`
	TotalCommissions  int64      `json:"total_commissions"`
	RevenueAttributed int64      `json:"revenue_attributed"`
	Clicks            int64      `json:"clicks"`
	LastSaleAt        *time.Time `json:"last_sale_at"`
	IsActive          bool       `json:"is_active"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// AffiliateCode is the code->uid lookup table kept alongside
// affiliates.code. The two are written together but resolution still falls
// back to scanning affiliates when a row is missing.
type AffiliateCode struct {
	Code      string    `gorm:"primaryKey" json:"code"`
	UID       uuid.UUID `gorm:"type:uuid;index" json:"uid"`
	CreatedAt time.Time `json:"created_at"`
}

// AffiliateClick is an append-only referral-visit log entry.
type AffiliateClick struct {
	BaseModel
	Code      string `gorm:"index" json:"code"`
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`
}
