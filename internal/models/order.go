package models

import (
	"time"

	"github.com/google/uuid"
)

// Order lifecycle states.
const (
	OrderStatusPending = "pending"
	OrderStatusPaid    = "paid"
)

// Commission settlement states.
const (
	CommissionNotApplicable = "not_applicable"
	CommissionUnsettled     = "unsettled"
	CommissionCredited      = "credited"
	CommissionSkippedSelf   = "skipped_self"
)

// Order is a transactional record. The customer block is a snapshot taken
// at checkout time, not a live reference. Once Status is "paid" the
// settlement fields (Commission, CommissionStatus, PaidAt) are write-once.
type Order struct {
	BaseModel
	Type          string     `json:"type"`
	Status        string     `gorm:"index" json:"status"`
	CustomerUID   *uuid.UUID `gorm:"type:uuid;index" json:"customer_uid"`
	AffiliateCode *string    `gorm:"index" json:"affiliate_code"`
	FirstRefCode  *string    `json:"first_ref_code"`
	IsPrebook     bool       `json:"is_prebook"`

	// Amounts are integer currency units.
	Total            int64  `json:"total"`
	Commission       int64  `json:"commission"`
	CommissionStatus string `json:"commission_status"`

	PaymentMethod string     `json:"payment_method"`
	PaidAt        *time.Time `json:"paid_at"`

	CustomerName     string `json:"customer_name"`
	CustomerEmail    string `json:"customer_email"`
	CustomerPhone    string `json:"customer_phone"`
	ShippingLine1    string `json:"shipping_line1"`
	ShippingLine2    string `json:"shipping_line2"`
	ShippingCity     string `json:"shipping_city"`
	ShippingState    string `json:"shipping_state"`
	ShippingPincode  string `json:"shipping_pincode"`
	ShippingCountry  string `json:"shipping_country"`
	ShippingLandmark string `json:"shipping_landmark"`

	Items []OrderItem `json:"items,omitempty"`
}

type OrderItem struct {
	BaseModel
	OrderID     uuid.UUID `gorm:"type:uuid;index" json:"order_id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	UnitPrice   int64     `json:"unit_price"`
	Quantity    int       `json:"quantity"`
	LineTotal   int64     `json:"line_total"`
}
