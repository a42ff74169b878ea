package models

import (
	"github.com/google/uuid"
)

// UserAddress is a delivery address in a user's address book. The user's
// default address id lives on the User record.
type UserAddress struct {
	BaseModel
	UserID       uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone"`
	AddressLine1 string    `json:"address_line1"`
	AddressLine2 string    `json:"address_line2"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	Pincode      string    `json:"pincode"`
	Country      string    `json:"country"`
	Landmark     string    `json:"landmark"`
	ContactEmail string    `json:"contact_email"`
}
