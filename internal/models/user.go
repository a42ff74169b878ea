package models

import (
	"time"

	"github.com/google/uuid"
)

// User types supported by signup.
const (
	UserTypeConsultant = "consultant"
	UserTypeBookstore  = "bookstore"
	UserTypeFreelance  = "freelance"
)

// User represents an account holder. Accounts are created on signup and
// become usable once email (or phone) verification completes. There is no
// deletion flow.
type User struct {
	BaseModel
	Email            *string       `gorm:"uniqueIndex" json:"email,omitempty"`
	Phone            *string       `gorm:"uniqueIndex" json:"phone,omitempty"`
	UserType         string        `json:"user_type"`
	PasswordHash     string        `json:"-"`
	IsVerified       bool          `json:"is_verified"`
	IsPhoneVerified  bool          `json:"is_phone_verified"`
	DefaultAddressID *uuid.UUID    `gorm:"type:uuid" json:"default_address_id"`
	Addresses        []UserAddress `json:"addresses,omitempty"`
}

// EmailVerification holds the one live OTP issued to a user. Re-issuing
// overwrites the row, so there is never more than one code per user.
type EmailVerification struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Code      string    `json:"code"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
}
