package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/studentai/internal/models"
)

const (
	codeTTL     = 15 * time.Minute
	maxAttempts = 5
)

// Verification failure reasons, in the order they are checked.
var (
	ErrVerificationNotFound = errors.New("no verification request found")
	ErrCodeExpired          = errors.New("code expired")
	ErrTooManyAttempts      = errors.New("too many attempts")
	ErrCodeMismatch         = errors.New("invalid code")
)

// CodeMailer delivers one-time codes. Satisfied by MailerService.
type CodeMailer interface {
	SendVerificationCode(to, code string) error
}

// VerificationService issues and checks email one-time codes and flips
// users.is_verified on success.
type VerificationService struct {
	db     *gorm.DB
	mailer CodeMailer
	now    func() time.Time
}

// NewVerificationService constructs a VerificationService.
func NewVerificationService(db *gorm.DB, mailer CodeMailer) *VerificationService {
	return &VerificationService{db: db, mailer: mailer, now: time.Now}
}

// IssueCode generates a fresh 6-digit code for the user, overwrites any
// previous one (attempts reset to 0) and emails it. The record is persisted
// before the email goes out, so a code the user receives always exists in
// the store. If the send fails the record is left in place; the next resend
// overwrites it.
func (s *VerificationService) IssueCode(ctx context.Context, userID uuid.UUID, email string) error {
	code, err := generateVerificationCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	verification := models.EmailVerification{
		UserID:    userID,
		Code:      code,
		Email:     email,
		ExpiresAt: s.now().Add(codeTTL),
		Attempts:  0,
		CreatedAt: s.now(),
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(&verification).Error
	if err != nil {
		return fmt.Errorf("store verification: %w", err)
	}

	if err := s.mailer.SendVerificationCode(email, code); err != nil {
		return err
	}

	return nil
}

// CheckCode validates a submitted code. Checks run in a fixed order:
// missing record, expiry (purges), attempt limit (purges), mismatch
// (increments attempts). On a match the user is marked verified, a minimal
// user record being created if none exists, and the verification row is
// deleted.
func (s *VerificationService) CheckCode(ctx context.Context, userID uuid.UUID, code string) error {
	var verification models.EmailVerification
	err := s.db.WithContext(ctx).First(&verification, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrVerificationNotFound
		}
		return fmt.Errorf("load verification: %w", err)
	}

	if s.now().After(verification.ExpiresAt) {
		s.purge(ctx, userID)
		return ErrCodeExpired
	}

	if verification.Attempts >= maxAttempts {
		s.purge(ctx, userID)
		return ErrTooManyAttempts
	}

	if verification.Code != code {
		if err := s.db.WithContext(ctx).
			Model(&models.EmailVerification{}).
			Where("user_id = ?", userID).
			Update("attempts", gorm.Expr("attempts + 1")).Error; err != nil {
			return fmt.Errorf("record attempt: %w", err)
		}
		return ErrCodeMismatch
	}

	if err := s.markVerified(ctx, userID, verification.Email); err != nil {
		return err
	}

	s.purge(ctx, userID)
	return nil
}

func (s *VerificationService) markVerified(ctx context.Context, userID uuid.UUID, email string) error {
	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("is_verified", true)
	if result.Error != nil {
		return fmt.Errorf("mark verified: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		user := models.User{
			BaseModel:  models.BaseModel{ID: userID},
			Email:      &email,
			IsVerified: true,
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return fmt.Errorf("create user on verify: %w", err)
		}
	}

	return nil
}

// purge removes the verification row; failures are ignored, the row is
// unusable either way once its terminal state is reached.
func (s *VerificationService) purge(ctx context.Context, userID uuid.UUID) {
	_ = s.db.WithContext(ctx).
		Delete(&models.EmailVerification{}, "user_id = ?", userID).Error
}

// generateVerificationCode draws a 6-digit code uniformly from
// [100000, 999999].
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
