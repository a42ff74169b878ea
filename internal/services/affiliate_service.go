package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/studentai/internal/models"
)

const (
	defaultCommissionRate = 0.10
	codeLength            = 8
	codeCharset           = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts       = 20
)

var (
	// ErrAffiliateNotFound means no affiliate matched the code or uid.
	ErrAffiliateNotFound = errors.New("affiliate not found")
	// ErrCodeGeneration means no unique code was found within the attempt cap.
	ErrCodeGeneration = errors.New("could not generate a unique affiliate code")
)

// AffiliateService manages commission accounts: code issuance, code
// resolution and counter updates.
type AffiliateService struct {
	db       *gorm.DB
	linkBase string
}

// NewAffiliateService constructs an AffiliateService. linkBase is the
// catalog URL the shareable referral link points at.
func NewAffiliateService(db *gorm.DB, linkBase string) *AffiliateService {
	return &AffiliateService{db: db, linkBase: linkBase}
}

// NormalizeCode canonicalizes a referral code for storage and lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ResolveCode maps a referral code to the owning affiliate's uid. The
// code->uid table is consulted first; a miss falls back to scanning the
// affiliates table, which covers rows whose index entry drifted.
func (s *AffiliateService) ResolveCode(ctx context.Context, code string) (uuid.UUID, error) {
	code = NormalizeCode(code)
	if code == "" {
		return uuid.Nil, ErrAffiliateNotFound
	}

	var mapping models.AffiliateCode
	err := s.db.WithContext(ctx).First(&mapping, "code = ?", code).Error
	if err == nil {
		return mapping.UID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, fmt.Errorf("resolve code: %w", err)
	}

	var affiliate models.Affiliate
	err = s.db.WithContext(ctx).First(&affiliate, "code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, ErrAffiliateNotFound
		}
		return uuid.Nil, fmt.Errorf("resolve code: %w", err)
	}

	return affiliate.UserID, nil
}

// Get returns the affiliate record for a uid, or ErrAffiliateNotFound.
func (s *AffiliateService) Get(ctx context.Context, uid uuid.UUID) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	err := s.db.WithContext(ctx).First(&affiliate, "user_id = ?", uid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAffiliateNotFound
		}
		return nil, err
	}
	return &affiliate, nil
}

// CommissionFor computes the commission an order total earns for the given
// affiliate: round-half-up of total times the affiliate's rate, defaulting
// to 10% when no override is set.
func (s *AffiliateService) CommissionFor(ctx context.Context, uid uuid.UUID, total int64) (int64, error) {
	affiliate, err := s.Get(ctx, uid)
	if err != nil {
		return 0, err
	}

	rate := defaultCommissionRate
	if affiliate.CommissionRate != nil {
		rate = *affiliate.CommissionRate
	}

	return int64(math.Round(float64(total) * rate)), nil
}

// Credit applies a settled sale to the affiliate's counters. All counter
// updates are atomic increments, safe under concurrent settlements against
// the same affiliate. tx may be an open transaction so the credit commits
// together with the order's paid transition.
func (s *AffiliateService) Credit(tx *gorm.DB, uid uuid.UUID, orderTotal, commission int64) error {
	now := time.Now()
	result := tx.Model(&models.Affiliate{}).
		Where("user_id = ?", uid).
		Updates(map[string]interface{}{
			"total_orders":       gorm.Expr("total_orders + 1"),
			"total_commissions":  gorm.Expr("total_commissions + ?", commission),
			"revenue_attributed": gorm.Expr("revenue_attributed + ?", orderTotal),
			"last_sale_at":       &now,
		})
	if result.Error != nil {
		return fmt.Errorf("credit affiliate: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAffiliateNotFound
	}
	return nil
}

// GenerateCode creates (or replaces) the affiliate account for a user with
// a fresh unique code. Collisions trigger a retry, capped so a pathological
// collision rate fails loudly instead of looping.
func (s *AffiliateService) GenerateCode(ctx context.Context, uid uuid.UUID, email string) (*models.Affiliate, error) {
	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	affiliate := models.Affiliate{
		UserID:   uid,
		Email:    email,
		Code:     code,
		Link:     fmt.Sprintf("%s?ref=%s", s.linkBase, code),
		IsActive: true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).Create(&affiliate).Error; err != nil {
			return err
		}

		// Replace any index rows from a previous code of this user.
		if err := tx.Delete(&models.AffiliateCode{}, "uid = ?", uid).Error; err != nil {
			return err
		}

		return tx.Create(&models.AffiliateCode{Code: code, UID: uid}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("persist affiliate: %w", err)
	}

	return &affiliate, nil
}

// DeleteAffiliate removes the affiliate account and its code index rows in
// one transaction, so no orphaned code mappings are left behind.
func (s *AffiliateService) DeleteAffiliate(ctx context.Context, uid uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.AffiliateCode{}, "uid = ?", uid).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Affiliate{}, "user_id = ?", uid).Error
	})
}

// RecordClick appends a click-log entry and, when the code belongs to a
// known affiliate, bumps its click counter. An unknown code is not an
// error: the click is still logged.
func (s *AffiliateService) RecordClick(ctx context.Context, code, ip, userAgent string) error {
	code = NormalizeCode(code)

	click := models.AffiliateClick{
		Code:      code,
		IP:        ip,
		UserAgent: userAgent,
	}
	if err := s.db.WithContext(ctx).Create(&click).Error; err != nil {
		return fmt.Errorf("log click: %w", err)
	}

	uid, err := s.ResolveCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrAffiliateNotFound) {
			log.Printf("[Affiliate] Click on unknown code %s", code)
			return nil
		}
		return err
	}

	return s.db.WithContext(ctx).
		Model(&models.Affiliate{}).
		Where("user_id = ?", uid).
		Update("clicks", gorm.Expr("clicks + 1")).Error
}

func (s *AffiliateService) uniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}

		var count int64
		if err := s.db.WithContext(ctx).
			Model(&models.Affiliate{}).
			Where("code = ?", code).
			Count(&count).Error; err != nil {
			return "", fmt.Errorf("check code: %w", err)
		}
		if count > 0 {
			continue
		}

		if err := s.db.WithContext(ctx).
			Model(&models.AffiliateCode{}).
			Where("code = ?", code).
			Count(&count).Error; err != nil {
			return "", fmt.Errorf("check code: %w", err)
		}
		if count == 0 {
			return code, nil
		}
	}

	return "", ErrCodeGeneration
}

func randomCode() (string, error) {
	chars := make([]byte, codeLength)
	for i := range chars {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		chars[i] = codeCharset[n.Int64()]
	}
	return string(chars), nil
}
