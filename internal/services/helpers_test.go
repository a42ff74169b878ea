package services

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/studentai/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.EmailVerification{},
		&models.Order{},
		&models.OrderItem{},
		&models.Affiliate{},
		&models.AffiliateCode{},
		&models.AffiliateClick{},
	))

	return db
}

func createAffiliate(t *testing.T, db *gorm.DB, code string, rate *float64) *models.Affiliate {
	t.Helper()

	affiliate := models.Affiliate{
		UserID:         uuid.New(),
		Email:          "affiliate@example.com",
		Code:           code,
		Link:           "https://studentai.in/ai-course?ref=" + code,
		CommissionRate: rate,
		IsActive:       true,
	}
	require.NoError(t, db.Create(&affiliate).Error)
	require.NoError(t, db.Create(&models.AffiliateCode{Code: code, UID: affiliate.UserID}).Error)

	return &affiliate
}

type orderOpts struct {
	total         int64
	affiliateCode string
	firstRefCode  string
	customerUID   *uuid.UUID
	isPrebook     bool
}

func createOrder(t *testing.T, db *gorm.DB, opts orderOpts) *models.Order {
	t.Helper()

	order := models.Order{
		Type:             "public",
		Status:           models.OrderStatusPending,
		IsPrebook:        opts.isPrebook,
		Total:            opts.total,
		CommissionStatus: models.CommissionUnsettled,
		CustomerUID:      opts.customerUID,
		CustomerName:     "Asha Rao",
		CustomerEmail:    "asha@example.com",
		ShippingLine1:    "12 MG Road",
		ShippingCity:     "Bengaluru",
		ShippingState:    "KA",
		ShippingPincode:  "560001",
		ShippingCountry:  "India",
		Items: []models.OrderItem{
			{
				ProductID:   "usb-16gb",
				ProductName: "USB 16GB + 1 Year AI Access",
				UnitPrice:   opts.total,
				Quantity:    1,
				LineTotal:   opts.total,
			},
		},
	}
	if opts.affiliateCode != "" {
		order.AffiliateCode = &opts.affiliateCode
	}
	if opts.firstRefCode != "" {
		order.FirstRefCode = &opts.firstRefCode
	}
	require.NoError(t, db.Create(&order).Error)

	return &order
}

type fakeMailer struct {
	sent []sentCode
	fail bool
}

type sentCode struct {
	to   string
	code string
}

func (m *fakeMailer) SendVerificationCode(to, code string) error {
	if m.fail {
		return errSendFailed
	}
	m.sent = append(m.sent, sentCode{to: to, code: code})
	return nil
}

var errSendFailed = errSentinel("send failed")

type errSentinel string

func (e errSentinel) Error() string { return string(e) }
