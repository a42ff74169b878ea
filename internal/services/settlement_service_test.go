package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/studentai/internal/models"
)

func newSettlement(db *gorm.DB) *SettlementService {
	affiliates := NewAffiliateService(db, "https://studentai.in/ai-course")
	return NewSettlementService(db, affiliates, nil)
}

func reloadOrder(t *testing.T, db *gorm.DB, id uuid.UUID) *models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, db.First(&order, "id = ?", id).Error)
	return &order
}

func reloadAffiliate(t *testing.T, db *gorm.DB, uid uuid.UUID) *models.Affiliate {
	t.Helper()
	var affiliate models.Affiliate
	require.NoError(t, db.First(&affiliate, "user_id = ?", uid).Error)
	return &affiliate
}

func TestConfirmCreditsAffiliate(t *testing.T) {
	db := setupTestDB(t)
	svc := newSettlement(db)

	affiliate := createAffiliate(t, db, "REF12345", nil)
	order := createOrder(t, db, orderOpts{total: 1000, affiliateCode: "REF12345"})

	result, err := svc.Confirm(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, result.Credited)
	assert.Equal(t, int64(100), result.Commission)
	assert.False(t, result.Replayed)

	settled := reloadOrder(t, db, order.ID)
	assert.Equal(t, models.OrderStatusPaid, settled.Status)
	assert.Equal(t, ConfirmPaymentMethod, settled.PaymentMethod)
	assert.NotNil(t, settled.PaidAt)
	assert.Equal(t, int64(100), settled.Commission)
	assert.Equal(t, models.CommissionCredited, settled.CommissionStatus)

	credited := reloadAffiliate(t, db, affiliate.UserID)
	assert.Equal(t, int64(1), credited.TotalOrders)
	assert.Equal(t, int64(100), credited.TotalCommissions)
	assert.Equal(t, int64(1000), credited.RevenueAttributed)
	assert.NotNil(t, credited.LastSaleAt)
}

func TestConfirmIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := newSettlement(db)
	ctx := context.Background()

	affiliate := createAffiliate(t, db, "REF12345", nil)
	order := createOrder(t, db, orderOpts{total: 1000, affiliateCode: "REF12345"})

	first, err := svc.Confirm(ctx, order.ID)
	require.NoError(t, err)

	second, err := svc.Confirm(ctx, order.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Credited, second.Credited)
	assert.Equal(t, first.Commission, second.Commission)
	assert.True(t, second.Replayed)

	// Exactly one credit regardless of how often confirm runs.
	credited := reloadAffiliate(t, db, affiliate.UserID)
	assert.Equal(t, int64(1), credited.TotalOrders)
	assert.Equal(t, int64(100), credited.TotalCommissions)
	assert.Equal(t, int64(1000), credited.RevenueAttributed)
}

func TestConfirmSelfReferralSkipped(t *testing.T) {
	db := setupTestDB(t)
	svc := newSettlement(db)

	affiliate := createAffiliate(t, db, "REF12345", nil)
	order := createOrder(t, db, orderOpts{
		total:         1000,
		affiliateCode: "REF12345",
		customerUID:   &affiliate.UserID,
	})

	result, err := svc.Confirm(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, result.Credited)
	assert.Equal(t, int64(0), result.Commission)

	settled := reloadOrder(t, db, order.ID)
	assert.Equal(t, models.OrderStatusPaid, settled.Status)
	assert.Equal(t, models.CommissionSkippedSelf, settled.CommissionStatus)

	untouched := reloadAffiliate(t, db, affiliate.UserID)
	assert.Equal(t, int64(0), untouched.TotalOrders)
	assert.Equal(t, int64(0), untouched.TotalCommissions)
}

func TestConfirmPrebookNotApplicable(t *testing.T) {
	db := setupTestDB(t)
	svc := newSettlement(db)

	affiliate := createAffiliate(t, db, "REF12345", nil)
	order := createOrder(t, db, orderOpts{
		total:         1000,
		affiliateCode: "REF12345",
		isPrebook:     true,
	})

	result, err := svc.Confirm(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, result.Credited)
	assert.Equal(t, int64(0), result.Commission)

	settled := reloadOrder(t, db, order.ID)
	assert.Equal(t, models.OrderStatusPaid, settled.Status)
	assert.Equal(t, models.CommissionNotApplicable, settled.CommissionStatus)

	untouched := reloadAffiliate(t, db, affiliate.UserID)
	assert.Equal(t, int64(0), untouched.TotalOrders)
}

func TestConfirmCommissionRounding(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		rate       *float64
		commission int64
	}{
		{name: "default rate", total: 1000, rate: nil, commission: 100},
		{name: "half rounds up", total: 999, rate: nil, commission: 100},
		{name: "override rate", total: 1000, rate: ptrFloat(0.15), commission: 150},
		{name: "small total", total: 4, rate: nil, commission: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			svc := newSettlement(db)

			createAffiliate(t, db, "REF12345", tt.rate)
			order := createOrder(t, db, orderOpts{total: tt.total, affiliateCode: "REF12345"})

			result, err := svc.Confirm(context.Background(), order.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.commission, result.Commission)
		})
	}
}

func TestConfirmZeroTotalUnsettled(t *testing.T) {
	db := setupTestDB(t)
	svc := newSettlement(db)

	affiliate := createAffiliate(t, db, "REF12345", nil)
	order := createOrder(t, db, orderOpts{total: 0, affiliateCode: "REF12345"})

	result, err := svc.Confirm(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, result.Credited)
	assert.Equal(t, int64(0), result.Commission)

	settled := reloadOrder(t, db, order.ID)
	assert.Equal(t, models.CommissionUnsettled, settled.CommissionStatus)

	untouched := reloadAffiliate(t, db, affiliate.UserID)
	assert.Equal(t, int64(0), untouched.TotalOrders)
}

func TestConfirmUnknownCodeUnsettled(t *testing.T) {
	db := setupTestDB(t)
	svc := newSettlement(db)

	order := createOrder(t, db, orderOpts{total: 1000, affiliateCode: "NOSUCH01"})

	result, err := svc.Confirm(context.Background(), order.ID)
	require.NoError(t, err)
	assert.False(t, result.Credited)

	settled := reloadOrder(t, db, order.ID)
	assert.Equal(t, models.OrderStatusPaid, settled.Status)
	assert.Equal(t, models.CommissionUnsettled, settled.CommissionStatus)
}

func TestConfirmFirstTouchFallback(t *testing.T) {
	db := setupTestDB(t)
	svc := newSettlement(db)

	createAffiliate(t, db, "REF12345", nil)
	order := createOrder(t, db, orderOpts{total: 1000, firstRefCode: "ref12345"})

	result, err := svc.Confirm(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, result.Credited)
	assert.Equal(t, int64(100), result.Commission)
}

func TestConfirmNormalizesCode(t *testing.T) {
	db := setupTestDB(t)
	svc := newSettlement(db)

	createAffiliate(t, db, "REF12345", nil)
	order := createOrder(t, db, orderOpts{total: 1000, affiliateCode: "  ref12345  "})

	result, err := svc.Confirm(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, result.Credited)
}

func TestConfirmOrderNotFound(t *testing.T) {
	db := setupTestDB(t)
	svc := newSettlement(db)

	_, err := svc.Confirm(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func ptrFloat(f float64) *float64 { return &f }
