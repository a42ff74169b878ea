package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/studentai/internal/models"
)

// Payment-method marker written by the stubbed confirmation channel.
const ConfirmPaymentMethod = "TEST"

// ErrOrderNotFound means the order id did not match any order.
var ErrOrderNotFound = errors.New("order not found")

// SettlementResult reports the outcome of a confirm call. Replayed is set
// when the order had already been settled and the stored values were
// returned untouched.
type SettlementResult struct {
	Credited   bool  `json:"credited"`
	Commission int64 `json:"commission"`
	Replayed   bool  `json:"-"`
}

// SettlementService marks orders paid and credits affiliate commissions.
// Confirm is safe to call any number of times per order: the paid
// transition is a conditional update claimed by exactly one caller, and
// only the claimant credits the affiliate and sends the confirmation email.
type SettlementService struct {
	db         *gorm.DB
	affiliates *AffiliateService
	mailer     *MailerService
}

// NewSettlementService constructs a SettlementService.
func NewSettlementService(db *gorm.DB, affiliates *AffiliateService, mailer *MailerService) *SettlementService {
	return &SettlementService{db: db, affiliates: affiliates, mailer: mailer}
}

// Confirm settles an order: resolves the referral, computes the commission,
// flips the order to paid and credits the affiliate in one transaction,
// then sends a best-effort confirmation email.
func (s *SettlementService) Confirm(ctx context.Context, orderID uuid.UUID) (*SettlementResult, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("load order: %w", err)
	}

	if order.Status == models.OrderStatusPaid {
		return replayResult(&order), nil
	}

	commission, commissionStatus, affiliateUID, err := s.settle(ctx, &order)
	if err != nil {
		return nil, err
	}
	credited := commissionStatus == models.CommissionCredited

	raced := false
	now := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Claim the pending->paid transition. A concurrent confirm that
		// got here first leaves zero rows for us, and we fall back to
		// replaying its committed values.
		result := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
			Updates(map[string]interface{}{
				"status":            models.OrderStatusPaid,
				"paid_at":           &now,
				"payment_method":    ConfirmPaymentMethod,
				"commission":        commission,
				"commission_status": commissionStatus,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			raced = true
			return nil
		}

		if credited {
			return s.affiliates.Credit(tx, affiliateUID, order.Total, commission)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("settle order: %w", err)
	}

	if raced {
		var settled models.Order
		if err := s.db.WithContext(ctx).First(&settled, "id = ?", order.ID).Error; err != nil {
			return nil, fmt.Errorf("reload order: %w", err)
		}
		return replayResult(&settled), nil
	}

	s.sendConfirmationEmail(&order, commission)

	return &SettlementResult{Credited: credited, Commission: commission}, nil
}

// settle decides the commission branch for a pending order. Returns the
// commission amount, the commission status and, for the credited branch,
// the affiliate to pay.
func (s *SettlementService) settle(ctx context.Context, order *models.Order) (int64, string, uuid.UUID, error) {
	if order.IsPrebook {
		return 0, models.CommissionNotApplicable, uuid.Nil, nil
	}

	code := referralCode(order)
	if code == "" || order.Total <= 0 {
		return 0, models.CommissionUnsettled, uuid.Nil, nil
	}

	affiliateUID, err := s.affiliates.ResolveCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrAffiliateNotFound) {
			return 0, models.CommissionUnsettled, uuid.Nil, nil
		}
		return 0, "", uuid.Nil, err
	}

	if order.CustomerUID != nil && *order.CustomerUID == affiliateUID {
		return 0, models.CommissionSkippedSelf, uuid.Nil, nil
	}

	commission, err := s.affiliates.CommissionFor(ctx, affiliateUID, order.Total)
	if err != nil {
		return 0, "", uuid.Nil, err
	}

	return commission, models.CommissionCredited, affiliateUID, nil
}

// referralCode picks the order's usable referral code: the explicit
// affiliate code first, then the first-touch code captured at checkout.
func referralCode(order *models.Order) string {
	if order.AffiliateCode != nil {
		if code := NormalizeCode(*order.AffiliateCode); code != "" {
			return code
		}
	}
	if order.FirstRefCode != nil {
		return NormalizeCode(*order.FirstRefCode)
	}
	return ""
}

func replayResult(order *models.Order) *SettlementResult {
	return &SettlementResult{
		Credited:   order.CommissionStatus == models.CommissionCredited,
		Commission: order.Commission,
		Replayed:   true,
	}
}

// sendConfirmationEmail notifies the customer. Failures are logged and
// swallowed: the paid transition already committed and is the authoritative
// success signal.
func (s *SettlementService) sendConfirmationEmail(order *models.Order, commission int64) {
	if s.mailer == nil || order.CustomerEmail == "" {
		return
	}

	orderType := "Affiliate"
	if order.IsPrebook {
		orderType = "Prebook"
	} else if order.Type == "public" {
		orderType = "Public"
	}

	names := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		names = append(names, item.ProductName)
	}

	commissionLine := ""
	if !order.IsPrebook {
		if commission > 0 {
			commissionLine = fmt.Sprintf("<p><b>Referral Commission:</b> ₹%d</p>", commission)
		} else {
			commissionLine = "<p><b>Referral Commission:</b> ₹0 (No referral code applied)</p>"
		}
	}

	subject := fmt.Sprintf("Your Student AI %s order is confirmed — #%s",
		strings.ToLower(orderType), order.ID)

	html := fmt.Sprintf(`
		<div style="font-family:Inter,system-ui,Arial,sans-serif;max-width:560px;margin:auto;padding:20px">
			<h2>Thanks for your %[1]s order! 🎉</h2>
			<p>Your %[1]s order <b>#%[2]s</b> has been confirmed and payment received.</p>
			<p><b>Product(s):</b> %[3]s</p>
			<p><b>Total Amount:</b> ₹%[4]d</p>
			%[5]s
			<hr/>
			<p><b>Delivery Address:</b></p>
			<p>%[6]s<br/>%[7]s<br/>%[8]s, %[9]s %[10]s<br/>%[11]s</p>
			<hr/>
			<p>You can track your order anytime using this ID: <b>%[2]s</b>.</p>
			<p>Keep this for your records. If you have questions, just reply to this email.</p>
			<p style="margin-top:24px">— Student AI Team</p>
		</div>
	`,
		strings.ToLower(orderType),
		order.ID,
		strings.Join(names, ", "),
		order.Total,
		commissionLine,
		order.CustomerName,
		order.ShippingLine1,
		order.ShippingCity,
		order.ShippingState,
		order.ShippingPincode,
		order.ShippingCountry,
	)

	if err := s.mailer.Send(order.CustomerEmail, subject, html); err != nil {
		log.Printf("[Settlement] Confirmation email for order %s failed: %v", order.ID, err)
	}
}
