package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/studentai/internal/middleware"
	"github.com/example/studentai/internal/models"
	"github.com/example/studentai/internal/services"
)

// AffiliateHandler manages affiliate account and tracking endpoints.
type AffiliateHandler struct {
	db         *gorm.DB
	affiliates *services.AffiliateService
}

// NewAffiliateHandler constructs AffiliateHandler.
func NewAffiliateHandler(db *gorm.DB, affiliates *services.AffiliateService) *AffiliateHandler {
	return &AffiliateHandler{db: db, affiliates: affiliates}
}

type generateCodeRequest struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// GenerateCode creates an affiliate account with a fresh referral code for
// the authenticated user.
func (h *AffiliateHandler) GenerateCode(c *fiber.Ctx) error {
	currentUID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req generateCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.UID == "" || req.Email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "uid and email are required")
	}

	uid, err := uuid.Parse(req.UID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid uid")
	}
	if uid != currentUID {
		return fiber.NewError(fiber.StatusForbidden, "uid does not match token")
	}

	affiliate, err := h.affiliates.GenerateCode(c.Context(), uid, req.Email)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate affiliate code")
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"affiliate": affiliate,
		"message":   "Affiliate code generated successfully",
	})
}

// GetData returns the affiliate record for the authenticated user.
func (h *AffiliateHandler) GetData(c *fiber.Ctx) error {
	currentUID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	uidParam := c.Query("uid")
	if uidParam == "" {
		return fiber.NewError(fiber.StatusBadRequest, "uid is required")
	}

	uid, err := uuid.Parse(uidParam)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid uid")
	}
	if uid != currentUID {
		return fiber.NewError(fiber.StatusForbidden, "uid does not match token")
	}

	affiliate, err := h.affiliates.Get(c.Context(), uid)
	if err != nil {
		if errors.Is(err, services.ErrAffiliateNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, "affiliate not found")
		}
		return err
	}

	return c.JSON(affiliate)
}

// Delete removes the authenticated user's affiliate account and its code
// mappings.
func (h *AffiliateHandler) Delete(c *fiber.Ctx) error {
	currentUID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	if err := h.affiliates.DeleteAffiliate(c.Context(), currentUID); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to delete affiliate")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Affiliate link deleted successfully",
	})
}

// Orders reports the orders referred by the authenticated user's code,
// with earnings summed from the commissions actually settled.
func (h *AffiliateHandler) Orders(c *fiber.Ctx) error {
	currentUID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	affiliate, err := h.affiliates.Get(c.Context(), currentUID)
	if err != nil {
		if errors.Is(err, services.ErrAffiliateNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, "affiliate not found")
		}
		return err
	}

	var orders []models.Order
	if err := h.db.Preload("Items").
		Where("affiliate_code = ?", affiliate.Code).
		Order("created_at desc").
		Find(&orders).Error; err != nil {
		return err
	}

	var totalCommission int64
	for _, order := range orders {
		if order.CommissionStatus == models.CommissionCredited {
			totalCommission += order.Commission
		}
	}

	return c.JSON(fiber.Map{
		"totalCommission": totalCommission,
		"totalOrders":     len(orders),
		"orders":          orders,
	})
}

// TrackClick records a referral link visit and drops a first-touch cookie
// so a later checkout can attribute the sale.
func (h *AffiliateHandler) TrackClick(c *fiber.Ctx) error {
	code := services.NormalizeCode(c.Query("ref"))
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"ok": false, "error": "Missing ref",
		})
	}

	if err := h.affiliates.RecordClick(c.Context(), code, c.IP(), c.Get("User-Agent")); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"ok": false, "error": "Server error",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:    refCookieName,
		Value:   code,
		Expires: time.Now().Add(30 * 24 * time.Hour),
	})

	return c.JSON(fiber.Map{"ok": true})
}
