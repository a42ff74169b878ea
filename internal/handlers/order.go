package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/studentai/internal/middleware"
	"github.com/example/studentai/internal/models"
	"github.com/example/studentai/internal/services"
	"github.com/example/studentai/internal/utils"
)

// Cookie carrying the first-touch referral code, set by the click tracker.
const refCookieName = "ref"

// OrderHandler manages order endpoints.
type OrderHandler struct {
	db         *gorm.DB
	settlement *services.SettlementService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(db *gorm.DB, settlement *services.SettlementService) *OrderHandler {
	return &OrderHandler{db: db, settlement: settlement}
}

type orderItemRequest struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int    `json:"quantity"`
}

type orderAddressRequest struct {
	AddressLine  string `json:"addressLine"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
	Country      string `json:"country"`
	Landmark     string `json:"landmark"`
}

type orderCustomerRequest struct {
	Name    string              `json:"name"`
	Email   string              `json:"email"`
	Phone   string              `json:"phone"`
	Address orderAddressRequest `json:"address"`
}

type createOrderRequest struct {
	Items         []orderItemRequest   `json:"items"`
	Customer      orderCustomerRequest `json:"customer"`
	CustomerUID   string               `json:"customer_uid"`
	AffiliateCode string               `json:"affiliateCode"`
	FirstRefCode  string               `json:"firstRefCode"`
	IsPrebook     bool                 `json:"is_prebook"`
}

// CreateOrder records a pending guest-checkout order. The customer block is
// stored as a snapshot; totals are computed server-side from the items.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"ok": false, "error": "Invalid JSON in request body",
		})
	}

	if len(req.Items) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"ok": false, "error": "Order must contain at least one item",
		})
	}

	order := models.Order{
		Type:             "public",
		Status:           models.OrderStatusPending,
		IsPrebook:        req.IsPrebook,
		CommissionStatus: models.CommissionUnsettled,
		CustomerName:     req.Customer.Name,
		CustomerEmail:    req.Customer.Email,
		CustomerPhone:    req.Customer.Phone,
		ShippingLine1:    req.Customer.Address.AddressLine,
		ShippingLine2:    req.Customer.Address.AddressLine2,
		ShippingCity:     req.Customer.Address.City,
		ShippingState:    req.Customer.Address.State,
		ShippingPincode:  req.Customer.Address.Pincode,
		ShippingCountry:  req.Customer.Address.Country,
		ShippingLandmark: req.Customer.Address.Landmark,
	}

	if req.CustomerUID != "" {
		if uid, err := uuid.Parse(req.CustomerUID); err == nil {
			order.CustomerUID = &uid
		}
	}

	// Attribution precedence: explicit code, then the first-touch code from
	// the request, then the ref cookie set by the click tracker.
	if code := services.NormalizeCode(req.AffiliateCode); code != "" {
		order.AffiliateCode = &code
	}
	firstRef := services.NormalizeCode(req.FirstRefCode)
	if firstRef == "" {
		firstRef = services.NormalizeCode(c.Cookies(refCookieName))
	}
	if firstRef != "" {
		order.FirstRefCode = &firstRef
	}

	var total int64
	for _, item := range req.Items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		lineTotal := item.UnitPrice * int64(qty)
		total += lineTotal
		order.Items = append(order.Items, models.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			Quantity:    qty,
			LineTotal:   lineTotal,
		})
	}
	order.Total = total

	if err := h.db.Create(&order).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"ok": true, "orderId": order.ID})
}

type confirmOrderRequest struct {
	OrderID string `json:"orderId"`
}

// Confirm settles an order: marks it paid, credits the referring affiliate
// exactly once and emails the customer. Safe to retry.
func (h *OrderHandler) Confirm(c *fiber.Ctx) error {
	var req confirmOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"ok": false, "error": "Invalid JSON in request body",
		})
	}

	if req.OrderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"ok": false, "error": "Missing orderId",
		})
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"ok": false, "error": "Invalid orderId",
		})
	}

	result, err := h.settlement.Confirm(c.Context(), orderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"ok": false, "error": "Order not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"ok": false, "error": "Server error",
		})
	}

	if result.Replayed {
		return c.JSON(fiber.Map{
			"ok":         true,
			"message":    "Order already paid",
			"credited":   result.Credited,
			"commission": result.Commission,
		})
	}

	return c.JSON(fiber.Map{
		"ok":         true,
		"credited":   result.Credited,
		"commission": result.Commission,
	})
}

// GetOrder returns a single order by id, used for order tracking.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var order models.Order
	if err := h.db.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

// ListOrders returns the authenticated user's orders.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Order{}).Where("customer_uid = ?", userID)

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := query.Preload("Items").
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}
