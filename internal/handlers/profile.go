package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/studentai/internal/middleware"
	"github.com/example/studentai/internal/models"
)

// ProfileHandler manages user profile and address-book endpoints.
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

// GetProfile returns the authenticated user's profile.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"uid":                user.ID,
			"email":              user.Email,
			"phone":              user.Phone,
			"user_type":          user.UserType,
			"is_verified":        user.IsVerified,
			"default_address_id": user.DefaultAddressID,
			"created_at":         user.CreatedAt,
		},
	})
}

// ListAddresses returns the user's address book.
func (h *ProfileHandler) ListAddresses(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var addresses []models.UserAddress
	if err := h.db.Where("user_id = ?", userID).Find(&addresses).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": addresses})
}

type addressRequest struct {
	FullName     string `json:"full_name"`
	Phone        string `json:"phone"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
	Country      string `json:"country"`
	Landmark     string `json:"landmark"`
	ContactEmail string `json:"contact_email"`
	IsDefault    bool   `json:"is_default"`
}

// CreateAddress adds an address to the user's address book.
func (h *ProfileHandler) CreateAddress(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req addressRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.FullName == "" || req.AddressLine1 == "" || req.City == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing required fields")
	}

	address := models.UserAddress{
		UserID:       userID,
		FullName:     req.FullName,
		Phone:        req.Phone,
		AddressLine1: req.AddressLine1,
		AddressLine2: req.AddressLine2,
		City:         req.City,
		State:        req.State,
		Pincode:      req.Pincode,
		Country:      req.Country,
		Landmark:     req.Landmark,
		ContactEmail: req.ContactEmail,
	}

	if err := h.db.Create(&address).Error; err != nil {
		return err
	}

	if req.IsDefault {
		if err := h.setDefault(userID, address.ID); err != nil {
			return err
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": address})
}

// UpdateAddress updates an address. When the updated address is the user's
// default and carries a contact email, the affiliate record's email is kept
// in sync.
func (h *ProfileHandler) UpdateAddress(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	addressID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req addressRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var address models.UserAddress
	if err := h.db.First(&address, "id = ? AND user_id = ?", addressID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "address not found")
		}
		return err
	}

	updates := map[string]interface{}{
		"full_name":     req.FullName,
		"phone":         req.Phone,
		"address_line1": req.AddressLine1,
		"address_line2": req.AddressLine2,
		"city":          req.City,
		"state":         req.State,
		"pincode":       req.Pincode,
		"country":       req.Country,
		"landmark":      req.Landmark,
		"contact_email": req.ContactEmail,
		"updated_at":    time.Now(),
	}

	if err := h.db.Model(&models.UserAddress{}).
		Where("id = ?", addressID).
		Updates(updates).Error; err != nil {
		return err
	}

	if req.ContactEmail != "" {
		var user models.User
		if err := h.db.First(&user, "id = ?", userID).Error; err == nil &&
			user.DefaultAddressID != nil && *user.DefaultAddressID == addressID {
			if err := h.db.Model(&models.Affiliate{}).
				Where("user_id = ?", userID).
				Update("email", req.ContactEmail).Error; err != nil {
				return err
			}
		}
	}

	if req.IsDefault {
		if err := h.setDefault(userID, addressID); err != nil {
			return err
		}
	}

	return c.JSON(fiber.Map{"ok": true, "message": "Address updated successfully"})
}

// DeleteAddress removes an address; a deleted default is unset on the user.
func (h *ProfileHandler) DeleteAddress(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	addressID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	result := h.db.Delete(&models.UserAddress{}, "id = ? AND user_id = ?", addressID, userID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "address not found")
	}

	if err := h.db.Model(&models.User{}).
		Where("id = ? AND default_address_id = ?", userID, addressID).
		Update("default_address_id", nil).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true})
}

// SetDefaultAddress marks an address as the user's default.
func (h *ProfileHandler) SetDefaultAddress(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	addressID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var address models.UserAddress
	if err := h.db.First(&address, "id = ? AND user_id = ?", addressID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "address not found")
		}
		return err
	}

	if err := h.setDefault(userID, addressID); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true})
}

func (h *ProfileHandler) setDefault(userID, addressID uuid.UUID) error {
	return h.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("default_address_id", addressID).Error
}
