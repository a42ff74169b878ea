package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/studentai/internal/models"
)

// UserHandler exposes user lookup endpoints used by the signin flow.
type UserHandler struct {
	db *gorm.DB
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

type lookupUIDRequest struct {
	Email string `json:"email"`
}

// LookupUID resolves an email address to a user id.
func (h *UserHandler) LookupUID(c *fiber.Ctx) error {
	var req lookupUIDRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email is required")
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"uid": user.ID})
}

type lookupEmailRequest struct {
	UID string `json:"uid"`
}

// LookupEmail resolves a user id to its email address.
func (h *UserHandler) LookupEmail(c *fiber.Ctx) error {
	var req lookupEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.UID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "uid is required")
	}

	uid, err := uuid.Parse(req.UID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid uid")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "user not found")
		}
		return err
	}

	email := ""
	if user.Email != nil {
		email = *user.Email
	}

	return c.JSON(fiber.Map{"email": email})
}
