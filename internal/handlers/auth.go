package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/studentai/internal/config"
	"github.com/example/studentai/internal/models"
	"github.com/example/studentai/internal/services"
	"github.com/example/studentai/internal/utils"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	db           *gorm.DB
	cfg          *config.Config
	verification *services.VerificationService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, verification *services.VerificationService) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg, verification: verification}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	UserType string `json:"user_type"`
}

func validUserType(t string) bool {
	switch t {
	case models.UserTypeConsultant, models.UserTypeBookstore, models.UserTypeFreelance:
		return true
	}
	return false
}

// Register creates a new user account and emails a verification code.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email and password required")
	}
	if req.UserType != "" && !validUserType(req.UserType) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user type")
	}

	var existing models.User
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return fiber.NewError(fiber.StatusConflict, "user already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	user := models.User{
		Email:        &req.Email,
		UserType:     req.UserType,
		PasswordHash: passwordHash,
		IsVerified:   false,
	}

	if err := h.db.Create(&user).Error; err != nil {
		return err
	}

	if err := h.verification.IssueCode(c.Context(), user.ID, req.Email); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to send verification email")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"user": fiber.Map{
			"uid":       user.ID,
			"email":     req.Email,
			"user_type": user.UserType,
		},
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates an existing user. Unverified users get a fresh
// verification code instead of a session token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
		}
		return err
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	if !user.IsVerified {
		if err := h.verification.IssueCode(c.Context(), user.ID, req.Email); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to send verification email")
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success":            false,
			"needs_verification": true,
			"uid":                user.ID,
		})
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user": fiber.Map{
			"uid":       user.ID,
			"email":     user.Email,
			"user_type": user.UserType,
		},
		"token": token,
	})
}

type sendVerificationRequest struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// SendVerification issues (or re-issues) a verification code.
func (h *AuthHandler) SendVerification(c *fiber.Ctx) error {
	var req sendVerificationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.UID == "" || req.Email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "uid and email required")
	}

	uid, err := uuid.Parse(req.UID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid uid")
	}

	if err := h.verification.IssueCode(c.Context(), uid, req.Email); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to send verification email")
	}

	return c.JSON(fiber.Map{"success": true})
}

type verifyCodeRequest struct {
	UID  string `json:"uid"`
	Code string `json:"code"`
}

// VerifyCode checks a submitted verification code.
func (h *AuthHandler) VerifyCode(c *fiber.Ctx) error {
	var req verifyCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.UID == "" || req.Code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "uid and code required")
	}

	uid, err := uuid.Parse(req.UID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid uid")
	}

	if err := h.verification.CheckCode(c.Context(), uid, req.Code); err != nil {
		switch {
		case errors.Is(err, services.ErrVerificationNotFound):
			return fiber.NewError(fiber.StatusNotFound, "No verification request found")
		case errors.Is(err, services.ErrCodeExpired):
			return fiber.NewError(fiber.StatusGone, "Code expired. Please request a new one.")
		case errors.Is(err, services.ErrTooManyAttempts):
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many attempts. Please request a new code.")
		case errors.Is(err, services.ErrCodeMismatch):
			return fiber.NewError(fiber.StatusBadRequest, "Invalid code.")
		default:
			return fiber.NewError(fiber.StatusInternalServerError, "Database access error. Please try again.")
		}
	}

	return c.JSON(fiber.Map{"success": true})
}

type autoSigninRequest struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// AutoSignin issues a session token for an already-verified user, used
// right after verification completes.
func (h *AuthHandler) AutoSignin(c *fiber.Ctx) error {
	var req autoSigninRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.UID == "" || req.Email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "uid and email required")
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

	if !user.IsVerified {
		return fiber.NewError(fiber.StatusBadRequest, "user not verified")
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	email := ""
	if user.Email != nil {
		email = *user.Email
	}

	return c.JSON(fiber.Map{
		"success": true,
		"token":   token,
		"user": fiber.Map{
			"uid":         user.ID,
			"email":       email,
			"user_type":   user.UserType,
			"is_verified": user.IsVerified,
		},
	})
}
