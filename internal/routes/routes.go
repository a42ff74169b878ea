package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/studentai/internal/config"
	"github.com/example/studentai/internal/handlers"
	"github.com/example/studentai/internal/middleware"
	"github.com/example/studentai/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	mailer := services.NewMailerService(
		cfg.EmailHost, cfg.EmailPort,
		cfg.EmailUser, cfg.EmailPass,
		cfg.EmailFromName, cfg.EmailFromAddress,
	)
	verification := services.NewVerificationService(db, mailer)
	affiliates := services.NewAffiliateService(db, cfg.AffiliateLinkBase)
	settlement := services.NewSettlementService(db, affiliates, mailer)

	authHandler := handlers.NewAuthHandler(db, cfg, verification)
	userHandler := handlers.NewUserHandler(db)
	productHandler := handlers.NewProductHandler(db)
	orderHandler := handlers.NewOrderHandler(db, settlement)
	affiliateHandler := handlers.NewAffiliateHandler(db, affiliates)
	profileHandler := handlers.NewProfileHandler(db)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/send-verification", authHandler.SendVerification)
	auth.Post("/verify-code", authHandler.VerifyCode)
	auth.Post("/auto-signin", authHandler.AutoSignin)

	// User lookups used by the signin flow
	users := api.Group("/users")
	users.Post("/uid", userHandler.LookupUID)
	users.Post("/email", userHandler.LookupEmail)

	// Catalog
	products := api.Group("/products")
	products.Get("/", productHandler.ListProducts)
	products.Get("/:id", productHandler.GetProduct)

	// Orders: guest checkout and tracking are public; confirmation is gated
	// by the shared confirm key.
	api.Post("/orders", orderHandler.CreateOrder)
	api.Get("/orders/:id", orderHandler.GetOrder)
	api.Post("/orders/confirm",
		middleware.ConfirmAuthMiddleware(cfg.ConfirmKey),
		orderHandler.Confirm)

	// Referral click tracking
	api.Get("/track-click", affiliateHandler.TrackClick)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	protected.Get("/my-orders", orderHandler.ListOrders)

	protected.Post("/affiliate/generate", affiliateHandler.GenerateCode)
	protected.Get("/affiliate", affiliateHandler.GetData)
	protected.Delete("/affiliate", affiliateHandler.Delete)
	protected.Get("/affiliate/orders", affiliateHandler.Orders)

	protected.Get("/profile", profileHandler.GetProfile)
	protected.Get("/profile/addresses", profileHandler.ListAddresses)
	protected.Post("/profile/addresses", profileHandler.CreateAddress)
	protected.Put("/profile/addresses/:id", profileHandler.UpdateAddress)
	protected.Delete("/profile/addresses/:id", profileHandler.DeleteAddress)
	protected.Post("/profile/addresses/:id/default", profileHandler.SetDefaultAddress)
}
