package routes

import (
	"github.com/afya-ehr/afya-backend/internal/handlers"
	"github.com/afya-ehr/afya-backend/internal/middleware"
	"github.com/afya-ehr/afya-backend/internal/services"
	"github.com/afya-ehr/afya-backend/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, store storage.Store, sessions *services.SessionManager, records *services.RecordService, ussd *services.UssdService) {

	healthHandler := handlers.NewHealthHandler("1.0.0", sessions)
	ussdHandler := handlers.NewUssdHandler(ussd)
	facilityHandler := handlers.NewFacilityHandler(records)
	providerHandler := handlers.NewProviderHandler(records)
	patientHandler := handlers.NewPatientHandler(records)
	recordHandler := handlers.NewRecordHandler(records)
	adminHandler := handlers.NewAdminHandler(store, records, sessions)

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to Afya Backend!",
			"version": "1.0.0",
			"endpoints": fiber.Map{
				"health": "/health",
				"ussd":   "/ussd/callback",
				"api":    "/api",
				"admin":  "/admin",
			},
		})
	})

	app.Get("/health", healthHandler.Check)

	// USSD gateway callback
	app.Post("/ussd/callback", ussdHandler.HandleCallback)

	// API routes
	api := app.Group("/api")

	facilities := api.Group("/facilities")
	facilities.Post("/register", facilityHandler.Register)
	facilities.Get("/", facilityHandler.ListFacilities)
	facilities.Get("/:id", facilityHandler.GetFacility)

	providers := api.Group("/providers")
	providers.Post("/register", providerHandler.Register)
	providers.Get("/", providerHandler.ListProviders)
	providers.Get("/:id", providerHandler.GetProvider)

	patients := api.Group("/patients")
	patients.Post("/register", patientHandler.Register)
	patients.Get("/", patientHandler.ListPatients)
	patients.Get("/search", patientHandler.SearchPatients)
	patients.Get("/:id", patientHandler.GetPatient)
	patients.Get("/:id/records", patientHandler.GetPatientRecords)

	recordsGroup := api.Group("/records")
	recordsGroup.Post("/", recordHandler.Create)
	recordsGroup.Get("/recent", recordHandler.RecentRecords)
	recordsGroup.Get("/:id", recordHandler.GetRecord)

	// Admin routes behind bearer auth
	admin := app.Group("/admin")
	admin.Post("/login", adminHandler.Login)

	secured := admin.Group("", middleware.RequireAdmin())
	secured.Get("/dashboard", adminHandler.Dashboard)
	secured.Get("/logs", adminHandler.Logs)
	secured.Post("/seed", adminHandler.Seed)
	secured.Post("/cleanup", adminHandler.Cleanup)
	secured.Patch("/facilities/:id/status", facilityHandler.ToggleStatus)
	secured.Patch("/providers/:id/status", providerHandler.ToggleStatus)
	secured.Patch("/providers/:id/pin", providerHandler.ResetPin)
}
