package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/afya-ehr/afya-backend/database"
	"github.com/afya-ehr/afya-backend/internal/jobs"
	"github.com/afya-ehr/afya-backend/internal/models"
	"github.com/afya-ehr/afya-backend/internal/routes"
	"github.com/afya-ehr/afya-backend/internal/services"
	"github.com/afya-ehr/afya-backend/internal/storage"
)

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("⚠️  No .env file found - checking environment variables")
		}
	}

	// Initialize storage
	var store storage.Store

	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		log.Println("📦 Connecting to database...")
		database.Connect()

		log.Println("🔄 Running database migrations...")
		err := database.DB.AutoMigrate(
			&models.Facility{},
			&models.Provider{},
			&models.Patient{},
			&models.MedicalRecord{},
			&models.Session{},
			&models.ActivityLog{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(database.DB)
	}

	storage.SetStore(store)

	// SMS is optional: without Twilio credentials the backend runs
	// with welcome messages disabled.
	smsService, err := services.NewSMSService()
	if err != nil {
		log.Printf("⚠️  SMS service not initialized: %v", err)
		smsService = nil
	} else {
		log.Println("✅ SMS service initialized")
	}

	// Initialize all services
	auditService := services.NewAuditService(store)
	sessionManager := services.NewSessionManager(store, auditService)
	recordService := services.NewRecordService(store, auditService, smsService)
	medicalMenu := services.NewMedicalMenu(sessionManager, recordService)
	ussdService := services.NewUssdService(sessionManager, recordService, medicalMenu, auditService)

	// Seed demo data on request
	if os.Getenv("SEED_SAMPLE_DATA") == "true" {
		if err := services.SeedSampleData(recordService); err != nil {
			log.Printf("⚠️  Seeding failed: %v", err)
		}
	}

	// Start the cleanup sweep
	cleanupJob := jobs.NewCleanupJob(sessionManager, recordService)
	cleanupJob.Start()

	log.Println("✅ All services initialized")

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "Afya Backend v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))

	// Setup routes
	routes.SetupRoutes(app, store, sessionManager, recordService, ussdService)

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		cleanupJob.Stop()
		_ = app.Shutdown()
	}()

	// Start server
	log.Println("========================================")
	log.Printf("🚀 Afya Backend starting on port %s", port)
	log.Printf("📊 Storage: %s", storageType())
	log.Printf("🌍 Environment: %s", environment())
	log.Printf("📨 SMS: %s", smsStatus(smsService))
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

func environment() string {
	if os.Getenv("INSTANCE_CONNECTION_NAME") != "" {
		return "Production (Cloud Run)"
	}
	return "Development (Local)"
}

func storageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Testing)"
	}
	if os.Getenv("DB_DRIVER") == "sqlite" {
		return "SQLite Database"
	}
	return "PostgreSQL Database"
}

func smsStatus(s *services.SMSService) string {
	if s == nil {
		return "Not configured"
	}
	return "Configured"
}
