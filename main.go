// ~/Documents/CODING/puzzlearena/main.go
package main

import (
	"log"
	"os"
	"time"

	"puzzlearena/database"
	"puzzlearena/handlers"
	"puzzlearena/handlers/admin"
	"puzzlearena/middleware"
	"puzzlearena/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	// Validate critical environment variables
	validateEnvironment()

	// Initialize database
	database.InitDB()
	db := database.GetDB()

	// Shared event hub for live evaluation updates
	hub := services.NewEventHub()

	// Initialize handlers
	handlers.InitGameHandlers()
	handlers.InitLeaderboardHandlers()
	handlers.InitTeamHandlers()
	handlers.InitEventHandlers(hub)
	admin.InitEvaluationHandlers(hub)

	// Auto-pause questions whose time limit has run out
	services.InitCleanupService(db, services.NewTimeTracker(db))
	defer func() {
		if cleanupService := services.GetCleanupService(); cleanupService != nil {
			cleanupService.Stop()
		}
	}()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    1 * 1024 * 1024, // 1MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))

	// CORS configuration
	corsOrigins := os.Getenv("CORS_ORIGINS")
	if corsOrigins == "" {
		corsOrigins = "http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	// Apply rate limiting to all routes
	app.Use(middleware.RateLimitMiddleware())

	// API Routes
	api := app.Group("/api")

	// Auth routes with stricter rate limiting
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.AuthRateLimitMiddleware())
	authGroup.Post("/register", handlers.Register)
	authGroup.Post("/login", handlers.Login)

	// Team routes
	teamGroup := api.Group("/teams")
	teamGroup.Use(middleware.AuthMiddleware)
	teamGroup.Post("/", handlers.CreateTeam)
	teamGroup.Post("/join", handlers.JoinTeam)
	teamGroup.Get("/mine", handlers.GetMyTeam)
	teamGroup.Get("/:id", handlers.GetTeam)

	// Game routes (question timers, skips, hints)
	gameGroup := api.Group("/game")
	gameGroup.Use(middleware.AuthMiddleware)
	gameGroup.Post("/questions/:id/start", handlers.StartQuestion)
	gameGroup.Post("/questions/:id/pause", handlers.PauseQuestion)
	gameGroup.Post("/questions/:id/complete", handlers.CompleteQuestion)
	gameGroup.Post("/questions/:id/skip", handlers.SkipQuestion)
	gameGroup.Post("/questions/:id/hint", handlers.UseHint)
	gameGroup.Get("/questions/:id/remaining", handlers.GetRemainingTime)
	gameGroup.Get("/session", handlers.GetSession)

	// Leaderboard routes (public, gated on published results)
	leaderboardGroup := api.Group("/leaderboard")
	leaderboardGroup.Get("/:level", handlers.GetLeaderboard)

	// Admin routes
	adminGroup := api.Group("/admin")
	adminGroup.Post("/login", admin.Login)

	// Protected admin routes
	adminProtected := adminGroup.Group("")
	adminProtected.Use(middleware.AdminAuthMiddleware)
	adminProtected.Get("/verify", admin.VerifyToken)

	// Evaluation state machine
	adminProtected.Post("/levels/:level/close", admin.CloseSubmissions())
	adminProtected.Post("/levels/:level/reopen", admin.ReopenSubmissions())
	adminProtected.Post("/levels/:level/evaluate", admin.Evaluate())
	adminProtected.Post("/levels/:level/publish", admin.PublishResults())
	adminProtected.Post("/levels/:level/reset", admin.ResetEvaluation())
	adminProtected.Get("/levels/:level/status", admin.GetEvaluationStatus)
	adminProtected.Get("/levels/:level/audit", admin.GetAuditTrail)

	// Qualification cutoffs and overrides
	adminProtected.Put("/levels/:level/cutoff", admin.UpdateCutoff)
	adminProtected.Post("/levels/:level/teams/:teamId/override", admin.OverrideQualification)
	adminProtected.Delete("/levels/:level/teams/:teamId/override", admin.ClearQualificationOverride)

	// Disqualified board (admins see it regardless of publication)
	adminProtected.Get("/levels/:level/disqualified", handlers.GetDisqualified)

	// Game settings
	adminProtected.Get("/settings", admin.GetGameSettings)
	adminProtected.Put("/settings", admin.UpdateGameSettings)

	// WebSocket event feed
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(handlers.EventFeed))

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
			"version":   "1.0.0",
		})
	})

	// Start HTTP server
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Printf("🚀 HTTP server starting on port %s", port)
	log.Printf("📊 Environment: %s", getEnv("APP_ENV", "development"))
	log.Printf("🔐 JWT Secret configured: %v", os.Getenv("JWT_SECRET") != "")
	log.Printf("🌐 Event feed available at ws://localhost:%s/ws/events", port)

	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start HTTP server:", err)
	}
}

// validateEnvironment checks for required environment variables
func validateEnvironment() {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("FATAL: JWT_SECRET environment variable must be set. Generate one with: openssl rand -base64 64")
	}
	if len(jwtSecret) < 32 {
		log.Fatal("FATAL: JWT_SECRET must be at least 32 characters long")
	}

	appEnv := os.Getenv("APP_ENV")
	if appEnv == "production" {
		corsOrigins := os.Getenv("CORS_ORIGINS")
		if corsOrigins == "" || corsOrigins == "http://localhost:3000" {
			log.Println("WARNING: CORS_ORIGINS not properly configured for production")
		}
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Don't expose internal errors in production
	if os.Getenv("APP_ENV") == "production" && code == 500 {
		message = "An error occurred. Please try again later."
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
