package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/mfedorov/scribe/pkg/scribe/admin"
	"github.com/mfedorov/scribe/pkg/scribe/auth"
	"github.com/mfedorov/scribe/pkg/scribe/config"
	"github.com/mfedorov/scribe/pkg/scribe/database"
	"github.com/mfedorov/scribe/pkg/scribe/feedcache"
	"github.com/mfedorov/scribe/pkg/scribe/follows"
	"github.com/mfedorov/scribe/pkg/scribe/groups"
	"github.com/mfedorov/scribe/pkg/scribe/models"
	"github.com/mfedorov/scribe/pkg/scribe/posts"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/mfedorov/scribe/api/swagger"
)

// @title Scribe API
// @version 1.0
// @description A blog and social feed service: publish posts, browse group and author feeds, comment, and follow authors.

// @contact.name Scribe Support
// @contact.url https://github.com/mfedorov/scribe

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := database.Connect(cfg.DBPath); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run auto-migrations
	if err := models.AutoMigrate(database.GetDB()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Create default admin user if no admin exists
	if err := ensureAdminExists(); err != nil {
		log.Fatalf("Failed to ensure admin user exists: %v", err)
	}

	// The global feed is cached once rendered and only ever ages out or is
	// cleared by an admin; post writes do not invalidate it.
	feedCache := feedcache.New(cfg.FeedCacheTTL)

	// Set up Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Uploaded post images
	r.Static("/media", cfg.MediaDir)

	// API routes
	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"service": "scribe",
			})
		})

		// Auth routes (public)
		authHandler := auth.NewHandler(database.GetDB(), cfg.TokenValidity)
		authHandler.RegisterRoutes(api.Group("/auth"))

		// Feed, profile, and post routes
		postsHandler := posts.NewHandler(database.GetDB(), feedCache, cfg.MediaDir,
			cfg.IndexPageSize, cfg.ProfilePageSize)
		postsHandler.RegisterRoutes(api.Group(""))
		postsHandler.RegisterAuthedRoutes(api.Group("", auth.AuthMiddleware()))

		// Group routes (public)
		groupsHandler := groups.NewHandler(database.GetDB(), cfg.GroupPageSize)
		groupsHandler.RegisterRoutes(api.Group(""))

		// Follow routes (protected)
		followsHandler := follows.NewHandler(database.GetDB(), cfg.IndexPageSize)
		followsHandler.RegisterRoutes(api.Group("", auth.AuthMiddleware()))

		// Admin routes (JWT only, admin role required)
		adminHandler := admin.NewHandler(database.GetDB(), feedCache)
		adminGroup := api.Group("/admin")
		adminGroup.Use(auth.AuthMiddleware(), auth.RequireAdmin())
		adminHandler.RegisterRoutes(adminGroup)
	}

	log.Printf("Starting Scribe server on :%s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// ensureAdminExists creates a default admin user if no admin exists in the
// database.
func ensureAdminExists() error {
	db := database.GetDB()

	// Check if any admin user exists
	var count int64
	if err := db.Model(&models.User{}).Where("system_role = ?", models.SystemRoleAdmin).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil // Admin already exists
	}

	// Create default admin user
	hashedPassword, err := auth.HashPassword("changeme")
	if err != nil {
		return err
	}

	adminUser := models.User{
		Username:     "admin",
		Email:        "admin@scribe.local",
		Name:         "Admin",
		PasswordHash: hashedPassword,
		SystemRole:   models.SystemRoleAdmin,
	}

	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	log.Printf("Created default admin user: admin (password: changeme)")
	return nil
}
