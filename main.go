package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/benoftheworld/instant-music/config"
	"github.com/benoftheworld/instant-music/handlers"
	"github.com/benoftheworld/instant-music/middleware"
	"github.com/benoftheworld/instant-music/models"
	"github.com/benoftheworld/instant-music/providers"
	"github.com/benoftheworld/instant-music/routes"
	"github.com/benoftheworld/instant-music/services"
	"github.com/benoftheworld/instant-music/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database models
	err = db.AutoMigrate(
		&models.Room{},
		&models.Player{},
		&models.Round{},
		&models.Answer{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis and the provider cache
	redisClient := config.InitRedis(cfg)
	cache := providers.NewRedisCache(redisClient)

	// Initialize providers
	catalog := providers.NewDeezerCatalog(cache)
	lyrics := providers.NewLRCLibLyrics(cache)

	// Initialize services
	st := store.NewGormStore(db)
	generator := services.NewGenerator(catalog, lyrics)
	evaluator := services.NewEvaluator()

	// Initialize WebSocket hub
	hub := services.NewHub()

	roomService := services.NewRoomService(st, generator, evaluator, hub, nil)
	hub.SetConnectionHandler(roomService)
	go hub.Run()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(cfg.JWTSecret)
	roomHandler := handlers.NewRoomHandler(roomService)

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(router, authHandler, roomHandler, hub, roomService, cfg.JWTSecret)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
