package routes

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/benoftheworld/instant-music/handlers"
	"github.com/benoftheworld/instant-music/middleware"
	"github.com/benoftheworld/instant-music/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func SetupRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	roomHandler *handlers.RoomHandler,
	hub *services.Hub,
	rooms *services.RoomService,
	jwtSecret string,
) {
	api := router.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/guest", authHandler.Guest)
		}

		// Public room discovery
		api.GET("/rooms", roomHandler.ListRooms)
		api.GET("/rooms/:code", roomHandler.GetRoom)

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(jwtSecret))
		{
			roomsGroup := protected.Group("/rooms")
			{
				roomsGroup.POST("", roomHandler.CreateRoom)
				roomsGroup.POST("/:code/join", roomHandler.JoinRoom)
				roomsGroup.POST("/:code/start", roomHandler.StartRoom)
				roomsGroup.POST("/:code/answer", roomHandler.SubmitAnswer)
				roomsGroup.POST("/:code/end-round", roomHandler.EndRound)
				roomsGroup.POST("/:code/next", roomHandler.NextRound)
				roomsGroup.POST("/:code/cancel", roomHandler.CancelRoom)
				roomsGroup.GET("/:code/results", roomHandler.Results)
			}
		}
	}

	// WebSocket endpoint for real-time room broadcasts. The token rides
	// in the query string because browsers cannot set headers on a
	// websocket handshake.
	router.GET("/ws/:code", func(c *gin.Context) {
		code := strings.ToUpper(strings.TrimSpace(c.Param("code")))

		claims, err := middleware.ParseToken(jwtSecret, c.Query("token"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		if _, err := rooms.Room(code); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("websocket upgrade failed for room %s, user %d: %v", code, claims.UserID, err)
			return
		}

		hub.RegisterClient(conn, code, claims.UserID, claims.Username)
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
