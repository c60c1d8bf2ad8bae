package handlers

import (
	"crypto/rand"
	"encoding/binary"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/benoftheworld/instant-music/middleware"
)

type AuthHandler struct {
	jwtSecret string
}

func NewAuthHandler(jwtSecret string) *AuthHandler {
	return &AuthHandler{jwtSecret: jwtSecret}
}

type guestRequest struct {
	Username string `json:"username" binding:"required,min=2,max=32"`
}

// Guest issues a token for an anonymous player. There are no accounts:
// the id minted here is the identity for the whole session, REST and
// websocket alike.
func (h *AuthHandler) Guest(c *gin.Context) {
	var req guestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := randomUserID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create identity"})
		return
	}
	token, err := middleware.GenerateToken(h.jwtSecret, userID, req.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"user_id":  userID,
		"username": req.Username,
	})
}

func randomUserID() (uint, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	id := binary.BigEndian.Uint32(buf[:])
	if id == 0 {
		id = 1
	}
	return uint(id), nil
}
