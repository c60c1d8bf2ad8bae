package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/benoftheworld/instant-music/services"
)

type RoomHandler struct {
	rooms *services.RoomService
}

func NewRoomHandler(rooms *services.RoomService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

// errorStatus maps the service error taxonomy to HTTP statuses: bad
// input is 400, state conflicts are 409, permission problems are 403,
// upstream provider failures are 502.
func errorStatus(err error) int {
	if errors.Is(err, services.ErrRoomNotFound) {
		return http.StatusNotFound
	}
	var (
		validation *services.ValidationError
		state      *services.StateError
		authz      *services.AuthorizationError
		provider   *services.ProviderError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &state):
		return http.StatusConflict
	case errors.As(err, &authz):
		return http.StatusForbidden
	case errors.As(err, &provider):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	c.JSON(errorStatus(err), gin.H{"error": err.Error()})
}

func identity(c *gin.Context) (uint, string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return 0, "", false
	}
	username, _ := c.Get("username")
	name, _ := username.(string)
	return userID.(uint), name, true
}

func roomCode(c *gin.Context) string {
	return strings.ToUpper(strings.TrimSpace(c.Param("code")))
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID, username, ok := identity(c)
	if !ok {
		return
	}

	var req services.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.rooms.CreateRoom(userID, username, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (h *RoomHandler) JoinRoom(c *gin.Context) {
	userID, username, ok := identity(c)
	if !ok {
		return
	}

	player, err := h.rooms.JoinRoom(roomCode(c), userID, username)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, player)
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	snap, err := h.rooms.Room(roomCode(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.rooms.AvailableRooms()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *RoomHandler) StartRoom(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}

	room, err := h.rooms.StartRoom(c.Request.Context(), roomCode(c), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

type submitAnswerRequest struct {
	Answer       string  `json:"answer" binding:"required"`
	ResponseTime float64 `json:"response_time"`
}

func (h *RoomHandler) SubmitAnswer(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}

	var req submitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answer, err := h.rooms.SubmitAnswer(roomCode(c), userID, req.Answer, req.ResponseTime)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

func (h *RoomHandler) EndRound(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}

	results, err := h.rooms.EndRound(roomCode(c), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *RoomHandler) NextRound(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}

	round, err := h.rooms.NextRound(c.Request.Context(), roomCode(c), userID)
	if err != nil {
		fail(c, err)
		return
	}
	if round == nil {
		c.JSON(http.StatusOK, gin.H{"message": "Game finished"})
		return
	}
	c.JSON(http.StatusOK, round)
}

func (h *RoomHandler) CancelRoom(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}

	if err := h.rooms.CancelRoom(roomCode(c), userID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Room cancelled"})
}

func (h *RoomHandler) Results(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}

	final, rounds, err := h.rooms.Results(roomCode(c), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": final, "rounds": rounds})
}
