package store

import (
	"errors"

	"github.com/benoftheworld/instant-music/models"
)

// Sentinel errors returned by Store implementations. Uniqueness violations
// are reported as their own errors so the services layer can turn a racy
// duplicate insert into a clean rejection.
var (
	ErrNotFound        = errors.New("store: not found")
	ErrDuplicateCode   = errors.New("store: room code already exists")
	ErrDuplicatePlayer = errors.New("store: player already in room")
	ErrDuplicateAnswer = errors.New("store: answer already recorded for round")
)

// Store is the persistence contract for rooms, players, rounds and
// answers. Implementations must enforce the unique indexes on room code,
// (room, user), (room, round number) and (round, player) atomically with
// the insert.
type Store interface {
	CreateRoom(room *models.Room) error
	RoomByCode(code string) (*models.Room, error)
	RoomByID(id string) (*models.Room, error)
	SaveRoom(room *models.Room) error
	RoomsByStatus(status models.RoomStatus) ([]models.Room, error)
	CodeExists(code string) (bool, error)

	CreatePlayer(player *models.Player) error
	PlayerByRoomUser(roomID string, userID uint) (*models.Player, error)
	// PlayersByRoom returns the room's players ordered by join time.
	PlayersByRoom(roomID string) ([]models.Player, error)
	SavePlayer(player *models.Player) error
	AddScore(playerID uint, points int) error
	CountPlayers(roomID string) (int, error)

	CreateRounds(rounds []models.Round) error
	// ActiveRound returns the room's started-but-not-ended round, or
	// ErrNotFound when no round is in flight.
	ActiveRound(roomID string) (*models.Round, error)
	// NextPendingRound returns the lowest-numbered round that has not
	// started yet, or ErrNotFound.
	NextPendingRound(roomID string) (*models.Round, error)
	RoundsByRoom(roomID string) ([]models.Round, error)
	SaveRound(round *models.Round) error

	CreateAnswer(answer *models.Answer) error
	AnswersByRound(roundID uint) ([]models.Answer, error)
	CountAnswers(roundID uint) (int, error)
	CountCorrectAnswers(roundID uint) (int, error)
	// CountCorrectByPlayer counts a player's correct answers across all of
	// a room's rounds (used for the perfect-game fact).
	CountCorrectByPlayer(roomID string, playerID uint) (int, error)
}
