package store

import (
	"errors"

	"gorm.io/gorm"

	"github.com/benoftheworld/instant-music/models"
)

// GormStore implements Store on a gorm-managed Postgres database. The
// uniqueness invariants live in the schema's unique indexes; this layer
// only translates the driver's duplicate-key errors.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CreateRoom(room *models.Room) error {
	if err := s.db.Create(room).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateCode
		}
		return err
	}
	return nil
}

func (s *GormStore) RoomByCode(code string) (*models.Room, error) {
	var room models.Room
	err := s.db.Where("code = ?", code).First(&room).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &room, nil
}

func (s *GormStore) RoomByID(id string) (*models.Room, error) {
	var room models.Room
	err := s.db.Where("id = ?", id).First(&room).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &room, nil
}

func (s *GormStore) SaveRoom(room *models.Room) error {
	return s.db.Save(room).Error
}

func (s *GormStore) RoomsByStatus(status models.RoomStatus) ([]models.Room, error) {
	var rooms []models.Room
	err := s.db.Where("status = ?", status).Order("created_at DESC").Find(&rooms).Error
	return rooms, err
}

func (s *GormStore) CodeExists(code string) (bool, error) {
	var count int64
	err := s.db.Model(&models.Room{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

func (s *GormStore) CreatePlayer(player *models.Player) error {
	if err := s.db.Create(player).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicatePlayer
		}
		return err
	}
	return nil
}

func (s *GormStore) PlayerByRoomUser(roomID string, userID uint) (*models.Player, error) {
	var player models.Player
	err := s.db.Where("room_id = ? AND user_id = ?", roomID, userID).First(&player).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &player, nil
}

func (s *GormStore) PlayersByRoom(roomID string) ([]models.Player, error) {
	var players []models.Player
	err := s.db.Where("room_id = ?", roomID).Order("joined_at ASC, id ASC").Find(&players).Error
	return players, err
}

func (s *GormStore) SavePlayer(player *models.Player) error {
	return s.db.Save(player).Error
}

func (s *GormStore) AddScore(playerID uint, points int) error {
	return s.db.Model(&models.Player{}).Where("id = ?", playerID).
		Update("score", gorm.Expr("score + ?", points)).Error
}

func (s *GormStore) CountPlayers(roomID string) (int, error) {
	var count int64
	err := s.db.Model(&models.Player{}).Where("room_id = ?", roomID).Count(&count).Error
	return int(count), err
}

func (s *GormStore) CreateRounds(rounds []models.Round) error {
	if len(rounds) == 0 {
		return nil
	}
	return s.db.Create(&rounds).Error
}

func (s *GormStore) ActiveRound(roomID string) (*models.Round, error) {
	var round models.Round
	err := s.db.Where("room_id = ? AND started_at IS NOT NULL AND ended_at IS NULL", roomID).
		Order("number ASC").First(&round).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &round, nil
}

func (s *GormStore) NextPendingRound(roomID string) (*models.Round, error) {
	var round models.Round
	err := s.db.Where("room_id = ? AND started_at IS NULL", roomID).
		Order("number ASC").First(&round).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &round, nil
}

func (s *GormStore) RoundsByRoom(roomID string) ([]models.Round, error) {
	var rounds []models.Round
	err := s.db.Where("room_id = ?", roomID).Order("number ASC").Find(&rounds).Error
	return rounds, err
}

func (s *GormStore) SaveRound(round *models.Round) error {
	return s.db.Save(round).Error
}

func (s *GormStore) CreateAnswer(answer *models.Answer) error {
	if err := s.db.Create(answer).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateAnswer
		}
		return err
	}
	return nil
}

func (s *GormStore) AnswersByRound(roundID uint) ([]models.Answer, error) {
	var answers []models.Answer
	err := s.db.Where("round_id = ?", roundID).Order("answered_at ASC, id ASC").Find(&answers).Error
	return answers, err
}

func (s *GormStore) CountAnswers(roundID uint) (int, error) {
	var count int64
	err := s.db.Model(&models.Answer{}).Where("round_id = ?", roundID).Count(&count).Error
	return int(count), err
}

func (s *GormStore) CountCorrectAnswers(roundID uint) (int, error) {
	var count int64
	err := s.db.Model(&models.Answer{}).
		Where("round_id = ? AND is_correct", roundID).Count(&count).Error
	return int(count), err
}

func (s *GormStore) CountCorrectByPlayer(roomID string, playerID uint) (int, error) {
	var count int64
	err := s.db.Model(&models.Answer{}).
		Joins("JOIN rounds ON rounds.id = answers.round_id").
		Where("rounds.room_id = ? AND answers.player_id = ? AND answers.is_correct", roomID, playerID).
		Count(&count).Error
	return int(count), err
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
