package store

import (
	"sort"
	"sync"
	"time"

	"github.com/benoftheworld/instant-music/models"
)

// MemStore implements Store with mutex-guarded maps. It enforces the same
// uniqueness invariants as the database schema and is used by tests and
// local single-process runs.
type MemStore struct {
	mu sync.Mutex

	rooms   map[string]models.Room
	players map[uint]models.Player
	rounds  map[uint]models.Round
	answers map[uint]models.Answer

	nextPlayerID uint
	nextRoundID  uint
	nextAnswerID uint
}

func NewMemStore() *MemStore {
	return &MemStore{
		rooms:        make(map[string]models.Room),
		players:      make(map[uint]models.Player),
		rounds:       make(map[uint]models.Round),
		answers:      make(map[uint]models.Answer),
		nextPlayerID: 1,
		nextRoundID:  1,
		nextAnswerID: 1,
	}
}

func (s *MemStore) CreateRoom(room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.rooms {
		if existing.Code == room.Code {
			return ErrDuplicateCode
		}
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}
	s.rooms[room.ID] = *room
	return nil
}

func (s *MemStore) RoomByCode(code string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, room := range s.rooms {
		if room.Code == code {
			r := room
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) RoomByID(id string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	r := room
	return &r, nil
}

func (s *MemStore) SaveRoom(room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rooms[room.ID] = *room
	return nil
}

func (s *MemStore) RoomsByStatus(status models.RoomStatus) ([]models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rooms []models.Room
	for _, room := range s.rooms {
		if room.Status == status {
			rooms = append(rooms, room)
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})
	return rooms, nil
}

func (s *MemStore) CodeExists(code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, room := range s.rooms {
		if room.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemStore) CreatePlayer(player *models.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.players {
		if existing.RoomID == player.RoomID && existing.UserID == player.UserID {
			return ErrDuplicatePlayer
		}
	}
	if player.JoinedAt.IsZero() {
		player.JoinedAt = time.Now()
	}
	player.ID = s.nextPlayerID
	s.nextPlayerID++
	s.players[player.ID] = *player
	return nil
}

func (s *MemStore) PlayerByRoomUser(roomID string, userID uint) (*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, player := range s.players {
		if player.RoomID == roomID && player.UserID == userID {
			p := player
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) PlayersByRoom(roomID string) ([]models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var players []models.Player
	for _, player := range s.players {
		if player.RoomID == roomID {
			players = append(players, player)
		}
	}
	sort.Slice(players, func(i, j int) bool {
		if players[i].JoinedAt.Equal(players[j].JoinedAt) {
			return players[i].ID < players[j].ID
		}
		return players[i].JoinedAt.Before(players[j].JoinedAt)
	})
	return players, nil
}

func (s *MemStore) SavePlayer(player *models.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.players[player.ID] = *player
	return nil
}

func (s *MemStore) AddScore(playerID uint, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.players[playerID]
	if !ok {
		return ErrNotFound
	}
	player.Score += points
	s.players[playerID] = player
	return nil
}

func (s *MemStore) CountPlayers(roomID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, player := range s.players {
		if player.RoomID == roomID {
			count++
		}
	}
	return count, nil
}

func (s *MemStore) CreateRounds(rounds []models.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range rounds {
		rounds[i].ID = s.nextRoundID
		s.nextRoundID++
		s.rounds[rounds[i].ID] = rounds[i]
	}
	return nil
}

func (s *MemStore) ActiveRound(roomID string) (*models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active *models.Round
	for _, round := range s.rounds {
		if round.RoomID != roomID || round.StartedAt == nil || round.EndedAt != nil {
			continue
		}
		r := round
		if active == nil || r.Number < active.Number {
			active = &r
		}
	}
	if active == nil {
		return nil, ErrNotFound
	}
	return active, nil
}

func (s *MemStore) NextPendingRound(roomID string) (*models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next *models.Round
	for _, round := range s.rounds {
		if round.RoomID != roomID || round.StartedAt != nil {
			continue
		}
		r := round
		if next == nil || r.Number < next.Number {
			next = &r
		}
	}
	if next == nil {
		return nil, ErrNotFound
	}
	return next, nil
}

func (s *MemStore) RoundsByRoom(roomID string) ([]models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rounds []models.Round
	for _, round := range s.rounds {
		if round.RoomID == roomID {
			rounds = append(rounds, round)
		}
	}
	sort.Slice(rounds, func(i, j int) bool { return rounds[i].Number < rounds[j].Number })
	return rounds, nil
}

func (s *MemStore) SaveRound(round *models.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rounds[round.ID] = *round
	return nil
}

func (s *MemStore) CreateAnswer(answer *models.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.answers {
		if existing.RoundID == answer.RoundID && existing.PlayerID == answer.PlayerID {
			return ErrDuplicateAnswer
		}
	}
	if answer.AnsweredAt.IsZero() {
		answer.AnsweredAt = time.Now()
	}
	answer.ID = s.nextAnswerID
	s.nextAnswerID++
	s.answers[answer.ID] = *answer
	return nil
}

func (s *MemStore) AnswersByRound(roundID uint) ([]models.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var answers []models.Answer
	for _, answer := range s.answers {
		if answer.RoundID == roundID {
			answers = append(answers, answer)
		}
	}
	sort.Slice(answers, func(i, j int) bool {
		if answers[i].AnsweredAt.Equal(answers[j].AnsweredAt) {
			return answers[i].ID < answers[j].ID
		}
		return answers[i].AnsweredAt.Before(answers[j].AnsweredAt)
	})
	return answers, nil
}

func (s *MemStore) CountAnswers(roundID uint) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, answer := range s.answers {
		if answer.RoundID == roundID {
			count++
		}
	}
	return count, nil
}

func (s *MemStore) CountCorrectAnswers(roundID uint) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, answer := range s.answers {
		if answer.RoundID == roundID && answer.IsCorrect {
			count++
		}
	}
	return count, nil
}

func (s *MemStore) CountCorrectByPlayer(roomID string, playerID uint) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, answer := range s.answers {
		if answer.PlayerID != playerID || !answer.IsCorrect {
			continue
		}
		if round, ok := s.rounds[answer.RoundID]; ok && round.RoomID == roomID {
			count++
		}
	}
	return count, nil
}
