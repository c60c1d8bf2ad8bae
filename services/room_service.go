package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/benoftheworld/instant-music/models"
	"github.com/benoftheworld/instant-music/providers"
	"github.com/benoftheworld/instant-music/store"
)

const (
	roomCodeLength   = 6
	roomCodeCharset  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	roomCodeAttempts = 10

	defaultMaxPlayers    = 8
	defaultNumRounds     = 10
	defaultRoundDuration = 30
	defaultLyricsWords   = 3
	maxRoomPlayers       = 16
	maxRoomRounds        = 30
)

// CreateRoomRequest carries the host's room configuration.
type CreateRoomRequest struct {
	Name            string             `json:"name"`
	Mode            models.GameMode    `json:"mode" binding:"required"`
	GuessTarget     models.GuessTarget `json:"guess_target"`
	AnswerMode      models.AnswerMode  `json:"answer_mode"`
	MaxPlayers      int                `json:"max_players"`
	NumRounds       int                `json:"num_rounds"`
	PlaylistID      string             `json:"playlist_id"`
	RoundDuration   int                `json:"round_duration"`
	LyricsWordCount int                `json:"lyrics_word_count"`
}

// RoomService is the write-side of the game: room lifecycle, roster,
// answers and results. Every mutation serializes on the room's lock and
// defers broadcasting until the lock has been released.
type RoomService struct {
	store        store.Store
	generator    *Generator
	engine       *RoundEngine
	presence     *PresenceTracker
	publisher    Publisher
	achievements providers.AchievementTrigger
	locks        roomLocks
}

func NewRoomService(st store.Store, gen *Generator, eval *Evaluator, pub Publisher, ach providers.AchievementTrigger) *RoomService {
	if ach == nil {
		ach = providers.LogAchievementTrigger{}
	}
	return &RoomService{
		store:        st,
		generator:    gen,
		engine:       NewRoundEngine(st, eval),
		presence:     NewPresenceTracker(st),
		publisher:    pub,
		achievements: ach,
	}
}

// CreateRoom creates a waiting room with a unique join code and seats
// the host as its first player.
func (s *RoomService) CreateRoom(hostID uint, username string, req CreateRoomRequest) (*models.Room, error) {
	if !req.Mode.Valid() {
		return nil, &ValidationError{msg: "unknown game mode"}
	}
	if req.GuessTarget == "" {
		req.GuessTarget = models.GuessTitle
	}
	if !req.GuessTarget.Valid() {
		return nil, &ValidationError{msg: "unknown guess target"}
	}
	if req.AnswerMode == "" {
		req.AnswerMode = models.AnswerMCQ
	}
	if !req.AnswerMode.Valid() {
		return nil, &ValidationError{msg: "unknown answer mode"}
	}
	if req.MaxPlayers == 0 {
		req.MaxPlayers = defaultMaxPlayers
	}
	if req.MaxPlayers < 1 || req.MaxPlayers > maxRoomPlayers {
		return nil, &ValidationError{msg: fmt.Sprintf("max_players must be between 1 and %d", maxRoomPlayers)}
	}
	if req.NumRounds == 0 {
		req.NumRounds = defaultNumRounds
	}
	if req.NumRounds < 1 || req.NumRounds > maxRoomRounds {
		return nil, &ValidationError{msg: fmt.Sprintf("num_rounds must be between 1 and %d", maxRoomRounds)}
	}
	if req.RoundDuration == 0 {
		req.RoundDuration = defaultRoundDuration
	}
	if req.RoundDuration < 5 || req.RoundDuration > 120 {
		return nil, &ValidationError{msg: "round_duration must be between 5 and 120 seconds"}
	}
	if req.LyricsWordCount == 0 {
		req.LyricsWordCount = defaultLyricsWords
	}
	if req.Mode.RequiresSource() && req.PlaylistID == "" {
		return nil, ErrMissingSource
	}

	code, err := s.uniqueCode()
	if err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = fmt.Sprintf("%s's room", username)
	}

	room := &models.Room{
		ID:              uuid.NewString(),
		Code:            code,
		Name:            name,
		HostID:          hostID,
		Mode:            req.Mode,
		GuessTarget:     req.GuessTarget,
		AnswerMode:      req.AnswerMode,
		Status:          models.StatusWaiting,
		MaxPlayers:      req.MaxPlayers,
		NumRounds:       req.NumRounds,
		PlaylistID:      req.PlaylistID,
		RoundDuration:   req.RoundDuration,
		LyricsWordCount: req.LyricsWordCount,
		CreatedAt:       time.Now(),
	}
	if err := s.store.CreateRoom(room); err != nil {
		return nil, err
	}

	host := &models.Player{
		RoomID:    room.ID,
		UserID:    hostID,
		Username:  username,
		Connected: false,
		JoinedAt:  time.Now(),
	}
	if err := s.store.CreatePlayer(host); err != nil {
		return nil, err
	}
	return room, nil
}

// JoinRoom seats a user in a waiting room.
func (s *RoomService) JoinRoom(code string, userID uint, username string) (*models.Player, error) {
	room, err := s.roomByCode(code)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(room.ID)

	var events []Message
	player, err := func() (*models.Player, error) {
		room, err := s.store.RoomByID(room.ID)
		if err != nil {
			return nil, s.notFound(err)
		}
		switch room.Status {
		case models.StatusWaiting:
		case models.StatusCancelled:
			return nil, ErrRoomCancelled
		default:
			return nil, ErrInvalidState
		}

		count, err := s.store.CountPlayers(room.ID)
		if err != nil {
			return nil, err
		}
		if count >= room.MaxPlayers {
			return nil, ErrRoomFull
		}

		player := &models.Player{
			RoomID:    room.ID,
			UserID:    userID,
			Username:  username,
			JoinedAt:  time.Now(),
		}
		if err := s.store.CreatePlayer(player); err != nil {
			if errors.Is(err, store.ErrDuplicatePlayer) {
				return nil, ErrAlreadyJoined
			}
			return nil, err
		}

		players, err := s.store.PlayersByRoom(room.ID)
		if err != nil {
			return nil, err
		}
		events = append(events, Message{Type: EventPlayerJoined, Payload: map[string]any{
			"player": newPlayerView(*player),
			"room":   newRoomSnapshot(room, players),
		}})
		return player, nil
	}()
	unlock()

	if err != nil {
		return nil, err
	}
	s.publish(code, events)
	return player, nil
}

// StartRoom generates the question set and opens round one. Host only.
// The catalog and lyrics fetches run before the room lock is taken so a
// slow provider never stalls joins or answers; the Waiting status is
// re-checked once inside the lock before the rounds are committed.
func (s *RoomService) StartRoom(ctx context.Context, code string, userID uint) (*models.Room, error) {
	room, err := s.roomByCode(code)
	if err != nil {
		return nil, err
	}
	if room.HostID != userID {
		return nil, ErrNotHost
	}
	switch room.Status {
	case models.StatusWaiting:
	case models.StatusCancelled:
		return nil, ErrRoomCancelled
	default:
		return nil, ErrInvalidState
	}
	if room.Mode.RequiresSource() && room.PlaylistID == "" {
		return nil, ErrMissingSource
	}

	// Room settings are immutable after create, so generating from the
	// pre-lock snapshot is safe.
	rounds, err := s.generator.Generate(ctx, room)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(room.ID)

	var events []Message
	room, err = func() (*models.Room, error) {
		room, err := s.store.RoomByID(room.ID)
		if err != nil {
			return nil, s.notFound(err)
		}
		switch room.Status {
		case models.StatusWaiting:
		case models.StatusCancelled:
			return nil, ErrRoomCancelled
		default:
			return nil, ErrInvalidState
		}
		count, err := s.store.CountPlayers(room.ID)
		if err != nil {
			return nil, err
		}
		if count < room.Mode.MinPlayers() {
			return nil, ErrInsufficientPlayers
		}

		if err := s.store.CreateRounds(rounds); err != nil {
			return nil, err
		}
		// The source may hold fewer usable tracks than requested.
		room.NumRounds = len(rounds)

		now := time.Now()
		room.Status = models.StatusInProgress
		room.StartedAt = &now
		if err := s.store.SaveRoom(room); err != nil {
			return nil, err
		}

		first, err := s.engine.StartNext(room)
		if err != nil {
			return nil, err
		}
		players, err := s.store.PlayersByRoom(room.ID)
		if err != nil {
			return nil, err
		}
		events = append(events,
			Message{Type: EventGameStarted, Payload: newRoomSnapshot(room, players)},
			Message{Type: EventRoundStarted, Payload: newRoundView(first)},
		)
		return room, nil
	}()
	unlock()

	if err != nil {
		return nil, err
	}
	s.publish(code, events)
	return room, nil
}

// SubmitAnswer records one player's answer for the open round. A second
// submission for the same round is rejected whole, including under
// concurrent duplicates.
func (s *RoomService) SubmitAnswer(code string, userID uint, text string, responseTime float64) (*models.Answer, error) {
	if text == "" {
		return nil, ErrEmptyAnswer
	}
	if responseTime < 0 {
		responseTime = 0
	}
	room, err := s.roomByCode(code)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(room.ID)

	var events []Message
	answer, err := func() (*models.Answer, error) {
		room, err := s.store.RoomByID(room.ID)
		if err != nil {
			return nil, s.notFound(err)
		}
		switch room.Status {
		case models.StatusInProgress:
		case models.StatusCancelled:
			return nil, ErrRoomCancelled
		default:
			return nil, ErrNoActiveRound
		}
		player, err := s.store.PlayerByRoomUser(room.ID, userID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotInRoom
		}
		if err != nil {
			return nil, err
		}
		round, err := s.store.ActiveRound(room.ID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoActiveRound
		}
		if err != nil {
			return nil, err
		}

		answer, engineEvents, err := s.engine.RecordAnswer(room, round, player, text, responseTime)
		if err != nil {
			return nil, err
		}
		events = engineEvents
		return answer, nil
	}()
	unlock()

	if err != nil {
		return nil, err
	}
	s.publish(code, events)
	return answer, nil
}

// EndRound resolves the current round. Host only, idempotent: a repeat
// call returns the same results without re-broadcasting.
func (s *RoomService) EndRound(code string, userID uint) (*RoundResults, error) {
	room, err := s.roomByCode(code)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(room.ID)

	var events []Message
	results, err := func() (*RoundResults, error) {
		room, err := s.store.RoomByID(room.ID)
		if err != nil {
			return nil, s.notFound(err)
		}
		if room.HostID != userID {
			return nil, ErrNotHost
		}
		if room.Status != models.StatusInProgress {
			return nil, ErrNoActiveRound
		}
		results, engineEvents, err := s.engine.EndCurrent(room)
		if err != nil {
			return nil, err
		}
		events = engineEvents
		return results, nil
	}()
	unlock()

	if err != nil {
		return nil, err
	}
	s.publish(code, events)
	return results, nil
}

// NextRound ends the current round if still open and advances. When no
// rounds remain the game finishes: final ranks are frozen and
// achievements fire. Host only. A nil view with nil error means the
// game just finished.
func (s *RoomService) NextRound(ctx context.Context, code string, userID uint) (*RoundView, error) {
	room, err := s.roomByCode(code)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(room.ID)

	var events []Message
	var grants []achievementGrant
	view, err := func() (*RoundView, error) {
		room, err := s.store.RoomByID(room.ID)
		if err != nil {
			return nil, s.notFound(err)
		}
		if room.HostID != userID {
			return nil, ErrNotHost
		}
		switch room.Status {
		case models.StatusInProgress:
		case models.StatusCancelled:
			return nil, ErrRoomCancelled
		default:
			return nil, ErrInvalidState
		}

		if _, err := s.store.ActiveRound(room.ID); err == nil {
			_, endEvents, err := s.engine.EndCurrent(room)
			if err != nil {
				return nil, err
			}
			events = append(events, endEvents...)
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}

		next, err := s.engine.StartNext(room)
		if err != nil {
			return nil, err
		}
		if next == nil {
			finishEvents, finishGrants, err := s.finish(room)
			if err != nil {
				return nil, err
			}
			events = append(events, finishEvents...)
			grants = finishGrants
			return nil, nil
		}

		players, err := s.store.PlayersByRoom(room.ID)
		if err != nil {
			return nil, err
		}
		view := newRoundView(next)
		events = append(events, Message{Type: EventNextRound, Payload: map[string]any{
			"round": view,
			"room":  newRoomSnapshot(room, players),
		}})
		return &view, nil
	}()
	unlock()

	if err != nil {
		return nil, err
	}
	s.publish(code, events)
	s.awardAchievements(ctx, grants)
	return view, nil
}

// CancelRoom abandons a room that has not started.
func (s *RoomService) CancelRoom(code string, userID uint) error {
	room, err := s.roomByCode(code)
	if err != nil {
		return err
	}
	unlock := s.locks.lock(room.ID)
	defer unlock()

	room, err = s.store.RoomByID(room.ID)
	if err != nil {
		return s.notFound(err)
	}
	if room.HostID != userID {
		return ErrNotHost
	}
	if room.Status != models.StatusWaiting {
		return ErrInvalidState
	}
	now := time.Now()
	room.Status = models.StatusCancelled
	room.FinishedAt = &now
	return s.store.SaveRoom(room)
}

// Room returns the current snapshot for any caller holding the code.
func (s *RoomService) Room(code string) (*RoomSnapshot, error) {
	room, err := s.roomByCode(code)
	if err != nil {
		return nil, err
	}
	players, err := s.store.PlayersByRoom(room.ID)
	if err != nil {
		return nil, err
	}
	snap := newRoomSnapshot(room, players)
	return &snap, nil
}

// AvailableRooms lists rooms still accepting players.
func (s *RoomService) AvailableRooms() ([]RoomSnapshot, error) {
	rooms, err := s.store.RoomsByStatus(models.StatusWaiting)
	if err != nil {
		return nil, err
	}
	snaps := make([]RoomSnapshot, 0, len(rooms))
	for i := range rooms {
		players, err := s.store.PlayersByRoom(rooms[i].ID)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, newRoomSnapshot(&rooms[i], players))
	}
	return snaps, nil
}

// Results returns the final standings and the per-round breakdown of a
// finished game. Members only.
func (s *RoomService) Results(code string, userID uint) (*FinalResults, []RoundResults, error) {
	room, err := s.roomByCode(code)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.store.PlayerByRoomUser(room.ID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrNotInRoom
		}
		return nil, nil, err
	}
	if room.Status != models.StatusFinished {
		return nil, nil, ErrInvalidState
	}

	players, err := s.store.PlayersByRoom(room.ID)
	if err != nil {
		return nil, nil, err
	}
	final := &FinalResults{
		Room:     newRoomSnapshot(room, players),
		Rankings: standings(players),
	}

	rounds, err := s.store.RoundsByRoom(room.ID)
	if err != nil {
		return nil, nil, err
	}
	breakdown := make([]RoundResults, 0, len(rounds))
	for i := range rounds {
		if rounds[i].EndedAt == nil {
			continue
		}
		results, err := s.engine.buildResults(room, &rounds[i])
		if err != nil {
			return nil, nil, err
		}
		breakdown = append(breakdown, *results)
	}
	return final, breakdown, nil
}

// HandleConnect implements ConnectionHandler for the broadcast hub.
func (s *RoomService) HandleConnect(roomCode string, userID uint) []Message {
	return s.presenceEvent(roomCode, userID, true, EventPlayerJoined)
}

// HandleDisconnect implements ConnectionHandler for the broadcast hub.
func (s *RoomService) HandleDisconnect(roomCode string, userID uint) []Message {
	return s.presenceEvent(roomCode, userID, false, EventPlayerLeft)
}

func (s *RoomService) presenceEvent(code string, userID uint, connected bool, event string) []Message {
	room, err := s.roomByCode(code)
	if err != nil {
		return nil
	}
	unlock := s.locks.lock(room.ID)
	defer unlock()

	room, err = s.store.RoomByID(room.ID)
	if err != nil {
		return nil
	}
	player, snap, err := s.presence.setConnected(room, userID, connected)
	if err != nil {
		log.Printf("presence update failed for room %s user %d: %v", code, userID, err)
		return nil
	}
	if player == nil {
		return nil
	}
	return []Message{{Type: event, Payload: map[string]any{
		"player": newPlayerView(*player),
		"room":   *snap,
	}}}
}

// achievementGrant is one player's end-of-game facts, collected under
// the room lock and handed to the trigger after it is released.
type achievementGrant struct {
	userID uint
	facts  providers.AchievementFacts
}

// finish closes out the game under the room lock: ranks are computed
// once from final scores, frozen on the player rows and never
// recomputed afterwards. The achievement trigger is an external call,
// so finish only gathers the grants; the caller fires them after
// unlocking.
func (s *RoomService) finish(room *models.Room) ([]Message, []achievementGrant, error) {
	players, err := s.store.PlayersByRoom(room.ID)
	if err != nil {
		return nil, nil, err
	}
	ranked := standings(players)
	for i := range ranked {
		rank := i + 1
		for j := range players {
			if players[j].ID != ranked[i].ID {
				continue
			}
			players[j].Rank = &rank
			if err := s.store.SavePlayer(&players[j]); err != nil {
				return nil, nil, err
			}
			ranked[i].Rank = &rank
		}
	}

	now := time.Now()
	room.Status = models.StatusFinished
	room.FinishedAt = &now
	if err := s.store.SaveRoom(room); err != nil {
		return nil, nil, err
	}

	totalRounds, err := s.store.RoundsByRoom(room.ID)
	if err != nil {
		return nil, nil, err
	}
	var grants []achievementGrant
	for i := range players {
		p := &players[i]
		correct, err := s.store.CountCorrectByPlayer(room.ID, p.ID)
		if err != nil {
			log.Printf("achievement facts for player %d: %v", p.ID, err)
			continue
		}
		facts := providers.AchievementFacts{
			PerfectGame: len(totalRounds) > 0 && correct == len(totalRounds),
			Won:         p.Rank != nil && *p.Rank == 1,
			Score:       p.Score,
		}
		if p.Rank != nil {
			facts.Rank = *p.Rank
		}
		grants = append(grants, achievementGrant{userID: p.UserID, facts: facts})
	}

	final := FinalResults{
		Room:     newRoomSnapshot(room, players),
		Rankings: ranked,
	}
	return []Message{{Type: EventGameFinished, Payload: final}}, grants, nil
}

// awardAchievements fires the collected grants. Failures are logged,
// never surfaced: the game is already finished.
func (s *RoomService) awardAchievements(ctx context.Context, grants []achievementGrant) {
	for _, g := range grants {
		awarded, err := s.achievements.Evaluate(ctx, g.userID, g.facts)
		if err != nil {
			log.Printf("achievement trigger for user %d: %v", g.userID, err)
			continue
		}
		if len(awarded) > 0 {
			log.Printf("user %d unlocked achievements: %v", g.userID, awarded)
		}
	}
}

func (s *RoomService) roomByCode(code string) (*models.Room, error) {
	room, err := s.store.RoomByCode(code)
	if err != nil {
		return nil, s.notFound(err)
	}
	return room, nil
}

func (s *RoomService) notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrRoomNotFound
	}
	return err
}

func (s *RoomService) publish(code string, events []Message) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	s.publisher.Publish(code, events...)
}

func (s *RoomService) uniqueCode() (string, error) {
	for attempt := 0; attempt < roomCodeAttempts; attempt++ {
		code, err := randomCode(roomCodeLength)
		if err != nil {
			return "", err
		}
		exists, err := s.store.CodeExists(code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique room code")
}

func randomCode(length int) (string, error) {
	max := big.NewInt(int64(len(roomCodeCharset)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = roomCodeCharset[n.Int64()]
	}
	return string(buf), nil
}
