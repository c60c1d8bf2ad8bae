package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benoftheworld/instant-music/models"
)

func newRoom(id, code string) *models.Room {
	return &models.Room{
		ID:     id,
		Code:   code,
		Status: models.StatusWaiting,
		Mode:   models.ModeClassic,
	}
}

func TestMemStoreRoomCodeUniqueness(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.CreateRoom(newRoom("r1", "AAAAAA")))

	err := s.CreateRoom(newRoom("r2", "AAAAAA"))
	assert.ErrorIs(t, err, ErrDuplicateCode)

	exists, err := s.CodeExists("AAAAAA")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = s.CodeExists("BBBBBB")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemStoreRoomLookups(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.CreateRoom(newRoom("r1", "AAAAAA")))

	room, err := s.RoomByCode("AAAAAA")
	require.NoError(t, err)
	assert.Equal(t, "r1", room.ID)

	_, err = s.RoomByCode("NOPE")
	assert.ErrorIs(t, err, ErrNotFound)

	// Returned rooms are copies; mutating one must not leak back.
	room.Status = models.StatusFinished
	fresh, err := s.RoomByID("r1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaiting, fresh.Status)
}

func TestMemStorePlayerUniquenessPerRoom(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.CreateRoom(newRoom("r1", "AAAAAA")))
	require.NoError(t, s.CreateRoom(newRoom("r2", "BBBBBB")))

	require.NoError(t, s.CreatePlayer(&models.Player{RoomID: "r1", UserID: 7, Username: "alice"}))

	err := s.CreatePlayer(&models.Player{RoomID: "r1", UserID: 7, Username: "alice"})
	assert.ErrorIs(t, err, ErrDuplicatePlayer)

	// Same user in another room is fine.
	assert.NoError(t, s.CreatePlayer(&models.Player{RoomID: "r2", UserID: 7, Username: "alice"}))
}

func TestMemStorePlayersOrderedByJoinTime(t *testing.T) {
	s := NewMemStore()
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreatePlayer(&models.Player{RoomID: "r1", UserID: 1, Username: "second", JoinedAt: base.Add(time.Minute)}))
	require.NoError(t, s.CreatePlayer(&models.Player{RoomID: "r1", UserID: 2, Username: "first", JoinedAt: base}))
	require.NoError(t, s.CreatePlayer(&models.Player{RoomID: "r1", UserID: 3, Username: "third", JoinedAt: base.Add(2 * time.Minute)}))

	players, err := s.PlayersByRoom("r1")
	require.NoError(t, err)
	require.Len(t, players, 3)
	assert.Equal(t, "first", players[0].Username)
	assert.Equal(t, "second", players[1].Username)
	assert.Equal(t, "third", players[2].Username)
}

func TestMemStoreAddScore(t *testing.T) {
	s := NewMemStore()
	player := &models.Player{RoomID: "r1", UserID: 1, Username: "alice"}
	require.NoError(t, s.CreatePlayer(player))

	require.NoError(t, s.AddScore(player.ID, 40))
	require.NoError(t, s.AddScore(player.ID, 12))

	got, err := s.PlayerByRoomUser("r1", 1)
	require.NoError(t, err)
	assert.Equal(t, 52, got.Score)

	assert.ErrorIs(t, s.AddScore(999, 10), ErrNotFound)
}

func TestMemStoreRoundLifecycle(t *testing.T) {
	s := NewMemStore()
	rounds := []models.Round{
		{RoomID: "r1", Number: 1, CorrectAnswer: "a"},
		{RoomID: "r1", Number: 2, CorrectAnswer: "b"},
		{RoomID: "r1", Number: 3, CorrectAnswer: "c"},
	}
	require.NoError(t, s.CreateRounds(rounds))

	_, err := s.ActiveRound("r1")
	assert.ErrorIs(t, err, ErrNotFound)

	next, err := s.NextPendingRound("r1")
	require.NoError(t, err)
	assert.Equal(t, 1, next.Number)

	now := time.Now()
	next.StartedAt = &now
	require.NoError(t, s.SaveRound(next))

	active, err := s.ActiveRound("r1")
	require.NoError(t, err)
	assert.Equal(t, 1, active.Number)

	// Pending skips the started round.
	next, err = s.NextPendingRound("r1")
	require.NoError(t, err)
	assert.Equal(t, 2, next.Number)

	active.EndedAt = &now
	require.NoError(t, s.SaveRound(active))
	_, err = s.ActiveRound("r1")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := s.RoundsByRoom("r1")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{all[0].Number, all[1].Number, all[2].Number})
}

func TestMemStoreAnswerUniqueness(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.CreateAnswer(&models.Answer{RoundID: 1, PlayerID: 1, Text: "a"}))

	err := s.CreateAnswer(&models.Answer{RoundID: 1, PlayerID: 1, Text: "b"})
	assert.ErrorIs(t, err, ErrDuplicateAnswer)

	assert.NoError(t, s.CreateAnswer(&models.Answer{RoundID: 1, PlayerID: 2, Text: "a"}))
	assert.NoError(t, s.CreateAnswer(&models.Answer{RoundID: 2, PlayerID: 1, Text: "a"}))

	count, err := s.CountAnswers(1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMemStoreAnswerUniquenessUnderConcurrency(t *testing.T) {
	s := NewMemStore()

	const attempts = 50
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.CreateAnswer(&models.Answer{RoundID: 9, PlayerID: 3, Text: "x"})
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrDuplicateAnswer)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestMemStoreCorrectCounts(t *testing.T) {
	s := NewMemStore()
	rounds := []models.Round{
		{RoomID: "r1", Number: 1},
		{RoomID: "r1", Number: 2},
		{RoomID: "r2", Number: 1},
	}
	require.NoError(t, s.CreateRounds(rounds))

	require.NoError(t, s.CreateAnswer(&models.Answer{RoundID: rounds[0].ID, PlayerID: 1, IsCorrect: true}))
	require.NoError(t, s.CreateAnswer(&models.Answer{RoundID: rounds[1].ID, PlayerID: 1, IsCorrect: true}))
	require.NoError(t, s.CreateAnswer(&models.Answer{RoundID: rounds[2].ID, PlayerID: 1, IsCorrect: true}))
	require.NoError(t, s.CreateAnswer(&models.Answer{RoundID: rounds[0].ID, PlayerID: 2, IsCorrect: false}))

	count, err := s.CountCorrectAnswers(rounds[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Scoped to the room: the r2 answer does not count for r1.
	count, err = s.CountCorrectByPlayer("r1", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
