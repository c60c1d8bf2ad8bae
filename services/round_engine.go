package services

import (
	"errors"
	"time"

	"github.com/benoftheworld/instant-music/models"
	"github.com/benoftheworld/instant-music/store"
)

// RoundEngine drives the round lifecycle for an in-progress room. All
// of its methods must be called while holding the room's lock; they
// return broadcast messages for the caller to publish afterwards.
type RoundEngine struct {
	store store.Store
	eval  *Evaluator
}

func NewRoundEngine(st store.Store, eval *Evaluator) *RoundEngine {
	return &RoundEngine{store: st, eval: eval}
}

// StartNext opens the next pending round. If a round is already open it
// is a no-op and returns nil; if every round has been played it also
// returns nil, which the caller treats as the game-finished signal.
func (e *RoundEngine) StartNext(room *models.Room) (*models.Round, error) {
	if _, err := e.store.ActiveRound(room.ID); err == nil {
		return nil, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	next, err := e.store.NextPendingRound(room.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	next.StartedAt = &now
	if err := e.store.SaveRound(next); err != nil {
		return nil, err
	}
	return next, nil
}

// EndCurrent resolves the room's current round and builds its results
// payload. Calling it again after the round has ended returns the same
// results without emitting anything, so duplicate end triggers (host
// click racing the auto-end) are harmless.
func (e *RoundEngine) EndCurrent(room *models.Room) (*RoundResults, []Message, error) {
	round, err := e.store.ActiveRound(room.ID)
	if errors.Is(err, store.ErrNotFound) {
		ended, lerr := e.lastEndedRound(room.ID)
		if lerr != nil {
			return nil, nil, lerr
		}
		if ended == nil {
			return nil, nil, ErrNoActiveRound
		}
		results, rerr := e.buildResults(room, ended)
		return results, nil, rerr
	}
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	round.EndedAt = &now
	if err := e.store.SaveRound(round); err != nil {
		return nil, nil, err
	}

	results, err := e.buildResults(room, round)
	if err != nil {
		return nil, nil, err
	}
	events := []Message{{Type: EventRoundEnded, Payload: results}}
	return results, events, nil
}

// RecordAnswer scores and persists one player's answer for the open
// round. The storage layer enforces one answer per (round, player);
// concurrent duplicates surface as ErrDuplicateAnswer with no score
// applied. When the answer completes the roster the round is ended in
// the same critical section.
func (e *RoundEngine) RecordAnswer(room *models.Room, round *models.Round, player *models.Player, text string, responseTime float64) (*models.Answer, []Message, error) {
	eval := e.eval.Evaluate(room.Mode, room.AnswerMode, round, text)
	points := e.eval.Points(eval, responseTime)
	if eval.IsCorrect {
		prior, err := e.store.CountCorrectAnswers(round.ID)
		if err != nil {
			return nil, nil, err
		}
		points += RankBonus(prior)
	}

	answer := &models.Answer{
		RoundID:      round.ID,
		PlayerID:     player.ID,
		Text:         text,
		IsCorrect:    eval.IsCorrect,
		Points:       points,
		ResponseTime: responseTime,
		AnsweredAt:   time.Now(),
	}
	// Snapshot before the score lands so the broadcast does not betray
	// whether the answer scored.
	announced := newPlayerView(*player)
	if err := e.store.CreateAnswer(answer); err != nil {
		if errors.Is(err, store.ErrDuplicateAnswer) {
			return nil, nil, ErrDuplicateAnswer
		}
		return nil, nil, err
	}
	if points > 0 {
		if err := e.store.AddScore(player.ID, points); err != nil {
			return nil, nil, err
		}
		player.Score += points
	}

	events := []Message{{Type: EventPlayerAnswered, Payload: map[string]any{
		"player":   announced,
		"answered": true,
	}}}

	// Authoritative round end: once every player has answered, resolve
	// immediately instead of waiting for the timer or the host.
	answered, err := e.store.CountAnswers(round.ID)
	if err != nil {
		return answer, events, err
	}
	total, err := e.store.CountPlayers(room.ID)
	if err != nil {
		return answer, events, err
	}
	if answered >= total {
		_, endEvents, err := e.EndCurrent(room)
		if err != nil {
			return answer, events, err
		}
		events = append(events, endEvents...)
	}
	return answer, events, nil
}

func (e *RoundEngine) lastEndedRound(roomID string) (*models.Round, error) {
	rounds, err := e.store.RoundsByRoom(roomID)
	if err != nil {
		return nil, err
	}
	var last *models.Round
	for i := range rounds {
		r := &rounds[i]
		if r.EndedAt == nil {
			continue
		}
		if last == nil || r.Number > last.Number {
			last = r
		}
	}
	return last, nil
}

func (e *RoundEngine) buildResults(room *models.Room, round *models.Round) (*RoundResults, error) {
	answers, err := e.store.AnswersByRound(round.ID)
	if err != nil {
		return nil, err
	}
	players, err := e.store.PlayersByRoom(room.ID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	scores := make(map[string]RoundScore, len(answers))
	for _, a := range answers {
		p, ok := byID[a.PlayerID]
		if !ok {
			continue
		}
		scores[p.Username] = RoundScore{
			IsCorrect:    a.IsCorrect,
			Points:       a.Points,
			ResponseTime: a.ResponseTime,
			Answer:       a.Text,
		}
	}

	return &RoundResults{
		Number:        round.Number,
		CorrectAnswer: round.CorrectAnswer,
		TrackName:     round.TrackName,
		ArtistName:    round.ArtistName,
		CoverURL:      round.CoverURL,
		Scores:        scores,
		Standings:     standings(players),
	}, nil
}
