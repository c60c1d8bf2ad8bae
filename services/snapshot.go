package services

import (
	"sort"
	"time"

	"github.com/benoftheworld/instant-music/models"
)

// PlayerView is the broadcast-safe projection of a player.
type PlayerView struct {
	ID        uint   `json:"id"`
	UserID    uint   `json:"user_id"`
	Username  string `json:"username"`
	Score     int    `json:"score"`
	Rank      *int   `json:"rank,omitempty"`
	Connected bool   `json:"connected"`
}

// RoomSnapshot is the full room state pushed to clients whenever the
// roster or lifecycle changes.
type RoomSnapshot struct {
	ID            string             `json:"id"`
	Code          string             `json:"code"`
	Name          string             `json:"name"`
	HostID        uint               `json:"host_id"`
	Mode          models.GameMode    `json:"mode"`
	GuessTarget   models.GuessTarget `json:"guess_target"`
	AnswerMode    models.AnswerMode  `json:"answer_mode"`
	Status        models.RoomStatus  `json:"status"`
	MaxPlayers    int                `json:"max_players"`
	NumRounds     int                `json:"num_rounds"`
	RoundDuration int                `json:"round_duration"`
	Players       []PlayerView       `json:"players"`
}

// RoundView is the projection of a round sent while it is still open.
// The correct answer is deliberately absent from this type: it is only
// revealed inside RoundResults once the round has been resolved.
type RoundView struct {
	Number       int                 `json:"number"`
	QuestionType models.QuestionType `json:"question_type"`
	QuestionText string              `json:"question_text"`
	Options      []string            `json:"options,omitempty"`
	PreviewURL   string              `json:"preview_url,omitempty"`
	CoverURL     string              `json:"cover_url,omitempty"`
	Duration     int                 `json:"duration"`
	Extra        models.RoundExtra   `json:"extra"`
	StartedAt    *time.Time          `json:"started_at,omitempty"`
}

// RoundScore is one player's result for a single resolved round.
type RoundScore struct {
	IsCorrect    bool    `json:"is_correct"`
	Points       int     `json:"points"`
	ResponseTime float64 `json:"response_time"`
	Answer       string  `json:"answer"`
}

// RoundResults is the resolution payload for a round: the revealed
// correct answer, what every player scored, and the updated standings.
type RoundResults struct {
	Number        int                   `json:"number"`
	CorrectAnswer string                `json:"correct_answer"`
	TrackName     string                `json:"track_name"`
	ArtistName    string                `json:"artist_name"`
	CoverURL      string                `json:"cover_url,omitempty"`
	Scores        map[string]RoundScore `json:"scores"`
	Standings     []PlayerView          `json:"standings"`
}

// FinalResults closes out a finished game.
type FinalResults struct {
	Room     RoomSnapshot `json:"room"`
	Rankings []PlayerView `json:"rankings"`
}

func newPlayerView(p models.Player) PlayerView {
	return PlayerView{
		ID:        p.ID,
		UserID:    p.UserID,
		Username:  p.Username,
		Score:     p.Score,
		Rank:      p.Rank,
		Connected: p.Connected,
	}
}

func newRoomSnapshot(room *models.Room, players []models.Player) RoomSnapshot {
	snap := RoomSnapshot{
		ID:            room.ID,
		Code:          room.Code,
		Name:          room.Name,
		HostID:        room.HostID,
		Mode:          room.Mode,
		GuessTarget:   room.GuessTarget,
		AnswerMode:    room.AnswerMode,
		Status:        room.Status,
		MaxPlayers:    room.MaxPlayers,
		NumRounds:     room.NumRounds,
		RoundDuration: room.RoundDuration,
		Players:       make([]PlayerView, 0, len(players)),
	}
	for _, p := range players {
		snap.Players = append(snap.Players, newPlayerView(p))
	}
	return snap
}

func newRoundView(round *models.Round) RoundView {
	return RoundView{
		Number:       round.Number,
		QuestionType: round.QuestionType,
		QuestionText: round.QuestionText,
		Options:      round.Options,
		PreviewURL:   round.PreviewURL,
		CoverURL:     round.CoverURL,
		Duration:     round.Duration,
		Extra:        round.Extra,
		StartedAt:    round.StartedAt,
	}
}

// standings sorts players by score descending; equal scores keep the
// earlier joiner first so the order is a strict permutation.
func standings(players []models.Player) []PlayerView {
	sorted := make([]models.Player, len(players))
	copy(sorted, players)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].JoinedAt.Before(sorted[j].JoinedAt)
	})
	views := make([]PlayerView, 0, len(sorted))
	for _, p := range sorted {
		views = append(views, newPlayerView(p))
	}
	return views
}
