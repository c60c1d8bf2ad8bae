package models

import (
	"time"
)

// RoundExtra carries mode-specific data a round needs on the client and
// during scoring. Stored as a JSON blob on the round.
type RoundExtra struct {
	// ToleranceYears is the widest band still counted correct in year rounds.
	ToleranceYears int `json:"tolerance_years,omitempty"`
	// Snippet is the lyrics line with the blanked phrase replaced by "_____".
	Snippet string `json:"snippet,omitempty"`
	// SyncedLyrics is the timed lyric payload for karaoke rounds.
	SyncedLyrics []LyricLine `json:"synced_lyrics,omitempty"`
	// ClipDurationMS is the length of the audio excerpt to play, if limited.
	ClipDurationMS int `json:"clip_duration_ms,omitempty"`
}

// LyricLine is one timestamped line of synced lyrics.
type LyricLine struct {
	TimeMS int    `json:"time_ms"`
	Text   string `json:"text"`
}

// Round is one timed question inside a room. round numbers are contiguous
// from 1; at most one round per room is started but not ended.
type Round struct {
	ID            uint         `json:"id" gorm:"primaryKey"`
	RoomID        string       `json:"room_id" gorm:"size:36;not null;uniqueIndex:idx_room_round"`
	Number        int          `json:"round_number" gorm:"not null;uniqueIndex:idx_room_round"`
	TrackID       string       `json:"track_id" gorm:"size:255;not null"`
	TrackName     string       `json:"track_name" gorm:"size:255;not null"`
	ArtistName    string       `json:"artist_name" gorm:"size:255;not null"`
	CorrectAnswer string       `json:"-" gorm:"size:255;not null"`
	Options       []string     `json:"options" gorm:"serializer:json"`
	QuestionType  QuestionType `json:"question_type" gorm:"size:30;not null;default:'guess_title'"`
	QuestionText  string       `json:"question_text" gorm:"size:500"`
	PreviewURL    string       `json:"preview_url" gorm:"size:500"`
	CoverURL      string       `json:"cover_url" gorm:"size:500"`
	Extra         RoundExtra   `json:"extra" gorm:"serializer:json"`
	Duration      int          `json:"duration" gorm:"not null;default:30"`
	StartedAt     *time.Time   `json:"started_at"`
	EndedAt       *time.Time   `json:"ended_at"`
}

// Active reports whether the round is currently in its answer window.
func (r *Round) Active() bool {
	return r.StartedAt != nil && r.EndedAt == nil
}
