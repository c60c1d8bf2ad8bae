package models

import (
	"time"
)

type Room struct {
	ID          string      `json:"id" gorm:"primaryKey;size:36"`
	Code        string      `json:"code" gorm:"uniqueIndex;size:6;not null"`
	Name        string      `json:"name" gorm:"size:100"`
	HostID      uint        `json:"host_id" gorm:"not null"`
	Mode        GameMode    `json:"mode" gorm:"size:20;not null;default:'classic'"`
	GuessTarget GuessTarget `json:"guess_target" gorm:"size:10;not null;default:'title'"`
	AnswerMode  AnswerMode  `json:"answer_mode" gorm:"size:10;not null;default:'mcq'"`
	Status      RoomStatus  `json:"status" gorm:"size:20;not null;default:'waiting'"`
	MaxPlayers  int         `json:"max_players" gorm:"not null;default:8"`
	NumRounds   int         `json:"num_rounds" gorm:"not null;default:10"`
	PlaylistID  string      `json:"playlist_id" gorm:"size:255"`

	// RoundDuration is the advertised length of each round in seconds.
	// The timer is advisory; the round ends through the engine either way.
	RoundDuration   int `json:"round_duration" gorm:"not null;default:30"`
	LyricsWordCount int `json:"lyrics_word_count" gorm:"not null;default:3"`

	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`

	Players []Player `json:"players,omitempty" gorm:"foreignKey:RoomID"`
	Rounds  []Round  `json:"rounds,omitempty" gorm:"foreignKey:RoomID"`
}
