package models

import (
	"time"
)

// Answer is one player's submission for one round. The (round, player)
// pair is unique; concurrent duplicates are rejected at the storage layer.
type Answer struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	RoundID      uint      `json:"round_id" gorm:"not null;uniqueIndex:idx_round_player"`
	PlayerID     uint      `json:"player_id" gorm:"not null;uniqueIndex:idx_round_player"`
	Text         string    `json:"answer" gorm:"size:255;not null"`
	IsCorrect    bool      `json:"is_correct" gorm:"not null;default:false"`
	Points       int       `json:"points_earned" gorm:"not null;default:0"`
	ResponseTime float64   `json:"response_time" gorm:"not null"`
	AnsweredAt   time.Time `json:"answered_at"`
}
