package models

import (
	"time"
)

// Player is a user's membership in one room. At most one row exists per
// (room, user); reconnecting players reclaim their row.
type Player struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	RoomID    string    `json:"room_id" gorm:"size:36;not null;uniqueIndex:idx_room_user"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_room_user"`
	Username  string    `json:"username" gorm:"size:100;not null"`
	Score     int       `json:"score" gorm:"not null;default:0"`
	Rank      *int      `json:"rank"`
	Connected bool      `json:"is_connected" gorm:"not null;default:false"`
	JoinedAt  time.Time `json:"joined_at"`
}
