package services

import (
	"errors"

	"github.com/benoftheworld/instant-music/models"
	"github.com/benoftheworld/instant-music/store"
)

// PresenceTracker flips a player's connected flag as their socket comes
// and goes. The player row is never deleted on disconnect, so a
// returning user reclaims their score and seat.
type PresenceTracker struct {
	store store.Store
}

func NewPresenceTracker(st store.Store) *PresenceTracker {
	return &PresenceTracker{store: st}
}

// setConnected must be called under the room lock. It returns the
// player and the refreshed snapshot, or (nil, nil) when the user has no
// seat in the room, which spectating sockets are allowed to be.
func (t *PresenceTracker) setConnected(room *models.Room, userID uint, connected bool) (*models.Player, *RoomSnapshot, error) {
	player, err := t.store.PlayerByRoomUser(room.ID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	if player.Connected != connected {
		player.Connected = connected
		if err := t.store.SavePlayer(player); err != nil {
			return nil, nil, err
		}
	}

	players, err := t.store.PlayersByRoom(room.ID)
	if err != nil {
		return nil, nil, err
	}
	snap := newRoomSnapshot(room, players)
	return player, &snap, nil
}
