package services

import (
	"fmt"
)

// The error taxonomy for game operations. Handlers map each class to an
// HTTP status; none of these are retried automatically.
//
//   - ValidationError: bad input (unknown code, full room, missing source,
//     not enough tracks).
//   - StateError: the action is legal but not in the room's or round's
//     current state. Duplicate answers land here: they are expected under
//     concurrency and must be a clean rejection.
//   - AuthorizationError: a non-host attempting a host-only action, or a
//     non-member acting on a room.
//   - ProviderError: an upstream catalog or lyrics failure that survived
//     the generator's fallback.

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

type StateError struct {
	msg string
}

func (e *StateError) Error() string { return e.msg }

type AuthorizationError struct {
	msg string
}

func (e *AuthorizationError) Error() string { return e.msg }

type ProviderError struct {
	msg string
	err error
}

func (e *ProviderError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *ProviderError) Unwrap() error { return e.err }

var (
	ErrRoomNotFound        = &ValidationError{msg: "room not found"}
	ErrRoomFull            = &ValidationError{msg: "room is full"}
	ErrAlreadyJoined       = &ValidationError{msg: "you are already in this room"}
	ErrMissingSource       = &ValidationError{msg: "no track source configured for this room"}
	ErrInsufficientPlayers = &ValidationError{msg: "not enough players to start"}
	ErrInsufficientTracks  = &ValidationError{msg: "not enough usable tracks to generate rounds"}
	ErrEmptyAnswer         = &ValidationError{msg: "no answer provided"}

	ErrInvalidState    = &StateError{msg: "action not allowed in the room's current status"}
	ErrRoomCancelled   = &StateError{msg: "room has been cancelled"}
	ErrNoActiveRound   = &StateError{msg: "no active round"}
	ErrDuplicateAnswer = &StateError{msg: "answer already submitted for this round"}

	ErrNotHost   = &AuthorizationError{msg: "only the host can perform this action"}
	ErrNotInRoom = &AuthorizationError{msg: "you are not in this room"}
)

func providerErr(msg string, err error) *ProviderError {
	return &ProviderError{msg: msg, err: err}
}
