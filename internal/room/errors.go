// internal/room/errors.go
package room

import "errors"

// Kind classifies a room error so the transport layers can map it to a
// response code without string matching.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindUnauthorized
	KindInternal
)

// Error is the structured failure type for every registry operation.
// The message text is surfaced verbatim to clients.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrEmptyNickname    = &Error{KindValidation, "nickname must be at least 1 character length"}
	ErrRoomNotFound     = &Error{KindNotFound, "the room doesn't exist"}
	ErrMemberNotFound   = &Error{KindNotFound, "the member doesn't exist"}
	ErrGameStarted      = &Error{KindConflict, "game already started"}
	ErrRoomFull         = &Error{KindConflict, "room is full"}
	ErrMaxPlayers       = &Error{KindConflict, "max players reached"}
	ErrNotAllReady      = &Error{KindConflict, "some members aren't ready"}
	ErrNotEnoughPlayers = &Error{KindConflict, "players in room less than minimum to start"}
	ErrNotPlayer        = &Error{KindForbidden, "the member doesn't exist or it is not a player"}
	ErrNotAdmin         = &Error{KindForbidden, "the member doesn't exist or it is not an admin"}
	ErrBadToken         = &Error{KindUnauthorized, "invalid connection token"}
	ErrNoSession        = &Error{KindInternal, "connection has no resolvable session"}
)

// KindOf extracts the Kind from err, defaulting to KindInternal for
// failures that did not originate in this package (e.g. game logic errors).
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindInternal
}
