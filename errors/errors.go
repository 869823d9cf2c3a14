package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrInvalidUsername      = fmt.Errorf("username must be 1 to 24 characters after trimming")
	ErrUsernameTaken        = fmt.Errorf("username already in use")
	ErrEmptyBody            = fmt.Errorf("message body is empty")
	ErrInvalidRoomName      = fmt.Errorf("room name is empty")
	ErrRoomNotFound         = fmt.Errorf("room not found")
	ErrThreadNotFound       = fmt.Errorf("thread not found")
	ErrMessageNotFound      = fmt.Errorf("message not found")
	ErrNotMember            = fmt.Errorf("not a member of this room")
	ErrUnauthenticated      = fmt.Errorf("connection has no user")
	ErrRecipientUnavailable = fmt.Errorf("recipient is not connected")
	ErrUnknownOperation     = fmt.Errorf("unknown operation")
	ErrInvalidPayload       = fmt.Errorf("invalid payload")

	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")
)

// Wire codes reported back to clients on a failed acknowledgement.
const (
	CodeInvalid              = "invalid"
	CodeConflict             = "conflict"
	CodeNotFound             = "not_found"
	CodeUnauthenticated      = "unauthenticated"
	CodeRecipientUnavailable = "recipient_unavailable"
	CodeInternal             = "internal"
)

// Code maps a broker error to its stable wire code. Unknown errors are
// reported as internal so callers never see raw fault details.
func Code(err error) string {
	switch {
	case stderrors.Is(err, ErrInvalidUsername),
		stderrors.Is(err, ErrEmptyBody),
		stderrors.Is(err, ErrInvalidRoomName),
		stderrors.Is(err, ErrNotMember),
		stderrors.Is(err, ErrUnknownOperation),
		stderrors.Is(err, ErrInvalidPayload):
		return CodeInvalid
	case stderrors.Is(err, ErrUsernameTaken):
		return CodeConflict
	case stderrors.Is(err, ErrRoomNotFound),
		stderrors.Is(err, ErrThreadNotFound),
		stderrors.Is(err, ErrMessageNotFound):
		return CodeNotFound
	case stderrors.Is(err, ErrUnauthenticated):
		return CodeUnauthenticated
	case stderrors.Is(err, ErrRecipientUnavailable):
		return CodeRecipientUnavailable
	default:
		return CodeInternal
	}
}
