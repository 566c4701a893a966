package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindNotFound      ErrorKind = "NOT_FOUND"
	KindInvalidInput  ErrorKind = "INVALID_INPUT"
	KindNotAcceptable ErrorKind = "NOT_ACCEPTABLE"
	KindConflict      ErrorKind = "CONFLICT"
	KindUnauthorized  ErrorKind = "UNAUTHORIZED"
	KindForbidden     ErrorKind = "FORBIDDEN"
	KindInternal      ErrorKind = "INTERNAL"
)

// Error is a classified failure. Callers branch on Kind, never on Message.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrGameNotFound   = &Error{Kind: KindNotFound, Message: "game not found"}
	ErrRentalNotFound = &Error{Kind: KindNotFound, Message: "rental not found"}
	ErrOrderNotFound  = &Error{Kind: KindNotFound, Message: "order not found"}
	ErrUserNotFound   = &Error{Kind: KindNotFound, Message: "user not found"}

	ErrInvalidBorrowerIndex = &Error{Kind: KindInvalidInput, Message: "invalid borrower index"}
	ErrInvalidQuantity      = &Error{Kind: KindInvalidInput, Message: "quantity must stay between 0 and amount"}

	ErrOutOfStock      = &Error{Kind: KindNotAcceptable, Message: "game is out of stock"}
	ErrAlreadyReturned = &Error{Kind: KindNotAcceptable, Message: "rental is already returned"}
	ErrFullStock       = &Error{Kind: KindNotAcceptable, Message: "game is already at full stock"}
	ErrOrderNotWaiting = &Error{Kind: KindNotAcceptable, Message: "order is not waiting"}

	ErrGameInUse      = &Error{Kind: KindConflict, Message: "game has active rentals or waiting orders"}
	ErrDuplicateTitle = &Error{Kind: KindConflict, Message: "a game with this title already exists"}
	ErrDuplicateEmail = &Error{Kind: KindConflict, Message: "a user with this email already exists"}

	ErrUnauthorized = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrForbidden    = &Error{Kind: KindForbidden, Message: "insufficient role"}
)

func InvalidInput(format string, args ...any) error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the classification of err, or KindInternal when err carries none.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
