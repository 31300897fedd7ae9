package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a failure so callers can react without string matching.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInsufficientSeats
	KindSeatsExhausted
	KindAlreadyConfirmed
	KindAlreadyCancelled
	KindPermissionDenied
	KindInvalidArgument
	KindUnauthorized
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInsufficientSeats:
		return "insufficient_seats"
	case KindSeatsExhausted:
		return "seats_exhausted"
	case KindAlreadyConfirmed:
		return "already_confirmed"
	case KindAlreadyCancelled:
		return "already_cancelled"
	case KindPermissionDenied:
		return "permission_denied"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is a failure tagged with a Kind.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match against a class sentinel, an *Error with the same Kind and no message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrBookingNotFound   = &Error{Kind: KindNotFound, Msg: "booking not found"}
	ErrEventNotFound     = &Error{Kind: KindNotFound, Msg: "event not found"}
	ErrInsufficientSeats = &Error{Kind: KindInsufficientSeats, Msg: "not enough available seats"}
	ErrSeatsExhausted    = &Error{Kind: KindSeatsExhausted, Msg: "not enough available seats to confirm this booking"}
	ErrAlreadyConfirmed  = &Error{Kind: KindAlreadyConfirmed, Msg: "booking already confirmed"}
	ErrAlreadyCancelled  = &Error{Kind: KindAlreadyCancelled, Msg: "booking already cancelled"}
	ErrPermissionDenied  = &Error{Kind: KindPermissionDenied, Msg: "you cannot modify this event"}
	ErrEventArchived     = &Error{Kind: KindInvalidArgument, Msg: "event is archived"}
	ErrUserNotFound      = &Error{Kind: KindNotFound, Msg: "user not found"}
	ErrEmailTaken        = &Error{Kind: KindConflict, Msg: "email is already registered"}

	ErrUnauthorized = &Error{Kind: KindUnauthorized, Msg: "user is not authorized"}
	ErrForbidden    = &Error{Kind: KindPermissionDenied, Msg: "operation is forbidden for user"}

	// Class sentinels, matched by kind.
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
)

// Invalid builds an InvalidArgument error.
func Invalid(format string, args ...any) error {
	return &Error{Kind: KindInvalidArgument, Msg: fmt.Sprintf(format, args...)}
}

// Internal tags an infrastructure failure.
func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is and As forward to the standard library so callers need one import.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target any) bool {
	return stderrors.As(err, target)
}
