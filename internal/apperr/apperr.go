package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies failures of a single inbound event.
type Kind int

const (
	Internal Kind = iota
	Validation
	NotFound
	SelfTarget
	Presence
	Auth
	Persistence
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case SelfTarget:
		return "self_target"
	case Presence:
		return "presence"
	case Auth:
		return "auth"
	case Persistence:
		return "persistence"
	default:
		return "internal"
	}
}

// InternalMessage is what users see for failures they cannot act on.
const InternalMessage = "Internal server error"

// Error carries a kind, a user-facing message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Store wraps a persistence failure raised during the named step.
func Store(step string, err error) *Error {
	return &Error{Kind: Persistence, Message: step, Err: err}
}

// KindOf reports the kind of err, Internal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// PublicMessage returns the text safe to send to a client.
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return InternalMessage
	}
	switch e.Kind {
	case Persistence, Internal:
		return InternalMessage
	default:
		return e.Message
	}
}
