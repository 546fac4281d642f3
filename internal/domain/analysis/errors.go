package analysis

import (
	"errors"
	"fmt"
)

// Kind classifies failures so the transport layer can pick a status code.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuth
	KindUpstream
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindUpstream:
		return "upstream"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error is a classified failure carrying a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func ValidationError(msg string) error { return &Error{Kind: KindValidation, Message: msg} }

func AuthError(msg string) error { return &Error{Kind: KindAuth, Message: msg} }

func UpstreamError(msg string, err error) error {
	return &Error{Kind: KindUpstream, Message: msg, Err: err}
}

func StorageError(msg string, err error) error {
	return &Error{Kind: KindStorage, Message: msg, Err: err}
}

// KindOf reports the kind of err, or 0 when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
