package view

import (
	"errors"

	"todo-web/domain"
)

// ErrNotConfirmed is returned when the user declines a delete prompt.
var ErrNotConfirmed = errors.New("view: delete not confirmed")

// Kind classifies why an action failed.
type Kind int

const (
	KindTransport Kind = iota + 1
	KindStatus
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindValidation:
		return "validation"
	}
	return "unknown"
}

const (
	msgLoadFailed   = "Failed to load tasks"
	msgUpdateFailed = "Failed to update task"
	msgDeleteFailed = "Failed to delete task"
	msgCreateFailed = "Failed to create task"
)

// ActionError is a failed user action. Message is safe to show to the user.
type ActionError struct {
	Op      string
	Kind    Kind
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	if e.Err == nil || e.Kind == KindValidation {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ActionError) Unwrap() error { return e.Err }

type statusCoder interface {
	StatusCode() int
}

type goneError interface {
	Gone() bool
}

func actionError(op, message string, err error) *ActionError {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return &ActionError{Op: op, Kind: KindValidation, Message: verr.Message, Err: err}
	}
	kind := KindTransport
	var sc statusCoder
	if errors.As(err, &sc) {
		kind = KindStatus
	}
	return &ActionError{Op: op, Kind: kind, Message: message, Err: err}
}

// isGone reports whether the upstream said the target no longer exists.
func isGone(err error) bool {
	var g goneError
	return errors.As(err, &g) && g.Gone()
}
