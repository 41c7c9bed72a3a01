// ABOUTME: Typed error taxonomy for turn processing
// ABOUTME: Distinguishes fatal kinds (input, configuration, backend) from degraded ones
package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure that happened while processing a turn
type ErrorKind string

const (
	// KindInput - empty or invalid user text, fatal, no backend call made
	KindInput ErrorKind = "input"

	// KindConfiguration - unknown route, unknown framing or prompt format, fatal
	KindConfiguration ErrorKind = "configuration"

	// KindBackend - connectivity, timeout or non-success from the generation backend, fatal
	KindBackend ErrorKind = "backend"

	// KindCollaborator - long-term memory fetch/store failure, recovered locally
	KindCollaborator ErrorKind = "collaborator"

	// KindAction - an individual action failed, recovered locally
	KindAction ErrorKind = "action"
)

// ErrEmptyInput is returned when a turn is built from blank text
var ErrEmptyInput = errors.New("user input must be a non-empty string")

// Fatal reports whether an error of this kind aborts the turn
func (k ErrorKind) Fatal() bool {
	switch k {
	case KindInput, KindConfiguration, KindBackend:
		return true
	}
	return false
}

// TurnError wraps an underlying error with its taxonomy kind and the operation that failed
type TurnError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewError builds a TurnError
func NewError(kind ErrorKind, op string, err error) *TurnError {
	return &TurnError{Kind: kind, Op: op, Err: err}
}

func (e *TurnError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error during %s: %v", e.Kind, e.Op, e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first TurnError in err's chain, or "" if there is none
func KindOf(err error) ErrorKind {
	var te *TurnError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}

// IsKind reports whether err carries a TurnError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
