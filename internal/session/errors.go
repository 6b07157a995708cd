package session

import (
	"errors"

	"github.com/seanpm2001/mirror-afp-2016-1/internal/extract"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/kernel"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/rules"
)

var (
	// ErrNoSuchFact reports a qualified fact name with no registrations.
	ErrNoSuchFact = errors.New("no such fact")
	// ErrUnknownTactic reports a discharge name the registry cannot resolve.
	ErrUnknownTactic = errors.New("unknown discharge tactic")
	// ErrNoDatabase reports Save on a session without persistence.
	ErrNoDatabase = errors.New("no database configured")
)

// Class sorts command failures for reporting. User input errors are the
// command's fault; host rejections come from the kernel or matcher and are
// propagated unchanged.
type Class int

const (
	ClassUserInput Class = iota
	ClassHostRejection
	ClassOther
)

func (c Class) String() string {
	switch c {
	case ClassUserInput:
		return "user-input"
	case ClassHostRejection:
		return "host-rejection"
	default:
		return "other"
	}
}

// userError marks an error as caused by the command's input.
type userError struct{ err error }

func (e userError) Error() string { return e.err.Error() }
func (e userError) Unwrap() error { return e.err }

func asUser(err error) error { return userError{err: err} }

// Classify maps an execution error to its class.
func Classify(err error) Class {
	switch {
	case errors.Is(err, kernel.ErrRejected), errors.Is(err, kernel.ErrFuel):
		return ClassHostRejection
	case errors.Is(err, extract.ErrNoSuchVariable),
		errors.Is(err, extract.ErrNoPatternMatch),
		errors.Is(err, extract.ErrNotEquation),
		errors.Is(err, rules.ErrUnknownMode),
		errors.Is(err, rules.ErrEmptyRuleSet):
		return ClassUserInput
	}
	var ue userError
	if errors.As(err, &ue) {
		return ClassUserInput
	}
	return ClassOther
}
