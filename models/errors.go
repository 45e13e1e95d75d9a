package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the storage and pipeline layers.
var (
	// ErrNotFound is returned by store lookups when no document matches.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateSignal is returned when the unique dedupe-key insert
	// loses the race. Not a failure: the signal was already recorded.
	ErrDuplicateSignal = errors.New("duplicate signal suppressed")

	// ErrDuplicateName is returned when a schedule config name is taken.
	ErrDuplicateName = errors.New("schedule name already exists")

	// ErrInvalidTransition is returned when a lifecycle status change is
	// requested from a state it is not legal from.
	ErrInvalidTransition = errors.New("invalid trade status transition")
)

// ConfigurationError marks a schedule definition that can never become
// live: a bad expression or an unknown handler reference. Raised at
// schedule/reschedule time, never at fire time.
type ConfigurationError struct {
	Name   string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid schedule config %q: %s: %v", e.Name, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid schedule config %q: %s", e.Name, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// ParseError marks an AI verdict that failed validation (missing fields,
// confidence out of range, unparseable output). The run is aborted and
// nothing is persisted.
type ParseError struct {
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid trade signal: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid trade signal: %s", e.Reason)
}

// IsParseError reports whether err is a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// TransientError marks a collaborator failure (AI timeout or rate limit,
// store unavailable) that the task's own next fire will naturally retry.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure in %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransientError reports whether err is a TransientError.
func IsTransientError(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
