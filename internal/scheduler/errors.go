package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAttemptInFlight rejects a submission while the same initiator
// already has one running.
var ErrAttemptInFlight = errors.New("a scheduling attempt is already in progress")

// Violation names one invalid request field.
type Violation struct {
	Field       string
	Description string
}

// ValidationError is returned before any call or session is created.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Field + ": " + v.Description
	}
	return "invalid booking: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Violations = append(e.Violations, Violation{Field: field, Description: fmt.Sprintf(format, args...)})
}

// ProvisionError means the video call could not be created. Nothing was
// persisted; submitting again is safe.
type ProvisionError struct {
	CallID string
	Err    error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("could not create video call %s: %v", e.CallID, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// PersistenceError means the call exists but the session was not saved.
// Retrying with CallID reuses the same call.
type PersistenceError struct {
	CallID string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("call %s was created but the session was not saved: %v", e.CallID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
