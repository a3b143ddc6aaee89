package model

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrDuplicateCall means another session already references the call id.
	ErrDuplicateCall = errors.New("call already bound to a session")
)
