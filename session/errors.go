package session

import "errors"

var (
	// ErrMissingDocument indicates the session was opened without a parsed document.
	ErrMissingDocument = errors.New("aidimport: session document is required")

	// ErrNilAssignment indicates an assignment with a nil identifier.
	ErrNilAssignment = errors.New("aidimport: assignment requires a non-nil identifier")

	// ErrIncompleteMapping indicates a code mapping with an empty field, raw
	// value, or system code.
	ErrIncompleteMapping = errors.New("aidimport: code mapping requires field, raw value, and system code")
)
