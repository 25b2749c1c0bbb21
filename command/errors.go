package command

import "errors"

var (
	// ErrDocumentRequired occurs when the import command is invoked without a document reader.
	ErrDocumentRequired = errors.New("aidimport: document reader required")
	// ErrSessionRequired occurs when a resolution or commit command lacks a session.
	ErrSessionRequired = errors.New("aidimport: session required")
	// ErrResultRequired occurs when a command has nowhere to write its output.
	ErrResultRequired = errors.New("aidimport: result pointer required")
	// ErrNoResolutions occurs when the apply-resolution command carries no decisions.
	ErrNoResolutions = errors.New("aidimport: at least one resolution decision required")
)
