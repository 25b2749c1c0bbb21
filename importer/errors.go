package importer

import "errors"

// ErrMissingDocument indicates a commit was requested without a parsed document.
var ErrMissingDocument = errors.New("aidimport: commit requires a parsed document")
