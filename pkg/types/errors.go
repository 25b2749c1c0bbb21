package types

import "errors"

var (
	// ErrMissingOrganizationRepository indicates importer wiring without an organization store.
	ErrMissingOrganizationRepository = errors.New("aidimport: organization repository required")
	// ErrMissingActivityRepository indicates importer wiring without an activity store.
	ErrMissingActivityRepository = errors.New("aidimport: activity repository required")
	// ErrMissingTransactionRepository indicates importer wiring without a transaction store.
	ErrMissingTransactionRepository = errors.New("aidimport: transaction repository required")
	// ErrMissingBudgetRepository indicates importer wiring without a budget store.
	ErrMissingBudgetRepository = errors.New("aidimport: budget repository required")
	// ErrMissingRegistry indicates validator wiring without a codelist registry.
	ErrMissingRegistry = errors.New("aidimport: codelist registry required")
	// ErrIdentifierRequired indicates an activity without an external identifier.
	ErrIdentifierRequired = errors.New("aidimport: iati identifier required")
	// ErrSessionCommitted indicates a resolution or commit attempt on an already committed session.
	ErrSessionCommitted = errors.New("aidimport: session already committed")
	// ErrSessionNotValidated indicates a commit attempt before validation ran.
	ErrSessionNotValidated = errors.New("aidimport: session not validated")
)
