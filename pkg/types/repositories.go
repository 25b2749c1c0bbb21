package types

import (
	"context"

	"github.com/google/uuid"
)

// OrganizationRepository is the persisted-store surface the resolver and
// importer need for organizations. Find methods return (nil, nil) when no row
// matches so callers can distinguish absence from store failure.
type OrganizationRepository interface {
	FindByReference(ctx context.Context, ref string) (*Organization, error)
	FindByName(ctx context.Context, name string) (*Organization, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	// UpsertByReference inserts or updates the row matched by external
	// reference. The boolean reports whether a new row was created.
	UpsertByReference(ctx context.Context, org Organization) (*Organization, bool, error)
	// GetOrCreateByName backs the create-with-name-only fallback for
	// organizations that carry no external reference.
	GetOrCreateByName(ctx context.Context, org Organization) (*Organization, bool, error)
}

// ActivityRepository exposes upsert-by-external-identifier semantics for
// activities.
type ActivityRepository interface {
	FindByIdentifier(ctx context.Context, identifier string) (*Activity, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Activity, error)
	UpsertByIdentifier(ctx context.Context, activity Activity) (*Activity, bool, error)
}

// TransactionRepository persists transaction rows. Upserts match by content
// fingerprint so re-importing an unchanged document is a no-op beyond
// timestamps.
type TransactionRepository interface {
	UpsertByFingerprint(ctx context.Context, tx Transaction) (*Transaction, bool, error)
	ListByActivity(ctx context.Context, activityID uuid.UUID) ([]*Transaction, error)
}

// BudgetRepository persists budget and planned-disbursement rows.
type BudgetRepository interface {
	UpsertByFingerprint(ctx context.Context, budget Budget) (*Budget, bool, error)
	ListByActivity(ctx context.Context, activityID uuid.UUID) ([]*Budget, error)
}

// ImportLogRepository records commit audit rows.
type ImportLogRepository interface {
	Record(ctx context.Context, log ImportLog) (*ImportLog, error)
}

// Stores bundles every repository the importer touches.
type Stores struct {
	Organizations OrganizationRepository
	Activities    ActivityRepository
	Transactions  TransactionRepository
	Budgets       BudgetRepository
	ImportLogs    ImportLogRepository
}

// Validate reports the first missing required repository.
func (s Stores) Validate() error {
	switch {
	case s.Organizations == nil:
		return ErrMissingOrganizationRepository
	case s.Activities == nil:
		return ErrMissingActivityRepository
	case s.Transactions == nil:
		return ErrMissingTransactionRepository
	case s.Budgets == nil:
		return ErrMissingBudgetRepository
	default:
		return nil
	}
}
