package store

import (
	"context"
	"errors"

	"github.com/goliatone/go-aidimport/pkg/types"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BudgetRepositoryConfig wires the Bun-backed budget repository.
type BudgetRepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*BudgetRecord]
	Clock      types.Clock
	IDGen      types.IDGenerator
}

// BudgetRepository implements types.BudgetRepository using Bun.
type BudgetRepository struct {
	store repository.Repository[*BudgetRecord]
	clock types.Clock
	idgen types.IDGenerator
}

// NewBudgetRepository constructs the default budget repository.
func NewBudgetRepository(cfg BudgetRepositoryConfig) (*BudgetRepository, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("store: db or repository required")
	}
	repo := cfg.Repository
	if repo == nil {
		repo = repository.NewRepository(cfg.DB, repository.ModelHandlers[*BudgetRecord]{
			NewRecord: func() *BudgetRecord { return &BudgetRecord{} },
			GetID: func(rec *BudgetRecord) uuid.UUID {
				if rec == nil {
					return uuid.Nil
				}
				return rec.ID
			},
			SetID: func(rec *BudgetRecord, id uuid.UUID) {
				if rec != nil {
					rec.ID = id
				}
			},
		})
	}
	return &BudgetRepository{
		store: repo,
		clock: defaultClock(cfg.Clock),
		idgen: defaultIDGen(cfg.IDGen),
	}, nil
}

var _ types.BudgetRepository = (*BudgetRepository)(nil)

// UpsertByFingerprint mirrors the transaction upsert for budget rows.
func (r *BudgetRepository) UpsertByFingerprint(ctx context.Context, budget types.Budget) (*types.Budget, bool, error) {
	if budget.ActivityID == uuid.Nil {
		return nil, false, errors.New("store: budget requires an activity id")
	}
	if budget.Fingerprint == "" {
		budget.Fingerprint = budget.ComputeFingerprint()
	}
	now := r.clock.Now()

	existing, err := r.store.Get(ctx, selectFingerprint(budget.Fingerprint))
	switch {
	case err == nil:
		rec := budgetFromDomain(budget)
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		rec.UpdatedAt = now
		updated, err := r.store.Update(ctx, rec)
		if err != nil {
			return nil, false, err
		}
		return budgetToDomain(updated), false, nil
	case repository.IsRecordNotFound(err):
		rec := budgetFromDomain(budget)
		if rec.ID == uuid.Nil {
			rec.ID = r.idgen.UUID()
		}
		rec.CreatedAt = now
		rec.UpdatedAt = now
		created, err := r.store.Create(ctx, rec)
		if err != nil {
			return nil, false, err
		}
		return budgetToDomain(created), true, nil
	default:
		return nil, false, err
	}
}

// ListByActivity returns every budget row for the given activity.
func (r *BudgetRepository) ListByActivity(ctx context.Context, activityID uuid.UUID) ([]*types.Budget, error) {
	rows, _, err := r.store.List(ctx, selectActivityID(activityID))
	if err != nil {
		return nil, err
	}
	out := make([]*types.Budget, 0, len(rows))
	for _, rec := range rows {
		out = append(out, budgetToDomain(rec))
	}
	return out, nil
}
