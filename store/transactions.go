package store

import (
	"context"
	"errors"

	"github.com/goliatone/go-aidimport/pkg/types"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TransactionRepositoryConfig wires the Bun-backed transaction repository.
type TransactionRepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*TransactionRecord]
	Clock      types.Clock
	IDGen      types.IDGenerator
}

// TransactionRepository implements types.TransactionRepository using Bun.
type TransactionRepository struct {
	store repository.Repository[*TransactionRecord]
	clock types.Clock
	idgen types.IDGenerator
}

// NewTransactionRepository constructs the default transaction repository.
func NewTransactionRepository(cfg TransactionRepositoryConfig) (*TransactionRepository, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("store: db or repository required")
	}
	repo := cfg.Repository
	if repo == nil {
		repo = repository.NewRepository(cfg.DB, repository.ModelHandlers[*TransactionRecord]{
			NewRecord: func() *TransactionRecord { return &TransactionRecord{} },
			GetID: func(rec *TransactionRecord) uuid.UUID {
				if rec == nil {
					return uuid.Nil
				}
				return rec.ID
			},
			SetID: func(rec *TransactionRecord, id uuid.UUID) {
				if rec != nil {
					rec.ID = id
				}
			},
		})
	}
	return &TransactionRepository{
		store: repo,
		clock: defaultClock(cfg.Clock),
		idgen: defaultIDGen(cfg.IDGen),
	}, nil
}

var _ types.TransactionRepository = (*TransactionRepository)(nil)

// UpsertByFingerprint inserts the transaction, or touches the existing row
// when an identical one is already stored. The fingerprint is derived from
// content, so re-importing an unchanged document moves timestamps only.
func (r *TransactionRepository) UpsertByFingerprint(ctx context.Context, tx types.Transaction) (*types.Transaction, bool, error) {
	if tx.ActivityID == uuid.Nil {
		return nil, false, errors.New("store: transaction requires an activity id")
	}
	if tx.Fingerprint == "" {
		tx.Fingerprint = tx.ComputeFingerprint()
	}
	now := r.clock.Now()

	existing, err := r.store.Get(ctx, selectFingerprint(tx.Fingerprint))
	switch {
	case err == nil:
		rec := txFromDomain(tx)
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		rec.UpdatedAt = now
		updated, err := r.store.Update(ctx, rec)
		if err != nil {
			return nil, false, err
		}
		return txToDomain(updated), false, nil
	case repository.IsRecordNotFound(err):
		rec := txFromDomain(tx)
		if rec.ID == uuid.Nil {
			rec.ID = r.idgen.UUID()
		}
		rec.CreatedAt = now
		rec.UpdatedAt = now
		created, err := r.store.Create(ctx, rec)
		if err != nil {
			return nil, false, err
		}
		return txToDomain(created), true, nil
	default:
		return nil, false, err
	}
}

// ListByActivity returns every transaction for the given activity.
func (r *TransactionRepository) ListByActivity(ctx context.Context, activityID uuid.UUID) ([]*types.Transaction, error) {
	rows, _, err := r.store.List(ctx, selectActivityID(activityID))
	if err != nil {
		return nil, err
	}
	out := make([]*types.Transaction, 0, len(rows))
	for _, rec := range rows {
		out = append(out, txToDomain(rec))
	}
	return out, nil
}

func selectFingerprint(fingerprint string) repository.SelectCriteria {
	return repository.SelectBy("fingerprint", "=", fingerprint)
}

func selectActivityID(activityID uuid.UUID) repository.SelectCriteria {
	return repository.SelectBy("activity_id", "=", activityID.String())
}
