package store

import (
	"context"
	"errors"

	"github.com/goliatone/go-aidimport/pkg/types"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivityRepositoryConfig wires the Bun-backed activity repository.
type ActivityRepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*ActivityRecord]
	Clock      types.Clock
	IDGen      types.IDGenerator
}

// ActivityRepository implements types.ActivityRepository using Bun.
type ActivityRepository struct {
	store repository.Repository[*ActivityRecord]
	clock types.Clock
	idgen types.IDGenerator
}

// NewActivityRepository constructs the default activity repository.
func NewActivityRepository(cfg ActivityRepositoryConfig) (*ActivityRepository, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("store: db or repository required")
	}
	repo := cfg.Repository
	if repo == nil {
		repo = repository.NewRepository(cfg.DB, repository.ModelHandlers[*ActivityRecord]{
			NewRecord: func() *ActivityRecord { return &ActivityRecord{} },
			GetID: func(rec *ActivityRecord) uuid.UUID {
				if rec == nil {
					return uuid.Nil
				}
				return rec.ID
			},
			SetID: func(rec *ActivityRecord, id uuid.UUID) {
				if rec != nil {
					rec.ID = id
				}
			},
		})
	}
	return &ActivityRepository{
		store: repo,
		clock: defaultClock(cfg.Clock),
		idgen: defaultIDGen(cfg.IDGen),
	}, nil
}

var _ types.ActivityRepository = (*ActivityRepository)(nil)

// FindByIdentifier returns the activity with the given external identifier,
// or nil when none exists.
func (r *ActivityRepository) FindByIdentifier(ctx context.Context, identifier string) (*types.Activity, error) {
	if identifier == "" {
		return nil, nil
	}
	rec, err := r.store.Get(ctx, selectIdentifier(identifier))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return activityToDomain(rec), nil
}

// FindByID returns the activity by internal key, or nil.
func (r *ActivityRepository) FindByID(ctx context.Context, id uuid.UUID) (*types.Activity, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rec, err := r.store.GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return activityToDomain(rec), nil
}

// UpsertByIdentifier inserts or updates the activity matched by external
// identifier. The caller may pre-assign the internal key for new rows, which
// the importer uses to honor placeholder keys handed out during resolution.
func (r *ActivityRepository) UpsertByIdentifier(ctx context.Context, activity types.Activity) (*types.Activity, bool, error) {
	if activity.IATIIdentifier == "" {
		return nil, false, types.ErrIdentifierRequired
	}
	now := r.clock.Now()

	existing, err := r.store.Get(ctx, selectIdentifier(activity.IATIIdentifier))
	switch {
	case err == nil:
		rec := activityFromDomain(activity)
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		rec.UpdatedAt = now
		if rec.ReportingOrgID == uuid.Nil {
			rec.ReportingOrgID = existing.ReportingOrgID
		}
		updated, err := r.store.Update(ctx, rec)
		if err != nil {
			return nil, false, err
		}
		return activityToDomain(updated), false, nil
	case repository.IsRecordNotFound(err):
		rec := activityFromDomain(activity)
		if rec.ID == uuid.Nil {
			rec.ID = r.idgen.UUID()
		}
		rec.CreatedAt = now
		rec.UpdatedAt = now
		created, err := r.store.Create(ctx, rec)
		if err != nil {
			return nil, false, err
		}
		return activityToDomain(created), true, nil
	default:
		return nil, false, err
	}
}
