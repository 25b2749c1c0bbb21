package store

import (
	"context"
	"errors"

	"github.com/goliatone/go-aidimport/pkg/types"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// OrganizationRepositoryConfig wires the Bun-backed organization repository.
type OrganizationRepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*OrganizationRecord]
	Clock      types.Clock
	IDGen      types.IDGenerator
}

// OrganizationRepository implements types.OrganizationRepository using Bun.
type OrganizationRepository struct {
	store repository.Repository[*OrganizationRecord]
	clock types.Clock
	idgen types.IDGenerator
}

// NewOrganizationRepository constructs the default organization repository.
func NewOrganizationRepository(cfg OrganizationRepositoryConfig) (*OrganizationRepository, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("store: db or repository required")
	}
	repo := cfg.Repository
	if repo == nil {
		repo = repository.NewRepository(cfg.DB, repository.ModelHandlers[*OrganizationRecord]{
			NewRecord: func() *OrganizationRecord { return &OrganizationRecord{} },
			GetID: func(rec *OrganizationRecord) uuid.UUID {
				if rec == nil {
					return uuid.Nil
				}
				return rec.ID
			},
			SetID: func(rec *OrganizationRecord, id uuid.UUID) {
				if rec != nil {
					rec.ID = id
				}
			},
		})
	}
	return &OrganizationRepository{
		store: repo,
		clock: defaultClock(cfg.Clock),
		idgen: defaultIDGen(cfg.IDGen),
	}, nil
}

var _ types.OrganizationRepository = (*OrganizationRepository)(nil)

// FindByReference returns the organization with the given external reference,
// or nil when none exists.
func (r *OrganizationRepository) FindByReference(ctx context.Context, ref string) (*types.Organization, error) {
	if ref == "" {
		return nil, nil
	}
	rec, err := r.store.Get(ctx, selectIdentifier(ref))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return orgToDomain(rec), nil
}

// FindByName returns the organization with the exact display name, or nil.
func (r *OrganizationRepository) FindByName(ctx context.Context, name string) (*types.Organization, error) {
	if name == "" {
		return nil, nil
	}
	rec, err := r.store.Get(ctx, repository.SelectBy("name", "=", name))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return orgToDomain(rec), nil
}

// FindByID returns the organization by internal key, or nil.
func (r *OrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*types.Organization, error) {
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
	return orgToDomain(rec), nil
}

// UpsertByReference inserts or updates the row matched by external reference.
// Fields present on the incoming organization win; empty incoming fields keep
// the stored value so a sparse re-import does not erase enrichment.
func (r *OrganizationRepository) UpsertByReference(ctx context.Context, org types.Organization) (*types.Organization, bool, error) {
	if org.IATIIdentifier == "" {
		return nil, false, types.ErrIdentifierRequired
	}
	now := r.clock.Now()

	existing, err := r.store.Get(ctx, selectIdentifier(org.IATIIdentifier))
	switch {
	case err == nil:
		merged := mergeOrganization(existing, org)
		merged.UpdatedAt = now
		updated, err := r.store.Update(ctx, merged)
		if err != nil {
			return nil, false, err
		}
		return orgToDomain(updated), false, nil
	case repository.IsRecordNotFound(err):
		rec := orgFromDomain(org)
		rec.ID = r.idgen.UUID()
		rec.CreatedAt = now
		rec.UpdatedAt = now
		created, err := r.store.Create(ctx, rec)
		if err != nil {
			return nil, false, err
		}
		return orgToDomain(created), true, nil
	default:
		return nil, false, err
	}
}

// GetOrCreateByName backs the name-only fallback: organizations without an
// external reference are shared by exact display name.
func (r *OrganizationRepository) GetOrCreateByName(ctx context.Context, org types.Organization) (*types.Organization, bool, error) {
	if org.Name == "" {
		return nil, false, errors.New("store: organization name required")
	}
	existing, err := r.FindByName(ctx, org.Name)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	now := r.clock.Now()
	rec := orgFromDomain(org)
	rec.ID = r.idgen.UUID()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	created, err := r.store.Create(ctx, rec)
	if err != nil {
		return nil, false, err
	}
	return orgToDomain(created), true, nil
}

func mergeOrganization(existing *OrganizationRecord, incoming types.Organization) *OrganizationRecord {
	merged := *existing
	if incoming.Name != "" {
		merged.Name = incoming.Name
	}
	if incoming.OrgType != "" {
		merged.OrgType = incoming.OrgType
	}
	if incoming.Category != "" {
		merged.Category = incoming.Category
	}
	if incoming.Country != "" {
		merged.Country = incoming.Country
	}
	if incoming.ContactEmail != "" {
		merged.ContactEmail = incoming.ContactEmail
	}
	if incoming.Website != "" {
		merged.Website = incoming.Website
	}
	return &merged
}

func selectIdentifier(identifier string) repository.SelectCriteria {
	return repository.SelectBy("iati_identifier", "=", identifier)
}

func defaultClock(clock types.Clock) types.Clock {
	if clock == nil {
		return types.SystemClock{}
	}
	return clock
}

func defaultIDGen(idgen types.IDGenerator) types.IDGenerator {
	if idgen == nil {
		return types.UUIDGenerator{}
	}
	return idgen
}
