package codelist

import (
	"context"
	"errors"

	"github.com/goliatone/go-aidimport/pkg/types"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RepositoryConfig wires the Bun-backed mapping repository.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*MappingRecord]
	Clock      types.Clock
	IDGen      types.IDGenerator
}

type mappingStore interface {
	repository.Repository[*MappingRecord]
}

// Repository persists accepted code mappings so one human decision carries
// over to later imports of documents sharing the same raw values.
type Repository struct {
	mappingStore
	clock types.Clock
	idGen types.IDGenerator
}

// NewRepository constructs the default mapping repository.
func NewRepository(cfg RepositoryConfig, options ...RepositoryOption) (*Repository, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("codelist: db or repository required")
	}
	repo := cfg.Repository
	if repo == nil {
		repo = repository.NewRepository(cfg.DB, repository.ModelHandlers[*MappingRecord]{
			NewRecord: func() *MappingRecord { return &MappingRecord{} },
			GetID: func(rec *MappingRecord) uuid.UUID {
				if rec == nil {
					return uuid.Nil
				}
				return rec.ID
			},
			SetID: func(rec *MappingRecord, id uuid.UUID) {
				if rec != nil {
					rec.ID = id
				}
			},
		})
	}

	opts := applyRepositoryOptions(options)
	if opts.CacheEnabled {
		if _, already := repo.(*repositorycache.CachedRepository[*MappingRecord]); !already {
			cacheCfg := cache.DefaultConfig()
			if opts.CacheConfig != nil {
				cacheCfg = *opts.CacheConfig
			}
			service, err := cache.NewCacheService(cacheCfg)
			if err != nil {
				return nil, err
			}
			repo = repositorycache.New(repo, service, cache.NewDefaultKeySerializer())
		}
	}

	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	idGen := cfg.IDGen
	if idGen == nil {
		idGen = types.UUIDGenerator{}
	}

	return &Repository{
		mappingStore: repo,
		clock:        clock,
		idGen:        idGen,
	}, nil
}

var _ repository.Repository[*MappingRecord] = (*Repository)(nil)

// ListMappings returns every persisted mapping decision.
func (r *Repository) ListMappings(ctx context.Context) ([]CodeMapping, error) {
	rows, _, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CodeMapping, 0, len(rows))
	for _, row := range rows {
		out = append(out, *toDomain(row))
	}
	return out, nil
}

// FindMapping returns the mapping for (field, raw), or nil when none exists.
func (r *Repository) FindMapping(ctx context.Context, field types.Field, raw string) (*CodeMapping, error) {
	rec, err := r.Get(ctx, selectField(field), selectRaw(raw))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return toDomain(rec), nil
}

// SaveMapping inserts or updates the decision for (field, raw).
func (r *Repository) SaveMapping(ctx context.Context, mapping CodeMapping) (*CodeMapping, error) {
	now := r.clock.Now()
	rec := fromDomain(mapping)
	rec.UpdatedAt = now

	existing, err := r.Get(ctx, selectField(mapping.Field), selectRaw(mapping.Raw))
	switch {
	case err == nil:
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		updated, err := r.Update(ctx, rec)
		if err != nil {
			return nil, err
		}
		return toDomain(updated), nil
	case repository.IsRecordNotFound(err):
		if rec.ID == uuid.Nil {
			rec.ID = r.idGen.UUID()
		}
		rec.CreatedAt = now
		created, err := r.Create(ctx, rec)
		if err != nil {
			return nil, err
		}
		return toDomain(created), nil
	default:
		return nil, err
	}
}

func selectField(field types.Field) repository.SelectCriteria {
	return repository.SelectBy("field", "=", string(field))
}

func selectRaw(raw string) repository.SelectCriteria {
	return repository.SelectBy("raw_code", "=", raw)
}
