package store

import (
	"context"
	"errors"
	"sync"

	"github.com/goliatone/go-aidimport/pkg/types"
	"github.com/goliatone/go-masker"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ImportLogRepositoryConfig wires the Bun-backed import log repository.
type ImportLogRepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*ImportLogRecord]
	Clock      types.Clock
	IDGen      types.IDGenerator
	// Masker sanitizes error payloads before persistence. Defaults to the
	// shared masker with the import denylist registered.
	Masker *masker.Masker
}

// ImportLogRepository implements types.ImportLogRepository using Bun.
type ImportLogRepository struct {
	store repository.Repository[*ImportLogRecord]
	clock types.Clock
	idgen types.IDGenerator
	mask  *masker.Masker
}

// NewImportLogRepository constructs the default import log repository.
func NewImportLogRepository(cfg ImportLogRepositoryConfig) (*ImportLogRepository, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("store: db or repository required")
	}
	repo := cfg.Repository
	if repo == nil {
		repo = repository.NewRepository(cfg.DB, repository.ModelHandlers[*ImportLogRecord]{
			NewRecord: func() *ImportLogRecord { return &ImportLogRecord{} },
			GetID: func(rec *ImportLogRecord) uuid.UUID {
				if rec == nil {
					return uuid.Nil
				}
				return rec.ID
			},
			SetID: func(rec *ImportLogRecord, id uuid.UUID) {
				if rec != nil {
					rec.ID = id
				}
			},
		})
	}
	mask := cfg.Masker
	if mask == nil {
		mask = DefaultMasker()
	}
	return &ImportLogRepository{
		store: repo,
		clock: defaultClock(cfg.Clock),
		idgen: defaultIDGen(cfg.IDGen),
		mask:  mask,
	}, nil
}

var _ types.ImportLogRepository = (*ImportLogRepository)(nil)

// Record persists one commit audit row. Error payloads are masked first; a
// payload that cannot be masked is dropped rather than stored raw.
func (r *ImportLogRepository) Record(ctx context.Context, log types.ImportLog) (*types.ImportLog, error) {
	rec := logFromDomain(log)
	if rec.ID == uuid.Nil {
		rec.ID = r.idgen.UUID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.clock.Now()
	}
	rec.Errors = sanitizeErrorPayloads(r.mask, rec.Errors)

	created, err := r.store.Create(ctx, rec)
	if err != nil {
		return nil, err
	}
	return logToDomain(created), nil
}

var defaultMaskerOnce sync.Once

// DefaultMasker returns the shared masker with the import denylist registered.
func DefaultMasker() *masker.Masker {
	defaultMaskerOnce.Do(func() {
		if masker.Default == nil {
			return
		}
		registerDefaultMaskFields(masker.Default)
	})
	return masker.Default
}

func registerDefaultMaskFields(mask *masker.Masker) {
	if mask == nil {
		return
	}
	mask.RegisterMaskField("contact_email", "filled4")
	mask.RegisterMaskField("email", "filled4")
	mask.RegisterMaskField("secret", "filled4")
	mask.RegisterMaskField("token", "filled4")
}

func sanitizeErrorPayloads(mask *masker.Masker, payloads []map[string]any) []map[string]any {
	if len(payloads) == 0 {
		return payloads
	}
	out := make([]map[string]any, 0, len(payloads))
	for _, payload := range payloads {
		out = append(out, sanitizePayload(mask, payload))
	}
	return out
}

func sanitizePayload(mask *masker.Masker, payload map[string]any) map[string]any {
	if len(payload) == 0 {
		return map[string]any{}
	}
	if mask == nil {
		return map[string]any{}
	}
	cloned := make(map[string]any, len(payload))
	for key, value := range payload {
		cloned[key] = value
	}
	masked, err := mask.Mask(cloned)
	if err != nil {
		return map[string]any{}
	}
	if typed, ok := masked.(map[string]any); ok {
		return typed
	}
	return map[string]any{}
}
