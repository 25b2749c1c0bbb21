package codelist

import (
	"time"

	"github.com/goliatone/go-aidimport/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// MappingRecord models the import_code_mappings row: one accepted
// (field, raw value) → system code decision, reused across imports.
type MappingRecord struct {
	bun.BaseModel `bun:"table:import_code_mappings"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	Field      string    `bun:"field,notnull"`
	RawCode    string    `bun:"raw_code,notnull"`
	SystemCode string    `bun:"system_code,notnull"`
	CreatedAt  time.Time `bun:"created_at"`
	UpdatedAt  time.Time `bun:"updated_at"`
}

// CodeMapping is the domain view of a persisted mapping decision.
type CodeMapping struct {
	ID         uuid.UUID
	Field      types.Field
	Raw        string
	SystemCode string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func toDomain(rec *MappingRecord) *CodeMapping {
	if rec == nil {
		return nil
	}
	return &CodeMapping{
		ID:         rec.ID,
		Field:      types.Field(rec.Field),
		Raw:        rec.RawCode,
		SystemCode: rec.SystemCode,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}

func fromDomain(mapping CodeMapping) *MappingRecord {
	return &MappingRecord{
		ID:         mapping.ID,
		Field:      string(mapping.Field),
		RawCode:    mapping.Raw,
		SystemCode: mapping.SystemCode,
		CreatedAt:  mapping.CreatedAt,
		UpdatedAt:  mapping.UpdatedAt,
	}
}
