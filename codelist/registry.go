package codelist

import (
	"embed"
	"encoding/json"
	"sort"
	"sync"

	"github.com/goliatone/go-aidimport/pkg/types"
)

//go:embed data/codelists.json
var codelistFS embed.FS

// Registry answers set-membership checks for coded classification fields.
// It is pure lookup: implementations hold no mutable state and are passed
// explicitly into the validator and importer.
type Registry interface {
	Contains(field types.Field, code string) bool
	Codes(field types.Field) []string
}

// StaticRegistry is an immutable in-memory registry.
type StaticRegistry struct {
	sets map[types.Field]map[string]struct{}
}

// NewStaticRegistry builds a registry from explicit code sets. Useful for
// tests with fixed fixtures.
func NewStaticRegistry(data map[types.Field][]string) *StaticRegistry {
	sets := make(map[types.Field]map[string]struct{}, len(data))
	for field, codes := range data {
		set := make(map[string]struct{}, len(codes))
		for _, code := range codes {
			set[code] = struct{}{}
		}
		sets[field] = set
	}
	return &StaticRegistry{sets: sets}
}

// Contains implements Registry.
func (r *StaticRegistry) Contains(field types.Field, code string) bool {
	if r == nil || code == "" {
		return false
	}
	set, ok := r.sets[field]
	if !ok {
		return false
	}
	_, ok = set[code]
	return ok
}

// Codes implements Registry, returning the sorted code list for a field.
func (r *StaticRegistry) Codes(field types.Field) []string {
	if r == nil {
		return nil
	}
	set, ok := r.sets[field]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for code := range set {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

var (
	defaultOnce     sync.Once
	defaultRegistry *StaticRegistry
)

// Default returns the registry built from the embedded IATI code sets.
func Default() *StaticRegistry {
	defaultOnce.Do(func() {
		raw, err := codelistFS.ReadFile("data/codelists.json")
		if err != nil {
			defaultRegistry = NewStaticRegistry(nil)
			return
		}
		var data map[types.Field][]string
		if err := json.Unmarshal(raw, &data); err != nil {
			defaultRegistry = NewStaticRegistry(nil)
			return
		}
		defaultRegistry = NewStaticRegistry(data)
	})
	return defaultRegistry
}
