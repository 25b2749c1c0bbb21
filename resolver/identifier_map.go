package resolver

import (
	"github.com/goliatone/go-aidimport/pkg/types"
	"github.com/google/uuid"
)

// IdentifierMap maps external activity identifiers to internal keys for one
// batch. Entries are either resolved (persisted row) or pending (batch-local
// placeholder the importer swaps for the real key after it creates the
// activity).
type IdentifierMap struct {
	entries map[string]types.ActivityKey
}

// NewIdentifierMap returns an empty map.
func NewIdentifierMap() *IdentifierMap {
	return &IdentifierMap{entries: make(map[string]types.ActivityKey)}
}

// Add records the key for an identifier. A resolved entry is never displaced
// by a pending one: the persisted record always wins.
func (m *IdentifierMap) Add(identifier string, key types.ActivityKey) {
	if identifier == "" || key.IsZero() {
		return
	}
	if existing, ok := m.entries[identifier]; ok && existing.Resolved() && key.Pending() {
		return
	}
	m.entries[identifier] = key
}

// Lookup returns the key for an identifier.
func (m *IdentifierMap) Lookup(identifier string) (types.ActivityKey, bool) {
	key, ok := m.entries[identifier]
	return key, ok
}

// Len returns the number of mapped identifiers.
func (m *IdentifierMap) Len() int { return len(m.entries) }

// Pending returns identifier → placeholder for every pending entry, the half
// of the map the importer resolves at commit time.
func (m *IdentifierMap) Pending() map[string]uuid.UUID {
	out := make(map[string]uuid.UUID)
	for identifier, key := range m.entries {
		if key.Pending() {
			out[identifier] = key.ID()
		}
	}
	return out
}
