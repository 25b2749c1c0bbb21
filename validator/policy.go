package validator

import (
	"github.com/goliatone/go-aidimport/pkg/types"
	opts "github.com/goliatone/go-options"
)

// FreetextGateKey enables the free-text fallback: when the gate is on,
// unmapped codes degrade to warnings instead of blocking the batch.
const FreetextGateKey = "import.codes.freetext"

// SeverityPolicy decides how hard an unmapped code blocks a batch, per field.
// missing_activity and malformed_value are not represented here: they are
// never downgradable.
type SeverityPolicy struct {
	severities map[types.Field]types.Severity
	fallback   types.Severity
}

// ResolvePolicy merges the blocking-by-default baseline with host overrides
// through layered option scopes, so callers can trace where each field's
// severity came from.
func ResolvePolicy(overrides map[types.Field]types.Severity, freetext bool) (*SeverityPolicy, error) {
	fallback := types.SeverityBlocking
	if freetext {
		fallback = types.SeverityWarning
	}

	defaults := make(map[string]any, len(codeFields))
	for _, field := range codeFields {
		defaults[string(field)] = string(fallback)
	}
	overlay := make(map[string]any, len(overrides))
	for field, severity := range overrides {
		overlay[string(field)] = string(severity)
	}

	defaultScope := opts.NewScope("defaults", 0, opts.WithScopeLabel("codelist severity defaults"))
	overrideScope := opts.NewScope("overrides", 10, opts.WithScopeLabel("host severity overrides"))
	stack, err := opts.NewStack(
		opts.NewLayer(defaultScope, defaults, opts.WithSnapshotID[map[string]any](defaultScope.Name)),
		opts.NewLayer(overrideScope, overlay, opts.WithSnapshotID[map[string]any](overrideScope.Name)),
	)
	if err != nil {
		return nil, err
	}
	merged, err := stack.Merge()
	if err != nil {
		return nil, err
	}

	severities := make(map[types.Field]types.Severity, len(merged.Value))
	for key, value := range merged.Value {
		if s, ok := value.(string); ok {
			severities[types.Field(key)] = types.Severity(s)
		}
	}
	return &SeverityPolicy{severities: severities, fallback: fallback}, nil
}

// For returns the severity applied to unmapped codes on the field.
func (p *SeverityPolicy) For(field types.Field) types.Severity {
	if p == nil {
		return types.SeverityBlocking
	}
	if severity, ok := p.severities[field]; ok {
		return severity
	}
	return p.fallback
}

// codeFields lists every field validated against the registry.
var codeFields = []types.Field{
	types.FieldTransactionType,
	types.FieldFlowType,
	types.FieldFinanceType,
	types.FieldAidType,
	types.FieldTiedStatus,
	types.FieldDisbursementChannel,
	types.FieldSector,
	types.FieldSectorVocabulary,
	types.FieldOrganizationType,
	types.FieldActivityStatus,
	types.FieldBudgetType,
	types.FieldBudgetStatus,
}
