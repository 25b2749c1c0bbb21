package validator

import (
	"context"
	"fmt"

	"github.com/goliatone/go-aidimport/codelist"
	"github.com/goliatone/go-aidimport/pkg/types"
	featuregate "github.com/goliatone/go-featuregate/gate"
)

// Config wires the code validator.
type Config struct {
	Registry codelist.Registry
	// Gate controls the free-text fallback; nil leaves unmapped codes
	// blocking.
	Gate featuregate.FeatureGate
	// SeverityOverrides adjusts per-field blocking behavior on top of the
	// gate-derived default.
	SeverityOverrides map[types.Field]types.Severity
	Logger            types.Logger
}

// Validator checks every coded field against the codelist registry. It
// accumulates issues as data and never fails a batch: only registry wiring
// problems surface as errors.
type Validator struct {
	registry  codelist.Registry
	gate      featuregate.FeatureGate
	overrides map[types.Field]types.Severity
	logger    types.Logger
}

// New constructs the validator.
func New(cfg Config) (*Validator, error) {
	if cfg.Registry == nil {
		return nil, types.ErrMissingRegistry
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Validator{
		registry:  cfg.Registry,
		gate:      cfg.Gate,
		overrides: cfg.SeverityOverrides,
		logger:    logger,
	}, nil
}

// Validate walks the parsed document and returns the full issue set.
// unmapped_code issues are keyed by (field, raw value): one issue no matter
// how many transactions share the raw value, so one mapping decision clears
// them all.
func (v *Validator) Validate(ctx context.Context, doc *types.Document) ([]types.ValidationIssue, error) {
	policy, err := ResolvePolicy(v.overrides, v.freetextEnabled(ctx))
	if err != nil {
		return nil, err
	}

	var issues []types.ValidationIssue
	seen := make(map[types.CodeMappingKey]bool)

	checkCode := func(field types.Field, raw string) {
		if raw == "" {
			return
		}
		if v.registry.Contains(field, raw) {
			return
		}
		key := types.CodeMappingKey{Field: field, Raw: raw}
		if seen[key] {
			return
		}
		seen[key] = true
		issues = append(issues, types.ValidationIssue{
			Kind:             types.IssueUnmappedCode,
			Severity:         policy.For(field),
			TransactionIndex: -1,
			ActivityIndex:    -1,
			BudgetIndex:      -1,
			Field:            field,
			Raw:              raw,
			Detail:           fmt.Sprintf("%s code %q is not in the codelist", field, raw),
		})
	}

	for _, act := range doc.Activities {
		checkCode(types.FieldActivityStatus, act.StatusCode)
		checkCode(types.FieldAidType, act.DefaultAidType)
		checkCode(types.FieldFlowType, act.DefaultFlowType)
		checkCode(types.FieldFinanceType, act.DefaultFinanceType)
		checkCode(types.FieldTiedStatus, act.DefaultTiedStatus)
		checkCode(types.FieldOrganizationType, act.ReportingOrg.TypeCode)
		for _, org := range act.ParticipatingOrgs {
			checkCode(types.FieldOrganizationType, org.TypeCode)
		}
		for _, sector := range act.Sectors {
			checkCode(types.FieldSector, sector.Code)
			checkCode(types.FieldSectorVocabulary, sector.Vocabulary)
		}
		for _, bad := range act.Malformed {
			issues = append(issues, malformedIssue(bad, -1, act.Index, -1))
		}
	}

	for _, tx := range doc.Transactions {
		checkCode(types.FieldTransactionType, tx.TypeCode)
		for field, raw := range tx.Codes.ByField() {
			checkCode(field, raw)
		}
		checkCode(types.FieldOrganizationType, tx.Provider.TypeCode)
		checkCode(types.FieldOrganizationType, tx.Receiver.TypeCode)

		issues = append(issues, v.requireTransactionBasics(tx)...)
		for _, bad := range tx.Malformed {
			issues = append(issues, malformedIssue(bad, tx.Index, -1, -1))
		}
	}

	for _, budget := range doc.Budgets {
		checkCode(types.FieldBudgetType, budget.TypeCode)
		if budget.StatusCode != "" && budget.StatusCode != "planned_disbursement" {
			checkCode(types.FieldBudgetStatus, budget.StatusCode)
		}
		if budget.Currency != "" && !v.registry.Contains(types.FieldCurrency, budget.Currency) {
			issues = append(issues, types.ValidationIssue{
				Kind:             types.IssueMalformedValue,
				Severity:         types.SeverityBlocking,
				TransactionIndex: -1,
				ActivityIndex:    -1,
				BudgetIndex:      budget.Index,
				Field:            types.FieldCurrency,
				Raw:              budget.Currency,
				Detail:           fmt.Sprintf("currency %q is not a known currency code", budget.Currency),
			})
		}
		for _, bad := range budget.Malformed {
			issues = append(issues, malformedIssue(bad, -1, -1, budget.Index))
		}
	}

	v.logger.Debug("validated document codes", "issues", len(issues))
	return issues, nil
}

// requireTransactionBasics enforces the type-level minimums a transaction
// needs to be committable: a type, a date, a value, and a known currency.
// Booleans were type-checked by the parser and are never codelist-validated.
func (v *Validator) requireTransactionBasics(tx *types.ParsedTransaction) []types.ValidationIssue {
	var issues []types.ValidationIssue
	blocking := func(field types.Field, raw, detail string) {
		issues = append(issues, types.ValidationIssue{
			Kind:             types.IssueMalformedValue,
			Severity:         types.SeverityBlocking,
			TransactionIndex: tx.Index,
			ActivityIndex:    -1,
			BudgetIndex:      -1,
			Field:            field,
			Raw:              raw,
			Detail:           detail,
		})
	}
	if tx.TypeCode == "" {
		blocking(types.FieldTransactionType, "", "transaction type is required")
	}
	if tx.Date == nil && !hasMalformed(tx.Malformed, "transaction-date") {
		blocking("", "", "transaction date is required")
	}
	if !tx.ValueSet && !hasMalformed(tx.Malformed, "value") {
		blocking("", "", "transaction value is required")
	}
	if tx.Currency == "" {
		blocking(types.FieldCurrency, "", "transaction currency is required")
	} else if !v.registry.Contains(types.FieldCurrency, tx.Currency) {
		blocking(types.FieldCurrency, tx.Currency,
			fmt.Sprintf("currency %q is not a known currency code", tx.Currency))
	}
	return issues
}

func (v *Validator) freetextEnabled(ctx context.Context) bool {
	if v.gate == nil {
		return false
	}
	enabled, err := v.gate.Enabled(ctx, FreetextGateKey)
	if err != nil {
		v.logger.Error("feature gate lookup failed, keeping codes blocking", err, "key", FreetextGateKey)
		return false
	}
	return enabled
}

func malformedIssue(bad types.MalformedField, txIndex, actIndex, budgetIndex int) types.ValidationIssue {
	return types.ValidationIssue{
		Kind:             types.IssueMalformedValue,
		Severity:         types.SeverityBlocking,
		TransactionIndex: txIndex,
		ActivityIndex:    actIndex,
		BudgetIndex:      budgetIndex,
		Raw:              bad.Raw,
		Detail:           fmt.Sprintf("%s: %s", bad.Name, bad.Reason),
	}
}

func hasMalformed(fields []types.MalformedField, name string) bool {
	for _, f := range fields {
		if f.Name == name {
			return true
		}
	}
	return false
}
