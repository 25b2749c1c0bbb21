package session

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-aidimport/codelist"
	"github.com/goliatone/go-aidimport/pkg/types"
	"github.com/google/uuid"
)

// MappingStore persists code mapping decisions so future imports resolve the
// same raw values without user intervention.
type MappingStore interface {
	SaveMapping(ctx context.Context, mapping codelist.CodeMapping) (*codelist.CodeMapping, error)
}

// Config wires a resolution session.
type Config struct {
	Document *types.Document
	// Mappings is optional: when set, ApplyCodeMapping persists the decision.
	Mappings MappingStore
	Clock    types.Clock
	Logger   types.Logger
}

// Session is the stateful handle between validation and commit. It owns the
// live issue set and the resolution map; every Apply operation removes the
// issues it settles and re-derives the state from what remains, so repeated
// applications are harmless.
//
// A session is request-scoped and not safe for concurrent use.
type Session struct {
	doc        *types.Document
	issues     []types.ValidationIssue
	state      types.SessionState
	resolution *types.ResolutionMap
	result     *types.ImportBatchResult
	mappings   MappingStore
	clock      types.Clock
	logger     types.Logger
}

// New creates a session in the Parsed state.
func New(cfg Config) (*Session, error) {
	if cfg.Document == nil {
		return nil, ErrMissingDocument
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Session{
		doc:        cfg.Document,
		state:      types.SessionParsed,
		resolution: types.NewResolutionMap(),
		mappings:   cfg.Mappings,
		clock:      clock,
		logger:     logger,
	}, nil
}

// ApplyValidation records the validator output and moves the session to
// Blocked or ReadyToImport.
func (s *Session) ApplyValidation(issues []types.ValidationIssue) error {
	if s.state == types.SessionCommitted {
		return types.ErrSessionCommitted
	}
	s.issues = append([]types.ValidationIssue(nil), issues...)
	s.state = types.SessionValidated
	s.reevaluate()
	return nil
}

// State returns the current lifecycle state.
func (s *Session) State() types.SessionState { return s.state }

// Document returns the parsed document the session was opened over.
func (s *Session) Document() *types.Document { return s.doc }

// Resolution exposes the accumulated corrections for the importer.
func (s *Session) Resolution() *types.ResolutionMap { return s.resolution }

// Issues returns a copy of the live issue set.
func (s *Session) Issues() []types.ValidationIssue {
	return append([]types.ValidationIssue(nil), s.issues...)
}

// Result returns the commit result, nil until committed.
func (s *Session) Result() *types.ImportBatchResult { return s.result }

// Summary recomputes the validation report from the live issue set. Counts are
// derived fresh on every call, never cached.
func (s *Session) Summary() types.ValidationSummary {
	summary := types.ValidationSummary{
		State:              s.state,
		ActivitiesParsed:   len(s.doc.Activities),
		TransactionsParsed: len(s.doc.Transactions),
		BudgetsParsed:      len(s.doc.Budgets),
		Issues:             s.Issues(),
	}
	unmapped := make(map[types.CodeMappingKey]bool)
	for _, issue := range s.issues {
		if issue.Blocking() {
			summary.BlockingCount++
		} else {
			summary.WarningCount++
		}
		switch issue.Kind {
		case types.IssueMissingActivity:
			summary.MissingActivityCount++
		case types.IssueUnmappedCode:
			unmapped[types.CodeMappingKey{Field: issue.Field, Raw: issue.Raw}] = true
		case types.IssueMalformedValue:
			summary.MalformedValueCount++
		}
	}
	summary.UnmappedRawValueCount = len(unmapped)
	summary.Blocked = s.state == types.SessionBlocked
	return summary
}

// ApplyActivityAssignment maps a transaction's unresolved activity reference
// to a persisted activity. The assignment fans out to every transaction and
// budget sharing the same external identifier.
func (s *Session) ApplyActivityAssignment(txIndex int, activityID uuid.UUID) error {
	if err := s.mutable(); err != nil {
		return err
	}
	if activityID == uuid.Nil {
		return ErrNilAssignment
	}
	tx := s.transactionAt(txIndex)
	if tx == nil {
		return goerrors.New(
			fmt.Sprintf("no transaction at index %d", txIndex),
			goerrors.CategoryValidation,
		).WithCode(goerrors.CodeBadRequest)
	}
	s.assignActivity(tx.ActivityRef, txIndex, -1, activityID)
	s.reevaluate()
	return nil
}

// ApplyBudgetActivityAssignment is the budget-scoped counterpart of
// ApplyActivityAssignment.
func (s *Session) ApplyBudgetActivityAssignment(budgetIndex int, activityID uuid.UUID) error {
	if err := s.mutable(); err != nil {
		return err
	}
	if activityID == uuid.Nil {
		return ErrNilAssignment
	}
	budget := s.budgetAt(budgetIndex)
	if budget == nil {
		return goerrors.New(
			fmt.Sprintf("no budget at index %d", budgetIndex),
			goerrors.CategoryValidation,
		).WithCode(goerrors.CodeBadRequest)
	}
	s.assignActivity(budget.ActivityRef, -1, budgetIndex, activityID)
	s.reevaluate()
	return nil
}

// ApplyCodeMapping resolves one (field, raw value) pair to a system code. It
// clears the shared unmapped_code issue, which unblocks every transaction
// carrying the raw value. When a mapping store is configured the decision is
// persisted before the issue set is touched, so a storage failure leaves the
// session unchanged.
func (s *Session) ApplyCodeMapping(ctx context.Context, field types.Field, raw, systemCode string) error {
	if err := s.mutable(); err != nil {
		return err
	}
	if field == "" || raw == "" || systemCode == "" {
		return ErrIncompleteMapping
	}
	if s.mappings != nil {
		if _, err := s.mappings.SaveMapping(ctx, codelist.CodeMapping{
			Field:      field,
			Raw:        raw,
			SystemCode: systemCode,
		}); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "persisting code mapping").
				WithMetadata(map[string]any{"field": string(field), "raw": raw})
		}
	}
	key := types.CodeMappingKey{Field: field, Raw: raw}
	s.resolution.Codes[key] = systemCode
	s.dropIssues(func(issue types.ValidationIssue) bool {
		return issue.Kind == types.IssueUnmappedCode && issue.Field == field && issue.Raw == raw
	})
	s.reevaluate()
	s.logger.Debug("code mapping applied", "field", string(field), "raw", raw, "system", systemCode)
	return nil
}

// ApplyStoredMapping applies a previously persisted code mapping without
// writing it back, used when opening a session over a document whose raw
// values were mapped in an earlier import.
func (s *Session) ApplyStoredMapping(field types.Field, raw, systemCode string) error {
	if err := s.mutable(); err != nil {
		return err
	}
	if field == "" || raw == "" || systemCode == "" {
		return ErrIncompleteMapping
	}
	s.resolution.Codes[types.CodeMappingKey{Field: field, Raw: raw}] = systemCode
	s.dropIssues(func(issue types.ValidationIssue) bool {
		return issue.Kind == types.IssueUnmappedCode && issue.Field == field && issue.Raw == raw
	})
	s.reevaluate()
	return nil
}

// ApplyOrganizationAssignment pins one organization slot on one transaction to
// a persisted organization, clearing its unresolved_organization warning.
func (s *Session) ApplyOrganizationAssignment(txIndex int, role types.OrgRole, orgID uuid.UUID) error {
	if err := s.mutable(); err != nil {
		return err
	}
	if orgID == uuid.Nil {
		return ErrNilAssignment
	}
	if s.transactionAt(txIndex) == nil {
		return goerrors.New(
			fmt.Sprintf("no transaction at index %d", txIndex),
			goerrors.CategoryValidation,
		).WithCode(goerrors.CodeBadRequest)
	}
	s.resolution.Organizations[types.OrgAssignmentKey{TransactionIndex: txIndex, Role: role}] = orgID
	s.dropIssues(func(issue types.ValidationIssue) bool {
		return issue.Kind == types.IssueUnresolvedOrganization &&
			issue.TransactionIndex == txIndex && issue.Role == role
	})
	s.reevaluate()
	return nil
}

// EnsureReady guards the commit path. While blocked, the error spells out what
// still needs resolving.
func (s *Session) EnsureReady() error {
	switch s.state {
	case types.SessionCommitted:
		return types.ErrSessionCommitted
	case types.SessionReady:
		return nil
	case types.SessionParsed:
		return types.ErrSessionNotValidated
	}

	summary := s.Summary()
	assignments := s.pendingAssignments()
	msg := fmt.Sprintf(
		"import blocked: %d transactions need activity assignment; %d codes need mapping; %d malformed values",
		assignments, summary.UnmappedRawValueCount-s.warningOnlyUnmapped(), summary.MalformedValueCount,
	)
	return goerrors.New(msg, goerrors.CategoryValidation).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{
			"blocking_count":      summary.BlockingCount,
			"missing_activities":  assignments,
			"unmapped_raw_values": summary.UnmappedRawValueCount,
			"malformed_values":    summary.MalformedValueCount,
		})
}

// MarkCommitted records the import result and closes the session. The
// transition is one-way.
func (s *Session) MarkCommitted(result *types.ImportBatchResult) error {
	if s.state == types.SessionCommitted {
		return types.ErrSessionCommitted
	}
	if err := s.EnsureReady(); err != nil {
		return err
	}
	s.result = result
	s.state = types.SessionCommitted
	return nil
}

func (s *Session) mutable() error {
	switch s.state {
	case types.SessionCommitted:
		return types.ErrSessionCommitted
	case types.SessionParsed:
		return types.ErrSessionNotValidated
	}
	return nil
}

// assignActivity records the resolution for the triggering record, then fans
// out to everything sharing its external identifier.
func (s *Session) assignActivity(ref string, txIndex, budgetIndex int, activityID uuid.UUID) {
	if txIndex >= 0 {
		s.resolution.Activities[txIndex] = activityID
	}
	if budgetIndex >= 0 {
		s.resolution.BudgetActivities[budgetIndex] = activityID
	}
	cleared := map[int]bool{}
	clearedBudgets := map[int]bool{}
	if txIndex >= 0 {
		cleared[txIndex] = true
	}
	if budgetIndex >= 0 {
		clearedBudgets[budgetIndex] = true
	}
	if ref != "" {
		for _, tx := range s.doc.Transactions {
			if tx.ActivityRef == ref && tx.ActivityKey.IsZero() {
				s.resolution.Activities[tx.Index] = activityID
				cleared[tx.Index] = true
			}
		}
		for _, budget := range s.doc.Budgets {
			if budget.ActivityRef == ref && budget.ActivityKey.IsZero() {
				s.resolution.BudgetActivities[budget.Index] = activityID
				clearedBudgets[budget.Index] = true
			}
		}
	}
	s.dropIssues(func(issue types.ValidationIssue) bool {
		if issue.Kind != types.IssueMissingActivity {
			return false
		}
		if issue.TransactionIndex >= 0 {
			return cleared[issue.TransactionIndex]
		}
		return issue.BudgetIndex >= 0 && clearedBudgets[issue.BudgetIndex]
	})
}

func (s *Session) dropIssues(match func(types.ValidationIssue) bool) {
	kept := s.issues[:0]
	for _, issue := range s.issues {
		if !match(issue) {
			kept = append(kept, issue)
		}
	}
	s.issues = kept
}

func (s *Session) reevaluate() {
	if s.state == types.SessionCommitted || s.state == types.SessionParsed {
		return
	}
	for _, issue := range s.issues {
		if issue.Blocking() {
			s.state = types.SessionBlocked
			return
		}
	}
	s.state = types.SessionReady
}

// pendingAssignments counts transactions and budgets still missing an
// activity, the number quoted in the blocked-commit error.
func (s *Session) pendingAssignments() int {
	n := 0
	for _, issue := range s.issues {
		if issue.Kind == types.IssueMissingActivity {
			n++
		}
	}
	return n
}

// warningOnlyUnmapped counts distinct raw values whose unmapped_code issues
// are all warnings; those do not belong in the blocked message.
func (s *Session) warningOnlyUnmapped() int {
	blocking := make(map[types.CodeMappingKey]bool)
	all := make(map[types.CodeMappingKey]bool)
	for _, issue := range s.issues {
		if issue.Kind != types.IssueUnmappedCode {
			continue
		}
		key := types.CodeMappingKey{Field: issue.Field, Raw: issue.Raw}
		all[key] = true
		if issue.Blocking() {
			blocking[key] = true
		}
	}
	return len(all) - len(blocking)
}

func (s *Session) transactionAt(index int) *types.ParsedTransaction {
	for _, tx := range s.doc.Transactions {
		if tx.Index == index {
			return tx
		}
	}
	return nil
}

func (s *Session) budgetAt(index int) *types.ParsedBudget {
	for _, budget := range s.doc.Budgets {
		if budget.Index == index {
			return budget
		}
	}
	return nil
}
