// Package importer commits a resolved, validated document to the store in
// strict dependency order: organizations, then activities, then transactions
// and budgets.
package importer

import (
	"context"
	"fmt"

	"github.com/goliatone/go-aidimport/codelist"
	"github.com/goliatone/go-aidimport/pkg/types"
	"github.com/google/uuid"
)

// Config wires the importer.
type Config struct {
	Stores types.Stores
	Clock  types.Clock
	Logger types.Logger
	// MaxLoggedFailures caps the error payloads written to the import log.
	MaxLoggedFailures int
}

const defaultMaxLoggedFailures = 20

// Batch is one commit request: the document, the corrections gathered during
// resolution, and audit metadata.
type Batch struct {
	Document     *types.Document
	Resolution   *types.ResolutionMap
	Warnings     []types.ValidationIssue
	DocumentName string
	ActorID      uuid.UUID
}

// Importer executes commits. A single importer is safe to share; each Commit
// call is self-contained and single-threaded.
type Importer struct {
	stores      types.Stores
	clock       types.Clock
	logger      types.Logger
	maxFailures int
}

// New constructs the importer.
func New(cfg Config) (*Importer, error) {
	if err := cfg.Stores.Validate(); err != nil {
		return nil, err
	}
	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	maxFailures := cfg.MaxLoggedFailures
	if maxFailures <= 0 {
		maxFailures = defaultMaxLoggedFailures
	}
	return &Importer{
		stores:      cfg.Stores,
		clock:       clock,
		logger:      logger,
		maxFailures: maxFailures,
	}, nil
}

// commitState carries the per-commit lookup tables between phases.
type commitState struct {
	batch      Batch
	resolution *types.ResolutionMap
	result     *types.ImportBatchResult

	// orgsByRef and orgsByName are filled by the organization phase and
	// consulted when wiring foreign keys.
	orgsByRef  map[string]uuid.UUID
	orgsByName map[string]uuid.UUID

	// activityIDs maps external identifier to committed internal key;
	// failedActivities lists identifiers whose upsert failed, so dependent
	// rows are excluded instead of silently dropped.
	activityIDs      map[string]uuid.UUID
	failedActivities map[string]bool
}

// Commit writes the batch. Row-level failures are recorded on the result and
// the batch continues; only a nil document or missing resolution aborts.
func (i *Importer) Commit(ctx context.Context, batch Batch) (*types.ImportBatchResult, error) {
	if batch.Document == nil {
		return nil, ErrMissingDocument
	}
	resolution := batch.Resolution
	if resolution == nil {
		resolution = types.NewResolutionMap()
	}

	state := &commitState{
		batch:      batch,
		resolution: resolution,
		result: &types.ImportBatchResult{
			Warnings: append([]types.ValidationIssue(nil), batch.Warnings...),
		},
		orgsByRef:        make(map[string]uuid.UUID),
		orgsByName:       make(map[string]uuid.UUID),
		activityIDs:      make(map[string]uuid.UUID),
		failedActivities: make(map[string]bool),
	}

	i.commitOrganizations(ctx, state)
	i.commitActivities(ctx, state)
	i.commitTransactions(ctx, state)
	i.commitBudgets(ctx, state)

	state.result.CompletedAt = i.clock.Now()
	i.writeImportLog(ctx, state)

	i.logger.Info("import batch committed",
		"document", batch.DocumentName,
		"organizations_created", state.result.Organizations.Created,
		"activities_created", state.result.Activities.Created,
		"transactions_created", state.result.Transactions.Created,
		"failures", len(state.result.Failures))
	return state.result, nil
}

// commitOrganizations upserts every organization referenced anywhere in the
// document. An upsert failure on a referenced organization degrades to the
// name-only path before it is reported as a failure.
func (i *Importer) commitOrganizations(ctx context.Context, state *commitState) {
	for _, ref := range collectOrgRefs(state.batch.Document) {
		if ref.Ref != "" {
			i.upsertOrgByRef(ctx, state, ref)
			continue
		}
		i.createOrgByName(ctx, state, ref)
	}
}

func (i *Importer) upsertOrgByRef(ctx context.Context, state *commitState, ref types.OrgRef) {
	if _, done := state.orgsByRef[ref.Ref]; done {
		return
	}
	orgType := state.mappedCode(types.FieldOrganizationType, ref.TypeCode)
	org := types.Organization{
		IATIIdentifier: ref.Ref,
		Name:           ref.Name,
		OrgType:        orgType,
		Category:       orgCategory(orgType),
	}
	saved, created, err := i.stores.Organizations.UpsertByReference(ctx, org)
	if err != nil {
		i.logger.Error("organization upsert failed, trying name-only", err, "ref", ref.Ref)
		if ref.Name != "" {
			i.createOrgByName(ctx, state, ref)
			if id, ok := state.orgsByName[ref.Name]; ok {
				state.orgsByRef[ref.Ref] = id
				return
			}
		}
		state.result.Failures = append(state.result.Failures, types.ImportFailure{
			Entity:     "organization",
			Index:      -1,
			ExternalID: ref.Ref,
			Detail:     err.Error(),
		})
		return
	}
	state.orgsByRef[ref.Ref] = saved.ID
	if ref.Name != "" {
		state.orgsByName[ref.Name] = saved.ID
	}
	bump(&state.result.Organizations, created)
}

func (i *Importer) createOrgByName(ctx context.Context, state *commitState, ref types.OrgRef) {
	if ref.Name == "" {
		return
	}
	if _, done := state.orgsByName[ref.Name]; done {
		return
	}
	orgType := state.mappedCode(types.FieldOrganizationType, ref.TypeCode)
	saved, created, err := i.stores.Organizations.GetOrCreateByName(ctx, types.Organization{
		Name:     ref.Name,
		OrgType:  orgType,
		Category: orgCategory(orgType),
	})
	if err != nil {
		state.result.Failures = append(state.result.Failures, types.ImportFailure{
			Entity:     "organization",
			Index:      -1,
			ExternalID: ref.Name,
			Detail:     err.Error(),
		})
		return
	}
	state.orgsByName[ref.Name] = saved.ID
	bump(&state.result.Organizations, created)
}

// commitActivities upserts activities in document order. Pending placeholder
// keys handed out during resolution become the real internal keys of new
// rows, so forward references recorded against them stay valid.
func (i *Importer) commitActivities(ctx context.Context, state *commitState) {
	placeholders := pendingPlaceholders(state.batch.Document)

	for _, act := range state.batch.Document.Activities {
		if act.IATIIdentifier == "" {
			continue
		}
		activity := types.Activity{
			ID:                 placeholders[act.IATIIdentifier],
			IATIIdentifier:     act.IATIIdentifier,
			Title:              act.Title.Clone(),
			Description:        act.Description.Clone(),
			StatusCode:         state.mappedCode(types.FieldActivityStatus, act.StatusCode),
			PlannedStart:       act.PlannedStart,
			PlannedEnd:         act.PlannedEnd,
			ActualStart:        act.ActualStart,
			ActualEnd:          act.ActualEnd,
			DefaultAidType:     state.mappedCode(types.FieldAidType, act.DefaultAidType),
			DefaultFlowType:    state.mappedCode(types.FieldFlowType, act.DefaultFlowType),
			DefaultFinanceType: state.mappedCode(types.FieldFinanceType, act.DefaultFinanceType),
			DefaultTiedStatus:  state.mappedCode(types.FieldTiedStatus, act.DefaultTiedStatus),
			ReportingOrgID:     state.orgID(act.ReportingOrg, uuid.Nil),
			Sectors:            state.mappedSectors(act.Sectors),
		}
		saved, created, err := i.stores.Activities.UpsertByIdentifier(ctx, activity)
		if err != nil {
			state.failedActivities[act.IATIIdentifier] = true
			state.result.Failures = append(state.result.Failures, types.ImportFailure{
				Entity:     "activity",
				Index:      act.Index,
				ExternalID: act.IATIIdentifier,
				Detail:     err.Error(),
			})
			continue
		}
		state.activityIDs[act.IATIIdentifier] = saved.ID
		bump(&state.result.Activities, created)
	}
}

func (i *Importer) commitTransactions(ctx context.Context, state *commitState) {
	for _, tx := range state.batch.Document.Transactions {
		activityID, failure := state.targetActivity(tx.ActivityRef, tx.ActivityKey, state.resolution.Activities[tx.Index])
		if failure != nil {
			failure.Entity = "transaction"
			failure.Index = tx.Index
			state.result.Failures = append(state.result.Failures, *failure)
			continue
		}

		row := types.Transaction{
			ActivityID:          activityID,
			TypeCode:            state.mappedCode(types.FieldTransactionType, tx.TypeCode),
			Date:                tx.Date,
			Value:               tx.Value,
			Currency:            tx.Currency,
			ValueDate:           tx.ValueDate,
			ProviderOrgID:       state.txOrgID(tx, types.OrgRoleProvider),
			ProviderOrgName:     tx.Provider.Name,
			ProviderActivityID:  state.relatedActivity(tx.Provider.ActivityID, tx.ProviderActivityKey),
			ReceiverOrgID:       state.txOrgID(tx, types.OrgRoleReceiver),
			ReceiverOrgName:     tx.Receiver.Name,
			ReceiverActivityID:  state.relatedActivity(tx.Receiver.ActivityID, tx.ReceiverActivityKey),
			AidType:             state.mappedCode(types.FieldAidType, tx.Codes.AidType),
			FlowType:            state.mappedCode(types.FieldFlowType, tx.Codes.FlowType),
			FinanceType:         state.mappedCode(types.FieldFinanceType, tx.Codes.FinanceType),
			TiedStatus:          state.mappedCode(types.FieldTiedStatus, tx.Codes.TiedStatus),
			DisbursementChannel: state.mappedCode(types.FieldDisbursementChannel, tx.Codes.DisbursementChannel),
			SectorCode:          state.mappedCode(types.FieldSector, tx.Codes.Sector),
			SectorVocabulary:    state.mappedCode(types.FieldSectorVocabulary, tx.Codes.SectorVocabulary),
			Humanitarian:        tx.Humanitarian,
			Description:         tx.Description.Text(),
			Reference:           tx.Reference,
		}
		_, created, err := i.stores.Transactions.UpsertByFingerprint(ctx, row)
		if err != nil {
			state.result.Failures = append(state.result.Failures, types.ImportFailure{
				Entity:     "transaction",
				Index:      tx.Index,
				ExternalID: tx.Reference,
				Detail:     err.Error(),
			})
			continue
		}
		bump(&state.result.Transactions, created)
	}
}

func (i *Importer) commitBudgets(ctx context.Context, state *commitState) {
	for _, budget := range state.batch.Document.Budgets {
		activityID, failure := state.targetActivity(budget.ActivityRef, budget.ActivityKey, state.resolution.BudgetActivities[budget.Index])
		if failure != nil {
			failure.Entity = "budget"
			failure.Index = budget.Index
			state.result.Failures = append(state.result.Failures, *failure)
			continue
		}

		row := types.Budget{
			ActivityID:  activityID,
			TypeCode:    state.mappedCode(types.FieldBudgetType, budget.TypeCode),
			StatusCode:  budget.StatusCode,
			PeriodStart: budget.PeriodStart,
			PeriodEnd:   budget.PeriodEnd,
			Value:       budget.Value,
			Currency:    budget.Currency,
		}
		_, created, err := i.stores.Budgets.UpsertByFingerprint(ctx, row)
		if err != nil {
			state.result.Failures = append(state.result.Failures, types.ImportFailure{
				Entity: "budget",
				Index:  budget.Index,
				Detail: err.Error(),
			})
			continue
		}
		bump(&state.result.Budgets, created)
	}
}

// writeImportLog records the commit for audit. A log write failure is logged
// and swallowed: the data is already committed.
func (i *Importer) writeImportLog(ctx context.Context, state *commitState) {
	if i.stores.ImportLogs == nil {
		return
	}
	result := state.result
	log := types.ImportLog{
		DocumentName:  state.batch.DocumentName,
		ActorID:       state.batch.ActorID,
		Organizations: result.Organizations,
		Activities:    result.Activities,
		Transactions:  result.Transactions,
		Budgets:       result.Budgets,
		FailureCount:  len(result.Failures),
		WarningCount:  len(result.Warnings),
	}
	for idx, failure := range result.Failures {
		if idx >= i.maxFailures {
			break
		}
		log.Errors = append(log.Errors, map[string]any{
			"entity":      failure.Entity,
			"index":       failure.Index,
			"external_id": failure.ExternalID,
			"upstream":    failure.Upstream,
			"detail":      failure.Detail,
		})
	}
	if _, err := i.stores.ImportLogs.Record(ctx, log); err != nil {
		i.logger.Error("import log write failed", err, "document", state.batch.DocumentName)
	}
}

// targetActivity picks the internal key for a dependent row: an explicit
// assignment wins, then the resolver's annotation. A reference whose activity
// failed upstream is reported with the failing identifier.
func (s *commitState) targetActivity(ref string, key types.ActivityKey, assigned uuid.UUID) (uuid.UUID, *types.ImportFailure) {
	if s.failedActivities[ref] {
		return uuid.Nil, &types.ImportFailure{
			Upstream: ref,
			Detail:   fmt.Sprintf("excluded: activity %q failed to import", ref),
		}
	}
	if assigned != uuid.Nil {
		return assigned, nil
	}
	if key.Resolved() {
		return key.ID(), nil
	}
	if key.Pending() {
		if id, ok := s.activityIDs[ref]; ok {
			return id, nil
		}
		return uuid.Nil, &types.ImportFailure{
			Upstream: ref,
			Detail:   fmt.Sprintf("excluded: activity %q was not committed", ref),
		}
	}
	return uuid.Nil, &types.ImportFailure{
		Detail: fmt.Sprintf("no activity assignment for reference %q", ref),
	}
}

// relatedActivity translates a provider/receiver activity key into the
// internal id of the committed row. Unlike targetActivity a miss is not a
// failure: the reference stays null and the raw identifier is preserved on
// the parsed record.
func (s *commitState) relatedActivity(ref string, key types.ActivityKey) uuid.UUID {
	if key.Resolved() {
		return key.ID()
	}
	if key.Pending() {
		if id, ok := s.activityIDs[ref]; ok {
			return id
		}
	}
	return uuid.Nil
}

// txOrgID resolves one organization slot: explicit assignment, resolver
// annotation, then the organizations committed in this batch by reference or
// by name.
func (s *commitState) txOrgID(tx *types.ParsedTransaction, role types.OrgRole) uuid.UUID {
	if id, ok := s.resolution.Organizations[types.OrgAssignmentKey{TransactionIndex: tx.Index, Role: role}]; ok {
		return id
	}
	ref := tx.Provider
	annotated := tx.ProviderKey
	if role == types.OrgRoleReceiver {
		ref = tx.Receiver
		annotated = tx.ReceiverKey
	}
	return s.orgID(ref, annotated)
}

func (s *commitState) orgID(ref types.OrgRef, annotated uuid.UUID) uuid.UUID {
	if annotated != uuid.Nil {
		return annotated
	}
	if ref.Ref != "" {
		if id, ok := s.orgsByRef[ref.Ref]; ok {
			return id
		}
	}
	if ref.Name != "" {
		if id, ok := s.orgsByName[ref.Name]; ok {
			return id
		}
	}
	return uuid.Nil
}

// mappedCode applies a user-supplied code mapping, falling back to the raw
// value.
func (s *commitState) mappedCode(field types.Field, raw string) string {
	if raw == "" {
		return ""
	}
	if mapped, ok := s.resolution.Codes[types.CodeMappingKey{Field: field, Raw: raw}]; ok {
		return mapped
	}
	return raw
}

func (s *commitState) mappedSectors(sectors []types.SectorAllocation) []types.SectorAllocation {
	if len(sectors) == 0 {
		return nil
	}
	out := make([]types.SectorAllocation, 0, len(sectors))
	for _, sector := range sectors {
		out = append(out, types.SectorAllocation{
			Code:       s.mappedCode(types.FieldSector, sector.Code),
			Vocabulary: s.mappedCode(types.FieldSectorVocabulary, sector.Vocabulary),
			Percent:    sector.Percent,
		})
	}
	return out
}

// collectOrgRefs gathers every organization reference in the document,
// deduplicated by external reference first, display name second. Activity
// organizations come before transaction organizations so the reporting org of
// a new activity exists when the activity row is written.
func collectOrgRefs(doc *types.Document) []types.OrgRef {
	var out []types.OrgRef
	seenRefs := make(map[string]bool)
	seenNames := make(map[string]bool)

	add := func(ref types.OrgRef) {
		if ref.Empty() {
			return
		}
		if ref.Ref != "" {
			if seenRefs[ref.Ref] {
				return
			}
			seenRefs[ref.Ref] = true
			out = append(out, ref)
			return
		}
		if seenNames[ref.Name] {
			return
		}
		seenNames[ref.Name] = true
		out = append(out, ref)
	}

	for _, act := range doc.Activities {
		add(act.ReportingOrg)
		for _, org := range act.ParticipatingOrgs {
			add(org)
		}
	}
	for _, tx := range doc.Transactions {
		add(tx.Provider)
		add(tx.Receiver)
	}
	return out
}

// pendingPlaceholders derives external identifier to placeholder key pairs
// from the resolver's annotations on transactions and budgets.
func pendingPlaceholders(doc *types.Document) map[string]uuid.UUID {
	out := make(map[string]uuid.UUID)
	for _, tx := range doc.Transactions {
		if tx.ActivityKey.Pending() && tx.ActivityRef != "" {
			out[tx.ActivityRef] = tx.ActivityKey.ID()
		}
	}
	for _, budget := range doc.Budgets {
		if budget.ActivityKey.Pending() && budget.ActivityRef != "" {
			out[budget.ActivityRef] = budget.ActivityKey.ID()
		}
	}
	return out
}

// orgCategory maps an IATI organisation-type code to the host category. An
// absent type code stays absent rather than defaulting to "other".
func orgCategory(typeCode string) string {
	if typeCode == "" {
		return ""
	}
	return codelist.OrgTypeCategory(typeCode)
}

func bump(counts *types.EntityCounts, created bool) {
	if created {
		counts.Created++
		return
	}
	counts.Updated++
}
