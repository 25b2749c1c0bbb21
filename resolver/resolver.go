package resolver

import (
	"context"
	"fmt"

	"github.com/goliatone/go-aidimport/pkg/types"
	"github.com/google/uuid"
)

// Config wires the resolver's collaborators. Repositories are the persisted
// tier of the two-tier lookup; leaving one nil skips that tier, which is how
// unit tests run against in-batch data only.
type Config struct {
	Activities    types.ActivityRepository
	Organizations types.OrganizationRepository
	IDGen         types.IDGenerator
	Logger        types.Logger
}

// Resolver annotates parsed records with internal keys. It never fails a
// batch over an unresolvable reference: the record is flagged with an issue
// and the rest of the document keeps validating.
type Resolver struct {
	activities    types.ActivityRepository
	organizations types.OrganizationRepository
	idGen         types.IDGenerator
	logger        types.Logger
}

// New constructs a resolver with nil-safe defaults.
func New(cfg Config) *Resolver {
	idGen := cfg.IDGen
	if idGen == nil {
		idGen = types.UUIDGenerator{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Resolver{
		activities:    cfg.Activities,
		organizations: cfg.Organizations,
		idGen:         idGen,
		logger:        logger,
	}
}

// Resolve builds the identifier map from every activity in the document, then
// resolves each transaction and budget against (1) the in-batch map and
// (2) the persisted store. Store errors abort; reference misses never do.
func (r *Resolver) Resolve(ctx context.Context, doc *types.Document) (*IdentifierMap, []types.ValidationIssue, error) {
	idMap := NewIdentifierMap()
	var issues []types.ValidationIssue

	batchOrgs := collectBatchOrgs(doc)

	for _, act := range doc.Activities {
		if act.IATIIdentifier == "" {
			issues = append(issues, types.ValidationIssue{
				Kind:             types.IssueMalformedValue,
				Severity:         types.SeverityBlocking,
				ActivityIndex:    act.Index,
				TransactionIndex: -1,
				BudgetIndex:      -1,
				Detail:           "activity has no iati-identifier and cannot be upserted",
			})
			continue
		}
		existing, err := r.findActivity(ctx, act.IATIIdentifier)
		if err != nil {
			return nil, nil, err
		}
		if existing != nil {
			idMap.Add(act.IATIIdentifier, types.ResolvedKey(existing.ID))
			continue
		}
		idMap.Add(act.IATIIdentifier, types.PendingKey(r.idGen.UUID()))
	}

	storeMisses := make(map[string]bool)
	resolveRef := func(ref string) (types.ActivityKey, error) {
		if key, ok := idMap.Lookup(ref); ok {
			return key, nil
		}
		if storeMisses[ref] {
			return types.ActivityKey{}, nil
		}
		existing, err := r.findActivity(ctx, ref)
		if err != nil {
			return types.ActivityKey{}, err
		}
		if existing == nil {
			storeMisses[ref] = true
			return types.ActivityKey{}, nil
		}
		key := types.ResolvedKey(existing.ID)
		idMap.Add(ref, key)
		return key, nil
	}

	for _, tx := range doc.Transactions {
		if tx.ActivityRef == "" {
			issues = append(issues, missingActivityIssue(tx.Index, -1, "transaction has no owning activity identifier"))
			continue
		}
		key, err := resolveRef(tx.ActivityRef)
		if err != nil {
			return nil, nil, err
		}
		if key.IsZero() {
			issues = append(issues, missingActivityIssue(tx.Index, -1,
				fmt.Sprintf("activity %q not found in batch or store", tx.ActivityRef)))
			continue
		}
		tx.ActivityKey = key
	}

	for _, tx := range doc.Transactions {
		for _, slot := range []struct {
			role types.OrgRole
			ref  string
			key  *types.ActivityKey
		}{
			{types.OrgRoleProvider, tx.Provider.ActivityID, &tx.ProviderActivityKey},
			{types.OrgRoleReceiver, tx.Receiver.ActivityID, &tx.ReceiverActivityKey},
		} {
			if slot.ref == "" {
				continue
			}
			key, err := resolveRef(slot.ref)
			if err != nil {
				return nil, nil, err
			}
			if key.IsZero() {
				// A related-activity miss never blocks: the reference is
				// informational, unlike the owning activity reference.
				issues = append(issues, types.ValidationIssue{
					Kind:             types.IssueUnresolvedOrganization,
					Severity:         types.SeverityWarning,
					TransactionIndex: tx.Index,
					ActivityIndex:    -1,
					BudgetIndex:      -1,
					Role:             slot.role,
					Raw:              slot.ref,
					Detail:           fmt.Sprintf("%s activity %q not found in batch or store", slot.role, slot.ref),
				})
				continue
			}
			*slot.key = key
		}
	}

	for _, budget := range doc.Budgets {
		if budget.ActivityRef == "" {
			issues = append(issues, missingActivityIssue(-1, budget.Index, "budget has no owning activity identifier"))
			continue
		}
		key, err := resolveRef(budget.ActivityRef)
		if err != nil {
			return nil, nil, err
		}
		if key.IsZero() {
			issues = append(issues, missingActivityIssue(-1, budget.Index,
				fmt.Sprintf("activity %q not found in batch or store", budget.ActivityRef)))
			continue
		}
		budget.ActivityKey = key
	}

	orgIssues, err := r.resolveOrganizations(ctx, doc, batchOrgs)
	if err != nil {
		return nil, nil, err
	}
	issues = append(issues, orgIssues...)

	r.logger.Debug("resolved document references",
		"activities", len(doc.Activities),
		"transactions", len(doc.Transactions),
		"issues", len(issues))
	return idMap, issues, nil
}

// resolveOrganizations runs the two-tier lookup for provider and receiver
// references. An unresolved organization is a warning, never a blocker: a
// name-only organization is still valid and the importer falls back to
// create-by-name.
func (r *Resolver) resolveOrganizations(ctx context.Context, doc *types.Document, batchOrgs map[string]bool) ([]types.ValidationIssue, error) {
	var issues []types.ValidationIssue
	storeHits := make(map[string]uuid.UUID)
	storeMisses := make(map[string]bool)

	resolveOrg := func(ref types.OrgRef) (uuid.UUID, bool, error) {
		if ref.Ref == "" {
			return uuid.Nil, false, nil
		}
		if id, ok := storeHits[ref.Ref]; ok {
			return id, true, nil
		}
		if !storeMisses[ref.Ref] && r.organizations != nil {
			existing, err := r.organizations.FindByReference(ctx, ref.Ref)
			if err != nil {
				return uuid.Nil, false, err
			}
			if existing != nil {
				storeHits[ref.Ref] = existing.ID
				return existing.ID, true, nil
			}
			storeMisses[ref.Ref] = true
		}
		// In-batch references resolve at commit time when the importer
		// creates the organization; no warning needed.
		return uuid.Nil, batchOrgs[ref.Ref], nil
	}

	for _, tx := range doc.Transactions {
		for _, slot := range []struct {
			role types.OrgRole
			ref  types.OrgRef
			key  *uuid.UUID
		}{
			{types.OrgRoleProvider, tx.Provider, &tx.ProviderKey},
			{types.OrgRoleReceiver, tx.Receiver, &tx.ReceiverKey},
		} {
			if slot.ref.Empty() {
				continue
			}
			id, resolved, err := resolveOrg(slot.ref)
			if err != nil {
				return nil, err
			}
			if id != uuid.Nil {
				*slot.key = id
				continue
			}
			if !resolved && slot.ref.Ref != "" {
				issues = append(issues, types.ValidationIssue{
					Kind:             types.IssueUnresolvedOrganization,
					Severity:         types.SeverityWarning,
					TransactionIndex: tx.Index,
					ActivityIndex:    -1,
					BudgetIndex:      -1,
					Role:             slot.role,
					Raw:              slot.ref.Ref,
					Detail:           fmt.Sprintf("%s organization %q not found; will be created by name", slot.role, slot.ref.Ref),
				})
			}
		}
	}
	return issues, nil
}

func (r *Resolver) findActivity(ctx context.Context, identifier string) (*types.Activity, error) {
	if r.activities == nil {
		return nil, nil
	}
	return r.activities.FindByIdentifier(ctx, identifier)
}

// collectBatchOrgs gathers every organization reference declared on the
// document's activities, the in-batch tier for organization resolution.
func collectBatchOrgs(doc *types.Document) map[string]bool {
	out := make(map[string]bool)
	for _, act := range doc.Activities {
		if act.ReportingOrg.Ref != "" {
			out[act.ReportingOrg.Ref] = true
		}
		for _, org := range act.ParticipatingOrgs {
			if org.Ref != "" {
				out[org.Ref] = true
			}
		}
	}
	return out
}

func missingActivityIssue(txIndex, budgetIndex int, detail string) types.ValidationIssue {
	return types.ValidationIssue{
		Kind:             types.IssueMissingActivity,
		Severity:         types.SeverityBlocking,
		TransactionIndex: txIndex,
		ActivityIndex:    -1,
		BudgetIndex:      budgetIndex,
		Detail:           detail,
	}
}
