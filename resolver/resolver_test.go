package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-aidimport/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type stubActivityRepo struct {
	byIdentifier map[string]*types.Activity
	err          error
	lookups      int
}

func (s *stubActivityRepo) FindByIdentifier(_ context.Context, identifier string) (*types.Activity, error) {
	s.lookups++
	if s.err != nil {
		return nil, s.err
	}
	return s.byIdentifier[identifier], nil
}

func (s *stubActivityRepo) FindByID(context.Context, uuid.UUID) (*types.Activity, error) {
	return nil, nil
}

func (s *stubActivityRepo) UpsertByIdentifier(context.Context, types.Activity) (*types.Activity, bool, error) {
	return nil, false, errors.New("not implemented")
}

type stubOrgRepo struct {
	byRef map[string]*types.Organization
}

func (s *stubOrgRepo) FindByReference(_ context.Context, ref string) (*types.Organization, error) {
	return s.byRef[ref], nil
}

func (s *stubOrgRepo) FindByName(context.Context, string) (*types.Organization, error) {
	return nil, nil
}

func (s *stubOrgRepo) FindByID(context.Context, uuid.UUID) (*types.Organization, error) {
	return nil, nil
}

func (s *stubOrgRepo) UpsertByReference(context.Context, types.Organization) (*types.Organization, bool, error) {
	return nil, false, errors.New("not implemented")
}

func (s *stubOrgRepo) GetOrCreateByName(context.Context, types.Organization) (*types.Organization, bool, error) {
	return nil, false, errors.New("not implemented")
}

func batchDocument() *types.Document {
	return &types.Document{
		Activities: []*types.ParsedActivity{
			{Index: 0, IATIIdentifier: "X-1"},
			{Index: 1, IATIIdentifier: "X-2"},
		},
		Transactions: []*types.ParsedTransaction{
			{Index: 0, ActivityRef: "X-1"},
			{Index: 1, ActivityRef: "X-2"},
		},
		Budgets: []*types.ParsedBudget{
			{Index: 0, ActivityRef: "X-1"},
		},
	}
}

func TestResolveInBatchReferences(t *testing.T) {
	r := New(Config{})

	doc := batchDocument()
	idMap, issues, err := r.Resolve(context.Background(), doc)
	require.NoError(t, err)
	require.Empty(t, issues)
	require.Equal(t, 2, idMap.Len())

	require.True(t, doc.Transactions[0].ActivityKey.Pending())
	require.True(t, doc.Transactions[1].ActivityKey.Pending())
	require.True(t, doc.Budgets[0].ActivityKey.Pending())
	require.Equal(t, doc.Transactions[0].ActivityKey.ID(), doc.Budgets[0].ActivityKey.ID(),
		"same identifier must share one placeholder")
	require.NotEqual(t, doc.Transactions[0].ActivityKey.ID(), doc.Transactions[1].ActivityKey.ID())
}

func TestResolveStoredActivityWinsOverPlaceholder(t *testing.T) {
	stored := &types.Activity{ID: uuid.New(), IATIIdentifier: "X-1"}
	repo := &stubActivityRepo{byIdentifier: map[string]*types.Activity{"X-1": stored}}
	r := New(Config{Activities: repo})

	doc := batchDocument()
	_, issues, err := r.Resolve(context.Background(), doc)
	require.NoError(t, err)
	require.Empty(t, issues)

	require.True(t, doc.Transactions[0].ActivityKey.Resolved())
	require.Equal(t, stored.ID, doc.Transactions[0].ActivityKey.ID())
	require.True(t, doc.Transactions[1].ActivityKey.Pending(), "unknown identifier stays pending")
}

func TestResolveUnknownReferenceIsBlocking(t *testing.T) {
	r := New(Config{})

	doc := &types.Document{
		Transactions: []*types.ParsedTransaction{
			{Index: 0, ActivityRef: "GHOST"},
			{Index: 1, ActivityRef: "GHOST"},
		},
		Budgets: []*types.ParsedBudget{
			{Index: 0, ActivityRef: "GHOST"},
		},
	}
	_, issues, err := r.Resolve(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, issues, 3, "one issue per record, not per reference")
	for _, issue := range issues {
		require.Equal(t, types.IssueMissingActivity, issue.Kind)
		require.Equal(t, types.SeverityBlocking, issue.Severity)
	}
	require.True(t, doc.Transactions[0].ActivityKey.IsZero())
}

func TestResolveCachesStoreMisses(t *testing.T) {
	repo := &stubActivityRepo{byIdentifier: map[string]*types.Activity{}}
	r := New(Config{Activities: repo})

	doc := &types.Document{
		Transactions: []*types.ParsedTransaction{
			{Index: 0, ActivityRef: "GHOST"},
			{Index: 1, ActivityRef: "GHOST"},
			{Index: 2, ActivityRef: "GHOST"},
		},
	}
	_, issues, err := r.Resolve(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, issues, 3)
	require.Equal(t, 1, repo.lookups, "repeated misses must not re-query the store")
}

func TestResolveStoreErrorAborts(t *testing.T) {
	repo := &stubActivityRepo{err: errors.New("db down")}
	r := New(Config{Activities: repo})

	_, _, err := r.Resolve(context.Background(), batchDocument())
	require.Error(t, err)
}

func TestResolveActivityWithoutIdentifier(t *testing.T) {
	r := New(Config{})

	doc := &types.Document{
		Activities: []*types.ParsedActivity{{Index: 0}},
	}
	_, issues, err := r.Resolve(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, types.IssueMalformedValue, issues[0].Kind)
	require.Equal(t, types.SeverityBlocking, issues[0].Severity)
}

func TestResolveOrganizations(t *testing.T) {
	known := &types.Organization{ID: uuid.New(), IATIIdentifier: "GB-GOV-1"}
	orgs := &stubOrgRepo{byRef: map[string]*types.Organization{"GB-GOV-1": known}}
	r := New(Config{Organizations: orgs})

	doc := &types.Document{
		Activities: []*types.ParsedActivity{{
			Index:          0,
			IATIIdentifier: "X-1",
			ReportingOrg:   types.OrgRef{Ref: "XM-DAC-3", Name: "AFD"},
		}},
		Transactions: []*types.ParsedTransaction{{
			Index:       0,
			ActivityRef: "X-1",
			Provider:    types.OrgRef{Ref: "GB-GOV-1", Name: "FCDO"},
			Receiver:    types.OrgRef{Ref: "XM-DAC-3", Name: "AFD"},
		}, {
			Index:       1,
			ActivityRef: "X-1",
			Provider:    types.OrgRef{Ref: "NL-KVK-999", Name: "Unknown Org"},
			Receiver:    types.OrgRef{Name: "Name Only NGO"},
		}},
	}
	_, issues, err := r.Resolve(context.Background(), doc)
	require.NoError(t, err)

	require.Equal(t, known.ID, doc.Transactions[0].ProviderKey, "stored organization resolves")
	require.Equal(t, uuid.Nil, doc.Transactions[0].ReceiverKey, "in-batch reference resolves at commit")

	require.Len(t, issues, 1, "only the genuinely unknown reference warns")
	issue := issues[0]
	require.Equal(t, types.IssueUnresolvedOrganization, issue.Kind)
	require.Equal(t, types.SeverityWarning, issue.Severity)
	require.Equal(t, "NL-KVK-999", issue.Raw)
	require.Equal(t, types.OrgRoleProvider, issue.Role)
}

func TestResolveProviderActivityReferences(t *testing.T) {
	stored := &types.Activity{ID: uuid.New(), IATIIdentifier: "GB-GOV-1-OLD"}
	repo := &stubActivityRepo{byIdentifier: map[string]*types.Activity{"GB-GOV-1-OLD": stored}}
	r := New(Config{Activities: repo})

	doc := &types.Document{
		Activities: []*types.ParsedActivity{
			{Index: 0, IATIIdentifier: "X-1"},
			{Index: 1, IATIIdentifier: "X-2"},
		},
		Transactions: []*types.ParsedTransaction{{
			Index:       0,
			ActivityRef: "X-2",
			Provider:    types.OrgRef{Name: "Funder", ActivityID: "X-1"},
		}, {
			Index:       1,
			ActivityRef: "X-2",
			Receiver:    types.OrgRef{Name: "Legacy Org", ActivityID: "GB-GOV-1-OLD"},
		}, {
			Index:       2,
			ActivityRef: "X-2",
			Provider:    types.OrgRef{Name: "Ghost", ActivityID: "NL-KVK-9-GONE"},
		}},
	}
	idMap, issues, err := r.Resolve(context.Background(), doc)
	require.NoError(t, err)

	inBatch, ok := idMap.Lookup("X-1")
	require.True(t, ok)
	require.True(t, doc.Transactions[0].ProviderActivityKey.Pending())
	require.Equal(t, inBatch.ID(), doc.Transactions[0].ProviderActivityKey.ID(),
		"in-batch reference shares the activity's placeholder")

	require.True(t, doc.Transactions[1].ReceiverActivityKey.Resolved())
	require.Equal(t, stored.ID, doc.Transactions[1].ReceiverActivityKey.ID())

	require.True(t, doc.Transactions[2].ProviderActivityKey.IsZero())
	require.Len(t, issues, 1, "only the unknown reference warns")
	issue := issues[0]
	require.Equal(t, types.IssueUnresolvedOrganization, issue.Kind)
	require.Equal(t, types.SeverityWarning, issue.Severity)
	require.Equal(t, 2, issue.TransactionIndex)
	require.Equal(t, types.OrgRoleProvider, issue.Role)
	require.Equal(t, "NL-KVK-9-GONE", issue.Raw)
}

func TestIdentifierMapResolvedNeverDisplaced(t *testing.T) {
	m := NewIdentifierMap()
	stored := types.ResolvedKey(uuid.New())
	m.Add("X-1", stored)
	m.Add("X-1", types.PendingKey(uuid.New()))

	key, ok := m.Lookup("X-1")
	require.True(t, ok)
	require.Equal(t, stored, key)

	m.Add("X-2", types.PendingKey(uuid.New()))
	pending := m.Pending()
	require.Len(t, pending, 1)
	require.Contains(t, pending, "X-2")
}
