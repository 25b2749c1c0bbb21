package command

import (
	"context"
	"testing"

	"github.com/goliatone/go-aidimport/codelist"
	"github.com/goliatone/go-aidimport/pkg/types"
	"github.com/goliatone/go-aidimport/resolver"
	"github.com/goliatone/go-aidimport/validator"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testRegistry() codelist.Registry {
	return codelist.NewStaticRegistry(map[types.Field][]string{
		types.FieldActivityStatus:   {"2"},
		types.FieldTransactionType:  {"2", "3"},
		types.FieldAidType:          {"C01"},
		types.FieldOrganizationType: {"40"},
		types.FieldCurrency:         {"USD"},
		types.FieldBudgetType:       {"1"},
		types.FieldBudgetStatus:     {"1", "2"},
	})
}

func newImportCommand(t *testing.T, mappings MappingRepository) *ImportDocumentCommand {
	t.Helper()
	v, err := validator.New(validator.Config{Registry: testRegistry()})
	require.NoError(t, err)
	cmd, err := NewImportDocumentCommand(ImportDocumentCommandConfig{
		Resolver:  resolver.New(resolver.Config{}),
		Validator: v,
		Mappings:  mappings,
	})
	require.NoError(t, err)
	return cmd
}

type fakeMappingRepo struct {
	saved     map[types.CodeMappingKey]string
	findCalls int
	saveCalls int
}

func newFakeMappingRepo() *fakeMappingRepo {
	return &fakeMappingRepo{saved: map[types.CodeMappingKey]string{}}
}

func (f *fakeMappingRepo) FindMapping(_ context.Context, field types.Field, raw string) (*codelist.CodeMapping, error) {
	f.findCalls++
	system, ok := f.saved[types.CodeMappingKey{Field: field, Raw: raw}]
	if !ok {
		return nil, nil
	}
	return &codelist.CodeMapping{Field: field, Raw: raw, SystemCode: system}, nil
}

func (f *fakeMappingRepo) SaveMapping(_ context.Context, mapping codelist.CodeMapping) (*codelist.CodeMapping, error) {
	f.saveCalls++
	f.saved[types.CodeMappingKey{Field: mapping.Field, Raw: mapping.Raw}] = mapping.SystemCode
	return &mapping, nil
}

type fakeOrgRepo struct {
	byRef  map[string]*types.Organization
	byName map[string]*types.Organization
}

func newFakeOrgRepo() *fakeOrgRepo {
	return &fakeOrgRepo{
		byRef:  map[string]*types.Organization{},
		byName: map[string]*types.Organization{},
	}
}

func (f *fakeOrgRepo) FindByReference(_ context.Context, ref string) (*types.Organization, error) {
	return f.byRef[ref], nil
}

func (f *fakeOrgRepo) FindByName(_ context.Context, name string) (*types.Organization, error) {
	return f.byName[name], nil
}

func (f *fakeOrgRepo) FindByID(_ context.Context, id uuid.UUID) (*types.Organization, error) {
	for _, org := range f.byRef {
		if org.ID == id {
			return org, nil
		}
	}
	for _, org := range f.byName {
		if org.ID == id {
			return org, nil
		}
	}
	return nil, nil
}

func (f *fakeOrgRepo) UpsertByReference(_ context.Context, org types.Organization) (*types.Organization, bool, error) {
	if existing, ok := f.byRef[org.IATIIdentifier]; ok {
		if org.Name != "" {
			existing.Name = org.Name
		}
		if org.OrgType != "" {
			existing.OrgType = org.OrgType
		}
		return existing, false, nil
	}
	org.ID = uuid.New()
	stored := org
	f.byRef[org.IATIIdentifier] = &stored
	return &stored, true, nil
}

func (f *fakeOrgRepo) GetOrCreateByName(_ context.Context, org types.Organization) (*types.Organization, bool, error) {
	if existing, ok := f.byName[org.Name]; ok {
		return existing, false, nil
	}
	org.ID = uuid.New()
	stored := org
	f.byName[org.Name] = &stored
	return &stored, true, nil
}

type fakeActivityRepo struct {
	byIdentifier map[string]*types.Activity
}

func newFakeActivityRepo() *fakeActivityRepo {
	return &fakeActivityRepo{byIdentifier: map[string]*types.Activity{}}
}

func (f *fakeActivityRepo) FindByIdentifier(_ context.Context, identifier string) (*types.Activity, error) {
	return f.byIdentifier[identifier], nil
}

func (f *fakeActivityRepo) FindByID(_ context.Context, id uuid.UUID) (*types.Activity, error) {
	for _, act := range f.byIdentifier {
		if act.ID == id {
			return act, nil
		}
	}
	return nil, nil
}

func (f *fakeActivityRepo) UpsertByIdentifier(_ context.Context, activity types.Activity) (*types.Activity, bool, error) {
	if existing, ok := f.byIdentifier[activity.IATIIdentifier]; ok {
		activity.ID = existing.ID
		stored := activity
		f.byIdentifier[activity.IATIIdentifier] = &stored
		return &stored, false, nil
	}
	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	stored := activity
	f.byIdentifier[activity.IATIIdentifier] = &stored
	return &stored, true, nil
}

type fakeTransactionRepo struct {
	byFingerprint map[string]*types.Transaction
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{byFingerprint: map[string]*types.Transaction{}}
}

func (f *fakeTransactionRepo) UpsertByFingerprint(_ context.Context, tx types.Transaction) (*types.Transaction, bool, error) {
	if tx.Fingerprint == "" {
		tx.Fingerprint = tx.ComputeFingerprint()
	}
	if existing, ok := f.byFingerprint[tx.Fingerprint]; ok {
		tx.ID = existing.ID
		stored := tx
		f.byFingerprint[tx.Fingerprint] = &stored
		return &stored, false, nil
	}
	tx.ID = uuid.New()
	stored := tx
	f.byFingerprint[tx.Fingerprint] = &stored
	return &stored, true, nil
}

func (f *fakeTransactionRepo) ListByActivity(_ context.Context, activityID uuid.UUID) ([]*types.Transaction, error) {
	var out []*types.Transaction
	for _, tx := range f.byFingerprint {
		if tx.ActivityID == activityID {
			out = append(out, tx)
		}
	}
	return out, nil
}

type fakeBudgetRepo struct {
	byFingerprint map[string]*types.Budget
}

func newFakeBudgetRepo() *fakeBudgetRepo {
	return &fakeBudgetRepo{byFingerprint: map[string]*types.Budget{}}
}

func (f *fakeBudgetRepo) UpsertByFingerprint(_ context.Context, budget types.Budget) (*types.Budget, bool, error) {
	if budget.Fingerprint == "" {
		budget.Fingerprint = budget.ComputeFingerprint()
	}
	if existing, ok := f.byFingerprint[budget.Fingerprint]; ok {
		budget.ID = existing.ID
		stored := budget
		f.byFingerprint[budget.Fingerprint] = &stored
		return &stored, false, nil
	}
	budget.ID = uuid.New()
	stored := budget
	f.byFingerprint[budget.Fingerprint] = &stored
	return &stored, true, nil
}

func (f *fakeBudgetRepo) ListByActivity(_ context.Context, activityID uuid.UUID) ([]*types.Budget, error) {
	var out []*types.Budget
	for _, budget := range f.byFingerprint {
		if budget.ActivityID == activityID {
			out = append(out, budget)
		}
	}
	return out, nil
}

type fakeImportLogRepo struct {
	logs []types.ImportLog
}

func (f *fakeImportLogRepo) Record(_ context.Context, log types.ImportLog) (*types.ImportLog, error) {
	log.ID = uuid.New()
	f.logs = append(f.logs, log)
	return &log, nil
}

func newFakeStores() types.Stores {
	return types.Stores{
		Organizations: newFakeOrgRepo(),
		Activities:    newFakeActivityRepo(),
		Transactions:  newFakeTransactionRepo(),
		Budgets:       newFakeBudgetRepo(),
		ImportLogs:    &fakeImportLogRepo{},
	}
}
