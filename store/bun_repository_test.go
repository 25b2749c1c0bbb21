package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-aidimport/pkg/types"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open("sqlite3", ":memory:?cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
		_ = sqldb.Close()
	})
	applyDDL(t, db)
	return db
}

func applyDDL(t *testing.T, db *bun.DB) {
	t.Helper()
	dir := filepath.Join("..", "data", "sql", "migrations", "sqlite")
	entries, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	require.NoError(t, err)
	sort.Strings(entries)
	for _, entry := range entries {
		content, err := os.ReadFile(entry)
		require.NoError(t, err)
		for _, stmt := range strings.Split(string(content), ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			_, err := db.Exec(stmt)
			require.NoError(t, err)
		}
	}
}

func TestOrganizationUpsertByReference(t *testing.T) {
	ctx := context.Background()
	repo, err := NewOrganizationRepository(OrganizationRepositoryConfig{DB: newTestDB(t)})
	require.NoError(t, err)

	created, isNew, err := repo.UpsertByReference(ctx, types.Organization{
		IATIIdentifier: "XM-DAC-41114",
		Name:           "United Nations Development Programme",
		OrgType:        "40",
		Category:       "multilateral",
	})
	require.NoError(t, err)
	require.True(t, isNew)
	require.NotEqual(t, uuid.Nil, created.ID)

	updated, isNew, err := repo.UpsertByReference(ctx, types.Organization{
		IATIIdentifier: "XM-DAC-41114",
		Name:           "UNDP",
		Country:        "US",
	})
	require.NoError(t, err)
	require.False(t, isNew)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, "UNDP", updated.Name)
	require.Equal(t, "US", updated.Country)
	require.Equal(t, "40", updated.OrgType, "sparse re-import keeps stored fields")
	require.Equal(t, "multilateral", updated.Category)
}

func TestOrganizationFindMissReturnsNil(t *testing.T) {
	ctx := context.Background()
	repo, err := NewOrganizationRepository(OrganizationRepositoryConfig{DB: newTestDB(t)})
	require.NoError(t, err)

	org, err := repo.FindByReference(ctx, "XM-DAC-UNKNOWN")
	require.NoError(t, err)
	require.Nil(t, org)

	org, err = repo.FindByName(ctx, "No Such Org")
	require.NoError(t, err)
	require.Nil(t, org)
}

func TestOrganizationGetOrCreateByName(t *testing.T) {
	ctx := context.Background()
	repo, err := NewOrganizationRepository(OrganizationRepositoryConfig{DB: newTestDB(t)})
	require.NoError(t, err)

	first, isNew, err := repo.GetOrCreateByName(ctx, types.Organization{Name: "Ministry of Health"})
	require.NoError(t, err)
	require.True(t, isNew)

	second, isNew, err := repo.GetOrCreateByName(ctx, types.Organization{Name: "Ministry of Health"})
	require.NoError(t, err)
	require.False(t, isNew)
	require.Equal(t, first.ID, second.ID)
}

func TestActivityUpsertByIdentifier(t *testing.T) {
	ctx := context.Background()
	repo, err := NewActivityRepository(ActivityRepositoryConfig{DB: newTestDB(t)})
	require.NoError(t, err)

	preassigned := uuid.New()
	created, isNew, err := repo.UpsertByIdentifier(ctx, types.Activity{
		ID:             preassigned,
		IATIIdentifier: "XM-DAC-41114-PROJECT-1",
		Title:          types.Narrative{"en": "Water access"},
		StatusCode:     "2",
	})
	require.NoError(t, err)
	require.True(t, isNew)
	require.Equal(t, preassigned, created.ID, "pre-assigned key is honored for new rows")

	updated, isNew, err := repo.UpsertByIdentifier(ctx, types.Activity{
		IATIIdentifier: "XM-DAC-41114-PROJECT-1",
		Title:          types.Narrative{"en": "Water access phase 2"},
		StatusCode:     "3",
	})
	require.NoError(t, err)
	require.False(t, isNew)
	require.Equal(t, preassigned, updated.ID)
	require.Equal(t, "3", updated.StatusCode)

	found, err := repo.FindByIdentifier(ctx, "XM-DAC-41114-PROJECT-1")
	require.NoError(t, err)
	require.Equal(t, "Water access phase 2", found.Title.Text())
}

func TestActivityUpsertRequiresIdentifier(t *testing.T) {
	repo, err := NewActivityRepository(ActivityRepositoryConfig{DB: newTestDB(t)})
	require.NoError(t, err)
	_, _, err = repo.UpsertByIdentifier(context.Background(), types.Activity{})
	require.ErrorIs(t, err, types.ErrIdentifierRequired)
}

func seedActivity(t *testing.T, db *bun.DB, identifier string) uuid.UUID {
	t.Helper()
	repo, err := NewActivityRepository(ActivityRepositoryConfig{DB: db})
	require.NoError(t, err)
	created, _, err := repo.UpsertByIdentifier(context.Background(), types.Activity{
		IATIIdentifier: identifier,
	})
	require.NoError(t, err)
	return created.ID
}

func TestTransactionUpsertByFingerprintIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	activityID := seedActivity(t, db, "XM-DAC-1-PROJ")

	repo, err := NewTransactionRepository(TransactionRepositoryConfig{DB: db})
	require.NoError(t, err)

	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tx := types.Transaction{
		ActivityID: activityID,
		TypeCode:   "3",
		Date:       &date,
		Value:      25000,
		Currency:   "USD",
	}

	first, isNew, err := repo.UpsertByFingerprint(ctx, tx)
	require.NoError(t, err)
	require.True(t, isNew)
	require.NotEmpty(t, first.Fingerprint)

	second, isNew, err := repo.UpsertByFingerprint(ctx, tx)
	require.NoError(t, err)
	require.False(t, isNew)
	require.Equal(t, first.ID, second.ID)

	rows, err := repo.ListByActivity(ctx, activityID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestTransactionHumanitarianFalseRoundTrips(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	activityID := seedActivity(t, db, "XM-DAC-1-PROJ")

	repo, err := NewTransactionRepository(TransactionRepositoryConfig{DB: db})
	require.NoError(t, err)

	_, _, err = repo.UpsertByFingerprint(ctx, types.Transaction{
		ActivityID: activityID,
		TypeCode:   "2",
		Value:      100,
		Currency:   "EUR",
	})
	require.NoError(t, err)

	rows, err := repo.ListByActivity(ctx, activityID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.False(t, rows[0].Humanitarian)
}

func TestBudgetUpsertByFingerprint(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	activityID := seedActivity(t, db, "XM-DAC-1-PROJ")

	repo, err := NewBudgetRepository(BudgetRepositoryConfig{DB: db})
	require.NoError(t, err)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	budget := types.Budget{
		ActivityID:  activityID,
		TypeCode:    "1",
		StatusCode:  "2",
		PeriodStart: &start,
		PeriodEnd:   &end,
		Value:       500000,
		Currency:    "USD",
	}

	_, isNew, err := repo.UpsertByFingerprint(ctx, budget)
	require.NoError(t, err)
	require.True(t, isNew)

	_, isNew, err = repo.UpsertByFingerprint(ctx, budget)
	require.NoError(t, err)
	require.False(t, isNew)

	rows, err := repo.ListByActivity(ctx, activityID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestImportLogRecordMasksErrorPayloads(t *testing.T) {
	ctx := context.Background()
	repo, err := NewImportLogRepository(ImportLogRepositoryConfig{DB: newTestDB(t)})
	require.NoError(t, err)

	saved, err := repo.Record(ctx, types.ImportLog{
		DocumentName: "activities-2024.xml",
		Activities:   types.EntityCounts{Created: 3, Updated: 1},
		FailureCount: 1,
		Errors: []map[string]any{
			{"entity": "transaction", "index": 4, "detail": "value out of range"},
		},
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, saved.ID)
	require.False(t, saved.CreatedAt.IsZero())
	require.Len(t, saved.Errors, 1)
	require.Equal(t, "transaction", saved.Errors[0]["entity"])
}
