package codelist

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
	return db
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestRepositoryRequiresDBOrRepository(t *testing.T) {
	_, err := NewRepository(RepositoryConfig{})
	require.Error(t, err)
}

func TestRepositorySaveAndFindMapping(t *testing.T) {
	db := newTestDB(t)
	repo, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)
	ctx := context.Background()

	saved, err := repo.SaveMapping(ctx, CodeMapping{
		Field:      types.FieldAidType,
		Raw:        "TECH_ASSIST",
		SystemCode: "D02",
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, saved.ID)

	found, err := repo.FindMapping(ctx, types.FieldAidType, "TECH_ASSIST")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, "D02", found.SystemCode)

	miss, err := repo.FindMapping(ctx, types.FieldAidType, "OTHER")
	require.NoError(t, err)
	require.Nil(t, miss, "miss returns nil, not an error")
}

func TestRepositorySaveMappingUpdatesExisting(t *testing.T) {
	db := newTestDB(t)
	clock := fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	repo, err := NewRepository(RepositoryConfig{DB: db, Clock: clock})
	require.NoError(t, err)
	ctx := context.Background()

	first, err := repo.SaveMapping(ctx, CodeMapping{
		Field:      types.FieldFlowType,
		Raw:        "ODA",
		SystemCode: "10",
	})
	require.NoError(t, err)

	second, err := repo.SaveMapping(ctx, CodeMapping{
		Field:      types.FieldFlowType,
		Raw:        "ODA",
		SystemCode: "20",
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID, "same key updates in place")
	require.Equal(t, "20", second.SystemCode)

	all, err := repo.ListMappings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestRepositoryScopesMappingsByField(t *testing.T) {
	db := newTestDB(t)
	repo, err := NewRepository(RepositoryConfig{DB: db})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = repo.SaveMapping(ctx, CodeMapping{
		Field: types.FieldAidType, Raw: "GRANT", SystemCode: "A01",
	})
	require.NoError(t, err)
	_, err = repo.SaveMapping(ctx, CodeMapping{
		Field: types.FieldFinanceType, Raw: "GRANT", SystemCode: "110",
	})
	require.NoError(t, err)

	aid, err := repo.FindMapping(ctx, types.FieldAidType, "GRANT")
	require.NoError(t, err)
	require.Equal(t, "A01", aid.SystemCode)

	finance, err := repo.FindMapping(ctx, types.FieldFinanceType, "GRANT")
	require.NoError(t, err)
	require.Equal(t, "110", finance.SystemCode)
}

func TestRepositoryWithCache(t *testing.T) {
	db := newTestDB(t)
	repo, err := NewRepository(RepositoryConfig{DB: db}, WithCache(true))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = repo.SaveMapping(ctx, CodeMapping{
		Field: types.FieldTiedStatus, Raw: "UNTIED", SystemCode: "5",
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		found, err := repo.FindMapping(ctx, types.FieldTiedStatus, "UNTIED")
		require.NoError(t, err)
		require.NotNil(t, found)
		require.Equal(t, "5", found.SystemCode)
	}
}
