package codelist

import (
	"testing"

	"github.com/goliatone/go-aidimport/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestStaticRegistryContains(t *testing.T) {
	r := NewStaticRegistry(map[types.Field][]string{
		types.FieldAidType: {"C01", "D02"},
	})

	require.True(t, r.Contains(types.FieldAidType, "C01"))
	require.False(t, r.Contains(types.FieldAidType, "c01"), "codes are case sensitive")
	require.False(t, r.Contains(types.FieldAidType, ""))
	require.False(t, r.Contains(types.FieldFlowType, "10"), "unknown field has no codes")
}

func TestStaticRegistryCodes(t *testing.T) {
	r := NewStaticRegistry(map[types.Field][]string{
		types.FieldCurrency: {"USD", "EUR", "GBP"},
	})

	require.Equal(t, []string{"EUR", "GBP", "USD"}, r.Codes(types.FieldCurrency))
	require.Nil(t, r.Codes(types.FieldSector))
}

func TestDefaultRegistryLoadsEmbeddedSets(t *testing.T) {
	r := Default()

	// Spot checks against the embedded IATI code sets.
	require.True(t, r.Contains(types.FieldTransactionType, "3"))
	require.True(t, r.Contains(types.FieldAidType, "C01"))
	require.True(t, r.Contains(types.FieldSector, "14030"))
	require.True(t, r.Contains(types.FieldOrganizationType, "40"))
	require.True(t, r.Contains(types.FieldCurrency, "USD"))
	require.False(t, r.Contains(types.FieldAidType, "TECH_ASSIST"))

	require.Same(t, r, Default(), "default registry is built once")
}

func TestOrgTypeCategory(t *testing.T) {
	require.Equal(t, "government", OrgTypeCategory("10"))
	require.Equal(t, "ingo", OrgTypeCategory("21"))
	require.Equal(t, "ngo", OrgTypeCategory("22"))
	require.Equal(t, "multilateral", OrgTypeCategory("40"))
	require.Equal(t, "academic", OrgTypeCategory("80"))
	require.Equal(t, "other", OrgTypeCategory(""))
	require.Equal(t, "other", OrgTypeCategory("999"))
}
