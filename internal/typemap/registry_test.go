package typemap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hornetlabs/synchdb/internal/model"
)

func TestResolveFlavorDefault(t *testing.T) {
	r := NewRegistry()
	m := r.Resolve(model.MySQL, "", "INT", 0, false)
	require.Equal(t, "INTEGER", m.DestinationTypeName)
}

func TestResolvePassthroughOnMiss(t *testing.T) {
	r := NewRegistry()
	m := r.Resolve(model.Oracle, "", "NUMBER", 0, false)
	require.Equal(t, "NUMBER", m.DestinationTypeName)
	require.Equal(t, -1, m.FixedLength)
}

func TestResolveBitWidthOneSpecialCase(t *testing.T) {
	r := NewRegistry()
	m := r.Resolve(model.MySQL, "", "BIT", 1, false)
	require.Equal(t, "BOOLEAN", m.DestinationTypeName)

	// Non-BIT(1) width falls back to the bare BIT entry.
	m = r.Resolve(model.MySQL, "", "BIT", 8, false)
	require.Equal(t, "VARBIT", m.DestinationTypeName)
}

func TestResolveBitWidthOneFallsBackToBareBitWhenNoSpecialEntry(t *testing.T) {
	r := NewRegistry()
	r.LoadRule("", "BIT", false, "CUSTOMBIT", -1)
	m := r.Resolve(model.SQLServer, "", "BIT", 1, false)
	require.Equal(t, "CUSTOMBIT", m.DestinationTypeName)
}

func TestGlobalOverrideBeatsFlavorDefault(t *testing.T) {
	r := NewRegistry()
	r.LoadRule("", "INT", false, "BIGINT", -1)
	m := r.Resolve(model.MySQL, "", "INT", 0, false)
	require.Equal(t, "BIGINT", m.DestinationTypeName)
}

func TestColumnOverrideBeatsGlobalOverride(t *testing.T) {
	r := NewRegistry()
	r.LoadRule("", "INT", false, "BIGINT", -1)
	r.LoadRule("inv.orders.amount", "INT", false, "NUMERIC", 19)

	m := r.Resolve(model.MySQL, "inv.orders.amount", "INT", 0, false)
	require.Equal(t, "NUMERIC", m.DestinationTypeName)
	require.Equal(t, 19, m.FixedLength)

	// A different column still sees the global override, not the
	// per-column one.
	m = r.Resolve(model.MySQL, "inv.orders.quantity", "INT", 0, false)
	require.Equal(t, "BIGINT", m.DestinationTypeName)
}

func TestResolveIsCaseInsensitiveOnTypeName(t *testing.T) {
	r := NewRegistry()
	m := r.Resolve(model.MySQL, "", "int", 0, false)
	require.Equal(t, "INTEGER", m.DestinationTypeName)
}

func TestOracleHasNoCompiledDefaults(t *testing.T) {
	r := NewRegistry()
	m := r.Resolve(model.Oracle, "", "VARCHAR2", 0, false)
	require.Equal(t, "VARCHAR2", m.DestinationTypeName)
}
