package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hornetlabs/synchdb/internal/model"
)

func TestLookupMissOnEmptyCache(t *testing.T) {
	c := New()
	_, ok := c.Lookup("public", "orders")
	require.False(t, ok)
}

func TestStoreThenLookup(t *testing.T) {
	c := New()
	entry := TableEntry{
		TableOID: 42,
		ColumnByName: map[string]ColumnInfo{
			"id": {Name: "id", OID: 23, Position: 1},
		},
	}
	c.Store("public", "orders", entry)

	got, ok := c.Lookup("public", "orders")
	require.True(t, ok)
	require.Equal(t, uint32(42), got.TableOID)

	ci, ok := got.ColumnPosition("id")
	require.True(t, ok)
	require.Equal(t, uint32(23), ci.OID)

	_, ok = got.ColumnPosition("missing")
	require.False(t, ok)
}

func TestInvalidateClearsEntry(t *testing.T) {
	c := New()
	c.Store("public", "orders", TableEntry{TableOID: 42})
	c.Invalidate("public", "orders")

	_, ok := c.Lookup("public", "orders")
	require.False(t, ok)
}

func TestInvalidateForDDLSplitsFQID(t *testing.T) {
	c := New()
	c.Store("inv", "orders", TableEntry{TableOID: 7})
	c.InvalidateForDDL(model.DDLRecord{FQID: "inv.orders"})

	_, ok := c.Lookup("inv", "orders")
	require.False(t, ok)
}

func TestInvalidateForDDLBareNameHasEmptySchema(t *testing.T) {
	c := New()
	c.Store("", "orders", TableEntry{TableOID: 7})
	c.InvalidateForDDL(model.DDLRecord{FQID: "orders"})

	_, ok := c.Lookup("", "orders")
	require.False(t, ok)
}

func TestInvalidateOfUnstoredTableIsNoop(t *testing.T) {
	c := New()
	require.NotPanics(t, func() { c.Invalidate("public", "nope") })
}
