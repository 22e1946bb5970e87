// Package catalog implements the DataCache described in spec §3: a
// per-table cache of destination catalog facts (oid, tuple descriptor,
// column positions) populated lazily and invalidated whenever a DDL
// record changes that table. Modeled on the teacher's registry pattern
// of a single sync.RWMutex-guarded map (pkg/anchor/adapter/registry.go).
package catalog

import (
	"sync"

	"github.com/hornetlabs/synchdb/internal/model"
)

// ColumnInfo is the cached catalog fact for one destination column.
type ColumnInfo struct {
	Name     string
	OID      uint32
	Position int
	Typemod  int
}

// TableEntry is the cached catalog fact for one destination table.
type TableEntry struct {
	TableOID     uint32
	ColumnByName map[string]ColumnInfo
	PKColumns    []string
}

// tableKey identifies a destination table by schema-qualified name.
type tableKey struct {
	schema string
	table  string
}

// DataCache caches destination catalog lookups for one connector so
// the DML translator doesn't re-resolve oids and positions on every
// row (spec §3: "Populated lazily on first use, invalidated on DDL for
// the same table.").
type DataCache struct {
	mu      sync.RWMutex
	entries map[tableKey]TableEntry
}

// New creates an empty DataCache.
func New() *DataCache {
	return &DataCache{entries: make(map[tableKey]TableEntry)}
}

// Lookup returns the cached entry for schema.table, if present.
func (c *DataCache) Lookup(schema, table string) (TableEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[tableKey{schema: schema, table: table}]
	return e, ok
}

// Store populates or replaces the cached entry for schema.table.
func (c *DataCache) Store(schema, table string, entry TableEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tableKey{schema: schema, table: table}] = entry
}

// Invalidate drops the cached entry for schema.table, forcing the next
// Lookup to miss and the caller to re-resolve from the destination
// catalog. Called after applying any DDLRecord for that table.
func (c *DataCache) Invalidate(schema, table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, tableKey{schema: schema, table: table})
}

// InvalidateForDDL invalidates the table named by rec, regardless of
// DDL kind: a drop removes the entry outright, a create or alter
// forces a fresh catalog read on next use.
func (c *DataCache) InvalidateForDDL(rec model.DDLRecord) {
	schema, table := splitFQID(rec.FQID)
	c.Invalidate(schema, table)
}

// splitFQID splits "schema.table" into its parts. A bare name with no
// dot is treated as table-only with an empty schema.
func splitFQID(fqid string) (schema, table string) {
	for i := len(fqid) - 1; i >= 0; i-- {
		if fqid[i] == '.' {
			return fqid[:i], fqid[i+1:]
		}
	}
	return "", fqid
}

// ColumnPosition resolves a column's destination OID and typemod from
// the cache, returning ok=false on a cache miss or unknown column.
func (e TableEntry) ColumnPosition(name string) (ColumnInfo, bool) {
	ci, ok := e.ColumnByName[name]
	return ci, ok
}
