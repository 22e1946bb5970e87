// Package typemap implements the Type-Mapping Registry (spec §4.B): it
// resolves a source column type name to a destination type name and
// fixed length, consulting per-column overrides before falling back to
// a per-flavor default table, the way the teacher's adapter.Registry
// resolves a database type to its adapter before falling back to
// nothing (pkg/anchor/adapter/registry.go).
package typemap

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hornetlabs/synchdb/internal/model"
)

// Mapping is one resolved destination type.
type Mapping struct {
	DestinationTypeName string
	FixedLength         int // -1 means "no override"
}

// key is the Registry's internal lookup key: a fully-qualified column
// key or a bare type name, both optionally suffixed with "(length)" for
// the bit-width special case.
type key string

// Registry holds the compiled-in defaults for each source flavor plus
// any overrides loaded from a rules file.
type Registry struct {
	mu       sync.RWMutex
	defaults map[model.SourceFlavor]map[key]Mapping
	columns  map[key]Mapping // per-column overrides: "<db>.<schema>.<table>.<column>.<type>"
	global   map[key]Mapping // global overrides: "<type>"
}

// NewRegistry builds a Registry seeded with the compiled-in default
// tables for MySQL and SQL Server; Oracle defaults to identity
// passthrough (spec §4.B).
func NewRegistry() *Registry {
	return &Registry{
		defaults: map[model.SourceFlavor]map[key]Mapping{
			model.MySQL:     mysqlDefaults(),
			model.SQLServer: mssqlDefaults(),
			model.Oracle:    map[key]Mapping{},
		},
		columns: make(map[key]Mapping),
		global:  make(map[key]Mapping),
	}
}

// LoadRule adds or overrides one rule-file entry (spec §6
// transform_datatype_rules). fromColumn is the fully-qualified column
// name ("" for a global/type-only rule).
func (r *Registry) LoadRule(fromColumn, translateFrom string, autoIncrement bool, translateTo string, translateToSize int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := buildKey(translateFrom, autoIncrement)
	m := Mapping{DestinationTypeName: translateTo, FixedLength: translateToSize}

	if fromColumn == "" {
		r.global[k] = m
		return
	}
	r.columns[columnKey(fromColumn, translateFrom, autoIncrement)] = m
}

// buildKey applies the bit-width-1-to-boolean special case: a BIT type
// with length 1 gets its own key "BIT(1)" distinct from bare "BIT".
func buildKey(sourceType string, bitWidthOne bool) key {
	if bitWidthOne {
		return key(fmt.Sprintf("%s(1)", strings.ToUpper(sourceType)))
	}
	return key(strings.ToUpper(sourceType))
}

func columnKey(fqColumn, sourceType string, bitWidthOne bool) key {
	return key(fmt.Sprintf("%s.%s", strings.ToLower(fqColumn), string(buildKey(sourceType, bitWidthOne))))
}

// Resolve performs the two-tier lookup of spec §4.B: per-column key
// first, then the global key, then the flavor default table, then
// verbatim passthrough of the source type name.
func (r *Registry) Resolve(flavor model.SourceFlavor, fqColumn, sourceType string, length int, autoIncrement bool) Mapping {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bitWidthOne := strings.EqualFold(sourceType, "BIT") && length == 1

	if fqColumn != "" {
		if m, ok := r.columns[columnKey(fqColumn, sourceType, bitWidthOne)]; ok {
			return m
		}
	}

	k := buildKey(sourceType, bitWidthOne)
	if m, ok := r.global[k]; ok {
		return m
	}
	if table, ok := r.defaults[flavor]; ok {
		if m, ok := table[k]; ok {
			return m
		}
	}
	// Bit-width-1 with no BIT(1) entry falls back to the bare BIT key:
	// a global override first, then the compiled-in default.
	if bitWidthOne {
		bare := key(strings.ToUpper(sourceType))
		if m, ok := r.global[bare]; ok {
			return m
		}
		if m, ok := r.defaults[flavor][bare]; ok {
			return m
		}
	}

	// Miss: use the source type name verbatim (spec §4.B "hope the
	// destination accepts it").
	return Mapping{DestinationTypeName: sourceType, FixedLength: -1}
}
