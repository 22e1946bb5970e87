package dml

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/hornetlabs/synchdb/internal/catalog"
	"github.com/hornetlabs/synchdb/internal/decode"
	"github.com/hornetlabs/synchdb/internal/errkind"
	"github.com/hornetlabs/synchdb/internal/model"
	"github.com/hornetlabs/synchdb/internal/rulestore"
)

// CatalogLoader reads fresh destination catalog facts on a DataCache
// miss (spec §4.E: "Looks up destination schema oid, table oid, and
// column {oid, position, typemod} map; caches under {schema, table}").
// Implemented by internal/destination.
type CatalogLoader interface {
	LoadTable(ctx context.Context, schema, table string) (catalog.TableEntry, error)
}

// Mode selects the DML Applier's emission shape (spec §4.E).
type Mode int

const (
	ModeTuple Mode = iota // default
	ModeSQL
)

// Translated is one emitted DML operation, ready for the applier.
type Translated struct {
	Schema   string
	Table    string
	TableOID uint32
	Mode     Mode
	SQL      string        // populated when Mode == ModeSQL
	Record   model.DMLRecord
}

// Translate resolves catalog facts for parsed and emits either SQL
// text or a position-ordered tuple record (spec §4.E).
func Translate(ctx context.Context, connector string, parsed Parsed, rules *rulestore.Store, cache *catalog.DataCache, loader CatalogLoader, mode Mode) (Translated, error) {
	schema := parsed.Schema
	table := parsed.Table
	db := parsed.DB

	externalTableFQID := fqidJoin(db, schema, table)
	mappedTable := rules.ResolveName(rulestore.KindTable, externalTableFQID)
	mSchema, mTable := splitMapped(mappedTable)
	if mSchema == "" {
		mSchema = "public"
	}

	entry, ok := cache.Lookup(strings.ToLower(mSchema), strings.ToLower(mTable))
	if !ok {
		loaded, err := loader.LoadTable(ctx, strings.ToLower(mSchema), strings.ToLower(mTable))
		if err != nil {
			return Translated{}, errkind.Wrap(errkind.Catalog, connector, "dml.Translate", err)
		}
		cache.Store(strings.ToLower(mSchema), strings.ToLower(mTable), loaded)
		entry = loaded
	}

	rec := model.DMLRecord{TableFQID: externalTableFQID, Op: parsed.Op}

	if parsed.Op == model.DMLCreate || parsed.Op == model.DMLRead || parsed.Op == model.DMLUpdate {
		values, err := buildValues(parsed.After, parsed.afterFields, db, schema, table, rules, entry)
		if err != nil {
			return Translated{}, errkind.Wrap(errkind.Parse, connector, "dml.Translate", err)
		}
		rec.AfterValues = values
	}
	if parsed.Op == model.DMLDelete || parsed.Op == model.DMLUpdate {
		values, err := buildValues(parsed.Before, parsed.beforeFields, db, schema, table, rules, entry)
		if err != nil {
			return Translated{}, errkind.Wrap(errkind.Parse, connector, "dml.Translate", err)
		}
		rec.BeforeValues = values
	}

	out := Translated{Schema: mSchema, Table: mTable, TableOID: entry.TableOID, Mode: mode, Record: rec}

	if mode == ModeSQL {
		sql, err := emitSQL(mSchema, mTable, rec, entry, rules)
		if err != nil {
			return Translated{}, errkind.Wrap(errkind.Decode, connector, "dml.Translate", err)
		}
		out.SQL = sql
	}

	return out, nil
}

// buildValues iterates the scalar keys of body, resolves each column's
// destination catalog facts and schema metadata, and returns the
// values sorted by destination position (spec §4.E "Body parsing").
func buildValues(body map[string]json.RawMessage, fields map[string]schemaField, db, schema, table string, rules *rulestore.Store, entry catalog.TableEntry) ([]model.Value, error) {
	values := make([]model.Value, 0, len(body))
	for col, raw := range body {
		externalCol := fqidJoin(db, schema, table) + "." + col
		mappedCol := rules.ResolveName(rulestore.KindColumn, externalCol)

		ci, ok := entry.ColumnPosition(strings.ToLower(mappedCol))
		if !ok {
			return nil, fmt.Errorf("dml: column %q not found in destination catalog", mappedCol)
		}

		v := model.Value{
			RemoteColumnName:   col,
			MappedName:         mappedCol,
			DestinationTypeOID: ci.OID,
			Typemod:            ci.Typemod,
			Position:           ci.Position,
			FQRemoteColumn:     externalCol,
		}

		if sf, ok := fields[col]; ok {
			if sf.Parameters.Scale != "" {
				fmt.Sscanf(sf.Parameters.Scale, "%d", &v.Scale)
			}
			v.TimeRep = timeRepFromSchemaName(sf.Name)
			v.SourceTypeLiteral = sf.Type
		}

		v.RawValue = decodeRawField(raw)

		values = append(values, v)
	}

	sort.Slice(values, func(i, j int) bool { return values[i].Position < values[j].Position })
	return values, nil
}

// decodeRawField unwraps a JSON field value into the form the Value
// Decoder expects: a scalar, or (for a JSON sub-object, e.g. geometry)
// the entire sub-object re-serialized as a single string (spec §4.E
// "whenever a sub-object is encountered, capture the entire sub-object
// as a single JSON string value").
func decodeRawField(raw json.RawMessage) interface{} {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "null" || trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, "{") {
		return trimmed
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return trimmed
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return "true"
		}
		return "false"
	}
	return trimmed
}

// emitSQL builds SQL-mode text (spec §4.E "SQL mode").
func emitSQL(schema, table string, rec model.DMLRecord, entry catalog.TableEntry, rules *rulestore.Store) (string, error) {
	fqid := qualify(schema, table)

	switch rec.Op {
	case model.DMLCreate, model.DMLRead:
		cols := make([]string, 0, len(rec.AfterValues))
		lits := make([]string, 0, len(rec.AfterValues))
		for _, v := range rec.AfterValues {
			lit, err := decode.DecodeWithTransform(decode.Input{Value: v, DestKind: decode.KindForOID(v.DestinationTypeOID), QuoteForSQL: true}, rules)
			if err != nil {
				return "", err
			}
			cols = append(cols, v.MappedName)
			lits = append(lits, lit)
		}
		return fmt.Sprintf("INSERT INTO %s(%s) VALUES (%s);", fqid, strings.Join(cols, ","), strings.Join(lits, ",")), nil

	case model.DMLDelete:
		where, err := whereClause(rec.BeforeValues, entry, rules)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("DELETE FROM %s WHERE %s;", fqid, where), nil

	case model.DMLUpdate:
		setClauses := make([]string, 0, len(rec.AfterValues))
		for _, v := range rec.AfterValues {
			lit, err := decode.DecodeWithTransform(decode.Input{Value: v, DestKind: decode.KindForOID(v.DestinationTypeOID), QuoteForSQL: true}, rules)
			if err != nil {
				return "", err
			}
			setClauses = append(setClauses, fmt.Sprintf("%s = %s", v.MappedName, lit))
		}
		where, err := whereClause(rec.BeforeValues, entry, rules)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("UPDATE %s SET %s WHERE %s;", fqid, strings.Join(setClauses, ", "), where), nil

	default:
		return "", fmt.Errorf("dml: unsupported op %q for SQL emission", rec.Op)
	}
}

// whereClause uses the primary key columns if the destination table
// declares one, otherwise every before-image column (spec §4.E "The
// WHERE clause uses every before-image column when no primary key is
// declared.").
func whereClause(before []model.Value, entry catalog.TableEntry, rules *rulestore.Store) (string, error) {
	var cols []string
	if len(entry.PKColumns) > 0 {
		cols = entry.PKColumns
	}

	byName := make(map[string]model.Value, len(before))
	for _, v := range before {
		byName[strings.ToLower(v.MappedName)] = v
	}

	var parts []string
	if len(cols) > 0 {
		for _, c := range cols {
			v, ok := byName[strings.ToLower(c)]
			if !ok {
				continue
			}
			lit, err := decode.DecodeWithTransform(decode.Input{Value: v, DestKind: decode.KindForOID(v.DestinationTypeOID), QuoteForSQL: true}, rules)
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("%s = %s", v.MappedName, lit))
		}
	} else {
		for _, v := range before {
			lit, err := decode.DecodeWithTransform(decode.Input{Value: v, DestKind: decode.KindForOID(v.DestinationTypeOID), QuoteForSQL: true}, rules)
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("%s = %s", v.MappedName, lit))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("dml: no columns available to build WHERE clause")
	}
	return strings.Join(parts, " AND "), nil
}

func fqidJoin(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ".")
}

func qualify(schema, table string) string {
	if schema == "" {
		return table
	}
	return schema + "." + table
}

func splitMapped(name string) (schema, table string) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return "", name
	}
	return name[:idx], name[idx+1:]
}
