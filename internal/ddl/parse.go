// Package ddl implements the DDL Translator (spec §4.D): it parses a
// schema-change envelope into a model.DDLRecord and emits the
// equivalent destination DDL statement.
package ddl

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hornetlabs/synchdb/internal/model"
)

// ParseResult is the outcome of parsing one schema-change envelope.
type ParseResult struct {
	Record   model.DDLRecord
	NoChange bool // true when tableChanges was empty: not an error
}

// Parse reads payload.tableChanges[0] out of a raw DDL envelope. Only
// the first tableChanges entry is consumed; additional entries are
// logged by the caller and dropped (spec §9 open question).
func Parse(raw []byte) (ParseResult, int, error) {
	var env struct {
		Payload struct {
			TableChanges []struct {
				ID    string `json:"id"`
				Type  string `json:"type"`
				Table struct {
					PrimaryKeyColumnNames []string                 `json:"primaryKeyColumnNames"`
					Columns               []map[string]interface{} `json:"columns"`
				} `json:"table"`
			} `json:"tableChanges"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return ParseResult{}, 0, fmt.Errorf("ddl: decode envelope: %w", err)
	}

	if len(env.Payload.TableChanges) == 0 {
		return ParseResult{NoChange: true}, 0, nil
	}

	tc := env.Payload.TableChanges[0]
	kind, err := parseKind(tc.Type)
	if err != nil {
		return ParseResult{}, 0, err
	}

	cols := make([]model.Column, 0, len(tc.Table.Columns))
	for _, raw := range tc.Table.Columns {
		cols = append(cols, columnFromJSON(raw))
	}

	rec := model.DDLRecord{
		FQID:      tc.ID,
		Kind:      kind,
		PKColumns: tc.Table.PrimaryKeyColumnNames,
		Columns:   cols,
	}

	return ParseResult{Record: rec}, len(env.Payload.TableChanges), nil
}

func parseKind(t string) (model.DDLKind, error) {
	switch strings.ToUpper(t) {
	case "CREATE":
		return model.DDLCreate, nil
	case "DROP":
		return model.DDLDrop, nil
	case "ALTER":
		return model.DDLAlter, nil
	default:
		return 0, fmt.Errorf("ddl: unknown tableChanges type %q", t)
	}
}

// columnFromJSON collects scalar keys off one columns[] entry; nested
// arrays (e.g. enumValues) are skipped except enumValues itself, which
// is captured as model.Column.EnumValues.
func columnFromJSON(raw map[string]interface{}) model.Column {
	var c model.Column
	c.Name = stringField(raw, "name")
	c.TypeName = stringField(raw, "typeName")
	c.Length = intField(raw, "length")
	c.Scale = intField(raw, "scale")
	c.Optional = boolField(raw, "optional")
	c.Position = intField(raw, "position")
	c.AutoIncremented = boolField(raw, "autoIncremented")
	c.Charset = stringField(raw, "charsetName")

	if v, ok := raw["defaultValueExpression"]; ok && v != nil {
		c.DefaultExpr = fmt.Sprintf("%v", v)
		c.HasDefault = true
	}

	if ev, ok := raw["enumValues"]; ok {
		if arr, ok := ev.([]interface{}); ok {
			for _, item := range arr {
				c.EnumValues = append(c.EnumValues, fmt.Sprintf("%v", item))
			}
		}
	}

	return c
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func intField(m map[string]interface{}, key string) int {
	if v, ok := m[key]; ok && v != nil {
		if f, ok := v.(float64); ok {
			return int(f)
		}
	}
	return 0
}

func boolField(m map[string]interface{}, key string) bool {
	if v, ok := m[key]; ok && v != nil {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// SplitFQID applies spec §4.D's id-splitting rule: 0 dots is a bare
// table, 1 dot is db.table, 2 dots is db.schema.table. More than 2
// dots is a fatal parse error.
func SplitFQID(id string) (db, schema, table string, err error) {
	parts := strings.Split(id, ".")
	switch len(parts) {
	case 1:
		return "", "", parts[0], nil
	case 2:
		return parts[0], "", parts[1], nil
	case 3:
		return parts[0], parts[1], parts[2], nil
	default:
		return "", "", "", fmt.Errorf("ddl: fqid %q has more than 3 parts", id)
	}
}
