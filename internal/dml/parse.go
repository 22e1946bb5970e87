// Package dml implements the DML Translator (spec §4.E): it parses a
// row-change envelope, resolves destination catalog facts, decodes
// source values, and emits either a textual SQL statement or a
// position-ordered tuple for direct heap insertion.
package dml

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hornetlabs/synchdb/internal/model"
)

// schemaField mirrors one Debezium schema.fields[] entry: enough to
// recover a column's declared scale and temporal representation.
type schemaField struct {
	Field      string `json:"field"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Parameters struct {
		Scale string `json:"scale"`
	} `json:"parameters"`
	Fields []schemaField `json:"fields"`
}

type envelope struct {
	Schema struct {
		Fields []schemaField `json:"fields"`
	} `json:"schema"`
	Payload struct {
		Op     string `json:"op"`
		Source struct {
			DB       string          `json:"db"`
			Schema   string          `json:"schema"`
			Table    string          `json:"table"`
			Snapshot json.RawMessage `json:"snapshot"`
		} `json:"source"`
		Before map[string]json.RawMessage `json:"before"`
		After  map[string]json.RawMessage `json:"after"`
	} `json:"payload"`
}

// Parsed is the intermediate result of parsing one row-change
// envelope, before catalog resolution.
type Parsed struct {
	Op           model.DMLOp
	DB           string
	Schema       string
	Table        string
	Snapshot     bool
	Before       map[string]json.RawMessage
	After        map[string]json.RawMessage
	beforeFields map[string]schemaField
	afterFields  map[string]schemaField
}

// Parse decodes payload.op, payload.source, and the before/after
// bodies from a raw DML envelope (spec §4.E).
func Parse(raw []byte) (Parsed, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Parsed{}, fmt.Errorf("dml: decode envelope: %w", err)
	}

	op, err := parseOp(env.Payload.Op)
	if err != nil {
		return Parsed{}, err
	}

	p := Parsed{
		Op:     op,
		DB:     env.Payload.Source.DB,
		Schema: env.Payload.Source.Schema,
		Table:  env.Payload.Source.Table,
		Before: env.Payload.Before,
		After:  env.Payload.After,
	}
	p.Snapshot = parseSnapshot(env.Payload.Source.Snapshot)

	// schema.fields[0] describes the "before" struct, [1] the "after"
	// struct, per the standard Debezium envelope layout (spec §4.E).
	if len(env.Schema.Fields) > 0 {
		p.beforeFields = fieldsByName(env.Schema.Fields[0].Fields)
	}
	if len(env.Schema.Fields) > 1 {
		p.afterFields = fieldsByName(env.Schema.Fields[1].Fields)
	}

	return p, nil
}

func fieldsByName(fields []schemaField) map[string]schemaField {
	m := make(map[string]schemaField, len(fields))
	for _, f := range fields {
		m[f.Field] = f
	}
	return m
}

func parseOp(op string) (model.DMLOp, error) {
	switch op {
	case "r":
		return model.DMLRead, nil
	case "c":
		return model.DMLCreate, nil
	case "u":
		return model.DMLUpdate, nil
	case "d":
		return model.DMLDelete, nil
	default:
		return 0, fmt.Errorf("dml: unknown op %q", op)
	}
}

// parseSnapshot accepts either a JSON bool or the string "last", both
// of which mean "this event belongs to the initial snapshot" (spec
// §4.G step 3).
func parseSnapshot(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s == "true" || s == "last"
	}
	return false
}

// timeRepFromSchemaName maps a Debezium logical-type schema name to
// the TimeRep tag it implies.
func timeRepFromSchemaName(name string) model.TimeRep {
	switch {
	case strings.HasSuffix(name, "MicroTimestamp"):
		return model.TimeMicroTimestamp
	case strings.HasSuffix(name, "NanoTimestamp"):
		return model.TimeNanoTimestamp
	case strings.HasSuffix(name, "ZonedTimestamp"):
		return model.TimeZonedTimestamp
	case strings.HasSuffix(name, "Timestamp"):
		return model.TimeTimestamp
	case strings.HasSuffix(name, "MicroTime"):
		return model.TimeMicroTime
	case strings.HasSuffix(name, "NanoTime"):
		return model.TimeNanoTime
	case strings.HasSuffix(name, "Date"):
		return model.TimeDate
	case strings.HasSuffix(name, "Time"):
		return model.TimeTime
	default:
		return model.TimeUndef
	}
}
