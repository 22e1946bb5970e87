package decode

import (
	"encoding/json"
	"strings"

	"github.com/hornetlabs/synchdb/internal/rulestore"
)

// GeometryFields holds the wkb/srid pair extracted from a geometry
// sub-object, passed positionally to a transform expression alongside
// the decoded scalar value.
type GeometryFields struct {
	WKB  string
	SRID string
}

// DetectGeometry heuristically identifies a geometry sub-object by the
// presence of a "wkb" key, per spec §4.A ("Geometry sub-objects are
// detected heuristically by presence of a wkb key in a JSON value").
func DetectGeometry(raw string) (GeometryFields, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return GeometryFields{}, false
	}
	wkb, ok := obj["wkb"]
	if !ok {
		return GeometryFields{}, false
	}
	fields := GeometryFields{WKB: toString(wkb)}
	if srid, ok := obj["srid"]; ok {
		fields.SRID = toString(srid)
	}
	return fields, true
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// Evaluate substitutes %d with the decoded literal (and, for geometry
// values, also exposes %wkb/%srid placeholders) in a transform
// expression, per spec §4.A/§4.C. This is a literal-substitution
// evaluator, not a general expression engine: the expression text is a
// destination-side scalar expression supplied by the rule file, synchdb
// only fills in its placeholders.
func Evaluate(expression string, decoded string, geometry *GeometryFields) string {
	out := strings.ReplaceAll(expression, "%d", decoded)
	if geometry != nil {
		out = strings.ReplaceAll(out, "%wkb", geometry.WKB)
		out = strings.ReplaceAll(out, "%srid", geometry.SRID)
	}
	return out
}

// DecodeWithTransform decodes in exactly as Decode does, then consults
// rules for a transform-expression rule keyed on in.Value.FQRemoteColumn
// and, if one is registered, replaces the decoded literal with the
// evaluated expression (spec §4.A's final paragraph: "if a transform-
// expression rule exists for fq_remote_column, call Expression
// Evaluator with the decoded literal ... replace output with the
// transformed result"). Geometry sub-objects are detected from the raw
// value and passed to the expression positionally.
func DecodeWithTransform(in Input, rules *rulestore.Store) (string, error) {
	literal, err := Decode(in)
	if err != nil {
		return "", err
	}
	if rules == nil || in.Value.FQRemoteColumn == "" {
		return literal, nil
	}

	expr, ok := rules.ResolveTransform(in.Value.FQRemoteColumn)
	if !ok {
		return literal, nil
	}

	var geometry *GeometryFields
	if raw, ok := in.Value.RawValue.(string); ok {
		if fields, isGeometry := DetectGeometry(raw); isGeometry {
			geometry = &fields
		}
	}
	return Evaluate(expr, literal, geometry), nil
}
