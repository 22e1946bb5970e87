// Package rulefile loads the JSON rule file spec §6 describes: three
// top-level arrays of type-mapping, object-name, and transform-
// expression rules, and wires them into a typemap.Registry and a
// rulestore.Store.
package rulefile

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hornetlabs/synchdb/internal/rulestore"
	"github.com/hornetlabs/synchdb/internal/typemap"
)

// DatatypeRule is one transform_datatype_rules entry.
type DatatypeRule struct {
	TranslateFrom        string `json:"translate_from"`
	TranslateFromAutoinc bool   `json:"translate_from_autoinc"`
	TranslateTo          string `json:"translate_to"`
	TranslateToSize      int    `json:"translate_to_size"`
	FromColumn           string `json:"from_column,omitempty"` // fully-qualified column for per-column overrides
}

// ObjectNameRule is one transform_objectname_rules entry.
type ObjectNameRule struct {
	ObjectType        string `json:"object_type"` // "table" | "column"
	SourceObject      string `json:"source_object"`
	DestinationObject string `json:"destination_object"`
}

// ExpressionRule is one transform_expression_rules entry.
type ExpressionRule struct {
	TransformFrom       string `json:"transform_from"`
	TransformExpression string `json:"transform_expression"`
}

// File is the JSON document shape of spec §6's rule file.
type File struct {
	DatatypeRules   []DatatypeRule   `json:"transform_datatype_rules"`
	ObjectNameRules []ObjectNameRule `json:"transform_objectname_rules"`
	ExpressionRules []ExpressionRule `json:"transform_expression_rules"`
}

// Load parses a rule file document from r.
func Load(r io.Reader) (*File, error) {
	var f File
	dec := json.NewDecoder(r)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("rulefile: decode: %w", err)
	}
	return &f, nil
}

// ApplyTypeRules loads every DatatypeRule into registry.
func (f *File) ApplyTypeRules(registry *typemap.Registry) {
	for _, r := range f.DatatypeRules {
		registry.LoadRule(r.FromColumn, r.TranslateFrom, r.TranslateFromAutoinc, r.TranslateTo, r.TranslateToSize)
	}
}

// ApplyNameAndExpressionRules loads every ObjectNameRule and
// ExpressionRule into store.
func (f *File) ApplyNameAndExpressionRules(store *rulestore.Store) {
	for _, r := range f.ObjectNameRules {
		kind := rulestore.KindTable
		if r.ObjectType == "column" {
			kind = rulestore.KindColumn
		}
		store.SetObjectName(kind, r.SourceObject, r.DestinationObject)
	}
	for _, r := range f.ExpressionRules {
		store.SetTransform(r.TransformFrom, r.TransformExpression)
	}
}

// EmptyFile returns a File with no rules, for connectors that don't
// configure a rules file.
func EmptyFile() *File {
	return &File{}
}
