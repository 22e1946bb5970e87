// Package rulestore implements the Name/Expression Rule Store (spec
// §4.C): two hashmaps loaded from the rules file, each name resolved by
// an exact, case-insensitive lookup of its fully-qualified id under its
// kind (table and column entries never override each other), absence
// leaving the input unchanged.
package rulestore

import (
	"strings"
	"sync"
)

// ObjectKind distinguishes the two name-map kinds the rule file carries.
type ObjectKind string

const (
	KindTable  ObjectKind = "table"
	KindColumn ObjectKind = "column"
)

type nameKey struct {
	name string
	kind ObjectKind
}

// Store holds the object-name and transform-expression maps for one
// connector, built from the rule file at start; the add_objmap and
// delete_objmap admin verbs also change the name map while the connector
// runs, so every access goes through mu.
type Store struct {
	mu         sync.RWMutex
	objectName map[nameKey]string
	transform  map[string]string
}

// NewStore creates an empty rule store.
func NewStore() *Store {
	return &Store{
		objectName: make(map[nameKey]string),
		transform:  make(map[string]string),
	}
}

// SetObjectName registers one transform_objectname_rules entry.
// externalName is always fully qualified (db.schema.table or
// db.schema.table.column per spec §4.C).
func (s *Store) SetObjectName(kind ObjectKind, externalName, destinationName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objectName[nameKey{name: strings.ToLower(externalName), kind: kind}] = destinationName
}

// ResolveName returns the destination name for externalName, or
// externalName itself if no rule matches.
func (s *Store) ResolveName(kind ObjectKind, externalName string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if dest, ok := s.objectName[nameKey{name: strings.ToLower(externalName), kind: kind}]; ok {
		return dest
	}
	return externalName
}

// DeleteObjectName removes a previously registered name-map entry, if
// any (admin verb delete_objmap, spec §6).
func (s *Store) DeleteObjectName(kind ObjectKind, externalName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objectName, nameKey{name: strings.ToLower(externalName), kind: kind})
}

// SetTransform registers one transform_expression_rules entry.
func (s *Store) SetTransform(externalColumnFQID, expression string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transform[strings.ToLower(externalColumnFQID)] = expression
}

// ResolveTransform returns the expression text for a fully-qualified
// column id, and whether one was found.
func (s *Store) ResolveTransform(externalColumnFQID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	expr, ok := s.transform[strings.ToLower(externalColumnFQID)]
	return expr, ok
}
