// Package destination defines the Destination interface the core
// consumes (spec §6 "Destination interface (consumed)") and a
// jackc/pgx/v5 implementation of it, grounded on the teacher's
// pkg/database/postgres.go pgxpool wiring.
package destination

import (
	"context"

	"github.com/hornetlabs/synchdb/internal/model"
	"github.com/hornetlabs/synchdb/internal/rulestore"
)

// Txn is an open destination transaction.
type Txn interface {
	ExecuteSQL(ctx context.Context, text string) error
	Commit(ctx context.Context) error
	Abort(ctx context.Context) error

	// InsertTuple, UpdateTupleByIndex/BySeqScan, and DeleteTupleByIndex/BySeqScan
	// implement tuple-mode apply (spec §4.F). found reports a scan miss, which
	// the applier treats as a non-fatal event rather than an error. rules
	// supplies the transform-expression lookup each decoded value goes
	// through before binding (spec §4.A's last paragraph); it may be nil.
	InsertTuple(ctx context.Context, schema, table string, values []model.Value, rules *rulestore.Store) error
	UpdateTupleByIndex(ctx context.Context, schema, table string, pkColumns []string, before, after []model.Value, rules *rulestore.Store) (found bool, err error)
	UpdateTupleBySeqScan(ctx context.Context, schema, table string, before, after []model.Value, rules *rulestore.Store) (found bool, err error)
	DeleteTupleByIndex(ctx context.Context, schema, table string, pkColumns []string, before []model.Value, rules *rulestore.Store) (found bool, err error)
	DeleteTupleBySeqScan(ctx context.Context, schema, table string, before []model.Value, rules *rulestore.Store) (found bool, err error)
}

// Destination is the interface the core consumes to talk to the
// external relational store (spec §6). begin/commit/abort bracket one
// transaction per DDL or DML apply (spec §4.F).
type Destination interface {
	BeginTxn(ctx context.Context) (Txn, error)

	// GetNamespaceOID and GetTableOID resolve catalog identities; both
	// return ok=false rather than an error when the object is absent, so
	// callers can distinguish "not created yet" from a connection fault.
	GetNamespaceOID(ctx context.Context, name string) (oid uint32, ok bool, err error)
	GetTableOID(ctx context.Context, name string, namespaceOID uint32) (oid uint32, ok bool, err error)

	Close()
}
