// Package apply implements the Destination Applier (spec §4.F): it
// executes one translated DDL or DML record against the destination,
// each in its own transaction, and reports apply-time failures back to
// the caller for the shared-status error field.
package apply

import (
	"context"
	"fmt"

	"github.com/hornetlabs/synchdb/internal/catalog"
	"github.com/hornetlabs/synchdb/internal/ddl"
	"github.com/hornetlabs/synchdb/internal/destination"
	"github.com/hornetlabs/synchdb/internal/dml"
	"github.com/hornetlabs/synchdb/internal/errkind"
	"github.com/hornetlabs/synchdb/internal/model"
	"github.com/hornetlabs/synchdb/internal/rulestore"
)

// errBufferSize caps the destination-error text saved to shared
// status (spec §4.F: "capped at a fixed buffer, default 256 bytes").
const errBufferSize = 256

// Applier runs translated DDL/DML against one Destination.
type Applier struct {
	dest  destination.Destination
	cache *catalog.DataCache
}

// New builds an Applier over dest, invalidating cache entries on DDL.
func New(dest destination.Destination, cache *catalog.DataCache) *Applier {
	return &Applier{dest: dest, cache: cache}
}

// ApplyDDL runs stmt.SQL in its own transaction and invalidates the
// DataCache entry for the affected table regardless of outcome (spec
// §4.D "Always invalidate DataCache for the affected table before
// apply.").
func (a *Applier) ApplyDDL(ctx context.Context, connector string, stmt ddl.Statement) error {
	a.cache.Invalidate(stmt.Schema, stmt.Table)

	if len(stmt.SQL) == 0 {
		return nil
	}

	txn, err := a.dest.BeginTxn(ctx)
	if err != nil {
		return errkind.Wrap(errkind.Apply, connector, "apply_ddl", err)
	}

	for _, sql := range stmt.SQL {
		if err := txn.ExecuteSQL(ctx, sql); err != nil {
			_ = txn.Abort(ctx)
			return errkind.New(errkind.Apply, connector, "apply_ddl", truncateError(stmt.Table, err)).WithContext("sql", sql)
		}
	}

	if err := txn.Commit(ctx); err != nil {
		return errkind.Wrap(errkind.Apply, connector, "apply_ddl", err)
	}
	return nil
}

// Result reports a DML apply outcome. NotFound is a non-fatal event
// (spec §4.F steps 4-5), distinct from Err which is a real failure.
type Result struct {
	NotFound bool
}

// ApplyDML executes translated in its own transaction: SQL mode runs
// the prepared statement text; tuple mode locates the row by primary
// key if one exists, falling back to a full-before-image scan (spec
// §4.F). rules is forwarded to the tuple-mode Txn calls so a
// transform-expression rule on a value is honored the same way it is
// in SQL mode (spec §4.A); it may be nil.
func (a *Applier) ApplyDML(ctx context.Context, connector string, translated dml.Translated, pkColumns []string, rules *rulestore.Store) (Result, error) {
	txn, err := a.dest.BeginTxn(ctx)
	if err != nil {
		return Result{}, errkind.Wrap(errkind.Apply, connector, "apply_dml", err)
	}

	result, err := a.applyDMLTxn(ctx, txn, translated, pkColumns, rules)
	if err != nil {
		_ = txn.Abort(ctx)
		return Result{}, errkind.New(errkind.Apply, connector, "apply_dml", truncateError(translated.Table, err))
	}

	if err := txn.Commit(ctx); err != nil {
		return Result{}, errkind.Wrap(errkind.Apply, connector, "apply_dml", err)
	}
	return result, nil
}

func (a *Applier) applyDMLTxn(ctx context.Context, txn destination.Txn, translated dml.Translated, pkColumns []string, rules *rulestore.Store) (Result, error) {
	if translated.Mode == dml.ModeSQL {
		if err := txn.ExecuteSQL(ctx, translated.SQL); err != nil {
			return Result{}, err
		}
		return Result{}, nil
	}

	rec := translated.Record
	switch rec.Op {
	case model.DMLCreate, model.DMLRead:
		if err := txn.InsertTuple(ctx, translated.Schema, translated.Table, rec.AfterValues, rules); err != nil {
			return Result{}, err
		}
		return Result{}, nil

	case model.DMLUpdate:
		var found bool
		var err error
		if len(pkColumns) > 0 {
			found, err = txn.UpdateTupleByIndex(ctx, translated.Schema, translated.Table, pkColumns, rec.BeforeValues, rec.AfterValues, rules)
		} else {
			found, err = txn.UpdateTupleBySeqScan(ctx, translated.Schema, translated.Table, rec.BeforeValues, rec.AfterValues, rules)
		}
		if err != nil {
			return Result{}, err
		}
		if !found {
			return Result{NotFound: true}, nil
		}
		return Result{}, nil

	case model.DMLDelete:
		var found bool
		var err error
		if len(pkColumns) > 0 {
			found, err = txn.DeleteTupleByIndex(ctx, translated.Schema, translated.Table, pkColumns, rec.BeforeValues, rules)
		} else {
			found, err = txn.DeleteTupleBySeqScan(ctx, translated.Schema, translated.Table, rec.BeforeValues, rules)
		}
		if err != nil {
			return Result{}, err
		}
		if !found {
			return Result{NotFound: true}, nil
		}
		return Result{}, nil

	default:
		return Result{}, fmt.Errorf("apply: unsupported op %q", rec.Op)
	}
}

// truncateError builds the error text saved to shared status (spec
// §4.F): prefixed with the destination table name, not its oid, and
// cut to errBufferSize bytes.
func truncateError(table string, err error) string {
	msg := fmt.Sprintf("[%s] %v", table, err)
	if len(msg) > errBufferSize {
		msg = msg[:errBufferSize]
	}
	return msg
}
