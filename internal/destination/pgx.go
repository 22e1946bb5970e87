package destination

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hornetlabs/synchdb/internal/catalog"
	"github.com/hornetlabs/synchdb/internal/decode"
	"github.com/hornetlabs/synchdb/internal/model"
	"github.com/hornetlabs/synchdb/internal/rulestore"
)

// Config is the connection configuration for the pgx-backed
// Destination, mirroring the teacher's PostgreSQLConfig shape
// (pkg/database/postgres.go).
type Config struct {
	Host              string
	Port              int
	User              string
	Password          string
	Database          string
	SSLMode           string
	MaxConnections    int32
	ConnectionTimeout time.Duration
}

// PGDestination implements Destination, ddl.CatalogProbe, and
// dml.CatalogLoader against a pgx connection pool.
type PGDestination struct {
	pool *pgxpool.Pool
}

// Connect opens a pooled connection to the destination database.
func Connect(ctx context.Context, cfg Config) (*PGDestination, error) {
	poolConfig, err := pgxpool.ParseConfig("")
	if err != nil {
		return nil, fmt.Errorf("destination: parse config: %w", err)
	}

	poolConfig.ConnConfig.Host = cfg.Host
	poolConfig.ConnConfig.Port = uint16(cfg.Port)
	poolConfig.ConnConfig.Database = cfg.Database
	poolConfig.ConnConfig.User = cfg.User
	poolConfig.ConnConfig.Password = cfg.Password
	if cfg.ConnectionTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectionTimeout
	}
	if cfg.SSLMode == "disable" {
		poolConfig.ConnConfig.TLSConfig = nil
	}
	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = cfg.MaxConnections
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("destination: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("destination: ping: %w", err)
	}

	return &PGDestination{pool: pool}, nil
}

func (d *PGDestination) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}

func (d *PGDestination) BeginTxn(ctx context.Context) (Txn, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("destination: begin: %w", err)
	}
	return &pgTxn{tx: tx}, nil
}

func (d *PGDestination) GetNamespaceOID(ctx context.Context, name string) (uint32, bool, error) {
	var oid uint32
	err := d.pool.QueryRow(ctx, `SELECT oid FROM pg_namespace WHERE nspname = $1`, name).Scan(&oid)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("destination: get_namespace_oid: %w", err)
	}
	return oid, true, nil
}

func (d *PGDestination) GetTableOID(ctx context.Context, name string, namespaceOID uint32) (uint32, bool, error) {
	var oid uint32
	err := d.pool.QueryRow(ctx, `SELECT oid FROM pg_class WHERE relname = $1 AND relnamespace = $2`, name, namespaceOID).Scan(&oid)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("destination: get_table_oid: %w", err)
	}
	return oid, true, nil
}

// DestinationColumns implements ddl.CatalogProbe: the live, non-dropped
// column names of schema.table.
func (d *PGDestination) DestinationColumns(ctx context.Context, schema, table string) ([]string, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT a.attname
		FROM pg_attribute a
		JOIN pg_class c ON c.oid = a.attrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2 AND a.attnum > 0 AND NOT a.attisdropped
		ORDER BY a.attnum`, schema, table)
	if err != nil {
		return nil, fmt.Errorf("destination: destination_columns: %w", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// LoadTable implements dml.CatalogLoader: table oid, the column
// oid/position/typemod map, and the declared primary key columns, for
// DataCache population (spec §3, §4.E).
func (d *PGDestination) LoadTable(ctx context.Context, schema, table string) (catalog.TableEntry, error) {
	var tableOID uint32
	err := d.pool.QueryRow(ctx, `
		SELECT c.oid FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2`, schema, table).Scan(&tableOID)
	if err != nil {
		return catalog.TableEntry{}, fmt.Errorf("destination: load_table: table %s.%s: %w", schema, table, err)
	}

	rows, err := d.pool.Query(ctx, `
		SELECT attname, atttypid, attnum, atttypmod
		FROM pg_attribute
		WHERE attrelid = $1 AND attnum > 0 AND NOT attisdropped
		ORDER BY attnum`, tableOID)
	if err != nil {
		return catalog.TableEntry{}, fmt.Errorf("destination: load_table: columns: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]catalog.ColumnInfo)
	for rows.Next() {
		var name string
		var oid uint32
		var position, typemod int
		if err := rows.Scan(&name, &oid, &position, &typemod); err != nil {
			return catalog.TableEntry{}, err
		}
		cols[strings.ToLower(name)] = catalog.ColumnInfo{Name: name, OID: oid, Position: position, Typemod: typemod}
	}
	if err := rows.Err(); err != nil {
		return catalog.TableEntry{}, err
	}

	pkRows, err := d.pool.Query(ctx, `
		SELECT a.attname
		FROM pg_index i
		JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		WHERE i.indrelid = $1 AND i.indisprimary
		ORDER BY array_position(i.indkey, a.attnum)`, tableOID)
	if err != nil {
		return catalog.TableEntry{}, fmt.Errorf("destination: load_table: pk: %w", err)
	}
	defer pkRows.Close()

	var pk []string
	for pkRows.Next() {
		var name string
		if err := pkRows.Scan(&name); err != nil {
			return catalog.TableEntry{}, err
		}
		pk = append(pk, name)
	}

	return catalog.TableEntry{TableOID: tableOID, ColumnByName: cols, PKColumns: pk}, pkRows.Err()
}

// pgTxn implements Txn over one pgx.Tx.
type pgTxn struct {
	tx pgx.Tx
}

func (t *pgTxn) ExecuteSQL(ctx context.Context, text string) error {
	_, err := t.tx.Exec(ctx, text)
	return err
}

func (t *pgTxn) Commit(ctx context.Context) error { return t.tx.Commit(ctx) }
func (t *pgTxn) Abort(ctx context.Context) error  { return t.tx.Rollback(ctx) }

// InsertTuple builds a parameter-bound INSERT from positional decoded
// values (spec §4.F step 3). pgx's wire protocol has no raw-heap
// insertion primitive, so "tuple mode" here means executing through
// bound parameters instead of interpolated SQL text, keeping the two
// DML emission modes (spec §9) genuinely distinct code paths.
func (t *pgTxn) InsertTuple(ctx context.Context, schema, table string, values []model.Value, rules *rulestore.Store) error {
	cols := make([]string, 0, len(values))
	placeholders := make([]string, 0, len(values))
	args := make([]interface{}, 0, len(values))
	for i, v := range values {
		cols = append(cols, v.MappedName)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		lit, err := decode.DecodeWithTransform(decode.Input{Value: v, DestKind: decode.KindForOID(v.DestinationTypeOID)}, rules)
		if err != nil {
			return err
		}
		args = append(args, nullableArg(lit))
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", qualify(schema, table), strings.Join(cols, ","), strings.Join(placeholders, ","))
	_, err := t.tx.Exec(ctx, sql, args...)
	return err
}

func (t *pgTxn) UpdateTupleByIndex(ctx context.Context, schema, table string, pkColumns []string, before, after []model.Value, rules *rulestore.Store) (bool, error) {
	return t.updateTuple(ctx, schema, table, pkColumns, before, after, rules)
}

func (t *pgTxn) UpdateTupleBySeqScan(ctx context.Context, schema, table string, before, after []model.Value, rules *rulestore.Store) (bool, error) {
	return t.updateTuple(ctx, schema, table, nil, before, after, rules)
}

func (t *pgTxn) updateTuple(ctx context.Context, schema, table string, pkColumns []string, before, after []model.Value, rules *rulestore.Store) (bool, error) {
	setCols := make([]string, 0, len(after))
	args := make([]interface{}, 0, len(after)+len(before))
	for i, v := range after {
		lit, err := decode.DecodeWithTransform(decode.Input{Value: v, DestKind: decode.KindForOID(v.DestinationTypeOID)}, rules)
		if err != nil {
			return false, err
		}
		setCols = append(setCols, fmt.Sprintf("%s = $%d", v.MappedName, i+1))
		args = append(args, nullableArg(lit))
	}

	whereCols, whereArgs, err := whereBindings(pkColumns, before, len(args)+1, rules)
	if err != nil {
		return false, err
	}
	args = append(args, whereArgs...)

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s", qualify(schema, table), strings.Join(setCols, ", "), strings.Join(whereCols, " AND "))
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *pgTxn) DeleteTupleByIndex(ctx context.Context, schema, table string, pkColumns []string, before []model.Value, rules *rulestore.Store) (bool, error) {
	return t.deleteTuple(ctx, schema, table, pkColumns, before, rules)
}

func (t *pgTxn) DeleteTupleBySeqScan(ctx context.Context, schema, table string, before []model.Value, rules *rulestore.Store) (bool, error) {
	return t.deleteTuple(ctx, schema, table, nil, before, rules)
}

func (t *pgTxn) deleteTuple(ctx context.Context, schema, table string, pkColumns []string, before []model.Value, rules *rulestore.Store) (bool, error) {
	whereCols, args, err := whereBindings(pkColumns, before, 1, rules)
	if err != nil {
		return false, err
	}
	sql := fmt.Sprintf("DELETE FROM %s WHERE %s", qualify(schema, table), strings.Join(whereCols, " AND "))
	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// whereBindings builds "$n" placeholder clauses over pkColumns (or,
// if empty, every before-image column) starting at argOffset (spec
// §4.E "full before-image when no primary key is declared").
func whereBindings(pkColumns []string, before []model.Value, argOffset int, rules *rulestore.Store) ([]string, []interface{}, error) {
	byName := make(map[string]model.Value, len(before))
	for _, v := range before {
		byName[strings.ToLower(v.MappedName)] = v
	}

	selected := before
	if len(pkColumns) > 0 {
		selected = selected[:0]
		for _, pk := range pkColumns {
			if v, ok := byName[strings.ToLower(pk)]; ok {
				selected = append(selected, v)
			}
		}
	}

	cols := make([]string, 0, len(selected))
	args := make([]interface{}, 0, len(selected))
	for i, v := range selected {
		lit, err := decode.DecodeWithTransform(decode.Input{Value: v, DestKind: decode.KindForOID(v.DestinationTypeOID)}, rules)
		if err != nil {
			return nil, nil, err
		}
		cols = append(cols, fmt.Sprintf("%s = $%d", v.MappedName, argOffset+i))
		args = append(args, nullableArg(lit))
	}
	return cols, args, nil
}

func nullableArg(lit string) interface{} {
	if lit == "NULL" {
		return nil
	}
	return lit
}

func qualify(schema, table string) string {
	if schema == "" {
		return table
	}
	return schema + "." + table
}
