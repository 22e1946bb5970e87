// Package dbprobe is the one deliberate, narrow exception to "no
// networked I/O to source databases" (non-goal in spec §1): it backs
// schemasync snapshot mode (spec §3 SnapshotMode.SchemaSync), reading
// the source catalog directly to seed a destination schema before
// streaming begins, rather than waiting for the producer to emit a
// full set of CREATE table-change events.
//
// Every connector in the core still only ever observes the source
// through the Producer interface (internal/source); dbprobe is used
// once per connector start, during the schema sync that precedes
// StateSchemaSyncDone, and only when a connector's SnapshotMode is
// explicitly "schemasync".
package dbprobe

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/godror/godror"

	"github.com/hornetlabs/synchdb/internal/model"
)

// TableSchema is one source table's column set, shaped to feed
// straight into a synthetic model.DDLRecord for the DDL translator.
type TableSchema struct {
	FQID      string
	PKColumns []string
	Columns   []model.Column
}

// Probe reads table schemas directly from a source database.
type Probe struct {
	db     *sql.DB
	flavor model.SourceFlavor
}

// Open connects to the source database for a one-shot catalog read.
// dsn is driver-specific: a go-sql-driver/mysql DSN, a
// denisenkom/go-mssqldb DSN, or a godror connect descriptor.
func Open(flavor model.SourceFlavor, dsn string) (*Probe, error) {
	var driver string
	switch flavor {
	case model.MySQL:
		driver = "mysql"
	case model.SQLServer:
		driver = "sqlserver"
	case model.Oracle:
		driver = "godror"
	default:
		return nil, fmt.Errorf("dbprobe: unsupported flavor %q", flavor)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("dbprobe: open: %w", err)
	}
	return &Probe{db: db, flavor: flavor}, nil
}

func (p *Probe) Close() error { return p.db.Close() }

// ListTables enumerates every table in database that passes include,
// for the schemasync bootstrap to iterate.
func (p *Probe) ListTables(ctx context.Context, database string, include func(table string) bool) ([]string, error) {
	query, args := p.listTablesQuery(database)
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dbprobe: list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if include == nil || include(name) {
			tables = append(tables, name)
		}
	}
	return tables, rows.Err()
}

func (p *Probe) listTablesQuery(database string) (string, []interface{}) {
	switch p.flavor {
	case model.MySQL:
		return "SELECT table_name FROM information_schema.tables WHERE table_schema = ?", []interface{}{database}
	case model.SQLServer:
		return "SELECT table_name FROM information_schema.tables WHERE table_catalog = @p1", []interface{}{database}
	default:
		return "SELECT table_name FROM all_tables WHERE owner = :1", []interface{}{database}
	}
}

// TableSchema reads one table's column descriptors directly from the
// source catalog, shaped the same way the producer's CREATE
// tableChanges entry would be (spec §4.D parsing fields), so the
// bootstrap can feed it straight into the existing DDL translator.
func (p *Probe) TableSchema(ctx context.Context, database, table string) (TableSchema, error) {
	query, args := p.columnsQuery(database, table)
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return TableSchema{}, fmt.Errorf("dbprobe: table schema: %w", err)
	}
	defer rows.Close()

	var schema TableSchema
	schema.FQID = fmt.Sprintf("%s.%s", database, table)

	pos := 1
	for rows.Next() {
		var name, typeName string
		var nullable string
		var length sql.NullInt64
		if err := rows.Scan(&name, &typeName, &nullable, &length); err != nil {
			return TableSchema{}, err
		}
		schema.Columns = append(schema.Columns, model.Column{
			Name:     name,
			TypeName: typeName,
			Length:   int(length.Int64),
			Optional: nullable == "YES",
			Position: pos,
		})
		pos++
	}
	if err := rows.Err(); err != nil {
		return TableSchema{}, err
	}

	pk, err := p.primaryKeyColumns(ctx, database, table)
	if err != nil {
		return TableSchema{}, err
	}
	schema.PKColumns = pk

	return schema, nil
}

func (p *Probe) columnsQuery(database, table string) (string, []interface{}) {
	switch p.flavor {
	case model.MySQL:
		return `SELECT column_name, data_type, is_nullable, character_maximum_length
			FROM information_schema.columns
			WHERE table_schema = ? AND table_name = ? ORDER BY ordinal_position`, []interface{}{database, table}
	case model.SQLServer:
		return `SELECT column_name, data_type, is_nullable, character_maximum_length
			FROM information_schema.columns
			WHERE table_catalog = @p1 AND table_name = @p2 ORDER BY ordinal_position`, []interface{}{database, table}
	default:
		return `SELECT column_name, data_type, nullable, data_length
			FROM all_tab_columns WHERE owner = :1 AND table_name = :2 ORDER BY column_id`, []interface{}{database, table}
	}
}

func (p *Probe) primaryKeyColumns(ctx context.Context, database, table string) ([]string, error) {
	var query string
	var args []interface{}
	switch p.flavor {
	case model.MySQL:
		query = `SELECT column_name FROM information_schema.key_column_usage
			WHERE table_schema = ? AND table_name = ? AND constraint_name = 'PRIMARY'
			ORDER BY ordinal_position`
		args = []interface{}{database, table}
	case model.SQLServer:
		query = `SELECT kcu.column_name FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name
			WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_catalog = @p1 AND tc.table_name = @p2
			ORDER BY kcu.ordinal_position`
		args = []interface{}{database, table}
	default:
		query = `SELECT cols.column_name FROM all_constraints cons
			JOIN all_cons_columns cols ON cons.constraint_name = cols.constraint_name
			WHERE cons.constraint_type = 'P' AND cons.owner = :1 AND cons.table_name = :2
			ORDER BY cols.position`
		args = []interface{}{database, table}
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dbprobe: primary key columns: %w", err)
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
