package ddl

import (
	"context"
	"strings"
	"testing"

	"github.com/hornetlabs/synchdb/internal/model"
	"github.com/hornetlabs/synchdb/internal/rulestore"
	"github.com/hornetlabs/synchdb/internal/typemap"
	"github.com/stretchr/testify/require"
)

const mysqlCreateEvent = `{
  "payload": {
    "tableChanges": [
      {
        "id": "inv.orders",
        "type": "CREATE",
        "table": {
          "primaryKeyColumnNames": ["order_number"],
          "columns": [
            {"name": "order_number", "typeName": "INT", "optional": false, "autoIncremented": true, "position": 1},
            {"name": "quantity", "typeName": "INT", "optional": false, "position": 2},
            {"name": "product", "typeName": "VARCHAR", "length": 64, "optional": true, "position": 3}
          ]
        }
      }
    ]
  }
}`

func TestParseAndTranslateMySQLCreate(t *testing.T) {
	result, count, err := Parse([]byte(mysqlCreateEvent))
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.False(t, result.NoChange)
	require.Equal(t, "inv.orders", result.Record.FQID)
	require.Equal(t, model.DDLCreate, result.Record.Kind)
	require.Len(t, result.Record.Columns, 3)

	registry := typemap.NewRegistry()
	rules := rulestore.NewStore()

	stmt, err := Translate(context.Background(), "conn1", result.Record, "inv", model.MySQL, registry, rules, nil)
	require.NoError(t, err)
	require.Equal(t, "inv", stmt.Schema)
	require.Equal(t, "orders", stmt.Table)
	require.Len(t, stmt.SQL, 2)
	require.Equal(t, "CREATE SCHEMA IF NOT EXISTS inv;", stmt.SQL[0])

	create := stmt.SQL[1]
	require.True(t, strings.HasPrefix(create, "CREATE TABLE IF NOT EXISTS inv.orders ("))
	require.Contains(t, create, "order_number SERIAL NOT NULL")
	require.Contains(t, create, "quantity INTEGER NOT NULL")
	require.Contains(t, create, "product VARCHAR(64)")
	require.Contains(t, create, "PRIMARY KEY(order_number)")
}

func TestParseEmptyTableChanges(t *testing.T) {
	result, count, err := Parse([]byte(`{"payload":{"tableChanges":[]}}`))
	require.NoError(t, err)
	require.Equal(t, 0, count)
	require.True(t, result.NoChange)
}

func TestSplitFQID(t *testing.T) {
	cases := []struct {
		id                    string
		db, schema, table     string
	}{
		{"orders", "", "", "orders"},
		{"inv.orders", "inv", "", "orders"},
		{"mydb.inv.orders", "mydb", "inv", "orders"},
	}
	for _, c := range cases {
		db, schema, table, err := SplitFQID(c.id)
		require.NoError(t, err)
		require.Equal(t, c.db, db)
		require.Equal(t, c.schema, schema)
		require.Equal(t, c.table, table)
	}
}

func TestTranslateDrop(t *testing.T) {
	registry := typemap.NewRegistry()
	rules := rulestore.NewStore()
	rec := model.DDLRecord{FQID: "inv.orders", Kind: model.DDLDrop}

	stmt, err := Translate(context.Background(), "conn1", rec, "inv", model.MySQL, registry, rules, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"DROP TABLE IF EXISTS inv.orders;"}, stmt.SQL)
}

type stubProbe struct{ columns []string }

func (p stubProbe) DestinationColumns(ctx context.Context, schema, table string) ([]string, error) {
	return p.columns, nil
}

func TestTranslateAlterAddColumn(t *testing.T) {
	registry := typemap.NewRegistry()
	rules := rulestore.NewStore()
	probe := stubProbe{columns: []string{"order_number", "quantity"}}
	rec := model.DDLRecord{
		FQID: "inv.orders",
		Kind: model.DDLAlter,
		Columns: []model.Column{
			{Name: "order_number", TypeName: "INT", Position: 1},
			{Name: "quantity", TypeName: "INT", Position: 2},
			{Name: "product", TypeName: "VARCHAR", Length: 64, Optional: true, Position: 3},
		},
	}

	stmt, err := Translate(context.Background(), "conn1", rec, "inv", model.MySQL, registry, rules, probe)
	require.NoError(t, err)
	require.Len(t, stmt.SQL, 1)
	require.Equal(t, "ALTER TABLE inv.orders ADD COLUMN product VARCHAR(64);", stmt.SQL[0])
}

func TestTranslateAlterDropColumn(t *testing.T) {
	registry := typemap.NewRegistry()
	rules := rulestore.NewStore()
	probe := stubProbe{columns: []string{"order_number", "quantity", "product"}}
	rec := model.DDLRecord{
		FQID: "inv.orders",
		Kind: model.DDLAlter,
		Columns: []model.Column{
			{Name: "order_number", TypeName: "INT", Position: 1},
			{Name: "quantity", TypeName: "INT", Position: 2},
		},
	}

	stmt, err := Translate(context.Background(), "conn1", rec, "inv", model.MySQL, registry, rules, probe)
	require.NoError(t, err)
	require.Equal(t, []string{"ALTER TABLE inv.orders DROP COLUMN product;"}, stmt.SQL)
}

func TestTranslateAlterModifyEqualCountCombinesIntoOneStatement(t *testing.T) {
	registry := typemap.NewRegistry()
	rules := rulestore.NewStore()
	probe := stubProbe{columns: []string{"order_number", "quantity"}}
	rec := model.DDLRecord{
		FQID: "inv.orders",
		Kind: model.DDLAlter,
		Columns: []model.Column{
			{Name: "order_number", TypeName: "BIGINT", Position: 1},
			{Name: "quantity", TypeName: "BIGINT", Position: 2},
		},
	}

	stmt, err := Translate(context.Background(), "conn1", rec, "inv", model.MySQL, registry, rules, probe)
	require.NoError(t, err)
	require.Len(t, stmt.SQL, 1)
	require.True(t, strings.HasPrefix(stmt.SQL[0], "ALTER TABLE inv.orders "))
	require.Contains(t, stmt.SQL[0], "order_number SET DATA TYPE BIGINT")
	require.Contains(t, stmt.SQL[0], "quantity SET DATA TYPE BIGINT")
	require.Equal(t, 0, stmt.RenamesIgnored)
}

func TestTranslateAlterModifyEqualCountIgnoresUnmatchedRename(t *testing.T) {
	registry := typemap.NewRegistry()
	rules := rulestore.NewStore()
	probe := stubProbe{columns: []string{"order_number", "qty"}}
	rec := model.DDLRecord{
		FQID: "inv.orders",
		Kind: model.DDLAlter,
		Columns: []model.Column{
			{Name: "order_number", TypeName: "BIGINT", Position: 1},
			{Name: "quantity", TypeName: "BIGINT", Position: 2},
		},
	}

	stmt, err := Translate(context.Background(), "conn1", rec, "inv", model.MySQL, registry, rules, probe)
	require.NoError(t, err)
	require.Equal(t, 1, stmt.RenamesIgnored)
	require.Len(t, stmt.SQL, 1)
	require.Contains(t, stmt.SQL[0], "order_number SET DATA TYPE BIGINT")
	require.NotContains(t, stmt.SQL[0], "quantity")
}
