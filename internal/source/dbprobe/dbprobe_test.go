package dbprobe

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"

	"github.com/hornetlabs/synchdb/internal/model"
)

func TestOpenUnsupportedFlavor(t *testing.T) {
	_, err := Open(model.SourceFlavor("postgres"), "ignored")
	require.Error(t, err)
}

func setupTestMySQL(t *testing.T) *Probe {
	t.Helper()
	db, err := sql.Open("mysql", "root:password@tcp(localhost:3306)/testdb?parseTime=true")
	if err != nil {
		t.Skipf("skipping test - could not open mysql: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("skipping test - could not ping mysql: %v", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS dbprobe_orders (
			id INT AUTO_INCREMENT PRIMARY KEY,
			customer_name VARCHAR(255) NOT NULL,
			amount DECIMAL(10,2)
		)
	`)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Exec("DROP TABLE IF EXISTS dbprobe_orders")
		db.Close()
	})

	return &Probe{db: db, flavor: model.MySQL}
}

func TestListTablesFiltersWithInclude(t *testing.T) {
	p := setupTestMySQL(t)
	tables, err := p.ListTables(context.Background(), "testdb", func(name string) bool {
		return name == "dbprobe_orders"
	})
	require.NoError(t, err)
	require.Contains(t, tables, "dbprobe_orders")
}

func TestTableSchemaReadsColumnsAndPrimaryKey(t *testing.T) {
	p := setupTestMySQL(t)
	schema, err := p.TableSchema(context.Background(), "testdb", "dbprobe_orders")
	require.NoError(t, err)
	require.Equal(t, "testdb.dbprobe_orders", schema.FQID)
	require.Equal(t, []string{"id"}, schema.PKColumns)

	var names []string
	for _, c := range schema.Columns {
		names = append(names, c.Name)
	}
	require.Contains(t, names, "customer_name")
	require.Contains(t, names, "amount")
}
