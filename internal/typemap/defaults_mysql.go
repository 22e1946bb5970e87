package typemap

// mysqlDefaults is the compiled-in MySQL -> destination type table.
// Grounded on the value vocabulary spec's worked examples use (INT,
// VARCHAR, numeric/money scale rules) plus MySQL's own type surface.
func mysqlDefaults() map[key]Mapping {
	return map[key]Mapping{
		"TINYINT":    {DestinationTypeName: "SMALLINT", FixedLength: -1},
		"SMALLINT":   {DestinationTypeName: "SMALLINT", FixedLength: -1},
		"MEDIUMINT":  {DestinationTypeName: "INTEGER", FixedLength: -1},
		"INT":        {DestinationTypeName: "INTEGER", FixedLength: -1},
		"INTEGER":    {DestinationTypeName: "INTEGER", FixedLength: -1},
		"BIGINT":     {DestinationTypeName: "BIGINT", FixedLength: -1},
		"FLOAT":      {DestinationTypeName: "REAL", FixedLength: -1},
		"DOUBLE":     {DestinationTypeName: "DOUBLE PRECISION", FixedLength: -1},
		"DECIMAL":    {DestinationTypeName: "NUMERIC", FixedLength: -1},
		"NUMERIC":    {DestinationTypeName: "NUMERIC", FixedLength: -1},
		"CHAR":       {DestinationTypeName: "CHAR", FixedLength: -1},
		"VARCHAR":    {DestinationTypeName: "VARCHAR", FixedLength: -1},
		"TINYTEXT":   {DestinationTypeName: "TEXT", FixedLength: -1},
		"TEXT":       {DestinationTypeName: "TEXT", FixedLength: -1},
		"MEDIUMTEXT": {DestinationTypeName: "TEXT", FixedLength: -1},
		"LONGTEXT":   {DestinationTypeName: "TEXT", FixedLength: -1},
		"JSON":       {DestinationTypeName: "JSONB", FixedLength: -1},
		"ENUM":       {DestinationTypeName: "TEXT", FixedLength: -1},
		"BINARY":     {DestinationTypeName: "BYTEA", FixedLength: -1},
		"VARBINARY":  {DestinationTypeName: "BYTEA", FixedLength: -1},
		"BLOB":       {DestinationTypeName: "BYTEA", FixedLength: -1},
		"TINYBLOB":   {DestinationTypeName: "BYTEA", FixedLength: -1},
		"MEDIUMBLOB": {DestinationTypeName: "BYTEA", FixedLength: -1},
		"LONGBLOB":   {DestinationTypeName: "BYTEA", FixedLength: -1},
		"BIT":        {DestinationTypeName: "VARBIT", FixedLength: -1},
		"BIT(1)":     {DestinationTypeName: "BOOLEAN", FixedLength: -1},
		"DATE":       {DestinationTypeName: "DATE", FixedLength: -1},
		"DATETIME":   {DestinationTypeName: "TIMESTAMP", FixedLength: -1},
		"TIMESTAMP":  {DestinationTypeName: "TIMESTAMP", FixedLength: -1},
		"TIME":       {DestinationTypeName: "TIME", FixedLength: -1},
		"YEAR":       {DestinationTypeName: "SMALLINT", FixedLength: -1},
		"GEOMETRY":   {DestinationTypeName: "JSONB", FixedLength: -1},
		"POINT":      {DestinationTypeName: "JSONB", FixedLength: -1},
	}
}
