package typemap

// mssqlDefaults is the compiled-in SQL Server -> destination type
// table.
func mssqlDefaults() map[key]Mapping {
	return map[key]Mapping{
		"TINYINT":          {DestinationTypeName: "SMALLINT", FixedLength: -1},
		"SMALLINT":         {DestinationTypeName: "SMALLINT", FixedLength: -1},
		"INT":              {DestinationTypeName: "INTEGER", FixedLength: -1},
		"BIGINT":           {DestinationTypeName: "BIGINT", FixedLength: -1},
		"REAL":             {DestinationTypeName: "REAL", FixedLength: -1},
		"FLOAT":            {DestinationTypeName: "DOUBLE PRECISION", FixedLength: -1},
		"DECIMAL":          {DestinationTypeName: "NUMERIC", FixedLength: -1},
		"NUMERIC":          {DestinationTypeName: "NUMERIC", FixedLength: -1},
		"MONEY":            {DestinationTypeName: "MONEY", FixedLength: -1},
		"SMALLMONEY":       {DestinationTypeName: "MONEY", FixedLength: -1},
		"CHAR":             {DestinationTypeName: "CHAR", FixedLength: -1},
		"NCHAR":            {DestinationTypeName: "CHAR", FixedLength: -1},
		"VARCHAR":          {DestinationTypeName: "VARCHAR", FixedLength: -1},
		"NVARCHAR":         {DestinationTypeName: "VARCHAR", FixedLength: -1},
		"TEXT":             {DestinationTypeName: "TEXT", FixedLength: -1},
		"NTEXT":            {DestinationTypeName: "TEXT", FixedLength: -1},
		"BINARY":           {DestinationTypeName: "BYTEA", FixedLength: -1},
		"VARBINARY":        {DestinationTypeName: "BYTEA", FixedLength: -1},
		"IMAGE":            {DestinationTypeName: "BYTEA", FixedLength: -1},
		"BIT":              {DestinationTypeName: "BOOLEAN", FixedLength: -1},
		"DATE":             {DestinationTypeName: "DATE", FixedLength: -1},
		"DATETIME":         {DestinationTypeName: "TIMESTAMP", FixedLength: -1},
		"DATETIME2":        {DestinationTypeName: "TIMESTAMP", FixedLength: -1},
		"SMALLDATETIME":    {DestinationTypeName: "TIMESTAMP", FixedLength: -1},
		"DATETIMEOFFSET":   {DestinationTypeName: "TIMESTAMPTZ", FixedLength: -1},
		"TIME":             {DestinationTypeName: "TIME", FixedLength: -1},
		"UNIQUEIDENTIFIER": {DestinationTypeName: "UUID", FixedLength: -1},
		"XML":              {DestinationTypeName: "TEXT", FixedLength: -1},
		"GEOGRAPHY":        {DestinationTypeName: "JSONB", FixedLength: -1},
		"GEOMETRY":         {DestinationTypeName: "JSONB", FixedLength: -1},
	}
}
