package structure

import (
	"github.com/doug-martin/goqu/v9"
	// Register the dialects handed out by Builder.
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
)

var builderDialects = map[Dialect]string{
	Postgres: "postgres",
	MySQL:    "mysql",
	SQLite:   "sqlite3",
}

// Builder returns a query builder rendering quoted, interpolated SQL for the dialect.
func (d Dialect) Builder() goqu.DialectWrapper {
	return goqu.Dialect(builderDialects[d])
}
