package structure

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const sqliteBusyTimeoutMillis = 5000

type sqliteDialect struct{}

func (sqliteDialect) name() Dialect { return SQLite }

func (sqliteDialect) features() Feature {
	return DefaultValueForText
}

func (sqliteDialect) open(ctx context.Context, credentials Credentials) (conn, error) {
	path := credentials.Url
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "could not make directory for sqlite db at %s", path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening sqlite db from %s", path)
	}
	c, err := newSqlConn(ctx, db)
	if err != nil {
		return nil, err
	}
	for _, pragma := range []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", sqliteBusyTimeoutMillis),
		"PRAGMA journal_mode = WAL",
	} {
		if err := c.exec(ctx, pragma); err != nil {
			_ = c.close(ctx)
			return nil, errors.Wrapf(err, "executing %q", pragma)
		}
	}
	return c, nil
}

func (sqliteDialect) quote(identifier string) string {
	return quoteWith(`"`, identifier)
}

// A single auto-increment integer primary key has to be declared inline to alias the rowid.
func rowidAlias(columns []ColumnDefinition) (ColumnDefinition, bool) {
	var identity []ColumnDefinition
	for _, c := range columns {
		if c.Identity {
			identity = append(identity, c)
		}
	}
	if len(identity) == 1 && identity[0].AutoIncrement {
		return identity[0], true
	}
	return ColumnDefinition{}, false
}

func (d sqliteDialect) createTable(definition TableDefinition) string {
	alias, hasAlias := rowidAlias(definition.Columns)
	clauses := make([]string, len(definition.Columns))
	for i, c := range definition.Columns {
		if hasAlias && c.Name == alias.Name {
			clauses[i] = d.quote(c.Name) + " INTEGER PRIMARY KEY AUTOINCREMENT"
			continue
		}
		clauses[i] = columnClause(d, c, string(c.Type))
	}
	primaryKey := ""
	if !hasAlias {
		primaryKey = primaryKeyClause(d, definition.Columns)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s%s)", d.quote(definition.Name), strings.Join(clauses, ", "), primaryKey)
}

func (d sqliteDialect) renameTable(from, to string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.quote(from), d.quote(to))
}

func (d sqliteDialect) dropTable(table string) string {
	return fmt.Sprintf("DROP TABLE %s", d.quote(table))
}

func (d sqliteDialect) addColumn(table string, column ColumnDefinition) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.quote(table), columnClause(d, column, string(column.Type)))
}

func (d sqliteDialect) renameColumn(table string, column ColumnDefinition, to string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", d.quote(table), d.quote(column.Name), d.quote(to))
}

func (sqliteDialect) alterColumn(_ string, _, _ ColumnDefinition) ([]string, error) {
	return nil, notSupported(SQLite, "altering columns")
}

func (d sqliteDialect) dropColumn(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.quote(table), d.quote(column))
}

func (d sqliteDialect) createIndex(table, name string, unique bool, columns []string) string {
	kind := "INDEX"
	if unique {
		kind = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s %s ON %s (%s)", kind, d.quote(name), d.quote(table), quoteAll(d, columns))
}

func (sqliteDialect) renameIndex(_, _, _ string) (string, error) {
	return "", notSupported(SQLite, "renaming indices")
}

func (d sqliteDialect) dropIndex(_, name string) string {
	return fmt.Sprintf("DROP INDEX %s", d.quote(name))
}

func (sqliteDialect) addForeignKey(_, _ string, _ []string, _ string, _ []string) (string, error) {
	return "", notSupported(SQLite, "adding foreign keys to existing tables")
}

func (sqliteDialect) dropForeignKey(_, _ string) (string, error) {
	return "", notSupported(SQLite, "dropping foreign keys")
}

func (sqliteDialect) addConstraint(_, _, _ string) (string, error) {
	return "", notSupported(SQLite, "adding check constraints to existing tables")
}

func (sqliteDialect) dropConstraint(_, _ string) (string, error) {
	return "", notSupported(SQLite, "dropping check constraints")
}

func (sqliteDialect) listTables(ctx context.Context, c conn) ([]string, error) {
	return queryStrings(ctx, c, `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
}

func (sqliteDialect) listColumns(ctx context.Context, c conn, table string) ([]ColumnDefinition, error) {
	r, err := c.query(ctx, `SELECT name, type, "notnull", dflt_value, pk FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	columns, err := collect(r, func(r rows) (ColumnDefinition, error) {
		var (
			name, columnType string
			notNull, pk      int
			defaultValue     sql.NullString
		)
		if err := r.Scan(&name, &columnType, &notNull, &defaultValue, &pk); err != nil {
			return ColumnDefinition{}, err
		}
		return ColumnDefinition{
			Name:              name,
			Type:              normaliseType(columnType, 0),
			Nullable:          notNull == 0 && pk == 0,
			DefaultExpression: defaultValue.String,
			Identity:          pk > 0,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	// A lone INTEGER primary key aliases the rowid and so auto-increments.
	var identity []int
	for i, column := range columns {
		if column.Identity {
			identity = append(identity, i)
		}
	}
	if len(identity) == 1 && columns[identity[0]].Type == Integer {
		columns[identity[0]].AutoIncrement = true
	}
	return columns, nil
}

func (sqliteDialect) listIndices(ctx context.Context, c conn, table string) ([]IndexDefinition, error) {
	r, err := c.query(ctx, `SELECT name, "unique", origin FROM pragma_index_list(?) ORDER BY name`, table)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return collect(r, func(r rows) (IndexDefinition, error) {
		var (
			index  IndexDefinition
			unique int
			origin string
		)
		if err := r.Scan(&index.Name, &unique, &origin); err != nil {
			return index, err
		}
		index.Unique = unique != 0
		index.Primary = origin == "pk"
		return index, nil
	})
}

// SQLite foreign keys are anonymous; they are named <table>_fk_<id>.
func (sqliteDialect) listForeignKeys(ctx context.Context, c conn, table string) ([]string, error) {
	r, err := c.query(ctx, `SELECT DISTINCT id FROM pragma_foreign_key_list(?) ORDER BY id`, table)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return collect(r, func(r rows) (string, error) {
		var id int
		err := r.Scan(&id)
		return fmt.Sprintf("%s_fk_%d", table, id), err
	})
}

func (sqliteDialect) listConstraints(_ context.Context, _ conn, _ string) ([]string, error) {
	return nil, nil
}

func (d sqliteDialect) dropContents(ctx context.Context, c conn) error {
	tables, err := d.listTables(ctx, c)
	if err != nil {
		return err
	}
	for _, table := range tables {
		if err := c.exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", d.quote(table))); err != nil {
			return errors.Wrapf(err, "dropping table %s", table)
		}
	}
	return nil
}
