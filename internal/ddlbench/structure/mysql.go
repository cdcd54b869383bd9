package structure

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

type mysqlDialect struct{}

func (mysqlDialect) name() Dialect { return MySQL }

func (mysqlDialect) features() Feature {
	return AlterColumn | AddForeignKey
}

func (mysqlDialect) open(ctx context.Context, credentials Credentials) (conn, error) {
	config, err := mysql.ParseDSN(credentials.Url)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if credentials.Username != "" {
		config.User = credentials.Username
	}
	if credentials.Password != "" {
		config.Passwd = credentials.Password
	}
	connector, err := mysql.NewConnector(config)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return newSqlConn(ctx, sql.OpenDB(connector))
}

func (mysqlDialect) quote(identifier string) string {
	return quoteWith("`", identifier)
}

// definition renders the full column definition, which CHANGE and MODIFY COLUMN require.
func (d mysqlDialect) definition(column ColumnDefinition) string {
	clause := columnClause(d, column, string(column.Type))
	if column.Type == Integer {
		clause = columnClause(d, column, "int")
	}
	if column.AutoIncrement {
		clause += " AUTO_INCREMENT"
	}
	return clause
}

func (d mysqlDialect) createTable(definition TableDefinition) string {
	clauses := make([]string, len(definition.Columns))
	for i, c := range definition.Columns {
		clauses[i] = d.definition(c)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s%s)", d.quote(definition.Name), strings.Join(clauses, ", "), primaryKeyClause(d, definition.Columns))
}

func (d mysqlDialect) renameTable(from, to string) string {
	return fmt.Sprintf("RENAME TABLE %s TO %s", d.quote(from), d.quote(to))
}

func (d mysqlDialect) dropTable(table string) string {
	return fmt.Sprintf("DROP TABLE %s", d.quote(table))
}

func (d mysqlDialect) addColumn(table string, column ColumnDefinition) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.quote(table), d.definition(column))
}

func (d mysqlDialect) renameColumn(table string, column ColumnDefinition, to string) string {
	renamed := column
	renamed.Name = to
	return fmt.Sprintf("ALTER TABLE %s CHANGE COLUMN %s %s", d.quote(table), d.quote(column.Name), d.definition(renamed))
}

func (d mysqlDialect) alterColumn(table string, from, to ColumnDefinition) ([]string, error) {
	if to.Type == Text && to.DefaultExpression != "" {
		return nil, notSupported(MySQL, "default values on text columns")
	}
	return []string{fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s", d.quote(table), d.definition(to))}, nil
}

func (d mysqlDialect) dropColumn(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.quote(table), d.quote(column))
}

func (d mysqlDialect) createIndex(table, name string, unique bool, columns []string) string {
	kind := "INDEX"
	if unique {
		kind = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s %s ON %s (%s)", kind, d.quote(name), d.quote(table), quoteAll(d, columns))
}

func (mysqlDialect) renameIndex(_, _, _ string) (string, error) {
	return "", notSupported(MySQL, "renaming indices")
}

func (d mysqlDialect) dropIndex(table, name string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP INDEX %s", d.quote(table), d.quote(name))
}

func (d mysqlDialect) addForeignKey(table, name string, columns []string, referredTable string, referredColumns []string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		d.quote(table), d.quote(name), quoteAll(d, columns), d.quote(referredTable), quoteAll(d, referredColumns)), nil
}

func (d mysqlDialect) dropForeignKey(table, name string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s", d.quote(table), d.quote(name)), nil
}

func (mysqlDialect) addConstraint(_, _, _ string) (string, error) {
	return "", notSupported(MySQL, "check constraints")
}

func (mysqlDialect) dropConstraint(_, _ string) (string, error) {
	return "", notSupported(MySQL, "check constraints")
}

func (mysqlDialect) listTables(ctx context.Context, c conn) ([]string, error) {
	return queryStrings(ctx, c, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
}

func (mysqlDialect) listColumns(ctx context.Context, c conn, table string) ([]ColumnDefinition, error) {
	r, err := c.query(ctx, `
		SELECT column_name, column_type, is_nullable, column_default, column_key, extra
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return collect(r, func(r rows) (ColumnDefinition, error) {
		var (
			name, columnType, nullable, key, extra string
			defaultValue                           sql.NullString
		)
		if err := r.Scan(&name, &columnType, &nullable, &defaultValue, &key, &extra); err != nil {
			return ColumnDefinition{}, err
		}
		column := ColumnDefinition{
			Name:          name,
			Type:          normaliseType(columnType, 0),
			Nullable:      nullable == "YES",
			Identity:      key == "PRI",
			AutoIncrement: strings.Contains(strings.ToLower(extra), "auto_increment"),
		}
		if defaultValue.Valid {
			column.DefaultExpression = mysqlDefaultExpression(column.Type, defaultValue.String)
		}
		return column, nil
	})
}

// mysqlDefaultExpression turns a catalog default back into SQL. MySQL 8 reports string defaults
// without their quotes while MariaDB keeps them.
func mysqlDefaultExpression(columnType ColumnType, value string) string {
	if !columnType.IsTextual() || strings.HasPrefix(value, "'") {
		return value
	}
	return QuoteLiteral(value)
}

func (mysqlDialect) listIndices(ctx context.Context, c conn, table string) ([]IndexDefinition, error) {
	r, err := c.query(ctx, `
		SELECT index_name, MIN(non_unique)
		FROM information_schema.statistics
		WHERE table_schema = DATABASE() AND table_name = ?
		GROUP BY index_name
		ORDER BY index_name`, table)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return collect(r, func(r rows) (IndexDefinition, error) {
		var (
			index     IndexDefinition
			nonUnique int
		)
		if err := r.Scan(&index.Name, &nonUnique); err != nil {
			return index, err
		}
		index.Unique = nonUnique == 0
		index.Primary = index.Name == "PRIMARY"
		return index, nil
	})
}

func (mysqlDialect) listForeignKeys(ctx context.Context, c conn, table string) ([]string, error) {
	return listMysqlConstraints(ctx, c, table, "FOREIGN KEY")
}

func (mysqlDialect) listConstraints(ctx context.Context, c conn, table string) ([]string, error) {
	return listMysqlConstraints(ctx, c, table, "CHECK")
}

func listMysqlConstraints(ctx context.Context, c conn, table string, constraintType string) ([]string, error) {
	return queryStrings(ctx, c, `
		SELECT constraint_name
		FROM information_schema.table_constraints
		WHERE table_schema = DATABASE() AND table_name = ? AND constraint_type = ?
		ORDER BY constraint_name`, table, constraintType)
}

func (d mysqlDialect) dropContents(ctx context.Context, c conn) error {
	tables, err := d.listTables(ctx, c)
	if err != nil {
		return err
	}
	if err := c.exec(ctx, "SET FOREIGN_KEY_CHECKS = 0"); err != nil {
		return errors.WithStack(err)
	}
	for _, table := range tables {
		if err := c.exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", d.quote(table))); err != nil {
			return errors.Wrapf(err, "dropping table %s", table)
		}
	}
	return errors.WithStack(c.exec(ctx, "SET FOREIGN_KEY_CHECKS = 1"))
}
