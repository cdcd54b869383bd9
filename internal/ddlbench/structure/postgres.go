package structure

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

type postgresDialect struct{}

func (postgresDialect) name() Dialect { return Postgres }

func (postgresDialect) features() Feature {
	return ColumnConstraints | DefaultValueForText | MultipleAutoIncrementColumns | RenameIndex | AlterColumn | AddForeignKey
}

func (postgresDialect) open(ctx context.Context, credentials Credentials) (conn, error) {
	config, err := pgx.ParseConfig(credentials.Url)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if credentials.Username != "" {
		config.User = credentials.Username
	}
	if credentials.Password != "" {
		config.Password = credentials.Password
	}
	c, err := pgx.ConnectConfig(ctx, config)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &pgxConn{conn: c}, nil
}

func (postgresDialect) quote(identifier string) string {
	return quoteWith(`"`, identifier)
}

func (postgresDialect) typeName(column ColumnDefinition) string {
	if column.AutoIncrement {
		if column.Type == Integer {
			return "serial"
		}
		return "bigserial"
	}
	return string(column.Type)
}

func (d postgresDialect) createTable(definition TableDefinition) string {
	clauses := make([]string, len(definition.Columns))
	for i, c := range definition.Columns {
		clauses[i] = columnClause(d, c, d.typeName(c))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s%s)", d.quote(definition.Name), strings.Join(clauses, ", "), primaryKeyClause(d, definition.Columns))
}

func (d postgresDialect) renameTable(from, to string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.quote(from), d.quote(to))
}

func (d postgresDialect) dropTable(table string) string {
	return fmt.Sprintf("DROP TABLE %s", d.quote(table))
}

func (d postgresDialect) addColumn(table string, column ColumnDefinition) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.quote(table), columnClause(d, column, d.typeName(column)))
}

func (d postgresDialect) renameColumn(table string, column ColumnDefinition, to string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", d.quote(table), d.quote(column.Name), d.quote(to))
}

func (d postgresDialect) alterColumn(table string, from, to ColumnDefinition) ([]string, error) {
	prefix := fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s", d.quote(table), d.quote(from.Name))
	var statements []string
	if from.Type != to.Type {
		statements = append(statements, fmt.Sprintf("%s TYPE %s", prefix, to.Type))
	}
	if from.Nullable != to.Nullable {
		if to.Nullable {
			statements = append(statements, prefix+" DROP NOT NULL")
		} else {
			statements = append(statements, prefix+" SET NOT NULL")
		}
	}
	if from.DefaultExpression != to.DefaultExpression {
		if to.DefaultExpression == "" {
			statements = append(statements, prefix+" DROP DEFAULT")
		} else {
			statements = append(statements, fmt.Sprintf("%s SET DEFAULT %s", prefix, to.DefaultExpression))
		}
	}
	return statements, nil
}

func (d postgresDialect) dropColumn(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.quote(table), d.quote(column))
}

// Index changes run CONCURRENTLY so that they do not block writes.
func (d postgresDialect) createIndex(table, name string, unique bool, columns []string) string {
	kind := "INDEX"
	if unique {
		kind = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s CONCURRENTLY %s ON %s (%s)", kind, d.quote(name), d.quote(table), quoteAll(d, columns))
}

func (d postgresDialect) renameIndex(_, from, to string) (string, error) {
	return fmt.Sprintf("ALTER INDEX %s RENAME TO %s", d.quote(from), d.quote(to)), nil
}

func (d postgresDialect) dropIndex(_, name string) string {
	return fmt.Sprintf("DROP INDEX CONCURRENTLY %s", d.quote(name))
}

func (d postgresDialect) addForeignKey(table, name string, columns []string, referredTable string, referredColumns []string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		d.quote(table), d.quote(name), quoteAll(d, columns), d.quote(referredTable), quoteAll(d, referredColumns)), nil
}

func (d postgresDialect) dropForeignKey(table, name string) (string, error) {
	return d.dropConstraint(table, name)
}

func (d postgresDialect) addConstraint(table, name, expression string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s)", d.quote(table), d.quote(name), expression), nil
}

func (d postgresDialect) dropConstraint(table, name string) (string, error) {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", d.quote(table), d.quote(name)), nil
}

func (postgresDialect) listTables(ctx context.Context, c conn) ([]string, error) {
	return queryStrings(ctx, c, `
		SELECT table_name::text
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
}

func (postgresDialect) listColumns(ctx context.Context, c conn, table string) ([]ColumnDefinition, error) {
	primary, err := queryStrings(ctx, c, `
		SELECT a.attname::text
		FROM pg_index i
		JOIN pg_class t ON t.oid = i.indrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		WHERE n.nspname = 'public' AND t.relname = $1 AND i.indisprimary`, table)
	if err != nil {
		return nil, err
	}
	r, err := c.query(ctx, `
		SELECT column_name::text, data_type::text, character_maximum_length::int, is_nullable::text, column_default::text
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return collect(r, func(r rows) (ColumnDefinition, error) {
		var (
			name, dataType, nullable string
			length                   sql.NullInt64
			defaultExpression        sql.NullString
		)
		if err := r.Scan(&name, &dataType, &length, &nullable, &defaultExpression); err != nil {
			return ColumnDefinition{}, err
		}
		column := ColumnDefinition{
			Name:              name,
			Type:              normaliseType(dataType, int(length.Int64)),
			Nullable:          nullable == "YES",
			DefaultExpression: defaultExpression.String,
			Identity:          slices.Contains(primary, name),
		}
		if strings.HasPrefix(strings.ToLower(column.DefaultExpression), "nextval(") {
			column.AutoIncrement = true
			column.DefaultExpression = ""
		}
		return column, nil
	})
}

func (postgresDialect) listIndices(ctx context.Context, c conn, table string) ([]IndexDefinition, error) {
	r, err := c.query(ctx, `
		SELECT i.relname::text, ix.indisunique, ix.indisprimary
		FROM pg_class t
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_index ix ON ix.indrelid = t.oid
		JOIN pg_class i ON i.oid = ix.indexrelid
		WHERE n.nspname = 'public' AND t.relname = $1
		ORDER BY i.relname`, table)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return collect(r, func(r rows) (IndexDefinition, error) {
		var index IndexDefinition
		err := r.Scan(&index.Name, &index.Unique, &index.Primary)
		return index, err
	})
}

func (postgresDialect) listForeignKeys(ctx context.Context, c conn, table string) ([]string, error) {
	return listPostgresConstraints(ctx, c, table, "f")
}

func (postgresDialect) listConstraints(ctx context.Context, c conn, table string) ([]string, error) {
	return listPostgresConstraints(ctx, c, table, "c")
}

func listPostgresConstraints(ctx context.Context, c conn, table string, constraintType string) ([]string, error) {
	return queryStrings(ctx, c, `
		SELECT con.conname::text
		FROM pg_constraint con
		JOIN pg_class t ON t.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE n.nspname = 'public' AND t.relname = $1 AND con.contype::text = $2
		ORDER BY con.conname`, table, constraintType)
}

func (d postgresDialect) dropContents(ctx context.Context, c conn) error {
	tables, err := d.listTables(ctx, c)
	if err != nil {
		return err
	}
	for _, table := range tables {
		if err := c.exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", d.quote(table))); err != nil {
			return errors.Wrapf(err, "dropping table %s", table)
		}
	}
	sequences, err := queryStrings(ctx, c, `
		SELECT sequence_name::text
		FROM information_schema.sequences
		WHERE sequence_schema = 'public'`)
	if err != nil {
		return err
	}
	for _, sequence := range sequences {
		if err := c.exec(ctx, fmt.Sprintf("DROP SEQUENCE IF EXISTS %s CASCADE", d.quote(sequence))); err != nil {
			return errors.Wrapf(err, "dropping sequence %s", sequence)
		}
	}
	return nil
}
