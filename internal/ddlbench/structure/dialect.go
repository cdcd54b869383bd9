package structure

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/armadaproject/ddlbench/internal/common/runerrors"
)

// dialect renders DDL and reads catalogs for one database product.
// DDL builders return runerrors.ErrNotSupported for actions the product cannot perform.
type dialect interface {
	name() Dialect
	features() Feature
	open(ctx context.Context, credentials Credentials) (conn, error)
	quote(identifier string) string

	createTable(definition TableDefinition) string
	renameTable(from, to string) string
	dropTable(table string) string

	addColumn(table string, column ColumnDefinition) string
	renameColumn(table string, column ColumnDefinition, to string) string
	alterColumn(table string, from, to ColumnDefinition) ([]string, error)
	dropColumn(table, column string) string

	createIndex(table, name string, unique bool, columns []string) string
	renameIndex(table, from, to string) (string, error)
	dropIndex(table, name string) string

	addForeignKey(table, name string, columns []string, referredTable string, referredColumns []string) (string, error)
	dropForeignKey(table, name string) (string, error)
	addConstraint(table, name, expression string) (string, error)
	dropConstraint(table, name string) (string, error)

	listTables(ctx context.Context, c conn) ([]string, error)
	listColumns(ctx context.Context, c conn, table string) ([]ColumnDefinition, error)
	listIndices(ctx context.Context, c conn, table string) ([]IndexDefinition, error)
	listForeignKeys(ctx context.Context, c conn, table string) ([]string, error)
	listConstraints(ctx context.Context, c conn, table string) ([]string, error)
	dropContents(ctx context.Context, c conn) error
}

func quoteAll(d dialect, identifiers []string) string {
	quoted := make([]string, len(identifiers))
	for i, identifier := range identifiers {
		quoted[i] = d.quote(identifier)
	}
	return strings.Join(quoted, ", ")
}

// quoteWith doubles any embedded quote character.
func quoteWith(q string, identifier string) string {
	return q + strings.ReplaceAll(identifier, q, q+q) + q
}

// primaryKeyClause returns ", PRIMARY KEY (...)" for the identity columns, or "" if there are none.
func primaryKeyClause(d dialect, columns []ColumnDefinition) string {
	var keys []string
	for _, c := range columns {
		if c.Identity {
			keys = append(keys, c.Name)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	return ", PRIMARY KEY (" + quoteAll(d, keys) + ")"
}

// QuoteLiteral renders s as a single-quoted SQL string literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func notSupported(d Dialect, action string) error {
	return errors.WithStack(&runerrors.ErrNotSupported{Dialect: string(d), Action: action})
}

// columnClause renders "name type [NOT NULL] [DEFAULT expr]" using the dialect's type names.
func columnClause(d dialect, column ColumnDefinition, typeName string) string {
	var sb strings.Builder
	sb.WriteString(d.quote(column.Name))
	sb.WriteString(" ")
	sb.WriteString(typeName)
	if !column.Nullable {
		sb.WriteString(" NOT NULL")
	}
	if column.DefaultExpression != "" {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(column.DefaultExpression)
	}
	return sb.String()
}
