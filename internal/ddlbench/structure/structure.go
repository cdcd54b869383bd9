// Package structure opens connections to the database under test and inspects and alters its
// schema. Every dialect offers the same Database interface; what a dialect cannot do is exposed
// through its Feature set and reported as runerrors.ErrNotSupported.
package structure

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/armadaproject/ddlbench/internal/common/runerrors"
)

// Dialect identifies a database product.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
	SQLite   Dialect = "sqlite"
)

var dialects = map[Dialect]dialect{
	Postgres: postgresDialect{},
	MySQL:    mysqlDialect{},
	SQLite:   sqliteDialect{},
}

// Dialects lists every supported dialect.
func Dialects() []Dialect {
	return []Dialect{Postgres, MySQL, SQLite}
}

// ParseDialect returns the dialect named by s, ignoring case and surrounding whitespace.
func ParseDialect(s string) (Dialect, error) {
	d := Dialect(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := dialects[d]; !ok {
		return "", errors.WithStack(&runerrors.ErrInvalidArgument{
			Name:    "database.type",
			Value:   s,
			Message: "expected one of postgres, mysql or sqlite",
		})
	}
	return d, nil
}

func (d Dialect) String() string { return string(d) }

// LowerCased lets config decoding normalise dialect names.
func (Dialect) LowerCased() {}

// Features returns what the dialect supports. Unknown dialects support nothing.
func (d Dialect) Features() Feature {
	impl, ok := dialects[d]
	if !ok {
		return 0
	}
	return impl.features()
}

// NewDatabase returns an unconnected Database for the dialect.
func (d Dialect) NewDatabase() (Database, error) {
	impl, ok := dialects[d]
	if !ok {
		return nil, errors.WithStack(&runerrors.ErrInvalidArgument{Name: "database.type", Value: string(d)})
	}
	return &database{dialect: impl}, nil
}

// Supports reports whether dialect d has every feature in f.
func Supports(d Dialect, f Feature) bool {
	return d.Features().Has(f)
}

// Credentials locate the database under test. The meaning of Url depends on the dialect:
// a libpq URL or DSN for Postgres, a go-sql-driver DSN for MySQL and a file path for SQLite.
// Username and Password override any present in Url.
type Credentials struct {
	Url      string `validate:"required"`
	Username string
	Password string
}

type TableDefinition struct {
	Name    string
	Columns []ColumnDefinition
}

type ColumnDefinition struct {
	Name     string
	Type     ColumnType
	Nullable bool
	// Raw SQL expression, e.g. 'NOT_SET' including the quotes. Empty means no default.
	DefaultExpression string
	// Part of the primary key.
	Identity      bool
	AutoIncrement bool
}

type IndexDefinition struct {
	Name    string
	Unique  bool
	Primary bool
}

// Database is a single connection to the database under test.
type Database interface {
	Connect(ctx context.Context, credentials Credentials) error
	Close(ctx context.Context) error
	Dialect() Dialect
	Supports(feature Feature) bool
	// Query executes sql, discarding any rows it returns.
	Query(ctx context.Context, sql string) error
	CreateTable(ctx context.Context, definition TableDefinition) (Table, error)
	ListTables(ctx context.Context) ([]Table, error)
	GetTable(ctx context.Context, name string) (Table, error)
	HasTable(ctx context.Context, name string) (bool, error)
	// DropContents drops every table, and for Postgres every sequence.
	DropContents(ctx context.Context) error
}

type Table interface {
	Name() string
	Rename(ctx context.Context, name string) error
	Drop(ctx context.Context) error

	ListColumns(ctx context.Context) ([]Column, error)
	GetColumn(ctx context.Context, name string) (Column, error)
	HasColumn(ctx context.Context, name string) (bool, error)
	AddColumn(ctx context.Context, definition ColumnDefinition) (Column, error)

	ListIndices(ctx context.Context) ([]Index, error)
	GetIndex(ctx context.Context, name string) (Index, error)
	HasIndex(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, name string, unique bool, columns ...string) (Index, error)

	ListForeignKeys(ctx context.Context) ([]ForeignKey, error)
	AddForeignKey(ctx context.Context, name string, columns []string, referredTable string, referredColumns []string) (ForeignKey, error)

	ListConstraints(ctx context.Context) ([]Constraint, error)
	HasConstraint(ctx context.Context, name string) (bool, error)
	// CreateConstraint adds a CHECK constraint with the given boolean expression.
	CreateConstraint(ctx context.Context, name string, expression string) (Constraint, error)
}

type Column interface {
	Name() string
	Type() ColumnType
	Nullable() bool
	DefaultExpression() string
	Identity() bool
	AutoIncrement() bool
	Definition() ColumnDefinition

	Rename(ctx context.Context, name string) error
	SetType(ctx context.Context, columnType ColumnType) error
	SetNullable(ctx context.Context, nullable bool) error
	// SetDefaultExpression sets the default; an empty expression drops it.
	SetDefaultExpression(ctx context.Context, expression string) error
	Drop(ctx context.Context) error
}

type Index interface {
	Name() string
	Unique() bool
	Primary() bool
	Rename(ctx context.Context, name string) error
	Drop(ctx context.Context) error
}

type ForeignKey interface {
	Name() string
	Drop(ctx context.Context) error
}

type Constraint interface {
	Name() string
	Drop(ctx context.Context) error
}
