package structure

import (
	"context"

	"github.com/pkg/errors"

	"github.com/armadaproject/ddlbench/internal/common/runerrors"
)

// table and the objects hanging off it hold no schema state beyond their names; every listing
// reads the catalog again, since other connections may be altering the schema concurrently.
type table struct {
	db   *database
	name string
}

func (t *table) Name() string { return t.name }

func (t *table) Rename(ctx context.Context, name string) error {
	if err := t.db.execute(ctx, t.db.dialect.renameTable(t.name, name)); err != nil {
		return err
	}
	t.name = name
	return nil
}

func (t *table) Drop(ctx context.Context) error {
	return t.db.execute(ctx, t.db.dialect.dropTable(t.name))
}

func (t *table) ListColumns(ctx context.Context) ([]Column, error) {
	c, err := t.db.connection()
	if err != nil {
		return nil, err
	}
	definitions, err := t.db.dialect.listColumns(ctx, c, t.name)
	if err != nil {
		return nil, errors.WithMessagef(err, "listing columns of %s", t.name)
	}
	columns := make([]Column, len(definitions))
	for i, definition := range definitions {
		columns[i] = &column{table: t, def: definition}
	}
	return columns, nil
}

func (t *table) GetColumn(ctx context.Context, name string) (Column, error) {
	columns, err := t.ListColumns(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range columns {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, errors.WithStack(&runerrors.ErrNotFound{Type: "column", Value: name, Message: "table " + t.name})
}

func (t *table) HasColumn(ctx context.Context, name string) (bool, error) {
	_, err := t.GetColumn(ctx, name)
	if runerrors.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (t *table) AddColumn(ctx context.Context, definition ColumnDefinition) (Column, error) {
	if err := t.db.execute(ctx, t.db.dialect.addColumn(t.name, definition)); err != nil {
		return nil, err
	}
	return &column{table: t, def: definition}, nil
}

func (t *table) ListIndices(ctx context.Context) ([]Index, error) {
	c, err := t.db.connection()
	if err != nil {
		return nil, err
	}
	definitions, err := t.db.dialect.listIndices(ctx, c, t.name)
	if err != nil {
		return nil, errors.WithMessagef(err, "listing indices of %s", t.name)
	}
	indices := make([]Index, len(definitions))
	for i, definition := range definitions {
		indices[i] = &index{table: t, def: definition}
	}
	return indices, nil
}

func (t *table) GetIndex(ctx context.Context, name string) (Index, error) {
	indices, err := t.ListIndices(ctx)
	if err != nil {
		return nil, err
	}
	for _, i := range indices {
		if i.Name() == name {
			return i, nil
		}
	}
	return nil, errors.WithStack(&runerrors.ErrNotFound{Type: "index", Value: name, Message: "table " + t.name})
}

func (t *table) HasIndex(ctx context.Context, name string) (bool, error) {
	_, err := t.GetIndex(ctx, name)
	if runerrors.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (t *table) CreateIndex(ctx context.Context, name string, unique bool, columns ...string) (Index, error) {
	if len(columns) == 0 {
		return nil, errors.WithStack(&runerrors.ErrInvalidArgument{Name: "columns", Value: name, Message: "an index needs at least one column"})
	}
	if err := t.db.execute(ctx, t.db.dialect.createIndex(t.name, name, unique, columns)); err != nil {
		return nil, err
	}
	return &index{table: t, def: IndexDefinition{Name: name, Unique: unique}}, nil
}

func (t *table) ListForeignKeys(ctx context.Context) ([]ForeignKey, error) {
	c, err := t.db.connection()
	if err != nil {
		return nil, err
	}
	names, err := t.db.dialect.listForeignKeys(ctx, c, t.name)
	if err != nil {
		return nil, errors.WithMessagef(err, "listing foreign keys of %s", t.name)
	}
	keys := make([]ForeignKey, len(names))
	for i, name := range names {
		keys[i] = &foreignKey{table: t, name: name}
	}
	return keys, nil
}

func (t *table) AddForeignKey(ctx context.Context, name string, columns []string, referredTable string, referredColumns []string) (ForeignKey, error) {
	if len(columns) == 0 || len(columns) != len(referredColumns) {
		return nil, errors.WithStack(&runerrors.ErrInvalidArgument{
			Name:    "columns",
			Value:   name,
			Message: "a foreign key needs the same, non-zero number of local and referred columns",
		})
	}
	statement, err := t.db.dialect.addForeignKey(t.name, name, columns, referredTable, referredColumns)
	if err != nil {
		return nil, err
	}
	if err := t.db.execute(ctx, statement); err != nil {
		return nil, err
	}
	return &foreignKey{table: t, name: name}, nil
}

func (t *table) ListConstraints(ctx context.Context) ([]Constraint, error) {
	c, err := t.db.connection()
	if err != nil {
		return nil, err
	}
	names, err := t.db.dialect.listConstraints(ctx, c, t.name)
	if err != nil {
		return nil, errors.WithMessagef(err, "listing constraints of %s", t.name)
	}
	constraints := make([]Constraint, len(names))
	for i, name := range names {
		constraints[i] = &constraint{table: t, name: name}
	}
	return constraints, nil
}

func (t *table) HasConstraint(ctx context.Context, name string) (bool, error) {
	constraints, err := t.ListConstraints(ctx)
	if err != nil {
		return false, err
	}
	for _, c := range constraints {
		if c.Name() == name {
			return true, nil
		}
	}
	return false, nil
}

func (t *table) CreateConstraint(ctx context.Context, name string, expression string) (Constraint, error) {
	statement, err := t.db.dialect.addConstraint(t.name, name, expression)
	if err != nil {
		return nil, err
	}
	if err := t.db.execute(ctx, statement); err != nil {
		return nil, err
	}
	return &constraint{table: t, name: name}, nil
}

type column struct {
	table *table
	def   ColumnDefinition
}

func (c *column) Name() string                 { return c.def.Name }
func (c *column) Type() ColumnType             { return c.def.Type }
func (c *column) Nullable() bool               { return c.def.Nullable }
func (c *column) DefaultExpression() string    { return c.def.DefaultExpression }
func (c *column) Identity() bool               { return c.def.Identity }
func (c *column) AutoIncrement() bool          { return c.def.AutoIncrement }
func (c *column) Definition() ColumnDefinition { return c.def }

func (c *column) Rename(ctx context.Context, name string) error {
	db := c.table.db
	if err := db.execute(ctx, db.dialect.renameColumn(c.table.name, c.def, name)); err != nil {
		return err
	}
	c.def.Name = name
	return nil
}

func (c *column) SetType(ctx context.Context, columnType ColumnType) error {
	to := c.def
	to.Type = columnType
	return c.alter(ctx, to)
}

func (c *column) SetNullable(ctx context.Context, nullable bool) error {
	to := c.def
	to.Nullable = nullable
	return c.alter(ctx, to)
}

func (c *column) SetDefaultExpression(ctx context.Context, expression string) error {
	to := c.def
	to.DefaultExpression = expression
	return c.alter(ctx, to)
}

func (c *column) alter(ctx context.Context, to ColumnDefinition) error {
	db := c.table.db
	statements, err := db.dialect.alterColumn(c.table.name, c.def, to)
	if err != nil {
		return err
	}
	if err := db.execute(ctx, statements...); err != nil {
		return err
	}
	c.def = to
	return nil
}

func (c *column) Drop(ctx context.Context) error {
	db := c.table.db
	return db.execute(ctx, db.dialect.dropColumn(c.table.name, c.def.Name))
}

type index struct {
	table *table
	def   IndexDefinition
}

func (i *index) Name() string  { return i.def.Name }
func (i *index) Unique() bool  { return i.def.Unique }
func (i *index) Primary() bool { return i.def.Primary }

func (i *index) Rename(ctx context.Context, name string) error {
	db := i.table.db
	statement, err := db.dialect.renameIndex(i.table.name, i.def.Name, name)
	if err != nil {
		return err
	}
	if err := db.execute(ctx, statement); err != nil {
		return err
	}
	i.def.Name = name
	return nil
}

func (i *index) Drop(ctx context.Context) error {
	db := i.table.db
	return db.execute(ctx, db.dialect.dropIndex(i.table.name, i.def.Name))
}

type foreignKey struct {
	table *table
	name  string
}

func (f *foreignKey) Name() string { return f.name }

func (f *foreignKey) Drop(ctx context.Context) error {
	db := f.table.db
	statement, err := db.dialect.dropForeignKey(f.table.name, f.name)
	if err != nil {
		return err
	}
	return db.execute(ctx, statement)
}

type constraint struct {
	table *table
	name  string
}

func (c *constraint) Name() string { return c.name }

func (c *constraint) Drop(ctx context.Context) error {
	db := c.table.db
	statement, err := db.dialect.dropConstraint(c.table.name, c.name)
	if err != nil {
		return err
	}
	return db.execute(ctx, statement)
}
