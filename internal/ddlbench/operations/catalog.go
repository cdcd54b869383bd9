package operations

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/pkg/errors"

	"github.com/armadaproject/ddlbench/internal/ddlbench/structure"
)

// DefaultTable is the benchmark table created by `ddlbench prepare`.
const DefaultTable = "users"

const (
	addressesTable = "addresses"
	addressColumn  = "address_id"
	checkExpr      = "id >= 0"
	otherDefault   = "'SOMETHING ELSE'"
)

var (
	nullableEmail = structure.ColumnDefinition{
		Name:     "email",
		Type:     structure.Varchar(255),
		Nullable: true,
	}
	nonNullableEmail = structure.ColumnDefinition{
		Name:              "email",
		Type:              structure.Varchar(255),
		DefaultExpression: "'NOT_SET'",
	}
	lifeStory = structure.ColumnDefinition{
		Name:              "life_story",
		Type:              structure.Varchar(255),
		DefaultExpression: "'Simple story'",
	}
	counter = structure.ColumnDefinition{
		Name:              "cnt",
		Type:              structure.BigInt,
		DefaultExpression: "8",
	}
	addresses = structure.TableDefinition{
		Name: addressesTable,
		Columns: []structure.ColumnDefinition{
			{Name: "id", Type: structure.BigInt, Identity: true, AutoIncrement: true},
			{Name: "address", Type: structure.Varchar(255), DefaultExpression: "''"},
		},
	}
)

// All returns the catalog for the default table.
func All() []Operation {
	return Catalog(DefaultTable)
}

// Catalog returns every operation acting on the named table, in the order they are profiled.
func Catalog(table string) []Operation {
	c := catalog{table: table}
	index := table + "_name_idx"
	renamedIndex := table + "_name_idx2"
	foreignKey := table + "_address_id_fk"
	check := table + "_id_check"
	renamedTable := table + "_v2"

	return []Operation{
		New("create-index-on-column", Spec{
			Prepare: c.onTable(func(ctx context.Context, t structure.Table) error {
				return dropIndicesIfPresent(ctx, t, index)
			}),
			Perform: c.onTable(func(ctx context.Context, t structure.Table) error {
				_, err := t.CreateIndex(ctx, index, false, "name")
				return err
			}),
			Cleanup: c.onTable(func(ctx context.Context, t structure.Table) error {
				return dropIndicesIfPresent(ctx, t, index)
			}),
		}),
		New("drop-index-on-column", Spec{
			Prepare: c.onTable(func(ctx context.Context, t structure.Table) error {
				return createIndexIfAbsent(ctx, t, index, "name")
			}),
			Perform: c.onIndex(index, func(ctx context.Context, i structure.Index) error {
				return i.Drop(ctx)
			}),
		}),
		New("rename-index", Spec{
			Prepare: c.onTable(func(ctx context.Context, t structure.Table) error {
				if err := dropIndicesIfPresent(ctx, t, renamedIndex); err != nil {
					return err
				}
				return createIndexIfAbsent(ctx, t, index, "name")
			}),
			Perform: c.onIndex(index, func(ctx context.Context, i structure.Index) error {
				return i.Rename(ctx, renamedIndex)
			}),
			Cleanup: c.onTable(func(ctx context.Context, t structure.Table) error {
				return dropIndicesIfPresent(ctx, t, index, renamedIndex)
			}),
			Requires: structure.RenameIndex,
		}),
		New("add-nullable-column", Spec{
			Prepare: c.dropColumns(nullableEmail.Name),
			Perform: c.addColumn(nullableEmail),
			Cleanup: c.dropColumns(nullableEmail.Name),
		}),
		New("add-non-nullable-column", Spec{
			Prepare: c.dropColumns(lifeStory.Name),
			Perform: c.addColumn(lifeStory),
			Cleanup: c.dropColumns(lifeStory.Name),
		}),
		New("drop-nullable-column", Spec{
			Prepare: c.recreate(nullableEmail),
			Perform: c.onColumn(nullableEmail.Name, dropColumn),
			Cleanup: c.dropColumns(nullableEmail.Name),
		}),
		New("drop-non-nullable-column", Spec{
			Prepare: c.recreate(nonNullableEmail),
			Perform: c.onColumn(nonNullableEmail.Name, dropColumn),
			Cleanup: c.dropColumns(nonNullableEmail.Name),
		}),
		New("rename-nullable-column", Spec{
			Prepare: c.recreate(nullableEmail, "email2"),
			Perform: c.onColumn(nullableEmail.Name, renameColumn("email2")),
			Cleanup: c.dropColumns(nullableEmail.Name, "email2"),
		}),
		New("rename-non-nullable-column", Spec{
			Prepare: c.recreate(nonNullableEmail, "email2"),
			Perform: c.onColumn(nonNullableEmail.Name, renameColumn("email2")),
			Cleanup: c.dropColumns(nonNullableEmail.Name, "email2"),
		}),
		New("modify-data-type-on-nullable-column", Spec{
			Prepare:  c.recreate(nullableEmail),
			Perform:  c.onColumn(nullableEmail.Name, setType(structure.Text)),
			Cleanup:  c.dropColumns(nullableEmail.Name),
			Requires: structure.AlterColumn,
		}),
		New("modify-data-type-on-non-nullable-column", Spec{
			Prepare:  c.recreate(nonNullableEmail),
			Perform:  c.onColumn(nonNullableEmail.Name, setType(structure.Text)),
			Cleanup:  c.dropColumns(nonNullableEmail.Name),
			Requires: structure.AlterColumn | structure.DefaultValueForText,
		}),
		New("modify-data-type-from-int-to-text", Spec{
			Prepare:  c.recreate(counter),
			Perform:  c.onColumn(counter.Name, setType(structure.Text)),
			Cleanup:  c.dropColumns(counter.Name),
			Requires: structure.AlterColumn | structure.DefaultValueForText,
		}),
		New("set-default-expression-on-nullable-column", Spec{
			Prepare:  c.recreate(nullableEmail),
			Perform:  c.onColumn(nullableEmail.Name, setDefault(otherDefault)),
			Cleanup:  c.dropColumns(nullableEmail.Name),
			Requires: structure.AlterColumn,
		}),
		New("set-default-expression-on-non-nullable-column", Spec{
			Prepare:  c.recreate(nonNullableEmail),
			Perform:  c.onColumn(nonNullableEmail.Name, setDefault(otherDefault)),
			Cleanup:  c.dropColumns(nonNullableEmail.Name),
			Requires: structure.AlterColumn,
		}),
		New("make-column-nullable", Spec{
			Prepare:  c.recreate(nonNullableEmail),
			Perform:  c.onColumn(nonNullableEmail.Name, setNullable(true)),
			Cleanup:  c.dropColumns(nonNullableEmail.Name),
			Requires: structure.AlterColumn,
		}),
		New("make-column-non-nullable", Spec{
			Prepare: func(ctx context.Context, db structure.Database) error {
				if err := c.recreate(nonNullableEmail)(ctx, db); err != nil {
					return err
				}
				return c.onColumn(nonNullableEmail.Name, setNullable(true))(ctx, db)
			},
			Perform:  c.onColumn(nonNullableEmail.Name, setNullable(false)),
			Cleanup:  c.dropColumns(nonNullableEmail.Name),
			Requires: structure.AlterColumn,
		}),
		New("add-non-nullable-foreign-key", Spec{
			Prepare: c.prepareAddresses(structure.ColumnDefinition{
				Name:              addressColumn,
				Type:              structure.BigInt,
				DefaultExpression: "1",
			}, foreignKey),
			Perform:  c.addForeignKey(foreignKey),
			Cleanup:  c.dropAddresses(foreignKey),
			Requires: structure.AddForeignKey,
		}),
		New("add-nullable-foreign-key", Spec{
			Prepare: c.prepareAddresses(structure.ColumnDefinition{
				Name:     addressColumn,
				Type:     structure.BigInt,
				Nullable: true,
			}, foreignKey),
			Perform:  c.addForeignKey(foreignKey),
			Cleanup:  c.dropAddresses(foreignKey),
			Requires: structure.AddForeignKey,
		}),
		New("add-check-constraint", Spec{
			Prepare: c.onTable(func(ctx context.Context, t structure.Table) error {
				return dropConstraintIfPresent(ctx, t, check)
			}),
			Perform: c.onTable(func(ctx context.Context, t structure.Table) error {
				_, err := t.CreateConstraint(ctx, check, checkExpr)
				return err
			}),
			Cleanup: c.onTable(func(ctx context.Context, t structure.Table) error {
				return dropConstraintIfPresent(ctx, t, check)
			}),
			Requires: structure.ColumnConstraints,
		}),
		New("rename-table", Spec{
			Prepare: c.restoreTableName(renamedTable),
			Perform: c.onTable(func(ctx context.Context, t structure.Table) error {
				return t.Rename(ctx, renamedTable)
			}),
			Cleanup: c.restoreTableName(renamedTable),
		}),
	}
}

type catalog struct {
	table string
}

func (c catalog) onTable(fn func(ctx context.Context, t structure.Table) error) StepFunc {
	return func(ctx context.Context, db structure.Database) error {
		t, err := db.GetTable(ctx, c.table)
		if err != nil {
			return err
		}
		return fn(ctx, t)
	}
}

func (c catalog) onColumn(name string, fn func(ctx context.Context, column structure.Column) error) StepFunc {
	return c.onTable(func(ctx context.Context, t structure.Table) error {
		column, err := t.GetColumn(ctx, name)
		if err != nil {
			return err
		}
		return fn(ctx, column)
	})
}

func (c catalog) onIndex(name string, fn func(ctx context.Context, index structure.Index) error) StepFunc {
	return c.onTable(func(ctx context.Context, t structure.Table) error {
		index, err := t.GetIndex(ctx, name)
		if err != nil {
			return err
		}
		return fn(ctx, index)
	})
}

func (c catalog) addColumn(definition structure.ColumnDefinition) StepFunc {
	return c.onTable(func(ctx context.Context, t structure.Table) error {
		_, err := t.AddColumn(ctx, definition)
		return err
	})
}

func (c catalog) dropColumns(names ...string) StepFunc {
	return c.onTable(func(ctx context.Context, t structure.Table) error {
		return dropColumnsIfPresent(ctx, t, names...)
	})
}

func (c catalog) recreate(definition structure.ColumnDefinition, leftovers ...string) StepFunc {
	return c.onTable(func(ctx context.Context, t structure.Table) error {
		_, err := recreateColumn(ctx, t, definition, leftovers...)
		return err
	})
}

func (c catalog) prepareAddresses(column structure.ColumnDefinition, foreignKey string) StepFunc {
	return func(ctx context.Context, db structure.Database) error {
		if err := c.dropAddresses(foreignKey)(ctx, db); err != nil {
			return err
		}
		if _, err := db.CreateTable(ctx, addresses); err != nil {
			return err
		}
		insert, _, err := db.Dialect().Builder().Insert(addressesTable).Cols("address").Vals(goqu.Vals{"Unknown"}).ToSQL()
		if err != nil {
			return errors.WithStack(err)
		}
		if err := db.Query(ctx, insert); err != nil {
			return errors.WithMessage(err, "seeding addresses")
		}
		return c.addColumn(column)(ctx, db)
	}
}

func (c catalog) addForeignKey(name string) StepFunc {
	return c.onTable(func(ctx context.Context, t structure.Table) error {
		_, err := t.AddForeignKey(ctx, name, []string{addressColumn}, addressesTable, []string{"id"})
		return err
	})
}

// dropAddresses removes the foreign key before its column since MySQL refuses to drop a column
// that a foreign key still uses.
func (c catalog) dropAddresses(foreignKey string) StepFunc {
	return func(ctx context.Context, db structure.Database) error {
		err := c.onTable(func(ctx context.Context, t structure.Table) error {
			if db.Supports(structure.AddForeignKey) {
				if err := dropForeignKeysIfPresent(ctx, t, foreignKey); err != nil {
					return err
				}
			}
			return dropColumnsIfPresent(ctx, t, addressColumn)
		})(ctx, db)
		if err != nil {
			return err
		}
		return dropTableIfPresent(ctx, db, addressesTable)
	}
}

func (c catalog) restoreTableName(renamed string) StepFunc {
	return func(ctx context.Context, db structure.Database) error {
		original, err := db.HasTable(ctx, c.table)
		if err != nil || original {
			return err
		}
		t, err := db.GetTable(ctx, renamed)
		if err != nil {
			return err
		}
		return t.Rename(ctx, c.table)
	}
}

func dropColumn(ctx context.Context, column structure.Column) error {
	return column.Drop(ctx)
}

func renameColumn(to string) func(context.Context, structure.Column) error {
	return func(ctx context.Context, column structure.Column) error {
		return column.Rename(ctx, to)
	}
}

func setType(columnType structure.ColumnType) func(context.Context, structure.Column) error {
	return func(ctx context.Context, column structure.Column) error {
		return column.SetType(ctx, columnType)
	}
}

func setDefault(expression string) func(context.Context, structure.Column) error {
	return func(ctx context.Context, column structure.Column) error {
		return column.SetDefaultExpression(ctx, expression)
	}
}

func setNullable(nullable bool) func(context.Context, structure.Column) error {
	return func(ctx context.Context, column structure.Column) error {
		return column.SetNullable(ctx, nullable)
	}
}
