package operations

import (
	"context"

	"github.com/armadaproject/ddlbench/internal/ddlbench/structure"
)

func dropColumnsIfPresent(ctx context.Context, t structure.Table, names ...string) error {
	for _, name := range names {
		ok, err := t.HasColumn(ctx, name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		column, err := t.GetColumn(ctx, name)
		if err != nil {
			return err
		}
		if err := column.Drop(ctx); err != nil && !structure.IsUndefinedObject(err) {
			return err
		}
	}
	return nil
}

// recreateColumn drops any leftovers of the named columns and adds definition afresh.
func recreateColumn(ctx context.Context, t structure.Table, definition structure.ColumnDefinition, leftovers ...string) (structure.Column, error) {
	if err := dropColumnsIfPresent(ctx, t, append([]string{definition.Name}, leftovers...)...); err != nil {
		return nil, err
	}
	return t.AddColumn(ctx, definition)
}

func dropIndicesIfPresent(ctx context.Context, t structure.Table, names ...string) error {
	for _, name := range names {
		index, err := t.GetIndex(ctx, name)
		if structure.IsUndefinedObject(err) {
			continue
		}
		if err != nil {
			return err
		}
		if err := index.Drop(ctx); err != nil && !structure.IsUndefinedObject(err) {
			return err
		}
	}
	return nil
}

func createIndexIfAbsent(ctx context.Context, t structure.Table, name string, columns ...string) error {
	ok, err := t.HasIndex(ctx, name)
	if err != nil || ok {
		return err
	}
	_, err = t.CreateIndex(ctx, name, false, columns...)
	return err
}

func dropForeignKeysIfPresent(ctx context.Context, t structure.Table, name string) error {
	keys, err := t.ListForeignKeys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if key.Name() != name {
			continue
		}
		if err := key.Drop(ctx); err != nil && !structure.IsUndefinedObject(err) {
			return err
		}
	}
	return nil
}

func dropConstraintIfPresent(ctx context.Context, t structure.Table, name string) error {
	constraints, err := t.ListConstraints(ctx)
	if err != nil {
		return err
	}
	for _, c := range constraints {
		if c.Name() != name {
			continue
		}
		if err := c.Drop(ctx); err != nil && !structure.IsUndefinedObject(err) {
			return err
		}
	}
	return nil
}

func dropTableIfPresent(ctx context.Context, db structure.Database, name string) error {
	t, err := db.GetTable(ctx, name)
	if structure.IsUndefinedObject(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return t.Drop(ctx)
}
