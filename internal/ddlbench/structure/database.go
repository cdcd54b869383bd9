package structure

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/ddlbench/internal/common/runerrors"
)

type database struct {
	dialect dialect
	conn    conn
}

func (d *database) Connect(ctx context.Context, credentials Credentials) error {
	if d.conn != nil {
		return errors.Errorf("%s database is already connected", d.dialect.name())
	}
	c, err := d.dialect.open(ctx, credentials)
	if err != nil {
		return errors.WithMessagef(err, "connecting to %s", d.dialect.name())
	}
	d.conn = c
	return nil
}

func (d *database) Close(ctx context.Context) error {
	if d.conn == nil {
		return nil
	}
	c := d.conn
	d.conn = nil
	return errors.WithStack(c.close(ctx))
}

func (d *database) Dialect() Dialect {
	return d.dialect.name()
}

func (d *database) Supports(feature Feature) bool {
	return d.dialect.features().Has(feature)
}

func (d *database) Query(ctx context.Context, sql string) error {
	c, err := d.connection()
	if err != nil {
		return err
	}
	return c.exec(ctx, sql)
}

// execute runs DDL statements in order, stopping at the first failure.
func (d *database) execute(ctx context.Context, statements ...string) error {
	c, err := d.connection()
	if err != nil {
		return err
	}
	for _, statement := range statements {
		log.WithField("dialect", d.dialect.name()).Debugf("Executing %s", statement)
		if err := c.exec(ctx, statement); err != nil {
			return errors.Wrapf(err, "executing %q", statement)
		}
	}
	return nil
}

func (d *database) connection() (conn, error) {
	if d.conn == nil {
		return nil, errors.Errorf("%s database is not connected", d.dialect.name())
	}
	return d.conn, nil
}

func (d *database) CreateTable(ctx context.Context, definition TableDefinition) (Table, error) {
	if err := d.execute(ctx, d.dialect.createTable(definition)); err != nil {
		return nil, err
	}
	return &table{db: d, name: definition.Name}, nil
}

func (d *database) ListTables(ctx context.Context) ([]Table, error) {
	c, err := d.connection()
	if err != nil {
		return nil, err
	}
	names, err := d.dialect.listTables(ctx, c)
	if err != nil {
		return nil, errors.WithMessage(err, "listing tables")
	}
	tables := make([]Table, len(names))
	for i, name := range names {
		tables[i] = &table{db: d, name: name}
	}
	return tables, nil
}

func (d *database) GetTable(ctx context.Context, name string) (Table, error) {
	ok, err := d.HasTable(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.WithStack(&runerrors.ErrNotFound{Type: "table", Value: name})
	}
	return &table{db: d, name: name}, nil
}

func (d *database) HasTable(ctx context.Context, name string) (bool, error) {
	c, err := d.connection()
	if err != nil {
		return false, err
	}
	names, err := d.dialect.listTables(ctx, c)
	if err != nil {
		return false, errors.WithMessage(err, "listing tables")
	}
	return slices.Contains(names, name), nil
}

func (d *database) DropContents(ctx context.Context) error {
	c, err := d.connection()
	if err != nil {
		return err
	}
	return errors.WithMessage(d.dialect.dropContents(ctx, c), "dropping database contents")
}
