package worker

import (
	"context"
	"math/rand"

	"github.com/doug-martin/goqu/v9"
	"github.com/pkg/errors"

	"github.com/armadaproject/ddlbench/internal/ddlbench/structure"
)

// QueryFunc executes one query for a worker. rnd is owned by the calling worker.
type QueryFunc func(ctx context.Context, db structure.Database, rnd *rand.Rand) error

type sqlBuilder interface {
	ToSQL() (string, []interface{}, error)
}

// QueryFor returns the query a worker of the given role runs against table, rendered for the
// dialect of the database it is given. Row ids are drawn uniformly from [0, rows).
func QueryFor(role Role, table string, rows int64) QueryFunc {
	if rows <= 0 {
		rows = 1
	}
	var build func(b goqu.DialectWrapper, rnd *rand.Rand) sqlBuilder
	switch role {
	case Insert:
		build = func(b goqu.DialectWrapper, rnd *rand.Rand) sqlBuilder {
			return b.Insert(table).Cols("name").Vals(goqu.Vals{RandomName(rnd)})
		}
	case Update:
		build = func(b goqu.DialectWrapper, rnd *rand.Rand) sqlBuilder {
			return b.Update(table).Set(goqu.Record{"name": "Dilbert"}).Where(goqu.C("id").Eq(rnd.Int63n(rows)))
		}
	case Delete:
		build = func(b goqu.DialectWrapper, rnd *rand.Rand) sqlBuilder {
			return b.Delete(table).Where(goqu.C("id").Eq(rnd.Int63n(rows)))
		}
	default:
		build = func(b goqu.DialectWrapper, rnd *rand.Rand) sqlBuilder {
			return b.From(table).Where(goqu.C("id").Eq(rnd.Int63n(rows)))
		}
	}
	return func(ctx context.Context, db structure.Database, rnd *rand.Rand) error {
		sql, _, err := build(db.Dialect().Builder(), rnd).ToSQL()
		if err != nil {
			return errors.WithStack(err)
		}
		return db.Query(ctx, sql)
	}
}
