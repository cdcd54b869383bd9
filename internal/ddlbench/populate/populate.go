// Package populate creates the benchmark table and fills it with rows for workers to query.
package populate

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/armadaproject/ddlbench/internal/common/task"
	"github.com/armadaproject/ddlbench/internal/common/util"
	"github.com/armadaproject/ddlbench/internal/ddlbench/structure"
	"github.com/armadaproject/ddlbench/internal/ddlbench/worker"
)

const (
	DefaultBatchSize = 10_000
	DefaultWorkers   = 5
)

type Config struct {
	Dialect     structure.Dialect
	Credentials structure.Credentials
	RetryPolicy structure.RetryPolicy
	Table       string
	Rows        int64
	// Rows per INSERT statement.
	BatchSize int
	// Concurrent connections used to insert.
	Workers int
	// Zero disables progress logging.
	ProgressInterval time.Duration
	Logger           *log.Entry
}

// Definition is the benchmark table: an auto-incrementing id and a name.
func Definition(table string) structure.TableDefinition {
	return structure.TableDefinition{
		Name: table,
		Columns: []structure.ColumnDefinition{
			{Name: "id", Type: structure.BigInt, Identity: true, AutoIncrement: true},
			{Name: "name", Type: structure.Varchar(255)},
		},
	}
}

// Prepare creates the table and fills it.
func Prepare(ctx context.Context, config Config) error {
	config = withDefaults(config)
	db, err := connect(ctx, config)
	if err != nil {
		return err
	}
	config.Logger.Infof("Creating table %s", config.Table)
	_, err = db.CreateTable(ctx, Definition(config.Table))
	util.CloseResourceWithContext("database", db)
	if err != nil {
		return errors.WithMessagef(err, "creating %s", config.Table)
	}
	return Fill(ctx, config)
}

// Fill inserts config.Rows random names into an existing table. Each worker claims a batch at a
// time until every row has been claimed.
func Fill(ctx context.Context, config Config) error {
	config = withDefaults(config)
	var claimed, inserted atomic.Int64

	progress := task.NewBackgroundTaskManager(nil)
	if config.ProgressInterval > 0 {
		reporter := newReporter(config, &inserted)
		progress.Register(reporter.report, config.ProgressInterval, "populate-progress")
	}
	defer progress.StopAll(time.Second)

	config.Logger.Infof("Filling %s with %d rows using %d workers", config.Table, config.Rows, config.Workers)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < config.Workers; i++ {
		g.Go(func() error {
			db, err := connect(ctx, config)
			if err != nil {
				return err
			}
			defer util.CloseResourceWithContext("database", db)
			rnd := util.NewRand()
			batch := int64(config.BatchSize)
			for {
				from := claimed.Add(batch) - batch
				if from >= config.Rows {
					return nil
				}
				size := batch
				if remaining := config.Rows - from; remaining < size {
					size = remaining
				}
				names := make([]string, size)
				for j := range names {
					names[j] = worker.RandomName(rnd)
				}
				insert, err := insertStatement(config.Dialect, config.Table, names)
				if err != nil {
					return err
				}
				if err := db.Query(ctx, insert); err != nil {
					return errors.WithMessagef(err, "inserting into %s", config.Table)
				}
				inserted.Add(size)
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	config.Logger.Infof("Table %s filled", config.Table)
	return nil
}

// Drop removes every table from the database.
func Drop(ctx context.Context, config Config) error {
	config = withDefaults(config)
	db, err := connect(ctx, config)
	if err != nil {
		return err
	}
	defer util.CloseResourceWithContext("database", db)
	config.Logger.Warnf("Dropping everything in the %s database", config.Dialect)
	return db.DropContents(ctx)
}

func insertStatement(dialect structure.Dialect, table string, names []string) (string, error) {
	values := make([][]interface{}, len(names))
	for i, name := range names {
		values[i] = goqu.Vals{name}
	}
	sql, _, err := dialect.Builder().Insert(table).Cols("name").Vals(values...).ToSQL()
	return sql, errors.WithStack(err)
}

func connect(ctx context.Context, config Config) (structure.Database, error) {
	db, err := config.Dialect.NewDatabase()
	if err != nil {
		return nil, err
	}
	if err := structure.Connect(ctx, db, config.Credentials, config.RetryPolicy); err != nil {
		return nil, err
	}
	return db, nil
}

func withDefaults(config Config) Config {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.Logger == nil {
		config.Logger = log.NewEntry(log.StandardLogger())
	}
	return config
}

type reporter struct {
	config   Config
	inserted *atomic.Int64
	last     int64
	lastTime time.Time
}

func newReporter(config Config, inserted *atomic.Int64) *reporter {
	return &reporter{config: config, inserted: inserted, lastTime: time.Now()}
}

func (r *reporter) report() {
	now := time.Now()
	current := r.inserted.Load()
	elapsed := now.Sub(r.lastTime).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(current-r.last) / elapsed
	}
	r.config.Logger.Infof("%3.0f%% - %.0f inserts/sec", float64(current)/float64(r.config.Rows)*100, rate)
	r.last = current
	r.lastTime = now
}
