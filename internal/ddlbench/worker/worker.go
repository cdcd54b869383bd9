package worker

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/armadaproject/ddlbench/internal/common/logging"
	"github.com/armadaproject/ddlbench/internal/common/runerrors"
	"github.com/armadaproject/ddlbench/internal/common/util"
	"github.com/armadaproject/ddlbench/internal/ddlbench/metrics"
	"github.com/armadaproject/ddlbench/internal/ddlbench/structure"
	"github.com/armadaproject/ddlbench/internal/ddlbench/timeline"
)

// How often a worker checks whether it has been started.
const startPollInterval = 10 * time.Millisecond

// RecordWriter receives one record per successful query.
type RecordWriter interface {
	Write(record timeline.Record) error
}

type Config struct {
	Role Role
	// 1-based position among workers of the same role.
	Index int
	// Defaults to QueryFor(Role, Table, Rows) when nil.
	Query QueryFunc
	Table string
	Rows  int64
	// Defaults to Dialect.NewDatabase when nil.
	NewDatabase func() (structure.Database, error)
	Dialect     structure.Dialect
	Credentials structure.Credentials
	RetryPolicy structure.RetryPolicy
	Writer      RecordWriter
	// Record offsets are measured from Origin.
	Origin time.Time
	Clock  clock.PassiveClock
	// Labels the worker's metrics.
	Operation string
	Metrics   *metrics.Metrics
	Logger    *logrus.Entry
}

// Worker repeatedly runs one query against its own connection and records how long each took.
//
// Stopping is cooperative: Stop clears a flag that the worker checks between queries, so a
// worker stops at most one query after Stop is called, and that query is still recorded.
// A worker whose context is cancelled mid-query abandons the query without recording it.
type Worker struct {
	config   Config
	logger   *logrus.Entry
	rnd      *rand.Rand
	state    atomic.Int32
	running  atomic.Bool
	stopped  atomic.Bool
	executed atomic.Int64
	failed   atomic.Int64
}

func New(config Config) *Worker {
	if config.Clock == nil {
		config.Clock = clock.RealClock{}
	}
	if config.Query == nil {
		config.Query = QueryFor(config.Role, config.Table, config.Rows)
	}
	if config.NewDatabase == nil {
		config.NewDatabase = config.Dialect.NewDatabase
	}
	logger := config.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	w := &Worker{
		config: config,
		rnd:    util.NewRand(),
	}
	w.logger = logger.WithField("worker", w.Name())
	return w
}

// Name is the worker's log file stem, e.g. READER-1.
func (w *Worker) Name() string {
	return fmt.Sprintf("%s-%d", w.config.Role, w.config.Index)
}

func (w *Worker) Role() Role {
	return w.config.Role
}

func (w *Worker) State() State {
	return State(w.state.Load())
}

// Executed is the number of queries that completed successfully.
func (w *Worker) Executed() int64 {
	return w.executed.Load()
}

// Failed is the number of queries that returned an error.
func (w *Worker) Failed() int64 {
	return w.failed.Load()
}

// Start releases a worker waiting to start. It has no effect once Stop has been called.
func (w *Worker) Start() {
	if !w.stopped.Load() {
		w.running.Store(true)
	}
}

// Stop asks the worker to finish its current query and exit.
func (w *Worker) Stop() {
	w.stopped.Store(true)
	w.running.Store(false)
}

// Run connects, waits for Start and then queries until stopped. It returns a Fatal error if
// the connection could not be opened, and nil otherwise.
func (w *Worker) Run(ctx context.Context) error {
	defer w.setState(Stopped)

	db, err := w.config.NewDatabase()
	if err != nil {
		return runerrors.Fatal(err)
	}
	if err := structure.Connect(ctx, db, w.config.Credentials, w.config.RetryPolicy); err != nil {
		logging.WithStacktrace(w.logger, err).Error("Worker could not connect to the database")
		return runerrors.Fatal(errors.WithMessagef(err, "worker %s", w.Name()))
	}
	defer util.CloseResourceWithContext(w.Name()+" connection", db)

	w.setState(AwaitingStart)
	if !w.awaitStart(ctx) {
		w.logger.Debug("Worker stopped before it was started")
		return nil
	}

	w.setState(Running)
	w.loop(ctx, db)
	w.setState(Stopping)
	return nil
}

func (w *Worker) awaitStart(ctx context.Context) bool {
	ticker := time.NewTicker(startPollInterval)
	defer ticker.Stop()
	for {
		if w.running.Load() {
			return true
		}
		if w.stopped.Load() {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

func (w *Worker) loop(ctx context.Context, db structure.Database) {
	query := w.config.Query
	role := w.config.Role.String()
	for w.running.Load() {
		start := w.config.Clock.Now()
		err := query(ctx, db, w.rnd)
		end := w.config.Clock.Now()

		if ctx.Err() != nil {
			w.logger.Debug("Worker abandoned its in-flight query")
			return
		}
		if err != nil {
			w.failed.Add(1)
			w.config.Metrics.QueryFailed(w.config.Operation, role)
			w.logger.WithError(runerrors.Recoverable(err)).Warn("Query failed")
			continue
		}

		w.executed.Add(1)
		w.config.Metrics.ObserveQuery(w.config.Operation, role, end.Sub(start))
		if err := w.config.Writer.Write(timeline.NewRecord(role, w.config.Origin, start, end)); err != nil {
			if errors.Is(err, os.ErrClosed) {
				w.logger.Debug("Log closed, worker exiting")
				return
			}
			w.logger.WithError(err).Warn("Could not write latency record")
		}
	}
}

func (w *Worker) setState(s State) {
	w.state.Store(int32(s))
}
