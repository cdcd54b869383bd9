// Package session measures a single operation: it starts a set of workers against the benchmark
// table, performs the operation while they run and records every query's latency to disk.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/armadaproject/ddlbench/internal/common/logging"
	"github.com/armadaproject/ddlbench/internal/common/runerrors"
	"github.com/armadaproject/ddlbench/internal/common/task"
	"github.com/armadaproject/ddlbench/internal/common/util"
	"github.com/armadaproject/ddlbench/internal/ddlbench/configuration"
	"github.com/armadaproject/ddlbench/internal/ddlbench/metrics"
	"github.com/armadaproject/ddlbench/internal/ddlbench/operations"
	"github.com/armadaproject/ddlbench/internal/ddlbench/structure"
	"github.com/armadaproject/ddlbench/internal/ddlbench/timeline"
	"github.com/armadaproject/ddlbench/internal/ddlbench/worker"
)

const operationLogName = "OPERATION.log"

type Config struct {
	Dialect     structure.Dialect
	Credentials structure.Credentials
	RetryPolicy structure.RetryPolicy
	Workers     configuration.ProfilerConfig

	StartupTimeout     time.Duration
	TeardownTimeout    time.Duration
	TerminationTimeout time.Duration
	// Zero disables progress logging.
	ProgressInterval time.Duration

	TableName string
	Rows      int64
	OutputDir string

	Clock   clock.Clock
	Metrics *metrics.Metrics
	Logger  *logrus.Entry

	// Overrides Dialect.NewDatabase for the session and its workers.
	NewDatabase func() (structure.Database, error)
	// Overrides worker.QueryFor.
	QueryFor func(role worker.Role) worker.QueryFunc
}

// NewConfig derives a session configuration from the run configuration.
func NewConfig(run configuration.RunConfig, m *metrics.Metrics) Config {
	return Config{
		Dialect:            run.Database.Type,
		Credentials:        run.Database.Credentials,
		RetryPolicy:        run.Database.RetryPolicy(),
		Workers:            run.Workers,
		StartupTimeout:     run.StartupTimeout,
		TeardownTimeout:    run.TeardownTimeout,
		TerminationTimeout: run.TerminationTimeout,
		ProgressInterval:   run.ProgressInterval,
		TableName:          run.TableName,
		Rows:               run.Rows,
		OutputDir:          run.OutputDir,
		Metrics:            m,
	}
}

// Result describes a finished session.
type Result struct {
	Operation string
	// Directory holding the latency logs. Empty when skipped.
	Folder  string
	Skipped bool
	// Set when the run was cancelled before the operation was performed. No Operation record is
	// written in that case.
	Cancelled bool
	// How long the operation took to perform.
	Duration time.Duration
	// Failures that did not stop the run, such as a failed Perform or Cleanup.
	Recoverable error
}

// Session runs one operation once. Sessions are not reusable.
type Session struct {
	config    Config
	operation operations.Operation
	logger    *logrus.Entry
	state     atomic.Int32
	started   atomic.Bool
}

func New(config Config, operation operations.Operation) *Session {
	if config.Clock == nil {
		config.Clock = clock.RealClock{}
	}
	if config.NewDatabase == nil {
		config.NewDatabase = config.Dialect.NewDatabase
	}
	if config.TerminationTimeout <= 0 {
		config.TerminationTimeout = time.Minute
	}
	logger := config.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Session{
		config:    config,
		operation: operation,
		logger: logger.WithFields(logrus.Fields{
			"operation": operation.Name(),
			"run":       util.NewRunID(config.Clock.Now()),
		}),
	}
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// Folder is where the session writes its logs.
func (s *Session) Folder() string {
	return filepath.Join(s.config.OutputDir, s.config.Dialect.String(), s.operation.Name())
}

// Start runs the session to completion. The returned error is Fatal and means the operation
// could not be measured at all; anything that went wrong once workers were running is reported
// in Result.Recoverable instead.
//
// Once workers have been started they are always stopped, the logs closed, the operation
// cleaned up and the connection closed, even if the run panics. Cancelling ctx cuts the
// warm-up and wind-down periods short.
func (s *Session) Start(ctx context.Context) (result Result, err error) {
	if s.started.Swap(true) {
		return result, runerrors.Fatal(errors.New("session has already been started"))
	}
	name := s.operation.Name()
	result.Operation = name

	db, err := s.config.NewDatabase()
	if err != nil {
		return result, runerrors.Fatal(err)
	}
	if err := structure.Connect(ctx, db, s.config.Credentials, s.config.RetryPolicy); err != nil {
		return result, runerrors.Fatal(errors.WithMessage(err, "connecting to the database"))
	}
	s.transition(Connected)

	if !s.operation.IsSupportedBy(db) {
		s.logger.Infof("Skipping %s, it is not supported by %s", name, db.Dialect())
		util.CloseResourceWithContext("database", db)
		result.Skipped = true
		return result, nil
	}

	if err := s.operation.Prepare(ctx, db); err != nil {
		s.config.Metrics.OperationFailed(name, "prepare")
		util.CloseResourceWithContext("database", db)
		return result, runerrors.Fatal(errors.WithMessagef(err, "preparing %s", name))
	}
	s.transition(Prepared)

	folder := s.Folder()
	logs, err := openLogs(folder, s.slots())
	if err != nil {
		if cleanupErr := s.cleanup(db); cleanupErr != nil {
			s.logger.WithError(cleanupErr).Warn("Cleanup failed")
		}
		return result, runerrors.Fatal(err)
	}
	result.Folder = folder

	var recoverable *multierror.Error
	var workers []*worker.Worker
	var futures []*task.Future
	pool := task.NewPool(s.config.Workers.TotalWorkers() + 1)
	progress := task.NewBackgroundTaskManager(s.config.Metrics.TaskLatency())
	defer func() {
		recoverable = multierror.Append(recoverable, s.teardown(pool, progress, workers, futures, logs, db))
		result.Recoverable = recoverable.ErrorOrNil()
		s.transition(TornDown)
	}()

	start := s.config.Clock.Now()
	for _, slot := range logs.slots {
		w := worker.New(worker.Config{
			Role:        slot.role,
			Index:       slot.index,
			Query:       s.query(slot.role),
			Table:       s.config.TableName,
			Rows:        s.config.Rows,
			NewDatabase: s.config.NewDatabase,
			Dialect:     s.config.Dialect,
			Credentials: s.config.Credentials,
			RetryPolicy: s.config.RetryPolicy,
			Writer:      slot.writer,
			Origin:      start,
			Clock:       s.config.Clock,
			Operation:   name,
			Metrics:     s.config.Metrics,
			Logger:      s.logger,
		})
		future, err := pool.Submit(w.Run)
		if err != nil {
			return result, runerrors.Fatal(err)
		}
		workers = append(workers, w)
		futures = append(futures, future)
	}
	for _, w := range workers {
		w.Start()
	}
	s.transition(WorkersSpawned)
	if s.config.ProgressInterval > 0 {
		progress.Register(func() { logProgress(s.logger, workers, pool.Running()) }, s.config.ProgressInterval, "progress")
	}

	s.transition(WarmingUp)
	s.sleep(ctx, s.config.StartupTimeout)

	if err := ctx.Err(); err != nil {
		s.logger.Warnf("Cancelled before performing %s", name)
		result.Cancelled = true
		recoverable = multierror.Append(recoverable, runerrors.Recoverable(errors.WithMessagef(err, "cancelled before performing %s", name)))
		return result, nil
	}

	s.transition(OperationRunning)
	s.logger.Infof("Performing %s", name)
	startOp := s.config.Clock.Now()
	performErr := s.perform(ctx, pool, db)
	endOp := s.config.Clock.Now()
	result.Duration = endOp.Sub(startOp)
	if performErr != nil {
		s.config.Metrics.OperationFailed(name, "perform")
		logging.WithStacktrace(s.logger, performErr).Errorf("Performing %s failed", name)
		recoverable = multierror.Append(recoverable, runerrors.Recoverable(performErr))
	} else {
		s.config.Metrics.ObserveOperation(name, result.Duration)
		s.logger.Infof("Performed %s in %s", name, result.Duration)
	}
	if err := logs.operation.Write(timeline.NewRecord(timeline.OperationType, start, startOp, endOp)); err != nil {
		recoverable = multierror.Append(recoverable, runerrors.Recoverable(err))
	}

	s.transition(WindingDown)
	s.sleep(ctx, s.config.TeardownTimeout)
	return result, nil
}

// perform runs the operation on the pool and waits for it. The wait ignores cancellation since
// the operation holds the session's connection, which cleanup needs next; cancelling ctx
// interrupts the statement instead.
func (s *Session) perform(ctx context.Context, pool *task.Pool, db structure.Database) error {
	future, err := pool.Submit(func(context.Context) error {
		return s.operation.Perform(ctx, db)
	})
	if err != nil {
		return err
	}
	return future.Wait(context.Background())
}

func (s *Session) teardown(
	pool *task.Pool,
	progress *task.BackgroundTaskManager,
	workers []*worker.Worker,
	futures []*task.Future,
	logs *logSet,
	db structure.Database,
) error {
	var result *multierror.Error

	for _, w := range workers {
		w.Stop()
	}
	pool.Shutdown()
	if !pool.AwaitTermination(s.config.TerminationTimeout) {
		dropped := pool.ShutdownNow()
		for _, w := range workers {
			if w.State() != worker.Stopped {
				s.logger.WithField("worker", w.Name()).Warnf("Abandoned worker still %s after %s", w.State(), s.config.TerminationTimeout)
			}
		}
		result = multierror.Append(result, runerrors.Recoverable(errors.Errorf(
			"workers did not stop within %s, %d never started", s.config.TerminationTimeout, dropped)))
	}
	if progress.StopAll(time.Second) {
		s.logger.Warn("Progress logging did not stop in time")
	}
	for _, f := range futures {
		select {
		case <-f.Done():
			if err := f.Err(); err != nil {
				result = multierror.Append(result, err)
			}
		default:
		}
	}
	logProgress(s.logger, workers, pool.Running())

	if err := logs.Close(); err != nil {
		result = multierror.Append(result, runerrors.Recoverable(err))
	}
	if err := s.cleanup(db); err != nil {
		logging.WithStacktrace(s.logger, err).Errorf("Cleaning up %s failed", s.operation.Name())
		result = multierror.Append(result, runerrors.Recoverable(err))
	}
	return result.ErrorOrNil()
}

// cleanup runs the operation's cleanup and closes db, whatever the cleanup does. It gets its own
// context so that a cancelled run still leaves the schema as it found it.
func (s *Session) cleanup(db structure.Database) error {
	defer util.CloseResourceWithContext("database", db)
	ctx, cancel := context.WithTimeout(context.Background(), s.config.TerminationTimeout)
	defer cancel()
	if err := s.operation.Cleanup(ctx, db); err != nil {
		s.config.Metrics.OperationFailed(s.operation.Name(), "cleanup")
		return errors.WithMessagef(err, "cleaning up %s", s.operation.Name())
	}
	return nil
}

func (s *Session) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-s.config.Clock.After(d):
	case <-ctx.Done():
		s.logger.Debugf("Sleep cut short while %s", s.State())
	}
}

func (s *Session) query(role worker.Role) worker.QueryFunc {
	if s.config.QueryFor == nil {
		return nil
	}
	return s.config.QueryFor(role)
}

func (s *Session) slots() []slot {
	counts := map[worker.Role]int{
		worker.Select: s.config.Workers.ReadWorkers,
		worker.Insert: s.config.Workers.InsertWorkers,
		worker.Update: s.config.Workers.UpdateWorkers,
		worker.Delete: s.config.Workers.DeleteWorkers,
	}
	var slots []slot
	for _, role := range worker.Roles() {
		for i := 1; i <= counts[role]; i++ {
			slots = append(slots, slot{role: role, index: i})
		}
	}
	return slots
}

func (s *Session) transition(to State) {
	from := State(s.state.Swap(int32(to)))
	s.logger.Debugf("Session %s -> %s", from, to)
}

type slot struct {
	role   worker.Role
	index  int
	writer *timeline.Writer
}

func (s slot) fileName() string {
	return fmt.Sprintf("%s-%d.log", s.role, s.index)
}

type logSet struct {
	operation *timeline.Writer
	slots     []slot
}

// openLogs replaces the folder with a fresh one holding the operation log and one log per slot.
func openLogs(folder string, slots []slot) (*logSet, error) {
	if err := os.RemoveAll(folder); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, errors.WithStack(err)
	}
	logs := &logSet{}
	var err error
	if logs.operation, err = timeline.Create(filepath.Join(folder, operationLogName)); err != nil {
		return nil, err
	}
	for _, s := range slots {
		if s.writer, err = timeline.Create(filepath.Join(folder, s.fileName())); err != nil {
			_ = logs.Close()
			return nil, err
		}
		logs.slots = append(logs.slots, s)
	}
	return logs, nil
}

func (l *logSet) Close() error {
	var result *multierror.Error
	if l.operation != nil {
		if err := l.operation.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for _, s := range l.slots {
		if err := s.writer.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
