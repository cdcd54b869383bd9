package session

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/ddlbench/internal/common/logging"
	"github.com/armadaproject/ddlbench/internal/common/runerrors"
	"github.com/armadaproject/ddlbench/internal/ddlbench/configuration"
	"github.com/armadaproject/ddlbench/internal/ddlbench/metrics"
	"github.com/armadaproject/ddlbench/internal/ddlbench/operations"
	"github.com/armadaproject/ddlbench/internal/ddlbench/populate"
	"github.com/armadaproject/ddlbench/internal/ddlbench/structure"
	"github.com/armadaproject/ddlbench/internal/ddlbench/timeline"
	"github.com/armadaproject/ddlbench/internal/ddlbench/worker"
)

func sleepyQuery(worker.Role) worker.QueryFunc {
	return func(ctx context.Context, _ structure.Database, _ *rand.Rand) error {
		select {
		case <-time.After(time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// testConfig creates a SQLite database holding the benchmark table and returns a configuration
// running one worker of each role against it.
func testConfig(t *testing.T) Config {
	credentials := structure.TestSQLiteCredentials(t)
	ctx := context.Background()
	db, err := structure.SQLite.NewDatabase()
	require.NoError(t, err)
	require.NoError(t, db.Connect(ctx, credentials))
	_, err = db.CreateTable(ctx, populate.Definition(operations.DefaultTable))
	require.NoError(t, err)
	require.NoError(t, db.Close(ctx))

	return Config{
		Dialect:            structure.SQLite,
		Credentials:        credentials,
		RetryPolicy:        structure.RetryPolicy{Attempts: 1},
		Workers:            configuration.ProfilerConfig{ReadWorkers: 2, InsertWorkers: 1, UpdateWorkers: 1, DeleteWorkers: 1},
		StartupTimeout:     50 * time.Millisecond,
		TeardownTimeout:    50 * time.Millisecond,
		TerminationTimeout: 5 * time.Second,
		ProgressInterval:   20 * time.Millisecond,
		TableName:          operations.DefaultTable,
		Rows:               100,
		OutputDir:          t.TempDir(),
		Metrics:            metrics.New(),
		Logger:             logging.NullEntry(),
		QueryFor:           sleepyQuery,
	}
}

func operation(t *testing.T, name string) operations.Operation {
	ops, err := operations.Filter(operations.All(), []string{name})
	require.NoError(t, err)
	return ops[0]
}

func readLog(t *testing.T, folder, name string) []timeline.Record {
	records, err := timeline.ReadFile(filepath.Join(folder, name))
	require.NoError(t, err)
	return records
}

func TestSession_RecordsLatencies(t *testing.T) {
	config := testConfig(t)
	config.QueryFor = nil
	s := New(config, operation(t, "add-nullable-column"))

	result, err := s.Start(context.Background())
	require.NoError(t, err)
	assert.NoError(t, result.Recoverable)
	assert.False(t, result.Skipped)
	assert.Equal(t, TornDown, s.State())
	assert.Equal(t, filepath.Join(config.OutputDir, "sqlite", "add-nullable-column"), result.Folder)

	ops := readLog(t, result.Folder, "OPERATION.log")
	require.Len(t, ops, 1)
	assert.Equal(t, timeline.OperationType, ops[0].Type)
	assert.GreaterOrEqual(t, ops[0].Start, int64(50))
	assert.InDelta(t, result.Duration.Milliseconds(), ops[0].Duration, 1)

	for _, name := range []string{"READER-1", "READER-2", "INSERT-1", "UPDATE-1", "DELETE-1"} {
		assert.FileExists(t, filepath.Join(result.Folder, name+".log"))
	}
	readers := readLog(t, result.Folder, "READER-1.log")
	require.NotEmpty(t, readers)
	for _, r := range readers {
		assert.Equal(t, "READER", r.Type)
		assert.Equal(t, r.End-r.Start, r.Duration)
	}

	assertCleanedUp(t, config, "email")
}

func TestSession_WorkerLinesWithinRun(t *testing.T) {
	config := testConfig(t)
	config.QueryFor = nil
	config.Workers = configuration.ProfilerConfig{ReadWorkers: 1, InsertWorkers: 1, UpdateWorkers: 1, DeleteWorkers: 1}
	s := New(config, operation(t, "add-nullable-column"))

	result, err := s.Start(context.Background())
	require.NoError(t, err)
	require.NoError(t, result.Recoverable)

	ops := readLog(t, result.Folder, "OPERATION.log")
	require.Len(t, ops, 1)
	assert.GreaterOrEqual(t, ops[0].Start, int64(50))
	assert.Equal(t, ops[0].End-ops[0].Start, ops[0].Duration)

	// Workers stop after the teardown window; allow for scheduling delay on slow machines.
	const slackMs = 500
	limit := ops[0].End + config.TeardownTimeout.Milliseconds() + slackMs
	for _, role := range worker.Roles() {
		name := role.String() + "-1.log"
		records := readLog(t, result.Folder, name)
		require.NotEmpty(t, records, name)
		for _, r := range records {
			assert.Equal(t, role.String(), r.Type, name)
			assert.GreaterOrEqual(t, r.Start, int64(0), name)
			assert.LessOrEqual(t, r.Start, limit, name)
			assert.Equal(t, r.End-r.Start, r.Duration, name)
		}
	}
}

func assertCleanedUp(t *testing.T, config Config, column string) {
	ctx := context.Background()
	db, err := structure.SQLite.NewDatabase()
	require.NoError(t, err)
	require.NoError(t, db.Connect(ctx, config.Credentials))
	defer db.Close(ctx)
	users, err := db.GetTable(ctx, config.TableName)
	require.NoError(t, err)
	ok, err := users.HasColumn(ctx, column)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSession_SkipsUnsupportedOperation(t *testing.T) {
	config := testConfig(t)
	s := New(config, operation(t, "add-nullable-foreign-key"))

	result, err := s.Start(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Empty(t, result.Folder)
	assert.NoDirExists(t, s.Folder())
}

func TestSession_PrepareFailureIsFatal(t *testing.T) {
	config := testConfig(t)
	s := New(config, operations.New("broken", operations.Spec{
		Prepare: func(context.Context, structure.Database) error { return errors.New("no") },
		Perform: func(context.Context, structure.Database) error { return nil },
	}))

	_, err := s.Start(context.Background())
	assert.True(t, runerrors.IsFatal(err))
	assert.NoDirExists(t, s.Folder())
	assert.Equal(t, Connected, s.State())
}

func TestSession_PerformFailureIsRecoverable(t *testing.T) {
	config := testConfig(t)
	cleanedUp := false
	s := New(config, operations.New("failing", operations.Spec{
		Perform: func(context.Context, structure.Database) error { return errors.New("boom") },
		Cleanup: func(context.Context, structure.Database) error {
			cleanedUp = true
			return nil
		},
	}))

	result, err := s.Start(context.Background())
	require.NoError(t, err)
	require.Error(t, result.Recoverable)
	assert.True(t, runerrors.IsRecoverable(result.Recoverable))
	assert.Contains(t, result.Recoverable.Error(), "boom")
	assert.True(t, cleanedUp)
	assert.Len(t, readLog(t, result.Folder, "OPERATION.log"), 1)
}

func TestSession_PanickingOperationIsCleanedUp(t *testing.T) {
	config := testConfig(t)
	cleanedUp := false
	s := New(config, operations.New("panicking", operations.Spec{
		Perform: func(context.Context, structure.Database) error { panic("oh no") },
		Cleanup: func(context.Context, structure.Database) error {
			cleanedUp = true
			return nil
		},
	}))

	result, err := s.Start(context.Background())
	require.NoError(t, err)
	require.Error(t, result.Recoverable)
	assert.Contains(t, result.Recoverable.Error(), "task panicked: oh no")
	assert.True(t, cleanedUp)
}

func TestSession_CleanupFailureIsRecoverable(t *testing.T) {
	config := testConfig(t)
	s := New(config, operations.New("messy", operations.Spec{
		Perform: func(context.Context, structure.Database) error { return nil },
		Cleanup: func(context.Context, structure.Database) error { return errors.New("left a mess") },
	}))

	result, err := s.Start(context.Background())
	require.NoError(t, err)
	require.Error(t, result.Recoverable)
	assert.Contains(t, result.Recoverable.Error(), "left a mess")
	assert.Equal(t, TornDown, s.State())
}

func TestSession_CancelledDuringWarmUp(t *testing.T) {
	config := testConfig(t)
	config.StartupTimeout = time.Hour
	config.TeardownTimeout = time.Hour
	performed := false
	s := New(config, operations.New("quick", operations.Spec{
		Perform: func(context.Context, structure.Database) error {
			performed = true
			return nil
		},
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	started := time.Now()
	result, err := s.Start(ctx)
	require.NoError(t, err)
	assert.Less(t, time.Since(started), 10*time.Second)
	assert.False(t, performed)
	assert.True(t, result.Cancelled)
	require.Error(t, result.Recoverable)
	assert.Contains(t, result.Recoverable.Error(), "cancelled before performing quick")
	assert.Zero(t, result.Duration)
	assert.Equal(t, TornDown, s.State())
	assert.Empty(t, readLog(t, result.Folder, "OPERATION.log"))
}

func TestSession_CancelledDuringTeardownWindow(t *testing.T) {
	config := testConfig(t)
	config.StartupTimeout = 0
	config.TeardownTimeout = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New(config, operations.New("quick", operations.Spec{
		Perform: func(context.Context, structure.Database) error {
			cancel()
			return nil
		},
	}))

	started := time.Now()
	result, err := s.Start(ctx)
	require.NoError(t, err)
	assert.Less(t, time.Since(started), 10*time.Second)
	assert.False(t, result.Cancelled)
	assert.Equal(t, TornDown, s.State())
	assert.Len(t, readLog(t, result.Folder, "OPERATION.log"), 1)
}

func TestSession_ReplacesPreviousLogs(t *testing.T) {
	config := testConfig(t)
	op := operations.New("noop", operations.Spec{
		Perform: func(context.Context, structure.Database) error { return nil },
	})
	folder := New(config, op).Folder()
	require.NoError(t, os.MkdirAll(folder, 0o755))
	stale := filepath.Join(folder, "READER-9.log")
	require.NoError(t, os.WriteFile(stale, []byte("READER\t1\t2\t1\n"), 0o644))

	_, err := New(config, op).Start(context.Background())
	require.NoError(t, err)
	assert.NoFileExists(t, stale)
}

func TestSession_StartsOnce(t *testing.T) {
	config := testConfig(t)
	s := New(config, operations.New("noop", operations.Spec{
		Perform: func(context.Context, structure.Database) error { return nil },
	}))
	_, err := s.Start(context.Background())
	require.NoError(t, err)
	_, err = s.Start(context.Background())
	assert.True(t, runerrors.IsFatal(err))
}

func TestSession_NoWorkers(t *testing.T) {
	config := testConfig(t)
	config.Workers = configuration.ProfilerConfig{ReadWorkers: -1}
	s := New(config, operations.New("noop", operations.Spec{
		Perform: func(context.Context, structure.Database) error { return nil },
	}))
	result, err := s.Start(context.Background())
	require.NoError(t, err)

	entries, err := os.ReadDir(result.Folder)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "OPERATION.log", entries[0].Name())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "operation-running", OperationRunning.String())
	assert.Equal(t, "torn-down", TornDown.String())
	assert.Equal(t, "unknown", State(42).String())
}
