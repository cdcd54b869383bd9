package worker

import (
	"context"
	"math/rand"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/armadaproject/ddlbench/internal/common/logging"
	"github.com/armadaproject/ddlbench/internal/common/runerrors"
	"github.com/armadaproject/ddlbench/internal/ddlbench/metrics"
	"github.com/armadaproject/ddlbench/internal/ddlbench/structure"
	"github.com/armadaproject/ddlbench/internal/ddlbench/timeline"
)

type fakeDatabase struct {
	structure.Database
	dialect    structure.Dialect
	connectErr error
	queryDelay time.Duration
	queryErr   func(n int64) error
	queries    atomic.Int64
	closed     atomic.Bool
	mu         sync.Mutex
	statements []string
}

func (f *fakeDatabase) Connect(context.Context, structure.Credentials) error { return f.connectErr }

func (f *fakeDatabase) Close(context.Context) error {
	f.closed.Store(true)
	return nil
}

func (f *fakeDatabase) Dialect() structure.Dialect {
	if f.dialect == "" {
		return structure.SQLite
	}
	return f.dialect
}

func (f *fakeDatabase) Query(ctx context.Context, sql string) error {
	n := f.queries.Add(1)
	f.mu.Lock()
	f.statements = append(f.statements, sql)
	f.mu.Unlock()
	select {
	case <-time.After(f.queryDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if f.queryErr != nil {
		return f.queryErr(n)
	}
	return nil
}

func (f *fakeDatabase) lastStatement() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statements[len(f.statements)-1]
}

type memoryWriter struct {
	mu      sync.Mutex
	records []timeline.Record
}

func (m *memoryWriter) Write(record timeline.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *memoryWriter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *memoryWriter) snapshot() []timeline.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]timeline.Record(nil), m.records...)
}

func newTestWorker(role Role, db *fakeDatabase, writer RecordWriter) *Worker {
	return New(Config{
		Role:        role,
		Index:       1,
		Table:       "users",
		Rows:        100,
		NewDatabase: func() (structure.Database, error) { return db, nil },
		Writer:      writer,
		Origin:      time.Now(),
		Operation:   "add-nullable-column",
		Metrics:     metrics.New(),
		Logger:      logging.NullEntry(),
	})
}

func runInBackground(ctx context.Context, w *Worker) <-chan error {
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	return done
}

func TestWorker_RecordsUntilStopped(t *testing.T) {
	db := &fakeDatabase{queryDelay: time.Millisecond}
	writer := &memoryWriter{}
	w := newTestWorker(Select, db, writer)
	assert.Equal(t, "READER-1", w.Name())
	assert.Equal(t, Created, w.State())

	done := runInBackground(context.Background(), w)
	assert.Eventually(t, func() bool { return w.State() == AwaitingStart }, time.Second, time.Millisecond)
	assert.Equal(t, 0, writer.count())

	w.Start()
	assert.Eventually(t, func() bool { return writer.count() >= 5 }, time.Second, time.Millisecond)
	assert.Equal(t, Running, w.State())

	w.Stop()
	require.NoError(t, <-done)
	assert.Equal(t, Stopped, w.State())
	assert.True(t, db.closed.Load())

	stoppedAt := writer.count()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, stoppedAt, writer.count())
	assert.Equal(t, int64(stoppedAt), w.Executed())

	for _, record := range writer.snapshot() {
		assert.Equal(t, "READER", record.Type)
		assert.GreaterOrEqual(t, record.Start, int64(0))
		assert.Equal(t, record.End-record.Start, record.Duration)
	}
}

func TestWorker_RecordOffsetsFollowClock(t *testing.T) {
	origin := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	fakeClock := clocktesting.NewFakePassiveClock(origin.Add(5 * time.Millisecond))
	writer := &memoryWriter{}
	db := &fakeDatabase{}

	var w *Worker
	w = New(Config{
		Role:  Update,
		Index: 2,
		Query: func(context.Context, structure.Database, *rand.Rand) error {
			fakeClock.SetTime(fakeClock.Now().Add(7 * time.Millisecond))
			w.Stop()
			return nil
		},
		NewDatabase: func() (structure.Database, error) { return db, nil },
		Writer:      writer,
		Origin:      origin,
		Clock:       fakeClock,
		Metrics:     metrics.New(),
		Logger:      logging.NullEntry(),
	})
	w.Start()

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, []timeline.Record{{Type: "UPDATE", Start: 5, End: 12, Duration: 7}}, writer.snapshot())
}

func TestWorker_ConnectFailureIsFatal(t *testing.T) {
	db := &fakeDatabase{connectErr: errors.New("connection refused")}
	writer := &memoryWriter{}
	w := newTestWorker(Insert, db, writer)

	err := w.Run(context.Background())
	require.Error(t, err)
	assert.True(t, runerrors.IsFatal(err))
	assert.Contains(t, err.Error(), "INSERT-1")
	assert.Equal(t, Stopped, w.State())
	assert.Equal(t, 0, writer.count())
	assert.Equal(t, int64(0), db.queries.Load())
}

func TestWorker_QueryFailuresAreRecoverable(t *testing.T) {
	db := &fakeDatabase{
		queryErr: func(n int64) error {
			if n%2 == 0 {
				return errors.New("deadlock detected")
			}
			return nil
		},
	}
	writer := &memoryWriter{}
	w := newTestWorker(Update, db, writer)
	done := runInBackground(context.Background(), w)
	w.Start()

	assert.Eventually(t, func() bool { return w.Failed() >= 3 && w.Executed() >= 3 }, time.Second, time.Millisecond)
	w.Stop()
	require.NoError(t, <-done)

	assert.Equal(t, int64(writer.count()), w.Executed())
	assert.Equal(t, db.queries.Load(), w.Executed()+w.Failed())
}

func TestWorker_StopBeforeStart(t *testing.T) {
	db := &fakeDatabase{}
	w := newTestWorker(Delete, db, &memoryWriter{})
	done := runInBackground(context.Background(), w)
	w.Stop()
	w.Start()

	require.NoError(t, <-done)
	assert.Equal(t, int64(0), db.queries.Load())
	assert.Equal(t, Stopped, w.State())
}

func TestWorker_CancelledQueryIsAbandoned(t *testing.T) {
	db := &fakeDatabase{queryDelay: time.Hour}
	writer := &memoryWriter{}
	w := newTestWorker(Select, db, writer)

	ctx, cancel := context.WithCancel(context.Background())
	done := runInBackground(ctx, w)
	w.Start()
	assert.Eventually(t, func() bool { return db.queries.Load() == 1 }, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 0, writer.count())
	assert.Equal(t, int64(0), w.Failed())
}

func TestWorker_CancelWhileAwaitingStart(t *testing.T) {
	w := newTestWorker(Select, &fakeDatabase{}, &memoryWriter{})
	ctx, cancel := context.WithCancel(context.Background())
	done := runInBackground(ctx, w)
	assert.Eventually(t, func() bool { return w.State() == AwaitingStart }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestQueryFor(t *testing.T) {
	tests := map[Role]*regexp.Regexp{
		Select: regexp.MustCompile(`^SELECT \* FROM "users" WHERE \("id" = \d+\)$`),
		Insert: regexp.MustCompile(`^INSERT INTO "users" \("name"\) VALUES \('[A-Za-z]+ [A-Za-z-]+'\)$`),
		Update: regexp.MustCompile(`^UPDATE "users" SET "name"='Dilbert' WHERE \("id" = \d+\)$`),
		Delete: regexp.MustCompile(`^DELETE FROM "users" WHERE \("id" = \d+\)$`),
	}
	rnd := rand.New(rand.NewSource(1))
	for role, pattern := range tests {
		t.Run(role.String(), func(t *testing.T) {
			db := &fakeDatabase{dialect: structure.Postgres}
			query := QueryFor(role, "users", 1000)
			for i := 0; i < 20; i++ {
				require.NoError(t, query(context.Background(), db, rnd))
				assert.Regexp(t, pattern, db.lastStatement())
			}
		})
	}
}

func TestRoles(t *testing.T) {
	assert.Equal(t, []Role{Select, Insert, Update, Delete}, Roles())
	for _, role := range Roles() {
		parsed, err := ParseRole(role.String())
		require.NoError(t, err)
		assert.Equal(t, role, parsed)
	}
	_, err := ParseRole("Operation")
	assert.Error(t, err)
	assert.Equal(t, "UNKNOWN", Role(42).String())
	assert.Equal(t, "awaiting-start", AwaitingStart.String())
}

func TestRandomName(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		assert.Regexp(t, `^[A-Z][a-z]+ [A-Z][A-Za-z-]+$`, RandomName(rnd))
	}
}
