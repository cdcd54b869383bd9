package populate

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/armadaproject/ddlbench/internal/common/logging"
	"github.com/armadaproject/ddlbench/internal/ddlbench/structure"
)

func testConfig(t *testing.T) Config {
	return Config{
		Dialect:          structure.SQLite,
		Credentials:      structure.TestSQLiteCredentials(t),
		RetryPolicy:      structure.RetryPolicy{Attempts: 1},
		Table:            "users",
		Rows:             95,
		BatchSize:        10,
		Workers:          3,
		ProgressInterval: 10 * time.Millisecond,
		Logger:           logging.NullEntry(),
	}
}

func countRows(t *testing.T, credentials structure.Credentials, table string) int {
	db, err := sql.Open("sqlite", credentials.Url)
	require.NoError(t, err)
	defer db.Close()
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&count))
	return count
}

func TestInsertStatement(t *testing.T) {
	sql, err := insertStatement(structure.Postgres, "users", []string{"Walter White", "Tuco's cousin"})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "users" ("name") VALUES ('Walter White'), ('Tuco''s cousin')`, sql)
}

func TestPrepare_CreatesAndFillsTable(t *testing.T) {
	config := testConfig(t)
	require.NoError(t, Prepare(context.Background(), config))
	assert.Equal(t, 95, countRows(t, config.Credentials, "users"))

	require.NoError(t, Fill(context.Background(), config))
	assert.Equal(t, 190, countRows(t, config.Credentials, "users"))
}

func TestPrepare_FailsWhenTableExists(t *testing.T) {
	config := testConfig(t)
	require.NoError(t, Prepare(context.Background(), config))
	assert.Error(t, Prepare(context.Background(), config))
}

func TestDrop(t *testing.T) {
	ctx := context.Background()
	config := testConfig(t)
	config.Rows = 1
	require.NoError(t, Prepare(ctx, config))
	require.NoError(t, Drop(ctx, config))

	db, err := structure.SQLite.NewDatabase()
	require.NoError(t, err)
	require.NoError(t, db.Connect(ctx, config.Credentials))
	defer db.Close(ctx)
	ok, err := db.HasTable(ctx, "users")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFill_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := testConfig(t)
	require.NoError(t, Prepare(ctx, config))
	cancel()
	assert.Error(t, Fill(ctx, config))
}
