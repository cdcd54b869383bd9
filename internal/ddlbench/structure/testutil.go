package structure

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSQLiteCredentials returns credentials for a fresh SQLite database file that is removed
// when the test finishes.
func TestSQLiteCredentials(t testing.TB) Credentials {
	return Credentials{Url: filepath.Join(t.TempDir(), "ddlbench.db")}
}

// WithTestSQLite connects to a fresh SQLite database, runs action and closes the connection.
func WithTestSQLite(t testing.TB, action func(db Database, credentials Credentials)) {
	ctx := context.Background()
	credentials := TestSQLiteCredentials(t)
	db, err := SQLite.NewDatabase()
	require.NoError(t, err)
	require.NoError(t, db.Connect(ctx, credentials))
	defer func() {
		require.NoError(t, db.Close(ctx))
	}()
	action(db, credentials)
}
