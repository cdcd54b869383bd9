package structure

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/ddlbench/internal/common/runerrors"
)

func TestSqliteDialect_CreateTable(t *testing.T) {
	assert.Equal(t,
		`CREATE TABLE "users" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "name" varchar(255) NOT NULL)`,
		sqliteDialect{}.createTable(usersDefinition()))
	assert.Equal(t,
		`CREATE TABLE "pairs" ("a" bigint NOT NULL, "b" bigint NOT NULL, PRIMARY KEY ("a", "b"))`,
		sqliteDialect{}.createTable(TableDefinition{Name: "pairs", Columns: []ColumnDefinition{
			{Name: "a", Type: BigInt, Identity: true},
			{Name: "b", Type: BigInt, Identity: true},
		}}))
}

func TestSqlite_Schema(t *testing.T) {
	WithTestSQLite(t, func(db Database, _ Credentials) {
		ctx := context.Background()

		users, err := db.CreateTable(ctx, usersDefinition())
		require.NoError(t, err)
		require.NoError(t, db.Query(ctx, "INSERT INTO users (name) VALUES ('Walter White')"))

		columns, err := users.ListColumns(ctx)
		require.NoError(t, err)
		require.Len(t, columns, 2)
		assert.Equal(t, ColumnDefinition{Name: "id", Type: Integer, Identity: true, AutoIncrement: true}, columns[0].Definition())
		assert.Equal(t, ColumnDefinition{Name: "name", Type: Varchar(255)}, columns[1].Definition())

		email, err := users.AddColumn(ctx, ColumnDefinition{Name: "email", Type: Varchar(255), DefaultExpression: "'NOT_SET'"})
		require.NoError(t, err)
		require.NoError(t, email.Rename(ctx, "email2"))

		ok, err := users.HasColumn(ctx, "email")
		require.NoError(t, err)
		assert.False(t, ok)
		renamed, err := users.GetColumn(ctx, "email2")
		require.NoError(t, err)
		assert.Equal(t, "'NOT_SET'", renamed.DefaultExpression())
		assert.False(t, renamed.Nullable())

		assert.True(t, runerrors.IsNotSupported(renamed.SetType(ctx, Text)))
		require.NoError(t, renamed.Drop(ctx))

		_, err = users.GetColumn(ctx, "email2")
		assert.True(t, runerrors.IsNotFound(err))
	})
}

func TestSqlite_Indices(t *testing.T) {
	WithTestSQLite(t, func(db Database, _ Credentials) {
		ctx := context.Background()
		users, err := db.CreateTable(ctx, usersDefinition())
		require.NoError(t, err)

		_, err = users.CreateIndex(ctx, "users_name_idx", false, "name")
		require.NoError(t, err)

		index, err := users.GetIndex(ctx, "users_name_idx")
		require.NoError(t, err)
		assert.False(t, index.Unique())
		assert.False(t, index.Primary())
		assert.True(t, runerrors.IsNotSupported(index.Rename(ctx, "users_name_idx2")))

		require.NoError(t, index.Drop(ctx))
		ok, err := users.HasIndex(ctx, "users_name_idx")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestSqlite_RenameAndDropContents(t *testing.T) {
	WithTestSQLite(t, func(db Database, _ Credentials) {
		ctx := context.Background()
		users, err := db.CreateTable(ctx, usersDefinition())
		require.NoError(t, err)
		_, err = db.CreateTable(ctx, TableDefinition{Name: "addresses", Columns: []ColumnDefinition{
			{Name: "id", Type: Integer, Identity: true, AutoIncrement: true},
			{Name: "address", Type: Varchar(255), DefaultExpression: "''"},
		}})
		require.NoError(t, err)

		require.NoError(t, users.Rename(ctx, "users_v2"))
		assert.Equal(t, "users_v2", users.Name())

		tables, err := db.ListTables(ctx)
		require.NoError(t, err)
		names := make([]string, len(tables))
		for i, table := range tables {
			names[i] = table.Name()
		}
		assert.Equal(t, []string{"addresses", "users_v2"}, names)

		err = db.Query(ctx, "SELECT * FROM users WHERE id = 1")
		assert.True(t, IsUndefinedObject(err))

		require.NoError(t, db.DropContents(ctx))
		tables, err = db.ListTables(ctx)
		require.NoError(t, err)
		assert.Empty(t, tables)
	})
}

func TestSqlite_Unsupported(t *testing.T) {
	WithTestSQLite(t, func(db Database, _ Credentials) {
		ctx := context.Background()
		users, err := db.CreateTable(ctx, usersDefinition())
		require.NoError(t, err)

		_, err = users.AddForeignKey(ctx, "fk", []string{"id"}, "addresses", []string{"id"})
		assert.True(t, runerrors.IsNotSupported(err))
		_, err = users.CreateConstraint(ctx, "check", "id >= 0")
		assert.True(t, runerrors.IsNotSupported(err))

		keys, err := users.ListForeignKeys(ctx)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}

func TestConnect_Retries(t *testing.T) {
	db, err := Postgres.NewDatabase()
	require.NoError(t, err)
	err = Connect(context.Background(), db, Credentials{Url: "not a :// valid url"}, RetryPolicy{Attempts: 2})
	assert.Error(t, err)
}

func TestConnect_AlreadyConnected(t *testing.T) {
	WithTestSQLite(t, func(db Database, credentials Credentials) {
		assert.Error(t, db.Connect(context.Background(), credentials))
	})
}
