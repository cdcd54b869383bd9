package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/ddlbench/internal/ddlbench/operations"
	"github.com/armadaproject/ddlbench/internal/ddlbench/structure"
	"github.com/armadaproject/ddlbench/internal/ddlbench/timeline"
)

func execute(t *testing.T, args ...string) (string, error) {
	cmd := RootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	return dir
}

func TestLoadConfig(t *testing.T) {
	dir := writeConfig(t, `
database:
  type: SQLite
  url: /tmp/bench.db
workers:
  read: 1
tableName: people
rows: 100
`)
	t.Setenv("DDLBENCH_ROWS", "42")

	cmd := RootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--configDir", dir}))
	config, err := loadConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, structure.SQLite, config.Database.Type)
	assert.Equal(t, "/tmp/bench.db", config.Database.Url)
	assert.Equal(t, 1, config.Workers.ReadWorkers)
	assert.Equal(t, 2, config.Workers.InsertWorkers, "unset values keep their defaults")
	assert.Equal(t, "people", config.TableName)
	assert.Equal(t, int64(42), config.Rows)
}

func TestLoadConfig_SetFlagsOverrideConfig(t *testing.T) {
	dir := writeConfig(t, `
database:
  type: sqlite
  url: /tmp/bench.db
rows: 100
outputDir: results
operations: [rename-table]
`)
	tests := map[string]struct {
		command        string
		args           []string
		wantRows       int64
		wantOutputDir  string
		wantOperations []string
	}{
		"prepare rows": {
			command:        "prepare",
			args:           []string{"--rows", "7"},
			wantRows:       7,
			wantOutputDir:  "results",
			wantOperations: []string{"rename-table"},
		},
		"profile operations and output dir": {
			command:        "profile",
			args:           []string{"--operations", "create-index-on-column,add-nullable-column", "--output-dir", "/tmp/out"},
			wantRows:       100,
			wantOutputDir:  "/tmp/out",
			wantOperations: []string{"create-index-on-column", "add-nullable-column"},
		},
		"unset flags keep config": {
			command:        "profile",
			wantRows:       100,
			wantOutputDir:  "results",
			wantOperations: []string{"rename-table"},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			sub, _, err := RootCmd().Find([]string{tc.command})
			require.NoError(t, err)
			require.NoError(t, sub.ParseFlags(append([]string{"--configDir", dir}, tc.args...)))

			config, err := loadConfig(sub)
			require.NoError(t, err)
			assert.Equal(t, tc.wantRows, config.Rows)
			assert.Equal(t, tc.wantOutputDir, config.OutputDir)
			assert.Equal(t, tc.wantOperations, config.Operations)
		})
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := writeConfig(t, `
database:
  type: oracle
`)
	cmd := RootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--configDir", dir}))
	_, err := loadConfig(cmd)
	assert.Error(t, err)
}

func TestOperationsTable(t *testing.T) {
	table, err := operationsTable(structure.MySQL, operations.All())
	require.NoError(t, err)
	assert.Regexp(t, `OPERATION\s+mysql`, table)
	assert.Regexp(t, `rename-index\s+no`, table)
	assert.Regexp(t, `add-nullable-foreign-key\s+yes`, table)
}

func TestDrop_RequiresConfirmation(t *testing.T) {
	_, err := execute(t, "drop", "--configDir", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}

func TestSplitAndAnalyse(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "sqlite", "add-nullable-column")
	require.NoError(t, os.MkdirAll(folder, 0o755))
	require.NoError(t, timeline.WriteFile(filepath.Join(folder, "OPERATION.log"), []timeline.Record{
		{Type: timeline.OperationType, Start: 100, End: 150, Duration: 50},
	}))
	require.NoError(t, timeline.WriteFile(filepath.Join(folder, "READER-1.log"), []timeline.Record{
		{Type: "READER", Start: 20, End: 21, Duration: 1},
		{Type: "READER", Start: 120, End: 130, Duration: 10},
		{Type: "READER", Start: 170, End: 172, Duration: 2},
	}))
	root := filepath.Dir(folder)

	_, err := execute(t, "split", root, "--offset", "10ms", "--window", "40ms")
	require.NoError(t, err)
	during, err := timeline.ReadFile(filepath.Join(folder, "READER-1.log.during"))
	require.NoError(t, err)
	require.Len(t, during, 1)
	assert.Equal(t, int64(120), during[0].Start)

	out, err := execute(t, "analyse", root, "--offset", "10ms", "--window", "40ms", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "scenario: add-nullable-column")
	assert.Contains(t, out, "max: 10")
}
