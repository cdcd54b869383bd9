package configuration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/ddlbench/internal/ddlbench/structure"
)

func TestProfilerConfig_TotalWorkers(t *testing.T) {
	tests := map[string]struct {
		config ProfilerConfig
		want   int
	}{
		"all zero":          {ProfilerConfig{}, 0},
		"one of each":       {ProfilerConfig{1, 1, 1, 1}, 4},
		"negatives clamped": {ProfilerConfig{ReadWorkers: -1, InsertWorkers: 2, UpdateWorkers: 0, DeleteWorkers: 3}, 5},
		"all negative":      {ProfilerConfig{-1, -2, -3, -4}, 0},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.config.TotalWorkers())
		})
	}
}

func TestRunConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*RunConfig)
		wantErr bool
		errText string
	}{
		{
			name:   "valid configuration",
			modify: func(c *RunConfig) {},
		},
		{
			name: "sqlite",
			modify: func(c *RunConfig) {
				c.Database.Type = structure.SQLite
				c.Database.Url = "bench.db"
			},
		},
		{
			name:    "unknown database type",
			modify:  func(c *RunConfig) { c.Database.Type = "oracle" },
			wantErr: true,
			errText: "Type",
		},
		{
			name:    "missing url",
			modify:  func(c *RunConfig) { c.Database.Url = "" },
			wantErr: true,
			errText: "Url",
		},
		{
			name:    "zero rows",
			modify:  func(c *RunConfig) { c.Rows = 0 },
			wantErr: true,
			errText: "Rows",
		},
		{
			name:    "missing table name",
			modify:  func(c *RunConfig) { c.TableName = "" },
			wantErr: true,
			errText: "TableName",
		},
		{
			name:    "no connection attempts",
			modify:  func(c *RunConfig) { c.Database.ConnectAttempts = 0 },
			wantErr: true,
			errText: "database.connectAttempts must be at least 1",
		},
		{
			name:    "negative worker count",
			modify:  func(c *RunConfig) { c.Workers.UpdateWorkers = -1 },
			wantErr: true,
			errText: "workers.update must be non-negative",
		},
		{
			name:   "no workers",
			modify: func(c *RunConfig) { c.Workers = ProfilerConfig{} },
		},
		{
			name:    "negative startup timeout",
			modify:  func(c *RunConfig) { c.StartupTimeout = -time.Second },
			wantErr: true,
			errText: "startupTimeout must be non-negative",
		},
		{
			name:   "zero startup and teardown",
			modify: func(c *RunConfig) { c.StartupTimeout, c.TeardownTimeout = 0, 0 },
		},
		{
			name:    "negative teardown timeout",
			modify:  func(c *RunConfig) { c.TeardownTimeout = -time.Second },
			wantErr: true,
			errText: "teardownTimeout must be non-negative",
		},
		{
			name:    "zero termination timeout",
			modify:  func(c *RunConfig) { c.TerminationTimeout = 0 },
			wantErr: true,
			errText: "terminationTimeout must be positive",
		},
		{
			name:    "zero progress interval",
			modify:  func(c *RunConfig) { c.ProgressInterval = 0 },
			wantErr: true,
			errText: "progressInterval must be positive",
		},
		{
			name:    "bad log format",
			modify:  func(c *RunConfig) { c.Logging.Format = "xml" },
			wantErr: true,
			errText: "logging: unknown log format",
		},
		{
			name: "several problems reported together",
			modify: func(c *RunConfig) {
				c.StartupTimeout = -time.Second
				c.TerminationTimeout = 0
			},
			wantErr: true,
			errText: "2 errors occurred",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			config := Default()
			tc.modify(&config)
			err := config.Validate()
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.errText)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDatabaseConfig_RetryPolicy(t *testing.T) {
	c := DatabaseConfig{ConnectAttempts: 3, ConnectRetryDelay: time.Second}
	assert.Equal(t, structure.RetryPolicy{Attempts: 3, Delay: time.Second}, c.RetryPolicy())
}
