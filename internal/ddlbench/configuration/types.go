package configuration

import (
	"time"

	"github.com/armadaproject/ddlbench/internal/common/logging"
	"github.com/armadaproject/ddlbench/internal/ddlbench/structure"
)

// ProfilerConfig is the number of workers of each role to run against every operation.
type ProfilerConfig struct {
	ReadWorkers   int `mapstructure:"read"`
	InsertWorkers int `mapstructure:"insert"`
	UpdateWorkers int `mapstructure:"update"`
	DeleteWorkers int `mapstructure:"delete"`
}

// TotalWorkers sums the worker counts, treating negative counts as zero.
func (c ProfilerConfig) TotalWorkers() int {
	total := 0
	for _, n := range []int{c.ReadWorkers, c.InsertWorkers, c.UpdateWorkers, c.DeleteWorkers} {
		if n > 0 {
			total += n
		}
	}
	return total
}

type DatabaseConfig struct {
	Type                  structure.Dialect `validate:"required,oneof=postgres mysql sqlite"`
	structure.Credentials `mapstructure:",squash"`
	// Attempts made to open each connection before giving up.
	ConnectAttempts   uint
	ConnectRetryDelay time.Duration
}

func (c DatabaseConfig) RetryPolicy() structure.RetryPolicy {
	return structure.RetryPolicy{Attempts: c.ConnectAttempts, Delay: c.ConnectRetryDelay}
}

// RunConfig is the complete configuration of a ddlbench invocation.
type RunConfig struct {
	Database DatabaseConfig
	Workers  ProfilerConfig
	// How long workers run before the operation starts.
	StartupTimeout time.Duration
	// How long workers keep running after the operation completes.
	TeardownTimeout time.Duration
	// How long to wait for workers to exit once stopped before abandoning them.
	TerminationTimeout time.Duration
	// How often run progress is logged.
	ProgressInterval time.Duration
	// Table the workers query and the operations alter.
	TableName string `validate:"required"`
	// Rows in the benchmark table. Workers pick ids uniformly below this.
	Rows int64 `validate:"gt=0"`
	// Root directory of the latency logs.
	OutputDir string `validate:"required"`
	// Operations to run, in catalog order. Empty means all.
	Operations []string
	// Port of the Prometheus endpoint; 0 disables it.
	MetricsPort uint16
	Logging     logging.Config
}

// Default returns the configuration used when no config file overrides it.
func Default() RunConfig {
	return RunConfig{
		Database: DatabaseConfig{
			Type:              structure.Postgres,
			Credentials:       structure.Credentials{Url: "postgres://localhost:5432/ddlbench", Username: "postgres"},
			ConnectAttempts:   3,
			ConnectRetryDelay: time.Second,
		},
		Workers:            ProfilerConfig{ReadWorkers: 4, InsertWorkers: 2, UpdateWorkers: 2, DeleteWorkers: 1},
		StartupTimeout:     5 * time.Second,
		TeardownTimeout:    5 * time.Second,
		TerminationTimeout: 60 * time.Second,
		ProgressInterval:   10 * time.Second,
		TableName:          "users",
		Rows:               100_000_000,
		OutputDir:          "logs",
		Logging:            logging.Config{Level: "info", Format: "text"},
	}
}
