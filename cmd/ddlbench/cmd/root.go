package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/armadaproject/ddlbench/internal/common"
	"github.com/armadaproject/ddlbench/internal/ddlbench/configuration"
)

const (
	configDirFlag = "configDir"
	configFlag    = "config"
	envPrefix     = "DDLBENCH"
)

// configFlags maps subcommand flags to the config keys they override when set.
var configFlags = map[string]string{
	"operations": "operations",
	"rows":       "rows",
	"output-dir": "outputDir",
}

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ddlbench",
		Short: "ddlbench measures how schema changes affect queries running against the same table.",
		Long: `ddlbench measures how schema changes affect queries running against the same table.

For every operation in its catalog, ddlbench starts workers that read, insert, update and delete
rows of the benchmark table, performs the operation while they run and writes the latency of
every query to <outputDir>/<database type>/<operation>/.

Configuration is read from config.yaml in --configDir, then from any files given with --config,
then from DDLBENCH_ environment variables, e.g. DDLBENCH_DATABASE_URL.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String(configDirFlag, "./config/ddlbench", "Directory holding the base config.yaml.")
	cmd.PersistentFlags().StringSlice(configFlag, nil, "Config files to merge over the base config.")

	cmd.AddCommand(
		profileCmd(),
		prepareCmd(),
		dropCmd(),
		operationsCmd(),
		splitCmd(),
		analyseCmd(),
	)

	return cmd
}

// loadConfig reads and validates the run configuration, then configures logging from it.
func loadConfig(cmd *cobra.Command) (configuration.RunConfig, error) {
	dir, err := cmd.Flags().GetString(configDirFlag)
	if err != nil {
		return configuration.RunConfig{}, err
	}
	overrides, err := cmd.Flags().GetStringSlice(configFlag)
	if err != nil {
		return configuration.RunConfig{}, err
	}

	config := configuration.Default()
	if _, err := common.LoadConfig(&config, dir, overrides, envPrefix, cmd.Flags(), configFlags); err != nil {
		return configuration.RunConfig{}, err
	}
	if err := config.Validate(); err != nil {
		return configuration.RunConfig{}, err
	}
	common.ConfigureLogging(config.Logging)
	return config, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM, so that a run in progress
// still stops its workers and cleans up.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	stopSignal := make(chan os.Signal, 1)
	signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(stopSignal)
		select {
		case <-ctx.Done():
		case <-stopSignal:
			cancel()
		}
	}()
	return ctx, cancel
}
