package cmd

import (
	"github.com/spf13/cobra"

	"github.com/armadaproject/ddlbench/internal/ddlbench/configuration"
	"github.com/armadaproject/ddlbench/internal/ddlbench/populate"
)

func populateConfig(config configuration.RunConfig) populate.Config {
	return populate.Config{
		Dialect:          config.Database.Type,
		Credentials:      config.Database.Credentials,
		RetryPolicy:      config.Database.RetryPolicy(),
		Table:            config.TableName,
		Rows:             config.Rows,
		ProgressInterval: config.ProgressInterval,
	}
}

func prepareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Create the benchmark table and fill it with rows.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			c := populateConfig(config)
			if c.BatchSize, err = cmd.Flags().GetInt("batch-size"); err != nil {
				return err
			}
			if c.Workers, err = cmd.Flags().GetInt("workers"); err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()
			return populate.Prepare(ctx, c)
		},
	}
	cmd.Flags().Int64("rows", 0, "Rows to insert, overriding the config.")
	cmd.Flags().Int("batch-size", populate.DefaultBatchSize, "Rows per INSERT statement.")
	cmd.Flags().Int("workers", populate.DefaultWorkers, "Connections inserting concurrently.")
	return cmd
}
