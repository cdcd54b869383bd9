package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/armadaproject/ddlbench/internal/ddlbench/populate"
)

func dropCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop every table (and, on Postgres, every sequence) in the configured database.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, err := cmd.Flags().GetBool("yes")
			if err != nil {
				return err
			}
			if !yes {
				return errors.New("drop removes everything in the database, pass --yes to confirm")
			}
			config, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			return populate.Drop(ctx, populateConfig(config))
		},
	}
	cmd.Flags().Bool("yes", false, "Confirm that everything in the database should be dropped.")
	return cmd
}
