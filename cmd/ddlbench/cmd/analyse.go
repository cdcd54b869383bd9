package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/armadaproject/ddlbench/internal/ddlbench/analysis"
)

func addWindowFlags(cmd *cobra.Command) {
	defaults := analysis.DefaultWindowConfig()
	cmd.Flags().Duration("offset", defaults.Offset, "Gap between the start of the run, or the end of the operation, and the window after it.")
	cmd.Flags().Duration("window", defaults.Width, "Width of each window.")
}

func windowConfig(cmd *cobra.Command) (analysis.WindowConfig, error) {
	offset, err := cmd.Flags().GetDuration("offset")
	if err != nil {
		return analysis.WindowConfig{}, err
	}
	width, err := cmd.Flags().GetDuration("window")
	if err != nil {
		return analysis.WindowConfig{}, err
	}
	return analysis.WindowConfig{Offset: offset, Width: width}, nil
}

func splitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split <dir>",
		Short: "Split each worker log into the queries before, during and after the operation.",
		Long: `Split each worker log into the queries before, during and after the operation.

<dir> is either a single operation's folder or a folder of them, e.g. logs/postgres.
Each <ROLE>-<n>.log gets .pre, .during and .post siblings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := windowConfig(cmd)
			if err != nil {
				return err
			}
			return analysis.Split(args[0], config)
		},
	}
	addWindowFlags(cmd)
	return cmd
}

func analyseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "analyse <dir>",
		Aliases: []string{"analyze"},
		Short:   "Summarise query latency per role before, during and after each operation.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := windowConfig(cmd)
			if err != nil {
				return err
			}
			output, err := cmd.Flags().GetString("output")
			if err != nil {
				return err
			}
			reports, analyseErr := analysis.AnalyseAll(args[0], config)
			out, err := analysis.Format(reports, output)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return analyseErr
		},
	}
	addWindowFlags(cmd)
	cmd.Flags().StringP("output", "o", "table", "Output format: table, yaml or json.")
	return cmd
}
