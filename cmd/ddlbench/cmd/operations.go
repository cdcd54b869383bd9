package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/armadaproject/ddlbench/internal/common/util"
	"github.com/armadaproject/ddlbench/internal/ddlbench/operations"
	"github.com/armadaproject/ddlbench/internal/ddlbench/structure"
)

func operationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operations",
		Short: "List the operations and whether the configured database supports them.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			dialect := config.Database.Type
			if cmd.Flags().Changed("dialect") {
				name, err := cmd.Flags().GetString("dialect")
				if err != nil {
					return err
				}
				if dialect, err = structure.ParseDialect(name); err != nil {
					return err
				}
			}
			table, err := operationsTable(dialect, operations.Catalog(config.TableName))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), table)
			return nil
		},
	}
	cmd.Flags().String("dialect", "", "Report support for this database type instead of the configured one.")
	return cmd
}

func operationsTable(dialect structure.Dialect, ops []operations.Operation) (string, error) {
	db, err := dialect.NewDatabase()
	if err != nil {
		return "", err
	}
	table := util.NewTable("OPERATION", dialect.String())
	for _, op := range ops {
		supported := "yes"
		if !op.IsSupportedBy(db) {
			supported = "no"
		}
		table.AddRow(op.Name(), supported)
	}
	return table.String(), nil
}
