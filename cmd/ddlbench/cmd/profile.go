package cmd

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/armadaproject/ddlbench/internal/common/serve"
	"github.com/armadaproject/ddlbench/internal/ddlbench/metrics"
	"github.com/armadaproject/ddlbench/internal/ddlbench/operations"
	"github.com/armadaproject/ddlbench/internal/ddlbench/profiler"
	"github.com/armadaproject/ddlbench/internal/ddlbench/session"
)

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Run every operation against live load and record query latencies.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ops, err := operations.Filter(operations.Catalog(config.TableName), config.Operations)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			m := metrics.New()
			if config.MetricsPort > 0 {
				mux := http.NewServeMux()
				mux.Handle("/metrics", m.Handler())
				server := &http.Server{Addr: fmt.Sprintf(":%d", config.MetricsPort), Handler: mux}
				go func() {
					if err := serve.ListenAndServe(ctx, server); err != nil {
						log.WithError(err).Error("Metrics server failed")
					}
				}()
			}

			sessionConfig := session.NewConfig(config, m)
			sessionConfig.Logger = log.WithField("database", config.Database.Type)
			summary := profiler.New(sessionConfig, ops).Profile(ctx)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Completed: %s\n", strings.Join(summary.Completed, ", "))
			fmt.Fprintf(out, "Skipped:   %s\n", strings.Join(summary.Skipped, ", "))
			fmt.Fprintf(out, "Failed:    %s\n", strings.Join(summary.Failed, ", "))
			if len(summary.Failed) > 0 {
				return errors.Errorf("%d of %d operations failed", len(summary.Failed), len(ops))
			}
			return ctx.Err()
		},
	}
	cmd.Flags().StringSlice("operations", nil, "Operations to run, overriding the config. Defaults to the whole catalog.")
	cmd.Flags().String("output-dir", "", "Directory for the latency logs, overriding the config.")
	return cmd
}
