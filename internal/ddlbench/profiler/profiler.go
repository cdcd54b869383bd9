// Package profiler runs a session for each operation in turn.
package profiler

import (
	"context"
	"fmt"
	"runtime"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/armadaproject/ddlbench/internal/common/logging"
	"github.com/armadaproject/ddlbench/internal/ddlbench/operations"
	"github.com/armadaproject/ddlbench/internal/ddlbench/session"
)

// Summary lists operation names by outcome. An operation whose run completed with recoverable
// errors counts as completed; one cancelled before it was performed counts as failed.
type Summary struct {
	Completed []string
	Skipped   []string
	Failed    []string
}

type runner interface {
	Start(ctx context.Context) (session.Result, error)
}

type Profiler struct {
	config     session.Config
	operations []operations.Operation
	logger     *log.Entry
	newSession func(session.Config, operations.Operation) runner
}

func New(config session.Config, ops []operations.Operation) *Profiler {
	logger := config.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Profiler{
		config:     config,
		operations: ops,
		logger:     logger,
		newSession: func(c session.Config, op operations.Operation) runner {
			return session.New(c, op)
		},
	}
}

// Profile runs every operation once. A failing operation is logged and the next one run; only
// cancelling ctx stops the profiler early.
func (p *Profiler) Profile(ctx context.Context) Summary {
	var summary Summary
	for i, op := range p.operations {
		if ctx.Err() != nil {
			p.logger.Warnf("Profiling cancelled, %d operations not run", len(p.operations)-i)
			break
		}
		logger := p.logger.WithField("operation", op.Name())
		logger.Infof("Profiling %s (%d of %d)", op.Name(), i+1, len(p.operations))

		result, err := p.run(ctx, op)
		switch {
		case err != nil:
			logging.WithStacktrace(logger, err).Errorf("Profiling %s failed", op.Name())
			summary.Failed = append(summary.Failed, op.Name())
		case result.Cancelled:
			logger.WithError(result.Recoverable).Warnf("Profiling %s cancelled before it was performed", op.Name())
			summary.Failed = append(summary.Failed, op.Name())
		case result.Skipped:
			summary.Skipped = append(summary.Skipped, op.Name())
		default:
			if result.Recoverable != nil {
				logger.WithError(result.Recoverable).Warnf("Profiled %s with errors", op.Name())
			} else {
				logger.Infof("Profiled %s, logs in %s", op.Name(), result.Folder)
			}
			summary.Completed = append(summary.Completed, op.Name())
		}

		// Release the previous run's garbage so it is not collected during the next one.
		runtime.GC()
	}
	p.logger.WithFields(log.Fields{
		"completed": len(summary.Completed),
		"skipped":   len(summary.Skipped),
		"failed":    len(summary.Failed),
	}).Info("Profiling finished")
	return summary
}

func (p *Profiler) run(ctx context.Context, op operations.Operation) (result session.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.WithStack(fmt.Errorf("session panicked: %v", r))
		}
	}()
	return p.newSession(p.config, op).Start(ctx)
}
