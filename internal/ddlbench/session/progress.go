package session

import (
	"github.com/sirupsen/logrus"

	"github.com/armadaproject/ddlbench/internal/ddlbench/worker"
)

// logProgress logs the queries executed so far per role. running is the number of pool tasks
// still executing, workers plus the operation while it is performed.
func logProgress(logger *logrus.Entry, workers []*worker.Worker, running int) {
	fields := logrus.Fields{"running": running}
	var failed int64
	for _, w := range workers {
		role := w.Role().String()
		executed, _ := fields[role].(int64)
		fields[role] = executed + w.Executed()
		failed += w.Failed()
	}
	fields["failed"] = failed
	logger.WithFields(fields).Info("Queries executed")
}
