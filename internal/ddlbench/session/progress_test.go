package session

import (
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/ddlbench/internal/common/logging"
	"github.com/armadaproject/ddlbench/internal/ddlbench/worker"
)

func TestLogProgress(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	newWorker := func(role worker.Role, index int) *worker.Worker {
		return worker.New(worker.Config{Role: role, Index: index, Logger: logging.NullEntry()})
	}
	workers := []*worker.Worker{newWorker(worker.Select, 1), newWorker(worker.Select, 2), newWorker(worker.Insert, 1)}

	logProgress(logrus.NewEntry(logger), workers, 2)

	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, "Queries executed", entry.Message)
	assert.Equal(t, logrus.Fields{
		"running": 2,
		"READER":  int64(0),
		"INSERT":  int64(0),
		"failed":  int64(0),
	}, entry.Data)
}
