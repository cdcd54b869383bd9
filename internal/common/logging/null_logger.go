package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NullEntry returns an entry whose logger discards everything. Components take one in tests.
func NullEntry() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(logger)
}
