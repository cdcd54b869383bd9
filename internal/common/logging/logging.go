package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Configure sets up the standard logger from the given config. The config is expected to have
// been validated already; an unparsable level falls back to info.
func Configure(c Config) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(c.formatter())
	logrus.SetOutput(os.Stdout)
}

// ConfigureCommandLineLogging makes the standard logger print bare messages, for commands whose
// output is meant to be read by a person rather than collected.
func ConfigureCommandLineLogging() {
	logrus.SetLevel(logrus.InfoLevel)
	logrus.SetFormatter(new(CommandLineFormatter))
	logrus.SetOutput(os.Stdout)
}
