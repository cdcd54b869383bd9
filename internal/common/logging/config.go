package logging

import (
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
)

var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

// Config defines console logging configuration.
type Config struct {
	// Log level, e.g. info, debug etc
	Level string `validate:"required"`
	// Logging format, either text or json. Defaults to text.
	Format string
}

func (c Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Level); err != nil {
		return errors.WithStack(err)
	}
	if c.Format != "" && !validLogFormats[strings.ToLower(c.Format)] {
		formats := maps.Keys(validLogFormats)
		sort.Strings(formats)
		return errors.Errorf("unknown log format %q; valid formats are %s", c.Format, strings.Join(formats, ", "))
	}
	return nil
}

func (c Config) formatter() logrus.Formatter {
	if strings.ToLower(c.Format) == "json" {
		return &logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano}
	}
	return &logrus.TextFormatter{ForceColors: true, FullTimestamp: true}
}
