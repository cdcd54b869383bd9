package logging

import (
	"bytes"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// CommandLineFormatter prints messages without timestamps or fields. Warnings and errors are
// prefixed with their level and followed by any error attached to the entry.
type CommandLineFormatter struct{}

func (f *CommandLineFormatter) Format(entry *log.Entry) ([]byte, error) {
	var b bytes.Buffer
	if entry.Level <= log.WarnLevel {
		b.WriteString(strings.ToUpper(entry.Level.String()))
		b.WriteString(": ")
	}
	b.WriteString(entry.Message)
	if entry.Level <= log.WarnLevel {
		if err, ok := entry.Data[log.ErrorKey]; ok {
			fmt.Fprintf(&b, ": %v", err)
		}
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}
