package logging

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// StacktraceField is the log field holding an error's stack trace.
const StacktraceField = "stacktrace"

// Implemented by every error created or wrapped by pkg/errors.
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// WithStacktrace adds err to the entry and, if any error in its chain carries a stack trace,
// the one recorded closest to where the failure happened.
func WithStacktrace(logger *logrus.Entry, err error) *logrus.Entry {
	entry := logger.WithError(err)
	if stack := ExtractStack(err); stack != nil {
		entry = entry.WithField(StacktraceField, fmt.Sprintf("%+v", stack))
	}
	return entry
}

// ExtractStack returns the innermost stack trace in err's chain, or nil if there is none.
func ExtractStack(err error) errors.StackTrace {
	var stack errors.StackTrace
	for ; err != nil; err = errors.Unwrap(err) {
		if tracer, ok := err.(stackTracer); ok {
			stack = tracer.StackTrace()
		}
	}
	return stack
}
