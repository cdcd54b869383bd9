package util

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// ContextCloser is implemented by resources whose Close needs a context, e.g. database connections.
type ContextCloser interface {
	Close(ctx context.Context) error
}

// CloseResourceWithContext closes c with a fresh background context, so that resources can still
// be released after the context they were used under has been cancelled.
func CloseResourceWithContext(name string, c ContextCloser) {
	if err := c.Close(context.Background()); err != nil {
		log.WithError(err).Warnf("Failed to close %s cleanly", name)
	}
}
