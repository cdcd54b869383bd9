package serve

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 5 * time.Second

// ListenAndServe runs server until ctx is cancelled, then shuts it down gracefully.
// Returns nil if the server stopped because ctx was cancelled.
func ListenAndServe(ctx context.Context, server *http.Server) error {
	errs := make(chan error, 1)
	go func() {
		log.Infof("Starting http server listening on %s", server.Addr)
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return errors.WithStack(err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Infof("Stopping http server listening on %s", server.Addr)
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.WithStack(err)
		}
		if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.WithStack(err)
		}
		return nil
	}
}
