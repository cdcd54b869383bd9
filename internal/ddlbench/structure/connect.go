package structure

import (
	"context"
	"time"

	"github.com/avast/retry-go"
	log "github.com/sirupsen/logrus"
)

// RetryPolicy controls how often a connection attempt is repeated before giving up.
type RetryPolicy struct {
	Attempts uint
	Delay    time.Duration
}

// Connect connects db, retrying failed attempts according to policy. Zero attempts means one.
func Connect(ctx context.Context, db Database, credentials Credentials, policy RetryPolicy) error {
	attempts := policy.Attempts
	if attempts == 0 {
		attempts = 1
	}
	return retry.Do(
		func() error {
			return db.Connect(ctx, credentials)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(policy.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.WithError(err).Warnf("Connection attempt %d/%d to %s failed", n+1, attempts, db.Dialect())
		}),
	)
}
