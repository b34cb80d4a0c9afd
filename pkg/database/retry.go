package database

import (
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
)

const (
	initialInterval = 500 * time.Millisecond
	maxInterval     = 5 * time.Second
)

func retryConnect(name string, maxElapsed time.Duration, logger *zap.Logger, ping func() error) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialInterval
	bo.MaxInterval = maxInterval
	bo.MaxElapsedTime = maxElapsed

	return backoff.RetryNotify(ping, bo, func(err error, wait time.Duration) {
		logger.Warn("store not reachable, retrying",
			zap.String("store", name),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
}
