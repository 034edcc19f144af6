package sky

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/star/hawkietc/internal/metrics"
)

// Retrying wraps a Source with a bounded exponential-backoff retry. Only
// ErrUnavailable failures are retried, and a StatusError only when it is
// temporary. ErrInvalidResponse and ErrInvalidQuery fail at once.
type Retrying struct {
	source   Source
	maxTries uint
	interval time.Duration
	logger   *slog.Logger
}

// NewRetrying wraps source. maxTries counts the first attempt; values below
// one are treated as one. interval is the initial backoff delay. A nil
// logger uses slog.Default.
func NewRetrying(source Source, maxTries uint, interval time.Duration, logger *slog.Logger) *Retrying {
	if maxTries < 1 {
		maxTries = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrying{
		source:   source,
		maxTries: maxTries,
		interval: interval,
		logger:   logger.With("component", "sky_retry"),
	}
}

// Name returns the wrapped source's name.
func (r *Retrying) Name() string { return r.source.Name() }

// Background calls the wrapped source until it succeeds, fails permanently,
// runs out of tries or ctx is done.
func (r *Retrying) Background(ctx context.Context, band Band, q Query) (Background, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.interval

	attempt := 0
	op := func() (Background, error) {
		attempt++
		bg, err := r.source.Background(ctx, band, q)
		if err != nil && !retryable(err) {
			return bg, backoff.Permanent(err)
		}
		return bg, err
	}

	bg, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.maxTries),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			metrics.IncSkyRetries()
			r.logger.Warn("sky lookup failed, retrying",
				"source", r.source.Name(),
				"filter", band.Name(),
				"attempt", attempt,
				"next", next,
				"error", err,
			)
		}),
	)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, ErrUnavailable) {
			return Background{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return Background{}, err
	}
	if attempt > 1 {
		r.logger.Info("sky lookup recovered", "source", r.source.Name(), "attempts", attempt)
	}
	return bg, nil
}

func retryable(err error) bool {
	var status *StatusError
	if errors.As(err, &status) {
		return status.Temporary()
	}
	if errors.Is(err, ErrInvalidResponse) || errors.Is(err, ErrInvalidQuery) {
		return false
	}
	return errors.Is(err, ErrUnavailable) && !errors.Is(err, context.Canceled)
}
