// Package retry runs connect attempts against Postgres and Kafka with a
// bounded, exponentially growing wait between failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/yourname/commerce-datagen/internal/config"
	"github.com/yourname/commerce-datagen/internal/metrics"
)

// ErrExhausted is returned once every attempt has failed.
var ErrExhausted = errors.New("retry attempts exhausted")

type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration // 0 = no cap
	Jitter      float64       // fraction of the delay, e.g. 0.1 for ±10%

	// Timer drives the waits between attempts; nil uses a real timer.
	Timer backoff.Timer
}

// FromConfig converts the YAML retry section into a Policy.
func FromConfig(c config.RetryConfig) Policy {
	return Policy{
		MaxAttempts: c.MaxAttempts,
		BaseDelay:   c.BaseDelay,
		Multiplier:  c.Multiplier,
		MaxDelay:    c.MaxDelay,
		Jitter:      c.Jitter,
	}
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// exponential returns the delay sequence: BaseDelay * Multiplier^(k-1),
// capped at MaxDelay, with ±Jitter applied to each value.
func (p Policy) exponential() *backoff.ExponentialBackOff {
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = time.Duration(math.MaxInt64)
	}
	initial := p.BaseDelay
	if initial > maxDelay {
		initial = maxDelay
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.Multiplier = mult
	b.MaxInterval = maxDelay
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Do calls fn until it succeeds or MaxAttempts calls have failed. It sleeps
// between failures but not after the last one. target names the remote end in
// logs and metrics ("postgres", "kafka").
func Do[T any](ctx context.Context, p Policy, log *zap.Logger, target string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	limit := p.attempts()
	b := backoff.WithContext(backoff.WithMaxRetries(p.exponential(), uint64(limit-1)), ctx)

	attempt := 0
	op := func() (T, error) {
		attempt++
		v, err := fn(ctx)
		if err != nil {
			metrics.IncConnectAttempt(target, "failure")
			return zero, err
		}
		metrics.IncConnectAttempt(target, "success")
		return v, nil
	}
	notify := func(err error, next time.Duration) {
		log.Warn("not ready, retrying",
			zap.String("target", target),
			zap.Int("attempt", attempt),
			zap.Int("max", limit),
			zap.Duration("backoff", next),
			zap.Error(err),
		)
	}

	v, err := backoff.RetryNotifyWithTimerAndData(op, b, notify, p.Timer)
	if err == nil {
		log.Info("connected", zap.String("target", target), zap.Int("attempt", attempt))
		return v, nil
	}
	if cerr := ctx.Err(); cerr != nil {
		return zero, cerr
	}
	log.Warn("giving up", zap.String("target", target), zap.Int("attempts", attempt), zap.Error(err))
	return zero, fmt.Errorf("could not connect to %s after %d attempts: %w", target, attempt, errors.Join(ErrExhausted, err))
}
