// internal/retry/retry.go
package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Config controls the retry budget for a single Execute call.
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}

// OnRetry is invoked before each retry with the attempt just failed,
// the delay before the next one and the error that triggered it.
type OnRetry func(attempt int, delay time.Duration, err error)

// TransientError marks an error as retryable at the throw site, so callers
// don't have to rely on message sniffing.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err so the scheduler will retry it.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// ExhaustedError is returned when every attempt failed with a recoverable
// error. It carries the attempt count and the last underlying failure.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("operation failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Scheduler is a bounded-attempt retry combinator. It has no side effects
// beyond the wrapped operation.
type Scheduler struct {
	config Config
	logger *zap.Logger
}

func NewScheduler(config Config, logger *zap.Logger) *Scheduler {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = DefaultConfig().InitialDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = DefaultConfig().MaxDelay
	}
	if config.Multiplier < 1 {
		config.Multiplier = DefaultConfig().Multiplier
	}
	return &Scheduler{
		config: config,
		logger: logger.Named("retry"),
	}
}

// Execute runs op until it succeeds, fails terminally, or the attempt budget
// is spent. Recoverable failures wait min(initialDelay*multiplier^(n-1),
// maxDelay) between attempts. Terminal errors propagate immediately.
func Execute[T any](ctx context.Context, s *Scheduler, op func() (T, error), onRetry OnRetry) (T, error) {
	var (
		attempts int
		terminal bool
	)

	wrapped := func() (T, error) {
		attempts++
		v, err := op()
		if err == nil {
			return v, nil
		}
		if !Recoverable(err) {
			terminal = true
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	notify := func(err error, delay time.Duration) {
		s.logger.Warn("Operation failed, retrying",
			zap.Int("attempt", attempts),
			zap.Int("max_attempts", s.config.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err))
		if onRetry != nil {
			onRetry(attempts, delay, err)
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.config.InitialDelay
	b.Multiplier = s.config.Multiplier
	b.MaxInterval = s.config.MaxDelay

	v, err := backoff.Retry(ctx, wrapped,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(s.config.MaxAttempts)),
		backoff.WithNotify(notify))
	if err == nil {
		return v, nil
	}

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	if terminal {
		return v, err
	}
	if ctx.Err() != nil {
		return v, err
	}
	return v, &ExhaustedError{Attempts: attempts, Err: err}
}

// Recoverable reports whether err is worth retrying. A structured
// *TransientError always wins; message signatures are the fallback for
// errors crossing opaque boundaries (RPC transports, OS dialers).
func Recoverable(err error) bool {
	if err == nil {
		return false
	}
	var transient *TransientError
	if errors.As(err, &transient) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range recoverablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// Network failure signatures that are typically transient.
var recoverablePatterns = []string{
	"connection reset by peer",
	"connection refused",
	"timeout",
	"temporary failure",
	"network is unreachable",
	"broken pipe",
	"i/o timeout",
	"eof",
	"tls handshake timeout",
	"no such host",
	"connection timed out",
	"dial tcp",
	"too many requests",
}
