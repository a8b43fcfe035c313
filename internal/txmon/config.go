// internal/txmon/config.go
package txmon

import (
	"math"
	"math/rand"
	"time"
)

const (
	// Hard ceiling on the computed inter-poll delay regardless of backoff growth.
	maxPollDelay = 30 * time.Second
	// Random component added to every delay so concurrent sessions don't
	// poll in lockstep.
	maxJitter = 100 * time.Millisecond
)

// Config controls the polling cadence and retry budget of a monitoring
// session. The defaults poll at a constant interval: BackoffMultiplier 1.0
// keeps the delay linear, values above 1 grow it exponentially.
type Config struct {
	PollingInterval   time.Duration
	MaxRetries        int
	Timeout           time.Duration
	BackoffMultiplier float64
}

func DefaultConfig() Config {
	return Config{
		PollingInterval:   2 * time.Second,
		MaxRetries:        30,
		Timeout:           2 * time.Minute,
		BackoffMultiplier: 1.0,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PollingInterval <= 0 {
		c.PollingInterval = d.PollingInterval
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.BackoffMultiplier < 1 {
		c.BackoffMultiplier = d.BackoffMultiplier
	}
	return c
}

// nextDelay returns the capped, jittered delay before the next poll given
// the number of attempts already performed.
func (c Config) nextDelay(attempts int) time.Duration {
	delay := float64(c.PollingInterval) * math.Pow(c.BackoffMultiplier, float64(attempts))
	if delay > float64(maxPollDelay) {
		delay = float64(maxPollDelay)
	}
	return time.Duration(delay) + time.Duration(rand.Int63n(int64(maxJitter)))
}
