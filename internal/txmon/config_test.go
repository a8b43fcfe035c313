package txmon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextDelayLinearByDefault(t *testing.T) {
	cfg := Config{PollingInterval: 50 * time.Millisecond, BackoffMultiplier: 1.0}.withDefaults()

	for attempt := 0; attempt < 10; attempt++ {
		d := cfg.nextDelay(attempt)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.Less(t, d, 50*time.Millisecond+maxJitter)
	}
}

func TestNextDelayExponentialMonotonic(t *testing.T) {
	cfg := Config{PollingInterval: 100 * time.Millisecond, BackoffMultiplier: 2.0}.withDefaults()

	// Strip jitter by comparing against the previous base plus the maximum
	// jitter: successive delays must be non-decreasing modulo jitter.
	prev := time.Duration(0)
	for attempt := 0; attempt < 12; attempt++ {
		d := cfg.nextDelay(attempt)
		assert.GreaterOrEqual(t, d+maxJitter, prev)
		assert.LessOrEqual(t, d, maxPollDelay+maxJitter)
		prev = d
	}
}

func TestNextDelayCapped(t *testing.T) {
	cfg := Config{PollingInterval: 10 * time.Second, BackoffMultiplier: 10.0}.withDefaults()

	d := cfg.nextDelay(20)
	assert.LessOrEqual(t, d, maxPollDelay+maxJitter)
	assert.GreaterOrEqual(t, d, maxPollDelay)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultConfig(), cfg)

	cfg = Config{BackoffMultiplier: 0.5}.withDefaults()
	assert.Equal(t, 1.0, cfg.BackoffMultiplier, "multipliers below 1 fall back to linear polling")
}
