package retry

import "time"

// ReplayConfig bounds how soon a dead-lettered task instance may be
// manually replayed again, measured from its previous replay. The first
// replay is not delayed.
type ReplayConfig struct {
	Strategy Strategy
}

// DefaultReplayConfig returns an exponential-backoff replay policy.
func DefaultReplayConfig() *ReplayConfig {
	return &ReplayConfig{Strategy: DefaultExponentialBackoff()}
}

// MinDelayAfter returns how long an operator must wait between replays of
// an entry recorded with the given number of execution attempts: the
// strategy's delay for attempts+1.
func (c *ReplayConfig) MinDelayAfter(attempts int) time.Duration {
	if c.Strategy == nil {
		return 0
	}
	return c.Strategy.NextDelay(attempts + 1)
}
