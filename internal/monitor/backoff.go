package monitor

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls immediate retries of transient probe failures.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryPolicy returns the engine's default retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// Delay computes the backoff delay for a given attempt using exponential
// backoff: delay = initial * (multiplier ^ attempt), capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	factor := math.Pow(multiplier, float64(attempt))
	delay := time.Duration(float64(p.InitialDelay) * factor)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// addJitter applies a random ±jitterPercent offset to d to avoid
// thundering-herd effects when many sessions share a process.
func addJitter(d time.Duration, jitterPercent float64) time.Duration {
	if jitterPercent <= 0 {
		return d
	}

	jitterRange := float64(d) * jitterPercent
	offset := (rand.Float64()*2 - 1) * jitterRange
	jittered := time.Duration(float64(d) + offset)

	if jittered < time.Millisecond {
		return time.Millisecond
	}
	return jittered
}

// widenInterval computes the scheduler interval after a run of consecutive
// failures. Once failures reach the threshold, every further failure
// doubles the interval up to the cap; a single success resets to base.
func widenInterval(base time.Duration, consecutiveFailures, threshold int, cap time.Duration) time.Duration {
	if consecutiveFailures < threshold {
		return base
	}

	doublings := consecutiveFailures - threshold + 1
	interval := base
	for i := 0; i < doublings; i++ {
		interval *= 2
		if cap > 0 && interval >= cap {
			return cap
		}
	}
	return interval
}
