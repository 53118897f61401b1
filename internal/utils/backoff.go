package utils

import (
	"math"
	"time"
)

// Backoff computes a capped exponential delay for the attempt'th retry
// (0-indexed), used by both the primary-store version-conflict retry
// (spec §4.4, max 3 attempts) and the ingress transient-failure retry
// (spec §4.5).
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns the backoff duration for the given attempt number.
func (b Backoff) Delay(attempt int) time.Duration {
	d := time.Duration(float64(b.Base) * math.Pow(2, float64(attempt)))
	if d > b.Max || d <= 0 {
		return b.Max
	}
	return d
}
