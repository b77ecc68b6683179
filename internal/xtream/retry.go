// SPDX-License-Identifier: MIT

package xtream

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"
)

// RetryPolicy configures the backoff/jitter retry loop used around every
// fetch, generalized from the openwebif.Client's fixed attempt/backoff
// pair into the configurable {max_retries, initial_delay, max_delay,
// multiplier, jitter} shape spec.md §5 names.
type RetryPolicy struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	Jitter            float64 // 0..1, fraction of the computed delay added or subtracted at random
}

// DefaultRetryPolicy mirrors the openwebif client's defaults in spirit,
// with the attempt/delay budget spec.md §4.5.3 mandates.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        3,
		InitialDelay:      1000 * time.Millisecond,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.2,
	}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := float64(p.InitialDelay)
	for i := 1; i < attempt; i++ {
		d *= p.BackoffMultiplier
	}
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter > 0 {
		j := d * p.Jitter
		d += (rand.Float64()*2 - 1) * j
		if d < 0 {
			d = 0
		}
	}
	return time.Duration(d)
}

// shouldRetry reports whether an attempt that failed with err/status is
// worth retrying, ported from openwebif.Client.shouldRetry: a response
// status of 400 or above decides on its own (429 and 5xx are retried, any
// other 4xx is terminal even when an error accompanies it); below that,
// any error, including timeouts and network failures, is retried.
func shouldRetry(status int, err error) bool {
	if status >= 400 {
		return status == http.StatusTooManyRequests || status >= 500
	}
	return err != nil
}

// withRetry runs fn up to policy.MaxRetries+1 times, sleeping an increasing,
// jittered backoff between attempts, and bailing out immediately if ctx is
// cancelled — the C5 cancellation checkpoint spec.md §4.5.5 requires
// between every retry.
func withRetry(ctx context.Context, policy RetryPolicy, fn func(attempt int) (status int, err error)) error {
	var lastErr error
	for attempt := 1; attempt <= policy.MaxRetries+1; attempt++ {
		status, err := fn(attempt)
		if err == nil && status < 400 {
			return nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("unexpected response status %d", status)
		}
		if !shouldRetry(status, err) || attempt > policy.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.delay(attempt)):
		}
	}
	return lastErr
}
