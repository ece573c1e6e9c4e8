// Package ratelimit wraps a token bucket behind a context-aware limiter.
//
// The limiter is a single process-wide resource shared by every concurrent
// entity job; the mutex ensures only one goroutine consumes the budget at a
// time while the actual sleeping happens outside the lock.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/juju/ratelimit"
)

// Limiter gates transport invocations.
type Limiter interface {
	// Wait blocks until a request token is available or ctx is done.
	Wait(ctx context.Context) error
}

// TokenBucket is a Limiter backed by a refilling token bucket.
type TokenBucket struct {
	mu     sync.Mutex
	bucket *ratelimit.Bucket
}

// NewTokenBucket creates a limiter allowing ratePerSecond sustained requests
// with the given burst capacity.
func NewTokenBucket(ratePerSecond float64, burst int64) *TokenBucket {
	return &TokenBucket{
		bucket: ratelimit.NewBucketWithRate(ratePerSecond, burst),
	}
}

// Wait consumes one token, sleeping until the bucket refills if necessary.
// Returns the context error if ctx is cancelled while waiting.
func (t *TokenBucket) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	delay := t.bucket.Take(1)
	t.mu.Unlock()

	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Nop is a Limiter that never blocks. Used in tests and when rate
// limiting is disabled.
type Nop struct{}

// Wait returns immediately.
func (Nop) Wait(ctx context.Context) error { return ctx.Err() }

var (
	_ Limiter = (*TokenBucket)(nil)
	_ Limiter = Nop{}
)
