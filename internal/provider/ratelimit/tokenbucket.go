package ratelimit

import (
    "context"
    "sync"
    "time"

    "quotestub/internal/provider"
)

// TokenBucket spreads calls against a metered API.
// - rate: tokens per second
// - capacity: maximum tokens the bucket can hold (burst)
type TokenBucket struct {
    rate     float64
    capacity float64

    mu     sync.Mutex
    tokens float64
    last   time.Time
}

// PerMinute builds a bucket from a requests-per-minute budget, the unit
// CoinMarketCap plans are sold in.
func PerMinute(rpm, burst int) *TokenBucket {
    return NewTokenBucket(float64(rpm)/60.0, burst)
}

func NewTokenBucket(tokensPerSecond float64, burst int) *TokenBucket {
    if tokensPerSecond <= 0 { tokensPerSecond = 1e-7 }
    if burst <= 0 { burst = 1 }
    // Starts full so the first poll is never delayed.
    return &TokenBucket{rate: tokensPerSecond, capacity: float64(burst), tokens: float64(burst), last: time.Now()}
}

// take consumes a token if one is available; otherwise it reports how
// long until the next one accrues.
func (tb *TokenBucket) take(now time.Time) (time.Duration, bool) {
    tb.mu.Lock()
    defer tb.mu.Unlock()
    if elapsed := now.Sub(tb.last).Seconds(); elapsed > 0 {
        tb.tokens = min(tb.capacity, tb.tokens+elapsed*tb.rate)
        tb.last = now
    }
    if tb.tokens >= 1 {
        tb.tokens--
        return 0, true
    }
    wait := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
    return max(wait, time.Millisecond), false
}

// Wait blocks until a token is taken or ctx is done.
func (tb *TokenBucket) Wait(ctx context.Context) error {
    for {
        wait, ok := tb.take(time.Now())
        if ok { return nil }
        timer := time.NewTimer(wait)
        select {
        case <-ctx.Done():
            timer.Stop()
            return ctx.Err()
        case <-timer.C:
        }
    }
}

// TokenBucketProvider wraps a Provider and gates calls using a token bucket.
type TokenBucketProvider struct {
    P  provider.Provider
    TB *TokenBucket
}

func (t *TokenBucketProvider) Name() string { return t.P.Name() }

func (t *TokenBucketProvider) Fetch(ctx context.Context, symbols []string) ([]provider.Quote, error) {
    if t.TB != nil {
        if err := t.TB.Wait(ctx); err != nil { return nil, err }
    }
    return t.P.Fetch(ctx, symbols)
}
