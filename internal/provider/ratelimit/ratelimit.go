// Package ratelimit gates provider calls so a polling loop cannot burn
// through an API plan's credits.
package ratelimit

import (
    "context"
    "sync"
    "time"

    "quotestub/internal/provider"
)

// MinInterval wraps a provider and enforces a minimum time between the
// starts of consecutive calls. Each caller reserves its slot under the
// lock, so concurrent callers queue up instead of firing together.
type MinInterval struct {
    P        provider.Provider
    Interval time.Duration

    mu   sync.Mutex
    next time.Time
}

func (m *MinInterval) Name() string { return m.P.Name() }

func (m *MinInterval) Fetch(ctx context.Context, symbols []string) ([]provider.Quote, error) {
    if m.Interval <= 0 {
        return m.P.Fetch(ctx, symbols)
    }
    m.mu.Lock()
    now := time.Now()
    slot := m.next
    if slot.Before(now) { slot = now }
    m.next = slot.Add(m.Interval)
    m.mu.Unlock()

    if wait := time.Until(slot); wait > 0 {
        t := time.NewTimer(wait)
        defer t.Stop()
        select {
        case <-ctx.Done():
            return nil, ctx.Err()
        case <-t.C:
        }
    }
    return m.P.Fetch(ctx, symbols)
}

// Wrap applies the limiter the settings ask for: a token bucket when rpm
// is set, otherwise a minimum interval, otherwise nothing.
func Wrap(p provider.Provider, rpm, burst int, minInterval time.Duration) provider.Provider {
    switch {
    case rpm > 0:
        if burst <= 0 { burst = 1 }
        return &TokenBucketProvider{P: p, TB: PerMinute(rpm, burst)}
    case minInterval > 0:
        return &MinInterval{P: p, Interval: minInterval}
    }
    return p
}
