package crashwatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"quotestub/internal/provider"
)

func TestFloor(t *testing.T) {
	cases := map[float64]float64{
		16500:   16000,
		16000:   16000,
		999.99:  0,
		0:       0,
		21999.9: 21000,
	}
	for in, want := range cases {
		require.InDelta(t, want, Floor(in), 0, "floor(%v)", in)
	}
}

func TestTracker_AlertsOnceThenOnLowerFloor(t *testing.T) {
	t0 := time.Date(2022, 11, 9, 12, 0, 0, 0, time.UTC)
	tr := NewTracker("BTC", 16500, DefaultRenotifyWait, DefaultLink)

	// Still above the 16000 floor.
	_, ok := tr.Observe(16100, t0)
	require.False(t, ok)

	a, ok := tr.Observe(15900, t0.Add(5*time.Minute))
	require.True(t, ok)
	require.InDelta(t, 16000, a.Floor, 0)
	require.InDelta(t, 15900, a.Price, 0)
	require.Equal(t, "Lol, BTC is now below $16000\nThe price is now $15900.00\nLive graph: "+DefaultLink, a.Message())

	// Wobbling back over and under the same floor stays quiet.
	_, ok = tr.Observe(16050, t0.Add(10*time.Minute))
	require.False(t, ok)
	_, ok = tr.Observe(15950, t0.Add(15*time.Minute))
	require.False(t, ok)

	// A lower floor alerts straight away.
	a, ok = tr.Observe(14800, t0.Add(20*time.Minute))
	require.True(t, ok)
	require.InDelta(t, 15000, a.Floor, 0)
}

func TestTracker_RenotifiesAfterWait(t *testing.T) {
	t0 := time.Date(2022, 11, 9, 12, 0, 0, 0, time.UTC)
	tr := NewTracker("BTC", 16500, time.Hour, DefaultLink)

	_, ok := tr.Observe(15900, t0)
	require.True(t, ok)
	_, ok = tr.Observe(16100, t0.Add(time.Minute))
	require.False(t, ok)
	_, ok = tr.Observe(15900, t0.Add(30*time.Minute))
	require.False(t, ok, "same floor inside the wait")

	_, ok = tr.Observe(16100, t0.Add(61*time.Minute))
	require.False(t, ok)
	a, ok := tr.Observe(15900, t0.Add(62*time.Minute))
	require.True(t, ok, "same floor after the wait")
	require.InDelta(t, 16000, a.Floor, 0)
}

func TestTracker_SlowSlideWithinFloorIsQuiet(t *testing.T) {
	t0 := time.Now()
	tr := NewTracker("BTC", 16900, DefaultRenotifyWait, DefaultLink)

	for i, p := range []float64{16800, 16500, 16200, 16001} {
		_, ok := tr.Observe(p, t0.Add(time.Duration(i)*time.Minute))
		require.False(t, ok, "price %v", p)
	}
}

type seqProvider struct {
	mu     sync.Mutex
	prices []float64
	errAt  map[int]bool
	calls  int
}

func (s *seqProvider) Name() string { return "seq" }

func (s *seqProvider) Fetch(_ context.Context, symbols []string) ([]provider.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if s.errAt[i] {
		return nil, errors.New("lookup failed")
	}
	if i >= len(s.prices) {
		i = len(s.prices) - 1
	}
	return []provider.Quote{{Symbol: symbols[0], Price: s.prices[i], Currency: "USD"}}, nil
}

type collectNotifier struct {
	mu     sync.Mutex
	alerts []Alert
}

func (c *collectNotifier) Notify(_ context.Context, a Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, a)
	return nil
}

func (c *collectNotifier) snapshot() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Alert(nil), c.alerts...)
}

func TestWatcher_PollsAndAlerts(t *testing.T) {
	p := &seqProvider{prices: []float64{16500, 16400, 15800}, errAt: map[int]bool{1: true}}
	n := &collectNotifier{}
	w := NewWatcher(Config{Interval: 30 * time.Millisecond}, p, n, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return len(n.snapshot()) == 1 }, 3*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	alerts := n.snapshot()
	require.Len(t, alerts, 1)
	require.Equal(t, "BTC", alerts[0].Symbol)
	require.InDelta(t, 16000, alerts[0].Floor, 0)
	require.InDelta(t, 15800, alerts[0].Price, 0)
}

func TestWatcher_InitialLookupFails(t *testing.T) {
	p := &seqProvider{prices: []float64{1}, errAt: map[int]bool{0: true}}
	w := NewWatcher(Config{Interval: time.Hour}, p, &collectNotifier{}, zap.NewNop())

	err := w.Run(context.Background())
	require.ErrorContains(t, err, "initial price lookup")
}

func TestWatcher_InitialLookupRetried(t *testing.T) {
	p := &seqProvider{prices: []float64{16500}, errAt: map[int]bool{0: true}}
	w := NewWatcher(Config{Interval: time.Hour, InitialRetries: 2}, p, &collectNotifier{}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.calls >= 2
	}, 3*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}
