package crashwatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"quotestub/internal/metrics"
	"quotestub/internal/provider"
)

// Notifier delivers alerts.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// LogNotifier writes alerts to the log.
type LogNotifier struct {
	Log *zap.Logger
}

func (n LogNotifier) Notify(_ context.Context, a Alert) error {
	n.Log.Warn(a.Message(),
		zap.String("symbol", a.Symbol),
		zap.Float64("floor", a.Floor),
		zap.Float64("price", a.Price))
	return nil
}

type Config struct {
	Symbol       string
	Interval     time.Duration
	RenotifyWait time.Duration
	Link         string
	// InitialRetries bounds the retries of the first lookup.
	InitialRetries uint64
}

type Watcher struct {
	cfg      Config
	provider provider.Provider
	notifier Notifier
	log      *zap.Logger

	tracker *Tracker
}

func NewWatcher(cfg Config, p provider.Provider, n Notifier, log *zap.Logger) *Watcher {
	if cfg.Symbol == "" {
		cfg.Symbol = "BTC"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.RenotifyWait <= 0 {
		cfg.RenotifyWait = DefaultRenotifyWait
	}
	if cfg.Link == "" {
		cfg.Link = DefaultLink
	}
	return &Watcher{cfg: cfg, provider: p, notifier: n, log: log}
}

// Run takes the initial price, then polls on the configured interval until
// ctx is done. It fails only when the initial lookup cannot be made.
func (w *Watcher) Run(ctx context.Context) error {
	var initial float64
	op := func() error {
		p, err := w.lookup(ctx)
		if err != nil {
			w.log.Warn("initial price lookup failed", zap.Error(err))
			return err
		}
		initial = p
		return nil
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), w.cfg.InitialRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return fmt.Errorf("initial price lookup: %w", err)
	}
	w.tracker = NewTracker(w.cfg.Symbol, initial, w.cfg.RenotifyWait, w.cfg.Link)
	w.log.Info("got price", zap.String("symbol", w.cfg.Symbol), zap.Float64("price", initial))

	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(w.cfg.Interval),
		gocron.NewTask(func() { w.tick(ctx) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule poll: %w", err)
	}
	s.Start()
	<-ctx.Done()
	w.log.Debug("got shutdown signal, goodbye")
	if err := s.Shutdown(); err != nil {
		w.log.Warn("scheduler shutdown", zap.Error(err))
	}
	return nil
}

func (w *Watcher) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("panic in poll", zap.Any("panic", r), zap.String("stacktrace", string(debug.Stack())))
		}
	}()
	if ctx.Err() != nil {
		return
	}
	price, err := w.lookup(ctx)
	if err != nil {
		// A failed lookup leaves the last good price in place.
		w.log.Warn("price lookup failed", zap.Error(err))
		return
	}
	floor := Floor(w.tracker.Price())
	w.log.Debug("got price", zap.Float64("price", price), zap.Float64("thresh", floor))

	alert, ok := w.tracker.Observe(price, time.Now())
	if !ok {
		return
	}
	metrics.WatchAlerts.Inc()
	if err := w.notifier.Notify(ctx, alert); err != nil {
		w.log.Error("notify failed", zap.Error(err))
	}
}

func (w *Watcher) lookup(ctx context.Context) (float64, error) {
	quotes, err := w.provider.Fetch(ctx, []string{w.cfg.Symbol})
	if err != nil {
		metrics.WatchFetchErrors.Inc()
		return 0, err
	}
	for _, q := range quotes {
		if q.Symbol == w.cfg.Symbol {
			return q.Price, nil
		}
	}
	metrics.WatchFetchErrors.Inc()
	return 0, errors.New("quote price not found in response")
}
