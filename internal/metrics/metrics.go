package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	// Mock server
	MockRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotestub_mock_requests_total",
			Help: "Requests answered by the mock quote server",
		},
		[]string{"method"},
	)
	MockPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "quotestub_mock_price_usd",
			Help: "Price currently served by the mock, per symbol",
		},
		[]string{"symbol"},
	)

	// Crash watcher
	WatchFetchErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quotestub_watch_fetch_errors_total",
			Help: "Failed price lookups in the crash watcher",
		})
	WatchAlerts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quotestub_watch_alerts_total",
			Help: "Crash alerts emitted",
		})
)

func init() {
	prometheus.MustRegister(MockRequests, MockPrice, WatchFetchErrors, WatchAlerts)
}

// Serve exposes /metrics on addr in the background. The returned server
// is shut down by the caller.
func Serve(addr string, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("metrics listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", zap.Error(err))
		}
	}()
	return srv
}
