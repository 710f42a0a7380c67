// Command watch polls CoinMarketCap and logs an alert whenever BTC falls
// through the $1000 floor below its previous price. Run it with -test to
// point it at cmd/server.
package main

import (
    "context"
    "flag"
    "net/http"
    "os/signal"
    "syscall"
    "time"

    "go.uber.org/zap"

    "quotestub/internal/config"
    "quotestub/internal/crashwatch"
    "quotestub/internal/httpx"
    "quotestub/internal/logger"
    "quotestub/internal/metrics"
    "quotestub/internal/provider/cmc"
    "quotestub/internal/provider/ratelimit"
)

func main() {
    var configPath string
    var useTest bool
    var interval time.Duration
    flag.StringVar(&configPath, "config", "", "path to config.json (optional)")
    flag.BoolVar(&useTest, "test", false, "poll the local mock at "+cmc.TestURL)
    flag.DurationVar(&interval, "interval", 0, "poll interval (default from config, 5m)")
    flag.Parse()

    cfg, err := config.Load(configPath)
    if err != nil { logger.Must("").Fatal("config", zap.Error(err)) }
    log := logger.Must(cfg.LogLevel)
    defer log.Sync()

    if useTest {
        cfg.Watch.URL = cmc.TestURL
        // The mock is free to hammer.
        cfg.Watch.MaxRequestsPerMinute = 0
        cfg.Watch.MinRequestIntervalSec = 0
    }
    if interval > 0 { cfg.Watch.IntervalSec = max(1, int(interval/time.Second)) }
    if err := config.Validate(cfg); err != nil { log.Fatal("config", zap.Error(err)) }
    if !useTest && cfg.Watch.APIKey == "" {
        log.Warn("CMC_API_KEY not set; the production API will reject requests")
    }

    httpClient := httpx.New(cfg.Watch.RequestTimeout())
    client, err := cmc.NewClient(cfg.Watch.APIKey, cmc.WithHTTPClient(httpClient), cmc.WithBaseURL(cfg.Watch.URL))
    if err != nil { log.Fatal("cmc client", zap.Error(err)) }
    p := ratelimit.Wrap(
        cmc.NewProvider(cmc.Config{Convert: cfg.Watch.Convert}, client),
        cfg.Watch.MaxRequestsPerMinute, cfg.Watch.Burst, cfg.Watch.MinRequestInterval(),
    )

    var metricsSrv *http.Server
    if cfg.Watch.MetricsAddr != "" {
        metricsSrv = metrics.Serve(cfg.Watch.MetricsAddr, log)
    }

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    w := crashwatch.NewWatcher(crashwatch.Config{
        Symbol:         cfg.Watch.Symbol,
        Interval:       cfg.Watch.Interval(),
        RenotifyWait:   cfg.Watch.RenotifyWait(),
        InitialRetries: 3,
    }, p, crashwatch.LogNotifier{Log: log}, log)

    log.Info("watching", zap.String("url", cfg.Watch.URL), zap.String("symbol", cfg.Watch.Symbol), zap.Duration("interval", cfg.Watch.Interval()))
    runErr := w.Run(ctx)

    if metricsSrv != nil {
        shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        _ = metricsSrv.Shutdown(shutdownCtx)
    }
    if runErr != nil {
        log.Fatal("watch", zap.Error(runErr))
    }
}
