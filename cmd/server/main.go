package main

import (
    "compress/gzip"
    "context"
    "errors"
    "flag"
    "io"
    "net/http"
    "os"
    "os/signal"
    "strings"
    "sync"
    "syscall"
    "time"

    "go.uber.org/zap"

    "quotestub/internal/config"
    "quotestub/internal/console"
    "quotestub/internal/logger"
    "quotestub/internal/metrics"
    "quotestub/internal/mockquote"
    "quotestub/internal/pricefile"
)

func main() {
    var configPath, pricesFile string
    var port int
    var usdt, noConsole bool
    flag.StringVar(&configPath, "config", "", "path to config.json (optional, CONFIG_FILE)")
    flag.IntVar(&port, "port", 0, "listen port (default 4100)")
    flag.BoolVar(&usdt, "usdt", false, "serve the two-currency variant (BTC + USDT)")
    flag.BoolVar(&noConsole, "no-console", false, "do not read commands from stdin")
    flag.StringVar(&pricesFile, "prices-file", "", "YAML price file to apply and watch")
    flag.Parse()

    cfg, err := config.Load(configPath)
    if err != nil {
        logger.Must("").Fatal("config", zap.Error(err))
    }
    if port != 0 { cfg.Mock.Port = port }
    if usdt { cfg.Mock.IncludeUSDT = true }
    if noConsole { cfg.Mock.Console = false }
    if pricesFile != "" { cfg.Mock.PricesFile = pricesFile }

    log := logger.Must(cfg.LogLevel)
    defer log.Sync()
    if err := config.Validate(cfg); err != nil {
        log.Fatal("config", zap.Error(err))
    }

    state := mockquote.NewState(cfg.Mock.BTCPrice, cfg.Mock.USDTPrice, cfg.Mock.IncludeUSDT)

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    if cfg.Mock.PricesFile != "" {
        w, err := pricefile.NewWatcher(cfg.Mock.PricesFile, state, log)
        if err != nil {
            log.Fatal("price file", zap.Error(err))
        }
        if err := w.Reload(); err != nil {
            log.Warn("price file not applied at startup", zap.Error(err))
        }
        go w.Run(ctx)
    }

    var metricsSrv *http.Server
    if cfg.Mock.MetricsAddr != "" {
        metricsSrv = metrics.Serve(cfg.Mock.MetricsAddr, log)
    }

    srv := &http.Server{
        Addr:              cfg.Mock.Addr(),
        Handler:           newHandler(state, log),
        ReadHeaderTimeout: 5 * time.Second,
        ReadTimeout:       15 * time.Second,
        WriteTimeout:      20 * time.Second,
        IdleTimeout:       60 * time.Second,
    }

    go func() {
        snap := state.Snapshot()
        log.Info("mock quote server listening",
            zap.String("addr", srv.Addr),
            zap.Float64("btc", snap.BTC),
            zap.Bool("include_usdt", snap.IncludeUSDT))
        if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            log.Fatal("server", zap.Error(err))
        }
    }()

    if cfg.Mock.Console {
        go func() {
            err := console.New(os.Stdin, os.Stdout, state, log).Run(ctx)
            switch {
            case errors.Is(err, console.ErrQuit):
                stop()
            case err != nil:
                log.Warn("console", zap.Error(err))
            }
        }()
    }

    // graceful shutdown
    <-ctx.Done()
    log.Info("shutting down")
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    _ = srv.Shutdown(shutdownCtx)
    if metricsSrv != nil {
        _ = metricsSrv.Shutdown(shutdownCtx)
    }
}

// newHandler wraps the quote handler in the server middleware.
func newHandler(state *mockquote.State, log *zap.Logger) http.Handler {
    mux := http.NewServeMux()
    // "/" matches every path and method.
    mux.Handle("/", mockquote.Handler(state, log))
    return withCORS(withGzip(recoverPanic(mux, log)))
}

func withCORS(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        // Lets a browser page under test read the canned quotes.
        w.Header().Set("Access-Control-Allow-Origin", "*")
        w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Accept,X-CMC_PRO_API_KEY")
        next.ServeHTTP(w, r)
    })
}

// withGzip compresses response when client supports gzip.
func withGzip(next http.Handler) http.Handler {
    var gzPool = sync.Pool{New: func() any {
        w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
        return w
    }}
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
            next.ServeHTTP(w, r)
            return
        }
        gz := gzPool.Get().(*gzip.Writer)
        gz.Reset(w)
        defer func() {
            _ = gz.Close()
            gz.Reset(io.Discard)
            gzPool.Put(gz)
        }()
        w.Header().Set("Content-Encoding", "gzip")
        w.Header().Add("Vary", "Accept-Encoding")
        next.ServeHTTP(gzipResponseWriter{ResponseWriter: w, Writer: gz}, r)
    })
}

type gzipResponseWriter struct {
    http.ResponseWriter
    Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
    return g.Writer.Write(b)
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler, log *zap.Logger) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        defer func() {
            if rec := recover(); rec != nil {
                log.Error("handler panic", zap.Any("panic", rec), zap.String("path", r.URL.Path))
                http.Error(w, "internal server error", http.StatusInternalServerError)
            }
        }()
        next.ServeHTTP(w, r)
    })
}
