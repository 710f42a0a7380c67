package main

import (
    "context"
    "encoding/json"
    "flag"
    "fmt"
    "strings"

    "go.uber.org/zap"

    "quotestub/internal/config"
    "quotestub/internal/httpx"
    "quotestub/internal/logger"
    "quotestub/internal/provider"
    "quotestub/internal/provider/cmc"
)

func main() {
    var symbolsCSV, url, apiKey, convert, configPath string
    var useTest bool
    flag.StringVar(&symbolsCSV, "symbols", "BTC", "comma-separated symbols")
    flag.StringVar(&url, "url", "", "quotes/latest endpoint (default from config)")
    flag.BoolVar(&useTest, "test", false, "query the local mock at "+cmc.TestURL)
    flag.StringVar(&apiKey, "api-key", "", "CoinMarketCap API key (CMC_API_KEY)")
    flag.StringVar(&convert, "convert", "", "quote currency (default USD)")
    flag.StringVar(&configPath, "config", "", "path to config.json (optional)")
    flag.Parse()

    cfg, err := config.Load(configPath)
    if err != nil { logger.Must("").Fatal("config", zap.Error(err)) }
    log := logger.Must(cfg.LogLevel)
    defer log.Sync()

    if useTest { cfg.Watch.URL = cmc.TestURL }
    if url != "" { cfg.Watch.URL = url }
    if apiKey != "" { cfg.Watch.APIKey = apiKey }
    if convert != "" { cfg.Watch.Convert = strings.ToUpper(convert) }
    if err := config.Validate(cfg); err != nil { log.Fatal("config", zap.Error(err)) }

    symbols := splitCSV(symbolsCSV)
    if len(symbols) == 0 { log.Fatal("no symbols provided") }

    httpClient := httpx.New(cfg.Watch.RequestTimeout())
    client, err := cmc.NewClient(cfg.Watch.APIKey, cmc.WithHTTPClient(httpClient), cmc.WithBaseURL(cfg.Watch.URL))
    if err != nil { log.Fatal("cmc client", zap.Error(err)) }
    var p provider.Provider = cmc.NewProvider(cmc.Config{Convert: cfg.Watch.Convert}, client)

    ctx, cancel := context.WithTimeout(context.Background(), cfg.Watch.RequestTimeout())
    defer cancel()

    quotes, err := p.Fetch(ctx, symbols)
    if err != nil { log.Fatal("fetch", zap.String("url", cfg.Watch.URL), zap.Error(err)) }
    if len(quotes) < len(symbols) {
        log.Warn("some symbols had no price", zap.Int("requested", len(symbols)), zap.Int("received", len(quotes)))
    }

    out := struct{ Quotes []provider.Quote `json:"quotes"` }{Quotes: quotes}
    b, _ := json.MarshalIndent(out, "", "  ")
    fmt.Println(string(b))
}

func splitCSV(s string) []string {
    parts := strings.Split(s, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p != "" { out = append(out, p) }
    }
    return out
}
