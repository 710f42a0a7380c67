package config

import (
    "encoding/json"
    "errors"
    "fmt"
    "net"
    "os"
    "strconv"
    "time"

    "github.com/caarlos0/env/v11"
    "github.com/go-playground/validator/v10"
    "github.com/joho/godotenv"
)

// Mock configures cmd/server.
type Mock struct {
    Host        string  `json:"host" env:"MOCK_HOST" validate:"required"`
    Port        int     `json:"port" env:"MOCK_PORT" validate:"min=1,max=65535"`
    BTCPrice    float64 `json:"btc_price" env:"MOCK_BTC_PRICE" validate:"gte=0"`
    USDTPrice   float64 `json:"usdt_price" env:"MOCK_USDT_PRICE" validate:"gte=0"`
    IncludeUSDT bool    `json:"include_usdt" env:"MOCK_INCLUDE_USDT"`
    PricesFile  string  `json:"prices_file" env:"MOCK_PRICES_FILE"`
    MetricsAddr string  `json:"metrics_addr" env:"MOCK_METRICS_ADDR"`
    Console     bool    `json:"console" env:"CONSOLE_ENABLED"`
}

// Addr is the listen address of the quote server.
func (m Mock) Addr() string { return net.JoinHostPort(m.Host, strconv.Itoa(m.Port)) }

// Watch configures cmd/watch and cmd/fetch.
type Watch struct {
    URL                   string `json:"url" env:"CMC_URL" validate:"required,url"`
    APIKey                string `json:"api_key" env:"CMC_API_KEY"`
    Symbol                string `json:"symbol" env:"WATCH_SYMBOL" validate:"required,alphanum"`
    Convert               string `json:"convert" env:"WATCH_CONVERT" validate:"required,alpha"`
    IntervalSec           int    `json:"interval_sec" env:"WATCH_INTERVAL_SEC" validate:"min=1"`
    RenotifyWaitSec       int    `json:"renotify_wait_sec" env:"WATCH_RENOTIFY_WAIT_SEC" validate:"min=1"`
    RequestTimeoutSec     int    `json:"request_timeout_sec" env:"REQUEST_TIMEOUT_SEC" validate:"min=1"`
    MaxRequestsPerMinute  int    `json:"max_requests_per_minute" env:"WATCH_MAX_RPM" validate:"gte=0"`
    Burst                 int    `json:"burst" env:"WATCH_BURST" validate:"gte=0"`
    MinRequestIntervalSec int    `json:"min_request_interval_sec" env:"WATCH_MIN_INTERVAL_SEC" validate:"gte=0"`
    MetricsAddr           string `json:"metrics_addr" env:"WATCH_METRICS_ADDR"`
}

func (w Watch) Interval() time.Duration       { return time.Duration(w.IntervalSec) * time.Second }
func (w Watch) RenotifyWait() time.Duration   { return time.Duration(w.RenotifyWaitSec) * time.Second }
func (w Watch) RequestTimeout() time.Duration { return time.Duration(w.RequestTimeoutSec) * time.Second }
func (w Watch) MinRequestInterval() time.Duration {
    return time.Duration(w.MinRequestIntervalSec) * time.Second
}

type Config struct {
    LogLevel string `json:"log_level" env:"LOG_LEVEL"`
    Mock     Mock   `json:"mock"`
    Watch    Watch  `json:"watch"`
}

func Default() Config {
    return Config{
        LogLevel: "info",
        Mock: Mock{
            Host:        "localhost",
            Port:        4100,
            BTCPrice:    16500,
            USDTPrice:   0.9998,
            MetricsAddr: "localhost:4101",
            Console:     true,
        },
        Watch: Watch{
            URL:               "https://pro-api.coinmarketcap.com/v2/cryptocurrency/quotes/latest",
            Symbol:            "BTC",
            Convert:           "USD",
            IntervalSec:       300,
            RenotifyWaitSec:   12 * 3600,
            RequestTimeoutSec: 15,
            // Basic plan: 10k credits a month is roughly one call every five minutes.
            MaxRequestsPerMinute: 1,
            Burst:                1,
        },
    }
}

var validate = validator.New()

// Load builds the configuration in layers: defaults, then the JSON file at
// path (CONFIG_FILE or ./config.json when empty; a missing file is fine),
// then environment variables, including a .env file if present.
func Load(path string) (Config, error) {
    cfg := Default()
    _ = godotenv.Load()
    if path == "" {
        path = os.Getenv("CONFIG_FILE")
    }
    if path == "" {
        if _, err := os.Stat("config.json"); err == nil {
            path = "config.json"
        }
    }
    if path != "" {
        b, err := os.ReadFile(path)
        if err != nil && !errors.Is(err, os.ErrNotExist) {
            return cfg, fmt.Errorf("read config: %w", err)
        }
        if err == nil {
            if err := json.Unmarshal(b, &cfg); err != nil {
                return cfg, fmt.Errorf("parse config: %w", err)
            }
        }
    }
    if err := env.Parse(&cfg); err != nil {
        return cfg, fmt.Errorf("parse env: %w", err)
    }
    if err := Validate(cfg); err != nil {
        return cfg, err
    }
    return cfg, nil
}

// Validate checks field constraints. Commands call it again after applying
// their flags.
func Validate(cfg Config) error {
    if err := validate.Struct(cfg); err != nil {
        return fmt.Errorf("invalid config: %w", err)
    }
    return nil
}
