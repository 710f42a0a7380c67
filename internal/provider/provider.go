package provider

import (
    "context"
    "time"
)

// Quote is the normalized shape returned by all providers.
type Quote struct {
    Symbol     string    `json:"symbol"`
    Price      float64   `json:"price"`
    Currency   string    `json:"currency"`
    Source     string    `json:"source"`
    ReceivedAt time.Time `json:"received_at"`
}

type Provider interface {
    Name() string
    Fetch(ctx context.Context, symbols []string) ([]Quote, error)
}
