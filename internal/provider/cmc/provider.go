package cmc

import (
	"context"
	"errors"
	"time"

	"quotestub/internal/provider"
)

// Config configures the Provider adapter.
type Config struct {
	Name    string
	Convert string
}

// Provider adapts Client to provider.Provider.
type Provider struct {
	cfg    Config
	client *Client
	now    func() time.Time
}

func NewProvider(cfg Config, client *Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "CoinMarketCap"
	}
	if cfg.Convert == "" {
		cfg.Convert = "USD"
	}
	return &Provider{cfg: cfg, client: client, now: time.Now}
}

func (p *Provider) Name() string { return p.cfg.Name }

// Fetch returns one quote per symbol found. It fails only when none of
// the requested symbols came back.
func (p *Provider) Fetch(ctx context.Context, symbols []string) ([]provider.Quote, error) {
	prices, err := p.client.QuotesLatest(ctx, symbols, p.cfg.Convert)
	if err != nil && !(errors.Is(err, ErrPriceNotFound) && len(prices) > 0) {
		return nil, err
	}
	now := p.now().UTC()
	out := make([]provider.Quote, 0, len(prices))
	for _, s := range symbols {
		// QuotesLatest keys by the normalized symbol.
		sym := normalize(s)
		price, ok := prices[sym]
		if !ok {
			continue
		}
		out = append(out, provider.Quote{
			Symbol:     sym,
			Price:      price,
			Currency:   p.cfg.Convert,
			Source:     p.cfg.Name,
			ReceivedAt: now,
		})
	}
	return out, nil
}
