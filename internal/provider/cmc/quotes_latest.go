package cmc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

const maxBody = 1 << 20

var (
	// ErrPriceNotFound is returned when a requested symbol has no price in
	// the response.
	ErrPriceNotFound = errors.New("quote price not found in response")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrRateLimited   = errors.New("rate limited")
)

// StatusError carries an unexpected HTTP status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status code: %d", e.Code)
	}
	return fmt.Sprintf("unexpected status code: %d: %s", e.Code, e.Body)
}

// QuotesLatest fetches the latest prices for symbols converted to convert
// (USD when empty). Prices are read from data.<SYM>[0].quote.<CONVERT>.price.
//
// Symbols missing from the response are reported with ErrPriceNotFound;
// the prices that were found are still returned.
func (c *Client) QuotesLatest(ctx context.Context, symbols []string, convert string, opts ...ClientOption) (map[string]float64, error) {
	var override = &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		header:     c.header.Clone(),
		query:      c.query,
	}
	for _, opt := range opts {
		opt(override)
	}
	if len(symbols) == 0 {
		return nil, errors.New("no symbols requested")
	}
	if convert == "" {
		convert = "USD"
	}
	syms := make([]string, len(symbols))
	for i, s := range symbols {
		syms[i] = normalize(s)
	}

	query := maps.Clone(override.query)
	query.Set("symbol", strings.Join(syms, ","))
	query.Set("convert", convert)

	url := fmt.Sprintf("%s?%s", override.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = override.header

	res, err := override.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	switch res.StatusCode {
	case http.StatusOK:
		break

	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, errorMessage(body))

	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, errorMessage(body))

	default:
		return nil, &StatusError{Code: res.StatusCode, Body: errorMessage(body)}
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("decoding quotes response: invalid JSON")
	}

	prices := make(map[string]float64, len(syms))
	var missing []string
	for _, sym := range syms {
		// {
		//   "data": {
		//     "BTC": [
		//       {"quote": {"USD": {"price": 16500}}}
		//     ]
		//   }
		// }
		r := gjson.GetBytes(body, fmt.Sprintf("data.%s.0.quote.%s.price", sym, convert))
		if r.Type != gjson.Number {
			missing = append(missing, sym)
			continue
		}
		prices[sym] = r.Float()
	}
	if len(missing) > 0 {
		return prices, fmt.Errorf("%w: %s", ErrPriceNotFound, strings.Join(missing, ","))
	}
	return prices, nil
}

func normalize(sym string) string { return strings.ToUpper(strings.TrimSpace(sym)) }

// errorMessage pulls status.error_message out of a CoinMarketCap error body.
func errorMessage(body []byte) string {
	if msg := gjson.GetBytes(body, "status.error_message"); msg.Exists() {
		return msg.String()
	}
	return ""
}
