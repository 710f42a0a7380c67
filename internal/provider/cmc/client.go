package cmc

import (
	"net/http"
	"net/url"
)

const (
	// BaseURL is the production quotes/latest endpoint.
	BaseURL = "https://pro-api.coinmarketcap.com/v2/cryptocurrency/quotes/latest"
	// TestURL is where cmd/server listens by default.
	TestURL = "http://localhost:4100"

	apiKeyHeader = "X-CMC_PRO_API_KEY"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=cmc_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the CoinMarketCap quotes API.
type Client struct {
	// baseURL is the full quotes/latest URL; query parameters are appended.
	baseURL string
	// httpClient is the HTTP httpClient.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// query contains additional query parameters to be sent with each request.
	query url.Values
}

// ClientOption is a configuration option for the client.
type ClientOption func(*Client)

// WithBaseURL sets the quotes endpoint.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// NewClient creates a new CoinMarketCap client. An empty key is allowed
// for the local mock, which ignores authentication.
func NewClient(key string, options ...ClientOption) (*Client, error) {
	var client = &Client{
		baseURL:    BaseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		query:      url.Values{},
	}
	client.header.Set("Accept", "application/json")
	if key != "" {
		client.header.Set(apiKeyHeader, key)
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}
