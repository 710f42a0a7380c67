package mockquote

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"quotestub/internal/metrics"
)

// Response mirrors the subset of the CoinMarketCap v2 quotes/latest
// payload that clients read: data.<SYM>[0].quote.USD.price.
type Response struct {
	Data map[string][]Entry `json:"data"`
}

type Entry struct {
	Quote Quote `json:"quote"`
}

type Quote struct {
	USD USDQuote `json:"USD"`
}

type USDQuote struct {
	Price float64 `json:"price"`
}

// Body builds the response for a snapshot. USDT is present only in the
// two-currency variant.
func Body(s Snapshot) Response {
	data := map[string][]Entry{
		BTC: {{Quote: Quote{USD: USDQuote{Price: s.BTC}}}},
	}
	if s.IncludeUSDT {
		data[USDT] = []Entry{{Quote: Quote{USD: USDQuote{Price: s.USDT}}}}
	}
	return Response{Data: data}
}

// Handler answers every path and method with 200 and the current quotes.
func Handler(state *State, log *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.MockRequests.WithLabelValues(r.Method).Inc()
		log.Debug("quote request", zap.String("method", r.Method), zap.String("path", r.URL.Path))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(Body(state.Snapshot())); err != nil {
			log.Warn("writing quote response", zap.Error(err))
		}
	})
}
