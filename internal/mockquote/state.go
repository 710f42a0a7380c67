// Package mockquote serves a canned CoinMarketCap "quotes/latest" payload
// whose prices can be changed while the server runs.
package mockquote

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"quotestub/internal/metrics"
)

const (
	BTC  = "BTC"
	USDT = "USDT"

	DefaultBTCPrice  = 16500
	DefaultUSDTPrice = 0.9998
)

var (
	ErrUnknownSymbol = errors.New("unknown symbol")
	ErrInvalidPrice  = errors.New("invalid price")
)

// Snapshot is a consistent copy of the served prices.
type Snapshot struct {
	BTC         float64
	USDT        float64
	IncludeUSDT bool
}

// State holds the prices handed out by Handler. Writers are the console
// and the price file watcher; readers are request handlers.
type State struct {
	mu          sync.RWMutex
	btc         float64
	usdt        float64
	includeUSDT bool
}

func NewState(btc, usdt float64, includeUSDT bool) *State {
	s := &State{btc: btc, usdt: usdt, includeUSDT: includeUSDT}
	s.publish()
	return s
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{BTC: s.btc, USDT: s.usdt, IncludeUSDT: s.includeUSDT}
}

// Price returns the USD price for sym (case-insensitive).
func (s *State) Price(sym string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch strings.ToUpper(sym) {
	case BTC:
		return s.btc, nil
	case USDT:
		return s.usdt, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSymbol, sym)
}

// Validate reports whether price can be served for sym. Negative, NaN and
// infinite prices cannot be encoded as a quote.
func Validate(sym string, price float64) error {
	switch strings.ToUpper(sym) {
	case BTC, USDT:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSymbol, sym)
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidPrice, price)
	}
	return nil
}

// SetPrice replaces the USD price for sym.
func (s *State) SetPrice(sym string, price float64) error {
	if err := Validate(sym, price); err != nil {
		return err
	}
	s.mu.Lock()
	if strings.ToUpper(sym) == BTC {
		s.btc = price
	} else {
		s.usdt = price
	}
	s.mu.Unlock()
	s.publish()
	return nil
}

// SetIncludeUSDT switches between the single and two-currency payloads.
func (s *State) SetIncludeUSDT(on bool) {
	s.mu.Lock()
	s.includeUSDT = on
	s.mu.Unlock()
}

func (s *State) publish() {
	snap := s.Snapshot()
	metrics.MockPrice.WithLabelValues(BTC).Set(snap.BTC)
	metrics.MockPrice.WithLabelValues(USDT).Set(snap.USDT)
}
