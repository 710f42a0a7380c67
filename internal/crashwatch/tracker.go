// Package crashwatch polls a quote provider and raises an alert when a coin
// falls through the $1000 floor under its previous price.
package crashwatch

import (
	"fmt"
	"math"
	"time"
)

const (
	Step = 1000

	DefaultRenotifyWait = 12 * time.Hour
	DefaultLink         = "https://coinmarketcap.com/currencies/bitcoin/"
)

// Floor truncates price to a multiple of Step.
func Floor(price float64) float64 {
	return math.Trunc(price/Step) * Step
}

// Alert is one crash notification.
type Alert struct {
	Symbol string
	Floor  float64
	Price  float64
	Link   string
	At     time.Time
}

func (a Alert) Message() string {
	return fmt.Sprintf("Lol, %s is now below $%.0f\nThe price is now $%.2f\nLive graph: %s",
		a.Symbol, a.Floor, a.Price, a.Link)
}

// Tracker holds the alerting state between observations. It is not safe
// for concurrent use.
type Tracker struct {
	symbol       string
	link         string
	renotifyWait time.Duration

	price      float64
	lastThresh float64
	lastNotify time.Time
}

// NewTracker starts tracking from an initial price. The first alert is
// possible as soon as the price drops under Floor(initial).
func NewTracker(symbol string, initial float64, renotifyWait time.Duration, link string) *Tracker {
	return &Tracker{
		symbol:       symbol,
		link:         link,
		renotifyWait: renotifyWait,
		price:        initial,
		lastThresh:   initial,
	}
}

func (t *Tracker) Price() float64 { return t.price }

// Observe records a new price and reports whether it warrants an alert.
// A drop alerts when it breaks a lower floor than the last alert, or when
// the renotify wait has passed since the last alert.
func (t *Tracker) Observe(price float64, now time.Time) (Alert, bool) {
	floor := Floor(t.price)
	t.price = price
	if price >= floor {
		return Alert{}, false
	}
	if !(floor < t.lastThresh || now.Sub(t.lastNotify) >= t.renotifyWait) {
		return Alert{}, false
	}
	t.lastThresh = floor
	t.lastNotify = now
	return Alert{Symbol: t.symbol, Floor: floor, Price: price, Link: t.link, At: now}, true
}
