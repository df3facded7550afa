// Package marketdata provides quote sources for valuation and the
// risk gate, plus a feeder that streams ticks into a time-series
// writer.
package marketdata

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/nexuswealth/mcu/pkg/ports"
)

// StaticQuotes is an in-memory quote table and instrument catalog.
// Prices are updated by the feeder or by tests; reads are safe for
// concurrent use.
type StaticQuotes struct {
	mu          sync.RWMutex
	prices      map[string]decimal.Decimal
	instruments map[string]ports.InstrumentInfo
}

// NewStaticQuotes creates an empty quote table.
func NewStaticQuotes() *StaticQuotes {
	return &StaticQuotes{
		prices:      make(map[string]decimal.Decimal),
		instruments: make(map[string]ports.InstrumentInfo),
	}
}

// AddInstrument registers an instrument with its starting price.
func (q *StaticQuotes) AddInstrument(info ports.InstrumentInfo, price decimal.Decimal) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.instruments[info.Symbol] = info
	q.prices[info.Symbol] = price
}

// SetQuote updates the price for a known symbol.
func (q *StaticQuotes) SetQuote(symbol string, price decimal.Decimal) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.prices[symbol] = price
}

// Quote returns the current price for a symbol.
func (q *StaticQuotes) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	price, ok := q.prices[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("no quote for %s", symbol)
	}
	return price, nil
}

// Describe returns instrument metadata for dashboard views.
func (q *StaticQuotes) Describe(ctx context.Context, symbol string) (ports.InstrumentInfo, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	info, ok := q.instruments[symbol]
	if !ok {
		return ports.InstrumentInfo{}, fmt.Errorf("unknown instrument: %s", symbol)
	}
	return info, nil
}

// Symbols returns every known symbol.
func (q *StaticQuotes) Symbols() []string {
	q.mu.RLock()
	defer q.mu.RUnlock()
	symbols := make([]string, 0, len(q.prices))
	for symbol := range q.prices {
		symbols = append(symbols, symbol)
	}
	return symbols
}

var (
	_ ports.QuoteProvider     = (*StaticQuotes)(nil)
	_ ports.InstrumentCatalog = (*StaticQuotes)(nil)
)
