package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexuswealth/mcu/pkg/domain"
)

// TradeRequest is the normalized order shape sent to a brokerage
// client. IdempotencyKey lets the client de-duplicate replays of the
// same job attempt.
type TradeRequest struct {
	IdempotencyKey string
	Instrument     string
	Side           domain.TradeSide
	Quantity       decimal.Decimal
	LimitPrice     decimal.Decimal // zero means market order
}

// TradeExecution is the normalized fill report.
type TradeExecution struct {
	FilledQuantity decimal.Decimal
	FillPrice      decimal.Decimal
	BrokerRef      string
}

// BrokerClient executes orders against an external market. Failures
// must be typed with the domain error taxonomy.
type BrokerClient interface {
	Execute(ctx context.Context, req TradeRequest) (TradeExecution, error)
}

// QuoteProvider answers current prices for portfolio valuation.
type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// InstrumentInfo describes a tradable instrument for reporting.
type InstrumentInfo struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// InstrumentCatalog resolves instrument metadata for dashboard views.
type InstrumentCatalog interface {
	Describe(ctx context.Context, symbol string) (InstrumentInfo, error)
}

// Tick is one market data point ingested by the time-series store.
type Tick struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// TickWriter is the ingestion boundary of the external time-series
// store.
type TickWriter interface {
	WriteTick(ctx context.Context, tick Tick) error
}
