// Package broker provides brokerage client implementations for the
// trading agents.
package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexuswealth/mcu/pkg/domain"
	"github.com/nexuswealth/mcu/pkg/ports"
)

// Simulator fills orders immediately at the current quote, or at the
// limit price when one is set. Fills are de-duplicated by idempotency
// key, so a redelivered job attempt returns the original execution
// instead of trading twice.
type Simulator struct {
	quotes ports.QuoteProvider
	logger *zap.Logger

	mu    sync.Mutex
	fills map[string]ports.TradeExecution

	// failNext, when set, fails the next Execute call with a transient
	// error. Used to exercise retry paths.
	failNext error
}

// NewSimulator creates a simulated brokerage over the quote source.
func NewSimulator(quotes ports.QuoteProvider, logger *zap.Logger) *Simulator {
	return &Simulator{
		quotes: quotes,
		logger: logger,
		fills:  make(map[string]ports.TradeExecution),
	}
}

// FailNext makes the next Execute call return the given error once.
func (s *Simulator) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// Execute fills the order at the quote or limit price.
func (s *Simulator) Execute(ctx context.Context, req ports.TradeRequest) (ports.TradeExecution, error) {
	s.mu.Lock()
	if prior, ok := s.fills[req.IdempotencyKey]; ok {
		s.mu.Unlock()
		s.logger.Debug("duplicate order suppressed",
			zap.String("idempotency_key", req.IdempotencyKey))
		return prior, nil
	}
	if err := s.failNext; err != nil {
		s.failNext = nil
		s.mu.Unlock()
		return ports.TradeExecution{}, domain.NewTransientError(err)
	}
	s.mu.Unlock()

	price := req.LimitPrice
	if price.IsZero() {
		quote, err := s.quotes.Quote(ctx, req.Instrument)
		if err != nil {
			return ports.TradeExecution{}, domain.NewValidationError(
				fmt.Errorf("unsupported instrument %s: %w", req.Instrument, err))
		}
		price = quote
	}

	exec := ports.TradeExecution{
		FilledQuantity: req.Quantity,
		FillPrice:      price,
		BrokerRef:      uuid.New().String(),
	}

	s.mu.Lock()
	s.fills[req.IdempotencyKey] = exec
	s.mu.Unlock()

	s.logger.Info("order filled",
		zap.String("instrument", req.Instrument),
		zap.String("side", string(req.Side)),
		zap.String("quantity", req.Quantity.String()),
		zap.String("fill_price", price.String()),
		zap.String("broker_ref", exec.BrokerRef))

	return exec, nil
}

var _ ports.BrokerClient = (*Simulator)(nil)
