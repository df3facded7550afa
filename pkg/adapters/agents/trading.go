package agents

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nexuswealth/mcu/pkg/domain"
	"github.com/nexuswealth/mcu/pkg/ports"
)

// TradingAgent executes equity or crypto orders through a brokerage
// client and converts fills into ledger effects. The broker is
// expected to de-duplicate by idempotency key, so redelivered
// attempts never double-trade.
type TradingAgent struct {
	id          string
	capability  string
	concurrency int
	broker      ports.BrokerClient
	logger      *zap.Logger
}

// NewEquityAgent creates a trading agent for the equity-trading
// capability.
func NewEquityAgent(id string, concurrency int, broker ports.BrokerClient, logger *zap.Logger) *TradingAgent {
	return &TradingAgent{
		id:          id,
		capability:  domain.CapabilityEquityTrading,
		concurrency: concurrency,
		broker:      broker,
		logger:      logger,
	}
}

// NewCryptoAgent creates a trading agent for the crypto-trading
// capability.
func NewCryptoAgent(id string, concurrency int, broker ports.BrokerClient, logger *zap.Logger) *TradingAgent {
	return &TradingAgent{
		id:          id,
		capability:  domain.CapabilityCryptoTrading,
		concurrency: concurrency,
		broker:      broker,
		logger:      logger,
	}
}

func (a *TradingAgent) ID() string             { return a.id }
func (a *TradingAgent) Capabilities() []string { return []string{a.capability} }
func (a *TradingAgent) MaxConcurrency() int    { return a.concurrency }

// Process executes the job's trade order and reports the resulting
// portfolio effect.
func (a *TradingAgent) Process(ctx context.Context, job *domain.Job) (*domain.Result, error) {
	order := job.Action.Trade
	if order == nil {
		return nil, domain.NewValidationError(fmt.Errorf("job %s carries no trade order", job.ID))
	}

	exec, err := a.broker.Execute(ctx, ports.TradeRequest{
		IdempotencyKey: job.IdempotencyKey,
		Instrument:     order.Instrument,
		Side:           order.Side,
		Quantity:       order.Quantity,
		LimitPrice:     order.LimitPrice,
	})
	if err != nil {
		return nil, err
	}

	notional := exec.FilledQuantity.Mul(exec.FillPrice)
	effect := domain.Effect{
		HoldingsDelta: map[string]decimal.Decimal{},
		Description:   job.Action.Describe(),
	}
	switch order.Side {
	case domain.TradeSideBuy:
		effect.CashDelta = notional.Neg()
		effect.HoldingsDelta[order.Instrument] = exec.FilledQuantity
	case domain.TradeSideSell:
		effect.CashDelta = notional
		effect.HoldingsDelta[order.Instrument] = exec.FilledQuantity.Neg()
	default:
		return nil, domain.NewValidationError(fmt.Errorf("invalid trade side: %q", order.Side))
	}

	a.logger.Info("trade executed",
		zap.String("agent_id", a.id),
		zap.String("job_id", job.ID),
		zap.String("instrument", order.Instrument),
		zap.String("side", string(order.Side)),
		zap.String("notional", notional.String()),
		zap.String("broker_ref", exec.BrokerRef))

	return &domain.Result{
		Effect:    effect,
		BrokerRef: exec.BrokerRef,
	}, nil
}

var _ ports.Agent = (*TradingAgent)(nil)
