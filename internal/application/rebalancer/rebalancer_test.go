package rebalancer

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nexuswealth/mcu/pkg/adapters/storage/memory"
	"github.com/nexuswealth/mcu/pkg/domain"
	"github.com/nexuswealth/mcu/pkg/ports"
)

type quoteTable map[string]decimal.Decimal

func (q quoteTable) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	price, ok := q[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("no quote for %s", symbol)
	}
	return price, nil
}

// captureSubmitter records submitted decisions without executing them.
type captureSubmitter struct {
	decisions []domain.Decision
}

func (c *captureSubmitter) Submit(ctx context.Context, decision domain.Decision) ([]domain.JobHandle, error) {
	c.decisions = append(c.decisions, decision)
	handles := make([]domain.JobHandle, len(decision.Actions))
	return handles, nil
}

func seedAccount(t *testing.T, store *memory.Store, cash int64, holdings map[string]int64) {
	t.Helper()
	state := domain.NewPortfolioState("acct-1", decimal.NewFromInt(cash))
	for symbol, qty := range holdings {
		state.Holdings[symbol] = decimal.NewFromInt(qty)
	}
	require.NoError(t, store.CreatePortfolio(context.Background(), state))
}

func TestRunProposesSellsBeforeBuys(t *testing.T) {
	store := memory.NewStore()
	// 5000 cash + 50 AAPL @ 100 = 10000 total. AAPL sits at 50%
	// against a 30% target, MSFT at 0% against 20%.
	seedAccount(t, store, 5000, map[string]int64{"AAPL": 50})

	quotes := quoteTable{"AAPL": decimal.NewFromInt(100), "MSFT": decimal.NewFromInt(200)}
	targets := []Target{
		{Symbol: "AAPL", Type: domain.ActionTypeEquityTrade, Category: "Equities", WeightPct: decimal.NewFromInt(30)},
		{Symbol: "MSFT", Type: domain.ActionTypeEquityTrade, Category: "Equities", WeightPct: decimal.NewFromInt(20)},
	}
	sub := &captureSubmitter{}
	r := New("acct-1", targets, decimal.NewFromInt(1), store, quotes, sub, ports.SystemClock(), zap.NewNop())

	handles, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, handles, 2)
	require.Len(t, sub.decisions, 1)

	actions := sub.decisions[0].Actions
	require.Len(t, actions, 2)

	// Sell 20% drift of AAPL first, then buy MSFT with the freed cash.
	assert.Equal(t, domain.TradeSideSell, actions[0].Trade.Side)
	assert.Equal(t, "AAPL", actions[0].Trade.Instrument)
	assert.True(t, actions[0].Trade.Quantity.Equal(decimal.NewFromInt(20)), "got %s", actions[0].Trade.Quantity)

	assert.Equal(t, domain.TradeSideBuy, actions[1].Trade.Side)
	assert.Equal(t, "MSFT", actions[1].Trade.Instrument)
	assert.True(t, actions[1].Trade.Quantity.Equal(decimal.NewFromInt(10)), "got %s", actions[1].Trade.Quantity)

	assert.Greater(t, actions[0].Priority, actions[1].Priority)
}

func TestRunSkipsWithinTolerance(t *testing.T) {
	store := memory.NewStore()
	// 50 AAPL @ 100 = 5000 of 10000 total: exactly on target.
	seedAccount(t, store, 5000, map[string]int64{"AAPL": 50})

	quotes := quoteTable{"AAPL": decimal.NewFromInt(100)}
	targets := []Target{
		{Symbol: "AAPL", Type: domain.ActionTypeEquityTrade, Category: "Equities", WeightPct: decimal.NewFromInt(50)},
	}
	sub := &captureSubmitter{}
	r := New("acct-1", targets, decimal.NewFromInt(1), store, quotes, sub, ports.SystemClock(), zap.NewNop())

	handles, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, handles)
	assert.Empty(t, sub.decisions)
}

func TestRunIncrementsEpochPerSubmission(t *testing.T) {
	store := memory.NewStore()
	seedAccount(t, store, 10000, nil)

	quotes := quoteTable{"AAPL": decimal.NewFromInt(100)}
	targets := []Target{
		{Symbol: "AAPL", Type: domain.ActionTypeEquityTrade, Category: "Equities", WeightPct: decimal.NewFromInt(40)},
	}
	sub := &captureSubmitter{}
	r := New("acct-1", targets, decimal.NewFromInt(1), store, quotes, sub, ports.SystemClock(), zap.NewNop())

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	_, err = r.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sub.decisions, 2)
	assert.Equal(t, uint64(1), sub.decisions[0].Epoch)
	assert.Equal(t, uint64(2), sub.decisions[1].Epoch)
}

func TestRunUnknownQuoteFails(t *testing.T) {
	store := memory.NewStore()
	seedAccount(t, store, 1000, nil)

	targets := []Target{
		{Symbol: "GONE", Type: domain.ActionTypeEquityTrade, Category: "Equities", WeightPct: decimal.NewFromInt(10)},
	}
	r := New("acct-1", targets, decimal.NewFromInt(1), store, quoteTable{}, &captureSubmitter{}, ports.SystemClock(), zap.NewNop())

	_, err := r.Run(context.Background())
	assert.Error(t, err)
}
