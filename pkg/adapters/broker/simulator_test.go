package broker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

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

func buyRequest(key string, qty int64) ports.TradeRequest {
	return ports.TradeRequest{
		IdempotencyKey: key,
		Instrument:     "AAPL",
		Side:           domain.TradeSideBuy,
		Quantity:       decimal.NewFromInt(qty),
	}
}

func TestExecuteFillsAtQuote(t *testing.T) {
	sim := NewSimulator(quoteTable{"AAPL": decimal.NewFromInt(100)}, zap.NewNop())

	exec, err := sim.Execute(context.Background(), buyRequest("k-1", 5))
	require.NoError(t, err)
	assert.True(t, exec.FilledQuantity.Equal(decimal.NewFromInt(5)))
	assert.True(t, exec.FillPrice.Equal(decimal.NewFromInt(100)))
	assert.NotEmpty(t, exec.BrokerRef)
}

func TestExecutePrefersLimitPrice(t *testing.T) {
	sim := NewSimulator(quoteTable{"AAPL": decimal.NewFromInt(100)}, zap.NewNop())

	req := buyRequest("k-1", 5)
	req.LimitPrice = decimal.NewFromInt(95)
	exec, err := sim.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, exec.FillPrice.Equal(decimal.NewFromInt(95)))
}

func TestExecuteUnknownInstrumentIsValidationError(t *testing.T) {
	sim := NewSimulator(quoteTable{}, zap.NewNop())

	_, err := sim.Execute(context.Background(), buyRequest("k-1", 1))
	require.Error(t, err)
	assert.Equal(t, domain.ErrorKindValidation, domain.Classify(err))
}

func TestExecuteDeduplicatesByKey(t *testing.T) {
	sim := NewSimulator(quoteTable{"AAPL": decimal.NewFromInt(100)}, zap.NewNop())
	ctx := context.Background()

	first, err := sim.Execute(ctx, buyRequest("k-1", 5))
	require.NoError(t, err)

	second, err := sim.Execute(ctx, buyRequest("k-1", 5))
	require.NoError(t, err)
	assert.Equal(t, first.BrokerRef, second.BrokerRef, "redelivery returns the original fill")

	third, err := sim.Execute(ctx, buyRequest("k-2", 5))
	require.NoError(t, err)
	assert.NotEqual(t, first.BrokerRef, third.BrokerRef)
}

func TestFailNextFailsExactlyOnce(t *testing.T) {
	sim := NewSimulator(quoteTable{"AAPL": decimal.NewFromInt(100)}, zap.NewNop())
	ctx := context.Background()

	sim.FailNext(errors.New("gateway timeout"))

	_, err := sim.Execute(ctx, buyRequest("k-1", 1))
	require.Error(t, err)
	assert.Equal(t, domain.ErrorKindTransient, domain.Classify(err))

	// The failed attempt recorded no fill, so the retry trades fresh.
	exec, err := sim.Execute(ctx, buyRequest("k-1", 1))
	require.NoError(t, err)
	assert.True(t, exec.FilledQuantity.Equal(decimal.NewFromInt(1)))
}
