package riskgate

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexuswealth/mcu/pkg/domain"
)

type quoteTable map[string]decimal.Decimal

func (q quoteTable) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	price, ok := q[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("no quote for %s", symbol)
	}
	return price, nil
}

func defaultConstraints() domain.AccountConstraints {
	return domain.AccountConstraints{
		MaxSingleTradePct: decimal.NewFromInt(5),
		TradingEnabled:    true,
	}
}

func buyAction(symbol, category string, qty int64) domain.ProposedAction {
	return domain.ProposedAction{
		Type: domain.ActionTypeEquityTrade,
		Trade: &domain.TradeOrder{
			Instrument: symbol,
			Category:   category,
			Side:       domain.TradeSideBuy,
			Quantity:   decimal.NewFromInt(qty),
		},
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	gate := New(quoteTable{"AAPL": decimal.NewFromInt(100)})
	state := domain.NewPortfolioState("acct-1", decimal.NewFromInt(10000))
	action := buyAction("AAPL", "Equities", 3)

	first := gate.Evaluate(context.Background(), state, defaultConstraints(), action)
	second := gate.Evaluate(context.Background(), state, defaultConstraints(), action)
	assert.Equal(t, first, second)
}

func TestAuditAndDepositAlwaysApproved(t *testing.T) {
	gate := New(quoteTable{})
	state := domain.NewPortfolioState("acct-1", decimal.Zero)

	v := gate.Evaluate(context.Background(), state, defaultConstraints(),
		domain.ProposedAction{Type: domain.ActionTypeRiskAudit})
	assert.Equal(t, domain.VerdictApproved, v.Outcome)

	v = gate.Evaluate(context.Background(), state, defaultConstraints(), domain.ProposedAction{
		Type: domain.ActionTypeDeposit,
		Cash: &domain.CashFlow{Amount: decimal.NewFromInt(100)},
	})
	assert.Equal(t, domain.VerdictApproved, v.Outcome)
}

func TestWithdrawalExceedingBalanceRejected(t *testing.T) {
	gate := New(quoteTable{})
	state := domain.NewPortfolioState("acct-1", decimal.NewFromInt(50))

	v := gate.Evaluate(context.Background(), state, defaultConstraints(), domain.ProposedAction{
		Type: domain.ActionTypeWithdrawal,
		Cash: &domain.CashFlow{Amount: decimal.NewFromInt(51)},
	})
	assert.Equal(t, domain.VerdictRejected, v.Outcome)

	v = gate.Evaluate(context.Background(), state, defaultConstraints(), domain.ProposedAction{
		Type: domain.ActionTypeWithdrawal,
		Cash: &domain.CashFlow{Amount: decimal.NewFromInt(50)},
	})
	assert.Equal(t, domain.VerdictApproved, v.Outcome)
}

func TestTradingDisabledRejectsTrades(t *testing.T) {
	gate := New(quoteTable{"AAPL": decimal.NewFromInt(100)})
	state := domain.NewPortfolioState("acct-1", decimal.NewFromInt(10000))
	constraints := defaultConstraints()
	constraints.TradingEnabled = false

	v := gate.Evaluate(context.Background(), state, constraints, buyAction("AAPL", "Equities", 1))
	assert.Equal(t, domain.VerdictRejected, v.Outcome)
}

func TestExcludedCategoryRejected(t *testing.T) {
	gate := New(quoteTable{"BTC": decimal.NewFromInt(60000)})
	state := domain.NewPortfolioState("acct-1", decimal.NewFromInt(1000000))
	constraints := defaultConstraints()
	constraints.ExcludedCategories = []string{"Crypto"}

	action := domain.ProposedAction{
		Type: domain.ActionTypeCryptoTrade,
		Trade: &domain.TradeOrder{
			Instrument: "BTC",
			Category:   "Crypto",
			Side:       domain.TradeSideBuy,
			Quantity:   decimal.NewFromInt(1),
		},
	}
	v := gate.Evaluate(context.Background(), state, constraints, action)
	assert.Equal(t, domain.VerdictRejected, v.Outcome)
	assert.Contains(t, v.Reason, "Crypto")
}

func TestUnknownInstrumentRejected(t *testing.T) {
	gate := New(quoteTable{})
	state := domain.NewPortfolioState("acct-1", decimal.NewFromInt(10000))

	v := gate.Evaluate(context.Background(), state, defaultConstraints(), buyAction("ZZZZ", "Equities", 1))
	assert.Equal(t, domain.VerdictRejected, v.Outcome)
	assert.Contains(t, v.Reason, "ZZZZ")
}

func TestLimitPriceUsedWithoutQuote(t *testing.T) {
	gate := New(quoteTable{})
	state := domain.NewPortfolioState("acct-1", decimal.NewFromInt(10000))

	action := buyAction("NEWCO", "Equities", 1)
	action.Trade.LimitPrice = decimal.NewFromInt(100)
	v := gate.Evaluate(context.Background(), state, defaultConstraints(), action)
	assert.Equal(t, domain.VerdictApproved, v.Outcome)
}

func TestSellWithoutPositionRejected(t *testing.T) {
	gate := New(quoteTable{"AAPL": decimal.NewFromInt(100)})
	state := domain.NewPortfolioState("acct-1", decimal.NewFromInt(10000))

	action := buyAction("AAPL", "Equities", 1)
	action.Trade.Side = domain.TradeSideSell
	v := gate.Evaluate(context.Background(), state, defaultConstraints(), action)
	assert.Equal(t, domain.VerdictRejected, v.Outcome)
}

func TestSellClampedToHeldQuantity(t *testing.T) {
	gate := New(quoteTable{"AAPL": decimal.NewFromInt(1)})
	state := domain.NewPortfolioState("acct-1", decimal.NewFromInt(100))
	state.Holdings["AAPL"] = decimal.NewFromInt(3)

	action := buyAction("AAPL", "Equities", 10)
	action.Trade.Side = domain.TradeSideSell
	v := gate.Evaluate(context.Background(), state, defaultConstraints(), action)

	require.Equal(t, domain.VerdictModified, v.Outcome)
	require.NotNil(t, v.Modified)
	assert.True(t, v.Modified.Trade.Quantity.Equal(decimal.NewFromInt(3)))
}

func TestBuyExceedingCashRejected(t *testing.T) {
	gate := New(quoteTable{"AAPL": decimal.NewFromInt(100)})
	state := domain.NewPortfolioState("acct-1", decimal.NewFromInt(500))

	v := gate.Evaluate(context.Background(), state, defaultConstraints(), buyAction("AAPL", "Equities", 6))
	assert.Equal(t, domain.VerdictRejected, v.Outcome)
	assert.Contains(t, v.Reason, "cash")
}

func TestOversizedBuyClampedToSingleTradeLimit(t *testing.T) {
	// Portfolio value 10000, 5% cap means 500 notional, price 100 so
	// at most 5 shares.
	gate := New(quoteTable{"AAPL": decimal.NewFromInt(100)})
	state := domain.NewPortfolioState("acct-1", decimal.NewFromInt(10000))

	v := gate.Evaluate(context.Background(), state, defaultConstraints(), buyAction("AAPL", "Equities", 8))
	require.Equal(t, domain.VerdictModified, v.Outcome)
	require.NotNil(t, v.Modified)
	assert.True(t, v.Modified.Trade.Quantity.Equal(decimal.NewFromInt(5)),
		"got %s", v.Modified.Trade.Quantity)

	// Within the limit passes untouched.
	v = gate.Evaluate(context.Background(), state, defaultConstraints(), buyAction("AAPL", "Equities", 5))
	assert.Equal(t, domain.VerdictApproved, v.Outcome)
}

func TestHoldingsCountTowardPortfolioValue(t *testing.T) {
	// 1000 cash + 10 MSFT @ 400 = 5000 total, 5% cap = 250 notional.
	gate := New(quoteTable{
		"AAPL": decimal.NewFromInt(100),
		"MSFT": decimal.NewFromInt(400),
	})
	state := domain.NewPortfolioState("acct-1", decimal.NewFromInt(1000))
	state.Holdings["MSFT"] = decimal.NewFromInt(10)

	v := gate.Evaluate(context.Background(), state, defaultConstraints(), buyAction("AAPL", "Equities", 3))
	require.Equal(t, domain.VerdictModified, v.Outcome)
	assert.True(t, v.Modified.Trade.Quantity.Equal(decimal.NewFromFloat(2.5)),
		"got %s", v.Modified.Trade.Quantity)
}
