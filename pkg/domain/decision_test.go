package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDecision() Decision {
	return Decision{
		ID:        "d-1",
		AccountID: "acct-1",
		Epoch:     1,
		Actions: []ProposedAction{
			{
				Type:     ActionTypeEquityTrade,
				Priority: 1,
				Trade: &TradeOrder{
					Instrument: "AAPL",
					Category:   "Equities",
					Side:       TradeSideBuy,
					Quantity:   decimal.NewFromInt(10),
				},
			},
			{
				Type: ActionTypeDeposit,
				Cash: &CashFlow{Amount: decimal.NewFromInt(500)},
			},
			{Type: ActionTypeRiskAudit},
		},
	}
}

func TestDecisionValidate(t *testing.T) {
	require.NoError(t, validDecision().Validate())

	d := validDecision()
	d.AccountID = ""
	assert.Error(t, d.Validate())

	d = validDecision()
	d.Epoch = 0
	assert.Error(t, d.Validate())

	d = validDecision()
	d.Actions = nil
	assert.Error(t, d.Validate())

	d = validDecision()
	d.Actions[0].Trade.Quantity = decimal.Zero
	assert.Error(t, d.Validate())

	d = validDecision()
	d.Actions[0].Trade = nil
	assert.Error(t, d.Validate())

	d = validDecision()
	d.Actions[1].Cash.Amount = decimal.NewFromInt(-1)
	assert.Error(t, d.Validate())
}

func TestIdempotencyKeyIsDeterministic(t *testing.T) {
	d := validDecision()
	assert.Equal(t, "acct-1:1:0", d.IdempotencyKey(0))
	assert.Equal(t, "acct-1:1:2", d.IdempotencyKey(2))

	// The same decision resubmitted derives identical keys.
	assert.Equal(t, d.IdempotencyKey(1), validDecision().IdempotencyKey(1))
}

func TestActionCapabilities(t *testing.T) {
	assert.Equal(t, CapabilityEquityTrading, ActionTypeEquityTrade.Capability())
	assert.Equal(t, CapabilityCryptoTrading, ActionTypeCryptoTrade.Capability())
	assert.Equal(t, CapabilityRiskCheck, ActionTypeRiskAudit.Capability())
	assert.Equal(t, CapabilityCashOps, ActionTypeDeposit.Capability())
	assert.Equal(t, CapabilityCashOps, ActionTypeWithdrawal.Capability())

	assert.False(t, ActionTypeRiskAudit.TradeAffecting())
	assert.True(t, ActionTypeEquityTrade.TradeAffecting())
	assert.True(t, ActionTypeWithdrawal.TradeAffecting())
}

func TestEffectApplyTo(t *testing.T) {
	state := NewPortfolioState("acct-1", decimal.NewFromInt(1000))
	state.Holdings["AAPL"] = decimal.NewFromInt(5)

	effect := Effect{
		CashDelta:     decimal.NewFromInt(-200),
		HoldingsDelta: map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(2)},
	}

	next := effect.ApplyTo(state)
	assert.True(t, next.CashBalance.Equal(decimal.NewFromInt(800)))
	assert.True(t, next.Quantity("AAPL").Equal(decimal.NewFromInt(7)))

	// Input untouched.
	assert.True(t, state.CashBalance.Equal(decimal.NewFromInt(1000)))
	assert.True(t, state.Quantity("AAPL").Equal(decimal.NewFromInt(5)))
}

func TestEffectApplyToRemovesZeroHoldings(t *testing.T) {
	state := NewPortfolioState("acct-1", decimal.NewFromInt(100))
	state.Holdings["BTC"] = decimal.NewFromInt(1)

	next := Effect{
		HoldingsDelta: map[string]decimal.Decimal{"BTC": decimal.NewFromInt(-1)},
	}.ApplyTo(state)

	_, held := next.Holdings["BTC"]
	assert.False(t, held)
}

func TestEffectValid(t *testing.T) {
	state := NewPortfolioState("acct-1", decimal.NewFromInt(100))

	assert.True(t, Effect{CashDelta: decimal.NewFromInt(-100)}.Valid(state))
	assert.False(t, Effect{CashDelta: decimal.NewFromInt(-101)}.Valid(state))
	assert.False(t, Effect{
		HoldingsDelta: map[string]decimal.Decimal{"AAPL": decimal.NewFromInt(-1)},
	}.Valid(state))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorKindValidation, Classify(NewValidationError(assert.AnError)))
	assert.Equal(t, ErrorKindTransient, Classify(NewTransientError(assert.AnError)))
	assert.Equal(t, ErrorKindTransient, Classify(assert.AnError))
}
