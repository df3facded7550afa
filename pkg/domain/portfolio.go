package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioState is the versioned account state. It is mutated only
// by the ledger through compare-and-swap on Version.
type PortfolioState struct {
	AccountID   string                     `json:"account_id"`
	Version     uint64                     `json:"version"`
	CashBalance decimal.Decimal            `json:"cash_balance"`
	Holdings    map[string]decimal.Decimal `json:"holdings"`
}

// NewPortfolioState creates an empty account state at version zero.
func NewPortfolioState(accountID string, cash decimal.Decimal) *PortfolioState {
	return &PortfolioState{
		AccountID:   accountID,
		Version:     0,
		CashBalance: cash,
		Holdings:    make(map[string]decimal.Decimal),
	}
}

// Clone returns a deep copy so callers can mutate without racing the
// stored state.
func (p *PortfolioState) Clone() *PortfolioState {
	holdings := make(map[string]decimal.Decimal, len(p.Holdings))
	for sym, qty := range p.Holdings {
		holdings[sym] = qty
	}
	return &PortfolioState{
		AccountID:   p.AccountID,
		Version:     p.Version,
		CashBalance: p.CashBalance,
		Holdings:    holdings,
	}
}

// Quantity returns the held quantity for a symbol, zero when absent.
func (p *PortfolioState) Quantity(symbol string) decimal.Decimal {
	if q, ok := p.Holdings[symbol]; ok {
		return q
	}
	return decimal.Zero
}

// Effect is the portfolio mutation produced by a completed job.
type Effect struct {
	CashDelta     decimal.Decimal            `json:"cash_delta"`
	HoldingsDelta map[string]decimal.Decimal `json:"holdings_delta,omitempty"`
	Description   string                     `json:"description,omitempty"`
}

// IsZero reports whether applying the effect would change nothing.
func (e Effect) IsZero() bool {
	if !e.CashDelta.IsZero() {
		return false
	}
	for _, d := range e.HoldingsDelta {
		if !d.IsZero() {
			return false
		}
	}
	return true
}

// ApplyTo computes the state resulting from this effect without
// mutating the input. The returned state keeps the input's version;
// the ledger bumps it on successful save.
func (e Effect) ApplyTo(state *PortfolioState) *PortfolioState {
	next := state.Clone()
	next.CashBalance = next.CashBalance.Add(e.CashDelta)
	for sym, delta := range e.HoldingsDelta {
		q := next.Quantity(sym).Add(delta)
		if q.IsZero() {
			delete(next.Holdings, sym)
		} else {
			next.Holdings[sym] = q
		}
	}
	return next
}

// Valid reports whether the effect keeps cash and every holding
// non-negative when applied to the given state.
func (e Effect) Valid(state *PortfolioState) bool {
	next := e.ApplyTo(state)
	if next.CashBalance.IsNegative() {
		return false
	}
	for _, q := range next.Holdings {
		if q.IsNegative() {
			return false
		}
	}
	return true
}

// Transaction is the append-only record produced for every applied
// ledger mutation. Records are never mutated after creation.
type Transaction struct {
	ID             string    `json:"id"`
	AccountID      string    `json:"account_id"`
	IdempotencyKey string    `json:"idempotency_key"`
	Effect         Effect    `json:"effect"`
	Version        uint64    `json:"version"`
	AppliedAt      time.Time `json:"applied_at"`
}

// AccountConstraints are the per-account compliance limits the risk
// gate enforces before any trade-affecting job may dispatch.
type AccountConstraints struct {
	// MaxSingleTradePct caps a single trade's notional as a percentage
	// of total portfolio value at proposal time.
	MaxSingleTradePct  decimal.Decimal `json:"max_single_trade_pct"`
	ExcludedCategories []string        `json:"excluded_categories,omitempty"`
	TradingEnabled     bool            `json:"trading_enabled"`
}

// Excludes reports whether the category is barred for this account.
func (c AccountConstraints) Excludes(category string) bool {
	for _, excluded := range c.ExcludedCategories {
		if excluded == category {
			return true
		}
	}
	return false
}
