package riskgate

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nexuswealth/mcu/pkg/domain"
	"github.com/nexuswealth/mcu/pkg/ports"
)

// quantityPrecision is the decimal precision reduced quantities are
// rounded down to. Eight places covers fractional crypto lots.
const quantityPrecision = 8

var hundred = decimal.NewFromInt(100)

// Gate evaluates proposed actions against account constraints.
type Gate struct {
	quotes ports.QuoteProvider
}

// New creates a risk gate backed by the given quote provider.
func New(quotes ports.QuoteProvider) *Gate {
	return &Gate{quotes: quotes}
}

// Evaluate rules on one proposed action. The verdict depends only on
// the inputs and the quote provider's answers; calling it twice with
// identical inputs yields an identical verdict.
func (g *Gate) Evaluate(ctx context.Context, state *domain.PortfolioState, constraints domain.AccountConstraints, action domain.ProposedAction) domain.RiskVerdict {
	switch action.Type {
	case domain.ActionTypeRiskAudit:
		return domain.RiskVerdict{Outcome: domain.VerdictApproved}
	case domain.ActionTypeDeposit:
		return domain.RiskVerdict{Outcome: domain.VerdictApproved}
	case domain.ActionTypeWithdrawal:
		return g.evaluateWithdrawal(state, action)
	case domain.ActionTypeEquityTrade, domain.ActionTypeCryptoTrade:
		return g.evaluateTrade(ctx, state, constraints, action)
	default:
		return domain.RiskVerdict{
			Outcome: domain.VerdictRejected,
			Reason:  fmt.Sprintf("unknown action type %q", action.Type),
		}
	}
}

func (g *Gate) evaluateWithdrawal(state *domain.PortfolioState, action domain.ProposedAction) domain.RiskVerdict {
	if action.Cash.Amount.GreaterThan(state.CashBalance) {
		return domain.RiskVerdict{
			Outcome: domain.VerdictRejected,
			Reason: fmt.Sprintf("withdrawal %s exceeds available balance %s",
				action.Cash.Amount, state.CashBalance),
		}
	}
	return domain.RiskVerdict{Outcome: domain.VerdictApproved}
}

func (g *Gate) evaluateTrade(ctx context.Context, state *domain.PortfolioState, constraints domain.AccountConstraints, action domain.ProposedAction) domain.RiskVerdict {
	order := action.Trade

	if !constraints.TradingEnabled {
		return domain.RiskVerdict{Outcome: domain.VerdictRejected, Reason: "trading disabled for account"}
	}
	if constraints.Excludes(order.Category) {
		return domain.RiskVerdict{
			Outcome: domain.VerdictRejected,
			Reason:  fmt.Sprintf("category %q excluded by account constraints", order.Category),
		}
	}

	price := order.LimitPrice
	if price.IsZero() {
		quote, err := g.quotes.Quote(ctx, order.Instrument)
		if err != nil || !quote.IsPositive() {
			return domain.RiskVerdict{
				Outcome: domain.VerdictRejected,
				Reason:  fmt.Sprintf("unsupported instrument %q", order.Instrument),
			}
		}
		price = quote
	}

	// Collect the quantity ceilings each rule imposes; the lowest wins.
	maxQty := order.Quantity
	var reasons []string

	if order.Side == domain.TradeSideSell {
		held := state.Quantity(order.Instrument)
		if !held.IsPositive() {
			return domain.RiskVerdict{
				Outcome: domain.VerdictRejected,
				Reason:  fmt.Sprintf("no position in %q to sell", order.Instrument),
			}
		}
		if held.LessThan(maxQty) {
			maxQty = held
			reasons = append(reasons, fmt.Sprintf("sell quantity clamped to held %s", held))
		}
	}

	if order.Side == domain.TradeSideBuy {
		notional := order.Quantity.Mul(price)
		if notional.GreaterThan(state.CashBalance) {
			return domain.RiskVerdict{
				Outcome: domain.VerdictRejected,
				Reason: fmt.Sprintf("notional %s exceeds available cash %s",
					notional, state.CashBalance),
			}
		}
	}

	if constraints.MaxSingleTradePct.IsPositive() {
		total := g.totalValue(ctx, state)
		if total.IsPositive() {
			maxNotional := total.Mul(constraints.MaxSingleTradePct).Div(hundred)
			if maxQty.Mul(price).GreaterThan(maxNotional) {
				allowed := maxNotional.Div(price).RoundDown(quantityPrecision)
				if !allowed.IsPositive() {
					return domain.RiskVerdict{
						Outcome: domain.VerdictRejected,
						Reason: fmt.Sprintf("trade exceeds %s%% single-trade limit",
							constraints.MaxSingleTradePct),
					}
				}
				if allowed.LessThan(maxQty) {
					maxQty = allowed
					reasons = append(reasons, fmt.Sprintf("quantity reduced to %s%% single-trade limit",
						constraints.MaxSingleTradePct))
				}
			}
		}
	}

	if maxQty.LessThan(order.Quantity) {
		reduced := *order
		reduced.Quantity = maxQty
		modified := action
		modified.Trade = &reduced
		return domain.RiskVerdict{
			Outcome:  domain.VerdictModified,
			Reason:   strings.Join(reasons, "; "),
			Modified: &modified,
		}
	}

	return domain.RiskVerdict{Outcome: domain.VerdictApproved}
}

// totalValue prices the portfolio at current quotes. Holdings without
// a quote contribute nothing, which only tightens the trade limit.
func (g *Gate) totalValue(ctx context.Context, state *domain.PortfolioState) decimal.Decimal {
	total := state.CashBalance
	for symbol, qty := range state.Holdings {
		quote, err := g.quotes.Quote(ctx, symbol)
		if err != nil {
			continue
		}
		total = total.Add(qty.Mul(quote))
	}
	return total
}
