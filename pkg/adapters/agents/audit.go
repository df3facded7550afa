package agents

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nexuswealth/mcu/pkg/domain"
	"github.com/nexuswealth/mcu/pkg/ports"
)

// Parametric value-at-risk assumptions: one-day horizon at 95%
// confidence over an assumed portfolio volatility.
var (
	varConfidenceZ = decimal.NewFromFloat(1.645)
	dailyVolPct    = decimal.NewFromFloat(1.2)
	hundredPct     = decimal.NewFromInt(100)
)

// ConstraintsFunc resolves the compliance limits for an account.
type ConstraintsFunc func(accountID string) domain.AccountConstraints

// AuditAgent runs post-trade compliance checks: it recomputes
// exposure per holding against the account limits and estimates a
// one-day value at risk. The result carries no ledger effect, only a
// report.
type AuditAgent struct {
	id          string
	concurrency int
	store       ports.LedgerStore
	quotes      ports.QuoteProvider
	constraints ConstraintsFunc
	logger      *zap.Logger
}

// NewAuditAgent creates an agent for the risk-check capability.
func NewAuditAgent(id string, concurrency int, store ports.LedgerStore, quotes ports.QuoteProvider, constraints ConstraintsFunc, logger *zap.Logger) *AuditAgent {
	return &AuditAgent{
		id:          id,
		concurrency: concurrency,
		store:       store,
		quotes:      quotes,
		constraints: constraints,
		logger:      logger,
	}
}

func (a *AuditAgent) ID() string             { return a.id }
func (a *AuditAgent) Capabilities() []string { return []string{domain.CapabilityRiskCheck} }
func (a *AuditAgent) MaxConcurrency() int    { return a.concurrency }

// Process audits the account's current exposure.
func (a *AuditAgent) Process(ctx context.Context, job *domain.Job) (*domain.Result, error) {
	state, err := a.store.LoadPortfolio(ctx, job.AccountID)
	if err != nil {
		return nil, domain.NewTransientError(fmt.Errorf("failed to load portfolio: %w", err))
	}
	limits := a.constraints(job.AccountID)

	total := state.CashBalance
	values := make(map[string]decimal.Decimal, len(state.Holdings))
	for symbol, qty := range state.Holdings {
		price, err := a.quotes.Quote(ctx, symbol)
		if err != nil {
			continue
		}
		value := qty.Mul(price)
		values[symbol] = value
		total = total.Add(value)
	}

	var findings []string
	if total.IsPositive() && limits.MaxSingleTradePct.IsPositive() {
		for symbol, value := range values {
			exposurePct := value.Div(total).Mul(hundredPct)
			if exposurePct.GreaterThan(limits.MaxSingleTradePct) {
				findings = append(findings, fmt.Sprintf(
					"%s exposure %s%% exceeds limit %s%%",
					symbol, exposurePct.Round(2), limits.MaxSingleTradePct))
			}
		}
	}

	valueAtRisk := total.Mul(dailyVolPct).Div(hundredPct).Mul(varConfidenceZ).Round(2)

	a.logger.Info("risk audit complete",
		zap.String("agent_id", a.id),
		zap.String("account_id", job.AccountID),
		zap.String("total_value", total.Round(2).String()),
		zap.String("value_at_risk", valueAtRisk.String()),
		zap.Int("findings", len(findings)))

	return &domain.Result{
		Report: map[string]interface{}{
			"total_value":      total.Round(2).String(),
			"value_at_risk_1d": valueAtRisk.String(),
			"confidence":       "95%",
			"findings":         findings,
			"holdings_audited": len(state.Holdings),
		},
	}, nil
}

var _ ports.Agent = (*AuditAgent)(nil)
