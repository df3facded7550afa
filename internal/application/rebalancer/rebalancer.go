// Package rebalancer is an example decision process: it compares the
// current allocation against a target allocation and proposes trades
// to close the drift. The strategy is deliberately simple; the point
// is exercising the submission contract end to end.
package rebalancer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nexuswealth/mcu/pkg/domain"
	"github.com/nexuswealth/mcu/pkg/ports"
)

var hundred = decimal.NewFromInt(100)

// Target is one instrument's desired share of portfolio value.
type Target struct {
	Symbol    string
	Type      domain.ActionType // equity_trade or crypto_trade
	Category  string
	WeightPct decimal.Decimal
}

// Submitter is the slice of mission control the rebalancer needs.
type Submitter interface {
	Submit(ctx context.Context, decision domain.Decision) ([]domain.JobHandle, error)
}

// Rebalancer proposes drift-correcting trades for one account. Each
// run submits with the next epoch, superseding whatever the previous
// run left unexecuted.
type Rebalancer struct {
	accountID    string
	targets      []Target
	tolerancePct decimal.Decimal
	ledger       ports.LedgerStore
	quotes       ports.QuoteProvider
	submitter    Submitter
	clock        ports.Clock
	logger       *zap.Logger

	mu    sync.Mutex
	epoch uint64
}

// New creates a rebalancer. tolerancePct is the drift band, in
// percentage points, below which no trade is proposed.
func New(accountID string, targets []Target, tolerancePct decimal.Decimal, ledger ports.LedgerStore, quotes ports.QuoteProvider, submitter Submitter, clock ports.Clock, logger *zap.Logger) *Rebalancer {
	return &Rebalancer{
		accountID:    accountID,
		targets:      targets,
		tolerancePct: tolerancePct,
		ledger:       ledger,
		quotes:       quotes,
		submitter:    submitter,
		clock:        clock,
		logger:       logger,
	}
}

// Run evaluates drift and submits one decision when any target is out
// of band. It returns the handles of the submitted jobs, or nil when
// the portfolio is balanced.
func (r *Rebalancer) Run(ctx context.Context) ([]domain.JobHandle, error) {
	state, err := r.ledger.LoadPortfolio(ctx, r.accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}

	total := state.CashBalance
	prices := make(map[string]decimal.Decimal, len(r.targets))
	for _, target := range r.targets {
		price, err := r.quotes.Quote(ctx, target.Symbol)
		if err != nil {
			return nil, fmt.Errorf("no quote for target %s: %w", target.Symbol, err)
		}
		prices[target.Symbol] = price
		total = total.Add(state.Quantity(target.Symbol).Mul(price))
	}
	if !total.IsPositive() {
		return nil, nil
	}

	actions := r.proposeActions(state, prices, total)
	if len(actions) == 0 {
		r.logger.Debug("allocation within tolerance",
			zap.String("account_id", r.accountID))
		return nil, nil
	}

	r.mu.Lock()
	r.epoch++
	epoch := r.epoch
	r.mu.Unlock()

	decision := domain.Decision{
		ID:          uuid.New().String(),
		AccountID:   r.accountID,
		Epoch:       epoch,
		Actions:     actions,
		SubmittedAt: r.clock.Now(),
	}

	r.logger.Info("submitting rebalance decision",
		zap.String("account_id", r.accountID),
		zap.Uint64("epoch", epoch),
		zap.Int("actions", len(actions)))

	return r.submitter.Submit(ctx, decision)
}

// proposeActions produces one action per out-of-band target. Sells
// run at higher priority than buys so cash is freed before it is
// spent.
func (r *Rebalancer) proposeActions(state *domain.PortfolioState, prices map[string]decimal.Decimal, total decimal.Decimal) []domain.ProposedAction {
	type proposal struct {
		action domain.ProposedAction
		drift  decimal.Decimal
	}
	var proposals []proposal

	for _, target := range r.targets {
		price := prices[target.Symbol]
		if !price.IsPositive() {
			continue
		}
		currentValue := state.Quantity(target.Symbol).Mul(price)
		currentPct := currentValue.Div(total).Mul(hundred)
		drift := currentPct.Sub(target.WeightPct)
		if drift.Abs().LessThanOrEqual(r.tolerancePct) {
			continue
		}

		deltaValue := drift.Abs().Div(hundred).Mul(total)
		quantity := deltaValue.Div(price).RoundDown(8)
		if !quantity.IsPositive() {
			continue
		}

		side := domain.TradeSideBuy
		priority := 1
		if drift.IsPositive() {
			side = domain.TradeSideSell
			priority = 2
		}

		proposals = append(proposals, proposal{
			action: domain.ProposedAction{
				Type:     target.Type,
				Priority: priority,
				Trade: &domain.TradeOrder{
					Instrument: target.Symbol,
					Category:   target.Category,
					Side:       side,
					Quantity:   quantity,
				},
			},
			drift: drift.Abs(),
		})
	}

	// Largest drift first within each priority band.
	sort.SliceStable(proposals, func(i, j int) bool {
		if proposals[i].action.Priority != proposals[j].action.Priority {
			return proposals[i].action.Priority > proposals[j].action.Priority
		}
		return proposals[i].drift.GreaterThan(proposals[j].drift)
	})

	actions := make([]domain.ProposedAction, len(proposals))
	for i, p := range proposals {
		actions[i] = p.action
	}
	return actions
}

// RunEvery runs the rebalancer on a fixed interval until ctx is
// cancelled.
func (r *Rebalancer) RunEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Run(ctx); err != nil {
				r.logger.Warn("rebalance run failed", zap.Error(err))
			}
		}
	}
}
