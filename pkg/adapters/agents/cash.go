package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nexuswealth/mcu/pkg/domain"
	"github.com/nexuswealth/mcu/pkg/ports"
)

// CashAgent handles deposits and withdrawals as pure ledger effects.
// There is no external system to call; the idempotency key at the
// ledger boundary is the only safeguard needed.
type CashAgent struct {
	id          string
	concurrency int
	logger      *zap.Logger
}

// NewCashAgent creates an agent for the cash-ops capability.
func NewCashAgent(id string, concurrency int, logger *zap.Logger) *CashAgent {
	return &CashAgent{id: id, concurrency: concurrency, logger: logger}
}

func (a *CashAgent) ID() string             { return a.id }
func (a *CashAgent) Capabilities() []string { return []string{domain.CapabilityCashOps} }
func (a *CashAgent) MaxConcurrency() int    { return a.concurrency }

// Process turns the cash flow into a signed cash delta.
func (a *CashAgent) Process(ctx context.Context, job *domain.Job) (*domain.Result, error) {
	flow := job.Action.Cash
	if flow == nil {
		return nil, domain.NewValidationError(fmt.Errorf("job %s carries no cash flow", job.ID))
	}

	effect := domain.Effect{Description: job.Action.Describe()}
	switch job.Type {
	case domain.ActionTypeDeposit:
		effect.CashDelta = flow.Amount
	case domain.ActionTypeWithdrawal:
		effect.CashDelta = flow.Amount.Neg()
	default:
		return nil, domain.NewValidationError(fmt.Errorf("unexpected action type %s", job.Type))
	}

	a.logger.Info("cash flow processed",
		zap.String("agent_id", a.id),
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.String("amount", flow.Amount.String()))

	return &domain.Result{Effect: effect}, nil
}

var _ ports.Agent = (*CashAgent)(nil)
