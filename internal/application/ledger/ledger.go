package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nexuswealth/mcu/pkg/domain"
	"github.com/nexuswealth/mcu/pkg/ports"
)

// casRetries bounds how often Apply re-attempts after a version
// conflict. Repeated conflicts indicate genuine concurrent mutation
// and are surfaced instead of replayed blindly.
const casRetries = 1

// ApplyOutcome describes the result of one Apply call.
type ApplyOutcome string

const (
	OutcomeApplied        ApplyOutcome = "applied"
	OutcomeAlreadyApplied ApplyOutcome = "already_applied"
	OutcomeConflict       ApplyOutcome = "conflict"
)

// ApplyResult carries the outcome and the ledger version after the
// call.
type ApplyResult struct {
	Outcome ApplyOutcome
	Version uint64
}

// Ledger applies job effects to account state under optimistic
// concurrency control.
type Ledger struct {
	store   ports.LedgerStore
	quotes  ports.QuoteProvider
	catalog ports.InstrumentCatalog
	metrics ports.MetricsCollector
	logger  *zap.Logger

	// valuation history per account, for performance reporting
	mu      sync.Mutex
	history map[string][]valuePoint
}

type valuePoint struct {
	at    time.Time
	value decimal.Decimal
}

// New creates a ledger over the given store.
func New(store ports.LedgerStore, quotes ports.QuoteProvider, catalog ports.InstrumentCatalog, metrics ports.MetricsCollector, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:   store,
		quotes:  quotes,
		catalog: catalog,
		metrics: metrics,
		logger:  logger,
		history: make(map[string][]valuePoint),
	}
}

// CreateAccount seeds a new portfolio at version zero.
func (l *Ledger) CreateAccount(ctx context.Context, accountID string, initialCash decimal.Decimal) (*domain.PortfolioState, error) {
	state := domain.NewPortfolioState(accountID, initialCash)
	if err := l.store.CreatePortfolio(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to create portfolio: %w", err)
	}

	l.logger.Info("account created",
		zap.String("account_id", accountID),
		zap.String("initial_cash", initialCash.String()))
	return state, nil
}

// State returns the current portfolio state for an account.
func (l *Ledger) State(ctx context.Context, accountID string) (*domain.PortfolioState, error) {
	return l.store.LoadPortfolio(ctx, accountID)
}

// Apply records one effect against an account, at most once per
// idempotency key. On a version conflict the effect is re-validated
// against refetched state and retried a bounded number of times.
func (l *Ledger) Apply(ctx context.Context, accountID, idempotencyKey string, effect domain.Effect) (ApplyResult, error) {
	seen, err := l.store.SeenKey(ctx, accountID, idempotencyKey)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	if seen {
		l.metrics.RecordLedgerApply(string(OutcomeAlreadyApplied))
		return l.alreadyApplied(ctx, accountID)
	}

	for attempt := 0; ; attempt++ {
		current, err := l.store.LoadPortfolio(ctx, accountID)
		if err != nil {
			return ApplyResult{}, fmt.Errorf("failed to load portfolio: %w", err)
		}

		if !effect.Valid(current) {
			l.metrics.RecordLedgerApply(string(OutcomeConflict))
			return ApplyResult{Outcome: OutcomeConflict, Version: current.Version},
				fmt.Errorf("%w: %s", domain.ErrInvalidEffect, effect.Description)
		}

		next := effect.ApplyTo(current)
		next.Version = current.Version + 1

		txn := domain.Transaction{
			ID:             uuid.New().String(),
			AccountID:      accountID,
			IdempotencyKey: idempotencyKey,
			Effect:         effect,
			Version:        next.Version,
			AppliedAt:      time.Now(),
		}

		err = l.store.ApplyTxn(ctx, next, current.Version, idempotencyKey, txn)
		switch {
		case err == nil:
			l.metrics.RecordLedgerApply(string(OutcomeApplied))
			l.recordValuation(ctx, next)
			l.logger.Info("effect applied",
				zap.String("account_id", accountID),
				zap.String("idempotency_key", idempotencyKey),
				zap.Uint64("version", next.Version))
			return ApplyResult{Outcome: OutcomeApplied, Version: next.Version}, nil

		case errors.Is(err, domain.ErrAlreadyApplied):
			l.metrics.RecordLedgerApply(string(OutcomeAlreadyApplied))
			return l.alreadyApplied(ctx, accountID)

		case errors.Is(err, domain.ErrVersionConflict):
			if attempt < casRetries {
				l.logger.Debug("version conflict, refetching",
					zap.String("account_id", accountID),
					zap.Uint64("expected_version", current.Version))
				continue
			}
			l.metrics.RecordLedgerApply(string(OutcomeConflict))
			return ApplyResult{Outcome: OutcomeConflict, Version: current.Version},
				fmt.Errorf("apply %s: %w", idempotencyKey, domain.ErrVersionConflict)

		default:
			return ApplyResult{}, fmt.Errorf("failed to apply transaction: %w", err)
		}
	}
}

func (l *Ledger) alreadyApplied(ctx context.Context, accountID string) (ApplyResult, error) {
	current, err := l.store.LoadPortfolio(ctx, accountID)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("failed to load portfolio: %w", err)
	}
	return ApplyResult{Outcome: OutcomeAlreadyApplied, Version: current.Version}, nil
}

// Transactions returns the newest transaction records first.
func (l *Ledger) Transactions(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	return l.store.ListTransactions(ctx, accountID, limit)
}
