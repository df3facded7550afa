package ports

import (
	"context"

	"github.com/nexuswealth/mcu/pkg/domain"
)

// JobStore persists job snapshots so status survives the dispatcher's
// in-memory view and can be polled after completion.
type JobStore interface {
	SaveJob(ctx context.Context, job *domain.Job) error
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	ListJobs(ctx context.Context, accountID string) ([]*domain.Job, error)
}

// LedgerStore is the persistence boundary of the portfolio ledger.
// ApplyTxn must atomically verify the idempotency key is unseen and
// the stored version matches expectedVersion, then write the new
// state, mark the key applied and append the transaction record.
type LedgerStore interface {
	// CreatePortfolio seeds a new account at version zero.
	CreatePortfolio(ctx context.Context, state *domain.PortfolioState) error
	// LoadPortfolio returns domain.ErrAccountNotFound for unknown accounts.
	LoadPortfolio(ctx context.Context, accountID string) (*domain.PortfolioState, error)
	// SeenKey reports whether the idempotency key already applied.
	SeenKey(ctx context.Context, accountID, idempotencyKey string) (bool, error)
	// ApplyTxn returns domain.ErrVersionConflict when expectedVersion
	// no longer matches and domain.ErrAlreadyApplied when the key won
	// a concurrent race.
	ApplyTxn(ctx context.Context, state *domain.PortfolioState, expectedVersion uint64, idempotencyKey string, txn domain.Transaction) error
	// ListTransactions returns the newest transactions first.
	ListTransactions(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error)
}

// DecisionLog is the append-only feed of decisions and their
// outcomes, served newest-first to the dashboard.
type DecisionLog interface {
	Append(ctx context.Context, record domain.DecisionRecord) error
	List(ctx context.Context, accountID string, limit, offset int) ([]domain.DecisionRecord, error)
}
