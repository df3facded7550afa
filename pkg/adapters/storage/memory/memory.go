package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/nexuswealth/mcu/pkg/domain"
	"github.com/nexuswealth/mcu/pkg/ports"
)

// Store implements JobStore, LedgerStore and DecisionLog on in-memory
// maps. A single mutex makes ApplyTxn's check-key, compare-version,
// write sequence atomic.
type Store struct {
	mu         sync.RWMutex
	jobs       map[string]*domain.Job
	portfolios map[string]*domain.PortfolioState
	seenKeys   map[string]map[string]bool
	txns       map[string][]domain.Transaction
	feed       map[string][]domain.DecisionRecord
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		jobs:       make(map[string]*domain.Job),
		portfolios: make(map[string]*domain.PortfolioState),
		seenKeys:   make(map[string]map[string]bool),
		txns:       make(map[string][]domain.Transaction),
		feed:       make(map[string][]domain.DecisionRecord),
	}
}

// SaveJob stores a snapshot of the job.
func (s *Store) SaveJob(ctx context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := *job
	s.jobs[job.ID] = &snapshot
	return nil
}

// GetJob returns a copy of the stored job.
func (s *Store) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	snapshot := *job
	return &snapshot, nil
}

// ListJobs returns the account's jobs, newest first.
func (s *Store) ListJobs(ctx context.Context, accountID string) ([]*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var jobs []*domain.Job
	for _, job := range s.jobs {
		if job.AccountID == accountID {
			snapshot := *job
			jobs = append(jobs, &snapshot)
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	return jobs, nil
}

// CreatePortfolio seeds a new account.
func (s *Store) CreatePortfolio(ctx context.Context, state *domain.PortfolioState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.portfolios[state.AccountID] = state.Clone()
	return nil
}

// LoadPortfolio returns a copy of the stored state.
func (s *Store) LoadPortfolio(ctx context.Context, accountID string) (*domain.PortfolioState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.portfolios[accountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return state.Clone(), nil
}

// SeenKey reports whether the idempotency key already applied.
func (s *Store) SeenKey(ctx context.Context, accountID, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seenKeys[accountID][idempotencyKey], nil
}

// ApplyTxn atomically verifies the key is unseen and the version
// matches, then commits state, key and transaction record together.
func (s *Store) ApplyTxn(ctx context.Context, state *domain.PortfolioState, expectedVersion uint64, idempotencyKey string, txn domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.portfolios[state.AccountID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if s.seenKeys[state.AccountID][idempotencyKey] {
		return domain.ErrAlreadyApplied
	}
	if current.Version != expectedVersion {
		return domain.ErrVersionConflict
	}

	s.portfolios[state.AccountID] = state.Clone()
	if s.seenKeys[state.AccountID] == nil {
		s.seenKeys[state.AccountID] = make(map[string]bool)
	}
	s.seenKeys[state.AccountID][idempotencyKey] = true
	s.txns[state.AccountID] = append(s.txns[state.AccountID], txn)
	return nil
}

// ListTransactions returns the newest transactions first.
func (s *Store) ListTransactions(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.txns[accountID]
	out := make([]domain.Transaction, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Append adds a record to the account's decision feed.
func (s *Store) Append(ctx context.Context, record domain.DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feed[record.AccountID] = append(s.feed[record.AccountID], record)
	return nil
}

// List pages through the feed newest first.
func (s *Store) List(ctx context.Context, accountID string, limit, offset int) ([]domain.DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.feed[accountID]
	out := make([]domain.DecisionRecord, 0, limit)
	for i := len(all) - 1 - offset; i >= 0; i-- {
		out = append(out, all[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

var (
	_ ports.JobStore    = (*Store)(nil)
	_ ports.LedgerStore = (*Store)(nil)
	_ ports.DecisionLog = (*Store)(nil)
)
