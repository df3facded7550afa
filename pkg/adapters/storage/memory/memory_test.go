package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexuswealth/mcu/pkg/domain"
)

func seedPortfolio(t *testing.T, s *Store, accountID string, cash int64) {
	t.Helper()
	err := s.CreatePortfolio(context.Background(), domain.NewPortfolioState(accountID, decimal.NewFromInt(cash)))
	require.NoError(t, err)
}

func TestJobRoundTrip(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	job := &domain.Job{ID: "j-1", AccountID: "acct-1", Status: domain.JobStatusPending}
	require.NoError(t, s.SaveJob(ctx, job))

	// The stored copy is detached from the caller's pointer.
	job.Status = domain.JobStatusExecuting

	got, err := s.GetJob(ctx, "j-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, got.Status)

	_, err = s.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestListJobsNewestFirst(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.SaveJob(ctx, &domain.Job{
			ID:        fmt.Sprintf("j-%d", i),
			AccountID: "acct-1",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, s.SaveJob(ctx, &domain.Job{ID: "other", AccountID: "acct-2", CreatedAt: base}))

	jobs, err := s.ListJobs(ctx, "acct-1")
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "j-2", jobs[0].ID)
	assert.Equal(t, "j-0", jobs[2].ID)
}

func TestApplyTxnChecksKeyThenVersion(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedPortfolio(t, s, "acct-1", 1000)

	next, err := s.LoadPortfolio(ctx, "acct-1")
	require.NoError(t, err)
	next.CashBalance = decimal.NewFromInt(900)
	next.Version = 1

	require.NoError(t, s.ApplyTxn(ctx, next, 0, "k-1", domain.Transaction{IdempotencyKey: "k-1"}))

	// Replaying the key fails before the version check runs.
	err = s.ApplyTxn(ctx, next, 0, "k-1", domain.Transaction{})
	assert.ErrorIs(t, err, domain.ErrAlreadyApplied)

	// A fresh key against a stale version conflicts.
	err = s.ApplyTxn(ctx, next, 0, "k-2", domain.Transaction{})
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	seen, err := s.SeenKey(ctx, "acct-1", "k-1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = s.SeenKey(ctx, "acct-1", "k-2")
	require.NoError(t, err)
	assert.False(t, seen, "conflicted apply must not mark its key")

	state, err := s.LoadPortfolio(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), state.Version)
	assert.True(t, state.CashBalance.Equal(decimal.NewFromInt(900)))
}

func TestApplyTxnUnknownAccount(t *testing.T) {
	s := NewStore()
	state := domain.NewPortfolioState("ghost", decimal.Zero)
	err := s.ApplyTxn(context.Background(), state, 0, "k", domain.Transaction{})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestListTransactionsNewestFirstWithLimit(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedPortfolio(t, s, "acct-1", 1000)

	for i := 0; i < 3; i++ {
		next, err := s.LoadPortfolio(ctx, "acct-1")
		require.NoError(t, err)
		next.Version = uint64(i + 1)
		key := fmt.Sprintf("k-%d", i)
		require.NoError(t, s.ApplyTxn(ctx, next, uint64(i), key, domain.Transaction{IdempotencyKey: key}))
	}

	txns, err := s.ListTransactions(ctx, "acct-1", 2)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "k-2", txns[0].IdempotencyKey)
	assert.Equal(t, "k-1", txns[1].IdempotencyKey)
}

func TestDecisionFeedPaging(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(ctx, domain.DecisionRecord{
			AccountID:   "acct-1",
			Description: fmt.Sprintf("r-%d", i),
		}))
	}

	page, err := s.List(ctx, "acct-1", 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "r-4", page[0].Description)
	assert.Equal(t, "r-3", page[1].Description)

	page, err = s.List(ctx, "acct-1", 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "r-2", page[0].Description)

	page, err = s.List(ctx, "acct-1", 10, 4)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "r-0", page[0].Description)
}
