package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nexuswealth/mcu/pkg/domain"
	"github.com/nexuswealth/mcu/pkg/ports"
)

// applyScript performs the ledger commit atomically: reject a seen
// idempotency key, reject a stale version, otherwise write the new
// state, bump the version, mark the key and append the transaction.
//
// KEYS[1] state, KEYS[2] seen-keys set, KEYS[3] version, KEYS[4] txn list
// ARGV[1] expected version, ARGV[2] idempotency key,
// ARGV[3] state json, ARGV[4] new version, ARGV[5] txn json
var applyScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[2], ARGV[2]) == 1 then
  return 'already_applied'
end
if redis.call('GET', KEYS[3]) ~= ARGV[1] then
  return 'version_conflict'
end
redis.call('SET', KEYS[1], ARGV[3])
redis.call('SET', KEYS[3], ARGV[4])
redis.call('SADD', KEYS[2], ARGV[2])
redis.call('LPUSH', KEYS[4], ARGV[5])
return 'ok'
`)

// Store implements JobStore, LedgerStore and DecisionLog on Redis.
// Job snapshots carry a TTL; ledger state and transactions do not
// expire.
type Store struct {
	client *redis.Client
	logger *zap.Logger
	jobTTL time.Duration
}

// NewStore creates a Redis-backed store. jobTTL of zero keeps job
// snapshots forever.
func NewStore(client *redis.Client, jobTTL time.Duration, logger *zap.Logger) *Store {
	return &Store{
		client: client,
		logger: logger,
		jobTTL: jobTTL,
	}
}

func jobKey(jobID string) string          { return fmt.Sprintf("mcu:job:%s", jobID) }
func jobIndexKey(accountID string) string { return fmt.Sprintf("mcu:jobs:%s", accountID) }
func stateKey(accountID string) string    { return fmt.Sprintf("mcu:portfolio:%s", accountID) }
func versionKey(accountID string) string  { return fmt.Sprintf("mcu:portfolio:%s:version", accountID) }
func seenKeysKey(accountID string) string { return fmt.Sprintf("mcu:seen:%s", accountID) }
func txnsKey(accountID string) string     { return fmt.Sprintf("mcu:txns:%s", accountID) }
func feedKey(accountID string) string     { return fmt.Sprintf("mcu:feed:%s", accountID) }

// SaveJob stores a job snapshot and indexes it by account.
func (s *Store) SaveJob(ctx context.Context, job *domain.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, jobKey(job.ID), data, s.jobTTL)
	pipe.SAdd(ctx, jobIndexKey(job.AccountID), job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

// GetJob returns a stored job snapshot.
func (s *Store) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	data, err := s.client.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	var job domain.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// ListJobs returns the account's stored jobs. Expired snapshots are
// skipped.
func (s *Store) ListJobs(ctx context.Context, accountID string) ([]*domain.Job, error) {
	ids, err := s.client.SMembers(ctx, jobIndexKey(accountID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list job ids: %w", err)
	}

	jobs := make([]*domain.Job, 0, len(ids))
	for _, id := range ids {
		job, err := s.GetJob(ctx, id)
		if err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// CreatePortfolio seeds the state and version keys for a new account.
func (s *Store) CreatePortfolio(ctx context.Context, state *domain.PortfolioState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal portfolio: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, stateKey(state.AccountID), data, 0)
	pipe.Set(ctx, versionKey(state.AccountID), strconv.FormatUint(state.Version, 10), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create portfolio: %w", err)
	}
	return nil
}

// LoadPortfolio returns the stored account state.
func (s *Store) LoadPortfolio(ctx context.Context, accountID string) (*domain.PortfolioState, error) {
	data, err := s.client.Get(ctx, stateKey(accountID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}

	var state domain.PortfolioState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal portfolio: %w", err)
	}
	return &state, nil
}

// SeenKey reports whether the idempotency key already applied.
func (s *Store) SeenKey(ctx context.Context, accountID, idempotencyKey string) (bool, error) {
	seen, err := s.client.SIsMember(ctx, seenKeysKey(accountID), idempotencyKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	return seen, nil
}

// ApplyTxn commits the new state through the atomic script.
func (s *Store) ApplyTxn(ctx context.Context, state *domain.PortfolioState, expectedVersion uint64, idempotencyKey string, txn domain.Transaction) error {
	stateData, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal portfolio: %w", err)
	}
	txnData, err := json.Marshal(txn)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}

	keys := []string{
		stateKey(state.AccountID),
		seenKeysKey(state.AccountID),
		versionKey(state.AccountID),
		txnsKey(state.AccountID),
	}
	args := []interface{}{
		strconv.FormatUint(expectedVersion, 10),
		idempotencyKey,
		string(stateData),
		strconv.FormatUint(state.Version, 10),
		string(txnData),
	}

	result, err := applyScript.Run(ctx, s.client, keys, args...).Text()
	if err != nil {
		return fmt.Errorf("failed to run apply script: %w", err)
	}

	switch result {
	case "ok":
		s.logger.Debug("transaction committed",
			zap.String("account_id", state.AccountID),
			zap.Uint64("version", state.Version))
		return nil
	case "already_applied":
		return domain.ErrAlreadyApplied
	case "version_conflict":
		return domain.ErrVersionConflict
	default:
		return fmt.Errorf("unexpected apply script result: %s", result)
	}
}

// ListTransactions returns the newest transactions first.
func (s *Store) ListTransactions(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	items, err := s.client.LRange(ctx, txnsKey(accountID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	txns := make([]domain.Transaction, 0, len(items))
	for _, item := range items {
		var txn domain.Transaction
		if err := json.Unmarshal([]byte(item), &txn); err != nil {
			s.logger.Error("corrupt transaction record", zap.Error(err))
			continue
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

// Append pushes a record onto the account's decision feed.
func (s *Store) Append(ctx context.Context, record domain.DecisionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := s.client.LPush(ctx, feedKey(record.AccountID), data).Err(); err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}
	return nil
}

// List pages through the feed newest first.
func (s *Store) List(ctx context.Context, accountID string, limit, offset int) ([]domain.DecisionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	start := int64(offset)
	stop := start + int64(limit) - 1
	items, err := s.client.LRange(ctx, feedKey(accountID), start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	records := make([]domain.DecisionRecord, 0, len(items))
	for _, item := range items {
		var record domain.DecisionRecord
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			s.logger.Error("corrupt feed record", zap.Error(err))
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

var (
	_ ports.JobStore    = (*Store)(nil)
	_ ports.LedgerStore = (*Store)(nil)
	_ ports.DecisionLog = (*Store)(nil)
)
