package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nexuswealth/mcu/internal/application/ledger"
	"github.com/nexuswealth/mcu/internal/application/registry"
	"github.com/nexuswealth/mcu/internal/application/riskgate"
	"github.com/nexuswealth/mcu/pkg/domain"
	"github.com/nexuswealth/mcu/pkg/ports"
)

// Config holds the dispatcher's tunables.
type Config struct {
	MaxAttempts      int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	AgentJobDeadline time.Duration
	// DefaultMaxSingleTradePct applies to accounts without explicit
	// constraints.
	DefaultMaxSingleTradePct decimal.Decimal
}

// account tracks the per-account coordination state: the current
// epoch and the ids of jobs created for the account.
type account struct {
	epoch       uint64
	constraints *domain.AccountConstraints
	jobIDs      []string
}

// Dispatcher is the mission control core.
type Dispatcher struct {
	cfg      Config
	registry *registry.Registry
	gate     *riskgate.Gate
	ledger   *ledger.Ledger
	store    ports.JobStore
	bus      ports.EventBus
	feed     ports.DecisionLog
	metrics  ports.MetricsCollector
	logger   *zap.Logger
	clock    ports.Clock
	backoff  Backoff

	mu       sync.Mutex
	accounts map[string]*account
	jobs     map[string]*domain.Job

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a dispatcher. Call Start before submitting decisions.
func New(
	cfg Config,
	reg *registry.Registry,
	gate *riskgate.Gate,
	ldg *ledger.Ledger,
	store ports.JobStore,
	bus ports.EventBus,
	feed ports.DecisionLog,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	clock ports.Clock,
) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		cfg:      cfg,
		registry: reg,
		gate:     gate,
		ledger:   ldg,
		store:    store,
		bus:      bus,
		feed:     feed,
		metrics:  metrics,
		logger:   logger,
		clock:    clock,
		backoff:  Backoff{Base: cfg.RetryBaseDelay, Max: cfg.RetryMaxDelay},
		accounts: make(map[string]*account),
		jobs:     make(map[string]*domain.Job),
		wake:     make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the scheduling loop.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
	d.logger.Info("dispatcher started",
		zap.Int("max_attempts", d.cfg.MaxAttempts),
		zap.Duration("agent_job_deadline", d.cfg.AgentJobDeadline))
}

// Shutdown stops the scheduling loop and waits for inflight job
// goroutines to finish or the context to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.logger.Info("shutting down dispatcher")
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("dispatcher shut down complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher shutdown timeout")
	}
}

// SetConstraints configures the compliance limits for an account.
func (d *Dispatcher) SetConstraints(accountID string, constraints domain.AccountConstraints) {
	d.mu.Lock()
	defer d.mu.Unlock()
	acct := d.accountLocked(accountID)
	acct.constraints = &constraints
}

// Constraints returns the effective compliance limits for an account,
// falling back to the configured defaults.
func (d *Dispatcher) Constraints(accountID string) domain.AccountConstraints {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.constraintsLocked(d.accountLocked(accountID))
}

// Submit validates a decision batch, risk-gates each action and
// enqueues the surviving jobs. It blocks only long enough to validate
// and enqueue; execution happens off the calling path.
//
// A decision whose epoch is not newer than the account's current
// epoch is rejected wholesale with domain.ErrSuperseded. A newer
// epoch cancels the prior epoch's not-yet-executing jobs; jobs
// already executing run to completion and still apply through the
// idempotent ledger path.
func (d *Dispatcher) Submit(ctx context.Context, decision domain.Decision) ([]domain.JobHandle, error) {
	if err := decision.Validate(); err != nil {
		d.metrics.RecordDecisionSubmitted("invalid")
		return nil, fmt.Errorf("invalid decision: %w", err)
	}

	state, err := d.ledger.State(ctx, decision.AccountID)
	if err != nil {
		d.metrics.RecordDecisionSubmitted("failed")
		return nil, fmt.Errorf("failed to load account state: %w", err)
	}

	d.mu.Lock()
	acct := d.accountLocked(decision.AccountID)
	if decision.Epoch <= acct.epoch {
		current := acct.epoch
		d.mu.Unlock()
		d.metrics.RecordDecisionSubmitted("superseded")
		return nil, fmt.Errorf("epoch %d not newer than current %d: %w",
			decision.Epoch, current, domain.ErrSuperseded)
	}
	acct.epoch = decision.Epoch
	cancelled := d.cancelStaleLocked(acct, decision.Epoch)
	constraints := d.constraintsLocked(acct)

	now := d.clock.Now()
	created := make([]*domain.Job, 0, len(decision.Actions))
	for i, action := range decision.Actions {
		job := &domain.Job{
			ID:             uuid.New().String(),
			IdempotencyKey: decision.IdempotencyKey(i),
			AccountID:      decision.AccountID,
			Epoch:          decision.Epoch,
			ActionIndex:    i,
			Type:           action.Type,
			Action:         action,
			Priority:       action.Priority,
			Status:         domain.JobStatusPending,
			CreatedAt:      now,
			Deadline:       now.Add(d.cfg.AgentJobDeadline),
		}
		d.jobs[job.ID] = job
		acct.jobIDs = append(acct.jobIDs, job.ID)
		created = append(created, job)
	}
	d.mu.Unlock()

	// Risk-gate every action against the proposal-time state. The gate
	// never sees stale jobs: rejected ones terminalize right here.
	handles := make([]domain.JobHandle, 0, len(created))
	var rejected []*domain.Job
	for _, job := range created {
		if job.Type.TradeAffecting() {
			verdict := d.gate.Evaluate(ctx, state, constraints, job.Action)
			d.mu.Lock()
			job.Verdict = &verdict
			switch verdict.Outcome {
			case domain.VerdictRejected:
				d.mu.Unlock()
				rejected = append(rejected, job)
			case domain.VerdictModified:
				job.Action = *verdict.Modified
				d.mu.Unlock()
			default:
				d.mu.Unlock()
			}
		}
		d.metrics.RecordJobCreated(string(job.Type))
	}
	for _, job := range rejected {
		d.finalize(job, domain.JobStatusRejected, job.Verdict.Reason, 0)
	}

	for _, job := range cancelled {
		d.announceTerminal(job, 0, time.Time{})
	}
	for _, job := range created {
		d.persist(job)
		handles = append(handles, domain.JobHandle{
			JobID:          job.ID,
			IdempotencyKey: job.IdempotencyKey,
			ActionIndex:    job.ActionIndex,
			Status:         job.Status,
		})
	}

	d.appendDecisionRecord(decision)
	d.publishDecisionEvent(decision)
	d.metrics.RecordDecisionSubmitted("accepted")
	d.logger.Info("decision submitted",
		zap.String("account_id", decision.AccountID),
		zap.Uint64("epoch", decision.Epoch),
		zap.Int("actions", len(decision.Actions)),
		zap.Int("cancelled_stale", len(cancelled)))

	d.notify()
	return handles, nil
}

// Poll returns the current status of a job.
func (d *Dispatcher) Poll(ctx context.Context, jobID string) (domain.JobStatus, error) {
	d.mu.Lock()
	if job, ok := d.jobs[jobID]; ok {
		status := job.Status
		d.mu.Unlock()
		return status, nil
	}
	d.mu.Unlock()

	job, err := d.store.GetJob(ctx, jobID)
	if err != nil {
		return "", domain.ErrJobNotFound
	}
	return job.Status, nil
}

// Job returns a snapshot of a job for the query API.
func (d *Dispatcher) Job(ctx context.Context, jobID string) (*domain.Job, error) {
	d.mu.Lock()
	if job, ok := d.jobs[jobID]; ok {
		snapshot := *job
		d.mu.Unlock()
		return &snapshot, nil
	}
	d.mu.Unlock()

	job, err := d.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

// accountLocked returns the coordination state for an account,
// creating it on first use. Caller holds d.mu.
func (d *Dispatcher) accountLocked(accountID string) *account {
	acct, ok := d.accounts[accountID]
	if !ok {
		acct = &account{}
		d.accounts[accountID] = acct
	}
	return acct
}

func (d *Dispatcher) constraintsLocked(acct *account) domain.AccountConstraints {
	if acct.constraints != nil {
		return *acct.constraints
	}
	return domain.AccountConstraints{
		MaxSingleTradePct: d.cfg.DefaultMaxSingleTradePct,
		TradingEnabled:    true,
	}
}

// cancelStaleLocked cancels the prior epoch's not-yet-executing jobs
// while the lock is still held, so the scheduler can never assign a
// superseded job between the epoch bump and its finalization. The
// cancelled jobs are returned for outcome publication outside the
// lock. Caller holds d.mu.
func (d *Dispatcher) cancelStaleLocked(acct *account, newEpoch uint64) []*domain.Job {
	var stale []*domain.Job
	for _, id := range acct.jobIDs {
		job, ok := d.jobs[id]
		if !ok || job.Epoch >= newEpoch {
			continue
		}
		switch job.Status {
		case domain.JobStatusPending, domain.JobStatusAssigned:
			if err := job.Transition(domain.JobStatusCancelled); err != nil {
				continue
			}
			job.FailureReason = domain.ReasonSuperseded
			stale = append(stale, job)
		}
	}
	return stale
}

func (d *Dispatcher) appendDecisionRecord(decision domain.Decision) {
	actions := make([]string, len(decision.Actions))
	for i, a := range decision.Actions {
		actions[i] = a.Describe()
	}
	record := domain.DecisionRecord{
		Type:        "decision",
		AccountID:   decision.AccountID,
		Timestamp:   d.clock.Now(),
		Description: fmt.Sprintf("epoch %d: %d proposed actions", decision.Epoch, len(decision.Actions)),
		Actions:     actions,
	}
	if err := d.feed.Append(context.Background(), record); err != nil {
		d.logger.Error("failed to append decision record", zap.Error(err))
	}
}

func (d *Dispatcher) publishDecisionEvent(decision domain.Decision) {
	event := ports.Event{
		ID:        uuid.New().String(),
		Type:      ports.EventTypeDecisionSubmitted,
		AccountID: decision.AccountID,
		Timestamp: d.clock.Now(),
		Data: map[string]interface{}{
			"decision_id": decision.ID,
			"epoch":       decision.Epoch,
			"actions":     len(decision.Actions),
		},
	}
	if err := d.bus.Publish(context.Background(), ports.TopicDecisions, event); err != nil {
		d.logger.Error("failed to publish decision event", zap.Error(err))
	}
}

// notify wakes the scheduler without blocking.
func (d *Dispatcher) notify() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// persist snapshots a job to the store. Persistence failures are
// logged, not fatal: the in-memory view remains authoritative.
func (d *Dispatcher) persist(job *domain.Job) {
	d.mu.Lock()
	snapshot := *job
	d.mu.Unlock()
	if err := d.store.SaveJob(context.Background(), &snapshot); err != nil {
		d.logger.Error("failed to persist job",
			zap.String("job_id", job.ID),
			zap.Error(err))
	}
}
