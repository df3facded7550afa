package dispatcher

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/nexuswealth/mcu/internal/application/ledger"
	"github.com/nexuswealth/mcu/pkg/domain"
	"github.com/nexuswealth/mcu/pkg/ports"
)

// run is the scheduling loop. It wakes on submissions, job
// completions and timers for the earliest retry or deadline, then
// assigns every ready job to a capable agent.
func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		d.expireOverdue()
		d.dispatchReady()

		var timer <-chan time.Time
		if next, ok := d.nextWakeup(); ok {
			delay := next.Sub(d.clock.Now())
			if delay < 0 {
				delay = 0
			}
			timer = d.clock.After(delay)
		}

		select {
		case <-d.ctx.Done():
			return
		case <-d.wake:
		case <-timer:
		}
	}
}

// nextWakeup returns the earliest instant at which a pending job
// becomes actionable: its retry time or its deadline.
func (d *Dispatcher) nextWakeup() (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var next time.Time
	for _, job := range d.jobs {
		if job.Status != domain.JobStatusPending {
			continue
		}
		candidate := job.Deadline
		if !job.NextRetryAt.IsZero() && job.NextRetryAt.Before(candidate) {
			candidate = job.NextRetryAt
		}
		if next.IsZero() || candidate.Before(next) {
			next = candidate
		}
	}
	return next, !next.IsZero()
}

// expireOverdue dead-letters pending jobs that outlived their
// deadline. A job that never reached an agent expires as
// NoCapableAgent; one that burned attempts and ran out of time while
// waiting on a retry expires as DeadlineExceeded.
func (d *Dispatcher) expireOverdue() {
	now := d.clock.Now()

	type expiry struct {
		job    *domain.Job
		reason string
	}
	d.mu.Lock()
	var overdue []expiry
	for _, job := range d.jobs {
		if job.Status != domain.JobStatusPending || !now.After(job.Deadline) {
			continue
		}
		reason := domain.ReasonNoCapableAgent
		if job.AttemptCount > 0 {
			reason = domain.ReasonDeadlineExceeded
		}
		overdue = append(overdue, expiry{job: job, reason: reason})
	}
	d.mu.Unlock()

	for _, e := range overdue {
		d.logger.Warn("job deadline expired",
			zap.String("job_id", e.job.ID),
			zap.String("type", string(e.job.Type)),
			zap.String("reason", e.reason))
		d.finalize(e.job, domain.JobStatusDeadLettered, e.reason, 0)
	}
}

// dispatchReady assigns every runnable pending job to the least
// loaded capable agent. Jobs are taken oldest first, with priority
// breaking ties within the same submission instant.
func (d *Dispatcher) dispatchReady() {
	now := d.clock.Now()

	d.mu.Lock()
	ready := make([]*domain.Job, 0)
	pending := 0
	for _, job := range d.jobs {
		if job.Status != domain.JobStatusPending {
			continue
		}
		pending++
		if !job.NextRetryAt.IsZero() && now.Before(job.NextRetryAt) {
			continue
		}
		ready = append(ready, job)
	}
	d.metrics.SetPendingJobs(pending)

	sort.Slice(ready, func(i, j int) bool {
		if !ready[i].CreatedAt.Equal(ready[j].CreatedAt) {
			return ready[i].CreatedAt.Before(ready[j].CreatedAt)
		}
		if ready[i].Priority != ready[j].Priority {
			return ready[i].Priority > ready[j].Priority
		}
		return ready[i].ActionIndex < ready[j].ActionIndex
	})

	type assignment struct {
		job   *domain.Job
		agent ports.Agent
	}
	var assigned []assignment
	for _, job := range ready {
		agent, ok := d.registry.Acquire(job.Type.Capability())
		if !ok {
			continue
		}
		if err := job.Transition(domain.JobStatusAssigned); err != nil {
			d.registry.Release(agent.ID())
			continue
		}
		job.AssignedAgentID = agent.ID()
		assigned = append(assigned, assignment{job: job, agent: agent})
	}
	d.mu.Unlock()

	for _, a := range assigned {
		d.persist(a.job)
		d.wg.Add(1)
		go d.runJob(a.agent, a.job)
	}
}

// runJob drives one attempt of a job on an agent and routes the
// result: ledger apply on success, retry or terminal status on
// failure. The agent's concurrency slot is released as soon as
// Process returns.
func (d *Dispatcher) runJob(agent ports.Agent, job *domain.Job) {
	defer d.wg.Done()

	d.mu.Lock()
	// A newer epoch may have cancelled the job between assignment and
	// execution. The slot was held for nothing; give it back.
	if job.Status != domain.JobStatusAssigned {
		d.mu.Unlock()
		d.registry.Release(agent.ID())
		return
	}
	if err := job.Transition(domain.JobStatusExecuting); err != nil {
		d.mu.Unlock()
		d.registry.Release(agent.ID())
		return
	}
	job.AttemptCount++
	job.LastAttemptAt = d.clock.Now()
	attempt := job.AttemptCount
	snapshot := *job
	d.mu.Unlock()

	d.logger.Debug("executing job",
		zap.String("job_id", job.ID),
		zap.String("agent_id", agent.ID()),
		zap.Int("attempt", attempt))

	ctx, cancel := context.WithTimeout(d.ctx, d.cfg.AgentJobDeadline)
	result, err := agent.Process(ctx, &snapshot)
	cancel()
	d.registry.Release(agent.ID())

	started := snapshot.LastAttemptAt
	if err != nil {
		d.handleFailure(job, attempt, err, started)
		return
	}
	d.handleSuccess(job, result, started)
}

// handleSuccess reconciles the agent's reported effect through the
// ledger. The idempotency key makes redelivered attempts harmless:
// the second apply reports already_applied and the job still
// succeeds.
func (d *Dispatcher) handleSuccess(job *domain.Job, result *domain.Result, started time.Time) {
	d.mu.Lock()
	job.Result = result
	d.mu.Unlock()

	if result == nil || result.Effect.IsZero() {
		d.finalizeTimed(job, domain.JobStatusSucceeded, "", 0, started)
		return
	}

	applied, err := d.ledger.Apply(context.Background(), job.AccountID, job.IdempotencyKey, result.Effect)
	if err != nil && applied.Outcome != ledger.OutcomeConflict {
		// Store-level failure, not a concurrency outcome. Retry the
		// apply on the next attempt path rather than losing the result.
		d.logger.Error("ledger apply failed",
			zap.String("job_id", job.ID),
			zap.Error(err))
		d.retryOrDeadLetter(job, started)
		return
	}

	switch applied.Outcome {
	case ledger.OutcomeApplied, ledger.OutcomeAlreadyApplied:
		d.finalizeTimed(job, domain.JobStatusSucceeded, "", applied.Version, started)
	case ledger.OutcomeConflict:
		d.logger.Warn("effect conflicts with current ledger state",
			zap.String("job_id", job.ID),
			zap.String("idempotency_key", job.IdempotencyKey))
		d.finalizeTimed(job, domain.JobStatusDeadLettered, domain.ReasonLedgerConflict, applied.Version, started)
	}
}

// handleFailure classifies an agent error and either schedules a
// retry, rejects the job, or dead-letters it.
func (d *Dispatcher) handleFailure(job *domain.Job, attempt int, err error, started time.Time) {
	kind := domain.Classify(err)

	d.logger.Warn("job attempt failed",
		zap.String("job_id", job.ID),
		zap.Int("attempt", attempt),
		zap.String("kind", string(kind)),
		zap.Error(err))

	switch kind {
	case domain.ErrorKindValidation, domain.ErrorKindCompliance:
		// Deterministic failures never improve on retry.
		d.finalizeTimed(job, domain.JobStatusRejected, err.Error(), 0, started)
	default:
		d.retryOrDeadLetter(job, started)
	}
}

// retryOrDeadLetter returns a job to the pending queue with a jittered
// backoff, or dead-letters it once attempts are exhausted.
func (d *Dispatcher) retryOrDeadLetter(job *domain.Job, started time.Time) {
	d.mu.Lock()
	attempt := job.AttemptCount
	if attempt >= d.cfg.MaxAttempts {
		d.mu.Unlock()
		d.finalizeTimed(job, domain.JobStatusDeadLettered, domain.ReasonMaxAttempts, 0, started)
		return
	}

	if err := job.Transition(domain.JobStatusPending); err != nil {
		// Cancelled mid-flight; the terminal status stands.
		d.mu.Unlock()
		return
	}
	delay := d.backoff.Delay(attempt)
	job.NextRetryAt = d.clock.Now().Add(delay)
	job.AssignedAgentID = ""
	d.mu.Unlock()

	d.metrics.RecordJobRetry(string(job.Type))
	d.logger.Info("job scheduled for retry",
		zap.String("job_id", job.ID),
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay))
	d.persist(job)
	d.notify()
}

// finalize moves a job to a terminal status, records it, publishes
// the outcome event and appends the feed entry.
func (d *Dispatcher) finalize(job *domain.Job, status domain.JobStatus, reason string, version uint64) {
	d.finalizeTimed(job, status, reason, version, time.Time{})
}

func (d *Dispatcher) finalizeTimed(job *domain.Job, status domain.JobStatus, reason string, version uint64, started time.Time) {
	d.mu.Lock()
	if job.Status.Terminal() {
		d.mu.Unlock()
		return
	}
	if err := job.Transition(status); err != nil {
		d.logger.Error("invalid terminal transition",
			zap.String("job_id", job.ID),
			zap.String("from", string(job.Status)),
			zap.String("to", string(status)))
		d.mu.Unlock()
		return
	}
	job.FailureReason = reason
	d.mu.Unlock()

	d.announceTerminal(job, version, started)
}

// announceTerminal records, persists and publishes a job that has
// already reached a terminal status.
func (d *Dispatcher) announceTerminal(job *domain.Job, version uint64, started time.Time) {
	d.mu.Lock()
	snapshot := *job
	d.mu.Unlock()

	duration := time.Duration(0)
	if !started.IsZero() {
		duration = d.clock.Now().Sub(started)
	}
	d.metrics.RecordJobCompleted(string(snapshot.Status), duration)
	if snapshot.Status == domain.JobStatusDeadLettered {
		d.metrics.RecordDeadLetter(snapshot.FailureReason)
	}

	d.logger.Info("job finalized",
		zap.String("job_id", snapshot.ID),
		zap.String("account_id", snapshot.AccountID),
		zap.String("status", string(snapshot.Status)),
		zap.String("reason", snapshot.FailureReason),
		zap.Uint64("version", version))

	d.persist(job)
	d.publishOutcome(snapshot, version)
	d.appendOutcomeRecord(snapshot)
	d.notify()
}

func (d *Dispatcher) appendOutcomeRecord(job domain.Job) {
	description := job.Action.Describe() + " " + string(job.Status)
	if job.FailureReason != "" {
		description += " (" + job.FailureReason + ")"
	}
	record := domain.DecisionRecord{
		Type:        "outcome",
		AccountID:   job.AccountID,
		Timestamp:   d.clock.Now(),
		Description: description,
	}
	if err := d.feed.Append(context.Background(), record); err != nil {
		d.logger.Error("failed to append outcome record",
			zap.String("job_id", job.ID),
			zap.Error(err))
	}
}
