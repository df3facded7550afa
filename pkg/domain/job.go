package domain

import (
	"errors"
	"time"
)

// JobStatus tracks the lifecycle of a dispatched job.
type JobStatus string

const (
	JobStatusPending      JobStatus = "pending"
	JobStatusAssigned     JobStatus = "assigned"
	JobStatusExecuting    JobStatus = "executing"
	JobStatusSucceeded    JobStatus = "succeeded"
	JobStatusRejected     JobStatus = "rejected"
	JobStatusDeadLettered JobStatus = "dead_lettered"
	JobStatusCancelled    JobStatus = "cancelled"
)

// Terminal reports whether a job may never leave this status.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusRejected, JobStatusDeadLettered, JobStatusCancelled:
		return true
	}
	return false
}

// ErrInvalidTransition is returned when a job status change violates
// the state machine.
var ErrInvalidTransition = errors.New("invalid job state transition")

var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:   {JobStatusAssigned, JobStatusRejected, JobStatusCancelled, JobStatusDeadLettered},
	JobStatusAssigned:  {JobStatusExecuting, JobStatusCancelled},
	JobStatusExecuting: {JobStatusSucceeded, JobStatusPending, JobStatusRejected, JobStatusDeadLettered, JobStatusCancelled},
}

// CanTransition reports whether a job may move from one status to
// another. Terminal statuses have no outgoing transitions.
func CanTransition(from, to JobStatus) bool {
	for _, next := range jobTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Dead-letter reasons recorded on terminal jobs.
const (
	ReasonNoCapableAgent   = "NoCapableAgent"
	ReasonMaxAttempts      = "MaxAttemptsExceeded"
	ReasonLedgerConflict   = "LedgerConflict"
	ReasonSuperseded       = "Superseded"
	ReasonDeadlineExceeded = "DeadlineExceeded"
)

// Result is what an agent reports back after processing a job.
type Result struct {
	// Effect is the portfolio mutation to apply through the ledger.
	// Zero effects (risk audits) apply as no-ops.
	Effect Effect `json:"effect"`
	// BrokerRef is the external confirmation reference, when any.
	BrokerRef string `json:"broker_ref,omitempty"`
	// Report carries agent-specific output such as audit findings.
	Report map[string]interface{} `json:"report,omitempty"`
}

// Job is one unit of dispatched work derived from a proposed action.
type Job struct {
	ID              string         `json:"id"`
	IdempotencyKey  string         `json:"idempotency_key"`
	AccountID       string         `json:"account_id"`
	Epoch           uint64         `json:"epoch"`
	ActionIndex     int            `json:"action_index"`
	Type            ActionType     `json:"type"`
	Action          ProposedAction `json:"action"`
	Priority        int            `json:"priority"`
	Status          JobStatus      `json:"status"`
	AttemptCount    int            `json:"attempt_count"`
	AssignedAgentID string         `json:"assigned_agent_id,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	LastAttemptAt   time.Time      `json:"last_attempt_at,omitempty"`
	NextRetryAt     time.Time      `json:"next_retry_at,omitempty"`
	Deadline        time.Time      `json:"deadline"`
	Result          *Result        `json:"result,omitempty"`
	FailureReason   string         `json:"failure_reason,omitempty"`
	// Verdict is set for every trade-affecting job before dispatch.
	Verdict *RiskVerdict `json:"verdict,omitempty"`
}

// Transition moves the job to a new status, enforcing the state
// machine. Terminal states are never exited.
func (j *Job) Transition(to JobStatus) error {
	if !CanTransition(j.Status, to) {
		return ErrInvalidTransition
	}
	j.Status = to
	return nil
}

// JobHandle is returned to the decision process on submission so the
// eventual outcome of each action can be polled.
type JobHandle struct {
	JobID          string    `json:"job_id"`
	IdempotencyKey string    `json:"idempotency_key"`
	ActionIndex    int       `json:"action_index"`
	Status         JobStatus `json:"status"`
}
