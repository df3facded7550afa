package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies an execution failure so the dispatcher can
// decide whether to retry.
type ErrorKind string

const (
	// ErrorKindTransient covers timeouts and temporary unavailability;
	// retried with backoff up to the attempt cap.
	ErrorKindTransient ErrorKind = "transient"
	// ErrorKindValidation covers malformed payloads and unsupported
	// instruments; never retried.
	ErrorKindValidation ErrorKind = "validation"
	// ErrorKindCompliance covers risk-gate rejections; never reaches
	// an agent.
	ErrorKindCompliance ErrorKind = "compliance"
	// ErrorKindConflict covers ledger compare-and-swap failures that
	// survived the bounded retry.
	ErrorKindConflict ErrorKind = "conflict"
	// ErrorKindCapacity covers jobs that found no capable agent within
	// their deadline.
	ErrorKindCapacity ErrorKind = "capacity"
)

// AgentError is the typed failure agents report so retryability can
// be classified.
type AgentError struct {
	Kind ErrorKind
	Err  error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *AgentError) Unwrap() error { return e.Err }

// NewTransientError wraps an error as retryable.
func NewTransientError(err error) *AgentError {
	return &AgentError{Kind: ErrorKindTransient, Err: err}
}

// NewValidationError wraps an error as a permanent rejection.
func NewValidationError(err error) *AgentError {
	return &AgentError{Kind: ErrorKindValidation, Err: err}
}

// Classify extracts the error kind from a job execution failure.
// Deadline expiry counts as transient; anything unclassified is
// treated as transient so genuine outages are retried rather than
// silently dropped.
func Classify(err error) ErrorKind {
	var agentErr *AgentError
	if errors.As(err, &agentErr) {
		return agentErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorKindTransient
	}
	return ErrorKindTransient
}

// Submission and ledger sentinels.
var (
	// ErrSuperseded rejects a decision whose epoch is not newer than
	// the account's current epoch.
	ErrSuperseded = errors.New("decision epoch superseded")
	// ErrJobNotFound is returned by Poll for unknown job ids.
	ErrJobNotFound = errors.New("job not found")
	// ErrVersionConflict is returned by ledger stores when the
	// compare-and-swap expectation fails.
	ErrVersionConflict = errors.New("portfolio version conflict")
	// ErrAlreadyApplied is returned when an idempotency key lost a
	// race and the effect was applied by another caller.
	ErrAlreadyApplied = errors.New("idempotency key already applied")
	// ErrAccountNotFound is returned for accounts without state.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidEffect is returned when applying an effect would drive
	// cash or a holding negative.
	ErrInvalidEffect = errors.New("effect no longer valid against current state")
)
