package ports

import "time"

// MetricsCollector records operational metrics for the core.
type MetricsCollector interface {
	RecordDecisionSubmitted(status string)
	RecordJobCreated(actionType string)
	RecordJobCompleted(status string, duration time.Duration)
	RecordJobRetry(actionType string)
	RecordDeadLetter(reason string)
	RecordLedgerApply(outcome string)
	SetPendingJobs(count int)
	RecordRegistryStatus(registered, inflight int)
}
