package domain

import "time"

// Outcome is the terminal result surfaced to the decision process for
// one submitted action. Every job produces exactly one outcome.
type Outcome struct {
	JobID       string    `json:"job_id"`
	AccountID   string    `json:"account_id"`
	Epoch       uint64    `json:"epoch"`
	ActionIndex int       `json:"action_index"`
	Status      JobStatus `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	// Version is the ledger version after the applied effect, zero for
	// outcomes that applied nothing.
	Version    uint64    `json:"version,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// DecisionRecord is one entry in the dashboard decisions feed,
// ordered newest-first.
type DecisionRecord struct {
	Type        string    `json:"type"`
	AccountID   string    `json:"account_id"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	Actions     []string  `json:"actions"`
}
