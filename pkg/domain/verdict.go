package domain

// VerdictOutcome is the risk gate's ruling on a proposed action.
type VerdictOutcome string

const (
	VerdictApproved VerdictOutcome = "approved"
	VerdictRejected VerdictOutcome = "rejected"
	VerdictModified VerdictOutcome = "modified"
)

// RiskVerdict is the result of evaluating one proposed action against
// the account's constraints and current portfolio state.
type RiskVerdict struct {
	JobID   string         `json:"job_id,omitempty"`
	Outcome VerdictOutcome `json:"outcome"`
	Reason  string         `json:"reason,omitempty"`
	// Modified holds the reduced action when Outcome is VerdictModified;
	// the dispatcher substitutes it for the original payload.
	Modified *ProposedAction `json:"modified,omitempty"`
}
