// Package ledger maintains versioned portfolio state per account.
//
// Every mutation flows through Apply, which consults the per-account
// idempotency set and performs a compare-and-swap on the state
// version: replays return AlreadyApplied without touching state, and
// concurrent writers can never both succeed against the same version.
// Each applied mutation appends an immutable transaction record.
package ledger
