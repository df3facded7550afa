// Package dispatcher implements the mission control core.
//
// The dispatcher turns decision batches into jobs, gates them through
// the risk gate, assigns them to capable agents from the registry and
// reconciles results into the portfolio ledger. It coordinates:
//   - Per-account epochs: a newer decision cancels the prior epoch's
//     not-yet-executing jobs
//   - FIFO assignment within a capability, priority breaking ties,
//     never exceeding an agent's concurrency limit
//   - Exponential backoff with full jitter for transient failures,
//     dead-lettering once attempts are exhausted
//   - At-least-once delivery to agents with at-most-once ledger
//     effect, enforced by the idempotency key at the ledger boundary
//
// Terminal outcomes are published on the event bus and appended to
// the decisions feed.
package dispatcher
