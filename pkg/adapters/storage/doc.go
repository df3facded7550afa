// Package storage provides job, ledger and decision feed storage
// implementations.
//
// Implementations:
//   - redis: Redis with JSON serialization; ledger commits run through
//     an atomic Lua script
//   - memory: In-memory for single-node deployments and testing
package storage
