// Package registry tracks the worker agents available to the
// dispatcher: their capability tags, concurrency limits and current
// inflight counts.
//
// The registry hands out execution slots atomically so an agent is
// never assigned more concurrent jobs than its declared limit. The
// health monitor periodically logs and records pool utilization.
package registry
