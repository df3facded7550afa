// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Decision submission and the decisions feed
//   - Job status queries
//   - Portfolio summary, assets and transactions
//   - Agent registry inspection
//   - Retrieval queries
//   - Health checks
//   - Prometheus metrics
package http
