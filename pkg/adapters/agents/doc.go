// Package agents provides the built-in worker agents: trading agents
// backed by a brokerage client, a risk-check auditor and a cash
// operations agent. All failures are reported through the typed error
// taxonomy so the dispatcher can classify retryability.
package agents
