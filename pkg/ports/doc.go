// Package ports defines the interfaces between the mission control
// core and its collaborators: worker agents, persistence services,
// the event bus, market/brokerage clients, the retrieval provider
// and the metrics collector. Adapters under pkg/adapters provide the
// concrete implementations.
package ports
