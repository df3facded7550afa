package ports

import (
	"context"

	"github.com/nexuswealth/mcu/pkg/domain"
)

// Agent is a specialized executor bound to one or more capability
// tags. Process must report failures as *domain.AgentError so the
// dispatcher can classify retryability, and must not apply side
// effects more than once per idempotency key on its external system.
type Agent interface {
	ID() string
	Capabilities() []string
	MaxConcurrency() int
	Process(ctx context.Context, job *domain.Job) (*domain.Result, error)
}
