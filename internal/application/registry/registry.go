package registry

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nexuswealth/mcu/pkg/ports"
)

// entry wraps a registered agent with its scheduling bookkeeping.
type entry struct {
	agent    ports.Agent
	tags     map[string]struct{}
	inflight int
	lastSeen time.Time
}

// AgentInfo is a read-only snapshot of one registered agent.
type AgentInfo struct {
	ID             string    `json:"id"`
	Capabilities   []string  `json:"capabilities"`
	MaxConcurrency int       `json:"max_concurrency"`
	Inflight       int       `json:"inflight"`
	LastSeen       time.Time `json:"last_seen"`
}

// Registry tracks available agents and their free capacity.
type Registry struct {
	mu      sync.Mutex
	agents  map[string]*entry
	logger  *zap.Logger
	metrics ports.MetricsCollector
}

// New creates an empty registry.
func New(logger *zap.Logger, metrics ports.MetricsCollector) *Registry {
	return &Registry{
		agents:  make(map[string]*entry),
		logger:  logger,
		metrics: metrics,
	}
}

// Register adds an agent. Re-registering an id replaces the previous
// entry, keeping its inflight count at zero.
func (r *Registry) Register(agent ports.Agent) error {
	if agent.ID() == "" {
		return fmt.Errorf("agent id is required")
	}
	if agent.MaxConcurrency() < 1 {
		return fmt.Errorf("agent %s: max concurrency must be at least 1", agent.ID())
	}
	if len(agent.Capabilities()) == 0 {
		return fmt.Errorf("agent %s: at least one capability tag is required", agent.ID())
	}

	tags := make(map[string]struct{}, len(agent.Capabilities()))
	for _, tag := range agent.Capabilities() {
		tags[tag] = struct{}{}
	}

	r.mu.Lock()
	r.agents[agent.ID()] = &entry{agent: agent, tags: tags, lastSeen: time.Now()}
	r.mu.Unlock()

	r.logger.Info("agent registered",
		zap.String("agent_id", agent.ID()),
		zap.Strings("capabilities", agent.Capabilities()),
		zap.Int("max_concurrency", agent.MaxConcurrency()))
	return nil
}

// Deregister removes an agent. Jobs it is already executing run to
// completion; it simply receives no new assignments.
func (r *Registry) Deregister(agentID string) {
	r.mu.Lock()
	delete(r.agents, agentID)
	r.mu.Unlock()

	r.logger.Info("agent deregistered", zap.String("agent_id", agentID))
}

// HasCapability reports whether any registered agent carries the tag,
// regardless of current load.
func (r *Registry) HasCapability(tag string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.agents {
		if _, ok := e.tags[tag]; ok {
			return true
		}
	}
	return false
}

// Acquire reserves one execution slot on the least-loaded agent
// carrying the capability tag. The caller must Release the returned
// agent id when the job finishes. Returns false when every capable
// agent is saturated or none exists.
func (r *Registry) Acquire(tag string) (ports.Agent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *entry
	for _, e := range r.agents {
		if _, ok := e.tags[tag]; !ok {
			continue
		}
		if e.inflight >= e.agent.MaxConcurrency() {
			continue
		}
		if best == nil || e.inflight < best.inflight {
			best = e
		}
	}
	if best == nil {
		return nil, false
	}

	best.inflight++
	best.lastSeen = time.Now()
	return best.agent, true
}

// Release returns an execution slot taken by Acquire.
func (r *Registry) Release(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.agents[agentID]; ok && e.inflight > 0 {
		e.inflight--
	}
}

// Snapshot returns the current state of every registered agent.
func (r *Registry) Snapshot() []AgentInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]AgentInfo, 0, len(r.agents))
	for _, e := range r.agents {
		infos = append(infos, AgentInfo{
			ID:             e.agent.ID(),
			Capabilities:   e.agent.Capabilities(),
			MaxConcurrency: e.agent.MaxConcurrency(),
			Inflight:       e.inflight,
			LastSeen:       e.lastSeen,
		})
	}
	return infos
}

// totals returns registered agent and inflight job counts.
func (r *Registry) totals() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inflight := 0
	for _, e := range r.agents {
		inflight += e.inflight
	}
	return len(r.agents), inflight
}
