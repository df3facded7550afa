package registry

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// HealthMonitor periodically logs registry utilization and feeds the
// metrics collector.
type HealthMonitor struct {
	registry *Registry
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewHealthMonitor creates a monitor for the registry.
func NewHealthMonitor(registry *Registry, interval time.Duration, logger *zap.Logger) *HealthMonitor {
	return &HealthMonitor{
		registry: registry,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the monitoring loop. Calling Start twice is a no-op.
func (h *HealthMonitor) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

// Stop ends the monitoring loop.
func (h *HealthMonitor) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.stopCh)
}

func (h *HealthMonitor) run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.check()
		}
	}
}

func (h *HealthMonitor) check() {
	registered, inflight := h.registry.totals()

	h.logger.Info("agent registry health check",
		zap.Int("registered", registered),
		zap.Int("inflight", inflight))

	h.registry.metrics.RecordRegistryStatus(registered, inflight)

	if registered == 0 {
		h.logger.Warn("no agents registered - jobs will dead-letter on deadline")
	}

	saturated := true
	for _, info := range h.registry.Snapshot() {
		if info.Inflight < info.MaxConcurrency {
			saturated = false
			break
		}
	}
	if registered > 0 && saturated {
		h.logger.Warn("all agents saturated - consider raising concurrency limits",
			zap.Int("registered", registered))
	}
}
