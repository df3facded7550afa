package dispatcher

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexuswealth/mcu/pkg/domain"
	"github.com/nexuswealth/mcu/pkg/ports"
)

// publishOutcome emits the terminal status of a job on the outcomes
// topic. Decision processes subscribe here instead of polling.
func (d *Dispatcher) publishOutcome(job domain.Job, version uint64) {
	event := ports.Event{
		ID:        uuid.New().String(),
		Type:      ports.EventTypeJobOutcome,
		AccountID: job.AccountID,
		Timestamp: d.clock.Now(),
		Data: map[string]interface{}{
			"job_id":       job.ID,
			"epoch":        job.Epoch,
			"action_index": job.ActionIndex,
			"status":       string(job.Status),
			"reason":       job.FailureReason,
			"version":      version,
		},
	}
	if err := d.bus.Publish(context.Background(), ports.TopicOutcomes, event); err != nil {
		d.logger.Error("failed to publish outcome",
			zap.String("job_id", job.ID),
			zap.Error(err))
	}
}

// OutcomeFromEvent decodes an outcome event back into a typed record.
// Numeric fields tolerate both native integers (in-process bus) and
// float64 (events round-tripped through JSON).
func OutcomeFromEvent(event ports.Event) (domain.Outcome, bool) {
	if event.Type != ports.EventTypeJobOutcome {
		return domain.Outcome{}, false
	}
	outcome := domain.Outcome{
		AccountID:  event.AccountID,
		OccurredAt: event.Timestamp,
	}
	if v, ok := event.Data["job_id"].(string); ok {
		outcome.JobID = v
	}
	if v, ok := event.Data["status"].(string); ok {
		outcome.Status = domain.JobStatus(v)
	}
	if v, ok := event.Data["reason"].(string); ok {
		outcome.Reason = v
	}
	outcome.Epoch = asUint64(event.Data["epoch"])
	outcome.ActionIndex = int(asUint64(event.Data["action_index"]))
	outcome.Version = asUint64(event.Data["version"])
	return outcome, outcome.JobID != ""
}

func asUint64(v interface{}) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case int:
		return uint64(n)
	case int64:
		return uint64(n)
	case float64:
		return uint64(n)
	}
	return 0
}

// SubscribeOutcomes registers a handler for terminal job outcomes on
// the bus, decoding each event before delivery.
func SubscribeOutcomes(ctx context.Context, bus ports.EventBus, fn func(domain.Outcome)) error {
	return bus.Subscribe(ctx, ports.TopicOutcomes, func(ctx context.Context, event ports.Event) error {
		if outcome, ok := OutcomeFromEvent(event); ok {
			fn(outcome)
		}
		return nil
	})
}
