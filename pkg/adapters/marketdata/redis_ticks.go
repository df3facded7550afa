package marketdata

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nexuswealth/mcu/pkg/ports"
)

// tickStreamMaxLen caps per-symbol tick retention.
const tickStreamMaxLen = 10000

// RedisTickWriter appends ticks to per-symbol Redis streams so price
// history survives restarts and can feed charting.
type RedisTickWriter struct {
	client *redis.Client
}

// NewRedisTickWriter creates a tick writer over the given client.
func NewRedisTickWriter(client *redis.Client) *RedisTickWriter {
	return &RedisTickWriter{client: client}
}

// WriteTick appends one tick, trimming the stream to its cap.
func (w *RedisTickWriter) WriteTick(ctx context.Context, tick ports.Tick) error {
	args := &redis.XAddArgs{
		Stream: fmt.Sprintf("mcu:ticks:%s", tick.Symbol),
		MaxLen: tickStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"price": tick.Price.String(),
			"ts":    tick.Timestamp.UnixMilli(),
		},
	}
	if err := w.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to append tick: %w", err)
	}
	return nil
}

var _ ports.TickWriter = (*RedisTickWriter)(nil)
