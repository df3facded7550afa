package websocket

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nexuswealth/mcu/pkg/ports"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboard runs on another origin
	},
}

// Handler streams job outcomes and decision announcements to
// connected dashboard clients.
type Handler struct {
	eventBus ports.EventBus
	logger   *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(eventBus ports.EventBus, logger *zap.Logger) *Handler {
	return &Handler{
		eventBus: eventBus,
		logger:   logger,
	}
}

// HandleOutcomeStream upgrades the connection and forwards events for
// the requested account. An empty account_id streams every account.
func (h *Handler) HandleOutcomeStream(c *gin.Context) {
	accountID := c.Query("account_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Info("WebSocket connection established",
		zap.String("account_id", accountID),
		zap.String("client", c.ClientIP()))

	eventChan := make(chan ports.Event, 16)
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	h.subscribe(ctx, eventChan)

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-eventChan:
			if accountID != "" && event.AccountID != accountID {
				continue
			}

			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to marshal event", zap.Error(err))
				continue
			}

			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("client disconnected", zap.Error(err))
				return
			}
		}
	}
}

// subscribe registers the connection's handler on both core topics.
func (h *Handler) subscribe(ctx context.Context, ch chan<- ports.Event) {
	handler := func(ctx context.Context, event ports.Event) error {
		select {
		case ch <- event:
		case <-ctx.Done():
			return ctx.Err()
		default:
			// Slow client; dropping beats blocking the bus.
			h.logger.Warn("event channel full, dropping event",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)))
		}
		return nil
	}

	topics := []string{ports.TopicOutcomes, ports.TopicDecisions}
	for _, topic := range topics {
		if err := h.eventBus.Subscribe(ctx, topic, handler); err != nil {
			h.logger.Error("failed to subscribe to events",
				zap.String("topic", topic),
				zap.Error(err))
		}
	}
}
