package cache

import (
	"context"
	"time"

	"pharmapos/internal/infrastructure/storage/postgres"
)

// RelayHandler delivers outbox messages to the redis event channel.
// Wired into postgres.OutboxRelay by the worker binary.
type RelayHandler struct {
	channel *EventChannel
}

// NewRelayHandler creates a relay handler.
func NewRelayHandler(channel *EventChannel) *RelayHandler {
	return &RelayHandler{channel: channel}
}

var _ postgres.OutboxHandler = (*RelayHandler)(nil)

func (h *RelayHandler) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	return h.channel.Publish(ctx, ChannelEvent{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       msg.Payload,
		PublishedAt:   time.Now().UTC(),
	})
}
