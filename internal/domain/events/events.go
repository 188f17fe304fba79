// Package events defines post-commit domain event publishing.
// Events are written to a transactional outbox inside the same database
// transaction as the state change; a relay publishes them after commit.
// Presentation layers subscribe instead of recomputing stock state.
package events

import (
	"context"

	"pharmapos/internal/core/id"
)

// Event types emitted by the inventory core.
const (
	TypeSaleCompleted = "SaleCompleted"
	TypeRefundCreated = "RefundCreated"
	TypeStockReceived = "StockReceived"
	TypeStockAdjusted = "StockAdjusted"
)

// Event is a domain event destined for subscribers.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	Type          string
	Payload       any
}

// Publisher stages events for post-commit delivery.
// MUST be called inside a transaction context so the event commits or rolls
// back together with the state change.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards events. Used in tests and tooling.
type NopPublisher struct{}

func (NopPublisher) Publish(_ context.Context, _ Event) error { return nil }
