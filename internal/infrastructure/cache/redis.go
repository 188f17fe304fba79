// Package cache provides Redis-backed infrastructure: an availability cache
// for hot stock reads and the pub/sub channel outbox events are relayed to.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"pharmapos/internal/core/id"
)

// Client wraps a redis connection shared by the cache and the event channel.
type Client struct {
	rdb *redis.Client
}

// NewClient connects to redis.
func NewClient(addr, password string, db int) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Client{rdb: rdb}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// AvailabilityCache caches total sellable quantity per product and branch.
// Entries are short-lived; writers invalidate on every stock change event,
// the TTL only bounds staleness when an invalidation is lost.
type AvailabilityCache struct {
	client *Client
	ttl    time.Duration
}

// NewAvailabilityCache creates an availability cache with the given TTL.
func NewAvailabilityCache(client *Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl}
}

func availabilityKey(productID, branchID id.ID) string {
	return fmt.Sprintf("availability:%s:%s", branchID, productID)
}

func (c *AvailabilityCache) Get(ctx context.Context, productID, branchID id.ID) (int64, bool, error) {
	val, err := c.client.rdb.Get(ctx, availabilityKey(productID, branchID)).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return val, true, nil
}

func (c *AvailabilityCache) Set(ctx context.Context, productID, branchID id.ID, quantity int64) error {
	return c.client.rdb.Set(ctx, availabilityKey(productID, branchID), quantity, c.ttl).Err()
}

func (c *AvailabilityCache) Invalidate(ctx context.Context, productID, branchID id.ID) error {
	return c.client.rdb.Del(ctx, availabilityKey(productID, branchID)).Err()
}

// EventChannel publishes relayed domain events to a redis pub/sub channel
// where presentation layers subscribe.
type EventChannel struct {
	client  *Client
	channel string
}

// NewEventChannel creates an event channel publisher.
func NewEventChannel(client *Client, channel string) *EventChannel {
	return &EventChannel{client: client, channel: channel}
}

// ChannelEvent is the wire shape published to subscribers.
type ChannelEvent struct {
	ID            id.ID           `json:"id"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   id.ID           `json:"aggregateId"`
	EventType     string          `json:"eventType"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"publishedAt"`
}

func (e *EventChannel) Publish(ctx context.Context, event ChannelEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal channel event: %w", err)
	}
	if err := e.client.rdb.Publish(ctx, e.channel, body).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", e.channel, err)
	}
	return nil
}

// Subscribe returns a receive channel of events. Used by tooling and tests;
// production subscribers are external services.
func (e *EventChannel) Subscribe(ctx context.Context) (<-chan ChannelEvent, func() error, error) {
	sub := e.client.rdb.Subscribe(ctx, e.channel)
	if _, err := sub.Receive(ctx); err != nil {
		return nil, nil, fmt.Errorf("subscribe to %s: %w", e.channel, err)
	}

	out := make(chan ChannelEvent)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var event ChannelEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, sub.Close, nil
}
