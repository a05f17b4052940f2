package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// Broadcast channels consumed by the SPA dashboards.
const (
	ChannelReception  = "reception-notifications"
	ChannelRestaurant = "restaurant-updates"
)

// Event names.
const (
	EventTableAssigned      = "TableAssigned"
	EventTableStatusChanged = "TableStatusChanged"
	EventOrderCreated       = "OrderCreated"
	EventOrderUpdated       = "OrderUpdated"
	EventOrderCancelled     = "OrderCancelled"
	EventInventoryUpdated   = "InventoryUpdated"
)

// Event is one pending broadcast. Channel routing is carried out-of-band;
// the wire payload is {"event": ..., "data": ...}.
type Event struct {
	Channel string      `json:"-"`
	Event   string      `json:"event"`
	Data    interface{} `json:"data"`
}

type Broadcaster interface {
	Publish(ctx context.Context, channel string, payload interface{}) error
}

type RedisBroadcaster struct {
	rdb *redis.Client
}

func NewRedisBroadcaster(rdb *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{rdb: rdb}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, channel string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.rdb.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
