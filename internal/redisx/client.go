package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kitchenconnect/kitchen-service/internal/lifecycle"
	"github.com/kitchenconnect/kitchen-service/internal/models"
	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// StageEntry is the cached view of an order's stage. It carries the order's
// parties so readers can check visibility without the database.
type StageEntry struct {
	Stage      models.OrderStage `json:"stage"`
	Label      string            `json:"label"`
	UpdatedAt  time.Time         `json:"updated_at"`
	CustomerID uuid.UUID         `json:"customer_id"`
	ChefID     uuid.UUID         `json:"chef_id"`
	DriverID   *uuid.UUID        `json:"driver_id,omitempty"`
}

// StageCache keeps the latest committed stage per order. It is refreshed by
// the lifecycle dispatcher and is only ever a read-through hint; the
// database stays authoritative.
type StageCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStageCache(rdb *redis.Client, ttl time.Duration) *StageCache {
	if ttl <= 0 {
		ttl = TTLStageCache
	}
	return &StageCache{rdb: rdb, ttl: ttl}
}

// Notify implements lifecycle.Notifier
func (c *StageCache) Notify(ctx context.Context, evt lifecycle.Event) error {
	return c.Set(ctx, evt.OrderID, StageEntry{
		Stage:      evt.To,
		Label:      evt.Label,
		UpdatedAt:  evt.OccurredAt,
		CustomerID: evt.CustomerID,
		ChefID:     evt.ChefID,
		DriverID:   evt.DriverID,
	})
}

func (c *StageCache) Set(ctx context.Context, orderID uuid.UUID, e StageEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode stage entry: %w", err)
	}
	return c.rdb.Set(ctx, fmt.Sprintf(KeyOrderStage, orderID), b, c.ttl).Err()
}

// Get returns the cached entry; false on a miss
func (c *StageCache) Get(ctx context.Context, orderID uuid.UUID) (StageEntry, bool, error) {
	var e StageEntry
	b, err := c.rdb.Get(ctx, fmt.Sprintf(KeyOrderStage, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return e, false, nil
	}
	if err != nil {
		return e, false, err
	}
	if err := json.Unmarshal(b, &e); err != nil {
		return e, false, fmt.Errorf("decode stage entry: %w", err)
	}
	return e, true, nil
}

// Deduper drops repeated deliveries of the same external id
type Deduper struct {
	rdb    *redis.Client
	source string
	ttl    time.Duration
}

func NewDeduper(rdb *redis.Client, source string, ttl time.Duration) *Deduper {
	if ttl <= 0 {
		ttl = TTLDedup
	}
	return &Deduper{rdb: rdb, source: source, ttl: ttl}
}

// FirstSeen records id and reports whether this is its first delivery
func (d *Deduper) FirstSeen(ctx context.Context, id string) (bool, error) {
	return d.rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, d.source, id), 1, d.ttl).Result()
}

// Forget removes id so a failed delivery can be retried
func (d *Deduper) Forget(ctx context.Context, id string) error {
	return d.rdb.Del(ctx, fmt.Sprintf(KeyDedup, d.source, id)).Err()
}
