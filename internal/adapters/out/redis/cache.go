// Package redis keeps recently processed inbound event ids in Redis so
// redeliveries are dropped before touching the database.
package redis

import (
	"context"
	"time"

	"ordering/internal/core/domain/model/kernel"
	"ordering/internal/pkg/errs"

	pkgerrors "github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ordering:processed:"

// ProcessedEventCache implements ports.ProcessedEventCache. It is only a
// shortcut; the processed_events table stays authoritative.
type ProcessedEventCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewProcessedEventCache(rdb redis.UniversalClient, ttl time.Duration) (*ProcessedEventCache, error) {
	if rdb == nil {
		return nil, errs.NewValueIsRequiredError("redis client")
	}
	if ttl <= 0 {
		return nil, errs.NewValueIsOutOfRangeError("ttl", ttl, time.Second, "unbounded")
	}
	return &ProcessedEventCache{rdb: rdb, ttl: ttl}, nil
}

func (c *ProcessedEventCache) Seen(ctx context.Context, eventID kernel.UUID) (bool, error) {
	n, err := c.rdb.Exists(ctx, key(eventID)).Result()
	if err != nil {
		return false, pkgerrors.Wrap(err, "redis exists")
	}
	return n > 0, nil
}

func (c *ProcessedEventCache) Remember(ctx context.Context, eventID kernel.UUID) error {
	err := c.rdb.Set(ctx, key(eventID), "1", c.ttl).Err()
	return pkgerrors.Wrap(err, "redis set")
}

func key(eventID kernel.UUID) string {
	return keyPrefix + eventID.String()
}
