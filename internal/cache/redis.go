package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adverge/adverge/internal/models"
)

// Redis implements AuctionCache on a Redis client. Winners are stored as
// JSON under "bid:<adUnitId>" with the TTL applied at write time.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing Redis client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func bidKey(adUnitID string) string {
	return "bid:" + adUnitID
}

// Get returns the cached winner for adUnitID, or ErrCacheMiss.
func (r *Redis) Get(ctx context.Context, adUnitID string) (*models.BidResponse, error) {
	data, err := r.client.Get(ctx, bidKey(adUnitID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("cache get %s: %w", adUnitID, err)
	}

	var bid models.BidResponse
	if err := json.Unmarshal(data, &bid); err != nil {
		// A corrupt entry is treated as a miss so the auction can
		// overwrite it with a fresh winner.
		return nil, ErrCacheMiss
	}
	return &bid, nil
}

// Set caches the winning bid under adUnitID for ttl.
func (r *Redis) Set(ctx context.Context, adUnitID string, bid *models.BidResponse, ttl time.Duration) error {
	data, err := json.Marshal(bid)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", adUnitID, err)
	}
	if err := r.client.Set(ctx, bidKey(adUnitID), data, ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", adUnitID, err)
	}
	return nil
}
