// Package cache provides the auction winner cache: a previously decided
// winning bid is served again for the same ad unit within a short TTL
// instead of re-running the auction.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/adverge/adverge/internal/models"
)

// ErrCacheMiss is returned by Get when no winner is cached for the ad unit.
var ErrCacheMiss = errors.New("cache miss")

// AuctionCache stores winning bid responses keyed by ad unit. Entries are
// immutable once written and expire after their TTL.
type AuctionCache interface {
	// Get returns the cached winner for adUnitID, or ErrCacheMiss.
	Get(ctx context.Context, adUnitID string) (*models.BidResponse, error)
	// Set caches bid under adUnitID for ttl.
	Set(ctx context.Context, adUnitID string, bid *models.BidResponse, ttl time.Duration) error
}

// Nop is an AuctionCache that stores nothing. Every Get misses.
type Nop struct{}

func (Nop) Get(ctx context.Context, adUnitID string) (*models.BidResponse, error) {
	return nil, ErrCacheMiss
}

func (Nop) Set(ctx context.Context, adUnitID string, bid *models.BidResponse, ttl time.Duration) error {
	return nil
}
