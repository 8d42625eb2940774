// Package stats maintains the per-(platform, ad unit) metrics records used
// for reporting: bid/win/impression/click counters, cumulative revenue and
// last-activity timestamps. Two auctions for the same ad unit may run
// concurrently, so all mutations use atomic increment semantics.
package stats

import (
	"context"
	"time"
)

// Record is the metrics snapshot for one (platform, adUnitId) pair.
type Record struct {
	Platform       string    `json:"platform"`
	AdUnitID       string    `json:"adUnitId"`
	Bids           int64     `json:"bids"`
	Wins           int64     `json:"wins"`
	Impressions    int64     `json:"impressions"`
	Clicks         int64     `json:"clicks"`
	Revenue        float64   `json:"revenue"`
	LastBidTime    time.Time `json:"lastBidTime,omitempty"`
	LastWinTime    time.Time `json:"lastWinTime,omitempty"`
	LastImpression time.Time `json:"lastImpressionTime,omitempty"`
	LastClickTime  time.Time `json:"lastClickTime,omitempty"`
}

// Sink records auction and engagement counters. Implementations must be
// safe for concurrent increments on the same key.
type Sink interface {
	RecordBid(ctx context.Context, platform, adUnitID string, price float64) error
	RecordWin(ctx context.Context, platform, adUnitID string, price float64) error
	RecordImpression(ctx context.Context, platform, adUnitID string) error
	RecordClick(ctx context.Context, platform, adUnitID string, revenue float64) error

	// Snapshot reads the current record for one (platform, adUnitId) pair.
	Snapshot(ctx context.Context, platform, adUnitID string) (*Record, error)
}

// Nop discards all counter updates. Every snapshot is empty.
type Nop struct{}

func (Nop) RecordBid(ctx context.Context, platform, adUnitID string, price float64) error { return nil }
func (Nop) RecordWin(ctx context.Context, platform, adUnitID string, price float64) error { return nil }
func (Nop) RecordImpression(ctx context.Context, platform, adUnitID string) error         { return nil }
func (Nop) RecordClick(ctx context.Context, platform, adUnitID string, revenue float64) error {
	return nil
}
func (Nop) Snapshot(ctx context.Context, platform, adUnitID string) (*Record, error) {
	return &Record{Platform: platform, AdUnitID: adUnitID}, nil
}
