package stats

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldBids        = "bids"
	fieldWins        = "wins"
	fieldImpressions = "impressions"
	fieldClicks      = "clicks"
	fieldRevenue     = "revenue"
	fieldLastBid     = "last_bid_ts"
	fieldLastWin     = "last_win_ts"
	fieldLastImp     = "last_impression_ts"
	fieldLastClick   = "last_click_ts"
)

// dailyStatsTTL keeps per-day platform counters around long enough for
// reporting jobs to collect them.
const dailyStatsTTL = 14 * 24 * time.Hour

// Redis implements Sink on Redis hashes. One hash per (platform, adUnitId)
// pair holds the record fields; HINCRBY/HINCRBYFLOAT give the atomic
// increment semantics concurrent auctions need. Alongside the records it
// maintains the daily per-platform counters
// (stats:<date>:<type>:<platform>) the reporting endpoints read.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing Redis client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func recordKey(platform, adUnitID string) string {
	return fmt.Sprintf("metrics:%s:%s", strings.ToLower(platform), adUnitID)
}

func dailyKey(event, platform string) string {
	return fmt.Sprintf("stats:%s:%s:%s", time.Now().Format("2006-01-02"), event, strings.ToLower(platform))
}

func (r *Redis) RecordBid(ctx context.Context, platform, adUnitID string, price float64) error {
	key := recordKey(platform, adUnitID)
	pipe := r.client.TxPipeline()
	pipe.HIncrBy(ctx, key, fieldBids, 1)
	pipe.HSet(ctx, key, fieldLastBid, time.Now().UnixMilli())
	pipe.Incr(ctx, dailyKey("bid", platform))
	// Bid prices are accumulated in thousandths so the daily counters
	// stay integral under concurrent increments.
	pipe.IncrBy(ctx, dailyKey("bid_price", platform), int64(price*1000))
	pipe.Incr(ctx, dailyKey("bid_count", platform))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record bid %s/%s: %w", platform, adUnitID, err)
	}
	r.expireDaily(ctx, "bid", "bid_price", "bid_count", platform)
	return nil
}

func (r *Redis) RecordWin(ctx context.Context, platform, adUnitID string, price float64) error {
	key := recordKey(platform, adUnitID)
	pipe := r.client.TxPipeline()
	pipe.HIncrBy(ctx, key, fieldWins, 1)
	pipe.HIncrByFloat(ctx, key, fieldRevenue, price)
	pipe.HSet(ctx, key, fieldLastWin, time.Now().UnixMilli())
	pipe.Incr(ctx, dailyKey("win", platform))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record win %s/%s: %w", platform, adUnitID, err)
	}
	r.expireDaily(ctx, "win", "", "", platform)
	return nil
}

func (r *Redis) RecordImpression(ctx context.Context, platform, adUnitID string) error {
	key := recordKey(platform, adUnitID)
	pipe := r.client.TxPipeline()
	pipe.HIncrBy(ctx, key, fieldImpressions, 1)
	pipe.HSet(ctx, key, fieldLastImp, time.Now().UnixMilli())
	pipe.Incr(ctx, dailyKey("impression", platform))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record impression %s/%s: %w", platform, adUnitID, err)
	}
	r.expireDaily(ctx, "impression", "", "", platform)
	return nil
}

func (r *Redis) RecordClick(ctx context.Context, platform, adUnitID string, revenue float64) error {
	key := recordKey(platform, adUnitID)
	pipe := r.client.TxPipeline()
	pipe.HIncrBy(ctx, key, fieldClicks, 1)
	if revenue > 0 {
		pipe.HIncrByFloat(ctx, key, fieldRevenue, revenue)
	}
	pipe.HSet(ctx, key, fieldLastClick, time.Now().UnixMilli())
	pipe.Incr(ctx, dailyKey("click", platform))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record click %s/%s: %w", platform, adUnitID, err)
	}
	r.expireDaily(ctx, "click", "", "", platform)
	return nil
}

// Snapshot reads the record for one (platform, adUnitId) pair. A pair that
// was never written returns a zero record.
func (r *Redis) Snapshot(ctx context.Context, platform, adUnitID string) (*Record, error) {
	fields, err := r.client.HGetAll(ctx, recordKey(platform, adUnitID)).Result()
	if err != nil {
		return nil, fmt.Errorf("snapshot %s/%s: %w", platform, adUnitID, err)
	}

	rec := &Record{Platform: strings.ToLower(platform), AdUnitID: adUnitID}
	rec.Bids = parseInt(fields[fieldBids])
	rec.Wins = parseInt(fields[fieldWins])
	rec.Impressions = parseInt(fields[fieldImpressions])
	rec.Clicks = parseInt(fields[fieldClicks])
	rec.Revenue = parseFloat(fields[fieldRevenue])
	rec.LastBidTime = parseTime(fields[fieldLastBid])
	rec.LastWinTime = parseTime(fields[fieldLastWin])
	rec.LastImpression = parseTime(fields[fieldLastImp])
	rec.LastClickTime = parseTime(fields[fieldLastClick])
	return rec, nil
}

// DailyCounts returns today's per-event counters for a platform.
func (r *Redis) DailyCounts(ctx context.Context, platform string) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, event := range []string{"request", "bid", "bid_price", "bid_count", "win", "impression", "click", "error"} {
		v, err := r.client.Get(ctx, dailyKey(event, platform)).Int64()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("daily counts %s/%s: %w", platform, event, err)
		}
		out[event] = v
	}
	return out, nil
}

// expireDaily applies the retention TTL to freshly touched daily keys.
// Best-effort: a missed expiry is corrected on the next touch.
func (r *Redis) expireDaily(ctx context.Context, e1, e2, e3, platform string) {
	for _, e := range []string{e1, e2, e3} {
		if e == "" {
			continue
		}
		r.client.ExpireNX(ctx, dailyKey(e, platform), dailyStatsTTL)
	}
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseTime(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
