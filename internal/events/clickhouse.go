package events

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	_ "github.com/ClickHouse/clickhouse-go/v2"
)

// ErrUnavailable is returned when the analytics store is not configured.
var ErrUnavailable = fmt.Errorf("analytics unavailable")

// ClickHouse persists events into an ad_events table for ad-hoc reporting
// queries (fill rate, per-platform win rate, average bid price).
type ClickHouse struct {
	DB *sql.DB
}

// InitClickHouse connects to ClickHouse and ensures the ad_events table exists.
func InitClickHouse(dsn string) (*ClickHouse, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(25)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	create := `CREATE TABLE IF NOT EXISTS ad_events (
       timestamp   DateTime,
       event_type  String,
       app_id      String,
       ad_unit_id  String,
       platform    Nullable(String),
       ad_id       Nullable(String),
       price       Nullable(Float64),
       message     Nullable(String)
   ) ENGINE=MergeTree() ORDER BY (event_type, timestamp)`
	if _, err := db.ExecContext(context.Background(), create); err != nil {
		return nil, fmt.Errorf("clickhouse create table: %w", err)
	}

	zap.L().Info("Connected to ClickHouse")
	return &ClickHouse{DB: db}, nil
}

// Emit inserts a single event row.
func (c *ClickHouse) Emit(ctx context.Context, ev Event) error {
	if c == nil || c.DB == nil {
		return ErrUnavailable
	}

	var platform, adID, message sql.NullString
	if ev.Platform != "" {
		platform = sql.NullString{String: ev.Platform, Valid: true}
	}
	if ev.AdID != "" {
		adID = sql.NullString{String: ev.AdID, Valid: true}
	}
	if ev.Message != "" {
		message = sql.NullString{String: ev.Message, Valid: true}
	}
	var price sql.NullFloat64
	if ev.Price != nil {
		price = sql.NullFloat64{Float64: *ev.Price, Valid: true}
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	stmt := `INSERT INTO ad_events (timestamp, event_type, app_id, ad_unit_id, platform, ad_id, price, message) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := c.DB.ExecContext(ctx, stmt, ts, string(ev.Type), ev.AppID, ev.AdUnitID, platform, adID, price, message); err != nil {
		return fmt.Errorf("insert %s event: %w", ev.Type, err)
	}
	return nil
}

// Close terminates the ClickHouse connection.
func (c *ClickHouse) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
