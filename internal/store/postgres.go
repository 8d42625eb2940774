// Package store holds the configuration backing the auction: apps and ad
// units loaded from Postgres into an in-memory snapshot, plus the shared
// Redis connection used by the cache and stats layers.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/adverge/adverge/internal/models"
)

// Postgres wraps a postgres DB connection.
type Postgres struct {
	DB *sql.DB
}

// schemaSQL sets up the necessary tables if they don't exist.
const schemaSQL = `CREATE TABLE IF NOT EXISTS apps (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    platform TEXT NOT NULL,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS ad_units (
    id TEXT PRIMARY KEY,
    app_id TEXT REFERENCES apps(id),
    name TEXT NOT NULL,
    ad_type TEXT NOT NULL,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    floor_price DOUBLE PRECISION,
    refresh_interval INT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS networks (
    platform TEXT PRIMARY KEY,
    bid_url TEXT NOT NULL,
    win_url TEXT,
    app_key TEXT,
    floor_price DOUBLE PRECISION NOT NULL DEFAULT 0,
    timeout_ms INT,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    priority INT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_ad_units_app_id ON ad_units (app_id);
CREATE INDEX IF NOT EXISTS idx_ad_units_active ON ad_units (active) WHERE active = true;
`

// NetworkConfig is one ad network's endpoint configuration as stored in
// Postgres. Priority orders adapter registration, lowest first; ties keep
// row order, so registration order is stable across reloads.
type NetworkConfig struct {
	Platform   string
	BidURL     string
	WinURL     string
	AppKey     string
	FloorPrice float64
	Timeout    time.Duration
	Active     bool
	Priority   int
}

// InitPostgres connects to Postgres with connection pooling configuration.
func InitPostgres(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (*Postgres, error) {
	// Register the otelsql wrapper for postgres
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.connection_string", dsn),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	p := &Postgres{DB: db}
	if err := p.ensureSchema(); err != nil {
		return nil, err
	}
	zap.L().Info("Connected to Postgres with connection pooling",
		zap.Int("max_open_conns", maxOpenConns),
		zap.Int("max_idle_conns", maxIdleConns),
		zap.Duration("conn_max_lifetime", connMaxLifetime))
	return p, nil
}

// Close terminates the Postgres connection.
func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		if err := p.DB.Close(); err != nil {
			zap.L().Error("postgres close", zap.Error(err))
		}
	}
}

// ensureSchema creates the required tables if they do not exist.
func (p *Postgres) ensureSchema() error {
	ctx := context.Background()
	if _, err := p.DB.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// LoadApps retrieves registered apps from the database.
func (p *Postgres) LoadApps(ctx context.Context) ([]models.App, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT id, name, platform, active, created_at, updated_at FROM apps`)
	if err != nil {
		return nil, fmt.Errorf("query apps: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var apps []models.App
	for rows.Next() {
		var a models.App
		var created, updated sql.NullTime
		if err := rows.Scan(&a.ID, &a.Name, &a.Platform, &a.Active, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan app: %w", err)
		}
		if created.Valid {
			a.CreatedAt = created.Time
		}
		if updated.Valid {
			a.UpdatedAt = updated.Time
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return apps, nil
}

// LoadAdUnits retrieves active ad units from the database.
func (p *Postgres) LoadAdUnits(ctx context.Context) ([]models.AdUnit, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT id, app_id, name, ad_type, active, floor_price, refresh_interval, created_at, updated_at FROM ad_units WHERE active`)
	if err != nil {
		return nil, fmt.Errorf("query ad units: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var units []models.AdUnit
	for rows.Next() {
		var u models.AdUnit
		var adType string
		var floor sql.NullFloat64
		var refresh sql.NullInt64
		var created, updated sql.NullTime
		if err := rows.Scan(&u.ID, &u.AppID, &u.Name, &adType, &u.Active, &floor, &refresh, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan ad unit: %w", err)
		}
		t, err := models.ParseAdType(adType)
		if err != nil {
			return nil, fmt.Errorf("ad unit %s: %w", u.ID, err)
		}
		u.Type = t
		if floor.Valid {
			f := floor.Float64
			u.FloorPrice = &f
		}
		if refresh.Valid {
			u.RefreshInterval = int(refresh.Int64)
		}
		if created.Valid {
			u.CreatedAt = created.Time
		}
		if updated.Valid {
			u.UpdatedAt = updated.Time
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return units, nil
}

// LoadNetworks retrieves active ad network endpoint configs, in priority
// order.
func (p *Postgres) LoadNetworks(ctx context.Context) ([]NetworkConfig, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT platform, bid_url, win_url, app_key, floor_price, timeout_ms, active, priority FROM networks WHERE active ORDER BY priority, platform`)
	if err != nil {
		return nil, fmt.Errorf("query networks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var nets []NetworkConfig
	for rows.Next() {
		var n NetworkConfig
		var winURL, appKey sql.NullString
		var timeoutMS sql.NullInt64
		if err := rows.Scan(&n.Platform, &n.BidURL, &winURL, &appKey, &n.FloorPrice, &timeoutMS, &n.Active, &n.Priority); err != nil {
			return nil, fmt.Errorf("scan network: %w", err)
		}
		if winURL.Valid {
			n.WinURL = winURL.String
		}
		if appKey.Valid {
			n.AppKey = appKey.String
		}
		if timeoutMS.Valid {
			n.Timeout = time.Duration(timeoutMS.Int64) * time.Millisecond
		}
		nets = append(nets, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return nets, nil
}
