package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/adverge/adverge/internal/adnet"
	"github.com/adverge/adverge/internal/api"
	"github.com/adverge/adverge/internal/auction"
	"github.com/adverge/adverge/internal/cache"
	"github.com/adverge/adverge/internal/config"
	"github.com/adverge/adverge/internal/events"
	"github.com/adverge/adverge/internal/geoip"
	"github.com/adverge/adverge/internal/observability"
	"github.com/adverge/adverge/internal/stats"
	"github.com/adverge/adverge/internal/store"
)

func main() {
	cfg := config.Load()

	logger, err := observability.InitLogger(cfg.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
		}
	}()

	if err := run(logger, cfg); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func run(logger *zap.Logger, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracing(ctx, logger, cfg.ServiceName, cfg.OTLPEndpoint, cfg.TracingSampleRate)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown()
	}

	pg, err := store.InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pg.Close()

	units := store.NewAdUnitStore(pg)
	if err := units.ReloadAll(ctx); err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	rdb, err := store.InitRedis(cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("failed to connect redis: %w", err)
	}
	defer func() { _ = rdb.Close() }()

	metricsRegistry := observability.NewPrometheusRegistry()

	eventSink := events.NewMulti(logger, metricsRegistry)
	defer func() { _ = eventSink.Close() }()

	ch, err := events.InitClickHouse(cfg.ClickHouseDSN)
	if err != nil {
		logger.Warn("clickhouse unavailable, events not persisted there", zap.Error(err))
	} else {
		eventSink.Add("clickhouse", ch)
	}

	kafka, err := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		logger.Warn("kafka unavailable, events not streamed", zap.Error(err))
	} else {
		eventSink.Add("kafka", kafka)
	}

	geoSvc, err := geoip.Init(cfg.GeoIPDB)
	if err != nil {
		logger.Warn("geoip db unavailable, geo targeting disabled", zap.Error(err))
		geoSvc = nil
	}
	defer func() { _ = geoSvc.Close() }()

	registry, err := buildAdapters(ctx, pg, logger)
	if err != nil {
		return fmt.Errorf("build adapters: %w", err)
	}
	logger.Info("ad network adapters registered", zap.Int("count", registry.Len()))

	statsSink := stats.NewRedis(rdb)
	bidCache := cache.NewRedis(rdb)

	svc := auction.NewService(registry, units, bidCache, eventSink, statsSink, metricsRegistry, logger, auction.Config{
		BidTimeout:       cfg.BidTimeout,
		CacheTTL:         cfg.BidCacheTTL,
		WinNotifyTimeout: cfg.WinNotifyTTL,
	})

	srvDeps := api.NewServer(logger, svc, units, rdb, geoSvc, eventSink, statsSink, metricsRegistry, cfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srvDeps.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("Mediation server running", zap.String("addr", srv.Addr))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listen: %w", err)
		}
	}()

	if cfg.ReloadInterval > 0 {
		ticker := time.NewTicker(cfg.ReloadInterval)
		go func() {
			for {
				select {
				case <-ticker.C:
					if err := srvDeps.Reload(ctx); err != nil {
						logger.Error("auto reload", zap.Error(err))
					}
				case <-ctx.Done():
					ticker.Stop()
					return
				}
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}

// buildAdapters loads network endpoint configs from Postgres and registers
// an HTTP adapter for each, in priority order.
func buildAdapters(ctx context.Context, pg *store.Postgres, logger *zap.Logger) (*adnet.Registry, error) {
	nets, err := pg.LoadNetworks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load networks: %w", err)
	}

	registry, err := adnet.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, n := range nets {
		a, err := adnet.NewHTTPAdapter(adnet.HTTPAdapterConfig{
			Platform:   n.Platform,
			BidURL:     n.BidURL,
			WinURL:     n.WinURL,
			AppKey:     n.AppKey,
			FloorPrice: n.FloorPrice,
			SubTimeout: n.Timeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("adapter %s: %w", n.Platform, err)
		}
		if err := registry.Register(a); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
