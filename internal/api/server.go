// Package api exposes the mediation HTTP surface: ad serving, bid auctions,
// impression and click tracking, event ingestion, stats and health.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/adverge/adverge/internal/auction"
	"github.com/adverge/adverge/internal/config"
	"github.com/adverge/adverge/internal/events"
	"github.com/adverge/adverge/internal/geoip"
	"github.com/adverge/adverge/internal/middleware"
	"github.com/adverge/adverge/internal/observability"
	"github.com/adverge/adverge/internal/stats"
	"github.com/adverge/adverge/internal/store"
)

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger   *zap.Logger
	Auction  *auction.Service
	Units    *store.AdUnitStore
	Redis    *redis.Client
	GeoIP    *geoip.GeoIP
	Events   events.Sink
	Stats    stats.Sink
	Metrics  observability.MetricsRegistry
	Config   config.Config
	reloadMu sync.Mutex
}

// NewServer constructs a Server.
func NewServer(logger *zap.Logger, svc *auction.Service, units *store.AdUnitStore, rdb *redis.Client, geo *geoip.GeoIP, ev events.Sink, st stats.Sink, metrics observability.MetricsRegistry, cfg config.Config) *Server {
	if ev == nil {
		ev = events.Nop{}
	}
	if st == nil {
		st = stats.Nop{}
	}
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &Server{
		Logger:  logger,
		Auction: svc,
		Units:   units,
		Redis:   rdb,
		GeoIP:   geo,
		Events:  ev,
		Stats:   st,
		Metrics: metrics,
		Config:  cfg,
	}
}

// Routes builds the HTTP router.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.WithTraceLogger(s.Logger))
	r.Use(middleware.WithRequestMetrics(s.Metrics))

	r.HandleFunc("/ad/{adUnitId}", s.GetAdHandler).Methods("GET")
	r.HandleFunc("/bid/{adUnitId}", s.BidHandler).Methods("POST")
	r.HandleFunc("/track/impression", s.ImpressionHandler).Methods("POST")
	r.HandleFunc("/track/click", s.ClickHandler).Methods("POST")
	r.HandleFunc("/events", s.EventHandler).Methods("POST")
	r.HandleFunc("/stats/{platform}", s.StatsHandler).Methods("GET")
	r.HandleFunc("/health", s.HealthHandler).Methods("GET")
	r.HandleFunc("/reload", s.ReloadHandler).Methods("POST")
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Reload refreshes apps and ad units from Postgres.
func (s *Server) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	if s.Units == nil {
		return fmt.Errorf("ad unit store unavailable")
	}
	if err := s.Units.ReloadAll(ctx); err != nil {
		return fmt.Errorf("reload ad units: %w", err)
	}
	return nil
}

// ReloadHandler triggers an on-demand configuration reload.
func (s *Server) ReloadHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.Reload(r.Context()); err != nil {
		s.Logger.Error("reload failed", zap.Error(err))
		http.Error(w, "reload failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

// HealthHandler reports service liveness plus the Redis connection state.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	out := map[string]string{"status": "ok"}
	code := http.StatusOK
	if s.Redis != nil {
		if err := s.Redis.Ping(r.Context()).Err(); err != nil {
			out["status"] = "degraded"
			out["redis"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			out["redis"] = "ok"
		}
	}
	writeJSON(w, code, out)
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response", zap.Error(err))
	}
}
