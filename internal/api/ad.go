package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/adverge/adverge/internal/auction"
	"github.com/adverge/adverge/internal/middleware"
	"github.com/adverge/adverge/internal/models"
	"github.com/adverge/adverge/internal/targeting"
)

var tracer = otel.Tracer("adverge")

// GetAdHandler handles GET /ad/{adUnitId}: the cache-aside serving path.
// Device context comes from the User-Agent, geo from the client IP. A 204
// signals no fill.
func (s *Server) GetAdHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "GetAdHandler",
		trace.WithAttributes(
			attribute.String("http.method", "GET"),
			attribute.String("http.route", "/ad/{adUnitId}"),
		))
	defer span.End()

	logger := middleware.LoggerFromRequest(r, s.Logger)
	adUnitID := mux.Vars(r)["adUnitId"]
	span.SetAttributes(attribute.String("ad_unit_id", adUnitID))

	device, geo := targeting.Resolve(r, s.GeoIP, nil)
	opts := auction.Options{
		AppID:  r.URL.Query().Get("appId"),
		Device: device,
		Geo:    geo,
	}

	bid, err := s.Auction.GetAd(ctx, adUnitID, opts)
	switch {
	case errors.Is(err, auction.ErrUnknownAdUnit):
		http.Error(w, "unknown ad unit", http.StatusNotFound)
		return
	case err != nil:
		logger.Error("get ad failed", zap.String("ad_unit_id", adUnitID), zap.Error(err))
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	case bid == nil:
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, bid)
}

// BidHandler handles POST /bid/{adUnitId}: a direct auction round with the
// request context supplied by the caller. An empty body runs the auction
// with the ad unit's stored configuration.
func (s *Server) BidHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "BidHandler",
		trace.WithAttributes(
			attribute.String("http.method", "POST"),
			attribute.String("http.route", "/bid/{adUnitId}"),
		))
	defer span.End()

	logger := middleware.LoggerFromRequest(r, s.Logger)
	adUnitID := mux.Vars(r)["adUnitId"]
	span.SetAttributes(attribute.String("ad_unit_id", adUnitID))

	req, err := decodeBidRequest(r)
	if err != nil {
		logger.Error("decode bid request", zap.String("ad_unit_id", adUnitID), zap.Error(err))
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Device == nil {
		req.Device, req.Geo = targeting.Resolve(r, s.GeoIP, nil)
	} else if req.Geo == nil && s.GeoIP != nil {
		req.Geo = s.GeoIP.Lookup(targeting.ClientIP(r))
	}

	bid, err := s.Auction.Bid(ctx, adUnitID, req)
	switch {
	case errors.Is(err, auction.ErrUnknownAdUnit):
		http.Error(w, "unknown ad unit", http.StatusNotFound)
		return
	case err != nil:
		logger.Error("bid failed", zap.String("ad_unit_id", adUnitID), zap.Error(err))
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	case bid == nil:
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, bid)
}

// decodeBidRequest reads an optional JSON bid request body. An empty body
// yields a zero request; the service fills it from the ad unit config.
func decodeBidRequest(r *http.Request) (*models.BidRequest, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	defer func() {
		_ = r.Body.Close()
	}()

	req := &models.BidRequest{}
	if len(body) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(body, req); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return req, nil
}
