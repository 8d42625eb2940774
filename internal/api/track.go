package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/adverge/adverge/internal/events"
	"github.com/adverge/adverge/internal/middleware"
	"github.com/adverge/adverge/internal/stats"
)

// trackRequest is the JSON body for impression and click tracking.
type trackRequest struct {
	Platform string   `json:"platform"`
	AdUnitID string   `json:"adUnitId"`
	AppID    string   `json:"appId,omitempty"`
	AdID     string   `json:"adId,omitempty"`
	Revenue  *float64 `json:"revenue,omitempty"`
}

func (t *trackRequest) valid() bool {
	return t.Platform != "" && t.AdUnitID != ""
}

// ImpressionHandler handles POST /track/impression.
func (s *Server) ImpressionHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.valid() {
		http.Error(w, "platform and adUnitId required", http.StatusBadRequest)
		return
	}

	if err := s.Stats.RecordImpression(r.Context(), req.Platform, req.AdUnitID); err != nil {
		logger.Error("record impression failed",
			zap.String("platform", req.Platform),
			zap.String("ad_unit_id", req.AdUnitID),
			zap.Error(err))
	}
	s.emit(r, events.Event{
		Type:     events.TypeImpression,
		AppID:    req.AppID,
		AdUnitID: req.AdUnitID,
		Platform: req.Platform,
		AdID:     req.AdID,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// ClickHandler handles POST /track/click. Revenue, when supplied, is
// attributed to the clicked platform.
func (s *Server) ClickHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)

	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.valid() {
		http.Error(w, "platform and adUnitId required", http.StatusBadRequest)
		return
	}

	var revenue float64
	if req.Revenue != nil {
		revenue = *req.Revenue
	}
	if err := s.Stats.RecordClick(r.Context(), req.Platform, req.AdUnitID, revenue); err != nil {
		logger.Error("record click failed",
			zap.String("platform", req.Platform),
			zap.String("ad_unit_id", req.AdUnitID),
			zap.Error(err))
	}
	s.emit(r, events.Event{
		Type:     events.TypeClick,
		AppID:    req.AppID,
		AdUnitID: req.AdUnitID,
		Platform: req.Platform,
		AdID:     req.AdID,
		Price:    req.Revenue,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// EventHandler handles POST /events: direct event ingestion from SDK
// clients. The event type must be one of the known set.
func (s *Server) EventHandler(w http.ResponseWriter, r *http.Request) {
	var ev events.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "invalid event", http.StatusBadRequest)
		return
	}
	if !events.ValidType(ev.Type) || ev.AdUnitID == "" {
		http.Error(w, "event type and adUnitId required", http.StatusBadRequest)
		return
	}
	s.emit(r, ev)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// StatsHandler handles GET /stats/{platform}?adUnitId=...: the metrics
// record for one (platform, ad unit) pair, plus today's daily counters when
// the stats sink keeps them.
func (s *Server) StatsHandler(w http.ResponseWriter, r *http.Request) {
	logger := middleware.LoggerFromRequest(r, s.Logger)
	platform := mux.Vars(r)["platform"]
	adUnitID := r.URL.Query().Get("adUnitId")
	if adUnitID == "" {
		http.Error(w, "adUnitId required", http.StatusBadRequest)
		return
	}

	rec, err := s.Stats.Snapshot(r.Context(), platform, adUnitID)
	if err != nil {
		logger.Error("stats snapshot failed", zap.String("platform", platform), zap.Error(err))
		http.Error(w, "stats unavailable", http.StatusInternalServerError)
		return
	}

	out := struct {
		*stats.Record
		Daily map[string]int64 `json:"daily,omitempty"`
	}{Record: rec}
	if rs, ok := s.Stats.(*stats.Redis); ok {
		if daily, err := rs.DailyCounts(r.Context(), platform); err == nil {
			out.Daily = daily
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// emit forwards an event to the sink, logging failures.
func (s *Server) emit(r *http.Request, ev events.Event) {
	if err := s.Events.Emit(r.Context(), ev); err != nil {
		s.Logger.Error("emit event failed",
			zap.String("event_type", string(ev.Type)),
			zap.String("ad_unit_id", ev.AdUnitID),
			zap.Error(err))
	}
}
