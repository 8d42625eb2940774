package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/adverge/adverge/internal/adnet"
	"github.com/adverge/adverge/internal/auction"
	"github.com/adverge/adverge/internal/config"
	"github.com/adverge/adverge/internal/events"
	"github.com/adverge/adverge/internal/models"
	"github.com/adverge/adverge/internal/store"
)

func floatPtr(f float64) *float64 { return &f }

func newTestServer(t *testing.T, adapters ...adnet.Adapter) (*Server, *events.Capture) {
	t.Helper()

	units := store.Static(
		[]models.App{{ID: "app-1", Name: "Test App", Platform: "android", Active: true}},
		[]models.AdUnit{
			{ID: "unit-1", AppID: "app-1", Type: models.AdTypeBanner, Active: true, FloorPrice: floatPtr(0.50)},
		},
	)

	reg, err := adnet.NewRegistry(adapters...)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	capture := events.NewCapture()
	logger := zap.NewNop()
	svc := auction.NewService(reg, units, nil, capture, nil, nil, logger, auction.Config{})

	return NewServer(logger, svc, units, nil, nil, capture, nil, nil, config.Config{}), capture
}

func doRequest(t *testing.T, s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	return rec
}

func TestGetAdHandler_ServesWinner(t *testing.T) {
	s, _ := newTestServer(t, adnet.NewMockAdapter("alpha", 1.20))

	rec := doRequest(t, s, "GET", "/ad/unit-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var bid models.BidResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &bid); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if bid.Source != "alpha" || bid.Price != 1.20 {
		t.Errorf("unexpected winner: %+v", bid)
	}
}

func TestGetAdHandler_UnknownUnitIs404(t *testing.T) {
	s, _ := newTestServer(t, adnet.NewMockAdapter("alpha", 1.20))

	rec := doRequest(t, s, "GET", "/ad/unit-404", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetAdHandler_NoFillIs204(t *testing.T) {
	declining := adnet.NewMockAdapter("shy", 2.00)
	declining.Decline = true
	s, capture := newTestServer(t, declining)

	rec := doRequest(t, s, "GET", "/ad/unit-1", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := capture.ByType(events.TypeNoFill); len(got) != 1 {
		t.Errorf("expected a no_fill event, got %d", len(got))
	}
}

func TestBidHandler_BodyOverridesFloor(t *testing.T) {
	s, _ := newTestServer(t, adnet.NewMockAdapter("alpha", 1.20))

	// Unit floor is 0.50; the request raises it past the only bid.
	body, _ := json.Marshal(models.BidRequest{FloorPrice: floatPtr(2.00)})
	rec := doRequest(t, s, "POST", "/bid/unit-1", body)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 when floor filters the bid, got %d", rec.Code)
	}
}

func TestBidHandler_EmptyBodyUsesUnitConfig(t *testing.T) {
	s, _ := newTestServer(t, adnet.NewMockAdapter("alpha", 1.20))

	rec := doRequest(t, s, "POST", "/bid/unit-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBidHandler_MalformedBodyIs400(t *testing.T) {
	s, _ := newTestServer(t, adnet.NewMockAdapter("alpha", 1.20))

	rec := doRequest(t, s, "POST", "/bid/unit-1", []byte("{not json"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestImpressionHandler(t *testing.T) {
	s, capture := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"platform": "alpha", "adUnitId": "unit-1", "adId": "ad-1"})
	rec := doRequest(t, s, "POST", "/track/impression", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	got := capture.ByType(events.TypeImpression)
	if len(got) != 1 || got[0].Platform != "alpha" || got[0].AdID != "ad-1" {
		t.Errorf("unexpected impression events: %+v", got)
	}
}

func TestImpressionHandler_MissingFieldsIs400(t *testing.T) {
	s, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"platform": "alpha"})
	rec := doRequest(t, s, "POST", "/track/impression", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestClickHandler_RecordsRevenue(t *testing.T) {
	s, capture := newTestServer(t)

	body, _ := json.Marshal(map[string]any{"platform": "alpha", "adUnitId": "unit-1", "revenue": 0.25})
	rec := doRequest(t, s, "POST", "/track/click", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	got := capture.ByType(events.TypeClick)
	if len(got) != 1 || got[0].Price == nil || *got[0].Price != 0.25 {
		t.Errorf("unexpected click events: %+v", got)
	}
}

func TestEventHandler(t *testing.T) {
	s, capture := newTestServer(t)

	body, _ := json.Marshal(events.Event{Type: events.TypeError, AdUnitID: "unit-1", Message: "sdk crash"})
	rec := doRequest(t, s, "POST", "/events", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if got := capture.ByType(events.TypeError); len(got) != 1 {
		t.Errorf("expected 1 error event, got %d", len(got))
	}

	body, _ = json.Marshal(map[string]string{"type": "install", "adUnitId": "unit-1"})
	if rec := doRequest(t, s, "POST", "/events", body); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown event type must be rejected, got %d", rec.Code)
	}
}

func TestStatsHandler(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, "GET", "/stats/alpha?adUnitId=unit-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if rec := doRequest(t, s, "GET", "/stats/alpha", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("missing adUnitId must be 400, got %d", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, "GET", "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if out["status"] != "ok" {
		t.Errorf("unexpected health payload: %v", out)
	}
}
