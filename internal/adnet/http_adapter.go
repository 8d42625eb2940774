package adnet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/adverge/adverge/internal/models"
)

const defaultSubTimeout = 800 * time.Millisecond

// HTTPAdapterConfig configures a generic JSON-over-HTTP network adapter.
type HTTPAdapterConfig struct {
	Platform   string
	BidURL     string
	WinURL     string
	AppKey     string
	FloorPrice float64
	// SubTimeout bounds a single bid call below the auction deadline.
	// Zero means the 800ms default.
	SubTimeout time.Duration
}

// HTTPAdapter speaks a generic JSON bid protocol to a network endpoint.
// Vendor-specific wire translation lives behind the vendor's own gateway;
// this adapter covers networks that accept the mediation request shape
// directly.
type HTTPAdapter struct {
	cfg    HTTPAdapterConfig
	client *http.Client
	logger *zap.Logger
}

// NewHTTPAdapter constructs an HTTPAdapter. The HTTP client is traced so
// outbound bid calls show up as spans under the auction round.
func NewHTTPAdapter(cfg HTTPAdapterConfig, logger *zap.Logger) (*HTTPAdapter, error) {
	if cfg.Platform == "" {
		return nil, fmt.Errorf("platform required")
	}
	if cfg.BidURL == "" {
		return nil, fmt.Errorf("bid url required for platform %s", cfg.Platform)
	}
	if cfg.SubTimeout <= 0 {
		cfg.SubTimeout = defaultSubTimeout
	}
	return &HTTPAdapter{
		cfg: cfg,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}, nil
}

// Platform returns the configured platform identifier.
func (a *HTTPAdapter) Platform() string { return a.cfg.Platform }

// FloorPrice returns the configured network-level floor.
func (a *HTTPAdapter) FloorPrice() float64 { return a.cfg.FloorPrice }

// wireBidRequest is the request body sent to the network.
type wireBidRequest struct {
	BidID      string             `json:"bidId"`
	AdUnitID   string             `json:"adUnitId"`
	AdType     models.AdType      `json:"adType,omitempty"`
	AppID      string             `json:"appId,omitempty"`
	FloorPrice *float64           `json:"floorPrice,omitempty"`
	Device     *models.DeviceInfo `json:"device,omitempty"`
	Geo        *models.GeoData    `json:"geo,omitempty"`
}

// wireBidResponse is the response body expected from the network. A null
// price means the network declined.
type wireBidResponse struct {
	Price    *float64      `json:"price"`
	Currency string        `json:"currency"`
	BidToken string        `json:"bidToken"`
	Ad       models.AdData `json:"ad"`
}

// Bid posts the request to the network's bid endpoint. Declines (HTTP 204
// or a null price) return (nil, nil).
func (a *HTTPAdapter) Bid(ctx context.Context, req *models.BidRequest) (*models.BidResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.SubTimeout)
	defer cancel()

	body := wireBidRequest{
		BidID:      uuid.NewString(),
		AdUnitID:   req.AdUnitID,
		AdType:     req.AdType,
		AppID:      req.AppID,
		FloorPrice: req.FloorPrice,
		Device:     req.Device,
		Geo:        req.Geo,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal bid request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BidURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build bid request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.cfg.AppKey != "" {
		httpReq.Header.Set("X-App-Key", a.cfg.AppKey)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s bid call: %w", a.cfg.Platform, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s bid call: status %d", a.cfg.Platform, resp.StatusCode)
	}

	var out wireBidResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%s bid response: %w", a.cfg.Platform, err)
	}
	if out.Price == nil {
		return nil, nil
	}

	bid := &models.BidResponse{
		Source:   a.cfg.Platform,
		Price:    *out.Price,
		Currency: out.Currency,
		BidToken: out.BidToken,
		Ad:       out.Ad,
	}
	if bid.Currency == "" {
		bid.Currency = "USD"
	}
	if err := bid.Validate(); err != nil {
		return nil, fmt.Errorf("%s bid response: %w", a.cfg.Platform, err)
	}
	return bid, nil
}

// NotifyWin posts the winning bid token back to the network. Networks
// without a win endpoint treat delivery of the ad as the win signal.
func (a *HTTPAdapter) NotifyWin(ctx context.Context, bidToken string) (bool, error) {
	if a.cfg.WinURL == "" {
		return true, nil
	}

	data, err := json.Marshal(map[string]string{"bidToken": bidToken})
	if err != nil {
		return false, fmt.Errorf("marshal win notification: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WinURL, bytes.NewReader(data))
	if err != nil {
		return false, fmt.Errorf("build win notification: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.cfg.AppKey != "" {
		httpReq.Header.Set("X-App-Key", a.cfg.AppKey)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("%s win notification: %w", a.cfg.Platform, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		a.logger.Warn("win notification rejected",
			zap.String("platform", a.cfg.Platform),
			zap.Int("status", resp.StatusCode))
		return false, nil
	}
	return true, nil
}
