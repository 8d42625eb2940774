package models

import "fmt"

// AdType enumerates the supported ad unit formats.
type AdType string

const (
	AdTypeBanner       AdType = "banner"
	AdTypeInterstitial AdType = "interstitial"
	AdTypeRewarded     AdType = "rewarded"
	AdTypeNative       AdType = "native"
)

// ParseAdType validates a raw ad type string.
func ParseAdType(s string) (AdType, error) {
	switch AdType(s) {
	case AdTypeBanner, AdTypeInterstitial, AdTypeRewarded, AdTypeNative:
		return AdType(s), nil
	}
	return "", fmt.Errorf("unknown ad type %q", s)
}

// DeviceInfo carries device attributes forwarded to ad networks. All fields
// are optional and informational only; the auction never branches on them.
type DeviceInfo struct {
	Type         string `json:"type,omitempty"`
	OS           string `json:"os,omitempty"`
	OSVersion    string `json:"osVersion,omitempty"`
	Model        string `json:"model,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	ScreenWidth  string `json:"screenWidth,omitempty"`
	ScreenHeight string `json:"screenHeight,omitempty"`
	Language     string `json:"language,omitempty"`
}

// GeoData describes the requesting user's location.
type GeoData struct {
	Country string `json:"country,omitempty"`
	Region  string `json:"region,omitempty"`
	City    string `json:"city,omitempty"`
}

// BidRequest is the generic request fanned out to every registered ad
// network adapter. It is built once per auction round and consumed
// read-only by adapters.
type BidRequest struct {
	AdUnitID string  `json:"adUnitId"`
	AdType   AdType  `json:"adType"`
	AppID    string  `json:"appId,omitempty"`
	// FloorPrice is the minimum acceptable bid. Nil means no floor; a
	// network may legitimately bid 0 when no floor is set.
	FloorPrice *float64    `json:"floorPrice,omitempty"`
	Device     *DeviceInfo `json:"device,omitempty"`
	Geo        *GeoData    `json:"geo,omitempty"`
}

// Validate checks the request invariants before an auction runs.
func (r *BidRequest) Validate() error {
	if r.AdUnitID == "" {
		return fmt.Errorf("adUnitId required")
	}
	if r.AdType != "" {
		if _, err := ParseAdType(string(r.AdType)); err != nil {
			return err
		}
	}
	if r.FloorPrice != nil && *r.FloorPrice < 0 {
		return fmt.Errorf("floorPrice must be non-negative, got %v", *r.FloorPrice)
	}
	return nil
}

// Floor returns the floor price and whether one is set.
func (r *BidRequest) Floor() (float64, bool) {
	if r.FloorPrice == nil {
		return 0, false
	}
	return *r.FloorPrice, true
}
