package models

import (
	"encoding/json"
	"testing"
)

func TestParseAdType(t *testing.T) {
	for _, valid := range []string{"banner", "interstitial", "rewarded", "native"} {
		if _, err := ParseAdType(valid); err != nil {
			t.Errorf("%s should parse: %v", valid, err)
		}
	}
	if _, err := ParseAdType("popup"); err == nil {
		t.Error("expected unknown ad type to fail")
	}
}

func TestBidRequest_Validate(t *testing.T) {
	negative := -0.5
	zero := 0.0
	tests := []struct {
		name    string
		req     BidRequest
		wantErr bool
	}{
		{"minimal", BidRequest{AdUnitID: "u1"}, false},
		{"full", BidRequest{AdUnitID: "u1", AdType: AdTypeBanner, FloorPrice: &zero}, false},
		{"missing ad unit", BidRequest{}, true},
		{"bad ad type", BidRequest{AdUnitID: "u1", AdType: "popup"}, true},
		{"negative floor", BidRequest{AdUnitID: "u1", FloorPrice: &negative}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestBidRequest_Floor(t *testing.T) {
	req := BidRequest{AdUnitID: "u1"}
	if _, ok := req.Floor(); ok {
		t.Error("nil floor must report not set")
	}

	zero := 0.0
	req.FloorPrice = &zero
	floor, ok := req.Floor()
	if !ok || floor != 0 {
		t.Errorf("explicit zero floor must report set, got (%v, %v)", floor, ok)
	}
}

func TestBidResponse_Validate(t *testing.T) {
	good := BidResponse{Source: "alpha", Price: 0, BidToken: "tok"}
	if err := good.Validate(); err != nil {
		t.Errorf("zero price is valid: %v", err)
	}

	bad := []BidResponse{
		{Price: 1, BidToken: "tok"},
		{Source: "alpha", Price: -1, BidToken: "tok"},
		{Source: "alpha", Price: 1},
	}
	for i, b := range bad {
		if err := b.Validate(); err == nil {
			t.Errorf("case %d should fail validation: %+v", i, b)
		}
	}
}

func TestAuctionResult_NoFill(t *testing.T) {
	var nilResult *AuctionResult
	if !nilResult.NoFill() {
		t.Error("nil result is a no-fill")
	}
	if !(&AuctionResult{}).NoFill() {
		t.Error("result without winner is a no-fill")
	}
	filled := &AuctionResult{Winner: &BidResponse{Source: "a", BidToken: "t"}}
	if filled.NoFill() {
		t.Error("result with winner is not a no-fill")
	}
}

func TestBidResponse_JSONShape(t *testing.T) {
	bid := BidResponse{Source: "alpha", Price: 1.2, Currency: "USD", BidToken: "tok", Ad: AdData{AdID: "a1"}}
	data, err := json.Marshal(bid)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"source", "price", "bidToken", "ad"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing %q in wire shape: %s", key, data)
		}
	}
}
