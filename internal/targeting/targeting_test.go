package targeting

import (
	"net/http/httptest"
	"testing"
)

const iphoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
const desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

func TestDeviceFromUA(t *testing.T) {
	d := DeviceFromUA(iphoneUA)
	if d == nil {
		t.Fatal("expected device info")
	}
	if d.Type != "mobile" {
		t.Errorf("expected mobile, got %s", d.Type)
	}

	if d := DeviceFromUA(desktopUA); d == nil || d.Type != "desktop" {
		t.Errorf("expected desktop, got %+v", d)
	}

	if DeviceFromUA("") != nil {
		t.Error("empty UA must yield nil device")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/ad/unit-1", nil)
	r.RemoteAddr = "203.0.113.7:54321"
	if got := ClientIP(r); got != "203.0.113.7" {
		t.Errorf("expected port stripped, got %s", got)
	}

	r.Header.Set("X-Forwarded-For", "198.51.100.4, 10.0.0.1")
	if got := ClientIP(r); got != "198.51.100.4" {
		t.Errorf("expected first forwarded hop, got %s", got)
	}
}

func TestResolve_PrefersSuppliedDevice(t *testing.T) {
	r := httptest.NewRequest("GET", "/ad/unit-1", nil)
	r.Header.Set("User-Agent", desktopUA)

	supplied := DeviceFromUA(iphoneUA)
	device, geo := Resolve(r, nil, supplied)
	if device != supplied {
		t.Error("client-supplied device must win over UA parsing")
	}
	if geo != nil {
		t.Error("no geoip database means no geo data")
	}

	device, _ = Resolve(r, nil, nil)
	if device == nil || device.Type != "desktop" {
		t.Errorf("expected UA-derived device, got %+v", device)
	}
}
