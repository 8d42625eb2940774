// Package targeting derives device and geo context for a bid request from
// the incoming HTTP request. The derived data is informational for ad
// networks; the auction itself never branches on it.
package targeting

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/avct/uasurfer"

	"github.com/adverge/adverge/internal/geoip"
	"github.com/adverge/adverge/internal/models"
)

// DeviceFromUA parses a raw User-Agent string into device info using the
// uasurfer library. Returns nil for an empty UA.
func DeviceFromUA(uaString string) *models.DeviceInfo {
	if uaString == "" {
		return nil
	}
	u := uasurfer.Parse(uaString)

	var deviceType string
	switch u.DeviceType {
	case uasurfer.DeviceComputer:
		deviceType = "desktop"
	case uasurfer.DevicePhone:
		deviceType = "mobile"
	case uasurfer.DeviceTablet:
		deviceType = "tablet"
	default:
		deviceType = "other"
	}

	v := u.OS.Version
	return &models.DeviceInfo{
		Type:      deviceType,
		OS:        fmt.Sprintf("%s %s", u.OS.Platform.String(), u.OS.Name.String()),
		OSVersion: fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch),
	}
}

// ClientIP extracts the requesting client's IP. X-Forwarded-For wins when
// present (first entry), otherwise RemoteAddr with any port stripped.
func ClientIP(r *http.Request) string {
	ipStr := r.Header.Get("X-Forwarded-For")
	if ipStr == "" {
		ipStr = r.RemoteAddr
		if host, _, err := net.SplitHostPort(ipStr); err == nil {
			ipStr = host
		}
	} else if idx := strings.Index(ipStr, ","); idx != -1 {
		ipStr = strings.TrimSpace(ipStr[:idx])
	}
	return ipStr
}

// Resolve builds the device and geo context for one request. Device comes
// from the User-Agent header unless the client supplied its own attributes
// via query options; geo comes from the GeoIP database, which may be nil.
func Resolve(r *http.Request, g *geoip.GeoIP, device *models.DeviceInfo) (*models.DeviceInfo, *models.GeoData) {
	if device == nil {
		device = DeviceFromUA(r.Header.Get("User-Agent"))
	}
	var geo *models.GeoData
	if g != nil {
		geo = g.Lookup(ClientIP(r))
	}
	return device, geo
}
