// internal/requestinfo/requestinfo.go
//
// Per-request client metadata for the access log.
//
// Context
// -------
// Enrich parses the User-Agent once per request and, when a GeoLite2 City
// database is configured, resolves the client address to a country and
// city.  The result is read by the access logger after the handler
// returns.  The structs hold no handles, so they are safe to log.
//
// Notes
// -----
//   • Geo lookups are skipped entirely when OpenGeo was never called.
//   • Oxford commas, two spaces after periods.
package requestinfo

import (
	"context"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
)

// UA is the parsed User-Agent.
type UA struct {
	Browser     string `json:"browser"`
	Version     string `json:"version"`
	OS          string `json:"os"`
	Device      string `json:"device"`
	IsBot       bool   `json:"is_bot"`
	PrimaryLang string `json:"lang"`
}

// Geo holds best-effort location hints.  Fields stay empty on a miss.
type Geo struct {
	IP         net.IP `json:"ip"`
	CountryISO string `json:"country"`
	City       string `json:"city"`
}

// RequestInfo is attached to the request context by Enrich.
type RequestInfo struct {
	UA    UA
	Geo   Geo
	Start time.Time
}

type ctxKey struct{}

// FromContext returns the value stored by Enrich, or nil.
func FromContext(ctx context.Context) *RequestInfo {
	v, _ := ctx.Value(ctxKey{}).(*RequestInfo)
	return v
}

/*──────────────────────────── geo database ─────────────────────────────────*/

var geoReader atomic.Pointer[geoip2.Reader]

// OpenGeo loads a GeoLite2 City database.  Callers treat a failure as a
// warning; requests are still served without location data.
func OpenGeo(path string) error {
	r, err := geoip2.Open(path)
	if err != nil {
		return err
	}
	if old := geoReader.Swap(r); old != nil {
		old.Close()
	}
	return nil
}

// CloseGeo releases the database, if one is open.
func CloseGeo() {
	if r := geoReader.Swap(nil); r != nil {
		r.Close()
	}
}

func lookupGeo(ip net.IP) Geo {
	g := Geo{IP: ip}
	r := geoReader.Load()
	if r == nil || ip == nil || ip.IsLoopback() || ip.IsPrivate() {
		return g
	}
	rec, err := r.City(ip)
	if err != nil {
		return g
	}
	g.CountryISO = rec.Country.IsoCode
	g.City = rec.City.Names["zh-CN"]
	if g.City == "" {
		g.City = rec.City.Names["en"]
	}
	return g
}

/*──────────────────────────── user agent ───────────────────────────────────*/

func parseUA(header, acceptLang string) UA {
	u := uasurfer.Parse(header)
	osName := strings.TrimPrefix(u.OS.Name.String(), "OS")
	if osName == "MacOSX" {
		osName = "macOS"
	}
	return UA{
		Browser:     strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		Version:     version(u.Browser.Version),
		OS:          osName,
		Device:      device(u.DeviceType),
		IsBot:       u.IsBot(),
		PrimaryLang: primaryLang(acceptLang),
	}
}

// version renders major.minor.patch without trailing zero parts.
func version(v uasurfer.Version) string {
	parts := []int{v.Major, v.Minor, v.Patch}
	for len(parts) > 1 && parts[len(parts)-1] == 0 {
		parts = parts[:len(parts)-1]
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strconv.Itoa(p)
	}
	return strings.Join(out, ".")
}

func device(dt uasurfer.DeviceType) string {
	switch dt {
	case uasurfer.DeviceComputer:
		return "desktop"
	case uasurfer.DevicePhone:
		return "phone"
	case uasurfer.DeviceTablet:
		return "tablet"
	case uasurfer.DeviceConsole:
		return "console"
	case uasurfer.DeviceWearable:
		return "wearable"
	case uasurfer.DeviceTV:
		return "tv"
	}
	return "unknown"
}

// primaryLang returns the first Accept-Language tag, lowercased.
func primaryLang(al string) string {
	tag, _, _ := strings.Cut(al, ",")
	tag, _, _ = strings.Cut(tag, ";")
	return strings.ToLower(strings.TrimSpace(tag))
}
