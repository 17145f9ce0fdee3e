package requestinfo

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"
)

// Enrich attaches *RequestInfo to the request context.
func Enrich(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := &RequestInfo{
			UA:    parseUA(r.UserAgent(), r.Header.Get("Accept-Language")),
			Geo:   lookupGeo(ClientIP(r)),
			Start: time.Now(),
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, info)))
	})
}

// ClientIP returns the left-most parsable address in X-Forwarded-For, then
// X-Real-Ip, then the connection's remote address.  The site runs behind
// its own reverse proxy, so the forwarding headers are trusted.
func ClientIP(r *http.Request) net.IP {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for part := range strings.SplitSeq(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip
			}
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-Ip"))); ip != nil {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}
