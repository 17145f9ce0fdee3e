// internal/middleware/security.go
//
// Security-header middleware.
//
// Sets a fixed header set on every response:
//
//   • Strict-Transport-Security  (HTTPS requests only)
//   • Content-Security-Policy     self-only; uploads may be data: or blob:
//   • X-Frame-Options
//   • X-Content-Type-Options
//   • Referrer-Policy
//   • Permissions-Policy
//
// Notes
// -----
// • Headers are set before next.ServeHTTP runs, because a handler that has
//   already written its status line freezes the header map.  A handler may
//   still override any of them.
// • Oxford commas, two spaces after periods.

package middleware

import "net/http"

// Security sets security headers for every response.
func Security(next http.Handler) http.Handler {
	const (
		hsts = "max-age=63072000; includeSubDomains"
		csp  = "default-src 'self'; img-src 'self' data: blob:; object-src 'none'; " +
			"base-uri 'self'; frame-ancestors 'none'"
		refer = "strict-origin-when-cross-origin"
		perm  = "geolocation=(), microphone=(), camera=()"
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if isSecure(r) {
			h.Set("Strict-Transport-Security", hsts)
		}
		h.Set("Content-Security-Policy", csp)
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", refer)
		h.Set("Permissions-Policy", perm)
		next.ServeHTTP(w, r)
	})
}
