// internal/auth/context.go
//
// Request principal helpers.
//
// Usage
// -----
//     // Session middleware attaches the logged-in user.
//     ctx = auth.WithUser(ctx, auth.Principal{Username: "admin", Role: "admin"})
//
//     // Downstream code retrieves it.
//     p, ok := auth.FromContext(ctx)
//
// Notes
// -----
// • Oxford commas, two spaces after periods.

package auth

import (
	"context"
	"net/http"

	"github.com/acmlab/labsite/internal/session"
)

// RoleAdmin is the only role that may mutate content.
const RoleAdmin = "admin"

// Principal is the authenticated caller.
type Principal struct {
	Username    string `json:"username"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name"`
}

// userKey is unexported to avoid context-key collisions.
type userKey struct{}

// WithUser returns a new context carrying p.
func WithUser(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, userKey{}, p)
}

// FromContext returns the principal, or ok == false for anonymous requests.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(userKey{}).(Principal)
	return p, ok
}

// Load attaches the session principal, when there is one, to every
// request and slides the session forward.
func Load(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if d, ok := sessions.Current(r); ok {
				sessions.Touch(w, r, d)
				r = r.WithContext(WithUser(r.Context(), Principal{
					Username:    d.Username,
					Role:        d.Role,
					DisplayName: d.DisplayName,
				}))
			}
			next.ServeHTTP(w, r)
		})
	}
}
