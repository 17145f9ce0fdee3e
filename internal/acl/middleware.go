// internal/acl/middleware.go
//
// Chi middleware that gates routes by session role.
//
// Anonymous callers get a JSON 401 on API routes.  A full-page browser
// navigation to an admin page is redirected to the login form instead, with
// the original path in `next`.  Signed-in callers lacking the role get the
// same JSON 401; the site has one privileged role and no forbidden state.

package acl

import (
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/acmlab/labsite/internal/auth"
	"github.com/acmlab/labsite/internal/respond"
)

// LoginPath is where page navigations are sent when unauthenticated.
const LoginPath = "/admin/login"

// RequireRole ensures the current user holds ANY of the supplied roles.
func RequireRole(names ...string) func(http.Handler) http.Handler {
	if len(names) == 0 {
		panic("acl.RequireRole: at least one role name must be supplied")
	}
	allowSet := make(map[string]struct{}, len(names))
	for _, n := range names {
		allowSet[n] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.FromContext(r.Context())
			if !ok {
				Unauthorized(w, r)
				return
			}
			if _, ok := allowSet[p.Role]; !ok {
				zap.S().Infow("acl denied", "user", p.Username, "role", p.Role, "path", r.URL.Path)
				respond.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Unauthorized answers an anonymous request: a redirect for page
// navigations, JSON 401 otherwise.
func Unauthorized(w http.ResponseWriter, r *http.Request) {
	if IsPageNavigation(r) {
		target := LoginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	respond.Error(w, http.StatusUnauthorized, "unauthorized")
}

// IsPageNavigation reports whether r is a browser loading a page rather
// than a script calling the API.
func IsPageNavigation(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return false
	}
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return false
	}
	if mode := r.Header.Get("Sec-Fetch-Mode"); mode != "" {
		return mode == "navigate"
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
