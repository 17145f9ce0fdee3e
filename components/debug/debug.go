// components/debug/debug.go
//
// Request echo for administrators.
//
// Context
// -------
// GET /api/debug/request reports what the server saw for the calling
// request: client address, raw and parsed User-Agent, geo hints, and the
// signed-in principal.  It helps diagnose proxy headers in front of the
// site.  Only administrators may call it.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.
package debug

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/acmlab/labsite/internal/acl"
	"github.com/acmlab/labsite/internal/auth"
	"github.com/acmlab/labsite/internal/component"
	"github.com/acmlab/labsite/internal/requestinfo"
	"github.com/acmlab/labsite/internal/respond"
)

var _ component.Component = (*Component)(nil)

// Component serves /api/debug.
type Component struct{}

// Name returns the canonical component key.
func (c *Component) Name() string { return "debug" }

// Migrations returns nil; the component has no schema.
func (c *Component) Migrations() []string { return nil }

// Routes mounts the echo endpoint behind the admin role.
func (c *Component) Routes(r chi.Router, _ *component.Env) {
	r.With(acl.RequireRole(auth.RoleAdmin)).Get("/api/debug/request", handler)
}

func init() { component.Register(&Component{}) }

func handler(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"ip":     requestinfo.ClientIP(r),
		"method": r.Method,
		"proto":  r.Header.Get("X-Forwarded-Proto"),
		"ua":     r.UserAgent(),
	}
	if info := requestinfo.FromContext(r.Context()); info != nil {
		out["ua_parsed"] = info.UA
		out["geo"] = info.Geo
	}
	if p, ok := auth.FromContext(r.Context()); ok {
		out["user"] = p.Username
	}
	respond.JSON(w, http.StatusOK, out)
}
