// components/auth/auth.go
//
// Admin authentication component: login, logout, current user, password
// change, and the signed-in admin's profile and avatar.
//
// Login accepts either a JSON body ({"username","password"}) from the admin
// SPA or a classic form post.  JSON callers get JSON back; form callers are
// redirected, to `next` on success or back to the login page with
// ?error=1 on failure.
//
// A profile update may rename the account; the session cookie is re-issued
// so the new username and display name take effect immediately.
//
//------------------------------------------------------------------------------

package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/acmlab/labsite/internal/acl"
	"github.com/acmlab/labsite/internal/auth"
	"github.com/acmlab/labsite/internal/component"
	"github.com/acmlab/labsite/internal/resource"
	"github.com/acmlab/labsite/internal/respond"
	"github.com/acmlab/labsite/internal/session"
	"github.com/acmlab/labsite/internal/upload"
	"github.com/acmlab/labsite/internal/users"
)

// AvatarCategory is the upload directory for profile pictures.
const AvatarCategory = "avatars"

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component encapsulates login functionality.
type Component struct {
	sessions *session.Manager
	users    *users.Store
	uploads  *upload.Store
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "auth" }

// Migrations creates the users table.
func (c *Component) Migrations() []string { return users.Migrations }

// Routes mounts the login endpoints and the /api/auth group.
func (c *Component) Routes(r chi.Router, env *component.Env) {
	c.sessions, c.users, c.uploads = env.Sessions, env.Users, env.Uploads

	r.Post("/admin/login", c.handleLogin)
	r.Get("/admin/logout", c.handleLogout)
	r.Post("/admin/logout", c.handleLogout)

	r.Route("/api/auth", func(api chi.Router) {
		api.Post("/login", c.handleLogin)
		api.Post("/logout", c.handleLogout)
		api.Group(func(g chi.Router) {
			g.Use(acl.RequireRole(auth.RoleAdmin))
			g.Get("/me", c.handleMe)
			g.Post("/password", c.handlePassword)
			g.Get("/profile", c.handleProfile)
			g.Put("/profile", c.handleUpdateProfile)
			if c.uploads != nil {
				g.Post("/avatar", c.handleAvatar)
			}
		})
	})
}

// Register component at program start.
func init() { component.Register(&Component{}) }

/*──────────────────────────── Handlers ─────────────────────────────────────*/

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Next     string `json:"next"`
}

func (c *Component) handleLogin(w http.ResponseWriter, r *http.Request) {
	jsonBody := isJSON(r)

	var in credentials
	if jsonBody {
		if err := respond.Decode(w, r, &in); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			respond.Error(w, http.StatusBadRequest, "invalid form body")
			return
		}
		in = credentials{
			Username: r.PostForm.Get("username"),
			Password: r.PostForm.Get("password"),
			Next:     r.PostForm.Get("next"),
		}
	}

	u, err := c.users.Authenticate(r.Context(), in.Username, in.Password)
	if err != nil {
		if !errors.Is(err, users.ErrBadCredentials) {
			zap.S().Errorw("login lookup failed", "user", in.Username, "err", err)
			respond.Error(w, http.StatusInternalServerError, err.Error())
			return
		}
		zap.S().Infow("login rejected", "user", in.Username, "ip", r.RemoteAddr)
		if jsonBody {
			respond.Error(w, http.StatusUnauthorized, err.Error())
			return
		}
		http.Redirect(w, r, acl.LoginPath+"?error=1", http.StatusSeeOther)
		return
	}

	d := session.Data{Username: u.Username, Role: u.Role, DisplayName: u.DisplayName}
	if err := c.sessions.Login(w, r, d); err != nil {
		respond.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	zap.S().Infow("login", "user", u.Username)

	if jsonBody {
		respond.JSON(w, http.StatusOK, map[string]any{
			"success": true,
			"user":    auth.Principal{Username: u.Username, Role: u.Role, DisplayName: u.DisplayName},
		})
		return
	}
	http.Redirect(w, r, safeNext(in.Next), http.StatusSeeOther)
}

func (c *Component) handleLogout(w http.ResponseWriter, r *http.Request) {
	c.sessions.Logout(w, r)
	if acl.IsPageNavigation(r) {
		http.Redirect(w, r, acl.LoginPath, http.StatusSeeOther)
		return
	}
	respond.OK(w, "logged out")
}

func (c *Component) handleMe(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	respond.JSON(w, http.StatusOK, p)
}

func (c *Component) handlePassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Old string `json:"old_password"`
		New string `json:"new_password"`
	}
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, _ := auth.FromContext(r.Context())
	err := c.users.ChangePassword(r.Context(), p.Username, in.Old, in.New)
	switch {
	case err == nil:
		respond.OK(w, "password changed")
	case errors.Is(err, users.ErrBadCredentials):
		respond.Error(w, http.StatusBadRequest, "current password is incorrect")
	case errors.Is(err, users.ErrWeakPassword):
		respond.Error(w, http.StatusBadRequest, err.Error())
	default:
		zap.S().Errorw("change password failed", "user", p.Username, "err", err)
		respond.Error(w, http.StatusInternalServerError, err.Error())
	}
}

// profile is the admin profile as the settings page sees it.
type profile struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	AvatarURL   string `json:"avatar_url"`
}

func profileOf(u *users.User) profile {
	p := profile{Username: u.Username, DisplayName: u.DisplayName, Role: u.Role, AvatarURL: u.Avatar}
	if p.DisplayName == "" {
		p.DisplayName = u.Username
	}
	return p
}

func (c *Component) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	u, err := c.users.ByUsername(r.Context(), p.Username)
	if err != nil {
		c.userError(w, p.Username, "load profile", err)
		return
	}
	respond.JSON(w, http.StatusOK, profileOf(u))
}

func (c *Component) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
	}
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, _ := auth.FromContext(r.Context())
	u, err := c.users.UpdateProfile(r.Context(), p.Username, in.Username, in.DisplayName)
	if err != nil {
		c.userError(w, p.Username, "update profile", err)
		return
	}
	if err := c.sessions.Login(w, r, session.Data{Username: u.Username, Role: u.Role, DisplayName: u.DisplayName}); err != nil {
		respond.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	zap.S().Infow("profile updated", "user", p.Username, "username", u.Username)
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "profile": profileOf(u)})
}

func (c *Component) handleAvatar(w http.ResponseWriter, r *http.Request) {
	fh, err := resource.FormFile(w, r, c.uploads.MaxBytes, "avatar", "file")
	if err != nil {
		resource.WriteError(w, c.Name(), "avatar", err)
		return
	}
	st, err := c.uploads.SaveImage(AvatarCategory, fh)
	if err != nil {
		resource.WriteError(w, c.Name(), "avatar", err)
		return
	}
	p, _ := auth.FromContext(r.Context())
	prev, err := c.users.SetAvatar(r.Context(), p.Username, st.URL)
	if err != nil {
		c.removeUpload(st.URL)
		c.userError(w, p.Username, "set avatar", err)
		return
	}
	if strings.HasPrefix(prev, c.uploads.BaseURL+"/") {
		c.removeUpload(prev)
	}
	respond.JSON(w, http.StatusOK, map[string]any{"success": true, "avatar_url": st.URL})
}

func (c *Component) removeUpload(ref string) {
	if err := c.uploads.Remove(ref); err != nil {
		zap.S().Warnw("remove avatar", "file", ref, "err", err)
	}
}

// userError maps users.Store errors to responses.
func (c *Component) userError(w http.ResponseWriter, username, op string, err error) {
	switch {
	case errors.Is(err, users.ErrExists):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, users.ErrNotFound):
		respond.Error(w, http.StatusNotFound, err.Error())
	default:
		zap.S().Errorw(op+" failed", "user", username, "err", err)
		respond.Error(w, http.StatusInternalServerError, err.Error())
	}
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/admin"
	}
	return next
}
