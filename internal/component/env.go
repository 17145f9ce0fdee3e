package component

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"github.com/acmlab/labsite/internal/cache"
	"github.com/acmlab/labsite/internal/config"
	"github.com/acmlab/labsite/internal/notify"
	"github.com/acmlab/labsite/internal/ordered"
	"github.com/acmlab/labsite/internal/resource"
	"github.com/acmlab/labsite/internal/session"
	"github.com/acmlab/labsite/internal/upload"
	"github.com/acmlab/labsite/internal/users"
)

// NotifyTimeout bounds one page-changed delivery.
const NotifyTimeout = 5 * time.Second

// Env carries the process-wide collaborators components are built from.
// Nil Cache or Notifier disables that concern.
type Env struct {
	Config   *config.Config
	DB       *sqlx.DB
	Cache    *cache.Cache
	Notifier notify.Notifier
	Uploads  *upload.Store
	Sessions *session.Manager
	Users    *users.Store
}

// Controller builds a resource controller and, when a notifier is set,
// subscribes it to the store's commits.
func Controller[T any, PT ordered.Entity[T]](env *Env, store *ordered.Store[T, PT], newPatch func() ordered.Patch, opts resource.Options) *resource.Controller[T, PT] {
	if env.Notifier != nil {
		store.OnCommit(notify.Hook(env.Notifier, NotifyTimeout))
	}
	return resource.New(store, newPatch, opts)
}

// Mount attaches ctl under /api/<resource> and /api/frontend/<resource>.
// extend, when non-nil, adds resource-specific routes before mounting.
func Mount[T any, PT ordered.Entity[T]](r chi.Router, ctl *resource.Controller[T, PT], extend func(admin, public chi.Router)) {
	admin, public := ctl.Admin(), ctl.Public()
	if extend != nil {
		extend(admin, public)
	}
	name := ctl.Store().Resource()
	r.Mount("/api/"+name, admin)
	r.Mount("/api/frontend/"+name, public)
}
