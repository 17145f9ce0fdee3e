// internal/resource/controller.go
//
// Generic HTTP controller for one ordered resource.
//
/*
Context
--------
A Controller turns an ordered.Store into two chi routers:

	Admin()   mounted at /api/<resource>           (admin role required)
	  GET    /              every row, all statuses
	  POST   /              create, 201
	  GET    /{id}          one row
	  PUT    /{id}          partial update (PATCH accepted too)
	  DELETE /{id}          delete with children
	  POST   /reorder       {"ids":[3,1,2]}  (PUT accepted too)
	  POST   /upload        image upload, when Options.UploadCategory is set

	Public()  mounted at /api/frontend/<resource>
	  GET    /?limit=N      public statuses only
	  GET    /{id}          404 unless the row is public

Errors map to statuses in writeError and every error body is
{"error": "<message>"}.

Notes
-----
  • Oxford commas, two spaces after periods.
*/
package resource

import (
	"cmp"
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/acmlab/labsite/internal/acl"
	"github.com/acmlab/labsite/internal/auth"
	"github.com/acmlab/labsite/internal/cache"
	"github.com/acmlab/labsite/internal/metrics"
	"github.com/acmlab/labsite/internal/ordered"
	"github.com/acmlab/labsite/internal/respond"
	"github.com/acmlab/labsite/internal/upload"
)

// Options tunes a Controller.  The zero value serves uncached lists and no
// upload route.
type Options struct {
	// Cache memoizes list responses; invalidated on every commit.
	Cache *cache.Cache

	// Uploads and UploadCategory enable POST /upload.
	Uploads        *upload.Store
	UploadCategory string

	// OnPublicGet runs after a successful public single-row read.
	OnPublicGet func(ctx context.Context, id int64)
}

// Controller serves one resource.
type Controller[T any, PT ordered.Entity[T]] struct {
	store    *ordered.Store[T, PT]
	newPatch func() ordered.Patch
	opts     Options
}

// New wires the controller's post-commit hooks into store.
func New[T any, PT ordered.Entity[T]](store *ordered.Store[T, PT], newPatch func() ordered.Patch, opts Options) *Controller[T, PT] {
	c := &Controller[T, PT]{store: store, newPatch: newPatch, opts: opts}

	store.OnCommit(func(_ context.Context, ev ordered.Event) {
		metrics.ResourceMutationsTotal.WithLabelValues(ev.Resource, string(ev.Op)).Inc()
	})
	if opts.Cache != nil {
		store.OnCommit(func(_ context.Context, ev ordered.Event) {
			opts.Cache.InvalidatePrefix(ev.Resource + ":")
		})
	}
	return c
}

// Store returns the underlying store.
func (c *Controller[T, PT]) Store() *ordered.Store[T, PT] { return c.store }

// Admin returns the admin router.  Callers may add routes to it; they
// inherit the role gate.
func (c *Controller[T, PT]) Admin() chi.Router {
	r := chi.NewRouter()
	r.Use(acl.RequireRole(auth.RoleAdmin))

	r.Get("/", c.handleList)
	r.Post("/", c.handleCreate)
	r.Post("/reorder", c.handleReorder)
	r.Put("/reorder", c.handleReorder)
	r.Get("/{id:[0-9]+}", c.handleGet)
	r.Put("/{id:[0-9]+}", c.handleUpdate)
	r.Patch("/{id:[0-9]+}", c.handleUpdate)
	r.Delete("/{id:[0-9]+}", c.handleDelete)

	if c.opts.Uploads != nil && c.opts.UploadCategory != "" {
		r.Post("/upload", c.handleUpload)
	}
	return r
}

// Public returns the unauthenticated read-only router.
func (c *Controller[T, PT]) Public() chi.Router {
	r := chi.NewRouter()
	r.Get("/", c.handlePublicList)
	r.Get("/{id:[0-9]+}", c.handlePublicGet)
	return r
}

/*──────────────────────────── reads ────────────────────────────────────────*/

func (c *Controller[T, PT]) handleList(w http.ResponseWriter, r *http.Request) {
	rows, err := c.list(r.Context(), c.store.Resource()+":admin", ordered.Filter{})
	if err != nil {
		c.writeError(w, "list", err)
		return
	}
	respond.JSON(w, http.StatusOK, rows)
}

func (c *Controller[T, PT]) handlePublicList(w http.ResponseWriter, r *http.Request) {
	f := c.store.PublicFilter()
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			c.writeError(w, "list", ordered.Invalid("limit", "must be a positive integer"))
			return
		}
		f.Limit = n
	}
	key := c.store.Resource() + ":public:" + strconv.Itoa(f.Limit)
	rows, err := c.list(r.Context(), key, f)
	if err != nil {
		c.writeError(w, "list", err)
		return
	}
	respond.JSON(w, http.StatusOK, rows)
}

// list reads through the cache when one is configured.  The shared load
// outlives the caller that started it, since other callers wait on it.
func (c *Controller[T, PT]) list(ctx context.Context, key string, f ordered.Filter) ([]*T, error) {
	if c.opts.Cache == nil {
		return c.store.List(ctx, f)
	}
	loadCtx := context.WithoutCancel(ctx)
	v, err := c.opts.Cache.Load(key, func() (any, error) {
		return c.store.List(loadCtx, f)
	})
	if err != nil {
		return nil, err
	}
	return v.([]*T), nil
}

func (c *Controller[T, PT]) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := c.store.Get(r.Context(), PathID(r))
	if err != nil {
		c.writeError(w, "get", err)
		return
	}
	respond.JSON(w, http.StatusOK, rec)
}

func (c *Controller[T, PT]) handlePublicGet(w http.ResponseWriter, r *http.Request) {
	id := PathID(r)
	rec, err := c.store.Get(r.Context(), id)
	if err == nil && !c.store.Visible(rec) {
		err = ordered.ErrNotFound
	}
	if err != nil {
		c.writeError(w, "get", err)
		return
	}
	if c.opts.OnPublicGet != nil {
		c.opts.OnPublicGet(r.Context(), id)
	}
	respond.JSON(w, http.StatusOK, rec)
}

/*──────────────────────────── mutations ────────────────────────────────────*/

func (c *Controller[T, PT]) handleCreate(w http.ResponseWriter, r *http.Request) {
	rec := new(T)
	if err := respond.Decode(w, r, rec); err != nil {
		c.writeError(w, "create", ordered.Invalid("", "invalid JSON body"))
		return
	}
	out, err := c.store.Create(r.Context(), rec)
	if err != nil {
		c.writeError(w, "create", err)
		return
	}
	respond.JSON(w, http.StatusCreated, out)
}

func (c *Controller[T, PT]) handleUpdate(w http.ResponseWriter, r *http.Request) {
	patch := c.newPatch()
	if err := respond.Decode(w, r, patch); err != nil {
		c.writeError(w, "update", ordered.Invalid("", "invalid JSON body"))
		return
	}
	out, err := c.store.Update(r.Context(), PathID(r), patch)
	if err != nil {
		c.writeError(w, "update", err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

func (c *Controller[T, PT]) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := c.store.Delete(r.Context(), PathID(r)); err != nil {
		c.writeError(w, "delete", err)
		return
	}
	respond.OK(w, "deleted")
}

// reorderBody accepts {"ids":[...]} and the older
// {"order":[{"id":3,"order_index":1},...]} shape.
type reorderBody struct {
	IDs   []int64      `json:"ids"`
	Order []orderEntry `json:"order"`
}

type orderEntry struct {
	ID         int64 `json:"id"`
	OrderIndex int   `json:"order_index"`
}

func (b reorderBody) ids() []int64 {
	if len(b.IDs) > 0 || len(b.Order) == 0 {
		return b.IDs
	}
	order := slices.Clone(b.Order)
	slices.SortStableFunc(order, func(x, y orderEntry) int {
		return cmp.Compare(x.OrderIndex, y.OrderIndex)
	})
	out := make([]int64, len(order))
	for i, o := range order {
		out[i] = o.ID
	}
	return out
}

func (c *Controller[T, PT]) handleReorder(w http.ResponseWriter, r *http.Request) {
	var body reorderBody
	if err := respond.Decode(w, r, &body); err != nil {
		c.writeError(w, "reorder", ordered.Invalid("", "invalid JSON body"))
		return
	}
	if err := c.store.Reorder(r.Context(), body.ids()); err != nil {
		c.writeError(w, "reorder", err)
		return
	}
	respond.OK(w, "order updated")
}

func (c *Controller[T, PT]) handleUpload(w http.ResponseWriter, r *http.Request) {
	fh, err := FormFile(w, r, c.opts.Uploads.MaxBytes, "file", "image")
	if err != nil {
		c.writeError(w, "upload", err)
		return
	}
	st, err := c.opts.Uploads.SaveImage(c.opts.UploadCategory, fh)
	if err != nil {
		c.writeError(w, "upload", err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"url":      st.URL,
		"filename": st.Filename,
	})
}

/*──────────────────────────── errors ───────────────────────────────────────*/

func (c *Controller[T, PT]) writeError(w http.ResponseWriter, op string, err error) {
	WriteError(w, c.store.Resource(), op, err)
}

// WriteError maps err to a status code and writes {"error": msg}.
// Component handlers outside the generic controller use it too.
func WriteError(w http.ResponseWriter, resource, op string, err error) {
	var (
		ve     *ordered.ValidationError
		status int
		kind   string
	)
	switch {
	case errors.As(err, &ve):
		status, kind = http.StatusBadRequest, "validation"
	case errors.Is(err, ordered.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, upload.ErrBadType), errors.Is(err, upload.ErrTooLarge):
		status, kind = http.StatusBadRequest, "upload"
	default:
		status, kind = http.StatusInternalServerError, "internal"
		zap.S().Errorw("resource request failed", "resource", resource, "op", op, "err", err)
	}
	metrics.ResourceErrorsTotal.WithLabelValues(resource, kind).Inc()
	respond.Error(w, status, err.Error())
}
