// components/notifications/notifications.go
//
// Notifications component: the lab's news and rules posts.
//
// Context
// -------
// A post is written online in the admin editor or uploaded as a Markdown
// file.  Either way the body is rendered to HTML on write, and the excerpt,
// word count, and reading time are derived from the visible text.
// Uploaded documents are kept on disk and recorded in uploaded_files, a
// child table removed with the post.  Frontend reads of a single post
// count a view.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.
package notifications

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/acmlab/labsite/internal/auth"
	"github.com/acmlab/labsite/internal/component"
	"github.com/acmlab/labsite/internal/ordered"
	"github.com/acmlab/labsite/internal/resource"
	"github.com/acmlab/labsite/internal/respond"
	"github.com/acmlab/labsite/internal/upload"
)

// Upload categories.
const (
	DocCategory   = "notifications"
	ImageCategory = "notification-images"
	CardCategory  = "notification-cards"
)

var _ component.Component = (*Component)(nil)

// Component serves /api/notifications.
type Component struct{}

// Name returns the canonical component key.
func (c *Component) Name() string { return "notifications" }

// Migrations creates the posts table and its file child table.
func (c *Component) Migrations() []string { return []string{notificationsDDL, filesDDL} }

// Routes mounts the admin and frontend routers.
func (c *Component) Routes(r chi.Router, env *component.Env) {
	store := NewNotificationStore(env.DB)
	if env.Uploads != nil {
		store.OnCommit(removeSources(env.Uploads))
	}
	ctl := component.Controller(env, store,
		func() ordered.Patch { return &NotificationPatch{} },
		resource.Options{OnPublicGet: countView(env.DB)})

	h := &handler{store: store, uploads: env.Uploads}
	component.Mount(r, ctl, func(admin, _ chi.Router) {
		admin.Get("/{id:[0-9]+}/files", h.files)
		if env.Uploads != nil {
			admin.Post("/upload", h.uploadDocument)
			admin.Post("/upload_image", h.uploadImage(ImageCategory))
			admin.Post("/upload_card_image", h.uploadImage(CardCategory))
		}
	})
}

func init() { component.Register(&Component{}) }

type handler struct {
	store   *ordered.Store[Notification, *Notification]
	uploads *upload.Store
}

// uploadDocument creates a published post from a Markdown file.
func (h *handler) uploadDocument(w http.ResponseWriter, r *http.Request) {
	const op = "upload"
	fh, err := resource.FormFile(w, r, h.uploads.MaxBytes, "file")
	if err != nil {
		resource.WriteError(w, h.store.Resource(), op, err)
		return
	}
	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(fh.Filename), filepath.Ext(fh.Filename))
	}

	st, err := h.uploads.Save(DocCategory, "md_", fh, upload.DocExts)
	if err != nil {
		resource.WriteError(w, h.store.Resource(), op, err)
		return
	}
	body, err := readText(fh.Open)
	if err != nil {
		h.discard(st)
		resource.WriteError(w, h.store.Resource(), op, err)
		return
	}

	n := &Notification{
		Title:      title,
		Content:    body,
		Category:   r.FormValue("category"),
		Author:     author(r.Context(), r.FormValue("author")),
		SourceType: SourceUpload,
		SourceFile: st.URL,
		stored:     st,
	}
	out, err := h.store.Create(r.Context(), n)
	if err != nil {
		h.discard(st)
		resource.WriteError(w, h.store.Resource(), op, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]any{
		"success":      true,
		"notification": out,
		"file":         st,
	})
}

func (h *handler) uploadImage(category string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fh, err := resource.FormFile(w, r, h.uploads.MaxBytes, "file", "image")
		if err != nil {
			resource.WriteError(w, h.store.Resource(), "upload_image", err)
			return
		}
		st, err := h.uploads.SaveImage(category, fh)
		if err != nil {
			resource.WriteError(w, h.store.Resource(), "upload_image", err)
			return
		}
		respond.JSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"url":      st.URL,
			"filename": st.Filename,
		})
	}
}

func (h *handler) files(w http.ResponseWriter, r *http.Request) {
	id := resource.PathID(r)
	if _, err := h.store.Get(r.Context(), id); err != nil {
		resource.WriteError(w, h.store.Resource(), "files", err)
		return
	}
	out, err := filesFor(r.Context(), h.store.DB(), id)
	if err != nil {
		resource.WriteError(w, h.store.Resource(), "files",
			&ordered.StorageError{Resource: h.store.Resource(), Op: "files", Err: err})
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *handler) discard(st *upload.Stored) {
	if err := h.uploads.Remove(st.URL); err != nil {
		zap.S().Warnw("discard upload", "file", st.URL, "err", err)
	}
}

// removeSources deletes a post's files from disk once its rows are gone.
func removeSources(up *upload.Store) ordered.Hook {
	return func(_ context.Context, ev ordered.Event) {
		n, ok := ev.Record.(*Notification)
		if ev.Op != ordered.OpDelete || !ok {
			return
		}
		for _, ref := range []string{n.SourceFile, n.CardImage} {
			if ref == "" || !strings.HasPrefix(ref, up.BaseURL+"/") {
				continue
			}
			if err := up.Remove(ref); err != nil {
				zap.S().Warnw("remove notification file", "id", n.ID, "file", ref, "err", err)
			}
		}
	}
}

// author prefers the form value, then the caller's display name.
func author(ctx context.Context, form string) string {
	if s := strings.TrimSpace(form); s != "" {
		return s
	}
	if p, ok := auth.FromContext(ctx); ok {
		if p.DisplayName != "" {
			return p.DisplayName
		}
		return p.Username
	}
	return ""
}

func readText(open func() (multipart.File, error)) (string, error) {
	f, err := open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", ordered.Invalid("file", "must be UTF-8 text")
	}
	return strings.TrimPrefix(string(b), "\ufeff"), nil
}
