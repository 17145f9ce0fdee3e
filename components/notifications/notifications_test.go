package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"github.com/acmlab/labsite/internal/auth"
	"github.com/acmlab/labsite/internal/component"
	"github.com/acmlab/labsite/internal/database"
	"github.com/acmlab/labsite/internal/ordered"
	"github.com/acmlab/labsite/internal/upload"
)

type fixture struct {
	db     *sqlx.DB
	dir    string
	router chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenWithOptions(database.SQLite, ":memory:", 1, 1)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	c := &Component{}
	if err := database.Migrate(context.Background(), db, c.Migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	dir := t.TempDir()
	up, err := upload.New(dir, "/static/uploads", 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	r := chi.NewRouter()
	c.Routes(r, &component.Env{DB: db, Uploads: up})
	return &fixture{db: db, dir: dir, router: r}
}

func (f *fixture) do(req *http.Request, admin bool) *httptest.ResponseRecorder {
	if admin {
		req = req.WithContext(auth.WithUser(req.Context(),
			auth.Principal{Username: "admin", Role: auth.RoleAdmin, DisplayName: "管理员"}))
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) count(t *testing.T, q string, args ...any) int {
	t.Helper()
	var n int
	if err := f.db.Get(&n, f.db.Rebind(q), args...); err != nil {
		t.Fatal(err)
	}
	return n
}

func mdUpload(t *testing.T, filename, body string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(body))
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestCreateRendersMarkdown(t *testing.T) {
	s := NewNotificationStore(newFixture(t).db)
	n, err := s.Create(context.Background(), &Notification{
		Title:   "组会安排",
		Content: "# 每周组会\n\n时间为**周五**下午。",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(n.Content, "<h1") || !strings.Contains(n.Content, "<strong>周五</strong>") {
		t.Fatalf("content = %q", n.Content)
	}
	if !strings.HasPrefix(n.RawContent, "# 每周组会") || n.Excerpt == "" || n.WordCount == 0 || n.ReadingTime < 1 {
		t.Fatalf("derived fields = %+v", n)
	}
	if n.Category != DefaultCategory || n.Status != "published" || n.SourceType != SourceOnline || n.PublishDate == "" {
		t.Fatalf("defaults = %+v", n)
	}
}

func TestPatchContentRederives(t *testing.T) {
	s := NewNotificationStore(newFixture(t).db)
	ctx := context.Background()
	n, err := s.Create(ctx, &Notification{Title: "t", Content: "short", Excerpt: "hand written"})
	if err != nil {
		t.Fatal(err)
	}
	if n.Excerpt != "hand written" {
		t.Fatalf("excerpt = %q", n.Excerpt)
	}

	body := "## 新内容\n\n" + strings.Repeat("实验室", 200)
	up, err := s.Update(ctx, n.ID, &NotificationPatch{Content: &body})
	if err != nil {
		t.Fatal(err)
	}
	if up.RawContent != body || !strings.Contains(up.Content, "<h2") || up.Excerpt == "hand written" {
		t.Fatalf("updated = %+v", up)
	}
	if up.Title != "t" {
		t.Fatalf("title changed: %q", up.Title)
	}

	empty := "  "
	var ve *ordered.ValidationError
	if _, err := s.Update(ctx, n.ID, &NotificationPatch{Content: &empty}); !errors.As(err, &ve) {
		t.Fatalf("blank content err = %v", err)
	}
}

func TestLegacyPublishDateDoesNotBlockUpdates(t *testing.T) {
	f := newFixture(t)
	s := NewNotificationStore(f.db)
	ctx := context.Background()
	n, err := s.Create(ctx, &Notification{Title: "old post", Content: "body"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.db.Exec(f.db.Rebind(`UPDATE notifications SET publish_date = ? WHERE id = ?`),
		"2023-09-01 08:30:00", n.ID); err != nil {
		t.Fatal(err)
	}

	title := "renamed"
	up, err := s.Update(ctx, n.ID, &NotificationPatch{Title: &title})
	if err != nil {
		t.Fatalf("title update on legacy row: %v", err)
	}
	if up.Title != "renamed" || up.PublishDate != "2023-09-01 08:30:00" {
		t.Fatalf("updated = %+v", up)
	}

	bad := "01/09/2023"
	var ve *ordered.ValidationError
	if _, err := s.Update(ctx, n.ID, &NotificationPatch{PublishDate: &bad}); !errors.As(err, &ve) || ve.Field != "publish_date" {
		t.Fatalf("bad publish_date err = %v", err)
	}
	if got, _ := s.Get(ctx, n.ID); got.PublishDate != "2023-09-01 08:30:00" {
		t.Fatalf("rejected update was written: %q", got.PublishDate)
	}
}

func TestUploadThenDeleteRemovesFileRows(t *testing.T) {
	f := newFixture(t)
	body, ctype := mdUpload(t, "rules.md", "# 实验室守则\n\n- 按时参加组会", map[string]string{
		"title":    "实验室守则",
		"category": "规章制度",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/notifications/upload", body)
	req.Header.Set("Content-Type", ctype)
	rr := f.do(req, true)
	if rr.Code != http.StatusCreated {
		t.Fatalf("upload = %d: %s", rr.Code, rr.Body)
	}
	var got struct {
		Notification Notification  `json:"notification"`
		File         upload.Stored `json:"file"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	n := got.Notification
	if n.SourceType != SourceUpload || n.Author != "管理员" || n.Category != "规章制度" || n.SourceFile == "" {
		t.Fatalf("notification = %+v", n)
	}
	onDisk := filepath.Join(f.dir, DocCategory, got.File.Filename)
	if _, err := os.Stat(onDisk); err != nil {
		t.Fatalf("stored file: %v", err)
	}
	if c := f.count(t, "SELECT COUNT(*) FROM uploaded_files WHERE notification_id = ?", n.ID); c != 1 {
		t.Fatalf("uploaded_files rows = %d", c)
	}

	rr = f.do(httptest.NewRequest(http.MethodGet, "/api/notifications/"+itoa(n.ID)+"/files", nil), true)
	var files []File
	json.Unmarshal(rr.Body.Bytes(), &files)
	if len(files) != 1 || files[0].OriginalName != "rules.md" {
		t.Fatalf("files = %+v", files)
	}

	rr = f.do(httptest.NewRequest(http.MethodDelete, "/api/notifications/"+itoa(n.ID), nil), true)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete = %d: %s", rr.Code, rr.Body)
	}
	if c := f.count(t, "SELECT COUNT(*) FROM notifications WHERE id = ?", n.ID); c != 0 {
		t.Fatalf("notification rows = %d", c)
	}
	if c := f.count(t, "SELECT COUNT(*) FROM uploaded_files WHERE notification_id = ?", n.ID); c != 0 {
		t.Fatalf("uploaded_files rows after delete = %d", c)
	}
	if _, err := os.Stat(onDisk); !os.IsNotExist(err) {
		t.Fatalf("file still on disk: %v", err)
	}

	rr = f.do(httptest.NewRequest(http.MethodDelete, "/api/notifications/"+itoa(n.ID), nil), true)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete = %d", rr.Code)
	}
}

func TestUploadRejectsNonMarkdown(t *testing.T) {
	f := newFixture(t)
	body, ctype := mdUpload(t, "rules.pdf", "%PDF", map[string]string{"title": "x"})
	req := httptest.NewRequest(http.MethodPost, "/api/notifications/upload", body)
	req.Header.Set("Content-Type", ctype)
	if rr := f.do(req, true); rr.Code != http.StatusBadRequest {
		t.Fatalf("pdf upload = %d", rr.Code)
	}
	if c := f.count(t, "SELECT COUNT(*) FROM notifications"); c != 0 {
		t.Fatalf("notifications = %d", c)
	}
}

func TestPublicGetCountsViews(t *testing.T) {
	f := newFixture(t)
	s := NewNotificationStore(f.db)
	ctx := context.Background()
	pub, _ := s.Create(ctx, &Notification{Title: "a", Content: "x"})
	draft, _ := s.Create(ctx, &Notification{Title: "b", Content: "y", Status: "draft"})
	before, _ := s.Get(ctx, pub.ID)

	for range 3 {
		if rr := f.do(httptest.NewRequest(http.MethodGet, "/api/frontend/notifications/"+itoa(pub.ID), nil), false); rr.Code != http.StatusOK {
			t.Fatalf("public get = %d", rr.Code)
		}
	}
	if rr := f.do(httptest.NewRequest(http.MethodGet, "/api/frontend/notifications/"+itoa(draft.ID), nil), false); rr.Code != http.StatusNotFound {
		t.Fatalf("draft public get = %d", rr.Code)
	}

	got, _ := s.Get(ctx, pub.ID)
	if got.ViewCount != 3 || !got.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("views = %d, updated_at %v -> %v", got.ViewCount, before.UpdatedAt, got.UpdatedAt)
	}
	if d, _ := s.Get(ctx, draft.ID); d.ViewCount != 0 {
		t.Fatalf("draft views = %d", d.ViewCount)
	}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
