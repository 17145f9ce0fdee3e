package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/acmlab/labsite/internal/auth"
	"github.com/acmlab/labsite/internal/component"
	"github.com/acmlab/labsite/internal/database"
	"github.com/acmlab/labsite/internal/session"
	"github.com/acmlab/labsite/internal/upload"
	"github.com/acmlab/labsite/internal/users"
)

type fixture struct {
	h     http.Handler
	users *users.Store
	dir   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users.Cost = bcrypt.MinCost

	db, err := database.OpenWithOptions(database.SQLite, ":memory:", 1, 1)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	c := &Component{}
	if err := database.Migrate(context.Background(), db, c.Migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	us := users.NewStore(db)
	if err := us.EnsureAdmin(context.Background(), "admin", "correct-horse", "管理员"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	dir := t.TempDir()
	up, err := upload.New(dir, "/static/uploads", 1<<20)
	if err != nil {
		t.Fatal(err)
	}

	sessions := session.New(strings.Repeat("k", 32), time.Hour, false)
	r := chi.NewRouter()
	r.Use(auth.Load(sessions))
	c.Routes(r, &component.Env{DB: db, Sessions: sessions, Users: us, Uploads: up})
	return &fixture{h: r, users: us, dir: dir}
}

func newRouter(t *testing.T) http.Handler { return newFixture(t).h }

// login signs in over the JSON endpoint and returns the session cookie.
func (f *fixture) login(t *testing.T, username, password string) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"`+username+`","password":"`+password+`"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("login = %d %s", rr.Code, rr.Body.String())
	}
	return lastCookie(t, rr)
}

func (f *fixture) send(req *http.Request, c *http.Cookie) *httptest.ResponseRecorder {
	if c != nil {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	f.h.ServeHTTP(rr, req)
	return rr
}

func lastCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	cs := rr.Result().Cookies()
	if len(cs) == 0 {
		t.Fatalf("no session cookie set")
	}
	return cs[len(cs)-1]
}

func TestJSONLoginThenMe(t *testing.T) {
	h := newRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"admin","password":"correct-horse"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("login = %d %s", rr.Code, rr.Body.String())
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %+v", cookies)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"username":"admin"`) {
		t.Fatalf("me = %d %s", rr.Code, rr.Body.String())
	}
}

func TestJSONLoginRejected(t *testing.T) {
	h := newRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"admin","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized || len(rr.Result().Cookies()) != 0 {
		t.Fatalf("login = %d, cookies %d", rr.Code, len(rr.Result().Cookies()))
	}
}

func TestFormLoginRedirects(t *testing.T) {
	h := newRouter(t)

	post := func(form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	rr := post(url.Values{"username": {"admin"}, "password": {"correct-horse"}, "next": {"/admin/papers"}})
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/admin/papers" {
		t.Fatalf("ok login = %d → %q", rr.Code, rr.Header().Get("Location"))
	}

	rr = post(url.Values{"username": {"admin"}, "password": {"correct-horse"}, "next": {"//evil.example"}})
	if rr.Header().Get("Location") != "/admin" {
		t.Fatalf("offsite next not dropped: %q", rr.Header().Get("Location"))
	}

	rr = post(url.Values{"username": {"admin"}, "password": {"nope"}})
	if rr.Code != http.StatusSeeOther || !strings.Contains(rr.Header().Get("Location"), "error=1") {
		t.Fatalf("bad login = %d → %q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestMeRequiresSession(t *testing.T) {
	h := newRouter(t)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("me = %d", rr.Code)
	}
}

func TestProfileRename(t *testing.T) {
	f := newFixture(t)
	if _, err := f.users.Create(context.Background(), "li", "another-pass", "admin", "李老师"); err != nil {
		t.Fatal(err)
	}
	cookie := f.login(t, "admin", "correct-horse")

	put := func(body string, c *http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/auth/profile", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return f.send(req, c)
	}

	if rr := put(`{"username":"li"}`, cookie); rr.Code != http.StatusBadRequest {
		t.Fatalf("taken username = %d %s", rr.Code, rr.Body.String())
	}

	rr := put(`{"username":" wang ","display_name":"王老师"}`, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("rename = %d %s", rr.Code, rr.Body.String())
	}
	renamed := lastCookie(t, rr)

	rr = f.send(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), renamed)
	var me auth.Principal
	if err := json.Unmarshal(rr.Body.Bytes(), &me); err != nil {
		t.Fatal(err)
	}
	if me.Username != "wang" || me.DisplayName != "王老师" {
		t.Fatalf("me after rename = %+v", me)
	}

	rr = f.send(httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil), renamed)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"username":"wang"`) {
		t.Fatalf("profile = %d %s", rr.Code, rr.Body.String())
	}
	if rr := f.send(httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil), cookie); rr.Code != http.StatusNotFound {
		t.Fatalf("stale session profile = %d", rr.Code)
	}
	f.login(t, "wang", "correct-horse")
}

func TestAvatarUpload(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "admin", "correct-horse")

	post := func(filename string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("avatar", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte("\x89PNG\r\n"))
		mw.Close()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/avatar", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return f.send(req, cookie)
	}
	avatarURL := func(rr *httptest.ResponseRecorder) string {
		t.Helper()
		var out struct {
			AvatarURL string `json:"avatar_url"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			t.Fatal(err)
		}
		return out.AvatarURL
	}
	onDisk := func(u string) string {
		return filepath.Join(f.dir, AvatarCategory, filepath.Base(u))
	}

	rr := post("face.png")
	if rr.Code != http.StatusOK {
		t.Fatalf("avatar = %d %s", rr.Code, rr.Body.String())
	}
	first := avatarURL(rr)
	if !strings.HasPrefix(first, "/static/uploads/avatars/img_") || !strings.HasSuffix(first, ".png") {
		t.Fatalf("avatar url = %q", first)
	}
	if _, err := os.Stat(onDisk(first)); err != nil {
		t.Fatalf("stored avatar: %v", err)
	}

	rr = f.send(httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil), cookie)
	if got := avatarURL(rr); got != first {
		t.Fatalf("profile avatar_url = %q, want %q", got, first)
	}

	second := avatarURL(post("face2.jpg"))
	if second == first || !strings.HasSuffix(second, ".jpg") {
		t.Fatalf("second avatar = %q", second)
	}
	if _, err := os.Stat(onDisk(first)); !os.IsNotExist(err) {
		t.Fatalf("replaced avatar still on disk: %v", err)
	}

	if rr := post("notes.txt"); rr.Code != http.StatusBadRequest {
		t.Fatalf("txt avatar = %d", rr.Code)
	}
}
