package awards

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/acmlab/labsite/internal/auth"
	"github.com/acmlab/labsite/internal/component"
	"github.com/acmlab/labsite/internal/database"
	"github.com/acmlab/labsite/internal/upload"
)

func newRouter(t *testing.T) (chi.Router, string) {
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
	return r, dir
}

func asAdmin(req *http.Request) *http.Request {
	return req.WithContext(auth.WithUser(req.Context(), auth.Principal{Username: "admin", Role: auth.RoleAdmin}))
}

func send(r chi.Router, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestAwardRequiredFields(t *testing.T) {
	r, _ := newRouter(t)
	for _, tc := range []struct {
		body string
		want int
	}{
		{`{"title":"ICPC Asia","competition_name":"ICPC","award_level":"金奖"}`, http.StatusCreated},
		{`{"title":"ICPC Asia","competition_name":"ICPC"}`, http.StatusBadRequest},
		{`{"title":" ","competition_name":"ICPC","award_level":"银奖"}`, http.StatusBadRequest},
		{`{"title":"x","competition_name":"y","award_level":"z","status":"gone"}`, http.StatusBadRequest},
	} {
		req := asAdmin(httptest.NewRequest(http.MethodPost, "/api/algorithm-awards", strings.NewReader(tc.body)))
		req.Header.Set("Content-Type", "application/json")
		if rr := send(r, req); rr.Code != tc.want {
			t.Fatalf("POST %s = %d (%s), want %d", tc.body, rr.Code, rr.Body, tc.want)
		}
	}
}

func TestOverviewHiddenFromFrontend(t *testing.T) {
	r, _ := newRouter(t)
	for _, body := range []string{
		`{"name":"国家级奖项","value":12}`,
		`{"name":"草稿","value":1,"status":"hidden"}`,
	} {
		req := asAdmin(httptest.NewRequest(http.MethodPost, "/api/project-overview", strings.NewReader(body)))
		if rr := send(r, req); rr.Code != http.StatusCreated {
			t.Fatalf("create = %d: %s", rr.Code, rr.Body)
		}
	}

	rr := send(r, httptest.NewRequest(http.MethodGet, "/api/frontend/project-overview", nil))
	var got []Overview
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Value != 12 {
		t.Fatalf("public overview = %+v", got)
	}
}

func TestAwardImageUpload(t *testing.T) {
	r, dir := newRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("image", "cert.PNG")
	fw.Write([]byte("\x89PNG fake"))
	mw.Close()

	req := asAdmin(httptest.NewRequest(http.MethodPost, "/api/algorithm-awards/upload", &buf))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := send(r, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("upload = %d: %s", rr.Code, rr.Body)
	}
	var body struct {
		URL      string `json:"url"`
		Filename string `json:"filename"`
	}
	json.Unmarshal(rr.Body.Bytes(), &body)
	if !strings.HasPrefix(body.URL, "/static/uploads/awards/img_") || !strings.HasSuffix(body.Filename, ".png") {
		t.Fatalf("upload body = %+v", body)
	}
	if _, err := os.Stat(filepath.Join(dir, "awards", body.Filename)); err != nil {
		t.Fatalf("stored file: %v", err)
	}

	buf.Reset()
	mw = multipart.NewWriter(&buf)
	fw, _ = mw.CreateFormFile("file", "notes.txt")
	fw.Write([]byte("nope"))
	mw.Close()
	req = asAdmin(httptest.NewRequest(http.MethodPost, "/api/algorithm-awards/upload", &buf))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if rr := send(r, req); rr.Code != http.StatusBadRequest {
		t.Fatalf("txt upload = %d", rr.Code)
	}
}
