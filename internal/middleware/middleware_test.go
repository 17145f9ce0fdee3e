package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/acmlab/labsite/internal/requestinfo"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
	w.Write([]byte("short and stout"))
})

func TestForceHTTPS(t *testing.T) {
	for _, tc := range []struct {
		name     string
		enabled  bool
		host     string
		tls      bool
		proto    string
		wantCode int
	}{
		{"plain http redirected", true, "lab.example.edu", false, "", http.StatusPermanentRedirect},
		{"tls passes", true, "lab.example.edu", true, "", http.StatusTeapot},
		{"proxy https passes", true, "lab.example.edu", false, "https", http.StatusTeapot},
		{"localhost passes", true, "localhost:8080", false, "", http.StatusTeapot},
		{"loopback ip passes", true, "127.0.0.1:8080", false, "", http.StatusTeapot},
		{"disabled", false, "lab.example.edu", false, "", http.StatusTeapot},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://"+tc.host+"/api/frontend/papers?limit=3", nil)
			if tc.tls {
				req.TLS = &tls.ConnectionState{}
			}
			if tc.proto != "" {
				req.Header.Set("X-Forwarded-Proto", tc.proto)
			}
			rr := httptest.NewRecorder()
			ForceHTTPS(tc.enabled)(ok).ServeHTTP(rr, req)
			if rr.Code != tc.wantCode {
				t.Fatalf("code = %d, want %d", rr.Code, tc.wantCode)
			}
			if tc.wantCode == http.StatusPermanentRedirect {
				if loc := rr.Header().Get("Location"); loc != "https://lab.example.edu/api/frontend/papers?limit=3" {
					t.Fatalf("Location = %q", loc)
				}
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	Security(ok).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	for _, h := range []string{"Content-Security-Policy", "X-Frame-Options", "X-Content-Type-Options",
		"Referrer-Policy", "Permissions-Policy"} {
		if rr.Header().Get(h) == "" {
			t.Errorf("missing %s", h)
		}
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS sent over plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	Security(ok).ServeHTTP(rr, req)
	if rr.Header().Get("Strict-Transport-Security") == "" {
		t.Error("HSTS missing over TLS")
	}
}

func TestAccessLogFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	req := httptest.NewRequest(http.MethodGet, "/api/frontend/team", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	req.RemoteAddr = "192.0.2.10:5555"
	rr := httptest.NewRecorder()
	requestinfo.Enrich(AccessLog(ok)).ServeHTTP(rr, req)

	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	f := entries[0].ContextMap()
	if f["status"] != int64(http.StatusTeapot) || f["bytes"] != int64(len("short and stout")) {
		t.Fatalf("fields = %v", f)
	}
	if f["ip"] != "192.0.2.10" || f["bot"] != true || f["path"] != "/api/frontend/team" {
		t.Fatalf("client fields = %v", f)
	}
}
