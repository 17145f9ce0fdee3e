package debug

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/acmlab/labsite/internal/auth"
	"github.com/acmlab/labsite/internal/requestinfo"
)

func router() chi.Router {
	r := chi.NewRouter()
	r.Use(requestinfo.Enrich)
	(&Component{}).Routes(r, nil)
	return r
}

func TestEchoRequiresAdmin(t *testing.T) {
	rr := httptest.NewRecorder()
	router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/debug/request", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous = %d", rr.Code)
	}
}

func TestEchoReportsForwardedClient(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/debug/request", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36")
	req = req.WithContext(auth.WithUser(req.Context(), auth.Principal{Username: "admin", Role: auth.RoleAdmin}))

	rr := httptest.NewRecorder()
	router().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("admin = %d: %s", rr.Code, rr.Body)
	}
	var body struct {
		IP       string         `json:"ip"`
		User     string         `json:"user"`
		UAParsed requestinfo.UA `json:"ua_parsed"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.IP != "203.0.113.7" || body.User != "admin" || body.UAParsed.Browser == "" {
		t.Fatalf("body = %+v", body)
	}
}
