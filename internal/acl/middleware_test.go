package acl

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/acmlab/labsite/internal/auth"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestRequireRole(t *testing.T) {
	h := RequireRole(auth.RoleAdmin)(okHandler)

	cases := []struct {
		name   string
		req    func() *http.Request
		status int
	}{
		{
			name:   "anonymous api call",
			req:    func() *http.Request { return httptest.NewRequest(http.MethodPost, "/api/team", nil) },
			status: http.StatusUnauthorized,
		},
		{
			name: "anonymous page navigation",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodGet, "/admin/team?x=1", nil)
				r.Header.Set("Accept", "text/html,application/xhtml+xml")
				return r
			},
			status: http.StatusSeeOther,
		},
		{
			name: "wrong role",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodDelete, "/api/team/1", nil)
				return r.WithContext(auth.WithUser(r.Context(), auth.Principal{Username: "bob", Role: "editor"}))
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "admin",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodDelete, "/api/team/1", nil)
				return r.WithContext(auth.WithUser(r.Context(), auth.Principal{Username: "root", Role: auth.RoleAdmin}))
			},
			status: http.StatusNoContent,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, tc.req())
			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d (body %q)", rr.Code, tc.status, rr.Body.String())
			}
		})
	}
}

func TestUnauthorized_RedirectCarriesNext(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/admin/papers?page=2", nil)
	r.Header.Set("Sec-Fetch-Mode", "navigate")
	rr := httptest.NewRecorder()
	Unauthorized(rr, r)

	loc := rr.Header().Get("Location")
	if !strings.HasPrefix(loc, LoginPath+"?next=") || !strings.Contains(loc, "%2Fadmin%2Fpapers") {
		t.Fatalf("Location = %q", loc)
	}
}

func TestUnauthorized_JSONBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	r.Header.Set("Accept", "text/html")
	rr := httptest.NewRecorder()
	Unauthorized(rr, r)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"error":"unauthorized"}` {
		t.Fatalf("body = %s", got)
	}
}

func TestRequireRole_PanicsWithoutRoles(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	RequireRole()
}
