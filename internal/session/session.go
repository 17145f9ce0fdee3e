// internal/session/session.go
//
// Signed admin session cookie.
//
// Context
//   After a successful login the server issues a cookie named “lab_session”
//   carrying the username, role, display name, and issue time.  The value is
//   HMAC-signed and AES-encrypted by gorilla/securecookie with keys derived
//   from the configured secret, so clients can neither read nor forge it.
//   Sessions expire TTL after issue (one day by default).
//
// Style
//   Two-space sentence spacing, Oxford comma, terse inline notes.
//
//------------------------------------------------------------------------------

package session

import (
	"crypto/sha256"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const cookieName = "lab_session"

// Data is the payload stored in the cookie.
type Data struct {
	Username    string `json:"u"`
	Role        string `json:"r"`
	DisplayName string `json:"d,omitempty"`
	IssuedAt    int64  `json:"iat"`
}

// Manager encodes and decodes session cookies.
type Manager struct {
	sc     *securecookie.SecureCookie
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// New derives the signing and encryption keys from secret.
func New(secret string, ttl time.Duration, secure bool) *Manager {
	hashKey := sha256.Sum256([]byte("lab-session-hash:" + secret))
	blockKey := sha256.Sum256([]byte("lab-session-block:" + secret))

	sc := securecookie.New(hashKey[:], blockKey[:])
	sc.MaxAge(int(ttl.Seconds()))
	sc.SetSerializer(securecookie.JSONEncoder{})

	return &Manager{sc: sc, ttl: ttl, secure: secure, now: time.Now}
}

// Login issues a fresh cookie for d.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, d Data) error {
	d.IssuedAt = m.now().Unix()
	val, err := m.sc.Encode(cookieName, d)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		Expires:  m.now().Add(m.ttl),
		MaxAge:   int(m.ttl.Seconds()),
	})
	return nil
}

// Touch re-issues the cookie once half the TTL has passed, so an active
// admin is not signed out mid-session.
func (m *Manager) Touch(w http.ResponseWriter, r *http.Request, d Data) {
	if m.now().Before(time.Unix(d.IssuedAt, 0).Add(m.ttl / 2)) {
		return
	}
	_ = m.Login(w, r, d)
}

// Logout clears the session cookie.
func (m *Manager) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Current returns the session carried by r.  ok is false when the cookie
// is missing, tampered with, or older than the TTL.
func (m *Manager) Current(r *http.Request) (d Data, ok bool) {
	c, err := r.Cookie(cookieName)
	if err != nil || c.Value == "" {
		return Data{}, false
	}
	if err := m.sc.Decode(cookieName, c.Value, &d); err != nil {
		return Data{}, false
	}
	if d.Username == "" || m.now().After(time.Unix(d.IssuedAt, 0).Add(m.ttl)) {
		return Data{}, false
	}
	return d, true
}
