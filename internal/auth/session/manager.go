// Package session owns the browser session cookie. Tokens are issued
// and verified by the auth service; the manager only moves them in and
// out of the cookie jar.
package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/imaginearsclub/backstage/internal/config"
)

// DefaultCookieName is used unless AUTH_COOKIE_NAME overrides it.
const DefaultCookieName = "_sid"

const cookiePath = "/"

// Manager reads, sets and clears the session cookie. The cookie is
// host-only, HttpOnly and SameSite=Lax; Secure follows configuration so
// local development over plain HTTP still works.
type Manager struct {
	name   string
	secure bool
}

func NewManager(cfg config.Config) *Manager {
	name := strings.TrimSpace(cfg.AuthCookieName)
	if name == "" {
		name = DefaultCookieName
	}
	return &Manager{name: name, secure: cfg.AuthCookieSecure}
}

func (m *Manager) CookieName() string { return m.name }

// ReadToken returns the session token, or false when the cookie is
// missing or blank.
func (m *Manager) ReadToken(c *gin.Context) (string, bool) {
	raw, err := c.Cookie(m.name)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(raw)
	return token, token != ""
}

// Set writes the cookie with a max-age matching the session expiry.
func (m *Manager) Set(c *gin.Context, token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl < 0 {
		ttl = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.name, token, int(ttl.Seconds()), cookiePath, "", m.secure, true)
}

// Clear expires the cookie immediately.
func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.name, "", -1, cookiePath, "", m.secure, true)
}
