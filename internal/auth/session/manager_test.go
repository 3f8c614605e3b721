package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/imaginearsclub/backstage/internal/config"
	"github.com/stretchr/testify/require"
)

func TestManagerCookieNameOverride(t *testing.T) {
	require.Equal(t, DefaultCookieName, NewManager(config.Config{}).CookieName())
	require.Equal(t, "club_session", NewManager(config.Config{AuthCookieName: "club_session"}).CookieName())
	require.Equal(t, DefaultCookieName, NewManager(config.Config{AuthCookieName: "   "}).CookieName())
}

func TestManagerSetAndReadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager(config.Config{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	m.Set(c, "tok-1", time.Now().Add(time.Hour))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, DefaultCookieName, cookies[0].Name)
	require.Equal(t, "tok-1", cookies[0].Value)
	require.True(t, cookies[0].HttpOnly)
	require.Positive(t, cookies[0].MaxAge)

	r := httptest.NewRecorder()
	rc, _ := gin.CreateTestContext(r)
	rc.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	rc.Request.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "tok-1"})
	token, ok := m.ReadToken(rc)
	require.True(t, ok)
	require.Equal(t, "tok-1", token)
}

func TestReadTokenRejectsMissingOrEmptyCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager(config.Config{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := m.ReadToken(c)
	require.False(t, ok)

	c.Request.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: ""})
	_, ok = m.ReadToken(c)
	require.False(t, ok)
}

func TestClearExpiresCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager(config.Config{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	m.Clear(c)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Empty(t, cookies[0].Value)
	require.Negative(t, cookies[0].MaxAge)
}
