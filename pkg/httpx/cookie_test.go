package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/adminauth/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestCookieJar(t *testing.T) {
	jar := httpx.NewCookieJar([]byte("cookie-secret"), "refresh_token", "/auth", "", true, 7*24*time.Hour)

	rec := httptest.NewRecorder()
	jar.Set(rec, "opaque-refresh-value")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	require.Equal(t, "refresh_token", c.Name)
	require.Equal(t, "/auth", c.Path)
	require.True(t, c.HttpOnly)
	require.True(t, c.Secure)
	require.Equal(t, http.SameSiteStrictMode, c.SameSite)
	require.Equal(t, 7*24*60*60, c.MaxAge)
	require.True(t, strings.HasPrefix(c.Value, "opaque-refresh-value."))

	t.Run("round trip", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		req.AddCookie(c)
		v, err := jar.Get(req)
		require.NoError(t, err)
		require.Equal(t, "opaque-refresh-value", v)
	})

	t.Run("forged value", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "other-value." + strings.SplitN(c.Value, ".", 2)[1]})
		_, err := jar.Get(req)
		require.ErrorIs(t, err, httpx.ErrBadCookie)
	})

	t.Run("other key", func(t *testing.T) {
		other := httpx.NewCookieJar([]byte("different"), "refresh_token", "/auth", "", true, time.Hour)
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		req.AddCookie(c)
		_, err := other.Get(req)
		require.ErrorIs(t, err, httpx.ErrBadCookie)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := jar.Get(httptest.NewRequest(http.MethodPost, "/auth/refresh", nil))
		require.ErrorIs(t, err, httpx.ErrBadCookie)
	})

	t.Run("clear", func(t *testing.T) {
		rec := httptest.NewRecorder()
		jar.Clear(rec)
		cleared := rec.Result().Cookies()
		require.Len(t, cleared, 1)
		require.Equal(t, "", cleared[0].Value)
		require.Less(t, cleared[0].MaxAge, 0)
	})
}
