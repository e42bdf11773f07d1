package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionStore(t *testing.T) *SessionStore {
	t.Helper()
	store, err := NewSessionStore(newTestTokenService(t), []byte(testSecret), []byte("0123456789abcdef"), time.Hour, false)
	require.NoError(t, err)
	return store
}

// cookieFrom returns the Set-Cookie named name from a recorded response.
func cookieFrom(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("response has no %s cookie", name)
	return nil
}

func TestNewSessionStore_RejectsBadKey(t *testing.T) {
	_, err := NewSessionStore(newTestTokenService(t), []byte(testSecret), []byte("short"), time.Hour, false)
	assert.Error(t, err)
}

func TestSessionStore_SaveThenLoad(t *testing.T) {
	store := newTestSessionStore(t)

	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(rec))

	cookie := cookieFrom(t, rec, SessionCookieName)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 3600, cookie.MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	assert.True(t, store.Load(req).IsLoggedIn)
}

func TestSessionStore_LoadAnonymous(t *testing.T) {
	store := newTestSessionStore(t)

	t.Run("no cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.False(t, store.Load(req).IsLoggedIn)
	})

	t.Run("tampered cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "forged"})
		assert.False(t, store.Load(req).IsLoggedIn)
	})

	t.Run("cookie sealed with another key", func(t *testing.T) {
		other, err := NewSessionStore(newTestTokenService(t), []byte("another-hash-key-of-32-characters"), []byte("fedcba9876543210"), time.Hour, false)
		require.NoError(t, err)
		rec := httptest.NewRecorder()
		require.NoError(t, other.Save(rec))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookieFrom(t, rec, SessionCookieName))
		assert.False(t, store.Load(req).IsLoggedIn)
	})
}

func TestSessionStore_Clear(t *testing.T) {
	store := newTestSessionStore(t)

	rec := httptest.NewRecorder()
	store.Clear(rec)

	cookie := cookieFrom(t, rec, SessionCookieName)
	assert.Empty(t, cookie.Value)
	assert.Less(t, cookie.MaxAge, 0)
}
