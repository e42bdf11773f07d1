package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

// SessionCookieName is the cookie holding the sealed site session.
const SessionCookieName = "access-git-session"

// Session is what the browser's session cookie asserts.
type Session struct {
	IsLoggedIn bool `json:"isLoggedIn"`
}

// SessionStore reads and writes the site session cookie.
//
// SEALING:
// The signed JWT from TokenService is encoded with securecookie, which adds
// its own HMAC and encrypts the value with AES. The browser sees an opaque
// blob; neither the claims nor the expiry are readable client-side.
type SessionStore struct {
	tokens *TokenService
	codec  *securecookie.SecureCookie
	ttl    time.Duration
	secure bool
}

// NewSessionStore builds a store. hashKey authenticates the cookie and
// blockKey (16, 24 or 32 bytes) encrypts it.
func NewSessionStore(tokens *TokenService, hashKey, blockKey []byte, ttl time.Duration, secure bool) (*SessionStore, error) {
	switch len(blockKey) {
	case 16, 24, 32:
	default:
		return nil, errors.New("auth: session encryption key must be 16, 24 or 32 bytes")
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(int(ttl.Seconds()))

	return &SessionStore{tokens: tokens, codec: codec, ttl: ttl, secure: secure}, nil
}

// Load returns the session carried by r. A missing, tampered or expired
// cookie is an anonymous session, never an error the caller must handle.
func (s *SessionStore) Load(r *http.Request) Session {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return Session{}
	}

	var token string
	if err := s.codec.Decode(SessionCookieName, cookie.Value, &token); err != nil {
		return Session{}
	}

	loggedIn, err := s.tokens.Validate(token)
	if err != nil {
		return Session{}
	}
	return Session{IsLoggedIn: loggedIn}
}

// Save issues a fresh logged-in session cookie.
func (s *SessionStore) Save(w http.ResponseWriter) error {
	token, err := s.tokens.Issue()
	if err != nil {
		return err
	}

	encoded, err := s.codec.Encode(SessionCookieName, token)
	if err != nil {
		return fmt.Errorf("auth: sealing session cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (s *SessionStore) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
