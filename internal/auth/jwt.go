// Package auth holds everything that decides who may use the dashboard:
// the site password (bcrypt), the signed login session, the operator's GitHub
// credential carried on each request, and the optional GitHub OAuth sign-in.
//
// TWO INDEPENDENT GATES:
//  1. The site session. Someone typed the shared site password, so the
//     browser holds a sealed session cookie saying {isLoggedIn: true}.
//     Dashboard pages require it.
//  2. The GitHub credential. Every /api call carries the operator's token
//     (Authorization header or github_pat cookie). The server never stores
//     it; it only forwards it to GitHub for that one request.
//
// SESSION TOKEN FORMAT:
// The session payload is a JWT signed with HS256, then encrypted into the
// cookie by securecookie (see session.go):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Payload: {"isLoggedIn":true,"iss":"access-git","exp":...,"iat":...}
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "access-git"

// ErrSessionExpired is returned by Validate for a correctly signed token past its expiry.
var ErrSessionExpired = errors.New("auth: session expired")

// TokenService signs and verifies session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. The secret must be at least 32
// characters; ttl is how long a login lasts.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 32 {
		return nil, errors.New("auth: session secret must be at least 32 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: session ttl must be positive")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// sessionClaims is the JWT payload.
type sessionClaims struct {
	IsLoggedIn bool `json:"isLoggedIn"`
	jwt.RegisteredClaims
}

// Issue signs a logged-in session token valid for the configured ttl.
func (s *TokenService) Issue() (string, error) {
	return s.issue(time.Now(), s.ttl)
}

func (s *TokenService) issue(now time.Time, ttl time.Duration) (string, error) {
	c := sessionClaims{
		IsLoggedIn: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing session: %w", err)
	}
	return signed, nil
}

// Validate verifies a session token and reports whether it says logged in.
//
// ALGORITHM CONFUSION:
// WithValidMethods pins HS256 so a token claiming "alg":"none" (or an
// asymmetric algorithm keyed with our secret) is rejected before the
// signature is even looked at.
func (s *TokenService) Validate(tokenStr string) (bool, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&sessionClaims{},
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return false, ErrSessionExpired
		}
		return false, fmt.Errorf("auth: invalid session: %w", err)
	}

	c, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return false, errors.New("auth: invalid session claims")
	}
	return c.IsLoggedIn, nil
}
