package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-that-is-32-chars-long"

// newTestTokenService creates a TokenService with a fixed secret so tests
// are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// =========================================================================
// CONSTRUCTION
// =========================================================================

func TestNewTokenService_RejectsShortSecret(t *testing.T) {
	if _, err := NewTokenService("short", time.Hour); err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 32 chars")
	}
}

func TestNewTokenService_RejectsNonPositiveTTL(t *testing.T) {
	if _, err := NewTokenService(testSecret, 0); err == nil {
		t.Fatal("NewTokenService() should reject a zero ttl")
	}
}

// =========================================================================
// ISSUE / VALIDATE
// =========================================================================

func TestIssue_LooksLikeJWT(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Issue()
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if got := strings.Count(token, "."); got != 2 {
		t.Errorf("Issue() token has %d dots, want 2", got)
	}
}

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Issue()
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	loggedIn, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !loggedIn {
		t.Error("Validate() isLoggedIn = false, want true")
	}
}

func TestValidate_Expired(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.issue(time.Now().Add(-2*time.Hour), time.Hour)
	if err != nil {
		t.Fatalf("issue() error = %v", err)
	}

	_, err = ts.Validate(token)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("Validate() error = %v, want ErrSessionExpired", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	ts := newTestTokenService(t)
	good, _ := ts.Issue()

	other, _ := NewTokenService("another-secret-that-is-32-chars!!", time.Hour)
	foreign, _ := other.Issue()

	// A token with the right secret but another issuer.
	wrongIssuer, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		IsLoggedIn: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))

	// A token with no expiry.
	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		IsLoggedIn:       true,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: tokenIssuer},
	}).SignedString([]byte(testSecret))

	// alg=none must never be accepted.
	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, sessionClaims{
		IsLoggedIn: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"tampered signature", good[:len(good)-3] + "xxx"},
		{"different secret", foreign},
		{"wrong issuer", wrongIssuer},
		{"no expiry", noExpiry},
		{"alg none", unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ts.Validate(tt.token); err == nil {
				t.Fatalf("Validate(%s) should fail", tt.name)
			}
		})
	}
}
