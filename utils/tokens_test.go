package utils

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func setTokenEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ACCESS_TOKEN_SECRET", "access-secret")
	t.Setenv("REFRESH_TOKEN_SECRET", "refresh-secret")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "15")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "7")
	t.Setenv("RESET_TOKEN_TTL_MINUTES", "5")
}

func TestAccessTokenRoundTrip(t *testing.T) {
	setTokenEnv(t)

	token, err := GenerateAccessToken("user-1", "a@b.com", "alice")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "a@b.com" || claims.Username != "alice" {
		t.Errorf("claims = %+v, want user-1/a@b.com/alice", claims)
	}
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	setTokenEnv(t)
	token, err := GenerateAccessToken("user-1", "a@b.com", "alice")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	t.Setenv("ACCESS_TOKEN_SECRET", "different-secret")
	if _, err := ValidateAccessToken(token); err == nil {
		t.Error("ValidateAccessToken() with wrong secret should fail")
	}
}

func TestValidateAccessToken_Expired(t *testing.T) {
	setTokenEnv(t)

	claims := AccessTokenClaims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("access-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	_, err = ValidateAccessToken(token)
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("ValidateAccessToken() error = %v, want jwt.ErrTokenExpired", err)
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	setTokenEnv(t)

	token, err := GenerateRefreshToken("user-7")
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}
	claims, err := ValidateRefreshToken(token)
	if err != nil {
		t.Fatalf("ValidateRefreshToken() error = %v", err)
	}
	if claims.UserID != "user-7" {
		t.Errorf("UserID = %q, want user-7", claims.UserID)
	}
}

func TestHashRefreshToken_Deterministic(t *testing.T) {
	setTokenEnv(t)

	h1 := HashRefreshToken("raw-token")
	h2 := HashRefreshToken("raw-token")
	if h1 != h2 {
		t.Error("HashRefreshToken() should be deterministic for a fixed secret")
	}
	if h1 == HashRefreshToken("other-token") {
		t.Error("HashRefreshToken() should differ for different tokens")
	}

	t.Setenv("REFRESH_TOKEN_SECRET", "another-secret")
	if h1 == HashRefreshToken("raw-token") {
		t.Error("HashRefreshToken() should differ under a different key")
	}
}

func TestGenerateResetToken(t *testing.T) {
	setTokenEnv(t)

	composite, hash, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("GenerateResetToken() error = %v", err)
	}
	if composite == "" || hash == "" {
		t.Fatal("GenerateResetToken() returned empty composite or hash")
	}

	// The composite must recompute to the persisted hash.
	got, err := ResetTokenHash(composite)
	if err != nil {
		t.Fatalf("ResetTokenHash() error = %v", err)
	}
	if got != hash {
		t.Errorf("ResetTokenHash() = %q, want %q", got, hash)
	}

	// The router may hand us the already-decoded path segment.
	decoded, err := url.PathUnescape(composite)
	if err != nil {
		t.Fatalf("PathUnescape: %v", err)
	}
	got, err = ResetTokenHash(decoded)
	if err != nil {
		t.Fatalf("ResetTokenHash(decoded) error = %v", err)
	}
	if got != hash {
		t.Errorf("ResetTokenHash(decoded) = %q, want %q", got, hash)
	}
}

func TestGenerateResetToken_Unique(t *testing.T) {
	setTokenEnv(t)

	c1, h1, _ := GenerateResetToken()
	c2, h2, _ := GenerateResetToken()
	if c1 == c2 || h1 == h2 {
		t.Error("GenerateResetToken() should produce unique tokens")
	}
}

func TestResetTokenHash_Malformed(t *testing.T) {
	tests := []struct {
		name      string
		composite string
	}{
		{"empty", ""},
		{"no separator", "deadbeef"},
		{"empty secret", "deadbeef+"},
		{"empty value", "+deadbeef"},
		{"bad escape", "%zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ResetTokenHash(tt.composite); !errors.Is(err, ErrInvalidResetToken) {
				t.Errorf("ResetTokenHash(%q) error = %v, want ErrInvalidResetToken", tt.composite, err)
			}
		})
	}
}

func TestResetTokenHash_DifferentSecretDifferentHash(t *testing.T) {
	// Same public value under two secrets must not collide; the secret is
	// the HMAC key.
	h1, err := ResetTokenHash("deadbeef+secret1")
	if err != nil {
		t.Fatalf("ResetTokenHash() error = %v", err)
	}
	h2, err := ResetTokenHash("deadbeef+secret2")
	if err != nil {
		t.Fatalf("ResetTokenHash() error = %v", err)
	}
	if h1 == h2 {
		t.Error("hashes under different secrets should differ")
	}
}

func TestTTLDefaults(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "")
	t.Setenv("RESET_TOKEN_TTL_MINUTES", "")

	if got := AccessTTL(); got != 15*time.Minute {
		t.Errorf("AccessTTL() default = %v, want 15m", got)
	}
	if got := RefreshTTL(); got != 7*24*time.Hour {
		t.Errorf("RefreshTTL() default = %v, want 168h", got)
	}
	if got := ResetTTL(); got != 5*time.Minute {
		t.Errorf("ResetTTL() default = %v, want 5m", got)
	}
}

func TestCompositeSeparatorSurvivesEscaping(t *testing.T) {
	setTokenEnv(t)

	composite, _, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("GenerateResetToken() error = %v", err)
	}
	if strings.Contains(composite, "+") {
		t.Error("escaped composite should not contain a raw separator")
	}
	if !strings.Contains(composite, "%2B") {
		t.Error("escaped composite should carry the encoded separator")
	}
}
