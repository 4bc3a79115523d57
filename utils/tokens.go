package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidResetToken is the one failure a malformed, unknown or expired
// reset token produces, so callers cannot distinguish the cases.
var ErrInvalidResetToken = errors.New("reset token is invalid or has expired")

const resetTokenSeparator = "+"

type AccessTokenClaims struct {
	UserID   string `json:"_id"`
	Email    string `json:"_email"`
	Username string `json:"_username"`
	jwt.RegisteredClaims
}

type RefreshTokenClaims struct {
	UserID string `json:"_id"`
	jwt.RegisteredClaims
}

func GenerateAccessToken(userID, email, username string) (string, error) {
	claims := AccessTokenClaims{
		UserID:   userID,
		Email:    email,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(AccessTTL())),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("ACCESS_TOKEN_SECRET")))
}

// GenerateRefreshToken returns the raw refresh token; the caller is
// responsible for appending HashRefreshToken(raw) to the user's ledger.
func GenerateRefreshToken(userID string) (string, error) {
	claims := RefreshTokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(RefreshTTL())),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("REFRESH_TOKEN_SECRET")))
}

func ValidateAccessToken(tokenStr string) (*AccessTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccessTokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("ACCESS_TOKEN_SECRET")), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*AccessTokenClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenMalformed
	}
	return claims, nil
}

func ValidateRefreshToken(tokenStr string) (*RefreshTokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &RefreshTokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("REFRESH_TOKEN_SECRET")), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*RefreshTokenClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenMalformed
	}
	return claims, nil
}

// HashRefreshToken computes the keyed hash stored in the user's token
// ledger. A database leak of the ledger never exposes usable tokens.
func HashRefreshToken(raw string) string {
	mac := hmac.New(sha256.New, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// GenerateResetToken builds a composite reset token: a random public value
// plus a per-token secret that acts as the HMAC key. Only the hash is
// persisted; the composite travels once, in the emailed link.
func GenerateResetToken() (composite string, hash string, err error) {
	value := make([]byte, 32)
	if _, err = rand.Read(value); err != nil {
		return "", "", err
	}
	secret := make([]byte, 16)
	if _, err = rand.Read(secret); err != nil {
		return "", "", err
	}

	valueHex := hex.EncodeToString(value)
	secretHex := hex.EncodeToString(secret)

	mac := hmac.New(sha256.New, []byte(secretHex))
	mac.Write([]byte(valueHex))
	hash = hex.EncodeToString(mac.Sum(nil))

	composite = url.QueryEscape(valueHex + resetTokenSeparator + secretHex)
	return composite, hash, nil
}

// ResetTokenHash recomputes the persisted hash from a composite token as it
// arrives in the reset URL. PathUnescape keeps a literal separator intact
// when the router has already decoded the path segment. Any malformed input
// yields ErrInvalidResetToken.
func ResetTokenHash(composite string) (string, error) {
	decoded, err := url.PathUnescape(composite)
	if err != nil {
		return "", ErrInvalidResetToken
	}
	parts := strings.SplitN(decoded, resetTokenSeparator, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", ErrInvalidResetToken
	}
	mac := hmac.New(sha256.New, []byte(parts[1]))
	mac.Write([]byte(parts[0]))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func AccessTTL() time.Duration {
	min, _ := strconv.Atoi(os.Getenv("ACCESS_TOKEN_TTL_MINUTES"))
	if min <= 0 {
		min = 15
	}
	return time.Duration(min) * time.Minute
}

func RefreshTTL() time.Duration {
	days, _ := strconv.Atoi(os.Getenv("REFRESH_TOKEN_TTL_DAYS"))
	if days <= 0 {
		days = 7
	}
	return time.Duration(days) * 24 * time.Hour
}

func ResetTTL() time.Duration {
	min, _ := strconv.Atoi(os.Getenv("RESET_TOKEN_TTL_MINUTES"))
	if min <= 0 {
		min = 5
	}
	return time.Duration(min) * time.Minute
}
