package utils

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const RefreshCookieName = "refreshToken"

const refreshCookiePath = "/api/users"

// cookieSameSite is Strict everywhere except development, where the web app
// and the API run on different origins.
func cookieSameSite() http.SameSite {
	if os.Getenv("APP_ENV") == "development" {
		return http.SameSiteLaxMode
	}
	return http.SameSiteStrictMode
}

func refreshCookieMaxAge() time.Duration {
	hours, _ := strconv.Atoi(os.Getenv("REFRESH_COOKIE_MAX_AGE_HOURS"))
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

func SetRefreshCookie(c *gin.Context, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		Domain:   os.Getenv("COOKIE_DOMAIN"),
		MaxAge:   int(refreshCookieMaxAge().Seconds()),
		HttpOnly: true,
		Secure:   os.Getenv("COOKIE_SECURE") == "true",
		SameSite: cookieSameSite(),
	})
}

// ClearRefreshCookie marks the cookie for destruction by setting an already
// expired value.
func ClearRefreshCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		Domain:   os.Getenv("COOKIE_DOMAIN"),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   os.Getenv("COOKIE_SECURE") == "true",
		SameSite: cookieSameSite(),
	})
}
