package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func limitedRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/login", rl.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func hit(r *gin.Engine, remoteAddr string) int {
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiter_BurstThenThrottle(t *testing.T) {
	rl := NewRateLimiter(rate.Every(time.Hour), 3, time.Minute)
	r := limitedRouter(rl)

	for i := 0; i < 3; i++ {
		if code := hit(r, "10.0.0.1:1234"); code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, code)
		}
	}
	if code := hit(r, "10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Errorf("over-burst status = %d, want 429", code)
	}
}

func TestRateLimiter_PerIPBuckets(t *testing.T) {
	rl := NewRateLimiter(rate.Every(time.Hour), 1, time.Minute)
	r := limitedRouter(rl)

	if code := hit(r, "10.0.0.1:1234"); code != http.StatusOK {
		t.Fatalf("first client status = %d, want 200", code)
	}
	if code := hit(r, "10.0.0.1:5678"); code != http.StatusTooManyRequests {
		t.Errorf("same IP new port status = %d, want 429", code)
	}
	if code := hit(r, "10.0.0.2:1234"); code != http.StatusOK {
		t.Errorf("other IP status = %d, want 200", code)
	}
}
