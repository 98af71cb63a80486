package security

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"chasopis/internal/config"
	"chasopis/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(rate.Limit(10), 5)

	l1 := limiter.GetLimiter("192.168.1.1")
	l2 := limiter.GetLimiter("192.168.1.1")
	if l1 != l2 {
		t.Error("Expected same limiter for same IP")
	}

	l3 := limiter.GetLimiter("192.168.1.2")
	if l1 == l3 {
		t.Error("Expected different limiters for different IPs")
	}
	if limiter.Len() != 2 {
		t.Errorf("Expected 2 tracked clients, got %d", limiter.Len())
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(rate.Limit(10), 5)
	limiter.now = func() time.Time { return now }

	limiter.GetLimiter("10.0.0.1")
	now = now.Add(10 * time.Minute)
	limiter.GetLimiter("10.0.0.2")

	if removed := limiter.Cleanup(5 * time.Minute); removed != 1 {
		t.Errorf("Expected 1 removed client, got %d", removed)
	}
	if limiter.Len() != 1 {
		t.Errorf("Expected 1 tracked client, got %d", limiter.Len())
	}
}

func TestSetup(t *testing.T) {
	router := gin.New()
	limiter := Setup(router, DefaultConfig(), logger.NewNop())
	if limiter == nil {
		t.Fatal("Expected a rate limiter with default config")
	}
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected a request id header")
	}
	if w.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("Expected frame denial header, got %q", w.Header().Get("X-Frame-Options"))
	}

	disabled := config.SecurityConfig{MaxRequestSize: 1024}
	if Setup(gin.New(), disabled, logger.NewNop()) != nil {
		t.Error("Expected no rate limiter when disabled")
	}
}

func TestSetup_CORS(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowedOrigins = []string{"https://chasopis.by"}
	router := gin.New()
	Setup(router, cfg, logger.NewNop())
	router.GET("/api/v1/facets", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/facets", nil)
	req.Header.Set("Origin", "https://chasopis.by")
	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://chasopis.by" {
		t.Errorf("Expected allowed origin header, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Expected credentials to be allowed, got %q", got)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(NewRateLimiter(rate.Limit(1), 2)))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "192.168.1.1:40000"
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("Expected burst to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("Expected status 429 after burst, got %d", codes[2])
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "192.168.1.2:40000"
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected other clients to be unaffected, got %d", w.Code)
	}
}

func TestRequestSizeMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestSizeMiddleware(100))
	router.POST("/test", func(c *gin.Context) {
		if _, err := c.GetRawData(); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	tests := []struct {
		name   string
		body   string
		length int64
		want   int
	}{
		{"within limit", strings.Repeat("a", 50), 50, http.StatusOK},
		{"declared too large", strings.Repeat("a", 150), 150, http.StatusRequestEntityTooLarge},
		{"undeclared too large", strings.Repeat("a", 150), -1, http.StatusRequestEntityTooLarge},
		{"empty", "", 0, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(tt.body))
			req.ContentLength = tt.length
			router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestInputValidationMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(InputValidationMiddleware())
	router.GET("/articles", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/articles/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		path string
		want int
	}{
		{"/articles", http.StatusOK},
		{"/articles?skip=16&sort=likes&tag=a&tag=b", http.StatusOK},
		{"/articles?sort=whatever", http.StatusOK},
		{"/articles?skip=-1", http.StatusBadRequest},
		{"/articles?skip=abc", http.StatusBadRequest},
		{"/articles?section=0", http.StatusBadRequest},
		{"/articles?search=" + strings.Repeat("x", 201), http.StatusBadRequest},
		{"/articles/42", http.StatusOK},
		{"/articles/abc", http.StatusBadRequest},
		{"/articles/-3", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if w.Code != tt.want {
				t.Errorf("Expected status %d for %s, got %d", tt.want, tt.path, w.Code)
			}
		})
	}
}

func TestAccessLogMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(AccessLogMiddleware(logger.NewNop()))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for path, want := range map[string]int{"/ok": http.StatusOK, "/fail": http.StatusInternalServerError} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != want {
			t.Errorf("Expected status %d for %s, got %d", want, path, w.Code)
		}
	}
}

func TestClientIP_TrustedProxies(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableRateLimit = false
	cfg.TrustedProxies = []string{"10.0.0.0/8"}

	router := gin.New()
	Setup(router, cfg, logger.NewNop())
	router.GET("/ip", func(c *gin.Context) { c.String(http.StatusOK, c.ClientIP()) })

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"forwarded by trusted proxy", "10.0.0.1:5000", map[string]string{"X-Forwarded-For": "203.0.113.5"}, "203.0.113.5"},
		{"forwarded chain through trusted proxies", "10.0.0.1:5000", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.2"}, "203.0.113.5"},
		{"real ip from trusted proxy", "10.0.0.1:5000", map[string]string{"X-Real-IP": "203.0.113.7"}, "203.0.113.7"},
		{"untrusted peer", "198.51.100.9:5000", map[string]string{"X-Forwarded-For": "203.0.113.5"}, "198.51.100.9"},
		{"client ip header ignored", "10.0.0.1:5000", map[string]string{"X-Client-IP": "203.0.113.8"}, "10.0.0.1"},
		{"no headers", "192.0.2.1:1234", nil, "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/ip", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			router.ServeHTTP(w, req)
			if got := w.Body.String(); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestRateLimit_IgnoresSpoofedForwardingHeaders(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimitPerSecond = 0.001
	cfg.RateLimitBurst = 1

	router := gin.New()
	Setup(router, cfg, logger.NewNop())
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	allowed := 0
	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "198.51.100.20:6000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		router.ServeHTTP(w, req)
		if w.Code == http.StatusOK {
			allowed++
		}
	}
	if allowed != 1 {
		t.Errorf("Expected 1 request allowed for one peer, got %d", allowed)
	}
}

func TestSetup_InvalidTrustedProxiesTrustsNobody(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableRateLimit = false
	cfg.TrustedProxies = []string{"not-an-address"}

	router := gin.New()
	Setup(router, cfg, logger.NewNop())
	router.GET("/ip", func(c *gin.Context) { c.String(http.StatusOK, c.ClientIP()) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.RemoteAddr = "198.51.100.9:5000"
	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	router.ServeHTTP(w, req)
	if got := w.Body.String(); got != "198.51.100.9" {
		t.Errorf("Expected peer address, got %s", got)
	}
}
