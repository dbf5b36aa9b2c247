package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/park285/turtle-soup-judge/internal/cache"
	"github.com/park285/turtle-soup-judge/internal/config"
	"github.com/park285/turtle-soup-judge/internal/httperror"
)

const rateLimitWindow = time.Minute

type windowKey struct {
	identity string
	window   int64
}

type rateLimiter struct {
	limit   int
	counter *cache.TTLCache[windowKey, int]
	now     func() time.Time
}

// RateLimit 는 /api/ 경로에 대해 식별자(API 키 해시 또는 클라이언트 IP)별 분당 요청 수를 제한한다.
// RequestsPerMinute 가 0 이하면 제한하지 않는다.
func RateLimit(cfg *config.Config) gin.HandlerFunc {
	return newRateLimiter(cfg, time.Now).handle
}

func newRateLimiter(cfg *config.Config, now func() time.Time) *rateLimiter {
	limiter := &rateLimiter{now: now}
	cacheSize := 0
	cacheTTL := rateLimitWindow
	if cfg != nil {
		limiter.limit = cfg.HTTPRateLimit.RequestsPerMinute
		cacheSize = cfg.HTTPRateLimit.CacheSize
		if ttl := time.Duration(cfg.HTTPRateLimit.CacheTTLSeconds) * time.Second; ttl > cacheTTL {
			cacheTTL = ttl
		}
	}
	limiter.counter = cache.NewTTLCacheWithClock[windowKey, int](cacheSize, cacheTTL, now)
	return limiter
}

func (l *rateLimiter) handle(c *gin.Context) {
	if l.limit <= 0 || c.Request.Method == http.MethodOptions || !isProtectedPath(c.Request.URL.Path) {
		c.Next()
		return
	}

	now := l.now()
	identity := rateLimitIdentity(c)
	key := windowKey{identity: identity, window: now.Unix() / int64(rateLimitWindow.Seconds())}

	count, ok := l.counter.Modify(key, func(current int, _ bool) int { return current + 1 })
	if !ok {
		c.Next()
		return
	}

	c.Header("X-RateLimit-Limit", strconv.Itoa(l.limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(max(l.limit-count, 0)))

	if count > l.limit {
		c.Header("Retry-After", strconv.FormatInt(secondsUntilNextWindow(now), 10))
		details := map[string]any{
			"path":             c.Request.URL.Path,
			"identity":         identity,
			"limit_per_minute": l.limit,
		}
		status, payload := httperror.Response(httperror.NewRateLimitExceeded(details), GetRequestID(c))
		c.AbortWithStatusJSON(status, payload)
		return
	}

	c.Next()
}

func secondsUntilNextWindow(now time.Time) int64 {
	windowSeconds := int64(rateLimitWindow.Seconds())
	return windowSeconds - now.Unix()%windowSeconds
}

// rateLimitIdentity 는 키가 있으면 키 해시를, 없으면 gin 이 신뢰 프록시 설정으로 계산한 IP 를 쓴다.
func rateLimitIdentity(c *gin.Context) string {
	if key := APIKeyFromHeaders(c.GetHeader(apiKeyHeader), c.GetHeader("Authorization")); key != "" {
		return "key:" + hashKey(key)
	}
	if ip := c.ClientIP(); ip != "" {
		return "ip:" + ip
	}
	return "ip:unknown"
}

func hashKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:8])
}
