package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/park285/turtle-soup-judge/internal/config"
	"github.com/park285/turtle-soup-judge/internal/httperror"
)

const (
	apiKeyHeader  = "X-API-Key"
	bearerPrefix  = "bearer "
	protectedRoot = "/api/"
)

// APIKeyAuth 는 /api/ 아래 경로에 API 키를 요구한다. 키가 비어 있으면 검사하지 않는다.
// 헬스, 메트릭 경로는 항상 공개다.
func APIKeyAuth(cfg *config.Config) gin.HandlerFunc {
	expected := ""
	if cfg != nil {
		expected = strings.TrimSpace(cfg.HTTPAuth.APIKey)
	}

	return func(c *gin.Context) {
		if expected == "" || !isProtectedPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		provided := APIKeyFromHeaders(c.GetHeader(apiKeyHeader), c.GetHeader("Authorization"))
		if !MatchAPIKey(provided, expected) {
			c.Header("WWW-Authenticate", `Bearer realm="turtle-soup"`)
			details := map[string]any{"path": c.Request.URL.Path}
			status, payload := httperror.Response(httperror.NewUnauthorized(details), GetRequestID(c))
			c.AbortWithStatusJSON(status, payload)
			return
		}

		c.Next()
	}
}

// APIKeyFromHeaders: X-API-Key 값을 우선하고, 없으면 Bearer 토큰을 꺼냅니다.
// HTTP 헤더와 gRPC 메타데이터가 같은 규칙을 씁니다.
func APIKeyFromHeaders(apiKey string, authorization string) string {
	if value := strings.TrimSpace(apiKey); value != "" {
		return value
	}

	authValue := strings.TrimSpace(authorization)
	if len(authValue) <= len(bearerPrefix) || !strings.EqualFold(authValue[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(authValue[len(bearerPrefix):])
}

// MatchAPIKey: 상수 시간 비교로 키가 일치하는지 확인합니다. 빈 키는 항상 불일치.
func MatchAPIKey(provided string, expected string) bool {
	if provided == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}

func isProtectedPath(path string) bool {
	return strings.HasPrefix(path, protectedRoot)
}
