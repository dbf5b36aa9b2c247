package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader 는 요청 ID 헤더 키다.
const RequestIDHeader = "X-Request-ID"

const (
	requestIDKey       = "request_id"
	maxRequestIDLength = 128
)

// RequestID 는 요청 ID를 부여하는 미들웨어다. 들어온 값이 비정상이면 새로 만든다.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := NormalizeRequestID(c.GetHeader(RequestIDHeader))
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

// NormalizeRequestID: 헤더로 받은 요청 ID를 검사하고, 쓸 수 없으면 새 ID를 만듭니다.
func NormalizeRequestID(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" || len(value) > maxRequestIDLength || strings.ContainsAny(value, "\r\n") {
		return uuid.NewString()
	}
	return value
}

// GetRequestID: 컨텍스트의 요청 ID를 반환합니다.
func GetRequestID(c *gin.Context) string {
	if c == nil {
		return ""
	}
	value, ok := c.Get(requestIDKey)
	if !ok {
		return ""
	}
	requestID, ok := value.(string)
	if !ok {
		return ""
	}
	return requestID
}
