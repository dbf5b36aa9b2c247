package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const requestLogEvent = "http_request"

// 성공 응답이면 기록하지 않는 경로다. 프로브와 스크레이프가 로그를 덮지 않게 한다.
var quietPaths = map[string]struct{}{
	"/health":       {},
	"/health/ready": {},
	"/metrics":      {},
}

// RequestLogger 는 요청 한 건마다 한 줄을 남긴다. 5xx 는 error, 4xx 는 warn, 나머지는 info.
// route 는 gin 경로 패턴이라 세션 ID 가 로그 키에 섞이지 않는다.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		startedAt := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		if _, quiet := quietPaths[path]; quiet && status < http.StatusBadRequest && len(c.Errors) == 0 {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := []any{
			"request_id", GetRequestID(c),
			"method", c.Request.Method,
			"route", route,
			"path", path,
			"status", status,
			"latency", time.Since(startedAt),
			"bytes", c.Writer.Size(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		ctx := c.Request.Context()
		switch {
		case status >= http.StatusInternalServerError:
			logger.ErrorContext(ctx, requestLogEvent, fields...)
		case status >= http.StatusBadRequest:
			logger.WarnContext(ctx, requestLogEvent, fields...)
		default:
			logger.InfoContext(ctx, requestLogEvent, fields...)
		}
	}
}
