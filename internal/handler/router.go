package handler

import (
	"log/slog"
	"strings"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/park285/turtle-soup-judge/internal/config"
	"github.com/park285/turtle-soup-judge/internal/health"
	"github.com/park285/turtle-soup-judge/internal/metrics"
	"github.com/park285/turtle-soup-judge/internal/middleware"
)

// NewRouter 는 HTTP 라우터를 구성한다.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	checker *health.Checker,
	metricsStore *metrics.Store,
	judgmentHandler *JudgmentHandler,
	puzzleHandler *PuzzleHandler,
	gameHandler *GameHandler,
	guardHandler *GuardHandler,
	usageHandler *UsageHandler,
) *gin.Engine {
	setGinMode(cfg.Logging.Level)

	router := gin.New()

	// 추적 미들웨어는 가장 앞에 둔다.
	if cfg.Telemetry.Enabled {
		serviceName := strings.TrimSpace(cfg.Telemetry.ServiceName)
		if serviceName == "" {
			serviceName = "turtle-soup-judge"
		}
		router.Use(otelgin.Middleware(serviceName))
		logger.Info("otel_http_middleware_enabled", "service", serviceName)
	}

	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		gin.Recovery(),
		newGzipMiddleware(),
		middleware.APIKeyAuth(cfg),
		middleware.RateLimit(cfg),
	)

	RegisterHealthRoutes(router, cfg, checker, metricsStore.Handler())
	judgmentHandler.RegisterRoutes(router)
	puzzleHandler.RegisterRoutes(router)
	gameHandler.RegisterRoutes(router)
	guardHandler.RegisterRoutes(router)
	if usageHandler != nil {
		usageHandler.RegisterRoutes(router)
	}

	return router
}

// newGzipMiddleware 는 헬스체크와 메트릭 응답은 압축하지 않는다.
func newGzipMiddleware() gin.HandlerFunc {
	return gzip.Gzip(gzip.DefaultCompression, gzip.WithCustomShouldCompressFn(func(c *gin.Context) bool {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/health") || path == "/metrics" {
			return false
		}
		return strings.Contains(c.GetHeader("Accept-Encoding"), "gzip")
	}))
}

func setGinMode(level string) {
	if strings.EqualFold(strings.TrimSpace(level), "debug") {
		gin.SetMode(gin.DebugMode)
		return
	}
	gin.SetMode(gin.ReleaseMode)
}
