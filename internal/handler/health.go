package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/park285/turtle-soup-judge/internal/config"
	"github.com/park285/turtle-soup-judge/internal/health"
)

// ModelConfigResponse: 판정 모델 설정 응답입니다.
type ModelConfigResponse struct {
	ModelDefault          string  `json:"model_default"`
	ModelJudge            string  `json:"model_judge"`
	Temperature           float64 `json:"temperature"`
	ConfiguredTemperature float64 `json:"configured_temperature"`
	MaxOutputTokens       int     `json:"max_output_tokens"`
	TimeoutSeconds        int     `json:"timeout_seconds"`
	PromptVariant         string  `json:"prompt_variant"`
	HTTP2Enabled          bool    `json:"http2_enabled"`
	TransportMode         string  `json:"transport_mode"`
}

// RegisterHealthRoutes: 상태 확인과 메트릭 라우트를 등록합니다.
func RegisterHealthRoutes(router *gin.Engine, cfg *config.Config, checker *health.Checker, metricsHandler http.Handler) {
	router.GET("/health", func(c *gin.Context) {
		// Liveness: 외부 저장소 상태와 무관하게 shallow 로 유지합니다.
		c.JSON(http.StatusOK, checker.Collect(c.Request.Context(), false))
	})

	router.GET("/health/ready", func(c *gin.Context) {
		payload := checker.Collect(c.Request.Context(), true)
		status := http.StatusOK
		if payload.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, payload)
	})

	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	router.GET("/health/models", func(c *gin.Context) {
		judgeModel := cfg.Gemini.ModelForTask("judge")
		transportMode := "h1"
		if cfg.HTTP.HTTP2Enabled {
			transportMode = "h2c"
		}

		c.JSON(http.StatusOK, ModelConfigResponse{
			ModelDefault:          cfg.Gemini.DefaultModel,
			ModelJudge:            judgeModel,
			Temperature:           cfg.Gemini.TemperatureForModel(judgeModel),
			ConfiguredTemperature: cfg.Gemini.Temperature,
			MaxOutputTokens:       cfg.Judge.MaxOutputTokens,
			TimeoutSeconds:        cfg.Gemini.TimeoutSeconds,
			PromptVariant:         cfg.Judge.PromptVariant,
			HTTP2Enabled:          cfg.HTTP.HTTP2Enabled,
			TransportMode:         transportMode,
		})
	})
}
