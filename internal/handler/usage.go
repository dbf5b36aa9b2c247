package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/park285/turtle-soup-judge/internal/config"
	"github.com/park285/turtle-soup-judge/internal/handler/shared"
	"github.com/park285/turtle-soup-judge/internal/httperror"
	"github.com/park285/turtle-soup-judge/internal/usage"
)

const (
	usageDateLayout  = "2006-01-02"
	defaultUsageDays = 7
)

// DailyUsageResponse: 일자별 판정 사용량 응답입니다.
type DailyUsageResponse struct {
	UsageDate       string  `json:"usage_date"`
	InputTokens     int64   `json:"input_tokens"`
	OutputTokens    int64   `json:"output_tokens"`
	TotalTokens     int64   `json:"total_tokens"`
	ReasoningTokens int64   `json:"reasoning_tokens"`
	ModelCalls      int64   `json:"model_calls"`
	Fallbacks       int64   `json:"fallbacks"`
	FallbackRatio   float64 `json:"fallback_ratio"`
	Model           string  `json:"model"`
}

// UsageListResponse: 사용량 목록 응답입니다.
type UsageListResponse struct {
	Usages            []DailyUsageResponse `json:"usages"`
	TotalInputTokens  int64                `json:"total_input_tokens"`
	TotalOutputTokens int64                `json:"total_output_tokens"`
	TotalTokens       int64                `json:"total_tokens"`
	TotalModelCalls   int64                `json:"total_model_calls"`
	TotalFallbacks    int64                `json:"total_fallbacks"`
	FallbackRatio     float64              `json:"fallback_ratio"`
	Model             string               `json:"model"`
}

// UsageHandler: 사용량 API 핸들러입니다.
type UsageHandler struct {
	cfg    *config.Config
	repo   usage.Reader
	logger *slog.Logger
}

// NewUsageHandler: 사용량 핸들러를 생성합니다.
func NewUsageHandler(cfg *config.Config, repo usage.Reader, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{
		cfg:    cfg,
		repo:   repo,
		logger: logger,
	}
}

// RegisterRoutes: 사용량 라우트를 등록합니다.
func (h *UsageHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/usage")
	group.GET("/daily", h.handleDaily)
	group.GET("/recent", h.handleRecent)
}

// dailyQuery 는 /daily 의 조회 조건이다. date 가 없으면 오늘.
type dailyQuery struct {
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// recentQuery 는 /recent 의 조회 조건이다. 바인딩 전에 기본값을 채워 둔다.
type recentQuery struct {
	Days int `form:"days" binding:"min=1,max=365"`
}

func (h *UsageHandler) handleDaily(c *gin.Context) {
	var query dailyQuery
	if !bindQuery(c, &query) {
		return
	}
	var day time.Time
	if query.Date != "" {
		day, _ = time.ParseInLocation(usageDateLayout, query.Date, time.Local)
	}

	usageRow, err := h.repo.GetDailyUsage(c.Request.Context(), day)
	if err != nil {
		shared.LogError(c.Request.Context(), h.logger, "usage_request_failed", err)
		shared.WriteError(c, err)
		return
	}
	resp := h.buildDailyResponse(usageRow)
	if usageRow == nil && query.Date != "" {
		resp.UsageDate = query.Date
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UsageHandler) handleRecent(c *gin.Context) {
	query := recentQuery{Days: defaultUsageDays}
	if !bindQuery(c, &query) {
		return
	}

	usages, err := h.repo.GetRecentUsage(c.Request.Context(), query.Days)
	if err != nil {
		shared.LogError(c.Request.Context(), h.logger, "usage_request_failed", err)
		shared.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.buildUsageListResponse(usages))
}

// bindQuery 는 쿼리 문자열 검증 실패를 모두 400 으로 돌려준다.
func bindQuery(c *gin.Context, out any) bool {
	if err := c.ShouldBindQuery(out); err != nil {
		shared.WriteError(c, httperror.NewInvalidInput("invalid query: "+err.Error()))
		return false
	}
	return true
}

func (h *UsageHandler) buildDailyResponse(usageRow *usage.DailyUsage) DailyUsageResponse {
	if usageRow == nil {
		return DailyUsageResponse{
			UsageDate: time.Now().Format(usageDateLayout),
			Model:     h.model(),
		}
	}
	return h.dailyView(*usageRow)
}

func (h *UsageHandler) dailyView(row usage.DailyUsage) DailyUsageResponse {
	return DailyUsageResponse{
		UsageDate:       row.UsageDate.Format(usageDateLayout),
		InputTokens:     row.InputTokens,
		OutputTokens:    row.OutputTokens,
		TotalTokens:     row.TotalTokens(),
		ReasoningTokens: row.ReasoningTokens,
		ModelCalls:      row.ModelCalls,
		Fallbacks:       row.Fallbacks,
		FallbackRatio:   row.FallbackRatio(),
		Model:           h.model(),
	}
}

func (h *UsageHandler) buildUsageListResponse(usages []usage.DailyUsage) UsageListResponse {
	response := UsageListResponse{
		Usages: make([]DailyUsageResponse, 0, len(usages)),
		Model:  h.model(),
	}

	for _, row := range usages {
		response.Usages = append(response.Usages, h.dailyView(row))
		response.TotalInputTokens += row.InputTokens
		response.TotalOutputTokens += row.OutputTokens
		response.TotalTokens += row.TotalTokens()
		response.TotalModelCalls += row.ModelCalls
		response.TotalFallbacks += row.Fallbacks
	}
	if judged := response.TotalModelCalls + response.TotalFallbacks; judged > 0 {
		response.FallbackRatio = float64(response.TotalFallbacks) / float64(judged)
	}

	return response
}

func (h *UsageHandler) model() string {
	return h.cfg.Gemini.ModelForTask("judge")
}
