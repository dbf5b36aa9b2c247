package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/park285/turtle-soup-judge/internal/guard"
	"github.com/park285/turtle-soup-judge/internal/handler/shared"
)

// GuardRequest 는 플레이어 문장 하나를 검사해 달라는 요청이다.
type GuardRequest struct {
	Text string `json:"text" binding:"required,max=2000"`
}

// GuardResponse 는 검사 점수와 걸린 규칙이다. 가드가 꺼져 있으면 Threshold 는 null 이다.
type GuardResponse struct {
	Enabled   bool          `json:"enabled"`
	Score     float64       `json:"score"`
	Malicious bool          `json:"malicious"`
	Threshold *float64      `json:"threshold"`
	Hits      []guard.Match `json:"hits"`
}

// GuardHandler 는 판정 전에 쓰는 주입 검사를 그대로 노출하는 디버그 API 다.
type GuardHandler struct {
	screener *guard.Screener
}

// NewGuardHandler 는 가드 핸들러를 생성한다.
func NewGuardHandler(screener *guard.Screener) *GuardHandler {
	return &GuardHandler{screener: screener}
}

// RegisterRoutes 는 가드 라우트를 등록한다.
func (h *GuardHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/guard")
	group.POST("/evaluations", h.handleEvaluate)
	group.POST("/checks", h.handleCheck)
}

func (h *GuardHandler) handleEvaluate(c *gin.Context) {
	var req GuardRequest
	if !shared.BindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.evaluate(req.Text))
}

// handleCheck 는 판정 경로와 같은 IsMalicious 를 거치므로 차단 로그도 남는다.
func (h *GuardHandler) handleCheck(c *gin.Context) {
	var req GuardRequest
	if !shared.BindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"malicious": h.screener.IsMalicious(req.Text)})
}

func (h *GuardHandler) evaluate(text string) GuardResponse {
	resp := GuardResponse{Enabled: h.screener.Enabled(), Hits: []guard.Match{}}
	if !resp.Enabled {
		return resp
	}
	evaluation := h.screener.Evaluate(text)
	threshold := evaluation.Threshold
	resp.Score = evaluation.Score
	resp.Malicious = evaluation.Malicious()
	resp.Threshold = &threshold
	if evaluation.Hits != nil {
		resp.Hits = evaluation.Hits
	}
	return resp
}
