package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	domain "github.com/park285/turtle-soup-judge/internal/domain/turtlesoup"
	"github.com/park285/turtle-soup-judge/internal/handler/shared"
	"github.com/park285/turtle-soup-judge/internal/httperror"
	turtlesoupuc "github.com/park285/turtle-soup-judge/internal/usecase/turtlesoup"
)

// JudgmentRequest: 단발 판정 요청입니다. puzzle_id 가 있으면 puzzle_index 보다 우선합니다.
type JudgmentRequest struct {
	PuzzleIndex *int   `json:"puzzle_index" binding:"omitempty,min=0"`
	PuzzleID    string `json:"puzzle_id" binding:"omitempty,max=128"`
	Text        string `json:"text" binding:"max=2000"`
	IsGuess     bool   `json:"is_guess"`
}

// JudgmentResponse: 판정 응답입니다. is_verdict 가 false 면 result 는 시스템 메시지입니다.
type JudgmentResponse struct {
	Result      string `json:"result"`
	Verdict     string `json:"verdict,omitempty"`
	Source      string `json:"source"`
	IsVerdict   bool   `json:"is_verdict"`
	PuzzleIndex *int   `json:"puzzle_index,omitempty"`
}

// PuzzleLookup: ID 로 퍼즐을 찾습니다.
type PuzzleLookup interface {
	GetByID(id string) (*domain.Puzzle, int, bool)
}

// JudgmentHandler: 판정 API 핸들러입니다.
type JudgmentHandler struct {
	judge   *turtlesoupuc.Judge
	puzzles PuzzleLookup
	logger  *slog.Logger
}

// NewJudgmentHandler: 판정 핸들러를 생성합니다.
func NewJudgmentHandler(judge *turtlesoupuc.Judge, puzzles PuzzleLookup, logger *slog.Logger) *JudgmentHandler {
	return &JudgmentHandler{judge: judge, puzzles: puzzles, logger: logger}
}

// RegisterRoutes: 판정 라우트를 등록합니다.
func (h *JudgmentHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/turtle-soup/judgments", h.handleJudge)
}

func (h *JudgmentHandler) handleJudge(c *gin.Context) {
	var req JudgmentRequest
	if !shared.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	var (
		result turtlesoupuc.Result
		index  *int
	)
	if id := strings.TrimSpace(req.PuzzleID); id != "" {
		puzzle, found, ok := h.puzzles.GetByID(id)
		if !ok {
			shared.WriteError(c, httperror.NewPuzzleNotFound(id))
			return
		}
		index = &found
		result = h.judge.Judge(ctx, puzzle, req.Text, req.IsGuess)
	} else {
		position := 0
		if req.PuzzleIndex != nil {
			position = *req.PuzzleIndex
		}
		result = h.judge.JudgeAt(ctx, position, req.Text, req.IsGuess)
	}

	if result.IsVerdict {
		h.logger.Debug("judgment_served", "source", result.Source, "verdict", result.Verdict)
	}
	c.JSON(http.StatusOK, newJudgmentResponse(result, index))
}

func newJudgmentResponse(result turtlesoupuc.Result, index *int) JudgmentResponse {
	return JudgmentResponse{
		Result:      result.Text,
		Verdict:     string(result.Verdict),
		Source:      string(result.Source),
		IsVerdict:   result.IsVerdict,
		PuzzleIndex: index,
	}
}
