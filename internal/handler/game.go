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

// GameTextRequest: 질문/추측 요청입니다.
type GameTextRequest struct {
	Text string `json:"text" binding:"required,max=2000"`
}

// GameStateResponse: 세션 상태와 현재 퍼즐 공개 정보입니다.
type GameStateResponse struct {
	State    domain.GameState     `json:"state"`
	Puzzle   *domain.PublicPuzzle `json:"puzzle,omitempty"`
	GameOver bool                 `json:"game_over"`
}

// GameTurnResponse: Ask/Guess 응답입니다.
type GameTurnResponse struct {
	Judgment JudgmentResponse `json:"judgment"`
	Solved   bool             `json:"solved"`
	Reward   int              `json:"reward"`
	GameStateResponse
}

// GameHintResponse: Hint 응답입니다.
type GameHintResponse struct {
	Hint string `json:"hint"`
	GameStateResponse
}

// GameHandler: 게임 세션 API 핸들러입니다.
type GameHandler struct {
	games  *turtlesoupuc.GameService
	logger *slog.Logger
}

// NewGameHandler: 게임 핸들러를 생성합니다.
func NewGameHandler(games *turtlesoupuc.GameService, logger *slog.Logger) *GameHandler {
	return &GameHandler{games: games, logger: logger}
}

// RegisterRoutes: 게임 라우트를 등록합니다.
func (h *GameHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/turtle-soup/games")
	group.POST("", h.handleStart)
	group.GET("/:id", h.handleState)
	group.DELETE("/:id", h.handleEnd)
	group.POST("/:id/ask", h.handleAsk)
	group.POST("/:id/guess", h.handleGuess)
	group.POST("/:id/hint", h.handleHint)
	group.POST("/:id/skip", h.handleSkip)
	group.POST("/:id/restart", h.handleRestart)
}

func (h *GameHandler) handleStart(c *gin.Context) {
	state, err := h.games.Start(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.stateResponse(state))
}

func (h *GameHandler) handleState(c *gin.Context) {
	state, err := h.games.State(c.Request.Context(), sessionParam(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.stateResponse(state))
}

func (h *GameHandler) handleEnd(c *gin.Context) {
	if err := h.games.End(c.Request.Context(), sessionParam(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GameHandler) handleAsk(c *gin.Context) {
	h.handleTurn(c, false)
}

func (h *GameHandler) handleGuess(c *gin.Context) {
	h.handleTurn(c, true)
}

func (h *GameHandler) handleTurn(c *gin.Context, isGuess bool) {
	var req GameTextRequest
	if !shared.BindJSON(c, &req) {
		return
	}

	sessionID := sessionParam(c)
	play := h.games.Ask
	if isGuess {
		play = h.games.Guess
	}
	turn, err := play(c.Request.Context(), sessionID, req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}

	index := turn.State.PuzzleIndex
	if turn.Solved && len(turn.State.History) > 0 {
		index = turn.State.History[len(turn.State.History)-1].PuzzleIndex
	}
	c.JSON(http.StatusOK, GameTurnResponse{
		Judgment:          newJudgmentResponse(turn.Result, &index),
		Solved:            turn.Solved,
		Reward:            turn.Reward,
		GameStateResponse: h.stateResponse(turn.State),
	})
}

func (h *GameHandler) handleHint(c *gin.Context) {
	result, err := h.games.Hint(c.Request.Context(), sessionParam(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GameHintResponse{
		Hint:              result.Hint,
		GameStateResponse: h.stateResponse(result.State),
	})
}

func (h *GameHandler) handleSkip(c *gin.Context) {
	state, err := h.games.Skip(c.Request.Context(), sessionParam(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.stateResponse(state))
}

func (h *GameHandler) handleRestart(c *gin.Context) {
	state, err := h.games.Restart(c.Request.Context(), sessionParam(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.stateResponse(state))
}

func (h *GameHandler) stateResponse(state domain.GameState) GameStateResponse {
	resp := GameStateResponse{State: state, GameOver: state.GameOver()}
	if puzzle, ok := h.games.CurrentPuzzle(state); ok {
		resp.Puzzle = &puzzle
	}
	return resp
}

// fail 은 규칙 위반(4xx)은 그대로 응답하고 서버 오류만 로그로 남긴다.
func (h *GameHandler) fail(c *gin.Context, err error) {
	apiErr := httperror.FromError(err)
	if apiErr.Code == httperror.ErrorCodeSessionNotFound {
		apiErr = httperror.NewSessionNotFound(sessionParam(c))
	}
	if apiErr.Status >= http.StatusInternalServerError {
		shared.LogError(c.Request.Context(), h.logger, "game_request_failed", err)
	}
	shared.WriteError(c, apiErr)
}

func sessionParam(c *gin.Context) string {
	return strings.TrimSpace(c.Param("id"))
}
