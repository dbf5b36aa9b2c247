package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	domain "github.com/park285/turtle-soup-judge/internal/domain/turtlesoup"
	"github.com/park285/turtle-soup-judge/internal/handler/shared"
	"github.com/park285/turtle-soup-judge/internal/httperror"
)

// PuzzleListResponse: 공개 퍼즐 목록 응답입니다.
type PuzzleListResponse struct {
	Puzzles []domain.PublicPuzzle `json:"puzzles"`
	Stats   PuzzleStats           `json:"stats"`
}

// PuzzleStats: 컬렉션 통계입니다.
type PuzzleStats struct {
	Total        int         `json:"total"`
	ByDifficulty map[int]int `json:"by_difficulty"`
}

// PuzzleHandler: 퍼즐 조회 API 핸들러입니다. 정답과 사실 목록은 내보내지 않습니다.
type PuzzleHandler struct {
	loader *domain.PuzzleLoader
	logger *slog.Logger
}

// NewPuzzleHandler: 퍼즐 핸들러를 생성합니다.
func NewPuzzleHandler(loader *domain.PuzzleLoader, logger *slog.Logger) *PuzzleHandler {
	return &PuzzleHandler{loader: loader, logger: logger}
}

// RegisterRoutes: 퍼즐 라우트를 등록합니다.
func (h *PuzzleHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/turtle-soup/puzzles")
	group.GET("", h.handleList)
	group.GET("/random", h.handleRandom)
	group.GET("/:id", h.handleByID)
	group.POST("/reload", h.handleReload)
}

func (h *PuzzleHandler) handleList(c *gin.Context) {
	all := h.loader.All()
	views := make([]domain.PublicPuzzle, 0, len(all))
	for i := range all {
		views = append(views, all[i].Public(i))
	}
	c.JSON(http.StatusOK, PuzzleListResponse{
		Puzzles: views,
		Stats: PuzzleStats{
			Total:        len(all),
			ByDifficulty: h.loader.CountByDifficulty(),
		},
	})
}

func (h *PuzzleHandler) handleRandom(c *gin.Context) {
	difficulty := 0
	if raw := strings.TrimSpace(c.Query("difficulty")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < domain.MinDifficulty || parsed > domain.MaxDifficulty {
			shared.WriteError(c, httperror.NewInvalidInput("difficulty must be an integer between 1 and 5"))
			return
		}
		difficulty = parsed
	}

	puzzle, index, err := h.loader.RandomByDifficulty(difficulty)
	if err != nil {
		shared.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, puzzle.Public(index))
}

// handleByID 는 ID 또는 숫자 인덱스로 퍼즐을 찾는다.
func (h *PuzzleHandler) handleByID(c *gin.Context) {
	raw := strings.TrimSpace(c.Param("id"))
	if puzzle, index, ok := h.loader.GetByID(raw); ok {
		c.JSON(http.StatusOK, puzzle.Public(index))
		return
	}

	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 || index >= h.loader.Count() {
		shared.WriteError(c, httperror.NewPuzzleNotFound(raw))
		return
	}
	c.JSON(http.StatusOK, h.loader.GetByIndex(index).Public(index))
}

func (h *PuzzleHandler) handleReload(c *gin.Context) {
	count, err := h.loader.Reload()
	if err != nil {
		shared.LogError(c.Request.Context(), h.logger, "puzzle_reload_failed", err)
		shared.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":         count,
		"by_difficulty": h.loader.CountByDifficulty(),
	})
}
