package handler

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/park285/turtle-soup-judge/internal/config"
	domain "github.com/park285/turtle-soup-judge/internal/domain/turtlesoup"
	"github.com/park285/turtle-soup-judge/internal/httperror"
	"github.com/park285/turtle-soup-judge/internal/llm"
	"github.com/park285/turtle-soup-judge/internal/session"
	turtlesoupuc "github.com/park285/turtle-soup-judge/internal/usecase/turtlesoup"
)

func replyInvoker(text string) llm.Invoker {
	return llm.InvokerFunc(func(context.Context, llm.Request) (llm.Completion, error) {
		return llm.Completion{Text: text, Model: "gemini-3-test"}, nil
	})
}

func newTestAPI(t *testing.T, invoker llm.Invoker) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mini := miniredis.RunT(t)
	store, err := session.NewStore(context.Background(),
		config.SessionStoreConfig{URL: "redis://" + mini.Addr(), Enabled: true, Required: true, DisableCache: true, ConnectMaxAttempts: 1},
		config.SessionConfig{SessionTTLMinutes: 5, HistoryMaxItems: 10},
		logger,
	)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(store.Close)

	loader, err := domain.NewPuzzleLoader()
	if err != nil {
		t.Fatalf("failed to load puzzles: %v", err)
	}
	builder, err := domain.NewPromptBuilder("default")
	if err != nil {
		t.Fatalf("failed to load prompt: %v", err)
	}

	judge := turtlesoupuc.NewJudge(invoker, loader, builder, turtlesoupuc.JudgeOptions{}, logger)
	games := turtlesoupuc.NewGameService(judge, store, domain.DefaultEconomy(), 10, logger)

	router := gin.New()
	NewJudgmentHandler(judge, loader, logger).RegisterRoutes(router)
	NewPuzzleHandler(loader, logger).RegisterRoutes(router)
	NewGameHandler(games, logger).RegisterRoutes(router)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method string, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decodeBody[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode %q: %v", resp.Body.String(), err)
	}
	return out
}

func TestJudgmentByPuzzleID(t *testing.T) {
	router := newTestAPI(t, replyInvoker("<ANSWER>Yes</ANSWER>"))

	resp := doJSON(t, router, http.MethodPost, "/api/turtle-soup/judgments",
		`{"puzzle_id":"glass-of-water","text":"Did the man have hiccups?"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	payload := decodeBody[JudgmentResponse](t, resp)
	if payload.Result != "yes" || payload.Source != "model" || !payload.IsVerdict {
		t.Fatalf("unexpected judgment: %+v", payload)
	}
	if payload.PuzzleIndex == nil || *payload.PuzzleIndex != 1 {
		t.Fatalf("expected resolved puzzle index 1, got %+v", payload.PuzzleIndex)
	}
}

func TestJudgmentSystemMessages(t *testing.T) {
	tests := []struct {
		name    string
		invoker llm.Invoker
		body    string
		want    string
	}{
		{"blank text", replyInvoker("<ANSWER>yes</ANSWER>"), `{"puzzle_index":0,"text":"   "}`, turtlesoupuc.MessageEmptyInput},
		{"not configured", nil, `{"puzzle_index":0,"text":"Was it raining?"}`, turtlesoupuc.MessageNotConfigured},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestAPI(t, tt.invoker)
			resp := doJSON(t, router, http.MethodPost, "/api/turtle-soup/judgments", tt.body)
			if resp.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.Code)
			}
			payload := decodeBody[JudgmentResponse](t, resp)
			if payload.IsVerdict || payload.Result != tt.want || payload.Source != "rejected" {
				t.Fatalf("unexpected judgment: %+v", payload)
			}
		})
	}
}

func TestJudgmentRejectsBadRequests(t *testing.T) {
	router := newTestAPI(t, replyInvoker("<ANSWER>yes</ANSWER>"))

	missing := doJSON(t, router, http.MethodPost, "/api/turtle-soup/judgments", `{"puzzle_id":"nope","text":"hi"}`)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.Code)
	}
	body := decodeBody[httperror.ErrorResponse](t, missing)
	if body.Error.Code != string(httperror.ErrorCodePuzzleNotFound) {
		t.Fatalf("unexpected error body: %+v", body)
	}

	negative := doJSON(t, router, http.MethodPost, "/api/turtle-soup/judgments", `{"puzzle_index":-1,"text":"hi"}`)
	if negative.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", negative.Code)
	}
}

func TestPuzzleRoutesHideAnswers(t *testing.T) {
	router := newTestAPI(t, nil)

	list := doJSON(t, router, http.MethodGet, "/api/turtle-soup/puzzles", "")
	if list.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", list.Code)
	}
	if strings.Contains(list.Body.String(), `"answer"`) || strings.Contains(list.Body.String(), `"facts"`) {
		t.Fatalf("puzzle list leaked answer or facts")
	}
	payload := decodeBody[PuzzleListResponse](t, list)
	if payload.Stats.Total != len(payload.Puzzles) || payload.Stats.Total == 0 {
		t.Fatalf("unexpected stats: %+v", payload.Stats)
	}

	byID := decodeBody[domain.PublicPuzzle](t, doJSON(t, router, http.MethodGet, "/api/turtle-soup/puzzles/fifth-walker", ""))
	if byID.Index != 0 || byID.ID != "fifth-walker" {
		t.Fatalf("unexpected puzzle: %+v", byID)
	}
	byIndex := decodeBody[domain.PublicPuzzle](t, doJSON(t, router, http.MethodGet, "/api/turtle-soup/puzzles/1", ""))
	if byIndex.ID != "glass-of-water" {
		t.Fatalf("unexpected puzzle by index: %+v", byIndex)
	}
	if resp := doJSON(t, router, http.MethodGet, "/api/turtle-soup/puzzles/999", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if resp := doJSON(t, router, http.MethodGet, "/api/turtle-soup/puzzles/random?difficulty=9", ""); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGameFlow(t *testing.T) {
	router := newTestAPI(t, replyInvoker("<ANSWER>correct</ANSWER>"))

	start := doJSON(t, router, http.MethodPost, "/api/turtle-soup/games", "")
	if start.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", start.Code, start.Body.String())
	}
	started := decodeBody[GameStateResponse](t, start)
	if started.State.Coins != 100 || started.Puzzle == nil || started.Puzzle.Index != 0 {
		t.Fatalf("unexpected start: %+v", started)
	}
	base := "/api/turtle-soup/games/" + started.State.SessionID

	guess := doJSON(t, router, http.MethodPost, base+"/guess", `{"text":"The fifth was a corpse in the coffin"}`)
	if guess.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", guess.Code, guess.Body.String())
	}
	turn := decodeBody[GameTurnResponse](t, guess)
	if !turn.Solved || turn.Reward != 80 || turn.State.Coins != 179 {
		t.Fatalf("unexpected turn: %+v", turn)
	}
	if turn.Judgment.PuzzleIndex == nil || *turn.Judgment.PuzzleIndex != 0 || turn.Puzzle.Index != 1 {
		t.Fatalf("expected judgment on puzzle 0 and advance to 1: %+v", turn)
	}

	hint := decodeBody[GameHintResponse](t, doJSON(t, router, http.MethodPost, base+"/hint", ""))
	if hint.Hint == "" || hint.State.Coins != 169 || hint.State.HintsUsed != 1 {
		t.Fatalf("unexpected hint: %+v", hint)
	}

	if resp := doJSON(t, router, http.MethodPost, base+"/ask", `{}`); resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing text, got %d", resp.Code)
	}

	state := decodeBody[GameStateResponse](t, doJSON(t, router, http.MethodGet, base, ""))
	if len(state.State.History) != 1 || state.State.History[0].Result != "correct" {
		t.Fatalf("unexpected history: %+v", state.State.History)
	}

	if resp := doJSON(t, router, http.MethodDelete, base, ""); resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	gone := doJSON(t, router, http.MethodGet, base, "")
	if gone.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", gone.Code)
	}
	body := decodeBody[httperror.ErrorResponse](t, gone)
	if body.Error.Code != string(httperror.ErrorCodeSessionNotFound) || body.Error.Details["session_id"] != started.State.SessionID {
		t.Fatalf("unexpected error body: %+v", body)
	}
}

func TestGameRuleViolationIsConflict(t *testing.T) {
	router := newTestAPI(t, replyInvoker("<ANSWER>no</ANSWER>"))
	started := decodeBody[GameStateResponse](t, doJSON(t, router, http.MethodPost, "/api/turtle-soup/games", ""))
	base := "/api/turtle-soup/games/" + started.State.SessionID

	for range 3 {
		if resp := doJSON(t, router, http.MethodPost, base+"/hint", ""); resp.Code != http.StatusOK {
			t.Fatalf("expected hint 200, got %d", resp.Code)
		}
	}
	resp := doJSON(t, router, http.MethodPost, base+"/hint", "")
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
	if body := decodeBody[httperror.ErrorResponse](t, resp); body.Error.Code != string(httperror.ErrorCodeHintLimit) {
		t.Fatalf("unexpected error body: %+v", body)
	}
}
