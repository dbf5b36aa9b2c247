package turtlesoup

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	domain "github.com/park285/turtle-soup-judge/internal/domain/turtlesoup"
)

// ErrEmptyInput: 질문/추측 텍스트가 비어 있습니다.
var ErrEmptyInput = errors.New("text is empty")

// noMoreHints: 남은 힌트가 없을 때 보여주는 문구입니다.
const noMoreHints = "No more hints for this puzzle. Try asking about the details of the story."

// StateStore: 게임 상태 저장소입니다. 없는 세션은 Load 가 구현체의 not-found 오류를 반환합니다.
type StateStore interface {
	Save(ctx context.Context, state domain.GameState) error
	Load(ctx context.Context, sessionID string) (domain.GameState, error)
	Delete(ctx context.Context, sessionID string) error
}

// Turn: Ask/Guess 한 번의 결과입니다.
type Turn struct {
	Result Result
	State  domain.GameState
	// Solved 는 정답 추측으로 보상을 받고 다음 퍼즐로 넘어간 경우 true.
	Solved bool
	Reward int
}

// HintResult: Hint 결과입니다.
type HintResult struct {
	Hint  string
	State domain.GameState
}

// GameService: 코인 경제와 퍼즐 진행을 관리합니다.
// 판정 중에는 세션 잠금을 잡지 않으며, Skip/Restart 가 진행 중인 판정을 취소합니다.
type GameService struct {
	judge       *Judge
	store       StateStore
	economy     domain.Economy
	historySize int
	logger      *slog.Logger
	now         func() time.Time

	locks [64]sync.Mutex

	inflightMu sync.Mutex
	inflight   map[string]map[uint64]context.CancelFunc
	nextID     atomic.Uint64
}

// NewGameService: 게임 서비스를 생성합니다.
func NewGameService(judge *Judge, store StateStore, economy domain.Economy, historySize int, logger *slog.Logger) *GameService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GameService{
		judge:       judge,
		store:       store,
		economy:     economy,
		historySize: historySize,
		logger:      logger,
		now:         time.Now,
		inflight:    make(map[string]map[uint64]context.CancelFunc),
	}
}

// Economy: 적용 중인 경제 설정입니다.
func (g *GameService) Economy() domain.Economy {
	return g.economy
}

func (g *GameService) lock(sessionID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	mu := &g.locks[h.Sum32()%uint32(len(g.locks))]
	mu.Lock()
	return mu.Unlock
}

// Start: 새 세션을 만듭니다.
func (g *GameService) Start(ctx context.Context) (domain.GameState, error) {
	state := domain.NewGameState(uuid.NewString(), g.economy, g.now())
	if err := g.store.Save(ctx, state); err != nil {
		return domain.GameState{}, fmt.Errorf("start game: %w", err)
	}
	g.logger.Info("game_started", "session_id", state.SessionID, "coins", state.Coins)
	return state, nil
}

// State: 세션 상태를 읽습니다.
func (g *GameService) State(ctx context.Context, sessionID string) (domain.GameState, error) {
	return g.store.Load(ctx, sessionID)
}

// CurrentPuzzle: 세션의 현재 퍼즐 공개 정보입니다.
func (g *GameService) CurrentPuzzle(state domain.GameState) (domain.PublicPuzzle, bool) {
	provider := g.judge.Provider()
	if provider == nil || provider.Count() == 0 {
		return domain.PublicPuzzle{}, false
	}
	index := domain.ClampIndex(state.PuzzleIndex, provider.Count())
	return provider.GetByIndex(index).Public(index), true
}

// Ask: 질문 하나를 판정합니다.
func (g *GameService) Ask(ctx context.Context, sessionID string, text string) (Turn, error) {
	return g.play(ctx, sessionID, text, false)
}

// Guess: 정답 추측 하나를 판정합니다. correct 면 보상을 주고 다음 퍼즐로 넘어갑니다.
func (g *GameService) Guess(ctx context.Context, sessionID string, text string) (Turn, error) {
	return g.play(ctx, sessionID, text, true)
}

func (g *GameService) play(ctx context.Context, sessionID string, text string, isGuess bool) (Turn, error) {
	if strings.TrimSpace(text) == "" {
		return Turn{}, ErrEmptyInput
	}

	// 비용 차감은 판정 전에 확정한다.
	unlock := g.lock(sessionID)
	state, err := g.store.Load(ctx, sessionID)
	if err != nil {
		unlock()
		return Turn{}, err
	}
	if err := state.CanAfford(g.economy.AskCost); err != nil {
		unlock()
		return Turn{}, err
	}
	state.Spend(g.economy.AskCost)
	state.UpdatedAt = g.now()
	if err := g.store.Save(ctx, state); err != nil {
		unlock()
		return Turn{}, fmt.Errorf("save game: %w", err)
	}
	askedIndex, askedRound := state.PuzzleIndex, state.Round
	unlock()

	judgeCtx, done := g.track(ctx, sessionID)
	result := g.judge.JudgeAt(judgeCtx, askedIndex, text, isGuess)
	done()

	unlock = g.lock(sessionID)
	defer unlock()
	state, err = g.store.Load(ctx, sessionID)
	if err != nil {
		return Turn{}, err
	}

	turn := Turn{Result: result, State: state}
	// Skip/Restart 뒤에 도착한 판정은 보상도 환불도 기록도 하지 않는다.
	if state.Round != askedRound {
		g.logger.Info("judgment_discarded", "session_id", sessionID, "puzzle_index", askedIndex, "source", result.Source)
		return turn, nil
	}

	kind := domain.KindOf(isGuess)
	if !result.IsVerdict {
		// 판정이 성립하지 않았으면 비용을 돌려준다.
		state.AddCoins(g.economy.AskCost)
	}
	if isGuess && result.Verdict == domain.VerdictCorrect {
		turn.Reward = g.economy.Reward(state.Coins)
		turn.Solved = true
		state.AddCoins(turn.Reward)
		state.PuzzlesSolved++
		state.NextPuzzle()
		g.logger.Info("puzzle_solved", "session_id", sessionID, "puzzle_index", askedIndex, "reward", turn.Reward)
	}
	state.Record(domain.Turn{
		PuzzleIndex: askedIndex,
		Kind:        kind.String(),
		Text:        text,
		Result:      result.Text,
		Source:      string(result.Source),
		At:          g.now(),
	}, g.historySize)
	state.UpdatedAt = g.now()
	if err := g.store.Save(ctx, state); err != nil {
		return Turn{}, fmt.Errorf("save game: %w", err)
	}
	turn.State = state
	return turn, nil
}

// Hint: 현재 퍼즐의 다음 힌트를 공개합니다.
func (g *GameService) Hint(ctx context.Context, sessionID string) (HintResult, error) {
	unlock := g.lock(sessionID)
	defer unlock()

	state, err := g.store.Load(ctx, sessionID)
	if err != nil {
		return HintResult{}, err
	}
	if state.GameOver() {
		return HintResult{}, domain.ErrGameOver
	}
	if state.HintLimitReached(g.economy.MaxHintsPerPuzzle) {
		return HintResult{}, domain.ErrHintLimitReached
	}
	if err := state.CanAfford(g.economy.HintCost); err != nil {
		return HintResult{}, err
	}

	hint := noMoreHints
	if provider := g.judge.Provider(); provider != nil {
		if puzzle := provider.GetByIndex(state.PuzzleIndex); puzzle != nil && state.HintsUsed < len(puzzle.Hints) {
			hint = puzzle.Hints[state.HintsUsed]
		}
	}

	state.Spend(g.economy.HintCost)
	state.HintsUsed++
	state.UpdatedAt = g.now()
	if err := g.store.Save(ctx, state); err != nil {
		return HintResult{}, fmt.Errorf("save game: %w", err)
	}
	return HintResult{Hint: hint, State: state}, nil
}

// Skip: 비용을 내고 다음 퍼즐로 넘어갑니다. 진행 중인 판정은 취소됩니다.
func (g *GameService) Skip(ctx context.Context, sessionID string) (domain.GameState, error) {
	unlock := g.lock(sessionID)
	defer unlock()

	state, err := g.store.Load(ctx, sessionID)
	if err != nil {
		return domain.GameState{}, err
	}
	if err := state.CanAfford(g.economy.SkipCost); err != nil {
		return domain.GameState{}, err
	}

	cancelled := g.cancelInflight(sessionID)
	state.Spend(g.economy.SkipCost)
	state.NextPuzzle()
	state.UpdatedAt = g.now()
	if err := g.store.Save(ctx, state); err != nil {
		return domain.GameState{}, fmt.Errorf("save game: %w", err)
	}
	g.logger.Info("puzzle_skipped", "session_id", sessionID, "puzzle_index", state.PuzzleIndex, "cancelled", cancelled)
	return state, nil
}

// Restart: 진행 중인 판정을 취소하고 초기 상태로 되돌립니다. 세션 ID 는 유지됩니다.
func (g *GameService) Restart(ctx context.Context, sessionID string) (domain.GameState, error) {
	unlock := g.lock(sessionID)
	defer unlock()

	state, err := g.store.Load(ctx, sessionID)
	if err != nil {
		return domain.GameState{}, err
	}

	cancelled := g.cancelInflight(sessionID)
	state.Reset(g.economy, g.now())
	if err := g.store.Save(ctx, state); err != nil {
		return domain.GameState{}, fmt.Errorf("save game: %w", err)
	}
	g.logger.Info("game_restarted", "session_id", sessionID, "cancelled", cancelled)
	return state, nil
}

// End: 세션을 지우고 진행 중인 판정을 취소합니다.
func (g *GameService) End(ctx context.Context, sessionID string) error {
	unlock := g.lock(sessionID)
	defer unlock()

	g.cancelInflight(sessionID)
	if err := g.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("end game: %w", err)
	}
	return nil
}

// Inflight: 세션의 진행 중인 판정 수입니다.
func (g *GameService) Inflight(sessionID string) int {
	g.inflightMu.Lock()
	defer g.inflightMu.Unlock()
	return len(g.inflight[sessionID])
}

// track 은 판정용 취소 가능 컨텍스트를 세션에 등록한다. 반환된 done 은 반드시 호출해야 한다.
func (g *GameService) track(ctx context.Context, sessionID string) (context.Context, func()) {
	judgeCtx, cancel := context.WithCancel(ctx)
	id := g.nextID.Add(1)

	g.inflightMu.Lock()
	calls := g.inflight[sessionID]
	if calls == nil {
		calls = make(map[uint64]context.CancelFunc)
		g.inflight[sessionID] = calls
	}
	calls[id] = cancel
	g.inflightMu.Unlock()

	return judgeCtx, func() {
		g.inflightMu.Lock()
		if calls := g.inflight[sessionID]; calls != nil {
			delete(calls, id)
			if len(calls) == 0 {
				delete(g.inflight, sessionID)
			}
		}
		g.inflightMu.Unlock()
		cancel()
	}
}

func (g *GameService) cancelInflight(sessionID string) int {
	g.inflightMu.Lock()
	calls := g.inflight[sessionID]
	delete(g.inflight, sessionID)
	g.inflightMu.Unlock()

	for _, cancel := range calls {
		cancel()
	}
	return len(calls)
}
