package turtlesoup

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/park285/turtle-soup-judge/internal/domain/turtlesoup"
	"github.com/park285/turtle-soup-judge/internal/llm"
	"github.com/park285/turtle-soup-judge/internal/session"
)

func newTestGame(t *testing.T, invoker llm.Invoker, economy domain.Economy) (*GameService, domain.GameState) {
	t.Helper()
	judge := newTestJudge(t, invoker, JudgeOptions{})
	game := NewGameService(judge, session.NewMemoryStore(time.Hour), economy, 20, quietLogger())
	state, err := game.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return game, state
}

func TestGameStart(t *testing.T) {
	game, state := newTestGame(t, replyWith("<ANSWER>no</ANSWER>"), domain.DefaultEconomy())
	if state.SessionID == "" || state.Coins != 100 || state.PuzzleIndex != 0 {
		t.Fatalf("unexpected initial state: %+v", state)
	}
	current, ok := game.CurrentPuzzle(state)
	if !ok || current.ID != "seed" || current.HintCount != 2 {
		t.Fatalf("unexpected current puzzle: %+v", current)
	}
}

func TestGameAskSpendsAndRecords(t *testing.T) {
	game, state := newTestGame(t, replyWith("<ANSWER>no</ANSWER>"), domain.DefaultEconomy())
	ctx := context.Background()

	turn, err := game.Ask(ctx, state.SessionID, "Was anyone alive?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if turn.Result.Verdict != domain.VerdictNo || turn.State.Coins != 99 {
		t.Fatalf("unexpected turn: %+v", turn)
	}
	if len(turn.State.History) != 1 || turn.State.History[0].Source != "model" {
		t.Fatalf("unexpected history: %+v", turn.State.History)
	}

	if _, err := game.Ask(ctx, state.SessionID, "   "); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected empty input error, got %v", err)
	}
	stored, _ := game.State(ctx, state.SessionID)
	if stored.Coins != 99 {
		t.Fatalf("empty input must not cost coins, coins=%d", stored.Coins)
	}
}

func TestGameCorrectGuessRewardsAndAdvances(t *testing.T) {
	game, state := newTestGame(t, replyWith("<ANSWER>correct</ANSWER>"), domain.DefaultEconomy())

	turn, err := game.Guess(context.Background(), state.SessionID, "pallbearers carried a corpse")
	if err != nil {
		t.Fatalf("guess: %v", err)
	}
	// 99 coins left after paying -> 30 + round(49.5) = 80, capped at 80.
	if !turn.Solved || turn.Reward != 80 {
		t.Fatalf("unexpected turn: %+v", turn)
	}
	if turn.State.Coins != 179 || turn.State.PuzzleIndex != 1 || turn.State.PuzzlesSolved != 1 || turn.State.HintsUsed != 0 {
		t.Fatalf("unexpected state: %+v", turn.State)
	}
}

func TestGameWrongGuessDoesNotAdvance(t *testing.T) {
	game, state := newTestGame(t, replyWith("<ANSWER>wrong</ANSWER>"), domain.DefaultEconomy())

	turn, err := game.Guess(context.Background(), state.SessionID, "aliens")
	if err != nil {
		t.Fatalf("guess: %v", err)
	}
	if turn.Solved || turn.State.PuzzleIndex != 0 || turn.State.Coins != 99 {
		t.Fatalf("unexpected turn: %+v", turn)
	}
}

func TestGameRefundsWhenNotConfigured(t *testing.T) {
	judge := NewJudge(nil, testProvider(), testBuilder(t), JudgeOptions{}, quietLogger())
	game := NewGameService(judge, session.NewMemoryStore(0), domain.DefaultEconomy(), 0, quietLogger())
	state, _ := game.Start(context.Background())

	turn, err := game.Ask(context.Background(), state.SessionID, "Is he alive?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if turn.Result.IsVerdict || turn.Result.Text != MessageNotConfigured || turn.State.Coins != 100 {
		t.Fatalf("unexpected turn: %+v", turn)
	}
}

func TestGameRejectsWhenBankrupt(t *testing.T) {
	economy := domain.DefaultEconomy()
	economy.InitialCoins = 0
	invoker := replyWith("<ANSWER>yes</ANSWER>")
	game, state := newTestGame(t, invoker, economy)
	ctx := context.Background()

	if _, err := game.Ask(ctx, state.SessionID, "Is it raining?"); !errors.Is(err, domain.ErrGameOver) {
		t.Fatalf("expected game over, got %v", err)
	}
	if _, err := game.Hint(ctx, state.SessionID); !errors.Is(err, domain.ErrGameOver) {
		t.Fatalf("expected game over for hint, got %v", err)
	}
	if _, err := game.Skip(ctx, state.SessionID); !errors.Is(err, domain.ErrGameOver) {
		t.Fatalf("expected game over for skip, got %v", err)
	}
	if invoker.Calls() != 0 {
		t.Fatalf("bankrupt session must not call the model")
	}
}

func TestGameInsufficientCoins(t *testing.T) {
	economy := domain.DefaultEconomy()
	economy.InitialCoins = 5
	game, state := newTestGame(t, replyWith("<ANSWER>yes</ANSWER>"), economy)

	if _, err := game.Hint(context.Background(), state.SessionID); !errors.Is(err, domain.ErrInsufficientCoins) {
		t.Fatalf("expected insufficient coins, got %v", err)
	}
	if _, err := game.Skip(context.Background(), state.SessionID); !errors.Is(err, domain.ErrInsufficientCoins) {
		t.Fatalf("expected insufficient coins, got %v", err)
	}
}

func TestGameHints(t *testing.T) {
	game, state := newTestGame(t, replyWith("<ANSWER>yes</ANSWER>"), domain.DefaultEconomy())
	ctx := context.Background()

	want := []string{"Not everyone was walking.", "Think about a funeral.", noMoreHints}
	for i, hint := range want {
		result, err := game.Hint(ctx, state.SessionID)
		if err != nil {
			t.Fatalf("hint %d: %v", i, err)
		}
		if result.Hint != hint {
			t.Fatalf("hint %d: got %q want %q", i, result.Hint, hint)
		}
		if result.State.HintsUsed != i+1 || result.State.Coins != 100-10*(i+1) {
			t.Fatalf("hint %d: unexpected state %+v", i, result.State)
		}
	}
	if _, err := game.Hint(ctx, state.SessionID); !errors.Is(err, domain.ErrHintLimitReached) {
		t.Fatalf("expected hint limit, got %v", err)
	}
}

func TestGameSkipCancelsInflightJudgment(t *testing.T) {
	invoker := blockUntilCancelled()
	game, state := newTestGame(t, invoker, domain.DefaultEconomy())
	ctx := context.Background()

	done := make(chan Turn, 1)
	errs := make(chan error, 1)
	go func() {
		turn, err := game.Guess(ctx, state.SessionID, "pallbearers carried a corpse in a coffin")
		if err != nil {
			errs <- err
			return
		}
		done <- turn
	}()

	<-invoker.started
	if game.Inflight(state.SessionID) != 1 {
		t.Fatalf("expected one in-flight judgment")
	}

	skipped, err := game.Skip(ctx, state.SessionID)
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if skipped.PuzzleIndex != 1 || skipped.Coins != 79 {
		t.Fatalf("unexpected skipped state: %+v", skipped)
	}

	select {
	case turn := <-done:
		if turn.Result.Source != SourceFallback {
			t.Fatalf("cancelled judgment should resolve through fallback, got %+v", turn.Result)
		}
		// 퍼즐이 바뀐 뒤 도착한 정답 판정은 보상하지 않는다.
		if turn.Solved || turn.State.PuzzleIndex != 1 || turn.State.Coins != 79 {
			t.Fatalf("stale verdict must not award, got %+v", turn)
		}
	case err := <-errs:
		t.Fatalf("guess: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("cancelled judgment did not return")
	}
	if game.Inflight(state.SessionID) != 0 {
		t.Fatalf("in-flight registry not cleared")
	}
}

func TestGameRestartCancelsInflightJudgment(t *testing.T) {
	invoker := blockUntilCancelled()
	game, state := newTestGame(t, invoker, domain.DefaultEconomy())
	ctx := context.Background()

	done := make(chan Turn, 1)
	errs := make(chan error, 1)
	go func() {
		// 취소되면 fallback 이 correct 를 내는 추측이다.
		turn, err := game.Guess(ctx, state.SessionID, "the dead man was in the coffin and pallbearers carry it")
		if err != nil {
			errs <- err
			return
		}
		done <- turn
	}()

	<-invoker.started
	restarted, err := game.Restart(ctx, state.SessionID)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}

	select {
	case turn := <-done:
		if turn.Result.Source != SourceFallback || turn.Result.Verdict != domain.VerdictCorrect {
			t.Fatalf("expected fallback correct for the cancelled guess, got %+v", turn.Result)
		}
		if turn.Solved || turn.Reward != 0 {
			t.Fatalf("late verdict must not award after restart, got %+v", turn)
		}
	case err := <-errs:
		t.Fatalf("guess: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("cancelled judgment did not return")
	}

	current, err := game.State(ctx, state.SessionID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if current.Coins != 100 || current.PuzzleIndex != 0 || current.PuzzlesSolved != 0 || len(current.History) != 0 {
		t.Fatalf("restarted game must stay at its initial state, got %+v", current)
	}
	if current.Round != restarted.Round || current.Round <= state.Round {
		t.Fatalf("restart should bump the round once: before=%d restarted=%d now=%d", state.Round, restarted.Round, current.Round)
	}
}

func TestGameRestartDiscardsLateAsk(t *testing.T) {
	invoker := blockUntilCancelled()
	game, state := newTestGame(t, invoker, domain.DefaultEconomy())
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = game.Ask(ctx, state.SessionID, "was it raining?")
	}()
	<-invoker.started
	if _, err := game.Restart(ctx, state.SessionID); err != nil {
		t.Fatalf("restart: %v", err)
	}
	<-done

	current, err := game.State(ctx, state.SessionID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if current.Coins != 100 || len(current.History) != 0 {
		t.Fatalf("discarded judgment changed the restarted game: %+v", current)
	}
}

func TestGameRestart(t *testing.T) {
	game, state := newTestGame(t, replyWith("<ANSWER>correct</ANSWER>"), domain.DefaultEconomy())
	ctx := context.Background()

	if _, err := game.Guess(ctx, state.SessionID, "anything"); err != nil {
		t.Fatalf("guess: %v", err)
	}
	restarted, err := game.Restart(ctx, state.SessionID)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if restarted.SessionID != state.SessionID || restarted.Coins != 100 || restarted.PuzzleIndex != 0 || len(restarted.History) != 0 {
		t.Fatalf("unexpected restarted state: %+v", restarted)
	}
}

func TestGameUnknownSession(t *testing.T) {
	game, _ := newTestGame(t, replyWith("<ANSWER>yes</ANSWER>"), domain.DefaultEconomy())
	if _, err := game.Ask(context.Background(), "missing", "hello"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := game.End(context.Background(), "missing"); err != nil {
		t.Fatalf("ending a missing session should be a no-op, got %v", err)
	}
}
