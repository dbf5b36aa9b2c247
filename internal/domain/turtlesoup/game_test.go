package turtlesoup

import (
	"errors"
	"testing"
	"time"
)

func TestEconomyReward(t *testing.T) {
	economy := DefaultEconomy()
	tests := map[int]int{
		0:   30,
		1:   30, // 0.5 은 짝수 쪽으로 반올림
		3:   32,
		20:  40,
		100: 80,
	}
	for coins, want := range tests {
		if got := economy.Reward(coins); got != want {
			t.Fatalf("Reward(%d) = %d, want %d", coins, got, want)
		}
	}

	economy.RewardBase = -50
	if got := economy.Reward(0); got != economy.MinReward {
		t.Fatalf("reward should clamp to min, got %d", got)
	}
}

func TestGameStateTransitions(t *testing.T) {
	economy := DefaultEconomy()
	state := NewGameState("s1", economy, time.Unix(0, 0))
	if state.Coins != 100 || state.PuzzleIndex != 0 {
		t.Fatalf("unexpected initial state: %+v", state)
	}

	state.HintsUsed = 2
	state.NextPuzzle()
	if state.PuzzleIndex != 1 || state.HintsUsed != 0 || state.Round != 1 {
		t.Fatalf("NextPuzzle should advance, reset hints and bump the round: %+v", state)
	}

	state.Spend(500)
	if state.Coins != 0 || !state.GameOver() {
		t.Fatalf("spending must floor at zero: %+v", state)
	}
	if err := state.CanAfford(0); !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected game over, got %v", err)
	}

	state.AddCoins(-5)
	state.AddCoins(5)
	if state.Coins != 5 {
		t.Fatalf("unexpected coins: %d", state.Coins)
	}
	if err := state.CanAfford(10); !errors.Is(err, ErrInsufficientCoins) {
		t.Fatalf("expected insufficient coins, got %v", err)
	}
	if err := state.CanAfford(5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	economy.InitialCoins = -3
	if NewGameState("s2", economy, time.Now()).Coins != 0 {
		t.Fatalf("negative initial coins should clamp to zero")
	}
}

func TestHintLimit(t *testing.T) {
	state := GameState{HintsUsed: 3}
	if !state.HintLimitReached(3) || state.HintLimitReached(4) {
		t.Fatalf("unexpected hint limit result")
	}
}

func TestGameStateRecordTrimsOldest(t *testing.T) {
	state := NewGameState("s", DefaultEconomy(), time.Unix(0, 0))
	for i := range 5 {
		state.Record(Turn{PuzzleIndex: i}, 3)
	}
	if len(state.History) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(state.History))
	}
	if state.History[0].PuzzleIndex != 2 || state.History[2].PuzzleIndex != 4 {
		t.Fatalf("unexpected history order: %+v", state.History)
	}

	unbounded := NewGameState("u", DefaultEconomy(), time.Unix(0, 0))
	for range 4 {
		unbounded.Record(Turn{}, 0)
	}
	if len(unbounded.History) != 4 {
		t.Fatalf("expected unbounded history, got %d", len(unbounded.History))
	}
}

func TestGameStateReset(t *testing.T) {
	created := time.Unix(100, 0)
	state := NewGameState("s1", DefaultEconomy(), created)
	state.Spend(40)
	state.PuzzlesSolved = 2
	state.NextPuzzle()
	state.Record(Turn{Kind: "guess"}, 10)

	state.Reset(DefaultEconomy(), time.Unix(200, 0))
	if state.SessionID != "s1" || state.Coins != 100 || state.PuzzleIndex != 0 || state.PuzzlesSolved != 0 || len(state.History) != 0 {
		t.Fatalf("reset should restore the initial state: %+v", state)
	}
	if state.Round != 2 || !state.CreatedAt.Equal(created) || !state.UpdatedAt.Equal(time.Unix(200, 0)) {
		t.Fatalf("reset should keep identity and bump the round: %+v", state)
	}
}
