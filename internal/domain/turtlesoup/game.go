package turtlesoup

import (
	"errors"
	"math"
	"time"
)

var (
	// ErrGameOver: 코인이 0 이하라 더 진행할 수 없습니다.
	ErrGameOver = errors.New("game over: no coins left")
	// ErrInsufficientCoins: 행동 비용보다 코인이 적습니다.
	ErrInsufficientCoins = errors.New("not enough coins")
	// ErrHintLimitReached: 현재 퍼즐의 힌트 사용 한도에 도달했습니다.
	ErrHintLimitReached = errors.New("hint limit reached for this puzzle")
)

// Economy: 코인 비용과 보상 규칙입니다.
type Economy struct {
	InitialCoins           int
	AskCost                int
	HintCost               int
	SkipCost               int
	MaxHintsPerPuzzle      int
	RewardBase             int
	RewardPerCoinLeftRatio float64
	MinReward              int
	MaxReward              int
}

// DefaultEconomy: 기본 경제 설정입니다.
func DefaultEconomy() Economy {
	return Economy{
		InitialCoins:           100,
		AskCost:                1,
		HintCost:               10,
		SkipCost:               20,
		MaxHintsPerPuzzle:      3,
		RewardBase:             30,
		RewardPerCoinLeftRatio: 0.5,
		MinReward:              10,
		MaxReward:              80,
	}
}

// Reward: 남은 코인 기준 정답 보상을 계산합니다. clamp(base + round(coins*ratio), min, max).
func (e Economy) Reward(coinsLeft int) int {
	bonus := int(math.RoundToEven(float64(coinsLeft) * e.RewardPerCoinLeftRatio))
	return min(max(e.RewardBase+bonus, e.MinReward), e.MaxReward)
}

// GameState: 한 플레이어 세션의 진행 상태입니다. 정답 텍스트는 담지 않습니다.
type GameState struct {
	SessionID     string    `json:"session_id"`
	Coins         int       `json:"coins"`
	PuzzleIndex   int       `json:"puzzle_index"`
	PuzzlesSolved int       `json:"puzzles_solved"`
	HintsUsed     int       `json:"hints_used"`
	// Round 는 퍼즐이 바뀌거나 재시작할 때마다 늘어난다. 늦게 도착한 판정을 걸러낸다.
	Round         int       `json:"round"`
	History       []Turn    `json:"history,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Turn: 세션 기록 한 줄입니다. 질문/추측과 판정 결과를 담습니다.
type Turn struct {
	PuzzleIndex int       `json:"puzzle_index"`
	Kind        string    `json:"kind"`
	Text        string    `json:"text"`
	Result      string    `json:"result"`
	Source      string    `json:"source"`
	At          time.Time `json:"at"`
}

// NewGameState: 초기 코인으로 새 상태를 만듭니다. 음수 초기값은 0으로 보정합니다.
func NewGameState(sessionID string, economy Economy, now time.Time) GameState {
	return GameState{
		SessionID: sessionID,
		Coins:     max(economy.InitialCoins, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Record: 기록을 추가하고 maxItems 를 넘으면 오래된 것부터 버립니다. maxItems <= 0 이면 제한 없음.
func (s *GameState) Record(turn Turn, maxItems int) {
	s.History = append(s.History, turn)
	if maxItems > 0 && len(s.History) > maxItems {
		s.History = append([]Turn(nil), s.History[len(s.History)-maxItems:]...)
	}
}

// GameOver: 코인이 0 이하인지 확인합니다.
func (s *GameState) GameOver() bool {
	return s.Coins <= 0
}

// Spend: 코인을 차감합니다. 0 미만으로 내려가지 않습니다.
func (s *GameState) Spend(amount int) {
	s.Coins = max(s.Coins-amount, 0)
}

// AddCoins: 보상을 더합니다. 음수는 무시합니다.
func (s *GameState) AddCoins(amount int) {
	s.Coins += max(amount, 0)
}

// NextPuzzle: 다음 퍼즐로 넘어가고 힌트 사용 수를 초기화합니다.
func (s *GameState) NextPuzzle() {
	s.PuzzleIndex++
	s.HintsUsed = 0
	s.Round++
}

// Reset: 초기 상태로 되돌립니다. 세션 ID 와 생성 시각은 유지하고 Round 는 계속 늘립니다.
func (s *GameState) Reset(economy Economy, now time.Time) {
	*s = GameState{
		SessionID: s.SessionID,
		Coins:     max(economy.InitialCoins, 0),
		Round:     s.Round + 1,
		CreatedAt: s.CreatedAt,
		UpdatedAt: now,
	}
}

// HintLimitReached: 현재 퍼즐 힌트 한도에 도달했는지 확인합니다.
func (s *GameState) HintLimitReached(maxHints int) bool {
	return s.HintsUsed >= maxHints
}

// CanAfford: 행동 가능 여부를 검사합니다. 게임 오버가 코인 부족보다 먼저 보고됩니다.
func (s *GameState) CanAfford(cost int) error {
	if s.GameOver() {
		return ErrGameOver
	}
	if s.Coins < cost {
		return ErrInsufficientCoins
	}
	return nil
}
