package turtlesoup

import "strings"

const (
	MinDifficulty     = 1
	MaxDifficulty     = 5
	DefaultDifficulty = 3
)

// Puzzle: 바다거북 수프 퍼즐 한 건입니다. Answer 는 플레이어에게 직접 노출하지 않습니다.
type Puzzle struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Opening    string   `json:"opening"`
	Answer     string   `json:"answer"`
	Facts      []string `json:"facts"`
	Hints      []string `json:"hints"`
	Difficulty int      `json:"difficulty"`
}

// Provider: 인덱스로 퍼즐을 제공하는 컬렉션입니다.
type Provider interface {
	Count() int
	// GetByIndex 는 인덱스를 [0, Count-1]로 보정한다. 비어 있으면 nil.
	GetByIndex(index int) *Puzzle
}

// PublicPuzzle: 플레이어에게 보여도 되는 퍼즐 정보입니다.
type PublicPuzzle struct {
	Index      int    `json:"index"`
	ID         string `json:"id"`
	Title      string `json:"title"`
	Opening    string `json:"opening"`
	Difficulty int    `json:"difficulty"`
	HintCount  int    `json:"hint_count"`
}

// Public: 정답, 사실 목록을 뺀 공개 뷰를 만듭니다.
func (p *Puzzle) Public(index int) PublicPuzzle {
	return PublicPuzzle{
		Index:      index,
		ID:         p.ID,
		Title:      p.Title,
		Opening:    p.Opening,
		Difficulty: p.Difficulty,
		HintCount:  len(p.Hints),
	}
}

// UsableFacts: 공백이 아닌 사실만 trim 해서 반환합니다.
func (p *Puzzle) UsableFacts() []string {
	out := make([]string, 0, len(p.Facts))
	for _, fact := range p.Facts {
		if trimmed := strings.TrimSpace(fact); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// HasFactContaining: 사실 중 하나라도 keyword 를 (대소문자 무시) 포함하는지 확인합니다.
func (p *Puzzle) HasFactContaining(keyword string) bool {
	needle := strings.ToLower(keyword)
	for _, fact := range p.Facts {
		if strings.TrimSpace(fact) == "" {
			continue
		}
		if strings.Contains(strings.ToLower(fact), needle) {
			return true
		}
	}
	return false
}

// ClampDifficulty: 난이도를 1..5로 보정합니다. 0 이하는 기본값 3.
func ClampDifficulty(difficulty int) int {
	if difficulty <= 0 {
		return DefaultDifficulty
	}
	return min(max(difficulty, MinDifficulty), MaxDifficulty)
}
