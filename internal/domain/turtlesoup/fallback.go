package turtlesoup

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// 추리 판정용 키워드 그룹. 세 그룹 모두 언급하면 correct.
var guessKeywordGroups = [][]string{
	{"coffin"},
	{"corpse", "dead"},
	{"pallbearer", "carry"},
}

// seedRule 은 관 속 시신 퍼즐 전용 문구 규칙이다. 모든 all 항목과 any 중 하나가 포함되면 발동한다.
type seedRule struct {
	all     []string
	any     []string
	verdict Verdict
}

// 순서대로 검사하고 먼저 맞는 규칙이 이긴다.
var seedQuestionRules = []seedRule{
	{any: []string{"alive", "still alive", "living"}, verdict: VerdictNo},
	{any: []string{"dead", "a corpse"}, verdict: VerdictYes},
	{all: []string{"inside"}, any: []string{"coffin", "box"}, verdict: VerdictYes},
	{all: []string{"outside", "coffin"}, verdict: VerdictNo},
	{any: []string{"wet", "drenched", "get wet", "got wet"}, verdict: VerdictNo},
	{any: []string{"dry", "stay dry", "completely dry"}, verdict: VerdictYes},
	{any: []string{"walking", "walk by himself"}, verdict: VerdictNo},
	{any: []string{"umbrella"}, verdict: VerdictIrrelevant},
	{all: []string{"all five"}, any: []string{"alive", "living"}, verdict: VerdictNo},
}

const (
	minKeywordRunes    = 4
	minFactKeywordHits = 2
	keywordPunctuation = "?,.!"
)

// FallbackJudge: 모델 없이 사실 목록과 키워드만으로 판정합니다. 항상 해당 집합의 라벨을 반환합니다.
func FallbackJudge(puzzle *Puzzle, text string, kind Kind) Verdict {
	q := strings.ToLower(text)

	if kind.IsGuess() {
		return judgeGuess(q)
	}

	if puzzle == nil {
		return VerdictIrrelevant
	}

	if IsSeedPuzzle(puzzle) {
		for _, rule := range seedQuestionRules {
			if rule.matches(q) {
				return rule.verdict
			}
		}
	}

	if factsMentionKeywords(puzzle, q) {
		return VerdictYes
	}
	return VerdictIrrelevant
}

// IsSeedPuzzle: 사실 목록에 corpse 와 coffin 이 모두 등장하는 퍼즐인지 확인합니다.
func IsSeedPuzzle(puzzle *Puzzle) bool {
	return puzzle.HasFactContaining("corpse") && puzzle.HasFactContaining("coffin")
}

func judgeGuess(q string) Verdict {
	hits := 0
	for _, group := range guessKeywordGroups {
		if containsAny(q, group) {
			hits++
		}
	}
	switch {
	case hits == len(guessKeywordGroups):
		return VerdictCorrect
	case hits > 0:
		return VerdictClose
	default:
		return VerdictWrong
	}
}

func (r seedRule) matches(q string) bool {
	for _, term := range r.all {
		if !strings.Contains(q, term) {
			return false
		}
	}
	if len(r.any) == 0 {
		return true
	}
	return containsAny(q, r.any)
}

// factsMentionKeywords 는 질문의 긴 토큰(4자 이상)이 한 사실 안에 2개 이상 등장하는지 본다.
func factsMentionKeywords(puzzle *Puzzle, q string) bool {
	words := strings.FieldsFunc(q, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(keywordPunctuation, r)
	})
	for _, fact := range puzzle.Facts {
		if strings.TrimSpace(fact) == "" {
			continue
		}
		lowerFact := strings.ToLower(fact)
		hits := 0
		for _, w := range words {
			if utf8.RuneCountInString(w) < minKeywordRunes {
				continue
			}
			if strings.Contains(lowerFact, w) {
				hits++
			}
		}
		if hits >= minFactKeywordHits {
			return true
		}
	}
	return false
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
