package turtlesoup

import "strings"

// Kind: 플레이어 입력 종류(질문/추리)입니다.
type Kind int

const (
	KindQuestion Kind = iota
	KindGuess
)

// KindOf: isGuess 플래그를 Kind로 변환합니다.
func KindOf(isGuess bool) Kind {
	if isGuess {
		return KindGuess
	}
	return KindQuestion
}

// IsGuess: 추리 입력인지 확인합니다.
func (k Kind) IsGuess() bool {
	return k == KindGuess
}

func (k Kind) String() string {
	if k == KindGuess {
		return "guess"
	}
	return "question"
}

// Role: 프롬프트의 PLAYER_ 라벨에 쓰이는 이름입니다.
func (k Kind) Role() string {
	if k == KindGuess {
		return "GUESS"
	}
	return "QUESTION"
}

// Verdict: 판정 라벨입니다.
type Verdict string

const (
	VerdictYes        Verdict = "yes"
	VerdictNo         Verdict = "no"
	VerdictIrrelevant Verdict = "irrelevant"

	VerdictCorrect Verdict = "correct"
	VerdictClose   Verdict = "close"
	VerdictWrong   Verdict = "wrong"
)

// 선언 순서가 곧 매칭 우선순위다.
var (
	questionVerdicts = []Verdict{VerdictYes, VerdictNo, VerdictIrrelevant}
	guessVerdicts    = []Verdict{VerdictCorrect, VerdictClose, VerdictWrong}
)

// Verdicts: 입력 종류에 허용되는 라벨을 우선순위 순서로 반환합니다.
func (k Kind) Verdicts() []Verdict {
	if k == KindGuess {
		return append([]Verdict(nil), guessVerdicts...)
	}
	return append([]Verdict(nil), questionVerdicts...)
}

// Default: 모든 단계가 실패했을 때의 최종 기본 라벨입니다.
func (k Kind) Default() Verdict {
	if k == KindGuess {
		return VerdictWrong
	}
	return VerdictIrrelevant
}

// Allows: 라벨이 이 입력 종류의 집합에 속하는지 확인합니다.
func (k Kind) Allows(v Verdict) bool {
	for _, allowed := range k.labels() {
		if allowed == v {
			return true
		}
	}
	return false
}

// IsVerdict: 문자열이 어느 한 쪽 라벨 집합에 속하는지 확인합니다.
func IsVerdict(value string) bool {
	v := Verdict(value)
	return KindQuestion.Allows(v) || KindGuess.Allows(v)
}

// NormalizeLabel: 후보 문자열을 포함 관계로 정규 라벨에 매핑합니다.
// "the answer is yes" 같은 입력도 yes가 됩니다. 매칭이 없으면 false.
func NormalizeLabel(label string, kind Kind) (Verdict, bool) {
	candidate := strings.ToLower(strings.TrimSpace(label))
	if candidate == "" {
		return "", false
	}
	return containedVerdict(candidate, kind)
}

func (k Kind) labels() []Verdict {
	if k == KindGuess {
		return guessVerdicts
	}
	return questionVerdicts
}

// containedVerdict 는 lower 에 포함된 첫 라벨을 선언 순서로 찾는다. lower 는 이미 소문자여야 한다.
func containedVerdict(lower string, kind Kind) (Verdict, bool) {
	for _, v := range kind.labels() {
		if strings.Contains(lower, string(v)) {
			return v, true
		}
	}
	return "", false
}
