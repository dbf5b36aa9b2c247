package turtlesoup

import (
	"strings"
	"unicode/utf8"
)

const (
	answerOpen    = "<ANSWER>"
	answerClose   = "</ANSWER>"
	thinkOpen     = "<think>"
	thinkClose    = "</think>"
	echoPrefixLen = 40
	echoMaxDelta  = 40
)

// 채팅 템플릿이 새어 나온 토큰. 판정 전에 제거한다.
var chatMarkers = []string{"<im_start>", "</im_start>", "<im_end>", "</im_end>"}

// ParseResponse: 모델 원문에서 판정 라벨을 추출합니다.
// prompt 는 에코 판별에 쓰는 송신 요청입니다. 쓸 수 있는 라벨이 없으면 false 를 반환하며,
// 기본값 적용은 호출자 책임입니다.
func ParseResponse(raw string, prompt string, kind Kind) (Verdict, bool) {
	if IsPromptEcho(raw, prompt) {
		return "", false
	}

	if tagged, ok := ExtractTagged(raw, answerOpen, answerClose); ok && tagged != "" {
		return NormalizeLabel(tagged, kind)
	}

	return ExtractJudgement(raw, kind)
}

// ExtractTagged: 대소문자 무시로 첫 open 과 그 뒤 첫 close 사이 문자열을 소문자, trim 해서 반환합니다.
func ExtractTagged(text string, open string, close string) (string, bool) {
	start := indexFold(text, open, 0)
	if start < 0 {
		return "", false
	}
	contentStart := start + len(open)
	end := indexFold(text, close, contentStart)
	if end < 0 {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(text[contentStart:end])), true
}

// StripReasoning: 첫 <think>...</think> 구간과 채팅 템플릿 마커를 제거합니다.
func StripReasoning(text string) string {
	if start := indexFold(text, thinkOpen, 0); start >= 0 {
		if end := indexFold(text, thinkClose, start+len(thinkOpen)); end >= 0 {
			text = text[:start] + text[end+len(thinkClose):]
		}
	}
	for _, marker := range chatMarkers {
		text = replaceFold(text, marker)
	}
	return text
}

// ExtractJudgement: 태그가 없는 응답에서 마지막 줄 위주로 라벨을 찾습니다.
//  1. 마지막 줄 첫 토큰이 라벨과 정확히 일치
//  2. 마지막 줄에 라벨이 포함(선언 순서)
//  3. 전체 텍스트에 라벨이 포함(선언 순서)
func ExtractJudgement(raw string, kind Kind) (Verdict, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}

	text := StripReasoning(raw)
	lastLine := lastNonEmptyLine(text)

	if fields := strings.Fields(lastLine); len(fields) > 0 {
		first := Verdict(strings.ToLower(fields[0]))
		if kind.Allows(first) {
			return first, true
		}
	}

	if v, ok := containedVerdict(strings.ToLower(lastLine), kind); ok {
		return v, true
	}
	return containedVerdict(strings.ToLower(text), kind)
}

// IsPromptEcho: 응답이 비었거나 송신 프롬프트를 거의 그대로 되돌린 것인지 판별합니다.
// 앞 40자가 (대소문자 무시) 같고 길이 차이가 40자 미만이면 에코로 봅니다.
func IsPromptEcho(reply string, prompt string) bool {
	r := strings.TrimSpace(reply)
	if r == "" {
		return true
	}
	p := strings.TrimSpace(prompt)
	if p == "" {
		return false
	}

	prefix := runePrefix(p, echoPrefixLen)
	head := runePrefix(r, utf8.RuneCountInString(prefix))
	if !strings.EqualFold(head, prefix) {
		return false
	}

	delta := utf8.RuneCountInString(r) - utf8.RuneCountInString(p)
	if delta < 0 {
		delta = -delta
	}
	return delta < echoMaxDelta
}

func lastNonEmptyLine(text string) string {
	lines := strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == '\r' })
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return strings.TrimSpace(text)
}

func runePrefix(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// indexFold 는 ASCII 패턴 sub 를 from 이후에서 대소문자 무시로 찾는다.
func indexFold(s string, sub string, from int) int {
	n := len(sub)
	for i := from; i+n <= len(s); i++ {
		if strings.EqualFold(s[i:i+n], sub) {
			return i
		}
	}
	return -1
}

func replaceFold(s string, sub string) string {
	for {
		idx := indexFold(s, sub, 0)
		if idx < 0 {
			return s
		}
		s = s[:idx] + s[idx+len(sub):]
	}
}
