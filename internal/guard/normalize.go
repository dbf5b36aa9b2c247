package guard

import (
	"encoding/base64"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/forPelevin/gomoji"
	"github.com/mtibben/confusables"
	"github.com/ymw0407/jamo/pkg/jamo"
	"golang.org/x/text/unicode/norm"
)

var jamoTable = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x1100, Hi: 0x11FF, Stride: 1},
		{Lo: 0x3130, Hi: 0x318F, Stride: 1},
		{Lo: 0xA960, Hi: 0xA97F, Stride: 1},
		{Lo: 0xD7B0, Hi: 0xD7FF, Stride: 1},
	},
}

var hangulSyllables = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0xAC00, Hi: 0xD7A3, Stride: 1}},
}

var base64Run = regexp.MustCompile(`[A-Za-z0-9+/_-]{20,}={0,2}`)

// normalize 는 규칙 매칭 전에 우회 표기를 걷어낸다.
// 이모지 제거, 자모 조합, NFC, 한글 외 문자의 homoglyph skeleton + NFKC, 제어문자 제거 순서다.
// skeleton 은 대문자 I 를 l 로 접으므로 먼저 소문자로 바꾼다.
func normalize(text string) string {
	text = gomoji.RemoveEmojis(text)
	text = composeJamo(text)
	if isASCII(text) {
		return stripControl(text)
	}
	return stripControl(skeletonOutsideHangul(strings.ToLower(norm.NFC.String(text))))
}

func isASCII(text string) bool {
	for i := 0; i < len(text); i++ {
		if text[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}

func isKorean(r rune) bool {
	return unicode.Is(hangulSyllables, r) || unicode.Is(jamoTable, r)
}

func skeletonOutsideHangul(text string) string {
	var out, pending strings.Builder
	out.Grow(len(text))
	flush := func() {
		if pending.Len() == 0 {
			return
		}
		out.WriteString(norm.NFKC.String(confusables.Skeleton(pending.String())))
		pending.Reset()
	}
	for _, r := range text {
		if isKorean(r) {
			flush()
			out.WriteRune(r)
			continue
		}
		pending.WriteRune(r)
	}
	flush()
	return out.String()
}

func stripControl(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Cf, r) || (unicode.Is(unicode.Cc, r) && !unicode.IsSpace(r)) {
			return -1
		}
		return r
	}, text)
}

// composeJamo 는 연속된 자모를 완성형으로 조합한다. 실패하면 원문을 둔다.
func composeJamo(text string) string {
	var out, run strings.Builder
	flush := func() {
		if run.Len() == 0 {
			return
		}
		composed, err := jamo.ComposeHangeul(run.String())
		if err == nil && len(composed) > 0 {
			out.WriteString(composed[0])
		} else {
			out.WriteString(run.String())
		}
		run.Reset()
	}
	for _, r := range text {
		if unicode.Is(jamoTable, r) {
			run.WriteRune(r)
			continue
		}
		flush()
		out.WriteRune(r)
	}
	flush()
	return out.String()
}

// jamoOnly 는 완성형 없이 자모(와 공백/숫자/구두점)만으로 된 입력인지 본다.
func jamoOnly(text string) bool {
	hasJamo := false
	for _, r := range strings.TrimSpace(text) {
		switch {
		case unicode.Is(jamoTable, r):
			hasJamo = true
		case unicode.IsSpace(r), unicode.IsDigit(r), unicode.IsPunct(r):
		default:
			return false
		}
	}
	return hasJamo
}

// hiddenBase64 는 읽을 수 있는 텍스트로 디코딩되는 base64 덩어리가 있는지 본다.
func hiddenBase64(text string) bool {
	for _, run := range base64Run.FindAllString(text, -1) {
		decoded, ok := decodeLooseBase64(run)
		if ok && readable(decoded) {
			return true
		}
	}
	return false
}

func decodeLooseBase64(s string) ([]byte, bool) {
	s = strings.NewReplacer("-", "+", "_", "/").Replace(strings.TrimRight(s, "="))
	decoded, err := base64.RawStdEncoding.DecodeString(s)
	if err != nil {
		return nil, false
	}
	return decoded, true
}

// readable 은 유효한 UTF-8 이고 90% 넘게 출력 가능한 문자인지 확인한다.
func readable(data []byte) bool {
	if len(data) == 0 || !utf8.Valid(data) {
		return false
	}
	total, printable := 0, 0
	for _, r := range string(data) {
		total++
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	return printable*100 > total*90
}
