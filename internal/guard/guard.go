package guard

import (
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/park285/turtle-soup-judge/internal/cache"
	"github.com/park285/turtle-soup-judge/internal/config"
)

// Match: 매칭된 규칙 정보를 담습니다.
type Match struct {
	ID     string  `json:"id"`
	Weight float64 `json:"weight"`
}

// Evaluation: 검사 결과를 담습니다.
type Evaluation struct {
	Score     float64 `json:"score"`
	Hits      []Match `json:"hits"`
	Threshold float64 `json:"threshold"`
}

// Malicious: 점수가 임계값 이상인지 반환합니다.
func (e Evaluation) Malicious() bool {
	return e.Score >= e.Threshold
}

// Screener: 플레이어 입력이 모델로 가기 전에 프롬프트 주입 여부를 검사합니다.
type Screener struct {
	enabled   bool
	threshold float64
	logger    *slog.Logger
	packs     []compiledPack
	cache     *cache.TTLCache[string, Evaluation]
	group     singleflight.Group
}

// New: 내장 룰팩과 cfg.RulepacksDir 의 룰팩을 읽어 Screener 를 생성합니다.
func New(cfg config.GuardConfig, logger *slog.Logger) *Screener {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Screener{
		enabled: cfg.Enabled,
		logger:  logger,
		cache:   cache.NewTTLCache[string, Evaluation](cfg.CacheMaxSize, time.Duration(cfg.CacheTTLSeconds)*time.Second),
	}
	if !s.enabled {
		return s
	}

	s.packs = loadRulepacks(embeddedRulepacks, "rulepacks", logger)
	if dir := strings.TrimSpace(cfg.RulepacksDir); dir != "" {
		s.packs = append(s.packs, loadRulepacks(os.DirFS(dir), ".", logger)...)
	}
	s.threshold = cfg.Threshold
	if s.threshold <= 0 {
		s.threshold = s.maxPackThreshold()
	}
	logger.Info("guard_ready", "packs", len(s.packs), "threshold", s.threshold)
	return s
}

// Evaluate: 입력 문자열을 평가합니다. 같은 입력은 캐시와 singleflight 로 한 번만 계산합니다.
func (s *Screener) Evaluate(input string) Evaluation {
	if s == nil || !s.enabled {
		return Evaluation{Threshold: math.Inf(1)}
	}
	if cached, ok := s.cache.Get(input); ok {
		return cached
	}

	value, _, _ := s.group.Do(input, func() (any, error) {
		evaluation := s.evaluate(input)
		s.cache.Set(input, evaluation)
		return evaluation, nil
	})
	return value.(Evaluation)
}

// Enabled: 검사가 켜져 있는지 반환합니다.
func (s *Screener) Enabled() bool {
	return s != nil && s.enabled
}

// IsMalicious: 입력이 차단 대상인지 반환합니다.
func (s *Screener) IsMalicious(input string) bool {
	evaluation := s.Evaluate(input)
	if evaluation.Malicious() {
		s.logger.Warn("guard_blocked",
			"score", evaluation.Score,
			"threshold", evaluation.Threshold,
			"hits", hitIDs(evaluation.Hits),
			"input", trimForLog(input),
		)
		return true
	}
	return false
}

func (s *Screener) evaluate(input string) Evaluation {
	if jamoOnly(input) {
		return s.blockedBy("jamo_only")
	}
	if hiddenBase64(input) {
		return s.blockedBy("base64_payload")
	}

	text := normalize(input)
	var total float64
	var hits []Match
	for _, pack := range s.packs {
		score, packHits := pack.score(text)
		total += score
		hits = append(hits, packHits...)
	}
	return Evaluation{Score: total, Hits: hits, Threshold: s.threshold}
}

func (s *Screener) blockedBy(id string) Evaluation {
	return Evaluation{
		Score:     s.threshold,
		Hits:      []Match{{ID: id, Weight: s.threshold}},
		Threshold: s.threshold,
	}
}

func (s *Screener) maxPackThreshold() float64 {
	threshold := 0.0
	for _, pack := range s.packs {
		threshold = max(threshold, pack.Threshold)
	}
	if threshold <= 0 {
		return defaultPackThreshold
	}
	return threshold
}

func hitIDs(hits []Match) []string {
	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.ID)
	}
	return ids
}

func trimForLog(value string) string {
	value = strings.TrimSpace(value)
	if len([]rune(value)) <= 50 {
		return value
	}
	return string([]rune(value)[:50])
}
