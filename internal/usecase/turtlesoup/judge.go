package turtlesoup

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/park285/turtle-soup-judge/internal/cache"
	domain "github.com/park285/turtle-soup-judge/internal/domain/turtlesoup"
	"github.com/park285/turtle-soup-judge/internal/llm"
)

// 검증 단계에서 돌려주는 시스템 메시지입니다. 판정 라벨과 겹치지 않습니다.
const (
	MessageNotConfigured = "(LLM not configured)"
	MessageNoPuzzle      = "(No puzzle loaded)"
	MessageEmptyInput    = "(Please type something)"
)

const judgeTask = "judge"

// Source: 판정이 어느 단계에서 확정됐는지 나타냅니다.
type Source string

const (
	SourceModel    Source = "model"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
	SourceGuard    Source = "guard"
	SourceDefault  Source = "default"
	SourceRejected Source = "rejected"
)

// Result: 판정 결과입니다. IsVerdict 가 false 면 Text 는 시스템 메시지입니다.
type Result struct {
	Text      string
	Verdict   domain.Verdict
	Source    Source
	IsVerdict bool
}

func verdictResult(v domain.Verdict, source Source) Result {
	return Result{Text: string(v), Verdict: v, Source: source, IsVerdict: true}
}

func rejected(message string) Result {
	return Result{Text: message, Source: SourceRejected}
}

// InputGuard: 모델로 보내면 안 되는 입력을 걸러냅니다.
type InputGuard interface {
	IsMalicious(input string) bool
}

// JudgmentRecorder: 판정 단계별 집계를 받습니다.
type JudgmentRecorder interface {
	RecordJudgment(kind string, source string)
}

// FallbackLedger: 규칙 기반 판정 횟수를 원장에 남깁니다.
type FallbackLedger interface {
	RecordFallback(ctx context.Context)
}

// JudgeOptions: 판정기 부가 구성입니다. 모두 선택 사항입니다.
type JudgeOptions struct {
	Guard           InputGuard
	Metrics         JudgmentRecorder
	Ledger          FallbackLedger
	MaxOutputTokens int
	Stream          bool
	// CacheSize 와 CacheTTL 이 모두 양수일 때만 모델 판정을 캐시한다.
	CacheSize int
	CacheTTL  time.Duration
}

// Judge: 한 번의 질문/추측을 판정하는 오케스트레이터입니다.
// Validating -> Querying -> Parsing -> Resolved 순서로 진행하며 오류를 호출자에게 올리지 않습니다.
type Judge struct {
	invoker  llm.Invoker
	provider domain.Provider
	builder  *domain.PromptBuilder
	opts     JudgeOptions
	verdicts *cache.TTLCache[string, domain.Verdict]
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewJudge: 판정기를 생성합니다. invoker 가 nil 이면 모든 판정은 미설정 메시지로 끝납니다.
func NewJudge(invoker llm.Invoker, provider domain.Provider, builder *domain.PromptBuilder, opts JudgeOptions, logger *slog.Logger) *Judge {
	if logger == nil {
		logger = slog.Default()
	}
	j := &Judge{
		invoker:  invoker,
		provider: provider,
		builder:  builder,
		opts:     opts,
		logger:   logger,
		tracer:   otel.Tracer("github.com/park285/turtle-soup-judge/internal/usecase/turtlesoup"),
	}
	if opts.CacheSize > 0 && opts.CacheTTL > 0 {
		j.verdicts = cache.NewTTLCache[string, domain.Verdict](opts.CacheSize, opts.CacheTTL)
	}
	return j
}

// Provider: 판정기가 쓰는 퍼즐 제공자입니다.
func (j *Judge) Provider() domain.Provider {
	return j.provider
}

// Configured: 모델 호출자가 연결돼 있는지 반환합니다.
func (j *Judge) Configured() bool {
	return j.invoker != nil && j.builder != nil
}

// JudgeAt: 제공자의 index 번째 퍼즐로 판정합니다. index 는 범위 안으로 보정됩니다.
func (j *Judge) JudgeAt(ctx context.Context, index int, text string, isGuess bool) Result {
	var puzzle *domain.Puzzle
	if j.provider != nil {
		puzzle = j.provider.GetByIndex(index)
	}
	return j.Judge(ctx, puzzle, text, isGuess)
}

// Judge: 퍼즐과 플레이어 입력을 받아 판정 하나 또는 시스템 메시지 하나를 반환합니다.
func (j *Judge) Judge(ctx context.Context, puzzle *domain.Puzzle, text string, isGuess bool) Result {
	kind := domain.KindOf(isGuess)

	if !j.Configured() {
		return rejected(MessageNotConfigured)
	}
	if puzzle == nil {
		return rejected(MessageNoPuzzle)
	}
	if strings.TrimSpace(text) == "" {
		return rejected(MessageEmptyInput)
	}

	ctx, span := j.tracer.Start(ctx, "turtlesoup.judge", trace.WithAttributes(
		attribute.String("puzzle.id", puzzle.ID),
		attribute.String("judge.kind", kind.String()),
	))
	defer span.End()

	result := j.resolve(ctx, puzzle, text, kind)
	span.SetAttributes(
		attribute.String("judge.verdict", string(result.Verdict)),
		attribute.String("judge.source", string(result.Source)),
	)
	if j.opts.Metrics != nil {
		j.opts.Metrics.RecordJudgment(kind.String(), string(result.Source))
	}
	return result
}

func (j *Judge) resolve(ctx context.Context, puzzle *domain.Puzzle, text string, kind domain.Kind) Result {
	if j.opts.Guard != nil && j.opts.Guard.IsMalicious(text) {
		return j.fallback(ctx, puzzle, text, kind, SourceGuard)
	}

	cacheKey := verdictCacheKey(puzzle, text, kind)
	if j.verdicts != nil {
		if cached, ok := j.verdicts.Get(cacheKey); ok {
			return verdictResult(cached, SourceCache)
		}
	}

	// Querying
	prompt := j.builder.Build(puzzle, text, kind)
	completion, err := j.invoker.Complete(ctx, llm.Request{
		Prompt:          prompt,
		Task:            judgeTask,
		MaxOutputTokens: j.opts.MaxOutputTokens,
		Stream:          j.opts.Stream,
	})
	if err != nil {
		j.logger.Warn("model_call_failed",
			"puzzle_id", puzzle.ID,
			"kind", kind.String(),
			"cancelled", errors.Is(err, context.Canceled),
			"err", err,
		)
		return j.fallback(ctx, puzzle, text, kind, SourceFallback)
	}

	// Parsing
	verdict, ok := domain.ParseResponse(completion.Text, prompt, kind)
	if !ok {
		j.logger.Debug("judge_unparseable",
			"puzzle_id", puzzle.ID,
			"kind", kind.String(),
			"raw", truncate(completion.Text, 80),
		)
		return j.fallback(ctx, puzzle, text, kind, SourceFallback)
	}

	if j.verdicts != nil {
		j.verdicts.Set(cacheKey, verdict)
	}
	return verdictResult(verdict, SourceModel)
}

func (j *Judge) fallback(ctx context.Context, puzzle *domain.Puzzle, text string, kind domain.Kind, source Source) Result {
	if j.opts.Ledger != nil {
		j.opts.Ledger.RecordFallback(ctx)
	}
	verdict := domain.FallbackJudge(puzzle, text, kind)
	if !kind.Allows(verdict) {
		return verdictResult(kind.Default(), SourceDefault)
	}
	j.logger.Debug("judge_fallback", "puzzle_id", puzzle.ID, "kind", kind.String(), "verdict", verdict, "source", source)
	return verdictResult(verdict, source)
}

// verdictCacheKey: 퍼즐, 종류, 공백/대소문자 정규화된 입력으로 키를 만듭니다.
func verdictCacheKey(puzzle *domain.Puzzle, text string, kind domain.Kind) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	return puzzle.ID + "\x00" + kind.String() + "\x00" + normalized
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
