package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/park285/turtle-soup-judge/internal/llm"
)

const namespace = "turtlesoup"

// Store: 모델 호출과 판정 통계를 보관합니다.
// 원자 카운터는 /health 스냅샷용이고, 같은 값이 Prometheus 수집기에도 기록됩니다.
type Store struct {
	totalCalls           int64
	totalErrors          int64
	totalInputTokens     int64
	totalOutputTokens    int64
	totalReasoningTokens int64
	totalDurationMs      int64

	mu        sync.Mutex
	judgments map[string]int64

	registry     *prometheus.Registry
	modelCalls   *prometheus.CounterVec
	modelLatency prometheus.Histogram
	tokens       *prometheus.CounterVec
	verdicts     *prometheus.CounterVec
	guardBlocks  prometheus.Counter
}

// NewStore: 전용 레지스트리와 함께 통계 저장소를 생성합니다.
func NewStore() *Store {
	s := &Store{
		judgments: make(map[string]int64),
		registry:  prometheus.NewRegistry(),
		modelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Model invocations by outcome.",
		}, []string{"outcome"}),
		modelLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_duration_seconds",
			Help:      "Model invocation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_tokens_total",
			Help:      "Tokens consumed by model calls.",
		}, []string{"type"}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "judgments_total",
			Help:      "Judgments by interaction kind and resolving stage.",
		}, []string{"kind", "source"}),
		guardBlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_blocks_total",
			Help:      "Player inputs routed away from the model by the input guard.",
		}),
	}
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		s.modelCalls,
		s.modelLatency,
		s.tokens,
		s.verdicts,
		s.guardBlocks,
	)
	return s
}

// RecordSuccess: 성공한 모델 호출을 기록합니다.
func (s *Store) RecordSuccess(duration time.Duration, usage llm.Usage) {
	atomic.AddInt64(&s.totalCalls, 1)
	atomic.AddInt64(&s.totalInputTokens, int64(usage.InputTokens))
	atomic.AddInt64(&s.totalOutputTokens, int64(usage.OutputTokens))
	atomic.AddInt64(&s.totalReasoningTokens, int64(usage.ReasoningTokens))
	atomic.AddInt64(&s.totalDurationMs, duration.Milliseconds())

	s.modelCalls.WithLabelValues("ok").Inc()
	s.modelLatency.Observe(duration.Seconds())
	s.tokens.WithLabelValues("input").Add(float64(usage.InputTokens))
	s.tokens.WithLabelValues("output").Add(float64(usage.OutputTokens))
	s.tokens.WithLabelValues("reasoning").Add(float64(usage.ReasoningTokens))
}

// RecordError: 실패한 모델 호출을 기록합니다.
func (s *Store) RecordError(duration time.Duration) {
	atomic.AddInt64(&s.totalCalls, 1)
	atomic.AddInt64(&s.totalErrors, 1)
	atomic.AddInt64(&s.totalDurationMs, duration.Milliseconds())

	s.modelCalls.WithLabelValues("error").Inc()
	s.modelLatency.Observe(duration.Seconds())
}

// RecordJudgment: 판정 결과가 어느 단계에서 확정됐는지 기록합니다.
func (s *Store) RecordJudgment(kind string, source string) {
	s.mu.Lock()
	s.judgments[source]++
	s.mu.Unlock()
	s.verdicts.WithLabelValues(kind, source).Inc()
	if source == "guard" {
		s.guardBlocks.Inc()
	}
}

// UsageTotals: 누적 토큰 사용량을 반환합니다.
func (s *Store) UsageTotals() llm.Usage {
	input := atomic.LoadInt64(&s.totalInputTokens)
	output := atomic.LoadInt64(&s.totalOutputTokens)
	reasoning := atomic.LoadInt64(&s.totalReasoningTokens)
	return llm.Usage{
		InputTokens:     int(input),
		OutputTokens:    int(output),
		TotalTokens:     int(input + output),
		ReasoningTokens: int(reasoning),
	}
}

// Snapshot: 헬스 응답용 통계 스냅샷을 반환합니다.
func (s *Store) Snapshot() map[string]float64 {
	totalCalls := atomic.LoadInt64(&s.totalCalls)
	totalErrors := atomic.LoadInt64(&s.totalErrors)
	usage := s.UsageTotals()
	durationMs := atomic.LoadInt64(&s.totalDurationMs)

	avgDuration := 0.0
	if totalCalls > 0 {
		avgDuration = float64(durationMs) / float64(totalCalls)
	}

	snapshot := map[string]float64{
		"total_calls":            float64(totalCalls),
		"total_errors":           float64(totalErrors),
		"total_input_tokens":     float64(usage.InputTokens),
		"total_output_tokens":    float64(usage.OutputTokens),
		"total_reasoning_tokens": float64(usage.ReasoningTokens),
		"total_tokens":           float64(usage.TotalTokens),
		"total_duration_ms":      float64(durationMs),
		"avg_duration_ms":        avgDuration,
	}

	s.mu.Lock()
	for source, count := range s.judgments {
		snapshot["judgments_"+source] = float64(count)
	}
	s.mu.Unlock()
	return snapshot
}

// Handler: Prometheus 노출 핸들러입니다.
func (s *Store) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}

// Registry: 추가 수집기 등록용 레지스트리입니다.
func (s *Store) Registry() *prometheus.Registry {
	return s.registry
}
