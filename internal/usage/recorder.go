package usage

import (
	"context"
	"log/slog"
	"time"

	"github.com/park285/turtle-soup-judge/internal/config"
)

// Recorder 는 판정 단위 사용량을 원장에 바로 쓰거나 배치로 적재한다.
// nil Recorder 는 아무것도 기록하지 않는다.
type Recorder struct {
	ledger  Ledger
	batcher *batcher
	logger  *slog.Logger
}

// NewRecorder 는 설정에 따라 배치 사용 여부를 결정해 Recorder를 생성한다.
func NewRecorder(cfg config.DatabaseConfig, ledger Ledger, logger *slog.Logger) *Recorder {
	recorder := &Recorder{
		ledger: ledger,
		logger: logger,
	}

	if cfg.UsageBatchEnabled && ledger != nil {
		recorder.batcher = newBatcher(cfg, ledger, logger)
		recorder.batcher.start()
		if logger != nil {
			logger.Info(
				"usage_db_batch_enabled",
				"flush_interval_seconds", cfg.UsageBatchFlushIntervalSeconds,
				"flush_timeout_seconds", cfg.UsageBatchFlushTimeoutSeconds,
				"max_pending", cfg.UsageBatchMaxPending,
			)
		}
	}

	return recorder
}

// Record 는 모델 호출 1회의 토큰 사용량을 기록한다.
func (r *Recorder) Record(ctx context.Context, inputTokens int64, outputTokens int64, reasoningTokens int64) {
	r.add(ctx, Delta{
		InputTokens:     inputTokens,
		OutputTokens:    outputTokens,
		ReasoningTokens: reasoningTokens,
		ModelCalls:      1,
	})
}

// RecordFallback 은 규칙 기반 판정으로 끝난 판정 1회를 기록한다.
func (r *Recorder) RecordFallback(ctx context.Context) {
	r.add(ctx, Delta{Fallbacks: 1})
}

func (r *Recorder) add(ctx context.Context, delta Delta) {
	if r == nil || r.ledger == nil || delta.Empty() {
		return
	}

	if r.batcher != nil {
		r.batcher.add(delta)
		return
	}

	if err := r.ledger.AddUsage(context.WithoutCancel(ctx), delta, time.Time{}); err != nil {
		if r.logger != nil {
			r.logger.Warn("usage_db_save_failed", "err", err)
		}
	}
}

// Close 는 배치 플러셔를 중지하고 남은 사용량을 플러시한다.
func (r *Recorder) Close() {
	if r == nil || r.batcher == nil {
		return
	}
	r.batcher.stop()
}
