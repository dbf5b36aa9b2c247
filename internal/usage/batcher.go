package usage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/park285/turtle-soup-judge/internal/config"
)

const (
	defaultFlushTimeout = 5 * time.Second
	maxBackoffFactor    = 8
)

// batcher 는 판정 사용량을 배치로 DB에 플러시한다.
type batcher struct {
	ledger                   Ledger
	logger                   *slog.Logger
	flushInterval            time.Duration
	flushTimeout             time.Duration
	maxPending               int64
	maxBackoff               time.Duration
	now                      func() time.Time
	mu                       sync.Mutex
	pending                  map[time.Time]*Delta
	pendingEvents            int64
	wakeup                   chan struct{}
	stopCh                   chan struct{}
	doneCh                   chan struct{}
	stopOnce                 sync.Once
	consecutiveFlushFailures int
	nextFlushAllowedAt       time.Time
}

func newBatcher(cfg config.DatabaseConfig, ledger Ledger, logger *slog.Logger) *batcher {
	interval := time.Duration(cfg.UsageBatchFlushIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	flushTimeout := defaultFlushTimeout
	if cfg.UsageBatchFlushTimeoutSeconds > 0 {
		flushTimeout = time.Duration(cfg.UsageBatchFlushTimeoutSeconds) * time.Second
	}
	maxPending := int64(cfg.UsageBatchMaxPending)
	if maxPending <= 0 {
		maxPending = 1
	}
	return &batcher{
		ledger:        ledger,
		logger:        logger,
		flushInterval: interval,
		flushTimeout:  flushTimeout,
		maxPending:    maxPending,
		maxBackoff:    interval * maxBackoffFactor,
		now:           time.Now,
		pending:       make(map[time.Time]*Delta),
		wakeup:        make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

func (b *batcher) start() {
	go b.loop()
}

func (b *batcher) stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
	})
	<-b.doneCh
}

func (b *batcher) add(delta Delta) {
	if delta.Empty() {
		return
	}

	targetDate := dateOf(b.now())
	b.mu.Lock()
	existing := b.pending[targetDate]
	if existing == nil {
		existing = &Delta{}
		b.pending[targetDate] = existing
	}
	existing.add(delta)
	b.pendingEvents += delta.events()
	shouldFlush := b.pendingEvents >= b.maxPending
	b.mu.Unlock()

	if shouldFlush {
		b.signal()
	}
}

func (b *batcher) loop() {
	ticker := time.NewTicker(b.flushInterval)
	defer func() {
		ticker.Stop()
		close(b.doneCh)
	}()

	for {
		select {
		case <-ticker.C:
			b.flush(false)
		case <-b.wakeup:
			b.flush(false)
		case <-b.stopCh:
			b.flush(true)
			return
		}
	}
}

func (b *batcher) signal() {
	select {
	case b.wakeup <- struct{}{}:
	default:
	}
}

func (b *batcher) flush(isShutdown bool) {
	if !isShutdown && !b.nextFlushAllowedAt.IsZero() && b.now().Before(b.nextFlushAllowedAt) {
		return
	}

	snapshot := b.takeSnapshot()
	if len(snapshot) == 0 {
		return
	}

	var firstErr error
	for date, delta := range snapshot {
		ctx, cancel := context.WithTimeout(context.Background(), b.flushTimeout)
		err := b.ledger.AddUsage(ctx, delta, date)
		cancel()
		if err == nil {
			continue
		}
		if firstErr == nil {
			firstErr = err
		}
		if !isShutdown {
			b.requeue(date, delta)
		}
	}

	if firstErr != nil {
		b.registerFailure(firstErr, isShutdown)
		return
	}
	b.consecutiveFlushFailures = 0
	b.nextFlushAllowedAt = time.Time{}
}

func (b *batcher) takeSnapshot() map[time.Time]Delta {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := make(map[time.Time]Delta, len(b.pending))
	for date, delta := range b.pending {
		snapshot[date] = *delta
	}
	b.pending = make(map[time.Time]*Delta)
	b.pendingEvents = 0
	return snapshot
}

func (b *batcher) requeue(date time.Time, delta Delta) {
	b.mu.Lock()
	existing := b.pending[date]
	if existing == nil {
		existing = &Delta{}
		b.pending[date] = existing
	}
	existing.add(delta)
	b.pendingEvents += delta.events()
	b.mu.Unlock()
}

func (b *batcher) registerFailure(err error, isShutdown bool) {
	b.consecutiveFlushFailures++
	backoff := b.computeBackoff()
	b.nextFlushAllowedAt = b.now().Add(backoff)

	if b.logger == nil {
		return
	}
	if isShutdown {
		b.logger.Warn("usage_db_batch_dropped_on_shutdown", "err", err)
		return
	}
	if isPowerOfTwo(b.consecutiveFlushFailures) {
		b.logger.Warn(
			"usage_db_batch_flush_failed",
			"failures", b.consecutiveFlushFailures,
			"backoff", backoff,
			"err", err,
		)
	}
}

func (b *batcher) computeBackoff() time.Duration {
	backoff := b.flushInterval * time.Duration(1<<max(0, b.consecutiveFlushFailures-1))
	if backoff > b.maxBackoff || backoff <= 0 {
		backoff = b.maxBackoff
	}
	return backoff
}

// isPowerOfTwo 2의 거듭제곱인지 확인
func isPowerOfTwo(value int) bool {
	return value > 0 && (value&(value-1)) == 0
}
