package turtlesoup

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	domain "github.com/park285/turtle-soup-judge/internal/domain/turtlesoup"
	"github.com/park285/turtle-soup-judge/internal/llm"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingInvoker 는 호출 횟수와 마지막 요청을 기록하는 모델 대역이다.
type countingInvoker struct {
	mu       sync.Mutex
	calls    int
	last     llm.Request
	respond  func(ctx context.Context, req llm.Request) (llm.Completion, error)
	started  chan struct{}
	startOne sync.Once
}

func replyWith(text string) *countingInvoker {
	return &countingInvoker{respond: func(context.Context, llm.Request) (llm.Completion, error) {
		return llm.Completion{Text: text}, nil
	}}
}

func failWith(err error) *countingInvoker {
	return &countingInvoker{respond: func(context.Context, llm.Request) (llm.Completion, error) {
		return llm.Completion{}, err
	}}
}

// blockUntilCancelled 는 ctx 가 끝날 때까지 응답하지 않는다.
func blockUntilCancelled() *countingInvoker {
	return &countingInvoker{
		started: make(chan struct{}),
		respond: func(ctx context.Context, _ llm.Request) (llm.Completion, error) {
			<-ctx.Done()
			return llm.Completion{}, ctx.Err()
		},
	}
}

func (c *countingInvoker) Complete(ctx context.Context, req llm.Request) (llm.Completion, error) {
	c.mu.Lock()
	c.calls++
	c.last = req
	c.mu.Unlock()
	if c.started != nil {
		c.startOne.Do(func() { close(c.started) })
	}
	return c.respond(ctx, req)
}

func (c *countingInvoker) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *countingInvoker) Last() llm.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

type sliceProvider []domain.Puzzle

func (p sliceProvider) Count() int { return len(p) }

func (p sliceProvider) GetByIndex(index int) *domain.Puzzle {
	if len(p) == 0 {
		return nil
	}
	puzzle := p[domain.ClampIndex(index, len(p))]
	return &puzzle
}

func seedPuzzle() domain.Puzzle {
	return domain.Puzzle{
		ID:      "seed",
		Opening: "Five people walked in the rain. Only four got wet.",
		Answer:  "Four pallbearers carried a coffin with a corpse inside.",
		Facts: []string{
			"Four of the five people were pallbearers carrying a coffin.",
			"The fifth person was a corpse inside the coffin.",
		},
		Hints: []string{"Not everyone was walking.", "Think about a funeral."},
	}
}

func plainPuzzle() domain.Puzzle {
	return domain.Puzzle{
		ID:      "plain",
		Opening: "A man lives on the tenth floor but takes the elevator only to the seventh.",
		Answer:  "He is too short to reach the button for the tenth floor.",
		Facts:   []string{"The man is very short.", "He cannot reach the tenth floor button."},
	}
}

func testProvider() sliceProvider {
	return sliceProvider{seedPuzzle(), plainPuzzle()}
}

func testBuilder(t *testing.T) *domain.PromptBuilder {
	t.Helper()
	builder, err := domain.NewPromptBuilder("default")
	if err != nil {
		t.Fatalf("prompt builder: %v", err)
	}
	return builder
}

type blockAll struct{}

func (blockAll) IsMalicious(string) bool { return true }

type judgmentCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (j *judgmentCounter) RecordJudgment(kind string, source string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.counts == nil {
		j.counts = make(map[string]int)
	}
	j.counts[kind+"/"+source]++
}

type fallbackCounter struct {
	mu    sync.Mutex
	count int
}

func (f *fallbackCounter) RecordFallback(context.Context) {
	f.mu.Lock()
	f.count++
	f.mu.Unlock()
}
