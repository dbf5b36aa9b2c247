package llm

import "context"

// DefaultMaxOutputTokens: 요청에 토큰 한도가 없을 때 쓰는 기본값입니다.
const DefaultMaxOutputTokens = 128

// Request: 모델 호출 요청입니다.
type Request struct {
	Prompt string
	Task   string
	// MaxOutputTokens 가 0 이하이면 DefaultMaxOutputTokens 를 사용한다.
	MaxOutputTokens int
	// Stream 이 false 면 응답 전체를 한 번에 받는다.
	Stream bool
}

// EffectiveMaxOutputTokens: 기본값이 적용된 출력 토큰 한도입니다.
func (r Request) EffectiveMaxOutputTokens() int {
	if r.MaxOutputTokens <= 0 {
		return DefaultMaxOutputTokens
	}
	return r.MaxOutputTokens
}

// Usage: 토큰 사용량 정보를 담습니다.
type Usage struct {
	InputTokens     int `json:"input_tokens"`
	OutputTokens    int `json:"output_tokens"`
	TotalTokens     int `json:"total_tokens"`
	ReasoningTokens int `json:"reasoning_tokens"`
}

// Completion: 모델 응답 원문과 부가 정보입니다.
type Completion struct {
	Text      string
	Reasoning string
	Model     string
	Usage     Usage
}

// Invoker: 텍스트 완성 모델 호출자입니다. ctx 취소를 따라야 하며 실패할 수 있습니다.
type Invoker interface {
	Complete(ctx context.Context, req Request) (Completion, error)
}

// InvokerFunc: 함수를 Invoker 로 사용합니다.
type InvokerFunc func(ctx context.Context, req Request) (Completion, error)

// Complete: f 를 호출합니다.
func (f InvokerFunc) Complete(ctx context.Context, req Request) (Completion, error) {
	return f(ctx, req)
}
