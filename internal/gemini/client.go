package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"

	"github.com/park285/turtle-soup-judge/internal/config"
	"github.com/park285/turtle-soup-judge/internal/llm"
	"github.com/park285/turtle-soup-judge/internal/metrics"
	"github.com/park285/turtle-soup-judge/internal/usage"
)

var (
	// ErrMissingAPIKey 는 Gemini API 키가 없을 때 반환된다.
	ErrMissingAPIKey = errors.New("missing gemini api key")
	// ErrInvalidModel 는 모델이 지정되지 않았을 때 반환된다.
	ErrInvalidModel = errors.New("invalid model")
	// ErrEmptyResponse 는 후보 텍스트가 하나도 없을 때 반환된다.
	ErrEmptyResponse = errors.New("empty model response")
)

const tracerName = "github.com/park285/turtle-soup-judge/internal/gemini"

// Client 는 Gemini 호출을 담당한다. llm.Invoker 를 구현한다.
type Client struct {
	cfg           *config.Config
	metrics       *metrics.Store
	usageRecorder *usage.Recorder
	logger        *slog.Logger
	tracer        trace.Tracer
	mu            sync.Mutex
	clients       map[string]*genai.Client
	apiKeys       []string
	apiKeyIdx     int
}

var _ llm.Invoker = (*Client)(nil)

// NewClient 는 Gemini 클라이언트를 생성한다.
func NewClient(cfg *config.Config, metricsStore *metrics.Store, usageRecorder *usage.Recorder, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if metricsStore == nil {
		return nil, errors.New("metrics store is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:           cfg,
		metrics:       metricsStore,
		usageRecorder: usageRecorder,
		logger:        logger,
		tracer:        otel.Tracer(tracerName),
		clients:       make(map[string]*genai.Client),
		apiKeys:       cfg.Gemini.APIKeys,
	}, nil
}

// Complete 는 프롬프트 하나를 모델에 보내고 원문 응답을 반환한다.
// req.Stream 이 true 면 스트리밍으로 받아 이어 붙인다.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Completion, error) {
	model, err := c.resolveModel(req.Task)
	if err != nil {
		return llm.Completion{}, err
	}

	ctx, span := c.tracer.Start(ctx, "gemini.complete", trace.WithAttributes(
		attribute.String("llm.model", model),
		attribute.String("llm.task", req.Task),
		attribute.Bool("llm.stream", req.Stream),
		attribute.Int("llm.max_output_tokens", req.EffectiveMaxOutputTokens()),
	))
	defer span.End()

	if timeout := c.callTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	var completion llm.Completion
	if req.Stream {
		completion, err = c.stream(ctx, model, req)
	} else {
		completion, err = c.generate(ctx, model, req)
	}
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.RecordError(elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return llm.Completion{Model: model}, err
	}

	c.metrics.RecordSuccess(elapsed, completion.Usage)
	c.recordUsage(ctx, completion.Usage)
	span.SetAttributes(
		attribute.Int("llm.input_tokens", completion.Usage.InputTokens),
		attribute.Int("llm.output_tokens", completion.Usage.OutputTokens),
	)
	c.logger.Debug("gemini_complete",
		"model", model,
		"duration_ms", elapsed.Milliseconds(),
		"output_tokens", completion.Usage.OutputTokens,
	)
	return completion, nil
}

func (c *Client) generate(ctx context.Context, model string, req llm.Request) (llm.Completion, error) {
	client, err := c.selectClient(ctx)
	if err != nil {
		return llm.Completion{}, err
	}

	genConfig := c.buildGenerateConfig(model, req.EffectiveMaxOutputTokens())
	response, err := client.Models.GenerateContent(ctx, model, buildContents(req.Prompt), genConfig)
	if err != nil {
		return llm.Completion{}, fmt.Errorf("generate content: %w", err)
	}

	textParts, thoughtParts := extractParts(response)
	if len(textParts) == 0 {
		return llm.Completion{}, ErrEmptyResponse
	}
	return llm.Completion{
		Text:      strings.Join(textParts, ""),
		Reasoning: strings.Join(thoughtParts, "\n"),
		Model:     model,
		Usage:     extractUsage(response),
	}, nil
}

func (c *Client) stream(ctx context.Context, model string, req llm.Request) (llm.Completion, error) {
	client, err := c.selectClient(ctx)
	if err != nil {
		return llm.Completion{}, err
	}

	genConfig := c.buildGenerateConfig(model, req.EffectiveMaxOutputTokens())
	var text, reasoning strings.Builder
	var last *genai.GenerateContentResponse
	for chunk, err := range client.Models.GenerateContentStream(ctx, model, buildContents(req.Prompt), genConfig) {
		if err != nil {
			return llm.Completion{}, fmt.Errorf("stream content: %w", err)
		}
		textParts, thoughtParts := extractParts(chunk)
		for _, part := range textParts {
			text.WriteString(part)
		}
		for _, part := range thoughtParts {
			reasoning.WriteString(part)
		}
		if chunk != nil && chunk.UsageMetadata != nil {
			last = chunk
		}
	}
	if text.Len() == 0 {
		return llm.Completion{}, ErrEmptyResponse
	}
	return llm.Completion{
		Text:      text.String(),
		Reasoning: reasoning.String(),
		Model:     model,
		Usage:     extractUsage(last),
	}, nil
}

func (c *Client) recordUsage(ctx context.Context, u llm.Usage) {
	if c.usageRecorder == nil {
		return
	}
	c.usageRecorder.Record(ctx, int64(u.InputTokens), int64(u.OutputTokens), int64(u.ReasoningTokens))
}

func (c *Client) callTimeout() time.Duration {
	if c.cfg.Gemini.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.cfg.Gemini.TimeoutSeconds) * time.Second
}

func (c *Client) selectClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.apiKeys) == 0 {
		return nil, ErrMissingAPIKey
	}

	key := c.apiKeys[c.apiKeyIdx%len(c.apiKeys)]
	c.apiKeyIdx++
	if client, ok := c.clients[key]; ok {
		return client, nil
	}

	client, err := genai.NewClient(context.WithoutCancel(ctx), &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			Timeout: genai.Ptr(c.callTimeout()),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	c.clients[key] = client
	return client, nil
}

func (c *Client) resolveModel(task string) (string, error) {
	model := c.cfg.Gemini.ModelForTask(task)
	if strings.TrimSpace(model) == "" {
		return "", ErrInvalidModel
	}
	return model, nil
}

func (c *Client) buildGenerateConfig(model string, maxOutputTokens int) *genai.GenerateContentConfig {
	temperature := float32(c.cfg.Gemini.TemperatureForModel(model))
	genConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temperature),
		MaxOutputTokens: int32(maxOutputTokens),
	}

	if thinkingLevel, ok := normalizeThinkingLevel(c.cfg.Gemini.ThinkingLevel); ok {
		genConfig.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingLevel:   thinkingLevel,
		}
	}

	return genConfig
}

func buildContents(prompt string) []*genai.Content {
	return []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
}

func normalizeThinkingLevel(level string) (genai.ThinkingLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "low":
		return genai.ThinkingLevelLow, true
	case "medium":
		return genai.ThinkingLevelMedium, true
	case "high":
		return genai.ThinkingLevelHigh, true
	case "minimal":
		return genai.ThinkingLevelMinimal, true
	default:
		return "", false
	}
}

func extractParts(response *genai.GenerateContentResponse) ([]string, []string) {
	if response == nil || len(response.Candidates) == 0 {
		return nil, nil
	}
	content := response.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return nil, nil
	}

	texts := make([]string, 0)
	thoughts := make([]string, 0)
	for _, part := range content.Parts {
		if part == nil || part.Text == "" {
			continue
		}
		if part.Thought {
			thoughts = append(thoughts, part.Text)
			continue
		}
		texts = append(texts, part.Text)
	}
	return texts, thoughts
}

func extractUsage(response *genai.GenerateContentResponse) llm.Usage {
	if response == nil || response.UsageMetadata == nil {
		return llm.Usage{}
	}
	meta := response.UsageMetadata
	return llm.Usage{
		InputTokens:     int(meta.PromptTokenCount),
		OutputTokens:    int(meta.CandidatesTokenCount) + int(meta.ThoughtsTokenCount),
		TotalTokens:     int(meta.TotalTokenCount),
		ReasoningTokens: int(meta.ThoughtsTokenCount),
	}
}
