package health

import (
	"context"
	"time"

	"github.com/park285/turtle-soup-judge/internal/config"
)

var startTime = time.Now()

const deepCheckTimeout = 2 * time.Second

// Component 는 상태 구성 요소다.
type Component struct {
	Status string         `json:"status"`
	Detail map[string]any `json:"detail"`
}

// Response 는 상태 응답 본문이다.
type Response struct {
	Status     string               `json:"status"`
	Components map[string]Component `json:"components"`
}

// SessionProbe 는 세션 저장소 상태 확인에 필요한 메서드다.
type SessionProbe interface {
	Backend() string
	Ping(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

// PuzzleCounter 는 로드된 퍼즐 수를 알려준다.
type PuzzleCounter interface {
	Count() int
}

// Snapshotter 는 메트릭 요약을 제공한다.
type Snapshotter interface {
	Snapshot() map[string]float64
}

// Checker 는 구성 요소별 상태를 모은다. nil 의존성은 해당 항목을 건너뛴다.
type Checker struct {
	cfg      *config.Config
	sessions SessionProbe
	puzzles  PuzzleCounter
	metrics  Snapshotter
}

// NewChecker 는 Checker 를 생성한다.
func NewChecker(cfg *config.Config, sessions SessionProbe, puzzles PuzzleCounter, metrics Snapshotter) *Checker {
	return &Checker{cfg: cfg, sessions: sessions, puzzles: puzzles, metrics: metrics}
}

// Collect 는 헬스 상태를 수집한다. deepChecks 가 false 면 외부 저장소에 접속하지 않는다.
func (h *Checker) Collect(ctx context.Context, deepChecks bool) Response {
	components := map[string]Component{
		"app":    buildAppStatus(h.metrics),
		"gemini": buildGeminiStatus(h.cfg),
	}
	if h.puzzles != nil {
		components["puzzles"] = buildPuzzleStatus(h.puzzles)
	}
	if h.sessions != nil {
		components["session_store"] = buildSessionStoreStatus(ctx, h.cfg, h.sessions, deepChecks)
	}

	overall := "ok"
	for _, component := range components {
		if component.Status != "ok" {
			overall = "degraded"
			break
		}
	}

	return Response{
		Status:     overall,
		Components: components,
	}
}

func buildAppStatus(metrics Snapshotter) Component {
	detail := map[string]any{
		"uptime_seconds": int(time.Since(startTime).Seconds()),
	}
	if metrics != nil {
		detail["metrics"] = metrics.Snapshot()
	}
	return Component{Status: "ok", Detail: detail}
}

func buildGeminiStatus(cfg *config.Config) Component {
	apiKeyPresent := false
	judgeModel := ""
	timeoutSeconds := 0
	if cfg != nil {
		apiKeyPresent = cfg.Gemini.Configured()
		judgeModel = cfg.Gemini.ModelForTask("judge")
		timeoutSeconds = cfg.Gemini.TimeoutSeconds
	}

	status := "ok"
	if !apiKeyPresent {
		status = "degraded"
	}

	return Component{
		Status: status,
		Detail: map[string]any{
			"api_key_present": apiKeyPresent,
			"judge_model":     judgeModel,
			"timeout_seconds": timeoutSeconds,
		},
	}
}

func buildPuzzleStatus(puzzles PuzzleCounter) Component {
	count := puzzles.Count()
	status := "ok"
	if count == 0 {
		status = "degraded"
	}
	return Component{Status: status, Detail: map[string]any{"count": count}}
}

func buildSessionStoreStatus(ctx context.Context, cfg *config.Config, sessions SessionProbe, deepChecks bool) Component {
	storeEnabled := false
	sessionTTL := 0
	if cfg != nil {
		storeEnabled = cfg.SessionStore.Enabled
		sessionTTL = cfg.Session.SessionTTLMinutes
	}

	backend := sessions.Backend()
	detail := map[string]any{
		"store_enabled":       storeEnabled,
		"backend":             backend,
		"session_ttl_minutes": sessionTTL,
		"deep_checked":        deepChecks,
	}

	status := "ok"
	if storeEnabled && backend != "valkey" {
		status = "degraded"
	}
	if !deepChecks {
		return Component{Status: status, Detail: detail}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	checkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deepCheckTimeout)
	defer cancel()

	if err := sessions.Ping(checkCtx); err != nil {
		detail["store_connected"] = false
		detail["ping_error"] = err.Error()
		return Component{Status: "degraded", Detail: detail}
	}
	detail["store_connected"] = true

	count, err := sessions.Count(checkCtx)
	if err != nil {
		detail["session_count_error"] = err.Error()
	} else {
		detail["session_count"] = count
	}

	return Component{Status: status, Detail: detail}
}
