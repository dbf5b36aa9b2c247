package di

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"

	"github.com/park285/turtle-soup-judge/internal/config"
	domain "github.com/park285/turtle-soup-judge/internal/domain/turtlesoup"
	"github.com/park285/turtle-soup-judge/internal/gemini"
	"github.com/park285/turtle-soup-judge/internal/grpcserver"
	"github.com/park285/turtle-soup-judge/internal/guard"
	"github.com/park285/turtle-soup-judge/internal/handler"
	"github.com/park285/turtle-soup-judge/internal/health"
	"github.com/park285/turtle-soup-judge/internal/llm"
	"github.com/park285/turtle-soup-judge/internal/logging"
	"github.com/park285/turtle-soup-judge/internal/metrics"
	"github.com/park285/turtle-soup-judge/internal/session"
	"github.com/park285/turtle-soup-judge/internal/telemetry"
	"github.com/park285/turtle-soup-judge/internal/usage"
	turtlesoupuc "github.com/park285/turtle-soup-judge/internal/usecase/turtlesoup"
)

// GRPCEndpoint: gRPC 서버와 리스너 묶음입니다. 비활성화면 둘 다 nil.
type GRPCEndpoint struct {
	Server   *grpc.Server
	Listener net.Listener
}

// ProvideLogger: 로거를 구성해 반환합니다.
// 컨텍스트에 span 이 있으면 trace_id/span_id 가 로그에 붙습니다.
func ProvideLogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

// ProvideTelemetry: OpenTelemetry provider 를 초기화합니다.
func ProvideTelemetry(ctx context.Context, cfg *config.Config) (*telemetry.Provider, error) {
	provider, err := telemetry.NewProvider(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	return provider, nil
}

// ProvideUsageRepository: DB 가 켜져 있을 때만 사용량 원장을 만듭니다.
func ProvideUsageRepository(cfg *config.Config, logger *slog.Logger) *usage.Repository {
	if !cfg.Database.Enabled {
		return nil
	}
	return usage.NewRepository(cfg, logger)
}

// ProvideUsageRecorder: 사용량 기록기를 만듭니다. 원장이 없으면 기록은 버려집니다.
func ProvideUsageRecorder(cfg *config.Config, repo *usage.Repository, logger *slog.Logger) *usage.Recorder {
	if repo == nil {
		return usage.NewRecorder(cfg.Database, nil, logger)
	}
	return usage.NewRecorder(cfg.Database, repo, logger)
}

// ProvideInvoker: API 키가 있으면 Gemini 클라이언트를, 없으면 nil 을 반환합니다.
// nil 이면 판정기는 모든 요청에 미설정 메시지를 돌려줍니다.
func ProvideInvoker(cfg *config.Config, metricsStore *metrics.Store, recorder *usage.Recorder, logger *slog.Logger) (llm.Invoker, error) {
	if !cfg.Gemini.Configured() {
		logger.Warn("gemini_not_configured")
		return nil, nil
	}
	client, err := gemini.NewClient(cfg, metricsStore, recorder, logger)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return client, nil
}

// ProvideGuard: 입력 검사기를 만듭니다.
func ProvideGuard(cfg *config.Config, logger *slog.Logger) *guard.Screener {
	return guard.New(cfg.Guard, logger)
}

// ProvideSessionStore: 게임 세션 저장소를 만듭니다.
func ProvideSessionStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*session.Store, error) {
	store, err := session.NewStore(ctx, cfg.SessionStore, cfg.Session, logger)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	return store, nil
}

// ProvidePromptBuilder: 설정된 프롬프트 변형으로 빌더를 만듭니다.
func ProvidePromptBuilder(cfg *config.Config) (*domain.PromptBuilder, error) {
	builder, err := domain.NewPromptBuilder(cfg.Judge.PromptVariant)
	if err != nil {
		return nil, fmt.Errorf("prompt builder: %w", err)
	}
	return builder, nil
}

// ProvideJudge: 판정 오케스트레이터를 조립합니다.
func ProvideJudge(
	cfg *config.Config,
	invoker llm.Invoker,
	puzzles *domain.PuzzleLoader,
	builder *domain.PromptBuilder,
	screener *guard.Screener,
	metricsStore *metrics.Store,
	recorder *usage.Recorder,
	logger *slog.Logger,
) *turtlesoupuc.Judge {
	return turtlesoupuc.NewJudge(invoker, puzzles, builder, turtlesoupuc.JudgeOptions{
		Guard:           screener,
		Metrics:         metricsStore,
		Ledger:          recorder,
		MaxOutputTokens: cfg.Judge.MaxOutputTokens,
		Stream:          cfg.Judge.Stream,
		CacheSize:       cfg.Judge.CacheSize,
		CacheTTL:        time.Duration(cfg.Judge.CacheTTLSeconds) * time.Second,
	}, logger)
}

// ProvideEconomy: 설정값으로 코인 경제를 만듭니다.
func ProvideEconomy(cfg *config.Config) domain.Economy {
	game := cfg.Game
	return domain.Economy{
		InitialCoins:           game.InitialCoins,
		AskCost:                game.AskCost,
		HintCost:               game.HintCost,
		SkipCost:               game.SkipCost,
		MaxHintsPerPuzzle:      game.MaxHintsPerPuzzle,
		RewardBase:             game.RewardBase,
		RewardPerCoinLeftRatio: game.RewardPerCoinLeftRatio,
		MinReward:              game.MinReward,
		MaxReward:              game.MaxReward,
	}
}

// ProvideGameService: 게임 세션 서비스를 만듭니다.
func ProvideGameService(cfg *config.Config, judge *turtlesoupuc.Judge, store *session.Store, economy domain.Economy, logger *slog.Logger) *turtlesoupuc.GameService {
	return turtlesoupuc.NewGameService(judge, store, economy, cfg.Session.HistoryMaxItems, logger)
}

// ProvideJudgmentHandler: 판정 HTTP 핸들러를 만듭니다.
func ProvideJudgmentHandler(judge *turtlesoupuc.Judge, puzzles *domain.PuzzleLoader, logger *slog.Logger) *handler.JudgmentHandler {
	return handler.NewJudgmentHandler(judge, puzzles, logger)
}

// ProvideUsageHandler: 원장이 있을 때만 사용량 핸들러를 만듭니다.
func ProvideUsageHandler(cfg *config.Config, repo *usage.Repository, logger *slog.Logger) *handler.UsageHandler {
	if repo == nil {
		return nil
	}
	return handler.NewUsageHandler(cfg, repo, logger)
}

// ProvideHealthChecker: 상태 점검기를 만듭니다.
func ProvideHealthChecker(cfg *config.Config, store *session.Store, puzzles *domain.PuzzleLoader, metricsStore *metrics.Store) *health.Checker {
	return health.NewChecker(cfg, store, puzzles, metricsStore)
}

// ProvideJudgeService: gRPC 판정 서비스를 만듭니다.
func ProvideJudgeService(judge *turtlesoupuc.Judge, puzzles *domain.PuzzleLoader, logger *slog.Logger) *grpcserver.JudgeService {
	return grpcserver.NewJudgeService(judge, puzzles, logger)
}

// ProvideGRPCEndpoint: 설정에 따라 gRPC 서버와 리스너를 엽니다.
func ProvideGRPCEndpoint(cfg *config.Config, logger *slog.Logger, service *grpcserver.JudgeService) (*GRPCEndpoint, error) {
	server, lis, err := grpcserver.NewServer(cfg, logger, service)
	if err != nil {
		return nil, fmt.Errorf("grpc server: %w", err)
	}
	return &GRPCEndpoint{Server: server, Listener: lis}, nil
}
