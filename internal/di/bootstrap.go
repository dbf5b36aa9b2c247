//go:build !wireinject

package di

import (
	"context"
	"fmt"

	"github.com/park285/turtle-soup-judge/internal/config"
	domain "github.com/park285/turtle-soup-judge/internal/domain/turtlesoup"
	"github.com/park285/turtle-soup-judge/internal/handler"
	"github.com/park285/turtle-soup-judge/internal/metrics"
	"github.com/park285/turtle-soup-judge/internal/server"
)

// InitializeApp 은 애플리케이션 의존성을 초기화하고 App 인스턴스를 반환한다.
// 중간에 실패하면 이미 연 자원을 닫는다.
func InitializeApp(ctx context.Context) (*App, error) {
	cfg, err := config.ProvideConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}

	telemetryProvider, err := ProvideTelemetry(ctx, cfg)
	if err != nil {
		return nil, err
	}

	metricsStore := metrics.NewStore()
	usageRepository := ProvideUsageRepository(cfg, logger)
	usageRecorder := ProvideUsageRecorder(cfg, usageRepository, logger)

	app := NewApp(nil, nil, logger, cfg, nil, usageRepository, usageRecorder, telemetryProvider)
	fail := func(err error) (*App, error) {
		app.Close()
		return nil, err
	}

	invoker, err := ProvideInvoker(cfg, metricsStore, usageRecorder, logger)
	if err != nil {
		return fail(err)
	}
	screener := ProvideGuard(cfg, logger)

	sessionStore, err := ProvideSessionStore(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	app.SessionStore = sessionStore

	puzzleLoader, err := domain.NewPuzzleLoader()
	if err != nil {
		return fail(fmt.Errorf("puzzle loader: %w", err))
	}
	promptBuilder, err := ProvidePromptBuilder(cfg)
	if err != nil {
		return fail(err)
	}

	judge := ProvideJudge(cfg, invoker, puzzleLoader, promptBuilder, screener, metricsStore, usageRecorder, logger)
	gameService := ProvideGameService(cfg, judge, sessionStore, ProvideEconomy(cfg), logger)

	router := handler.NewRouter(
		cfg,
		logger,
		ProvideHealthChecker(cfg, sessionStore, puzzleLoader, metricsStore),
		metricsStore,
		ProvideJudgmentHandler(judge, puzzleLoader, logger),
		handler.NewPuzzleHandler(puzzleLoader, logger),
		handler.NewGameHandler(gameService, logger),
		handler.NewGuardHandler(screener),
		ProvideUsageHandler(cfg, usageRepository, logger),
	)
	app.Server = server.NewHTTPServer(cfg, router)

	grpcEndpoint, err := ProvideGRPCEndpoint(cfg, logger, ProvideJudgeService(judge, puzzleLoader, logger))
	if err != nil {
		return fail(err)
	}
	app.GRPC = grpcEndpoint

	return app, nil
}
