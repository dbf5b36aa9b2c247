//go:build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"github.com/park285/turtle-soup-judge/internal/config"
	domain "github.com/park285/turtle-soup-judge/internal/domain/turtlesoup"
	"github.com/park285/turtle-soup-judge/internal/handler"
	"github.com/park285/turtle-soup-judge/internal/metrics"
	"github.com/park285/turtle-soup-judge/internal/server"
)

var judgeProviderSet = wire.NewSet(
	config.ProvideConfig,
	ProvideLogger,
	ProvideTelemetry,
	metrics.NewStore,
	ProvideUsageRepository,
	ProvideUsageRecorder,
	ProvideInvoker,
	ProvideGuard,
	ProvideSessionStore,
	domain.NewPuzzleLoader,
	ProvidePromptBuilder,
	ProvideJudge,
	ProvideEconomy,
	ProvideGameService,
	ProvideHealthChecker,
	ProvideJudgmentHandler,
	handler.NewPuzzleHandler,
	handler.NewGameHandler,
	handler.NewGuardHandler,
	ProvideUsageHandler,
	handler.NewRouter,
	server.NewHTTPServer,
	ProvideJudgeService,
	ProvideGRPCEndpoint,
	NewApp,
)

//go:generate go run github.com/google/wire/cmd/wire@v0.7.0
func InitializeApp(ctx context.Context) (*App, error) {
	wire.Build(judgeProviderSet)
	return nil, nil
}
