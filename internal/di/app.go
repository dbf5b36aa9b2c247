package di

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/park285/turtle-soup-judge/internal/config"
	"github.com/park285/turtle-soup-judge/internal/session"
	"github.com/park285/turtle-soup-judge/internal/telemetry"
	"github.com/park285/turtle-soup-judge/internal/usage"
)

const telemetryShutdownTimeout = 5 * time.Second

// App: 애플리케이션 구성 요소를 묶는다.
type App struct {
	Server          *http.Server
	GRPC            *GRPCEndpoint
	Logger          *slog.Logger
	Config          *config.Config
	SessionStore    *session.Store
	UsageRepository *usage.Repository
	UsageRecorder   *usage.Recorder
	Telemetry       *telemetry.Provider
}

// NewApp: App 인스턴스를 생성합니다.
func NewApp(
	server *http.Server,
	grpcEndpoint *GRPCEndpoint,
	logger *slog.Logger,
	cfg *config.Config,
	sessionStore *session.Store,
	usageRepository *usage.Repository,
	usageRecorder *usage.Recorder,
	telemetryProvider *telemetry.Provider,
) *App {
	return &App{
		Server:          server,
		GRPC:            grpcEndpoint,
		Logger:          logger,
		Config:          cfg,
		SessionStore:    sessionStore,
		UsageRepository: usageRepository,
		UsageRecorder:   usageRecorder,
		Telemetry:       telemetryProvider,
	}
}

// Close: 앱 리소스를 정리합니다. 기록기는 원장보다 먼저 닫아 남은 배치를 flush 한다.
func (a *App) Close() {
	if a.GRPC != nil {
		if a.GRPC.Server != nil {
			a.GRPC.Server.GracefulStop()
		}
		if a.GRPC.Listener != nil {
			_ = a.GRPC.Listener.Close()
		}
	}
	if a.SessionStore != nil {
		a.SessionStore.Close()
	}
	if a.UsageRecorder != nil {
		a.UsageRecorder.Close()
	}
	if a.UsageRepository != nil {
		a.UsageRepository.Close()
	}
	if a.Telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := a.Telemetry.Shutdown(ctx); err != nil && a.Logger != nil {
			a.Logger.Warn("telemetry_shutdown_failed", "err", err)
		}
	}
}
