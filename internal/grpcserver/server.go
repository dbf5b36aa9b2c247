package grpcserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/park285/turtle-soup-judge/internal/config"
	"github.com/park285/turtle-soup-judge/internal/middleware"
)

const (
	defaultHost = "127.0.0.1"
	defaultPort = 40628

	requestIDKey      = "request_id"
	requestIDMetadata = "x-request-id"

	healthMethodPrefix = "/grpc.health.v1.Health/"

	maxRecvMsgSizeBytes = 4 * 1024 * 1024
)

type ctxKey string

// NewServer: 판정 서비스와 표준 health 서비스를 등록한 gRPC 서버와 TCP 리스너를 생성합니다.
// GRPC.Enabled 가 false 면 모두 nil 을 반환합니다.
func NewServer(cfg *config.Config, logger *slog.Logger, service *JudgeService) (*grpc.Server, net.Listener, error) {
	if cfg == nil || !cfg.GRPC.Enabled {
		return nil, nil, nil
	}

	host := strings.TrimSpace(cfg.GRPC.Host)
	if host == "" {
		host = defaultHost
	}
	port := cfg.GRPC.Port
	if port <= 0 {
		port = defaultPort
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	var lc net.ListenConfig
	listenCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lis, err := lc.Listen(listenCtx, "tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen: %w", err)
	}

	return newGRPCServer(cfg, logger, service), lis, nil
}

func newGRPCServer(cfg *config.Config, logger *slog.Logger, service *JudgeService) *grpc.Server {
	apiKey := ""
	apiKeyRequired := false
	if cfg != nil {
		apiKey = strings.TrimSpace(cfg.HTTPAuth.APIKey)
		apiKeyRequired = cfg.HTTPAuth.Required
	}

	server := grpc.NewServer(
		grpc.MaxRecvMsgSize(maxRecvMsgSizeBytes),
		// 전역 TracerProvider 를 쓰므로 텔레메트리가 꺼져 있으면 no-op 이다.
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			unaryInterceptor(logger, apiKey, apiKeyRequired),
			errorMapperInterceptor(),
		),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(JudgeServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	if service != nil {
		RegisterJudgeServer(server, service)
	}
	return server
}

func unaryInterceptor(logger *slog.Logger, apiKey string, apiKeyRequired bool) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		start := time.Now()

		requestID := resolveRequestID(ctx)
		ctx = context.WithValue(ctx, ctxKey(requestIDKey), requestID)
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDMetadata, requestID))

		if !isHealthMethod(info) {
			if err := authorize(ctx, apiKey, apiKeyRequired); err != nil {
				logGRPCRequest(logger, info, requestID, time.Since(start), err)
				return nil, err
			}
		}

		resp, err := handler(ctx, req)
		logGRPCRequest(logger, info, requestID, time.Since(start), err)
		return resp, err
	}
}

func isHealthMethod(info *grpc.UnaryServerInfo) bool {
	return info != nil && strings.HasPrefix(info.FullMethod, healthMethodPrefix)
}

func logGRPCRequest(logger *slog.Logger, info *grpc.UnaryServerInfo, requestID string, latency time.Duration, err error) {
	if logger == nil {
		return
	}

	method := ""
	if info != nil {
		method = info.FullMethod
	}

	fields := []any{
		"request_id", requestID,
		"method", method,
		"latency", latency,
	}
	if err != nil {
		fields = append(fields, "code", status.Code(err).String(), "err", err)
		logger.Warn("grpc_request_failed", fields...)
		return
	}
	logger.Debug("grpc_request", fields...)
}

func authorize(ctx context.Context, expected string, required bool) error {
	if expected == "" {
		if required {
			return status.Error(codes.Internal, "api key required but not configured")
		}
		return nil
	}

	if !middleware.MatchAPIKey(extractAPIKey(ctx), expected) {
		return status.Error(codes.Unauthenticated, "invalid api key")
	}
	return nil
}

// extractAPIKey 는 HTTP 헤더와 같은 규칙으로 메타데이터에서 키를 꺼낸다.
func extractAPIKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	return middleware.APIKeyFromHeaders(firstValue(md, "x-api-key"), firstValue(md, "authorization"))
}

func firstValue(md metadata.MD, key string) string {
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}

// resolveRequestID 는 HTTP 와 같은 규칙으로 요청 ID 를 정규화한다.
func resolveRequestID(ctx context.Context) string {
	raw := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		raw = firstValue(md, requestIDMetadata)
	}
	return middleware.NormalizeRequestID(raw)
}

// RequestIDFromContext: gRPC 컨텍스트에서 request_id를 조회합니다.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	requestID, _ := ctx.Value(ctxKey(requestIDKey)).(string)
	return requestID
}
