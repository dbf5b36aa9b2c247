package grpcserver

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/park285/turtle-soup-judge/internal/httperror"
)

func errorMapperInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}

		// 이미 status 오류면 code/message 를 그대로 둔다.
		if _, ok := status.FromError(err); ok {
			return resp, err
		}

		return resp, statusFromError(err)
	}
}

// statusFromError 는 HTTP 오류 코드 체계를 gRPC 코드로 옮긴다. 메시지에 오류 코드를 앞세운다.
func statusFromError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, "request canceled")
	}

	apiErr := httperror.FromError(err)
	message := string(apiErr.Code) + ": " + apiErr.Message
	return status.Error(grpcCode(apiErr.Status), message)
}

func grpcCode(httpStatus int) codes.Code {
	switch httpStatus {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return codes.InvalidArgument
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusConflict:
		return codes.FailedPrecondition
	case http.StatusTooManyRequests:
		return codes.ResourceExhausted
	case http.StatusServiceUnavailable:
		return codes.Unavailable
	case http.StatusGatewayTimeout:
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}
