package shared

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/park285/turtle-soup-judge/internal/httperror"
)

// LogError 는 오류를 httperror 로 분류해 event 로 남긴다. 5xx 는 error, 나머지는 warn.
func LogError(ctx context.Context, logger *slog.Logger, event string, err error) {
	if logger == nil || err == nil {
		return
	}
	apiErr := httperror.FromError(err)
	level := slog.LevelWarn
	if apiErr.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.Log(ctx, level, event, "code", string(apiErr.Code), "status", apiErr.Status, "err", err)
}
