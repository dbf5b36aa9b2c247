package shared

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/goccy/go-json"

	"github.com/park285/turtle-soup-judge/internal/httperror"
)

func TestLogErrorLevels(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLevel string
		wantCode  string
	}{
		{"server error", errors.New("boom"), "ERROR", string(httperror.ErrorCodeInternal)},
		{"client error", httperror.NewPuzzleNotFound("p-9"), "WARN", string(httperror.ErrorCodePuzzleNotFound)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			LogError(context.Background(), logger, "thing_failed", tt.err)

			var line map[string]any
			if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
				t.Fatalf("invalid log line: %v", err)
			}
			if line["msg"] != "thing_failed" || line["level"] != tt.wantLevel || line["code"] != tt.wantCode {
				t.Fatalf("unexpected log line: %v", line)
			}
		})
	}
}

func TestLogErrorNoop(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	LogError(context.Background(), logger, "thing_failed", nil)
	LogError(context.Background(), nil, "thing_failed", errors.New("boom"))
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}
