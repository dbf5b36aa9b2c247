package httperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	domain "github.com/park285/turtle-soup-judge/internal/domain/turtlesoup"
	"github.com/park285/turtle-soup-judge/internal/gemini"
	"github.com/park285/turtle-soup-judge/internal/session"
	turtlesoupuc "github.com/park285/turtle-soup-judge/internal/usecase/turtlesoup"
)

// ErrorCode 는 API 오류 코드다.
type ErrorCode string

const (
	// ErrorCodeInternal 는 내부 오류 코드다.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrorCodeValidation 는 검증 오류 코드다.
	ErrorCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrorCodeUnauthorized 는 인증 오류 코드다.
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrorCodeHTTPRateLimit 는 요청 제한 오류 코드다.
	ErrorCodeHTTPRateLimit ErrorCode = "HTTP_RATE_LIMIT"
	// ErrorCodeLLM 는 LLM 오류 코드다.
	ErrorCodeLLM ErrorCode = "LLM_ERROR"
	// ErrorCodeLLMTimeout 는 LLM 타임아웃 코드다.
	ErrorCodeLLMTimeout ErrorCode = "LLM_TIMEOUT"
	// ErrorCodeLLMModel 는 LLM 모델 오류 코드다.
	ErrorCodeLLMModel ErrorCode = "LLM_MODEL_ERROR"
	// ErrorCodeSessionNotFound 는 게임 세션 미존재 코드다.
	ErrorCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	// ErrorCodePuzzleNotFound 는 퍼즐 미존재 코드다.
	ErrorCodePuzzleNotFound ErrorCode = "PUZZLE_NOT_FOUND"
	// ErrorCodeNoPuzzles 는 퍼즐 컬렉션이 빈 경우의 코드다.
	ErrorCodeNoPuzzles ErrorCode = "NO_PUZZLES"
	// ErrorCodeGameOver 는 코인이 바닥난 경우의 코드다.
	ErrorCodeGameOver ErrorCode = "GAME_OVER"
	// ErrorCodeInsufficientCoins 는 코인 부족 코드다.
	ErrorCodeInsufficientCoins ErrorCode = "INSUFFICIENT_COINS"
	// ErrorCodeHintLimit 는 힌트 한도 초과 코드다.
	ErrorCodeHintLimit ErrorCode = "HINT_LIMIT_REACHED"
	// ErrorCodeInvalidInput 는 입력 오류 코드다.
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrorCodeMissingField 는 필드 누락 코드다.
	ErrorCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Body 는 오류 본문의 error 객체다.
type Body struct {
	Code    string         `json:"code"`
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse 는 API 오류 응답 본문이다.
type ErrorResponse struct {
	Error     Body    `json:"error"`
	RequestID *string `json:"request_id"`
}

// Error 는 내부 표준 오류 타입이다.
type Error struct {
	Code    ErrorCode
	Status  int
	Type    string
	Message string
	Details map[string]any
}

// Error 는 오류 메시지를 반환한다.
func (e *Error) Error() string {
	return e.Message
}

// Response 는 오류를 HTTP 응답으로 변환한다.
func Response(err error, requestID string) (int, ErrorResponse) {
	apiErr := FromError(err)
	if apiErr == nil {
		apiErr = NewInternalError("unknown error")
	}

	var requestIDPtr *string
	if requestID != "" {
		requestIDPtr = &requestID
	}

	return apiErr.Status, ErrorResponse{
		Error: Body{
			Code:    string(apiErr.Code),
			Type:    apiErr.Type,
			Message: apiErr.Message,
			Details: apiErr.Details,
		},
		RequestID: requestIDPtr,
	}
}

// FromError 는 오류를 내부 오류 타입으로 변환한다.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return NewSessionNotFound("")
	case errors.Is(err, domain.ErrGameOver):
		return newGameRuleError(ErrorCodeGameOver, "GameOverError", err)
	case errors.Is(err, domain.ErrInsufficientCoins):
		return newGameRuleError(ErrorCodeInsufficientCoins, "InsufficientCoinsError", err)
	case errors.Is(err, domain.ErrHintLimitReached):
		return newGameRuleError(ErrorCodeHintLimit, "HintLimitError", err)
	case errors.Is(err, turtlesoupuc.ErrEmptyInput):
		return NewMissingField("text")
	case errors.Is(err, domain.ErrNoPuzzles):
		return &Error{
			Code:    ErrorCodeNoPuzzles,
			Status:  http.StatusServiceUnavailable,
			Type:    "NoPuzzlesError",
			Message: "No puzzles loaded",
		}
	case errors.Is(err, domain.ErrNoPuzzleForDifficulty):
		return &Error{
			Code:    ErrorCodePuzzleNotFound,
			Status:  http.StatusNotFound,
			Type:    "PuzzleNotFoundError",
			Message: err.Error(),
		}
	case errors.Is(err, gemini.ErrInvalidModel):
		return NewLLMModelError("Invalid model")
	case errors.Is(err, gemini.ErrMissingAPIKey):
		return NewLLMError("Missing Gemini API key", http.StatusServiceUnavailable)
	case errors.Is(err, context.DeadlineExceeded):
		return NewLLMTimeoutError("Request timed out")
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return NewValidationError(err)
	}

	return NewInternalError(err.Error())
}

func newGameRuleError(code ErrorCode, errorType string, err error) *Error {
	return &Error{
		Code:    code,
		Status:  http.StatusConflict,
		Type:    errorType,
		Message: err.Error(),
	}
}

// NewInternalError 는 내부 오류를 생성한다.
func NewInternalError(message string) *Error {
	return &Error{
		Code:    ErrorCodeInternal,
		Status:  http.StatusInternalServerError,
		Type:    "InternalError",
		Message: message,
	}
}

// NewValidationError 는 검증 오류를 생성한다.
func NewValidationError(err error) *Error {
	return &Error{
		Code:    ErrorCodeValidation,
		Status:  http.StatusUnprocessableEntity,
		Type:    "ValidationError",
		Message: "Input validation failed",
		Details: validationDetails(err),
	}
}

// NewMissingField 는 누락 필드 오류를 생성한다.
func NewMissingField(field string) *Error {
	return &Error{
		Code:    ErrorCodeMissingField,
		Status:  http.StatusBadRequest,
		Type:    "MissingFieldError",
		Message: fmt.Sprintf("Field '%s' required", field),
		Details: map[string]any{"field": field},
	}
}

// NewInvalidInput 는 입력 오류를 생성한다.
func NewInvalidInput(message string) *Error {
	return &Error{
		Code:    ErrorCodeInvalidInput,
		Status:  http.StatusBadRequest,
		Type:    "InvalidInputError",
		Message: message,
	}
}

// NewUnauthorized 는 인증 오류를 생성한다.
func NewUnauthorized(details map[string]any) *Error {
	return &Error{
		Code:    ErrorCodeUnauthorized,
		Status:  http.StatusUnauthorized,
		Type:    "UnauthorizedError",
		Message: "Invalid API key",
		Details: details,
	}
}

// NewRateLimitExceeded 는 요청 제한 오류를 생성한다.
func NewRateLimitExceeded(details map[string]any) *Error {
	return &Error{
		Code:    ErrorCodeHTTPRateLimit,
		Status:  http.StatusTooManyRequests,
		Type:    "HTTPRateLimitExceededError",
		Message: "Rate limit exceeded",
		Details: details,
	}
}

// NewSessionNotFound 는 게임 세션 미존재 오류를 생성한다. sessionID 가 비면 상세를 생략한다.
func NewSessionNotFound(sessionID string) *Error {
	apiErr := &Error{
		Code:    ErrorCodeSessionNotFound,
		Status:  http.StatusNotFound,
		Type:    "SessionNotFoundError",
		Message: "Session not found",
	}
	if sessionID != "" {
		apiErr.Message = fmt.Sprintf("Session '%s' not found", sessionID)
		apiErr.Details = map[string]any{"session_id": sessionID}
	}
	return apiErr
}

// NewPuzzleNotFound 는 퍼즐 미존재 오류를 생성한다.
func NewPuzzleNotFound(puzzleID string) *Error {
	return &Error{
		Code:    ErrorCodePuzzleNotFound,
		Status:  http.StatusNotFound,
		Type:    "PuzzleNotFoundError",
		Message: fmt.Sprintf("Puzzle '%s' not found", puzzleID),
		Details: map[string]any{"puzzle_id": puzzleID},
	}
}

// NewLLMModelError 는 LLM 모델 오류를 생성한다.
func NewLLMModelError(message string) *Error {
	return &Error{
		Code:    ErrorCodeLLMModel,
		Status:  http.StatusBadRequest,
		Type:    "LLMModelError",
		Message: message,
	}
}

// NewLLMTimeoutError 는 LLM 타임아웃 오류를 생성한다.
func NewLLMTimeoutError(message string) *Error {
	return &Error{
		Code:    ErrorCodeLLMTimeout,
		Status:  http.StatusGatewayTimeout,
		Type:    "LLMTimeoutError",
		Message: message,
	}
}

// NewLLMError 는 LLM 오류를 생성한다.
func NewLLMError(message string, status int) *Error {
	return &Error{
		Code:    ErrorCodeLLM,
		Status:  status,
		Type:    "LLMError",
		Message: message,
	}
}

// FieldError 는 필드 오류 상세 정보다.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value"`
}

func validationDetails(err error) map[string]any {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make([]FieldError, 0, len(validationErrors))
		for _, validationErr := range validationErrors {
			fields = append(fields, FieldError{
				Field:   validationErr.Field(),
				Message: validationErr.Error(),
				Value:   validationErr.Value(),
			})
		}
		return map[string]any{"errors": fields}
	}

	return map[string]any{
		"errors": []FieldError{
			{
				Field:   "body",
				Message: err.Error(),
				Value:   nil,
			},
		},
	}
}
