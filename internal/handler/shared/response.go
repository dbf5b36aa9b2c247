package shared

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/park285/turtle-soup-judge/internal/httperror"
	"github.com/park285/turtle-soup-judge/internal/middleware"
)

// WriteError 는 오류를 표준 오류 본문으로 응답하고 요청 ID 를 함께 싣는다.
func WriteError(c *gin.Context, err error) {
	if c == nil {
		return
	}
	status, payload := httperror.Response(err, middleware.GetRequestID(c))
	c.AbortWithStatusJSON(status, payload)
}

// BindJSON 은 요청 본문을 out 에 바인딩한다. 실패하면 응답을 쓰고 false 를 반환한다.
// 본문이 비었거나 JSON 이 깨졌으면 400, binding 태그 검증에 실패하면 422.
func BindJSON(c *gin.Context, out any) bool {
	if c == nil {
		return false
	}
	err := c.ShouldBindJSON(out)
	if err == nil {
		return true
	}

	var validationErrors validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrors):
		WriteError(c, httperror.NewValidationError(err))
	case errors.Is(err, io.EOF):
		WriteError(c, httperror.NewInvalidInput("request body is empty"))
	default:
		WriteError(c, httperror.NewInvalidInput("malformed JSON body: "+err.Error()))
	}
	return false
}
