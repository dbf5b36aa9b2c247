package server

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/park285/turtle-soup-judge/internal/config"
)

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 120 * time.Second
	maxHeaderBytes    = 64 << 10
	// 모델 호출 제한 시간에 더해 응답을 쓰는 여유.
	writeTimeoutSlack = 15 * time.Second
)

// NewHTTPServer 는 판정 API 용 HTTP 서버를 생성한다. HTTP2Enabled 면 평문 HTTP/2(h2c)를 받는다.
// 쓰기 제한은 Gemini 호출 제한 시간보다 길게 잡아 모델 판정이 끊기지 않게 한다.
func NewHTTPServer(cfg *config.Config, router *gin.Engine) *http.Server {
	var handler http.Handler = router
	if cfg.HTTP.HTTP2Enabled {
		handler = h2c.NewHandler(router, &http2.Server{IdleTimeout: idleTimeout})
	}

	return &http.Server{
		Addr:              net.JoinHostPort(cfg.HTTP.Host, strconv.Itoa(cfg.HTTP.Port)),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout(cfg.Gemini.TimeoutSeconds),
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}
}

// writeTimeout 은 모델 제한 시간이 없으면 0(무제한)을 돌려준다.
func writeTimeout(modelTimeoutSeconds int) time.Duration {
	if modelTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(modelTimeoutSeconds)*time.Second + writeTimeoutSlack
}
