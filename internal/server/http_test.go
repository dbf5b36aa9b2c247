package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/park285/turtle-soup-judge/internal/config"
)

func TestNewHTTPServer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	tests := []struct {
		name        string
		cfg         config.Config
		wantAddr    string
		wantWrapped bool
		wantWrite   time.Duration
	}{
		{
			name:     "plain http/1.1",
			cfg:      config.Config{HTTP: config.HTTPConfig{Host: "127.0.0.1", Port: 40627}},
			wantAddr: "127.0.0.1:40627",
		},
		{
			name:        "h2c with model timeout",
			cfg:         config.Config{HTTP: config.HTTPConfig{Host: "0.0.0.0", Port: 8080, HTTP2Enabled: true}, Gemini: config.GeminiConfig{TimeoutSeconds: 30}},
			wantAddr:    "0.0.0.0:8080",
			wantWrapped: true,
			wantWrite:   45 * time.Second,
		},
		{
			name:     "ipv6 host",
			cfg:      config.Config{HTTP: config.HTTPConfig{Host: "::1", Port: 9000}},
			wantAddr: "[::1]:9000",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := NewHTTPServer(&tt.cfg, router)
			if server.Addr != tt.wantAddr {
				t.Fatalf("unexpected addr: %s", server.Addr)
			}
			if wrapped := server.Handler != http.Handler(router); wrapped != tt.wantWrapped {
				t.Fatalf("expected wrapped=%v", tt.wantWrapped)
			}
			if server.WriteTimeout != tt.wantWrite {
				t.Fatalf("expected write timeout %v, got %v", tt.wantWrite, server.WriteTimeout)
			}
			if server.ReadHeaderTimeout <= 0 || server.IdleTimeout <= 0 || server.MaxHeaderBytes <= 0 {
				t.Fatalf("expected limits to be set: %+v", server)
			}

			resp := httptest.NewRecorder()
			server.Handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
			if resp.Code != http.StatusOK {
				t.Fatalf("expected handler to serve requests, got %d", resp.Code)
			}
		})
	}
}
