package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/park285/turtle-soup-judge/internal/config"
	"github.com/park285/turtle-soup-judge/internal/di"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx := context.Background()
	app, err := di.InitializeApp(ctx)
	if err != nil {
		log.Fatalf("failed to initialize app: %v", err)
	}
	defer app.Close()

	config.LogEnvStatus(app.Config, app.Logger)
	app.Logger.Info(
		"http_server_start",
		"host", app.Config.HTTP.Host,
		"port", app.Config.HTTP.Port,
		"http2", app.Config.HTTP.HTTP2Enabled,
	)

	serverErr := make(chan error, 2)
	go func() {
		serverErr <- app.Server.ListenAndServe()
	}()

	if app.GRPC != nil && app.GRPC.Server != nil {
		app.Logger.Info("grpc_server_start", "addr", app.GRPC.Listener.Addr().String())
		go func() {
			if serveErr := app.GRPC.Server.Serve(app.GRPC.Listener); serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
				serverErr <- serveErr
			}
		}()
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalCh)

	select {
	case sig := <-signalCh:
		app.Logger.Info("http_server_shutdown_signal", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		if shutdownErr := app.Server.Shutdown(shutdownCtx); shutdownErr != nil {
			app.Logger.Error("http_server_shutdown_failed", "err", shutdownErr)
			_ = app.Server.Close()
		}
		err = nil
	case err = <-serverErr:
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.Logger.Error("server_failed", "err", err)
		app.Close()
		os.Exit(1)
	}
}
