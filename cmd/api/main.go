package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pdfgate/internal/bootstrap"
	"pdfgate/internal/infra"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	svc, err := bootstrap.NewService(ctx, cfg, logger, bootstrap.Backends{})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to assemble service")
	}

	server := infra.NewHTTPServer(cfg, svc.Handler())

	go func() {
		logger.Info().Str("addr", server.Addr()).Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if err := svc.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to release resources")
	}
	logger.Info().Msg("server stopped")
}
