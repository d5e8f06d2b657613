package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/eamwealth/backoffice-chat/internal/api"
	"github.com/eamwealth/backoffice-chat/internal/auth"
	"github.com/eamwealth/backoffice-chat/internal/config"
	"github.com/eamwealth/backoffice-chat/internal/controller"
	"github.com/eamwealth/backoffice-chat/pkg/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := log.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Init(cfg.Log)
	logger := log.L()

	logger.Info().Str("api_base", cfg.API.BaseURL).Msg("starting backoffice chat core")

	tokens := auth.TokenSource(func() string { return cfg.API.Token })

	apiClient := api.NewHTTPClient(cfg.API, tokens)

	ctrl := controller.New(cfg, apiClient, tokens)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl.Start(ctx)
	defer ctrl.Stop()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
}
