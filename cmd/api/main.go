package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/caseras1/ai-childbook/internal/accounts"
	"github.com/caseras1/ai-childbook/internal/adapter/repo"
	"github.com/caseras1/ai-childbook/internal/bootstrap"
	"github.com/caseras1/ai-childbook/internal/http/handlers"
	"github.com/caseras1/ai-childbook/internal/http/httpapi"
	"github.com/caseras1/ai-childbook/internal/infra"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	pipeline, err := bootstrap.NewPipeline(cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load story pipeline")
	}

	ctx := context.Background()
	db, dialect, err := infra.OpenDB(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer db.Close()
	runner := infra.NewSQLRunner(db, dialect, logger)
	accts := accounts.NewService(
		repo.NewAccountRepository(runner),
		repo.NewSessionRepository(runner),
		repo.NewStoryRepository(runner),
		0,
	)

	app := handlers.NewApp(pipeline.Catalog, pipeline.Orchestrator, pipeline.Client, accts, pipeline.Store, &logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		FrontendDir:     cfg.FrontendDir,
		CORSOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Str("db", string(dialect)).Int("stories", len(pipeline.Catalog.Stories())).Msg("API listening")
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
