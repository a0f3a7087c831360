// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"video-cm-analysis/internal/config"
	"video-cm-analysis/internal/domain/ports/adapter"
	aiAdapters "video-cm-analysis/internal/infra/adapters/ai"
	engineAdapters "video-cm-analysis/internal/infra/adapters/engine"
	pg "video-cm-analysis/internal/infra/db/postgres"
	"video-cm-analysis/internal/infra/logging"
	"video-cm-analysis/internal/infra/metrics"
	"video-cm-analysis/internal/infra/pipeline"
	red "video-cm-analysis/internal/infra/redis"
	"video-cm-analysis/internal/infra/web"
	"video-cm-analysis/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, relaxed cookies)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()

	// ---- Repositories ----
	txManager := pg.NewTxManager(pool)
	videoRepo := pg.NewVideoRepo(pool)
	transcriptionRepo := red.NewTranscriptionRepoCache(pg.NewTranscriptionRepo(pool), redisClient, cfg.Redis.TTL)
	analysisRepo := pg.NewAnalysisRepo(pool)
	settingRepo := pg.NewSettingRepo(pool, cfg.Gemini.DefaultModel)

	// ---- Speech engine ----
	buildEngine := func(ctx context.Context) (adapter.SpeechEngine, error) {
		switch cfg.Whisper.Backend {
		case "openai":
			return engineAdapters.NewOpenAIEngine(cfg.Whisper.OpenAIKey)
		default:
			return engineAdapters.NewWhisperCLI(cfg.Whisper.BinPath, cfg.Whisper.Model)
		}
	}
	engineProvider := engineAdapters.NewProvider(buildEngine, logger)

	// ---- Transcription pipeline ----
	pipe := pipeline.New(videoRepo, transcriptionRepo, txManager, engineProvider, cfg.Whisper.Language, logger)

	// Recover orphaned jobs before accepting requests so queue positions are
	// stable from the first response onward.
	scanner := pipeline.NewScanner(videoRepo, pipe, logger)
	if recovered := scanner.Run(ctx); recovered > 0 {
		logger.Info().Int("count", recovered).Msg("recovered incomplete transcriptions")
	}

	// Engine warm-up is best-effort; the first job retries on failure.
	go pipe.WarmUp(ctx)

	// ---- Use cases ----
	settingsUC := usecase.NewSettingsUseCase(settingRepo, logger)
	if err := settingsUC.SeedKeys(ctx, cfg.Gemini.SeedKeys); err != nil {
		logger.Warn().Err(err).Msg("api key seeding failed")
	}

	dispatcher := aiAdapters.NewDispatcher(settingRepo, aiAdapters.NewGeminiCaller(), cfg.Gemini.RequestTimeout, logger)
	videoUC := usecase.NewVideoUseCase(videoRepo, transcriptionRepo, txManager, pipe, logger)
	analysisUC := usecase.NewAnalysisUseCase(videoRepo, transcriptionRepo, analysisRepo, dispatcher, logger)

	// ---- API server ----
	auth := web.NewAuthManager(cfg.Security.AdminSecret, !cfg.Runtime.Dev, cfg.Security.SessionTTL)
	srv := web.NewServer(videoUC, analysisUC, settingsUC, pipe, auth, cfg.Upload, logger)

	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", apiServer.Addr).Msg("api listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("api server error")
		}
	}()

	// ---- Metrics server ----
	adminMux := http.NewServeMux()
	adminMux.Handle("/metrics", promhttp.Handler())
	adminServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.AdminPort),
		Handler:           adminMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", adminServer.Addr).Msg("metrics listening")
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("api shutdown")
	}
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("metrics shutdown")
	}
	cancel()
}
