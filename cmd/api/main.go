package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"video-insight/cmd/api/router"
	"video-insight/cmd/api/services"
	"video-insight/cmd/internal/app"
	"video-insight/config"
	"video-insight/eventbus"
	"video-insight/events"
	"video-insight/pipeline"
	"video-insight/storage"
)

func main() {
	config.InitApp()
	cfg := config.GetConfig()
	config.InitLogger(cfg.Logging.Level)
	gin.SetMode(gin.ReleaseMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, err := app.OpenStores(ctx, cfg.Store)
	if err != nil {
		config.Logger.Errorf("failed to open store: %v", err)
		os.Exit(1)
	}
	defer stores.Close(context.Background())

	brokers, err := eventbus.GetBrokers()
	if err != nil {
		config.Logger.Errorf("%v", err)
		os.Exit(1)
	}
	if err := eventbus.EnsureTopics(brokers, eventbus.TopicAnalysisEvents, 3); err != nil {
		config.Logger.Errorf("failed to ensure eventbus topics: %v", err)
	}
	bus, err := eventbus.NewKafkaEventBus(brokers)
	if err != nil {
		config.Logger.Errorf("failed to create event bus: %v", err)
		os.Exit(1)
	}
	defer bus.Close()

	// API 는 서명 URL 발급에만 오디오 파이프라인을 쓰므로 TTS 벤더 없이 만든다.
	var signer services.AudioSigner
	if cfg.Storage.Bucket != "" {
		gcs, err := storage.NewGCS(ctx, cfg.Storage.Bucket)
		if err != nil {
			config.Logger.Errorf("failed to create storage client: %v", err)
			os.Exit(1)
		}
		defer gcs.Close()
		signer = pipeline.NewAudioPipeline(pipeline.AudioDeps{Analyses: stores.Analyses, Storage: gcs}, pipeline.AudioOptionsFromConfig(cfg))
	} else {
		config.Logger.Warn("GCS_BUCKET is not set; audio endpoints are disabled")
	}

	svc := services.NewAnalysisService(stores.Analyses, events.NewDispatcher(bus, "api"), signer, cfg.Storage.SignedURLTTL)
	engine := router.New(svc, stores.Ping)

	srv := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           router.WithCORS(engine, cfg.API.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		config.Logger.Infof("api listening on %s", cfg.API.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			config.Logger.Errorf("api server error: %v", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
	case <-ctx.Done():
	}
	config.Logger.Info("shutting down api server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		config.Logger.Errorf("api shutdown error: %v", err)
	}
	config.Logger.Info("api server stopped")
}
