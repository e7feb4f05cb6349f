package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"video-insight/cmd/internal/app"
	"video-insight/cmd/processor/event/handler"
	"video-insight/config"
	"video-insight/eventbus"
	"video-insight/events"
)

func main() {
	config.InitApp()
	cfg := config.GetConfig()
	config.InitLogger(cfg.Logging.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		config.Logger.Errorf("failed to initialize processor: %v", err)
		os.Exit(1)
	}
	defer a.Close(context.Background())

	// EventBus 초기화 및 토픽 보장
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

	eventHandler := handler.NewEventHandlers(a.Analysis, a.Audio, events.NewDispatcher(bus, "processor"), cfg.Analysis.AutoAudio)
	groupID := eventbus.GetGroupID("video-insight-processor")

	config.Logger.Info("starting processor service with eventbus...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := bus.Subscribe(ctx, groupID, eventbus.TopicAnalysisEvents, eventHandler.Handle); err != nil && !errors.Is(err, context.Canceled) {
			config.Logger.Errorf("eventbus subscribe error: %v", err)
			cancel()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		recovery := NewRecoveryService(a.Recovery, cfg.Recovery.Schedule)
		if err := recovery.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			config.Logger.Errorf("recovery sweeper error: %v", err)
		}
	}()

	select {
	case <-sigChan:
		config.Logger.Info("received shutdown signal, shutting down processor service...")
	case <-ctx.Done():
	}

	cancel()
	wg.Wait()

	config.Logger.Info("processor service stopped")
}
