package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amaumene/watchduo/internal/api"
	"github.com/amaumene/watchduo/internal/api/handlers"
	"github.com/amaumene/watchduo/internal/assistant"
	"github.com/amaumene/watchduo/internal/controllers"
	"github.com/amaumene/watchduo/internal/scheduler"
	"github.com/amaumene/watchduo/internal/watchstatus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func runServe(parent context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger
	logger.Info("Starting Watchduo")

	tracerProvider := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tracerProvider)
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Warn("Failed to shut down tracer provider")
		}
	}()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// 6. Initialize controllers
	library := controllers.NewLibraryController(a.db, a.pipeline, a.search, watchstatus.NewModel(a.cfg.Users), logger)
	if err := library.Reload(); err != nil {
		return fmt.Errorf("failed to load library: %w", err)
	}
	defer library.WaitForPersistence()

	libraryChanges, unsubscribeLibrary := a.db.Subscribe()
	defer unsubscribeLibrary()
	go library.Watch(ctx, libraryChanges)

	hub := handlers.NewWSHub(logger)
	hubChanges, unsubscribeHub := a.db.Subscribe()
	defer unsubscribeHub()
	go hub.Run(ctx, hubChanges)

	var chatter handlers.Chatter
	if a.gemini != nil {
		chatter = assistant.New(a.gemini, a.search, library, logger)
	}
	logger.Info("Controllers initialized")

	// 7. Initialize scheduler
	sched := scheduler.NewScheduler(library, a.db, a.pipeline, a.cfg.ReconcileSchedule, a.cfg.EnrichSchedule, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// 8. Initialize HTTP server
	server := api.NewServer(a.cfg, library, a.search, chatter, hub, logger)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// 9. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Watchduo is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	case <-parent.Done():
	}

	logger.Info("Watchduo stopped")
	return nil
}
