package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/amaumene/watchduo/internal/config"
	"github.com/amaumene/watchduo/internal/enrichment"
	"github.com/amaumene/watchduo/internal/models"
	"github.com/amaumene/watchduo/internal/search"
	"github.com/amaumene/watchduo/internal/services/gemini"
	"github.com/amaumene/watchduo/internal/services/omdb"
	"github.com/amaumene/watchduo/internal/services/tmdb"
	"github.com/amaumene/watchduo/internal/services/tvmaze"
	"github.com/amaumene/watchduo/internal/services/youtube"
	"github.com/amaumene/watchduo/internal/utils"
	"github.com/sirupsen/logrus"
)

// app holds the components shared by every command
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	db       *models.Database
	search   *search.Aggregator
	pipeline *enrichment.Pipeline
	gemini   *gemini.Client // nil when GEMINI_API_KEY is unset
}

func newApp() (*app, error) {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel)
	logger.WithFields(logrus.Fields{
		"config_dir": filepath.Dir(cfg.DatabaseFile),
		"users":      cfg.Users,
		"language":   cfg.Language.String(),
	}).Info("Configuration loaded")

	// 3. Initialize database
	db, err := models.NewDatabase(cfg.DatabaseFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info("Database initialized")

	// 4. Load title deny list
	filter, err := utils.LoadTitleFilter(cfg.TitleDenyFile)
	if err != nil {
		logger.WithError(err).Warn("Failed to load title deny list, continuing without it")
		filter = utils.NewTitleFilter()
	}

	// 5. Initialize services. Providers without credentials are skipped.
	var general, secondary search.MovieProvider
	if client, err := tmdb.NewClient(cfg, logger); err != nil {
		logger.WithError(err).Warn("TMDB disabled")
	} else {
		general = client
	}
	if client, err := omdb.NewClient(cfg, logger); err != nil {
		logger.WithError(err).Warn("OMDb disabled")
	} else {
		secondary = client
	}
	series := tvmaze.NewClient(cfg, logger)

	aggregator := search.NewAggregator(general, secondary, series, time.Duration(cfg.SearchTimeoutSeconds)*time.Second, logger)

	videos := youtube.NewClient(cfg, logger)
	if cfg.YouTubeAPIKey == "" {
		logger.Warn("YOUTUBE_API_KEY not set, trailers come from the AI fallback only")
	}

	a := &app{cfg: cfg, logger: logger, db: db, search: aggregator}

	var completer enrichment.Completer
	if client, err := gemini.NewClient(cfg, logger); err != nil {
		logger.WithError(err).Warn("Gemini disabled: no AI trailer fallback, metadata or assistant")
	} else {
		a.gemini = client
		completer = client
	}

	a.pipeline = enrichment.NewPipeline(videos, videos, completer, db, filter, cfg.Language, logger)
	logger.Info("Services initialized")

	return a, nil
}

func (a *app) Close() {
	a.pipeline.Wait()
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Failed to close database")
	}
}
