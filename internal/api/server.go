package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/amaumene/watchduo/internal/api/handlers"
	"github.com/amaumene/watchduo/internal/api/middleware"
	"github.com/amaumene/watchduo/internal/config"
	"github.com/amaumene/watchduo/internal/controllers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Server represents the HTTP server
type Server struct {
	server    *http.Server
	library   *controllers.LibraryController
	searcher  handlers.Searcher
	assistant handlers.Chatter
	hub       *handlers.WSHub
	logger    *logrus.Logger
}

// NewServer creates a new HTTP server. assistant may be nil when no completion
// service is configured; its routes then answer 503.
func NewServer(cfg *config.Config, library *controllers.LibraryController, searcher handlers.Searcher, assistant handlers.Chatter, hub *handlers.WSHub, logger *logrus.Logger) *Server {
	s := &Server{
		library:   library,
		searcher:  searcher,
		assistant: assistant,
		hub:       hub,
		logger:    logger,
	}

	s.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Router builds the route table
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.Logging(s.logger))

	router.Handle("/health", handlers.NewHealthHandler(s.library, s.logger)).Methods(http.MethodGet)
	router.Handle("/status", handlers.NewStatusHandler(s.library, s.logger)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.Handle("/ws", s.hub)

	api := router.PathPrefix("/api").Subrouter()

	items := handlers.NewItemsHandler(s.library, s.logger)
	api.HandleFunc("/items", items.List).Methods(http.MethodGet)
	api.HandleFunc("/items", items.Create).Methods(http.MethodPost)
	api.HandleFunc("/items/{id}", items.Get).Methods(http.MethodGet)
	api.HandleFunc("/items/{id}", items.Update).Methods(http.MethodPatch)
	api.HandleFunc("/items/{id}", items.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/items/{id}/episodes", items.ToggleEpisode).Methods(http.MethodPost)
	api.HandleFunc("/items/{id}/seasons", items.ToggleSeason).Methods(http.MethodPost)
	api.HandleFunc("/items/{id}/watched", items.ToggleWatched).Methods(http.MethodPost)

	api.Handle("/search", handlers.NewSearchHandler(s.searcher, s.logger)).Methods(http.MethodGet)

	if s.assistant != nil {
		assistant := handlers.NewAssistantHandler(s.assistant, s.logger)
		api.HandleFunc("/assistant", assistant.Chat).Methods(http.MethodPost)
		api.HandleFunc("/assistant", assistant.Reset).Methods(http.MethodDelete)
	} else {
		api.HandleFunc("/assistant", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "assistant not configured", http.StatusServiceUnavailable)
		})
	}

	return router
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
