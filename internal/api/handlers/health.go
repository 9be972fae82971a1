package handlers

import (
	"net/http"

	"github.com/amaumene/watchduo/internal/controllers"
	"github.com/sirupsen/logrus"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	library *controllers.LibraryController
	logger  *logrus.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(library *controllers.LibraryController, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{library: library, logger: logger}
}

// ServeHTTP handles the health check endpoint
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"items":  len(h.library.Items()),
	})
}
