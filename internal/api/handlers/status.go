package handlers

import (
	"net/http"

	"github.com/amaumene/watchduo/internal/collection"
	"github.com/amaumene/watchduo/internal/controllers"
	"github.com/sirupsen/logrus"
)

// StatusHandler reports collection statistics
type StatusHandler struct {
	library *controllers.LibraryController
	logger  *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(library *controllers.LibraryController, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		library: library,
		logger:  logger,
	}
}

// StatusResponse represents the status response
type StatusResponse struct {
	TotalItems   int                          `json:"total_items"`
	Users        []string                     `json:"users"`
	Tabs         collection.Counts            `json:"tabs"`
	TabsByUser   map[string]collection.Counts `json:"tabs_by_user"`
	ItemsByType  map[string]int               `json:"items_by_type"`
	Unenriched   int                          `json:"unenriched"`
	WithTrailers int                          `json:"with_trailers"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	items := h.library.Items()
	users := h.library.Users()

	response := StatusResponse{
		TotalItems:  len(items),
		Users:       users,
		Tabs:        h.library.Counts(collection.Filter{}),
		TabsByUser:  make(map[string]collection.Counts, len(users)),
		ItemsByType: make(map[string]int),
	}
	for _, user := range users {
		response.TabsByUser[user] = h.library.Counts(collection.Filter{User: user})
	}

	for _, item := range items {
		response.ItemsByType[string(item.Type)]++
		if !item.IsEnriched {
			response.Unenriched++
		}
		if item.TrailerURL != "" {
			response.WithTrailers++
		}
	}

	writeJSON(w, http.StatusOK, response)
}
