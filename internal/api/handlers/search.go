package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/amaumene/watchduo/internal/models"
	"github.com/sirupsen/logrus"
)

// Searcher is the search aggregator
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}

// SearchHandler serves candidate searches
type SearchHandler struct {
	searcher Searcher
	logger   *logrus.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searcher Searcher, logger *logrus.Logger) *SearchHandler {
	return &SearchHandler{searcher: searcher, logger: logger}
}

// ServeHTTP handles GET /api/search?q=
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}

	results, err := h.searcher.Search(r.Context(), query)
	if err != nil {
		h.logger.WithError(err).WithField("query", query).Error("Search failed")
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	writeJSON(w, http.StatusOK, results)
}
