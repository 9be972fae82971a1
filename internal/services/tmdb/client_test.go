package tmdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/amaumene/watchduo/internal/config"
	"github.com/amaumene/watchduo/internal/models"
	"github.com/amaumene/watchduo/internal/utils"
)

func TestSearchMovies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "Dune", r.URL.Query().Get("query"))
		assert.Equal(t, "2021", r.URL.Query().Get("primary_release_year"))
		assert.Equal(t, "es-ES", r.URL.Query().Get("language"))
		assert.Equal(t, "key", r.URL.Query().Get("api_key"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"page": 1,
			"results": []any{
				map[string]any{
					"id":            438631,
					"title":         "Dune",
					"overview":      "Paul Atreides...",
					"release_date":  "2021-09-15",
					"poster_path":   "/poster.jpg",
					"backdrop_path": "/backdrop.jpg",
				},
				map[string]any{"id": 1, "title": " "},
			},
		})
	}))
	defer server.Close()

	cfg := &config.Config{TMDBAPIKey: "key", TMDBBaseURL: server.URL, Language: language.MustParse("es-ES")}
	client, err := NewClient(cfg, utils.NewDiscardLogger())
	require.NoError(t, err)

	results, err := client.SearchMovies(context.Background(), "Dune", "2021")
	require.NoError(t, err)
	require.Len(t, results, 1)

	result := results[0]
	assert.Equal(t, models.SourceTMDB, result.Source)
	assert.Equal(t, "438631", result.ProviderID)
	assert.Equal(t, "2021", result.Year)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/poster.jpg", result.PosterURL)
	assert.Equal(t, "https://image.tmdb.org/t/p/w780/backdrop.jpg", result.BackupPosterURL)
}

func TestSearchMoviesNonOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	cfg := &config.Config{TMDBAPIKey: "bad", TMDBBaseURL: server.URL}
	client, err := NewClient(cfg, utils.NewDiscardLogger())
	require.NoError(t, err)

	_, err = client.SearchMovies(context.Background(), "Dune", "")
	assert.Error(t, err)
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(&config.Config{TMDBBaseURL: "http://x"}, utils.NewDiscardLogger())
	assert.Error(t, err)
}
