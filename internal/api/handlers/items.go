package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/amaumene/watchduo/internal/collection"
	"github.com/amaumene/watchduo/internal/controllers"
	"github.com/amaumene/watchduo/internal/models"
	"github.com/amaumene/watchduo/internal/search"
	"github.com/amaumene/watchduo/internal/watchstatus"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// ItemsHandler serves the collection and every item mutation
type ItemsHandler struct {
	library *controllers.LibraryController
	logger  *logrus.Logger
}

// NewItemsHandler creates a new items handler
func NewItemsHandler(library *controllers.LibraryController, logger *logrus.Logger) *ItemsHandler {
	return &ItemsHandler{library: library, logger: logger}
}

// ItemResponse is an item with its derived tab and per-user progress
type ItemResponse struct {
	*models.MediaItem
	Tab      collection.Tab      `json:"tab"`
	Progress watchstatus.Summary `json:"progress"`
}

// CreateItemRequest adds either a selected search result or a manual entry
type CreateItemRequest struct {
	Result *models.SearchResult `json:"result,omitempty"`
	Type   models.MediaType     `json:"type,omitempty"`
	Title  string               `json:"title,omitempty"`
	Year   string               `json:"year,omitempty"`
}

// UpdateItemRequest edits rating, platforms, release date or one user's watch date
type UpdateItemRequest struct {
	Rating      *models.Rating `json:"rating,omitempty"`
	Platforms   *[]string      `json:"platforms,omitempty"`
	ReleaseDate *string        `json:"releaseDate,omitempty"`
	WatchDate   *struct {
		User string     `json:"user"`
		Date *time.Time `json:"date"`
	} `json:"watchDate,omitempty"`
}

// ToggleRequest names the user and, for series, the season and episode
type ToggleRequest struct {
	User    string `json:"user"`
	Season  int    `json:"season,omitempty"`
	Episode int    `json:"episode,omitempty"`
}

func (h *ItemsHandler) respondItem(w http.ResponseWriter, status int, item *models.MediaItem) {
	progress, err := h.library.Progress(item.ID)
	if err != nil {
		// the item vanished between the mutation and the read
		writeControllerError(w, h.logger, err)
		return
	}
	writeJSON(w, status, ItemResponse{MediaItem: item, Tab: h.library.Classify(item), Progress: progress})
}

// List returns every item, or one tab when ?tab= is given, filtered by ?type= and ?user=
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := collection.Filter{
		Type: models.MediaType(query.Get("type")),
		User: strings.ToLower(query.Get("user")),
	}
	if filter.Type != "" && !filter.Type.Valid() {
		writeError(w, http.StatusBadRequest, "invalid type")
		return
	}

	var items []*models.MediaItem
	if rawTab := query.Get("tab"); rawTab != "" {
		tab, err := collection.ParseTab(rawTab)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		items = h.library.Tab(tab, filter)
	} else {
		items = h.library.Filter(filter)
	}

	response := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		progress, err := h.library.Progress(item.ID)
		if err != nil {
			continue
		}
		response = append(response, ItemResponse{MediaItem: item, Tab: h.library.Classify(item), Progress: progress})
	}
	writeJSON(w, http.StatusOK, response)
}

// Get returns one item
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.library.Get(mux.Vars(r)["id"])
	if err != nil {
		writeControllerError(w, h.logger, err)
		return
	}
	h.respondItem(w, http.StatusOK, item)
}

// Create adds an item; a duplicate answers 200 with the existing item
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var request CreateItemRequest
	if !decodeBody(w, r, &request) {
		return
	}

	result := search.Manual(request.Type, request.Title, request.Year)
	if request.Result != nil {
		result = *request.Result
	}
	if strings.TrimSpace(result.Title) == "" || !result.Type.Valid() {
		writeError(w, http.StatusBadRequest, "title and a valid type are required")
		return
	}

	item, created, err := h.library.AddItem(r.Context(), result)
	if err != nil {
		writeControllerError(w, h.logger, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.respondItem(w, status, item)
}

// Update applies the edits named in the body
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var request UpdateItemRequest
	if !decodeBody(w, r, &request) {
		return
	}

	var item *models.MediaItem
	var err error
	if request.Rating != nil {
		if item, err = h.library.SetRating(id, *request.Rating); err != nil {
			writeControllerError(w, h.logger, err)
			return
		}
	}
	if request.Platforms != nil {
		if item, err = h.library.SetPlatforms(id, *request.Platforms); err != nil {
			writeControllerError(w, h.logger, err)
			return
		}
	}
	if request.ReleaseDate != nil {
		if item, err = h.library.SetReleaseDate(id, *request.ReleaseDate); err != nil {
			if models.IsNotFound(err) {
				writeControllerError(w, h.logger, err)
				return
			}
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if request.WatchDate != nil {
		if item, err = h.library.SetWatchDate(id, strings.ToLower(request.WatchDate.User), request.WatchDate.Date); err != nil {
			writeControllerError(w, h.logger, err)
			return
		}
	}

	if item == nil {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}
	h.respondItem(w, http.StatusOK, item)
}

// Delete removes an item
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.library.DeleteItem(mux.Vars(r)["id"]); err != nil {
		writeControllerError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleEpisode flips one episode for one user
func (h *ItemsHandler) ToggleEpisode(w http.ResponseWriter, r *http.Request) {
	var request ToggleRequest
	if !decodeBody(w, r, &request) {
		return
	}
	item, err := h.library.ToggleEpisode(mux.Vars(r)["id"], strings.ToLower(request.User), request.Season, request.Episode)
	if err != nil {
		writeControllerError(w, h.logger, err)
		return
	}
	h.respondItem(w, http.StatusOK, item)
}

// ToggleSeason flips a whole season for one user
func (h *ItemsHandler) ToggleSeason(w http.ResponseWriter, r *http.Request) {
	var request ToggleRequest
	if !decodeBody(w, r, &request) {
		return
	}
	item, err := h.library.ToggleSeason(mux.Vars(r)["id"], strings.ToLower(request.User), request.Season)
	if err != nil {
		writeControllerError(w, h.logger, err)
		return
	}
	h.respondItem(w, http.StatusOK, item)
}

// ToggleWatched flips a movie for one user
func (h *ItemsHandler) ToggleWatched(w http.ResponseWriter, r *http.Request) {
	var request ToggleRequest
	if !decodeBody(w, r, &request) {
		return
	}
	item, err := h.library.ToggleMovie(mux.Vars(r)["id"], strings.ToLower(request.User))
	if err != nil {
		writeControllerError(w, h.logger, err)
		return
	}
	h.respondItem(w, http.StatusOK, item)
}
