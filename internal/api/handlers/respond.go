package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/amaumene/watchduo/internal/controllers"
	"github.com/amaumene/watchduo/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeControllerError maps controller errors onto HTTP statuses
func writeControllerError(w http.ResponseWriter, logger *logrus.Logger, err error) {
	switch {
	case models.IsNotFound(err):
		writeError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, controllers.ErrUnknownUser),
		errors.Is(err, controllers.ErrUnknownSeason),
		errors.Is(err, controllers.ErrWrongType):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.WithError(err).Error("Request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
