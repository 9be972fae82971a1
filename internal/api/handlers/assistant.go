package handlers

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Chatter is the conversational assistant
type Chatter interface {
	Chat(ctx context.Context, message string) (string, error)
	Reset()
}

// AssistantHandler relays messages to the assistant
type AssistantHandler struct {
	assistant Chatter
	logger    *logrus.Logger
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(assistant Chatter, logger *logrus.Logger) *AssistantHandler {
	return &AssistantHandler{assistant: assistant, logger: logger}
}

// ChatRequest is one user message
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse carries the reply; Failed marks an apology after an error
type ChatResponse struct {
	Reply  string `json:"reply"`
	Failed bool   `json:"failed"`
}

// Chat handles POST /api/assistant
func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var request ChatRequest
	if !decodeBody(w, r, &request) {
		return
	}
	if request.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := h.assistant.Chat(r.Context(), request.Message)
	if err != nil {
		h.logger.WithError(err).Warn("Assistant turn failed")
		writeJSON(w, http.StatusOK, ChatResponse{Reply: reply, Failed: true})
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Reply: reply})
}

// Reset handles DELETE /api/assistant
func (h *AssistantHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.assistant.Reset()
	w.WriteHeader(http.StatusNoContent)
}
