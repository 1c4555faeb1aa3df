package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"weddingrsvp/internal/models"
	"weddingrsvp/internal/service"
)

// EntertainmentHandler serves the cached entertainment content
type EntertainmentHandler struct {
	entertainment *service.EntertainmentService
	logger        *zap.Logger
}

// NewEntertainmentHandler creates a new entertainment handler
func NewEntertainmentHandler(entertainment *service.EntertainmentService, logger *zap.Logger) *EntertainmentHandler {
	return &EntertainmentHandler{entertainment: entertainment, logger: logger}
}

type postsResponse struct {
	Posts []models.EntertainmentPost `json:"posts"`
}

type eventsResponse struct {
	Events []models.EntertainmentEvent `json:"events"`
}

// Posts handles GET /api/entertainment/posts
func (h *EntertainmentHandler) Posts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.entertainment.Posts()
	if err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, "Failed to load posts", "", err)
		return
	}
	WriteJSON(w, http.StatusOK, postsResponse{Posts: posts})
}

// Events handles GET /api/entertainment/events
func (h *EntertainmentHandler) Events(w http.ResponseWriter, r *http.Request) {
	events, err := h.entertainment.Events(r.Context())
	if err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, "Failed to load events", "", err)
		return
	}
	WriteJSON(w, http.StatusOK, eventsResponse{Events: events})
}
