package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"weddingrsvp/internal/models"
	"weddingrsvp/internal/service"
)

// AdminHandler serves the authenticated admin endpoints
type AdminHandler struct {
	guests        *service.GuestService
	entertainment *service.EntertainmentService
	logger        *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(guests *service.GuestService, entertainment *service.EntertainmentService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		guests:        guests,
		entertainment: entertainment,
		logger:        logger,
	}
}

type adminUpdateRequest struct {
	Updates map[string]any `json:"updates"`
}

type adminFamilyRequest struct {
	FamilyCode string `json:"family_code"`
	Value      any    `json:"value"`
}

type guestsResponse struct {
	Count  int            `json:"count"`
	Guests []models.Guest `json:"guests"`
}

type changesResponse struct {
	Limit   int                     `json:"limit"`
	Changes []models.ChangeLogEntry `json:"changes"`
}

// adminAttribution records admin writes as "admin:<username>"
func adminAttribution(r *http.Request) string {
	return "admin:" + AdminFromContext(r.Context())
}

// ListGuests handles GET /admin/guests
func (h *AdminHandler) ListGuests(w http.ResponseWriter, r *http.Request) {
	filter := models.GuestFilter{FamilyCode: r.URL.Query().Get("family")}
	if raw := r.URL.Query().Get("unassigned"); raw != "" {
		unassigned, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(w, h.logger, errors.New("unassigned must be a boolean"))
			return
		}
		filter.Unassigned = unassigned
	}

	guests, err := h.guests.ListGuests(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if guests == nil {
		guests = []models.Guest{}
	}
	WriteJSON(w, http.StatusOK, guestsResponse{Count: len(guests), Guests: guests})
}

// UpdateGuest handles POST /admin/guests/{id}
func (h *AdminHandler) UpdateGuest(w http.ResponseWriter, r *http.Request) {
	var req adminUpdateRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		badRequest(w, h.logger, err)
		return
	}

	res, err := h.guests.UpdateGuest(r.Context(), service.UpdateRequest{
		GuestID:   r.PathValue("id"),
		Fields:    req.Updates,
		ChangedBy: adminAttribution(r),
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// UpdateFamilyField handles POST /admin/family/{field}
func (h *AdminHandler) UpdateFamilyField(w http.ResponseWriter, r *http.Request) {
	var req adminFamilyRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		badRequest(w, h.logger, err)
		return
	}

	res, err := h.guests.UpdateFamily(r.Context(), service.FamilyUpdateRequest{
		FamilyCode: req.FamilyCode,
		Field:      r.PathValue("field"),
		Value:      req.Value,
		ChangedBy:  adminAttribution(r),
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// RecentChanges handles GET /admin/changes
func (h *AdminHandler) RecentChanges(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(w, h.logger, errors.New("limit must be an integer"))
			return
		}
		limit = n
	}
	limit = service.ClampChangeLimit(limit)

	changes, err := h.guests.RecentChanges(r.Context(), limit)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if changes == nil {
		changes = []models.ChangeLogEntry{}
	}
	WriteJSON(w, http.StatusOK, changesResponse{Limit: limit, Changes: changes})
}

// Stats handles GET /admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.guests.Stats(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// ExportCSV handles GET /admin/export.csv. The export is buffered so a
// failure part way through still yields a clean error response.
func (h *AdminHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.guests.ExportCSV(r.Context(), &buf); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	filename := fmt.Sprintf("guests-%s.csv", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// ClearCache handles POST /admin/cache/clear
func (h *AdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.entertainment.ClearCache(); err != nil {
		respondWithError(w, h.logger, http.StatusInternalServerError, "Failed to clear cache", "", err)
		return
	}
	h.logger.Info("cache cleared by admin", zap.String("admin", AdminFromContext(r.Context())))
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Entertainment cache cleared"})
}
