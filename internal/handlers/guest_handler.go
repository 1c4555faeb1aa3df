package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"weddingrsvp/internal/models"
	"weddingrsvp/internal/service"
)

// GuestHandler serves the public RSVP endpoints. Every write is scoped to a
// family code.
type GuestHandler struct {
	guests *service.GuestService
	logger *zap.Logger
}

// NewGuestHandler creates a new guest handler
func NewGuestHandler(guests *service.GuestService, logger *zap.Logger) *GuestHandler {
	return &GuestHandler{guests: guests, logger: logger}
}

type familyResponse struct {
	FamilyCode string         `json:"family_code"`
	Guests     []models.Guest `json:"guests"`
}

type updateGuestRequest struct {
	FamilyCode string         `json:"family_code"`
	ChangedBy  string         `json:"changed_by"`
	Updates    map[string]any `json:"updates"`
}

type updateMealRequest struct {
	FamilyCode     string `json:"family_code"`
	GuestID        string `json:"guest_id"`
	MealPreference any    `json:"meal_preference"`
	ChangedBy      string `json:"changed_by"`
}

type updateFamilyRequest struct {
	FamilyCode string `json:"family_code"`
	Value      any    `json:"value"`
	ChangedBy  string `json:"changed_by"`
}

// GetFamily handles GET /api/family/{code}
func (h *GuestHandler) GetFamily(w http.ResponseWriter, r *http.Request) {
	code := models.NormalizeFamilyCode(r.PathValue("code"))
	guests, err := h.guests.FamilyGuests(r.Context(), code)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, familyResponse{FamilyCode: code, Guests: guests})
}

// UpdateGuest handles POST /api/guests/{id}
func (h *GuestHandler) UpdateGuest(w http.ResponseWriter, r *http.Request) {
	var req updateGuestRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		badRequest(w, h.logger, err)
		return
	}
	if strings.TrimSpace(req.FamilyCode) == "" {
		writeServiceError(w, h.logger, fmt.Errorf("%w: family_code is required", service.ErrInvalidRequest))
		return
	}

	res, err := h.guests.UpdateGuest(r.Context(), service.UpdateRequest{
		GuestID:    r.PathValue("id"),
		FamilyCode: req.FamilyCode,
		Fields:     req.Updates,
		ChangedBy:  req.ChangedBy,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// UpdateMeal handles POST /api/family/wedding-meal
func (h *GuestHandler) UpdateMeal(w http.ResponseWriter, r *http.Request) {
	var req updateMealRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		badRequest(w, h.logger, err)
		return
	}

	res, err := h.guests.UpdateMeal(r.Context(), req.GuestID, req.FamilyCode, req.MealPreference, req.ChangedBy)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// UpdateFamilyField handles POST /api/family/{field}
func (h *GuestHandler) UpdateFamilyField(w http.ResponseWriter, r *http.Request) {
	var req updateFamilyRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		badRequest(w, h.logger, err)
		return
	}

	res, err := h.guests.UpdateFamily(r.Context(), service.FamilyUpdateRequest{
		FamilyCode: req.FamilyCode,
		Field:      r.PathValue("field"),
		Value:      req.Value,
		ChangedBy:  req.ChangedBy,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}
