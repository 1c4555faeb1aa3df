package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

// Router bundles the handlers mounted by NewRouter
type Router struct {
	Middleware    *Middleware
	Health        *HealthHandler
	Guest         *GuestHandler
	Auth          *AuthHandler
	Admin         *AdminHandler
	Entertainment *EntertainmentHandler
}

// NewRouter registers every route and wraps the mux in request logging
func NewRouter(rt Router, logger *zap.Logger) http.Handler {
	mw := rt.Middleware
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", rt.Health.Health)

	// Public RSVP API
	mux.HandleFunc("GET /api/family/{code}", mw.RateLimit(rt.Guest.GetFamily))
	mux.HandleFunc("POST /api/guests/{id}", mw.RateLimit(rt.Guest.UpdateGuest))
	mux.HandleFunc("POST /api/family/wedding-meal", mw.RateLimit(rt.Guest.UpdateMeal))
	mux.HandleFunc("POST /api/family/{field}", mw.RateLimit(rt.Guest.UpdateFamilyField))
	mux.HandleFunc("GET /api/entertainment/posts", rt.Entertainment.Posts)
	mux.HandleFunc("GET /api/entertainment/events", rt.Entertainment.Events)

	// Admin
	mux.HandleFunc("POST /admin/login", mw.RateLimit(rt.Auth.Login))
	mux.HandleFunc("GET /admin/guests", mw.RequireAdmin(rt.Admin.ListGuests))
	mux.HandleFunc("POST /admin/guests/{id}", mw.RequireAdmin(rt.Admin.UpdateGuest))
	mux.HandleFunc("POST /admin/family/{field}", mw.RequireAdmin(rt.Admin.UpdateFamilyField))
	mux.HandleFunc("GET /admin/changes", mw.RequireAdmin(rt.Admin.RecentChanges))
	mux.HandleFunc("GET /admin/stats", mw.RequireAdmin(rt.Admin.Stats))
	mux.HandleFunc("GET /admin/export.csv", mw.RequireAdmin(rt.Admin.ExportCSV))
	mux.HandleFunc("POST /admin/cache/clear", mw.RequireAdmin(rt.Admin.ClearCache))

	return Logging(logger)(mux)
}
