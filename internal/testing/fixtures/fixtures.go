// Package fixtures creates guests and events for tests.
//
// Usage:
//
//	f := fixtures.New(tdb.DB)
//	g := f.CreateGuest(t, fixtures.InFamily("LAMP"), fixtures.WithAttendance(2))
package fixtures

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"weddingrsvp/internal/database"
	"weddingrsvp/internal/models"
	"weddingrsvp/internal/repository"
)

var seq atomic.Int64

// Factory inserts test rows
type Factory struct {
	guests *repository.GuestRepository
	events *repository.EventRepository
	db     *database.DB
}

// New creates a new fixture factory
func New(db *database.DB) *Factory {
	return &Factory{
		guests: repository.NewGuestRepository(db),
		events: repository.NewEventRepository(db),
		db:     db,
	}
}

// GuestOpt customises a fixture guest
type GuestOpt func(*models.Guest)

// InFamily sets the family code
func InFamily(code string) GuestOpt {
	return func(g *models.Guest) { g.FamilyID = &code }
}

// Named sets the guest name
func Named(name string) GuestOpt {
	return func(g *models.Guest) { g.Name = name }
}

// WithEmail sets the email address
func WithEmail(email string) GuestOpt {
	return func(g *models.Guest) { g.Email = &email }
}

// WithAttendance sets attendance_status
func WithAttendance(status int) GuestOpt {
	return func(g *models.Guest) { g.AttendanceStatus = &status }
}

// InvitedTo sets a sub-event flag (stag, hen or ceremony)
func InvitedTo(event string, status int) GuestOpt {
	return func(g *models.Guest) {
		if !g.SetColumn(event, status) {
			panic(fmt.Sprintf("fixtures: unknown column %q", event))
		}
	}
}

// WithMeal sets wedding_meal
func WithMeal(meal int) GuestOpt {
	return func(g *models.Guest) { g.WeddingMeal = &meal }
}

// CreateGuest inserts a guest with a unique name and no family by default
func (f *Factory) CreateGuest(t *testing.T, opts ...GuestOpt) *models.Guest {
	t.Helper()

	g := &models.Guest{
		ID:        uuid.NewString(),
		Name:      fmt.Sprintf("Guest %03d", seq.Add(1)),
		CreatedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(g)
	}

	if err := f.guests.Create(context.Background(), f.db, g); err != nil {
		t.Fatalf("fixtures: failed to create guest: %v", err)
	}
	return g
}

// CreateEvent inserts a beard_events row at the given time
func (f *Factory) CreateEvent(t *testing.T, name string, at time.Time) *models.BeardEvent {
	t.Helper()

	e := &models.BeardEvent{ID: uuid.NewString(), Name: &name, Timestamp: &at}
	if err := f.events.Create(context.Background(), e); err != nil {
		t.Fatalf("fixtures: failed to create event: %v", err)
	}
	return e
}
