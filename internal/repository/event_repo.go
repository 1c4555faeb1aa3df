package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"weddingrsvp/internal/database"
	"weddingrsvp/internal/models"
)

// EventRepository reads the beard_events table
type EventRepository struct {
	db *database.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Upcoming returns events at or after now, soonest first
func (r *EventRepository) Upcoming(ctx context.Context, now time.Time, limit int) ([]models.BeardEvent, error) {
	query := "SELECT " + eventColumns + " FROM beard_events WHERE timestamp >= ? ORDER BY timestamp ASC LIMIT ?"
	rows, err := r.db.QueryContext(ctx, query, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return scanEvents(rows)
}

const eventColumns = "id, name, url, timestamp, location, venueurl, duration, imageurl, responded"

func scanEvents(rows *sql.Rows) ([]models.BeardEvent, error) {
	defer rows.Close()

	events := []models.BeardEvent{}
	for rows.Next() {
		var e models.BeardEvent
		if err := rows.Scan(&e.ID, &e.Name, &e.URL, &e.Timestamp, &e.Location, &e.VenueURL,
			&e.Duration, &e.ImageURL, &e.Responded); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

// All returns every event, oldest first
func (r *EventRepository) All(ctx context.Context) ([]models.BeardEvent, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+eventColumns+" FROM beard_events ORDER BY timestamp ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return scanEvents(rows)
}

// Create inserts an event row
func (r *EventRepository) Create(ctx context.Context, e *models.BeardEvent) error {
	return r.insert(ctx, r.db, e)
}

// Upsert replaces the event row with the same id
func (r *EventRepository) Upsert(ctx context.Context, q database.DBTX, e *models.BeardEvent) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM beard_events WHERE id = ?", e.ID); err != nil {
		return fmt.Errorf("failed to replace event: %w", err)
	}
	return r.insert(ctx, q, e)
}

func (r *EventRepository) insert(ctx context.Context, q database.DBTX, e *models.BeardEvent) error {
	var ts any
	if e.Timestamp != nil {
		ts = e.Timestamp.UTC()
	}
	query := "INSERT INTO beard_events (" + eventColumns + ") VALUES (" + database.Placeholders(9) + ")"
	_, err := q.ExecContext(ctx, query, e.ID, e.Name, e.URL, ts, e.Location, e.VenueURL,
		e.Duration, e.ImageURL, e.Responded)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}
