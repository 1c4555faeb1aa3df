package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"weddingrsvp/internal/database"
	"weddingrsvp/internal/models"
)

// GuestColumns lists the guests table columns in schema order
var GuestColumns = []string{
	"id", "family_id", "name", "age", "side", "guest_type", "sex", "email", "mobile",
	"address", "comment", "music_requests", "restrictions", "ideas", "stag", "hen",
	"ceremony", "wedding_meal", "friday_room", "saturday_room", "attendance_status", "created_at",
}

var guestSelect = "SELECT " + strings.Join(GuestColumns, ", ") + " FROM guests"

var knownColumns = func() map[string]bool {
	m := make(map[string]bool, len(GuestColumns))
	for _, c := range GuestColumns {
		m[c] = true
	}
	return m
}()

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGuest(row rowScanner) (*models.Guest, error) {
	g := &models.Guest{}
	err := row.Scan(
		&g.ID, &g.FamilyID, &g.Name, &g.Age, &g.Side, &g.GuestType, &g.Sex, &g.Email, &g.Mobile,
		&g.Address, &g.Comment, &g.MusicRequests, &g.Restrictions, &g.Ideas, &g.Stag, &g.Hen,
		&g.Ceremony, &g.WeddingMeal, &g.FridayRoom, &g.SaturdayRoom, &g.AttendanceStatus, &g.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func guestValues(g *models.Guest) []any {
	return []any{
		g.ID, g.FamilyID, g.Name, g.Age, g.Side, g.GuestType, g.Sex, g.Email, g.Mobile,
		g.Address, g.Comment, g.MusicRequests, g.Restrictions, g.Ideas, g.Stag, g.Hen,
		g.Ceremony, g.WeddingMeal, g.FridayRoom, g.SaturdayRoom, g.AttendanceStatus, g.CreatedAt.UTC(),
	}
}

// GuestRepository handles database operations for guests
type GuestRepository struct {
	db *database.DB
}

// NewGuestRepository creates a new guest repository
func NewGuestRepository(db *database.DB) *GuestRepository {
	return &GuestRepository{db: db}
}

// GetByID retrieves a guest by ID, returning nil when no row matches
func (r *GuestRepository) GetByID(ctx context.Context, q database.DBTX, id string) (*models.Guest, error) {
	g, err := scanGuest(q.QueryRowContext(ctx, guestSelect+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guest: %w", err)
	}
	return g, nil
}

// ListByFamily retrieves every guest with the family code, ordered by name
func (r *GuestRepository) ListByFamily(ctx context.Context, q database.DBTX, familyCode string) ([]models.Guest, error) {
	return r.query(ctx, q, guestSelect+" WHERE UPPER(family_id) = ? ORDER BY name ASC, id ASC",
		models.NormalizeFamilyCode(familyCode))
}

// List retrieves guests matching the filter, ordered by name
func (r *GuestRepository) List(ctx context.Context, filter models.GuestFilter) ([]models.Guest, error) {
	switch {
	case filter.Unassigned:
		return r.query(ctx, r.db, guestSelect+" WHERE family_id IS NULL OR TRIM(family_id) = '' ORDER BY name ASC, id ASC")
	case filter.FamilyCode != "":
		return r.ListByFamily(ctx, r.db, filter.FamilyCode)
	default:
		return r.query(ctx, r.db, guestSelect+" ORDER BY name ASC, id ASC")
	}
}

func (r *GuestRepository) query(ctx context.Context, q database.DBTX, query string, args ...any) ([]models.Guest, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query guests: %w", err)
	}
	defer rows.Close()

	guests := []models.Guest{}
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guest: %w", err)
		}
		guests = append(guests, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate guests: %w", err)
	}
	return guests, nil
}

// Create inserts a new guest row
func (r *GuestRepository) Create(ctx context.Context, q database.DBTX, g *models.Guest) error {
	query := "INSERT INTO guests (" + strings.Join(GuestColumns, ", ") + ") VALUES (" +
		database.Placeholders(len(GuestColumns)) + ")"
	if _, err := q.ExecContext(ctx, query, guestValues(g)...); err != nil {
		return fmt.Errorf("failed to create guest: %w", err)
	}
	return nil
}

// UpdateColumns sets the given columns on one guest in a single statement
func (r *GuestRepository) UpdateColumns(ctx context.Context, q database.DBTX, id string, columns []string, values []any) error {
	if len(columns) == 0 {
		return nil
	}
	if len(columns) != len(values) {
		return fmt.Errorf("failed to update guest: %d columns but %d values", len(columns), len(values))
	}

	sets := make([]string, len(columns))
	for i, c := range columns {
		if !knownColumns[c] || c == "id" || c == "created_at" {
			return fmt.Errorf("failed to update guest: column %q is not updatable", c)
		}
		sets[i] = c + " = ?"
	}

	args := append(append([]any{}, values...), id)
	query := "UPDATE guests SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update guest: %w", err)
	}
	return nil
}

// SetColumnForIDs sets one column to the same value on every listed guest
func (r *GuestRepository) SetColumnForIDs(ctx context.Context, q database.DBTX, column string, value any, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if !knownColumns[column] || column == "id" || column == "created_at" {
		return 0, fmt.Errorf("failed to update guests: column %q is not updatable", column)
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, value)
	for _, id := range ids {
		args = append(args, id)
	}

	query := "UPDATE guests SET " + column + " = ? WHERE id IN (" + database.Placeholders(len(ids)) + ")"
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update guests: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// CountFamilies returns the number of distinct family codes
func (r *GuestRepository) CountFamilies(ctx context.Context) (int, error) {
	var count int
	query := "SELECT COUNT(DISTINCT UPPER(family_id)) FROM guests WHERE family_id IS NOT NULL AND TRIM(family_id) <> ''"
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count families: %w", err)
	}
	return count, nil
}
