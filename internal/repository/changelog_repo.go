package repository

import (
	"context"
	"fmt"
	"strings"

	"weddingrsvp/internal/database"
	"weddingrsvp/internal/models"
)

const changeLogColumns = "id, guest_id, family_id, column_name, old_value, new_value, changed_by, changed_at"

// ChangeLogRepository appends and reads guest change-log entries
type ChangeLogRepository struct {
	db *database.DB
}

// NewChangeLogRepository creates a new change-log repository
func NewChangeLogRepository(db *database.DB) *ChangeLogRepository {
	return &ChangeLogRepository{db: db}
}

// Insert writes all entries with one multi-row statement
func (r *ChangeLogRepository) Insert(ctx context.Context, q database.DBTX, entries []models.ChangeLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	row := "(" + database.Placeholders(8) + ")"
	rows := make([]string, len(entries))
	args := make([]any, 0, len(entries)*8)
	for i, e := range entries {
		rows[i] = row
		args = append(args, e.ID, e.GuestID, e.FamilyID, e.ColumnName, e.OldValue, e.NewValue, e.ChangedBy, e.ChangedAt.UTC())
	}

	query := "INSERT INTO guest_change_log (" + changeLogColumns + ") VALUES " + strings.Join(rows, ", ")
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert change log: %w", err)
	}
	return nil
}

// Recent returns the newest entries first with the guest's current name when it still exists
func (r *ChangeLogRepository) Recent(ctx context.Context, limit int) ([]models.ChangeLogEntry, error) {
	query := `
		SELECT l.id, l.guest_id, l.family_id, l.column_name, l.old_value, l.new_value,
			l.changed_by, l.changed_at, g.name
		FROM guest_change_log l
		LEFT JOIN guests g ON g.id = l.guest_id
		ORDER BY l.changed_at DESC, l.column_name ASC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query change log: %w", err)
	}
	defer rows.Close()

	entries := []models.ChangeLogEntry{}
	for rows.Next() {
		var e models.ChangeLogEntry
		if err := rows.Scan(&e.ID, &e.GuestID, &e.FamilyID, &e.ColumnName, &e.OldValue, &e.NewValue,
			&e.ChangedBy, &e.ChangedAt, &e.GuestName); err != nil {
			return nil, fmt.Errorf("failed to scan change log: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate change log: %w", err)
	}
	return entries, nil
}

// ListByGuest returns a guest's entries oldest first
func (r *ChangeLogRepository) ListByGuest(ctx context.Context, guestID string) ([]models.ChangeLogEntry, error) {
	return r.list(ctx, "SELECT "+changeLogColumns+" FROM guest_change_log WHERE guest_id = ? ORDER BY changed_at ASC, column_name ASC", guestID)
}

// All returns every entry oldest first
func (r *ChangeLogRepository) All(ctx context.Context) ([]models.ChangeLogEntry, error) {
	return r.list(ctx, "SELECT "+changeLogColumns+" FROM guest_change_log ORDER BY changed_at ASC, id ASC")
}

// Count returns the number of stored entries
func (r *ChangeLogRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM guest_change_log").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count change log: %w", err)
	}
	return n, nil
}

// Exists reports whether an entry with id is already stored
func (r *ChangeLogRepository) Exists(ctx context.Context, q database.DBTX, id string) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM guest_change_log WHERE id = ?", id).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check change log entry: %w", err)
	}
	return n > 0, nil
}

func (r *ChangeLogRepository) list(ctx context.Context, query string, args ...any) ([]models.ChangeLogEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query change log: %w", err)
	}
	defer rows.Close()

	entries := []models.ChangeLogEntry{}
	for rows.Next() {
		var e models.ChangeLogEntry
		if err := rows.Scan(&e.ID, &e.GuestID, &e.FamilyID, &e.ColumnName, &e.OldValue, &e.NewValue,
			&e.ChangedBy, &e.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan change log: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate change log: %w", err)
	}
	return entries, nil
}
