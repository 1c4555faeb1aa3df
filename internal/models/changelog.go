package models

import "time"

// ChangeLogEntry is one audited column change. Entries are append-only.
type ChangeLogEntry struct {
	ID         string    `json:"id"`
	GuestID    string    `json:"guest_id"`
	FamilyID   *string   `json:"family_id"`
	ColumnName string    `json:"column_name"`
	OldValue   *string   `json:"old_value"`
	NewValue   *string   `json:"new_value"`
	ChangedBy  *string   `json:"changed_by"`
	ChangedAt  time.Time `json:"changed_at"`

	// GuestName is the guest's current name, nil once the guest row is gone
	GuestName *string `json:"guest_name,omitempty"`
}

// FieldChange is the stringified before/after of one column
type FieldChange struct {
	Column string
	Old    *string
	New    *string
}
