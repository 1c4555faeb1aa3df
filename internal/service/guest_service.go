package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"weddingrsvp/internal/database"
	"weddingrsvp/internal/models"
	"weddingrsvp/internal/repository"
)

const (
	DefaultChangeLimit = 50
	MaxChangeLimit     = 100
)

// AttendanceNotifier is told about committed family attendance changes
type AttendanceNotifier interface {
	NotifyAttendance(ctx context.Context, guests []models.Guest, status int) error
}

// UpdateRequest is a partial update of one guest. FamilyCode, when set, must
// match the guest's family, and the caller may then only answer sub-events
// the guest is already invited to.
type UpdateRequest struct {
	GuestID    string
	FamilyCode string
	Fields     map[string]any
	ChangedBy  string
}

// UpdateResult reports what an update changed
type UpdateResult struct {
	Changed       bool          `json:"changed"`
	ChangedFields []string      `json:"changed_fields"`
	Message       string        `json:"message"`
	Guest         *models.Guest `json:"guest"`
}

// MealResult reports a wedding meal update
type MealResult struct {
	UpdatedGuests int           `json:"updated_guests"`
	Message       string        `json:"message"`
	Guest         *models.Guest `json:"guest"`
}

// FamilyUpdateRequest sets one column on every eligible guest of a family
type FamilyUpdateRequest struct {
	FamilyCode string
	Field      string
	Value      any
	ChangedBy  string
}

// FamilyUpdateResult reports a family-wide update
type FamilyUpdateResult struct {
	UpdatedCount  int      `json:"updated_count"`
	UpdatedGuests []string `json:"updated_guests"`
	Message       string   `json:"message"`
}

// GuestService applies audited updates to guests
type GuestService struct {
	db        *database.DB
	guestRepo *repository.GuestRepository
	logRepo   *repository.ChangeLogRepository
	notifier  AttendanceNotifier
	logger    *zap.Logger
	now       func() time.Time
}

// NewGuestService creates a new guest service. notifier may be nil.
func NewGuestService(db *database.DB, guestRepo *repository.GuestRepository, logRepo *repository.ChangeLogRepository, notifier AttendanceNotifier, logger *zap.Logger) *GuestService {
	return &GuestService{
		db:        db,
		guestRepo: guestRepo,
		logRepo:   logRepo,
		notifier:  notifier,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// UpdateGuest validates the requested fields, applies the ones that differ
// from the stored row and logs one entry per changed column, atomically.
func (s *GuestService) UpdateGuest(ctx context.Context, req UpdateRequest) (*UpdateResult, error) {
	guestID := strings.TrimSpace(req.GuestID)
	if guestID == "" {
		return nil, fmt.Errorf("%w: guest id is required", ErrInvalidRequest)
	}
	if len(req.Fields) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", ErrInvalidRequest)
	}

	values, err := resolveFields(req.Fields)
	if err != nil {
		return nil, err
	}

	result := &UpdateResult{ChangedFields: []string{}}
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		guest, err := s.guestRepo.GetByID(ctx, tx, guestID)
		if err != nil {
			return storageErr("load guest", err)
		}
		if guest == nil || (req.FamilyCode != "" && !guest.InFamily(req.FamilyCode)) {
			return ErrGuestNotFound
		}

		changes, columns, newValues := diffGuest(guest, values)
		if req.FamilyCode != "" {
			if err := checkInvitations(changes); err != nil {
				return err
			}
		}
		if len(changes) == 0 {
			result.Message = "No changes"
			result.Guest = guest
			return nil
		}

		if err := s.guestRepo.UpdateColumns(ctx, tx, guest.ID, columns, newValues); err != nil {
			return storageErr("update guest", err)
		}

		updated, err := s.guestRepo.GetByID(ctx, tx, guest.ID)
		if err != nil {
			return storageErr("reload guest", err)
		}
		if updated == nil {
			return ErrGuestNotFound
		}

		entries := s.entriesFor(*updated, changes, req.ChangedBy)
		if err := s.logRepo.Insert(ctx, tx, entries); err != nil {
			return storageErr("write change log", err)
		}

		result.Changed = true
		result.ChangedFields = columns
		result.Message = fmt.Sprintf("Updated %s", strings.Join(columns, ", "))
		result.Guest = updated
		return nil
	})
	if err != nil {
		return nil, txErr("update guest", err)
	}

	if result.Changed {
		s.logger.Info("guest updated",
			zap.String("guest_id", guestID),
			zap.Strings("fields", result.ChangedFields),
			zap.String("changed_by", req.ChangedBy),
		)
	}
	return result, nil
}

// diffGuest compares requested values against the stored row in schema order
func diffGuest(guest *models.Guest, values map[string]any) ([]models.FieldChange, []string, []any) {
	var (
		changes   []models.FieldChange
		columns   []string
		newValues []any
	)
	for _, rule := range columnRules {
		next, ok := values[rule.Column]
		if !ok {
			continue
		}
		current, _ := guest.Column(rule.Column)
		if textOf(current) == textOf(next) {
			continue
		}
		changes = append(changes, models.FieldChange{
			Column: rule.Column,
			Old:    stringify(current),
			New:    stringify(next),
		})
		columns = append(columns, rule.Column)
		newValues = append(newValues, next)
	}
	return changes, columns, newValues
}

func (s *GuestService) entriesFor(guest models.Guest, changes []models.FieldChange, changedBy string) []models.ChangeLogEntry {
	return changeEntries(guest, changes, changedBy, s.now())
}

// changeEntries builds one log row per change, stamped with the guest's
// post-update family
func changeEntries(guest models.Guest, changes []models.FieldChange, changedBy string, at time.Time) []models.ChangeLogEntry {
	entries := make([]models.ChangeLogEntry, len(changes))
	for i, c := range changes {
		entries[i] = models.ChangeLogEntry{
			ID:         uuid.NewString(),
			GuestID:    guest.ID,
			FamilyID:   guest.FamilyID,
			ColumnName: c.Column,
			OldValue:   c.Old,
			NewValue:   c.New,
			ChangedBy:  attribution(changedBy),
			ChangedAt:  at,
		}
	}
	return entries
}

// checkInvitations stops a family-scoped caller from inviting or
// un-inviting a guest. Only sub-event flags that are already set may change.
func checkInvitations(changes []models.FieldChange) error {
	for _, c := range changes {
		if !rulesByColumn[c.Column].InvitedOnly {
			continue
		}
		if c.Old == nil {
			return invalidField(c.Column, "guest is not invited")
		}
		if c.New == nil {
			return invalidField(c.Column, "cannot be cleared")
		}
	}
	return nil
}

func attribution(changedBy string) *string {
	if s := strings.TrimSpace(changedBy); s != "" {
		return &s
	}
	return nil
}

// UpdateMeal sets one guest's wedding meal within their family
func (s *GuestService) UpdateMeal(ctx context.Context, guestID, familyCode string, meal any, changedBy string) (*MealResult, error) {
	if strings.TrimSpace(familyCode) == "" {
		return nil, fmt.Errorf("%w: family code is required", ErrInvalidRequest)
	}

	res, err := s.UpdateGuest(ctx, UpdateRequest{
		GuestID:    guestID,
		FamilyCode: familyCode,
		Fields:     map[string]any{"wedding_meal": meal},
		ChangedBy:  changedBy,
	})
	if err != nil {
		return nil, err
	}

	out := &MealResult{Message: "Meal preference already up to date", Guest: res.Guest}
	if res.Changed {
		out.UpdatedGuests = 1
		out.Message = fmt.Sprintf("Meal preference updated for %s", res.Guest.Name)
	}
	return out, nil
}

// UpdateFamily sets one bulk-updatable column on every eligible guest of a
// family. Guests already holding the value are untouched and unlogged.
func (s *GuestService) UpdateFamily(ctx context.Context, req FamilyUpdateRequest) (*FamilyUpdateResult, error) {
	code := models.NormalizeFamilyCode(req.FamilyCode)
	if code == "" {
		return nil, fmt.Errorf("%w: family code is required", ErrInvalidRequest)
	}

	column, ok := FamilyFieldColumn(strings.TrimSpace(req.Field))
	if !ok {
		return nil, invalidField(req.Field, "cannot be updated for a whole family")
	}
	rule := rulesByColumn[column]
	value, err := rule.normalize(req.Value)
	if err != nil {
		return nil, err
	}
	if rule.InvitedOnly && value == nil {
		return nil, invalidField(column, "cannot be cleared for a whole family")
	}

	result := &FamilyUpdateResult{UpdatedGuests: []string{}}
	var changed []models.Guest
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		guests, err := s.guestRepo.ListByFamily(ctx, tx, code)
		if err != nil {
			return storageErr("load family", err)
		}
		if len(guests) == 0 {
			return ErrFamilyNotFound
		}

		var (
			ids     []string
			entries []models.ChangeLogEntry
		)
		for _, g := range guests {
			current, _ := g.Column(column)
			if rule.InvitedOnly && current == nil {
				continue
			}
			if textOf(current) == textOf(value) {
				continue
			}
			ids = append(ids, g.ID)
			entries = append(entries, s.entriesFor(g, []models.FieldChange{{
				Column: column,
				Old:    stringify(current),
				New:    stringify(value),
			}}, req.ChangedBy)...)
			changed = append(changed, g)
		}

		if len(ids) == 0 {
			result.Message = "Already up to date"
			return nil
		}

		if _, err := s.guestRepo.SetColumnForIDs(ctx, tx, column, value, ids); err != nil {
			return storageErr("update family", err)
		}
		if err := s.logRepo.Insert(ctx, tx, entries); err != nil {
			return storageErr("write change log", err)
		}

		result.UpdatedCount = len(ids)
		result.UpdatedGuests = ids
		result.Message = fmt.Sprintf("Updated %s for %d guest(s)", column, len(ids))
		return nil
	})
	if err != nil {
		return nil, txErr("update family", err)
	}

	if result.UpdatedCount > 0 {
		s.logger.Info("family updated",
			zap.String("family", code),
			zap.String("field", column),
			zap.Int("updated", result.UpdatedCount),
			zap.String("changed_by", req.ChangedBy),
		)
		if column == "attendance_status" {
			s.notifyAttendance(ctx, changed, value.(int))
		}
	}
	return result, nil
}

func (s *GuestService) notifyAttendance(ctx context.Context, guests []models.Guest, status int) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyAttendance(ctx, guests, status); err != nil {
		s.logger.Warn("attendance confirmation failed", zap.Error(err))
	}
}

// ListGuests returns guests matching the filter, ordered by name
func (s *GuestService) ListGuests(ctx context.Context, filter models.GuestFilter) ([]models.Guest, error) {
	guests, err := s.guestRepo.List(ctx, filter)
	if err != nil {
		return nil, storageErr("list guests", err)
	}
	return guests, nil
}

// FamilyGuests returns every guest with the family code
func (s *GuestService) FamilyGuests(ctx context.Context, familyCode string) ([]models.Guest, error) {
	code := models.NormalizeFamilyCode(familyCode)
	if code == "" {
		return nil, fmt.Errorf("%w: family code is required", ErrInvalidRequest)
	}
	guests, err := s.guestRepo.ListByFamily(ctx, s.db, code)
	if err != nil {
		return nil, storageErr("load family", err)
	}
	if len(guests) == 0 {
		return nil, ErrFamilyNotFound
	}
	return guests, nil
}

// ClampChangeLimit bounds a requested change-log page size
func ClampChangeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultChangeLimit
	case limit > MaxChangeLimit:
		return MaxChangeLimit
	default:
		return limit
	}
}

// RecentChanges returns the newest change-log entries first
func (s *GuestService) RecentChanges(ctx context.Context, limit int) ([]models.ChangeLogEntry, error) {
	entries, err := s.logRepo.Recent(ctx, ClampChangeLimit(limit))
	if err != nil {
		return nil, storageErr("read change log", err)
	}
	return entries, nil
}

// Stats summarises responses across all guests
func (s *GuestService) Stats(ctx context.Context) (*models.Stats, error) {
	guests, err := s.guestRepo.List(ctx, models.GuestFilter{})
	if err != nil {
		return nil, storageErr("load guests", err)
	}
	families, err := s.guestRepo.CountFamilies(ctx)
	if err != nil {
		return nil, storageErr("count families", err)
	}
	return summarize(guests, families), nil
}

func summarize(guests []models.Guest, families int) *models.Stats {
	stats := &models.Stats{
		TotalGuests: len(guests),
		Families:    families,
		SubEvents:   map[string]models.SubEventStats{},
		Meals:       map[string]int{},
	}

	for _, g := range guests {
		switch statusOf(g.AttendanceStatus) {
		case models.StatusAttending:
			stats.Attending++
		case models.StatusNotAttending:
			stats.NotAttending++
		default:
			stats.Pending++
		}

		for name, flag := range map[string]*int{"stag": g.Stag, "hen": g.Hen, "ceremony": g.Ceremony} {
			sub := stats.SubEvents[name]
			if flag != nil {
				sub.Invited++
				switch *flag {
				case models.StatusAttending:
					sub.Attending++
				case models.StatusNotAttending:
					sub.NotAttending++
				default:
					sub.Pending++
				}
			}
			stats.SubEvents[name] = sub
		}

		stats.Meals[models.MealLabel(g.WeddingMeal)]++
	}

	if stats.TotalGuests > 0 {
		responded := float64(stats.TotalGuests-stats.Pending) / float64(stats.TotalGuests) * 100
		stats.ResponseRate = math.Round(responded*10) / 10
	}
	return stats
}

func statusOf(status *int) int {
	if status == nil {
		return models.StatusPending
	}
	return *status
}

var exportHeader = []string{
	"Family Code", "Name", "Email", "Attendance", "Stag", "Hen", "Ceremony", "Wedding Meal",
	"Friday Room", "Saturday Room", "Restrictions", "Music Requests", "Created",
}

// ExportCSV writes every guest as CSV, ordered by name
func (s *GuestService) ExportCSV(ctx context.Context, w io.Writer) error {
	guests, err := s.guestRepo.List(ctx, models.GuestFilter{})
	if err != nil {
		return storageErr("load guests", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, g := range guests {
		attendance := g.AttendanceStatus
		if attendance == nil {
			pending := models.StatusPending
			attendance = &pending
		}
		record := []string{
			g.FamilyCode(),
			g.Name,
			deref(g.Email),
			models.StatusLabel(attendance),
			models.StatusLabel(g.Stag),
			models.StatusLabel(g.Hen),
			models.StatusLabel(g.Ceremony),
			models.MealLabel(g.WeddingMeal),
			models.RoomLabel(g.FridayRoom),
			models.RoomLabel(g.SaturdayRoom),
			deref(g.Restrictions),
			deref(g.MusicRequests),
			createdText(g.CreatedAt),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func createdText(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
