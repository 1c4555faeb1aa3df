package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"weddingrsvp/internal/database"
	"weddingrsvp/internal/models"
	"weddingrsvp/internal/repository"
)

const (
	backupVersion = "1.0"

	// DefaultChunkSize is the number of CSV rows written per transaction
	DefaultChunkSize = 500
)

// BackupData is the JSON backup document
type BackupData struct {
	Version      string                  `json:"version"`
	ExportedAt   time.Time               `json:"exported_at"`
	DatabaseType string                  `json:"database_type"`
	Guests       []models.Guest          `json:"guests"`
	ChangeLog    []models.ChangeLogEntry `json:"change_log"`
	Events       []models.BeardEvent     `json:"events"`
}

// ImportSummary counts what an import wrote
type ImportSummary struct {
	GuestsCreated  int `json:"guests_created"`
	GuestsUpdated  int `json:"guests_updated"`
	ChangesAdded   int `json:"changes_added"`
	ChangesSkipped int `json:"changes_skipped"`
	ChangesLogged  int `json:"changes_logged"`
	Events         int `json:"events"`
	BlankRows      int `json:"blank_rows"`
	Batches        int `json:"batches"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db        *database.DB
	guestRepo *repository.GuestRepository
	logRepo   *repository.ChangeLogRepository
	eventRepo *repository.EventRepository
	logger    *zap.Logger
	now       func() time.Time
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, guestRepo *repository.GuestRepository, logRepo *repository.ChangeLogRepository, eventRepo *repository.EventRepository, logger *zap.Logger) *BackupService {
	return &BackupService{
		db:        db,
		guestRepo: guestRepo,
		logRepo:   logRepo,
		eventRepo: eventRepo,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ExportToWriter writes every guest, change-log entry and event as indented JSON
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) (*BackupData, error) {
	guests, err := s.guestRepo.List(ctx, models.GuestFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to export guests: %w", err)
	}
	changes, err := s.logRepo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export change log: %w", err)
	}
	events, err := s.eventRepo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export events: %w", err)
	}

	backup := &BackupData{
		Version:      backupVersion,
		ExportedAt:   s.now(),
		DatabaseType: s.db.Dialect.Name(),
		Guests:       guests,
		ChangeLog:    changes,
		Events:       events,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	s.logger.Info("database exported",
		zap.Int("guests", len(guests)),
		zap.Int("changes", len(changes)),
		zap.Int("events", len(events)),
	)
	return backup, nil
}

// ImportFromReader restores a JSON backup in one transaction. Guests and
// events are replaced by id; change-log entries already present are kept.
// With clear set, every table is emptied first.
func (s *BackupService) ImportFromReader(ctx context.Context, r io.Reader, clear bool) (*ImportSummary, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	for i := range backup.Guests {
		if err := backup.Guests[i].Validate(); err != nil {
			return nil, fmt.Errorf("guest %d: %w", i, err)
		}
	}

	s.logger.Info("importing backup",
		zap.String("version", backup.Version),
		zap.Time("exported_at", backup.ExportedAt),
		zap.Bool("clear", clear),
	)

	summary := &ImportSummary{}
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		if clear {
			if err := clearTables(ctx, tx); err != nil {
				return err
			}
		}

		for i := range backup.Guests {
			created, logged, err := s.upsertGuest(ctx, tx, &backup.Guests[i], restoreColumns, restoreAttribution)
			if err != nil {
				return err
			}
			summary.ChangesLogged += logged
			if created {
				summary.GuestsCreated++
			} else {
				summary.GuestsUpdated++
			}
		}

		var missing []models.ChangeLogEntry
		for _, e := range backup.ChangeLog {
			exists, err := s.logRepo.Exists(ctx, tx, e.ID)
			if err != nil {
				return err
			}
			if exists {
				summary.ChangesSkipped++
				continue
			}
			missing = append(missing, e)
		}
		if err := s.logRepo.Insert(ctx, tx, missing); err != nil {
			return err
		}
		summary.ChangesAdded = len(missing)

		for i := range backup.Events {
			if err := s.eventRepo.Upsert(ctx, tx, &backup.Events[i]); err != nil {
				return err
			}
		}
		summary.Events = len(backup.Events)
		summary.Batches = 1
		return nil
	})
	if err != nil {
		return nil, storageErr("import backup", err)
	}

	s.logger.Info("backup imported",
		zap.Int("guests_created", summary.GuestsCreated),
		zap.Int("guests_updated", summary.GuestsUpdated),
		zap.Int("changes_added", summary.ChangesAdded),
		zap.Int("changes_logged", summary.ChangesLogged),
		zap.Int("events", summary.Events),
	)
	return summary, nil
}

// ImportCSV loads guests from a CSV file whose header row names guest
// columns (aliases allowed). Cells are trimmed, empty cells become null and
// blank rows are skipped. Rows without an id get one. Every row is validated
// before anything is written; rows are then upserted chunkSize at a time, one
// transaction per chunk.
func (s *BackupService) ImportCSV(ctx context.Context, r io.Reader, chunkSize int) (*ImportSummary, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: CSV file is empty", ErrInvalidRequest)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV header: %v", ErrInvalidRequest, err)
	}
	columns, err := csvColumns(header)
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{}
	var guests []*models.Guest
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read CSV: %v", ErrInvalidRequest, err)
		}
		if blankRecord(record) {
			summary.BlankRows++
			continue
		}

		g, err := s.guestFromRecord(columns, record)
		if err != nil {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		guests = append(guests, g)
	}
	if len(guests) == 0 {
		return nil, fmt.Errorf("%w: no rows were found in the CSV file", ErrInvalidRequest)
	}

	update := updatableColumns(columns)
	for start := 0; start < len(guests); start += chunkSize {
		batch := guests[start:min(start+chunkSize, len(guests))]
		var created, updated, logged int
		err := s.db.WithTx(ctx, func(tx *database.Tx) error {
			for _, g := range batch {
				isNew, n, err := s.upsertGuest(ctx, tx, g, update, csvAttribution)
				if err != nil {
					return err
				}
				logged += n
				if isNew {
					created++
				} else {
					updated++
				}
			}
			return nil
		})
		if err != nil {
			return summary, storageErr(fmt.Sprintf("import batch %d", summary.Batches+1), err)
		}

		summary.GuestsCreated += created
		summary.GuestsUpdated += updated
		summary.ChangesLogged += logged
		summary.Batches++
		s.logger.Debug("csv batch imported", zap.Int("batch", summary.Batches), zap.Int("rows", len(batch)))
	}

	s.logger.Info("csv imported",
		zap.Int("created", summary.GuestsCreated),
		zap.Int("updated", summary.GuestsUpdated),
		zap.Int("changes_logged", summary.ChangesLogged),
		zap.Int("blank_rows", summary.BlankRows),
		zap.Int("batches", summary.Batches),
	)
	return summary, nil
}

// restoreColumns are overwritten when a backup replaces an existing guest
var restoreColumns = repository.GuestColumns[1 : len(repository.GuestColumns)-1]

const (
	restoreAttribution = "restore:backup"
	csvAttribution     = "import:csv"
)

// upsertGuest inserts g, or writes the listed columns that differ from the
// stored row with its id. Overwrites are logged like any other update and
// the number of log rows is returned.
func (s *BackupService) upsertGuest(ctx context.Context, tx *database.Tx, g *models.Guest, columns []string, changedBy string) (bool, int, error) {
	existing, err := s.guestRepo.GetByID(ctx, tx, g.ID)
	if err != nil {
		return false, 0, err
	}
	if existing == nil {
		if g.CreatedAt.IsZero() {
			g.CreatedAt = s.now()
		}
		return true, 0, s.guestRepo.Create(ctx, tx, g)
	}

	values := make(map[string]any, len(columns))
	for _, c := range columns {
		values[c], _ = g.Column(c)
	}
	changes, changed, newValues := diffGuest(existing, values)
	if len(changes) == 0 {
		return false, 0, nil
	}
	if err := s.guestRepo.UpdateColumns(ctx, tx, g.ID, changed, newValues); err != nil {
		return false, 0, err
	}

	updated := *existing
	for i, c := range changed {
		updated.SetColumn(c, newValues[i])
	}
	entries := changeEntries(updated, changes, changedBy, s.now())
	if err := s.logRepo.Insert(ctx, tx, entries); err != nil {
		return false, 0, err
	}
	return false, len(entries), nil
}

func clearTables(ctx context.Context, tx *database.Tx) error {
	for _, table := range []string{"guest_change_log", "guests", "beard_events"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}
	return nil
}

// csvColumns resolves header cells to guest columns
func csvColumns(header []string) ([]string, error) {
	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, raw := range header {
		name := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		col := name
		if name != "id" && name != "created_at" {
			rule, ok := lookupRule(name)
			if !ok {
				return nil, invalidField(name, "is not a guest column")
			}
			col = rule.Column
		}
		if seen[col] {
			return nil, invalidField(name, "appears more than once in the header")
		}
		seen[col] = true
		columns[i] = col
	}
	if !seen["name"] {
		return nil, invalidField("name", "column is required")
	}
	return columns, nil
}

func updatableColumns(columns []string) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if c != "id" && c != "created_at" {
			out = append(out, c)
		}
	}
	return out
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func (s *BackupService) guestFromRecord(columns, record []string) (*models.Guest, error) {
	g := &models.Guest{CreatedAt: s.now()}
	for i, col := range columns {
		var cell string
		if i < len(record) {
			cell = strings.TrimSpace(record[i])
		}

		switch col {
		case "id":
			g.ID = cell
			continue
		case "created_at":
			if cell != "" {
				t, err := parseTimestamp(cell)
				if err != nil {
					return nil, invalidField("created_at", "must be a timestamp")
				}
				g.CreatedAt = t
			}
			continue
		}

		if cell == "" {
			g.SetColumn(col, nil)
			continue
		}
		v, err := rulesByColumn[col].normalize(cell)
		if err != nil {
			return nil, err
		}
		g.SetColumn(col, v)
	}

	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if err := g.Validate(); err != nil {
		if errors.Is(err, models.ErrGuestNameRequired) {
			return nil, invalidField("name", "is required")
		}
		return nil, invalidField("id", "%s", err.Error())
	}
	return g, nil
}

var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

func parseTimestamp(s string) (time.Time, error) {
	var err error
	for _, layout := range timestampLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}
