package service

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"weddingrsvp/internal/models"
	"weddingrsvp/internal/repository"
	"weddingrsvp/internal/testing/fixtures"
	"weddingrsvp/internal/testing/testdb"
)

func newBackupService(tdb *testdb.TestDB) *BackupService {
	return NewBackupService(tdb.DB,
		repository.NewGuestRepository(tdb.DB),
		repository.NewChangeLogRepository(tdb.DB),
		repository.NewEventRepository(tdb.DB),
		zap.NewNop(),
	)
}

func TestBackupRoundTrip(t *testing.T) {
	src := newGuestEnv(t)
	g := src.f.CreateGuest(t, fixtures.InFamily("LAMP"), fixtures.Named("Alice"), fixtures.WithAttendance(models.StatusPending))
	src.f.CreateGuest(t, fixtures.Named("Bob"))
	src.f.CreateEvent(t, "Summer Social", time.Date(2026, 7, 4, 20, 0, 0, 0, time.UTC))
	_, err := src.svc.UpdateGuest(src.ctx, UpdateRequest{GuestID: g.ID, Fields: map[string]any{"comment": "hello"}, ChangedBy: "guest"})
	require.NoError(t, err)

	var buf bytes.Buffer
	data, err := newBackupService(src.tdb).ExportToWriter(src.ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", data.DatabaseType)
	assert.Len(t, data.Guests, 2)
	assert.Len(t, data.ChangeLog, 1)
	assert.Len(t, data.Events, 1)

	dst := testdb.New(t)
	svc := newBackupService(dst)
	payload := buf.String()

	summary, err := svc.ImportFromReader(dst.Context(t), strings.NewReader(payload), false)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.GuestsCreated)
	assert.Equal(t, 1, summary.ChangesAdded)
	assert.Equal(t, 1, summary.Events)

	restored, err := repository.NewGuestRepository(dst.DB).GetByID(dst.Context(t), dst.DB, g.ID)
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, "Alice", restored.Name)
	assert.Equal(t, strPtr("hello"), restored.Comment)
	assert.Equal(t, intPtr(models.StatusPending), restored.AttendanceStatus)

	// A second import updates in place and keeps the log append-only
	summary, err = svc.ImportFromReader(dst.Context(t), strings.NewReader(payload), false)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.GuestsCreated)
	assert.Equal(t, 2, summary.GuestsUpdated)
	assert.Equal(t, 1, summary.ChangesSkipped)
	assert.Zero(t, summary.ChangesLogged)
	assert.Equal(t, 2, dst.Count(t, "guests"))
	assert.Equal(t, 1, dst.Count(t, "guest_change_log"))
	assert.Equal(t, 1, dst.Count(t, "beard_events"))
}

func TestImportFromReader_Clear(t *testing.T) {
	tdb := testdb.New(t)
	fixtures.New(tdb.DB).CreateGuest(t)
	svc := newBackupService(tdb)

	summary, err := svc.ImportFromReader(tdb.Context(t), strings.NewReader(`{"version":"1.0","guests":[]}`), true)
	require.NoError(t, err)
	assert.Zero(t, summary.GuestsCreated)
	assert.Equal(t, 0, tdb.Count(t, "guests"))
}

func TestImportFromReader_RejectsInvalidGuests(t *testing.T) {
	tdb := testdb.New(t)
	svc := newBackupService(tdb)

	_, err := svc.ImportFromReader(tdb.Context(t), strings.NewReader(`{"guests":[{"id":"not-a-uuid","name":"X"}]}`), false)
	require.Error(t, err)

	_, err = svc.ImportFromReader(tdb.Context(t), strings.NewReader(`{"guests":`), false)
	require.Error(t, err)
	assert.Equal(t, 0, tdb.Count(t, "guests"))
}

func TestImportCSV(t *testing.T) {
	tdb := testdb.New(t)
	svc := newBackupService(tdb)
	ctx := tdb.Context(t)

	csvData := "\ufeffname,family_code,email,stag,meal_preference\n" +
		" Alice , lamp ,alice@example.com,2,3\n" +
		",,,,\n" +
		"Bob,LAMP,,,\n" +
		"Cara,,, 0 ,\n"

	summary, err := svc.ImportCSV(ctx, strings.NewReader(csvData), 2)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.GuestsCreated)
	assert.Equal(t, 1, summary.BlankRows)
	assert.Equal(t, 2, summary.Batches)
	assert.Equal(t, 0, tdb.Count(t, "guest_change_log"))

	guests, err := repository.NewGuestRepository(tdb.DB).List(ctx, models.GuestFilter{})
	require.NoError(t, err)
	require.Len(t, guests, 3)

	alice := guests[0]
	assert.Equal(t, "Alice", alice.Name)
	assert.Equal(t, strPtr("LAMP"), alice.FamilyID)
	assert.Equal(t, strPtr("alice@example.com"), alice.Email)
	assert.Equal(t, intPtr(2), alice.Stag)
	assert.Equal(t, intPtr(models.MealVegetarian), alice.WeddingMeal)

	bob := guests[1]
	assert.Nil(t, bob.Email)
	assert.Nil(t, bob.Stag)

	cara := guests[2]
	assert.Nil(t, cara.FamilyID)
	assert.Equal(t, intPtr(0), cara.Stag)
}

func TestImportCSV_UpsertsByID(t *testing.T) {
	tdb := testdb.New(t)
	g := fixtures.New(tdb.DB).CreateGuest(t, fixtures.Named("Alice"), fixtures.WithEmail("old@example.com"),
		fixtures.WithAttendance(models.StatusAttending))
	svc := newBackupService(tdb)

	summary, err := svc.ImportCSV(tdb.Context(t), strings.NewReader("id,name,email\n"+g.ID+",Alice,new@example.com\n"), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.GuestsUpdated)

	got, err := repository.NewGuestRepository(tdb.DB).GetByID(tdb.Context(t), tdb.DB, g.ID)
	require.NoError(t, err)
	assert.Equal(t, strPtr("new@example.com"), got.Email)
	// Columns missing from the header are left alone
	assert.Equal(t, intPtr(models.StatusAttending), got.AttendanceStatus)

	// Only the overwritten column is logged
	assert.Equal(t, 1, summary.ChangesLogged)
	entries, err := repository.NewChangeLogRepository(tdb.DB).ListByGuest(tdb.Context(t), g.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "email", entries[0].ColumnName)
	assert.Equal(t, strPtr("old@example.com"), entries[0].OldValue)
	assert.Equal(t, strPtr("new@example.com"), entries[0].NewValue)
	assert.Equal(t, strPtr("import:csv"), entries[0].ChangedBy)

	// Re-running the same file changes and logs nothing
	summary, err = svc.ImportCSV(tdb.Context(t), strings.NewReader("id,name,email\n"+g.ID+",Alice,new@example.com\n"), 0)
	require.NoError(t, err)
	assert.Zero(t, summary.ChangesLogged)
	assert.Equal(t, 1, tdb.Count(t, "guest_change_log"))
}

func TestImportCSV_OverwriteIsLogged(t *testing.T) {
	tdb := testdb.New(t)
	g := fixtures.New(tdb.DB).CreateGuest(t, fixtures.Named("Alice"), fixtures.InFamily("LAMP"))
	svc := newBackupService(tdb)

	summary, err := svc.ImportCSV(tdb.Context(t),
		strings.NewReader("id,name,comment,family_code\n"+g.ID+",Alice,overwritten by import,bell\n"), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.GuestsUpdated)
	assert.Equal(t, 2, summary.ChangesLogged)

	entries, err := repository.NewChangeLogRepository(tdb.DB).ListByGuest(tdb.Context(t), g.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	columns := []string{entries[0].ColumnName, entries[1].ColumnName}
	assert.ElementsMatch(t, []string{"family_id", "comment"}, columns)
	for _, e := range entries {
		// Logged under the family the guest ends up in
		assert.Equal(t, strPtr("BELL"), e.FamilyID)
	}
}

func TestImportFromReader_OverwriteIsLogged(t *testing.T) {
	src := newGuestEnv(t)
	g := src.f.CreateGuest(t, fixtures.InFamily("LAMP"), fixtures.WithAttendance(models.StatusPending))

	var buf bytes.Buffer
	_, err := newBackupService(src.tdb).ExportToWriter(src.ctx, &buf)
	require.NoError(t, err)

	// The live row moves on after the backup was taken
	_, err = src.svc.UpdateFamily(src.ctx, FamilyUpdateRequest{FamilyCode: "LAMP", Field: "attendance", Value: models.StatusAttending, ChangedBy: "guest"})
	require.NoError(t, err)
	require.Equal(t, 1, src.logCount(t))

	restorer := newBackupService(src.tdb)
	restorer.now = func() time.Time { return time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC) }
	summary, err := restorer.ImportFromReader(src.ctx, &buf, false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.GuestsUpdated)
	assert.Equal(t, 1, summary.ChangesLogged)
	assert.Equal(t, intPtr(models.StatusPending), src.reload(t, g.ID).AttendanceStatus)

	entries, err := src.logs.ListByGuest(src.ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	restore := entries[1]
	assert.Equal(t, "attendance_status", restore.ColumnName)
	assert.Equal(t, strPtr("1"), restore.OldValue)
	assert.Equal(t, strPtr("2"), restore.NewValue)
	assert.Equal(t, strPtr("restore:backup"), restore.ChangedBy)
}

func TestImportCSV_Errors(t *testing.T) {
	tests := []struct {
		name      string
		csv       string
		wantField string
	}{
		{name: "empty file", csv: ""},
		{name: "header only", csv: "name,email\n"},
		{name: "unknown column", csv: "name,shoe_size\nAlice,9\n", wantField: "shoe_size"},
		{name: "duplicate column", csv: "name,family_code,family_id\nAlice,A,B\n", wantField: "family_id"},
		{name: "no name column", csv: "email\na@example.com\n", wantField: "name"},
		{name: "missing name", csv: "name,email\n,a@example.com\n", wantField: "name"},
		{name: "bad flag", csv: "name,stag\nAlice,yes\n", wantField: "stag"},
		{name: "bad id", csv: "id,name\n123,Alice\n", wantField: "id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tdb := testdb.New(t)
			_, err := newBackupService(tdb).ImportCSV(tdb.Context(t), strings.NewReader(tt.csv), 0)
			require.Error(t, err)

			if tt.wantField != "" {
				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, tt.wantField, ve.Field)
			} else {
				assert.ErrorIs(t, err, ErrInvalidRequest)
			}
			assert.Equal(t, 0, tdb.Count(t, "guests"))
		})
	}
}
