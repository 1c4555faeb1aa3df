package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"sync"
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

type recordingNotifier struct {
	mu     sync.Mutex
	calls  int
	guests []models.Guest
	status int
}

func (n *recordingNotifier) NotifyAttendance(_ context.Context, guests []models.Guest, status int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.guests = guests
	n.status = status
	return nil
}

type guestEnv struct {
	svc      *GuestService
	tdb      *testdb.TestDB
	f        *fixtures.Factory
	guests   *repository.GuestRepository
	logs     *repository.ChangeLogRepository
	notifier *recordingNotifier
	ctx      context.Context
}

func newGuestEnv(t *testing.T) *guestEnv {
	t.Helper()

	tdb := testdb.New(t)
	guests := repository.NewGuestRepository(tdb.DB)
	logs := repository.NewChangeLogRepository(tdb.DB)
	notifier := &recordingNotifier{}
	svc := NewGuestService(tdb.DB, guests, logs, notifier, zap.NewNop())

	clock := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	return &guestEnv{
		svc:      svc,
		tdb:      tdb,
		f:        fixtures.New(tdb.DB),
		guests:   guests,
		logs:     logs,
		notifier: notifier,
		ctx:      tdb.Context(t),
	}
}

func (e *guestEnv) reload(t *testing.T, id string) *models.Guest {
	t.Helper()
	g, err := e.guests.GetByID(e.ctx, e.tdb.DB, id)
	require.NoError(t, err)
	require.NotNil(t, g)
	return g
}

func (e *guestEnv) logCount(t *testing.T) int {
	return e.tdb.Count(t, "guest_change_log")
}

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }

func TestUpdateGuest_LogsOneRowPerChangedColumn(t *testing.T) {
	env := newGuestEnv(t)
	g := env.f.CreateGuest(t, fixtures.InFamily("LAMP"), fixtures.InvitedTo("stag", models.StatusPending),
		fixtures.WithEmail("old@example.com"))

	res, err := env.svc.UpdateGuest(env.ctx, UpdateRequest{
		GuestID:    g.ID,
		FamilyCode: "lamp",
		Fields: map[string]any{
			"stag":  "1",
			"phone": "07700 900000",
			"email": "old@example.com",
		},
		ChangedBy: "guest",
	})
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.Equal(t, []string{"mobile", "stag"}, res.ChangedFields)
	assert.Equal(t, intPtr(1), res.Guest.Stag)
	assert.Equal(t, strPtr("07700 900000"), res.Guest.Mobile)

	entries, err := env.logs.ListByGuest(env.ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byColumn := map[string]models.ChangeLogEntry{}
	for _, e := range entries {
		byColumn[e.ColumnName] = e
	}
	assert.Nil(t, byColumn["mobile"].OldValue)
	assert.Equal(t, strPtr("07700 900000"), byColumn["mobile"].NewValue)
	assert.Equal(t, strPtr("2"), byColumn["stag"].OldValue)
	assert.Equal(t, strPtr("1"), byColumn["stag"].NewValue)
	assert.Equal(t, strPtr("LAMP"), byColumn["stag"].FamilyID)
	assert.Equal(t, strPtr("guest"), byColumn["stag"].ChangedBy)
}

func TestUpdateGuest_NoChangesWritesNothing(t *testing.T) {
	env := newGuestEnv(t)
	g := env.f.CreateGuest(t, fixtures.InFamily("LAMP"), fixtures.WithEmail("a@example.com"))

	res, err := env.svc.UpdateGuest(env.ctx, UpdateRequest{
		GuestID: g.ID,
		Fields: map[string]any{
			"email":   "  a@example.com ",
			"comment": "",
			"name":    g.Name,
		},
	})
	require.NoError(t, err)

	assert.False(t, res.Changed)
	assert.Empty(t, res.ChangedFields)
	assert.Equal(t, "No changes", res.Message)
	assert.Equal(t, 0, env.logCount(t))
}

func TestUpdateGuest_Idempotent(t *testing.T) {
	env := newGuestEnv(t)
	g := env.f.CreateGuest(t, fixtures.InFamily("LAMP"))
	req := UpdateRequest{GuestID: g.ID, Fields: map[string]any{"music_requests": "Mr Brightside"}}

	first, err := env.svc.UpdateGuest(env.ctx, req)
	require.NoError(t, err)
	second, err := env.svc.UpdateGuest(env.ctx, req)
	require.NoError(t, err)

	assert.True(t, first.Changed)
	assert.False(t, second.Changed)
	assert.Equal(t, 1, env.logCount(t))
}

func TestUpdateGuest_RejectsUnknownFieldBeforeWriting(t *testing.T) {
	env := newGuestEnv(t)
	g := env.f.CreateGuest(t, fixtures.InFamily("LAMP"))

	for _, field := range []string{"id", "created_at", "password", "rsvp_status"} {
		t.Run(field, func(t *testing.T) {
			_, err := env.svc.UpdateGuest(env.ctx, UpdateRequest{
				GuestID: g.ID,
				Fields:  map[string]any{"comment": "hello", field: "x"},
			})

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, field, ve.Field)
		})
	}

	assert.Nil(t, env.reload(t, g.ID).Comment)
	assert.Equal(t, 0, env.logCount(t))
}

func TestUpdateGuest_IntegerColumns(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		value   any
		want    *int
		wantErr bool
	}{
		{name: "word rejected", field: "stag", value: "yes", wantErr: true},
		{name: "numeric string accepted", field: "stag", value: "1", want: intPtr(1)},
		{name: "json number accepted", field: "stag", value: json.Number("0"), want: intPtr(0)},
		{name: "integral float accepted", field: "stag", value: float64(2), want: intPtr(2)},
		{name: "fractional rejected", field: "stag", value: json.Number("1.5"), wantErr: true},
		{name: "out of domain rejected", field: "stag", value: 7, wantErr: true},
		{name: "bool rejected", field: "stag", value: true, wantErr: true},
		{name: "attendance cannot be cleared", field: "attendance_status", value: "", wantErr: true},
		{name: "meal alias", field: "meal_preference", value: "4", want: intPtr(models.MealFish)},
		{name: "meal cleared", field: "wedding_meal", value: nil},
		{name: "room domain", field: "friday_stay_preference", value: -1, want: intPtr(models.RoomNotStaying)},
		{name: "room out of domain", field: "saturday_room", value: 3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newGuestEnv(t)
			g := env.f.CreateGuest(t, fixtures.InFamily("LAMP"), fixtures.InvitedTo("stag", models.StatusPending),
				fixtures.WithMeal(models.MealBeef), fixtures.WithAttendance(models.StatusPending))

			res, err := env.svc.UpdateGuest(env.ctx, UpdateRequest{
				GuestID: g.ID,
				Fields:  map[string]any{tt.field: tt.value},
			})
			if tt.wantErr {
				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, 0, env.logCount(t))
				return
			}
			require.NoError(t, err)

			rule, _ := lookupRule(tt.field)
			got, _ := res.Guest.Column(rule.Column)
			if tt.want == nil {
				assert.Nil(t, got)
			} else {
				assert.Equal(t, *tt.want, got)
			}
		})
	}
}

func TestUpdateGuest_CrossFamilyIsNotFound(t *testing.T) {
	env := newGuestEnv(t)
	g := env.f.CreateGuest(t, fixtures.InFamily("ZED"))

	_, err := env.svc.UpdateGuest(env.ctx, UpdateRequest{
		GuestID:    g.ID,
		FamilyCode: "LAMP",
		Fields:     map[string]any{"comment": "sneaky"},
	})
	assert.ErrorIs(t, err, ErrGuestNotFound)

	_, err = env.svc.UpdateGuest(env.ctx, UpdateRequest{
		GuestID: "00000000-0000-0000-0000-000000000000",
		Fields:  map[string]any{"comment": "nobody"},
	})
	assert.ErrorIs(t, err, ErrGuestNotFound)

	assert.Nil(t, env.reload(t, g.ID).Comment)
	assert.Equal(t, 0, env.logCount(t))
}

func TestUpdateGuest_MalformedRequest(t *testing.T) {
	env := newGuestEnv(t)

	_, err := env.svc.UpdateGuest(env.ctx, UpdateRequest{Fields: map[string]any{"comment": "x"}})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = env.svc.UpdateGuest(env.ctx, UpdateRequest{GuestID: "g1"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestUpdateGuest_FamilyReassignmentLoggedUnderNewFamily(t *testing.T) {
	env := newGuestEnv(t)
	g := env.f.CreateGuest(t, fixtures.InFamily("OLD"))

	res, err := env.svc.UpdateGuest(env.ctx, UpdateRequest{
		GuestID: g.ID,
		Fields:  map[string]any{"family_code": "new", "comment": "moved"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"family_id", "comment"}, res.ChangedFields)

	entries, err := env.logs.ListByGuest(env.ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, strPtr("NEW"), e.FamilyID)
	}
}

func TestUpdateGuest_EmptyStringClearsValue(t *testing.T) {
	env := newGuestEnv(t)
	g := env.f.CreateGuest(t, fixtures.WithEmail("a@example.com"))

	res, err := env.svc.UpdateGuest(env.ctx, UpdateRequest{GuestID: g.ID, Fields: map[string]any{"email": "   "}})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Nil(t, res.Guest.Email)

	entries, err := env.logs.ListByGuest(env.ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, strPtr("a@example.com"), entries[0].OldValue)
	assert.Nil(t, entries[0].NewValue)
}

func TestUpdateGuest_ConflictingAliases(t *testing.T) {
	env := newGuestEnv(t)
	g := env.f.CreateGuest(t)

	_, err := env.svc.UpdateGuest(env.ctx, UpdateRequest{
		GuestID: g.ID,
		Fields:  map[string]any{"stag_ideas": "karting", "hen_ideas": "spa"},
	})
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)

	res, err := env.svc.UpdateGuest(env.ctx, UpdateRequest{
		GuestID: g.ID,
		Fields:  map[string]any{"stag_ideas": "karting", "ideas": "karting"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ideas"}, res.ChangedFields)
}

func TestUpdateGuest_StorageFailureRollsBack(t *testing.T) {
	env := newGuestEnv(t)
	g := env.f.CreateGuest(t, fixtures.InFamily("LAMP"))

	_, err := env.tdb.DB.ExecContext(env.ctx, "DROP TABLE guest_change_log")
	require.NoError(t, err)

	_, err = env.svc.UpdateGuest(env.ctx, UpdateRequest{GuestID: g.ID, Fields: map[string]any{"comment": "lost"}})
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "write change log", se.Op)

	assert.Nil(t, env.reload(t, g.ID).Comment)
}

func TestUpdateMeal_LampExample(t *testing.T) {
	env := newGuestEnv(t)
	g := env.f.CreateGuest(t, fixtures.InFamily("LAMP"))

	res, err := env.svc.UpdateMeal(env.ctx, g.ID, "LAMP", json.Number("5"), "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.UpdatedGuests)
	assert.Equal(t, intPtr(models.MealBeef), env.reload(t, g.ID).WeddingMeal)

	entries, err := env.logs.ListByGuest(env.ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "wedding_meal", entries[0].ColumnName)
	assert.Nil(t, entries[0].OldValue)
	assert.Equal(t, strPtr("5"), entries[0].NewValue)
	assert.Nil(t, entries[0].ChangedBy)

	again, err := env.svc.UpdateMeal(env.ctx, g.ID, "LAMP", 5, "")
	require.NoError(t, err)
	assert.Equal(t, 0, again.UpdatedGuests)

	_, err = env.svc.UpdateMeal(env.ctx, g.ID, "", 5, "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestUpdateFamily_LampAttendanceExample(t *testing.T) {
	env := newGuestEnv(t)
	a := env.f.CreateGuest(t, fixtures.InFamily("LAMP"), fixtures.WithAttendance(models.StatusPending), fixtures.WithEmail("a@example.com"))
	b := env.f.CreateGuest(t, fixtures.InFamily("LAMP"), fixtures.WithAttendance(models.StatusPending))
	c := env.f.CreateGuest(t, fixtures.InFamily("LAMP"), fixtures.WithAttendance(models.StatusAttending))
	other := env.f.CreateGuest(t, fixtures.InFamily("ZED"), fixtures.WithAttendance(models.StatusPending))

	res, err := env.svc.UpdateFamily(env.ctx, FamilyUpdateRequest{
		FamilyCode: "lamp",
		Field:      "attendance",
		Value:      1,
		ChangedBy:  "family",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.UpdatedCount)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, res.UpdatedGuests)
	assert.Equal(t, 2, env.logCount(t))

	for _, id := range []string{a.ID, b.ID, c.ID} {
		assert.Equal(t, intPtr(models.StatusAttending), env.reload(t, id).AttendanceStatus)
	}
	assert.Equal(t, intPtr(models.StatusPending), env.reload(t, other.ID).AttendanceStatus)

	entries, err := env.logs.ListByGuest(env.ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.Equal(t, 1, env.notifier.calls)
	assert.Equal(t, models.StatusAttending, env.notifier.status)
	assert.Len(t, env.notifier.guests, 2)
}

func TestUpdateFamily_AlreadyUpToDate(t *testing.T) {
	env := newGuestEnv(t)
	env.f.CreateGuest(t, fixtures.InFamily("LAMP"), fixtures.WithAttendance(models.StatusAttending))

	res, err := env.svc.UpdateFamily(env.ctx, FamilyUpdateRequest{FamilyCode: "LAMP", Field: "attendance_status", Value: "1"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.UpdatedCount)
	assert.Equal(t, "Already up to date", res.Message)
	assert.Equal(t, 0, env.logCount(t))
	assert.Equal(t, 0, env.notifier.calls)
}

func TestUpdateFamily_SubEventOnlyTouchesInvitedGuests(t *testing.T) {
	env := newGuestEnv(t)
	invited := env.f.CreateGuest(t, fixtures.InFamily("LAMP"), fixtures.InvitedTo("hen", models.StatusPending))
	notInvited := env.f.CreateGuest(t, fixtures.InFamily("LAMP"))

	res, err := env.svc.UpdateFamily(env.ctx, FamilyUpdateRequest{FamilyCode: "LAMP", Field: "hen", Value: 0})
	require.NoError(t, err)

	assert.Equal(t, []string{invited.ID}, res.UpdatedGuests)
	assert.Equal(t, intPtr(models.StatusNotAttending), env.reload(t, invited.ID).Hen)
	assert.Nil(t, env.reload(t, notInvited.ID).Hen)
}

func TestUpdateGuest_FamilyScopedInvitations(t *testing.T) {
	env := newGuestEnv(t)
	invited := env.f.CreateGuest(t, fixtures.InFamily("LAMP"), fixtures.InvitedTo("stag", models.StatusPending))
	uninvited := env.f.CreateGuest(t, fixtures.InFamily("LAMP"))

	tests := []struct {
		name  string
		guest *models.Guest
		field string
		value any
	}{
		{name: "self invite", guest: uninvited, field: "stag", value: 1},
		{name: "self invite to hen", guest: uninvited, field: "hen", value: "0"},
		{name: "self un-invite", guest: invited, field: "stag", value: nil},
		{name: "blank un-invite", guest: invited, field: "stag", value: " "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.UpdateGuest(env.ctx, UpdateRequest{
				GuestID:    tt.guest.ID,
				FamilyCode: "LAMP",
				Fields:     map[string]any{tt.field: tt.value, "comment": "hi"},
				ChangedBy:  "guest",
			})
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	assert.Nil(t, env.reload(t, uninvited.ID).Stag)
	assert.Nil(t, env.reload(t, uninvited.ID).Comment)
	assert.Equal(t, intPtr(models.StatusPending), env.reload(t, invited.ID).Stag)
	assert.Equal(t, 0, env.logCount(t))

	res, err := env.svc.UpdateGuest(env.ctx, UpdateRequest{
		GuestID:    invited.ID,
		FamilyCode: "LAMP",
		Fields:     map[string]any{"stag": 1},
	})
	require.NoError(t, err)
	assert.True(t, res.Changed)
}

func TestUpdateGuest_UnscopedCanInviteAndUninvite(t *testing.T) {
	env := newGuestEnv(t)
	g := env.f.CreateGuest(t, fixtures.InFamily("LAMP"))

	res, err := env.svc.UpdateGuest(env.ctx, UpdateRequest{GuestID: g.ID, Fields: map[string]any{"ceremony": 2}, ChangedBy: "admin:root"})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, intPtr(models.StatusPending), env.reload(t, g.ID).Ceremony)

	res, err = env.svc.UpdateGuest(env.ctx, UpdateRequest{GuestID: g.ID, Fields: map[string]any{"ceremony": nil}, ChangedBy: "admin:root"})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Nil(t, env.reload(t, g.ID).Ceremony)

	entries, err := env.logs.ListByGuest(env.ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, strPtr("2"), entries[1].OldValue)
	assert.Nil(t, entries[1].NewValue)

	_, err = env.svc.UpdateGuest(env.ctx, UpdateRequest{GuestID: g.ID, Fields: map[string]any{"attendance_status": nil}})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "attendance_status", ve.Field)
}

func TestUpdateFamily_SharedText(t *testing.T) {
	env := newGuestEnv(t)
	env.f.CreateGuest(t, fixtures.InFamily("LAMP"))
	env.f.CreateGuest(t, fixtures.InFamily("LAMP"))

	res, err := env.svc.UpdateFamily(env.ctx, FamilyUpdateRequest{FamilyCode: "LAMP", Field: "music", Value: " Abba "})
	require.NoError(t, err)
	assert.Equal(t, 2, res.UpdatedCount)

	guests, err := env.svc.FamilyGuests(env.ctx, "LAMP")
	require.NoError(t, err)
	for _, g := range guests {
		assert.Equal(t, strPtr("Abba"), g.MusicRequests)
	}
}

func TestUpdateFamily_Errors(t *testing.T) {
	env := newGuestEnv(t)
	env.f.CreateGuest(t, fixtures.InFamily("LAMP"))

	tests := []struct {
		name    string
		req     FamilyUpdateRequest
		wantErr error
		wantVE  bool
	}{
		{name: "missing family", req: FamilyUpdateRequest{Field: "attendance", Value: 1}, wantErr: ErrInvalidRequest},
		{name: "unknown family", req: FamilyUpdateRequest{FamilyCode: "NOPE", Field: "attendance", Value: 1}, wantErr: ErrFamilyNotFound},
		{name: "not bulk updatable", req: FamilyUpdateRequest{FamilyCode: "LAMP", Field: "email", Value: "x@y.z"}, wantVE: true},
		{name: "unknown field", req: FamilyUpdateRequest{FamilyCode: "LAMP", Field: "bogus", Value: 1}, wantVE: true},
		{name: "out of domain", req: FamilyUpdateRequest{FamilyCode: "LAMP", Field: "attendance", Value: 5}, wantVE: true},
		{name: "stay out of domain", req: FamilyUpdateRequest{FamilyCode: "LAMP", Field: "friday-stay", Value: 9}, wantVE: true},
		{name: "sub-event cleared", req: FamilyUpdateRequest{FamilyCode: "LAMP", Field: "stag", Value: nil}, wantVE: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.UpdateFamily(env.ctx, tt.req)
			if tt.wantVE {
				var ve *ValidationError
				assert.ErrorAs(t, err, &ve)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, 0, env.logCount(t))
}

func TestListGuests(t *testing.T) {
	env := newGuestEnv(t)
	env.f.CreateGuest(t, fixtures.Named("Charlie"), fixtures.InFamily("LAMP"))
	env.f.CreateGuest(t, fixtures.Named("Alice"), fixtures.InFamily("lamp"))
	env.f.CreateGuest(t, fixtures.Named("Bob"))

	all, err := env.svc.ListGuests(env.ctx, models.GuestFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	family, err := env.svc.ListGuests(env.ctx, models.GuestFilter{FamilyCode: "Lamp"})
	require.NoError(t, err)
	require.Len(t, family, 2)
	assert.Equal(t, "Alice", family[0].Name)
	assert.Equal(t, "Charlie", family[1].Name)

	unassigned, err := env.svc.ListGuests(env.ctx, models.GuestFilter{Unassigned: true})
	require.NoError(t, err)
	require.Len(t, unassigned, 1)
	assert.Equal(t, "Bob", unassigned[0].Name)

	_, err = env.svc.FamilyGuests(env.ctx, "NOPE")
	assert.ErrorIs(t, err, ErrFamilyNotFound)
}

func TestRecentChanges(t *testing.T) {
	env := newGuestEnv(t)
	g := env.f.CreateGuest(t, fixtures.Named("Alice"))

	for _, v := range []string{"one", "two", "three"} {
		_, err := env.svc.UpdateGuest(env.ctx, UpdateRequest{GuestID: g.ID, Fields: map[string]any{"comment": v}})
		require.NoError(t, err)
	}

	entries, err := env.svc.RecentChanges(env.ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, strPtr("three"), entries[0].NewValue)
	assert.Equal(t, strPtr("two"), entries[1].NewValue)
	assert.Equal(t, strPtr("Alice"), entries[0].GuestName)

	_, err = env.tdb.DB.ExecContext(env.ctx, "DELETE FROM guests WHERE id = ?", g.ID)
	require.NoError(t, err)

	entries, err = env.svc.RecentChanges(env.ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3, "log entries outlive the guest")
	assert.Nil(t, entries[0].GuestName)
}

func TestClampChangeLimit(t *testing.T) {
	assert.Equal(t, DefaultChangeLimit, ClampChangeLimit(0))
	assert.Equal(t, DefaultChangeLimit, ClampChangeLimit(-5))
	assert.Equal(t, 1, ClampChangeLimit(1))
	assert.Equal(t, MaxChangeLimit, ClampChangeLimit(1000))
}

func TestStats(t *testing.T) {
	env := newGuestEnv(t)
	env.f.CreateGuest(t, fixtures.InFamily("LAMP"), fixtures.WithAttendance(models.StatusAttending),
		fixtures.InvitedTo("stag", models.StatusAttending), fixtures.WithMeal(models.MealBeef))
	env.f.CreateGuest(t, fixtures.InFamily("LAMP"), fixtures.WithAttendance(models.StatusNotAttending),
		fixtures.InvitedTo("stag", models.StatusPending))
	env.f.CreateGuest(t, fixtures.InFamily("ZED"))

	stats, err := env.svc.Stats(env.ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalGuests)
	assert.Equal(t, 1, stats.Attending)
	assert.Equal(t, 1, stats.NotAttending)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 66.7, stats.ResponseRate)
	assert.Equal(t, 2, stats.Families)
	assert.Equal(t, models.SubEventStats{Invited: 2, Attending: 1, Pending: 1}, stats.SubEvents["stag"])
	assert.Equal(t, models.SubEventStats{}, stats.SubEvents["hen"])
	assert.Equal(t, 1, stats.Meals["Beef"])
	assert.Equal(t, 2, stats.Meals["Not Chosen"])
}

func TestStats_Empty(t *testing.T) {
	env := newGuestEnv(t)

	stats, err := env.svc.Stats(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalGuests)
	assert.Equal(t, 0.0, stats.ResponseRate)
}

func TestExportCSV(t *testing.T) {
	env := newGuestEnv(t)
	env.f.CreateGuest(t, fixtures.Named("Alice"), fixtures.InFamily("LAMP"), fixtures.WithEmail("a@example.com"),
		fixtures.WithAttendance(models.StatusAttending), fixtures.WithMeal(models.MealFish))
	env.f.CreateGuest(t, fixtures.Named("Bob"))

	var buf bytes.Buffer
	require.NoError(t, env.svc.ExportCSV(env.ctx, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, exportHeader, records[0])

	alice := records[1]
	assert.Equal(t, []string{"LAMP", "Alice", "a@example.com", "Attending", "Not Invited", "Not Invited", "Not Invited", "Fish"}, alice[:8])
	assert.Equal(t, "Pending", records[2][3])
	assert.Equal(t, "", records[2][0])
}
