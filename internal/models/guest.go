package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Attendance and sub-event (stag, hen, ceremony) states
const (
	StatusNotAttending = 0
	StatusAttending    = 1
	StatusPending      = 2
)

// Wedding meal choices
const (
	MealNotChosen  = 1
	MealChild      = 2
	MealVegetarian = 3
	MealFish       = 4
	MealBeef       = 5
)

// Room preferences for the Friday and Saturday nights
const (
	RoomNotStaying = -1
	RoomUndecided  = 0
	RoomOnSite     = 1
	RoomNearby     = 2
)

var ErrGuestNameRequired = errors.New("guest name is required")

// Guest is one invitee. Nullable columns are pointers; a nil sub-event flag
// means the guest is not invited to that event.
type Guest struct {
	ID               string    `json:"id"`
	FamilyID         *string   `json:"family_id"`
	Name             string    `json:"name"`
	Age              *string   `json:"age"`
	Side             *string   `json:"side"`
	GuestType        *string   `json:"guest_type"`
	Sex              *string   `json:"sex"`
	Email            *string   `json:"email"`
	Mobile           *string   `json:"mobile"`
	Address          *string   `json:"address"`
	Comment          *string   `json:"comment"`
	MusicRequests    *string   `json:"music_requests"`
	Restrictions     *string   `json:"restrictions"`
	Ideas            *string   `json:"ideas"`
	Stag             *int      `json:"stag"`
	Hen              *int      `json:"hen"`
	Ceremony         *int      `json:"ceremony"`
	WeddingMeal      *int      `json:"wedding_meal"`
	FridayRoom       *int      `json:"friday_room"`
	SaturdayRoom     *int      `json:"saturday_room"`
	AttendanceStatus *int      `json:"attendance_status"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewGuest builds a guest with a fresh id and creation time
func NewGuest(name, familyCode string) (*Guest, error) {
	g := &Guest{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		CreatedAt: time.Now().UTC(),
	}
	if code := NormalizeFamilyCode(familyCode); code != "" {
		g.FamilyID = &code
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks the fields every stored guest must carry
func (g *Guest) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrGuestNameRequired
	}
	if _, err := uuid.Parse(g.ID); err != nil {
		return errors.New("guest id must be a UUID")
	}
	return nil
}

// Column returns the current value of a column as nil, string or int.
// The second result is false for names that are not guest columns.
func (g *Guest) Column(name string) (any, bool) {
	switch name {
	case "id":
		return g.ID, true
	case "name":
		return g.Name, true
	case "created_at":
		return g.CreatedAt, true
	}
	if p, ok := g.textColumns()[name]; ok {
		if *p == nil {
			return nil, true
		}
		return **p, true
	}
	if p, ok := g.intColumns()[name]; ok {
		if *p == nil {
			return nil, true
		}
		return **p, true
	}
	return nil, false
}

func (g *Guest) textColumns() map[string]**string {
	return map[string]**string{
		"family_id":      &g.FamilyID,
		"age":            &g.Age,
		"side":           &g.Side,
		"guest_type":     &g.GuestType,
		"sex":            &g.Sex,
		"email":          &g.Email,
		"mobile":         &g.Mobile,
		"address":        &g.Address,
		"comment":        &g.Comment,
		"music_requests": &g.MusicRequests,
		"restrictions":   &g.Restrictions,
		"ideas":          &g.Ideas,
	}
}

func (g *Guest) intColumns() map[string]**int {
	return map[string]**int{
		"stag":              &g.Stag,
		"hen":               &g.Hen,
		"ceremony":          &g.Ceremony,
		"wedding_meal":      &g.WeddingMeal,
		"friday_room":       &g.FridayRoom,
		"saturday_room":     &g.SaturdayRoom,
		"attendance_status": &g.AttendanceStatus,
	}
}

// SetColumn assigns a nullable text or integer column by name. It is used by
// importers that receive rows keyed by column name.
func (g *Guest) SetColumn(name string, value any) bool {
	if name == "name" {
		s, ok := value.(string)
		if ok {
			g.Name = s
		}
		return ok
	}
	if p, ok := g.textColumns()[name]; ok {
		switch v := value.(type) {
		case nil:
			*p = nil
		case string:
			*p = &v
		default:
			return false
		}
		return true
	}
	if p, ok := g.intColumns()[name]; ok {
		switch v := value.(type) {
		case nil:
			*p = nil
		case int:
			*p = &v
		default:
			return false
		}
		return true
	}
	return false
}

// NormalizeFamilyCode upper-cases a family code so lookups are case-insensitive
func NormalizeFamilyCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// FamilyCode returns the guest's family code or "" when unassigned
func (g *Guest) FamilyCode() string {
	if g.FamilyID == nil {
		return ""
	}
	return *g.FamilyID
}

// InFamily reports whether the guest belongs to the given family code, ignoring case
func (g *Guest) InFamily(code string) bool {
	return g.FamilyID != nil && NormalizeFamilyCode(*g.FamilyID) == NormalizeFamilyCode(code)
}

// StatusLabel renders an attendance or sub-event state for people
func StatusLabel(status *int) string {
	if status == nil {
		return "Not Invited"
	}
	switch *status {
	case StatusAttending:
		return "Attending"
	case StatusNotAttending:
		return "Not Attending"
	default:
		return "Pending"
	}
}

// MealLabel renders a wedding meal choice
func MealLabel(meal *int) string {
	if meal == nil {
		return "Not Chosen"
	}
	switch *meal {
	case MealChild:
		return "Child"
	case MealVegetarian:
		return "Vegetarian"
	case MealFish:
		return "Fish"
	case MealBeef:
		return "Beef"
	default:
		return "Not Chosen"
	}
}

// RoomLabel renders a room preference
func RoomLabel(room *int) string {
	if room == nil {
		return "Undecided"
	}
	switch *room {
	case RoomNotStaying:
		return "Not Staying"
	case RoomOnSite:
		return "On Site"
	case RoomNearby:
		return "Nearby"
	default:
		return "Undecided"
	}
}

// GuestFilter narrows a guest listing. Unassigned selects guests without a family code.
type GuestFilter struct {
	FamilyCode string
	Unassigned bool
}
