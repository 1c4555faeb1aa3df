package service

import (
	"encoding/json"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"

	"weddingrsvp/internal/models"
)

type columnKind int

const (
	kindText columnKind = iota
	kindInt
)

// columnRule describes how one guest column may be written
type columnRule struct {
	Column      string
	Kind        columnKind
	Allowed     []int
	Nullable    bool
	Bulk        bool
	InvitedOnly bool
	Upper       bool
}

var (
	statusDomain = []int{models.StatusNotAttending, models.StatusAttending, models.StatusPending}
	mealDomain   = []int{models.MealNotChosen, models.MealChild, models.MealVegetarian, models.MealFish, models.MealBeef}
	roomDomain   = []int{models.RoomNotStaying, models.RoomUndecided, models.RoomOnSite, models.RoomNearby}
)

// columnRules is the allow-list of writable guest columns, in schema order.
// id and created_at are absent and so can never be written.
var columnRules = []columnRule{
	{Column: "family_id", Kind: kindText, Nullable: true, Upper: true},
	{Column: "name", Kind: kindText},
	{Column: "age", Kind: kindText, Nullable: true},
	{Column: "side", Kind: kindText, Nullable: true},
	{Column: "guest_type", Kind: kindText, Nullable: true},
	{Column: "sex", Kind: kindText, Nullable: true},
	{Column: "email", Kind: kindText, Nullable: true},
	{Column: "mobile", Kind: kindText, Nullable: true},
	{Column: "address", Kind: kindText, Nullable: true, Bulk: true},
	{Column: "comment", Kind: kindText, Nullable: true, Bulk: true},
	{Column: "music_requests", Kind: kindText, Nullable: true, Bulk: true},
	{Column: "restrictions", Kind: kindText, Nullable: true},
	{Column: "ideas", Kind: kindText, Nullable: true, Bulk: true},
	{Column: "stag", Kind: kindInt, Allowed: statusDomain, Nullable: true, Bulk: true, InvitedOnly: true},
	{Column: "hen", Kind: kindInt, Allowed: statusDomain, Nullable: true, Bulk: true, InvitedOnly: true},
	{Column: "ceremony", Kind: kindInt, Allowed: statusDomain, Nullable: true, Bulk: true, InvitedOnly: true},
	{Column: "wedding_meal", Kind: kindInt, Allowed: mealDomain, Nullable: true},
	{Column: "friday_room", Kind: kindInt, Allowed: roomDomain, Nullable: true, Bulk: true},
	{Column: "saturday_room", Kind: kindInt, Allowed: roomDomain, Nullable: true, Bulk: true},
	{Column: "attendance_status", Kind: kindInt, Allowed: statusDomain, Bulk: true},
}

var rulesByColumn = func() map[string]columnRule {
	m := make(map[string]columnRule, len(columnRules))
	for _, r := range columnRules {
		m[r.Column] = r
	}
	return m
}()

// fieldAliases maps request field names to their column
var fieldAliases = map[string]string{
	"family_code":              "family_id",
	"meal_preference":          "wedding_meal",
	"friday_stay_preference":   "friday_room",
	"saturday_stay_preference": "saturday_room",
	"phone":                    "mobile",
	"dietary_restrictions":     "restrictions",
	"stag_ideas":               "ideas",
	"hen_ideas":                "ideas",
}

// lookupRule resolves a field name or alias to its column rule
func lookupRule(field string) (columnRule, bool) {
	name := strings.TrimSpace(field)
	if alias, ok := fieldAliases[name]; ok {
		name = alias
	}
	r, ok := rulesByColumn[name]
	return r, ok
}

// normalize converts a decoded JSON value into nil, string or int for the column
func (r columnRule) normalize(raw any) (any, error) {
	var (
		v   any
		err error
	)
	switch r.Kind {
	case kindInt:
		v, err = toInt(r.Column, raw)
	default:
		v, err = toText(r.Column, raw)
	}
	if err != nil {
		return nil, err
	}

	if v == nil {
		if !r.Nullable {
			return nil, invalidField(r.Column, "is required")
		}
		return nil, nil
	}

	if s, ok := v.(string); ok && r.Upper {
		v = strings.ToUpper(s)
	}
	if n, ok := v.(int); ok && r.Allowed != nil && !slices.Contains(r.Allowed, n) {
		return nil, invalidField(r.Column, "must be one of %s", joinInts(r.Allowed))
	}
	return v, nil
}

func toText(column string, raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s, nil
		}
		return nil, nil
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	default:
		return nil, invalidField(column, "must be text")
	}
}

func toInt(column string, raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return integralFloat(column, v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, invalidField(column, "must be an integer")
		}
		return integralFloat(column, f)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, invalidField(column, "must be an integer")
		}
		return n, nil
	default:
		return nil, invalidField(column, "must be an integer")
	}
}

func integralFloat(column string, f float64) (any, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return nil, invalidField(column, "must be an integer")
	}
	return int(f), nil
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}

// resolveFields validates every requested field before anything is read.
// The result maps column name to its normalised value.
func resolveFields(fields map[string]any) (map[string]any, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, ok := lookupRule(k); !ok {
			return nil, invalidField(k, "is not an updatable field")
		}
	}

	resolved := make(map[string]any, len(fields))
	for _, k := range keys {
		rule, _ := lookupRule(k)
		v, err := rule.normalize(fields[k])
		if err != nil {
			return nil, err
		}
		if prev, seen := resolved[rule.Column]; seen && textOf(prev) != textOf(v) {
			return nil, invalidField(k, "conflicts with another value for %s", rule.Column)
		}
		resolved[rule.Column] = v
	}
	return resolved, nil
}

// stringify renders a column value the way it is stored in the change log
func stringify(v any) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return &t
	case int:
		s := strconv.Itoa(t)
		return &s
	default:
		return nil
	}
}

// textOf coerces nil to "" so null and empty compare equal
func textOf(v any) string {
	if s := stringify(v); s != nil {
		return *s
	}
	return ""
}

// familyFieldSlugs maps the family-wide route names to columns
var familyFieldSlugs = map[string]string{
	"attendance":    "attendance_status",
	"stag":          "stag",
	"hen":           "hen",
	"ceremony":      "ceremony",
	"friday-stay":   "friday_room",
	"saturday-stay": "saturday_room",
	"music":         "music_requests",
	"comment":       "comment",
	"ideas":         "ideas",
	"address":       "address",
}

// FamilyFieldColumn resolves a family route slug, a column or an alias to a
// bulk-updatable column
func FamilyFieldColumn(field string) (string, bool) {
	if col, ok := familyFieldSlugs[field]; ok {
		return col, true
	}
	rule, ok := lookupRule(field)
	if !ok || !rule.Bulk {
		return "", false
	}
	return rule.Column, true
}
