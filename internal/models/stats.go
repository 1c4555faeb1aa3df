package models

// SubEventStats counts responses for one sub-event among invited guests
type SubEventStats struct {
	Invited      int `json:"invited"`
	Attending    int `json:"attending"`
	NotAttending int `json:"not_attending"`
	Pending      int `json:"pending"`
}

// Stats summarises RSVP responses across all guests
type Stats struct {
	TotalGuests  int                      `json:"total_guests"`
	Attending    int                      `json:"attending"`
	NotAttending int                      `json:"not_attending"`
	Pending      int                      `json:"pending"`
	ResponseRate float64                  `json:"response_rate"`
	Families     int                      `json:"families"`
	SubEvents    map[string]SubEventStats `json:"sub_events"`
	Meals        map[string]int           `json:"meals"`
}
