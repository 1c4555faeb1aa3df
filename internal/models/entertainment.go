package models

import "time"

// EntertainmentPost is a promotional post shown on the entertainment page
type EntertainmentPost struct {
	Caption   string  `json:"caption"`
	Permalink string  `json:"permalink"`
	ImageURL  string  `json:"image_url"`
	Timestamp *string `json:"timestamp"`
}

// EntertainmentEvent is an upcoming gig formatted for display
type EntertainmentEvent struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Date      string  `json:"date"`
	Venue     string  `json:"venue"`
	VenueURL  *string `json:"venue_url,omitempty"`
	ImageURL  *string `json:"image_url,omitempty"`
	Duration  *string `json:"duration,omitempty"`
	Responded *int    `json:"responded,omitempty"`
}

// BeardEvent is a row of the beard_events table
type BeardEvent struct {
	ID        string
	Name      *string
	URL       *string
	Timestamp *time.Time
	Location  *string
	VenueURL  *string
	Duration  *string
	ImageURL  *string
	Responded *int
}
