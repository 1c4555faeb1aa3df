package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"weddingrsvp/internal/cache"
	"weddingrsvp/internal/models"
	"weddingrsvp/internal/repository"
)

const (
	postsCacheKey  = "entertainment_posts"
	eventsCacheKey = "entertainment_events"

	maxPosts  = 3
	maxEvents = 10

	eventDateLayout  = "Mon, 02 Jan at 15:04"
	defaultEventsURL = "https://www.facebook.com/bearduk/events"
	postsPermalink   = "https://www.instagram.com/beardbanduk/"
	postsImage       = "/static/images/entertainment.jpg"
)

// EntertainmentService serves the band's promotional posts and upcoming gigs
// through the file cache
type EntertainmentService struct {
	cache     *cache.FileCache
	eventRepo *repository.EventRepository
	logger    *zap.Logger
	now       func() time.Time
}

// NewEntertainmentService creates a new entertainment service. eventRepo may
// be nil, in which case the fallback events are served.
func NewEntertainmentService(fc *cache.FileCache, eventRepo *repository.EventRepository, logger *zap.Logger) *EntertainmentService {
	return &EntertainmentService{
		cache:     fc,
		eventRepo: eventRepo,
		logger:    logger,
		now:       time.Now,
	}
}

// Posts returns at most three promotional posts
func (s *EntertainmentService) Posts() ([]models.EntertainmentPost, error) {
	posts, err := cache.Load(s.cache, postsCacheKey, func() ([]models.EntertainmentPost, error) {
		s.logger.Info("regenerating entertainment posts")
		return fallbackPosts(), nil
	})
	if err != nil {
		return nil, err
	}
	if len(posts) > maxPosts {
		posts = posts[:maxPosts]
	}
	return posts, nil
}

// Events returns up to ten upcoming events, or the fallback list when none
// can be read
func (s *EntertainmentService) Events(ctx context.Context) ([]models.EntertainmentEvent, error) {
	return cache.Load(s.cache, eventsCacheKey, func() ([]models.EntertainmentEvent, error) {
		s.logger.Info("regenerating entertainment events")
		return s.loadEvents(ctx), nil
	})
}

func (s *EntertainmentService) loadEvents(ctx context.Context) []models.EntertainmentEvent {
	if s.eventRepo == nil {
		return fallbackEvents()
	}

	rows, err := s.eventRepo.Upcoming(ctx, s.now(), maxEvents)
	if err != nil {
		s.logger.Warn("event query failed, using fallback events", zap.Error(err))
		return fallbackEvents()
	}
	if len(rows) == 0 {
		return fallbackEvents()
	}

	events := make([]models.EntertainmentEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, formatEvent(row))
	}
	return events
}

func formatEvent(row models.BeardEvent) models.EntertainmentEvent {
	date := "Date TBA"
	if row.Timestamp != nil {
		date = row.Timestamp.UTC().Format(eventDateLayout)
	}
	return models.EntertainmentEvent{
		Title:     orDefault(row.Name, "BEARD Live"),
		URL:       orDefault(row.URL, defaultEventsURL),
		Date:      date,
		Venue:     orDefault(row.Location, "Venue TBA"),
		VenueURL:  row.VenueURL,
		ImageURL:  row.ImageURL,
		Duration:  row.Duration,
		Responded: row.Responded,
	}
}

func orDefault(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}

// ClearCache drops both snapshots so the next request regenerates them
func (s *EntertainmentService) ClearCache() error {
	for _, key := range []string{postsCacheKey, eventsCacheKey} {
		if err := s.cache.Delete(key); err != nil {
			return err
		}
	}
	s.logger.Info("entertainment cache cleared")
	return nil
}

func fallbackPosts() []models.EntertainmentPost {
	return []models.EntertainmentPost{
		{
			Caption:   "Beard live highlight reel, book us for your next party!",
			Permalink: postsPermalink,
			ImageURL:  postsImage,
		},
		{
			Caption:   "Follow @beardbanduk for the latest gig updates and behind-the-scenes content!",
			Permalink: postsPermalink,
			ImageURL:  postsImage,
		},
		{
			Caption:   "Indie anthems and party classics, bringing the energy to every venue!",
			Permalink: postsPermalink,
			ImageURL:  postsImage,
		},
	}
}

func fallbackEvents() []models.EntertainmentEvent {
	return []models.EntertainmentEvent{
		{Title: "BEARD @ The Vaults", URL: defaultEventsURL, Date: "Fri, 28 Nov at 21:00", Venue: "The Vaults, Southsea"},
		{Title: "BEARD @ Steamtown", URL: defaultEventsURL, Date: "Fri, 19 Dec at 20:00", Venue: "Steam Town Brew Co, Eastleigh"},
		{Title: "Private Party", URL: defaultEventsURL, Date: "Tomorrow at 19:00", Venue: "Private Venue"},
		{Title: "BEARD @ The Anglers", URL: defaultEventsURL, Date: "Sun, 21 Dec at 16:00", Venue: "The Anglers"},
	}
}
