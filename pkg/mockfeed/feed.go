// Package mockfeed periodically synthesizes plausible event payloads and
// pushes them to every connected client, independent of room membership.
// It is engagement filler for the events page, tagged so clients can
// tell it apart from authoritative data.
package mockfeed

import (
	"context"
	"encoding/json"
	"math/rand"
	"sort"
	"time"

	"github.com/gatherly/chat-service/pkg/logging"
	"github.com/gatherly/chat-service/pkg/model"
)

// DefaultInterval matches the original 45 second broadcast cadence.
const DefaultInterval = 45 * time.Second

// Broadcaster is the slice of the hub the feed needs.
type Broadcaster interface {
	BroadcastAll(data []byte)
}

// Event is the synthesized payload. IsMockEvent is always true so
// clients can distinguish it from real events.
type Event struct {
	Type         string    `json:"type"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Location     string    `json:"location"`
	Category     string    `json:"category"`
	Date         time.Time `json:"date"`
	MaxAttendees int       `json:"maxAttendees"`
	Attendees    []string  `json:"attendees"`
	IsMockEvent  bool      `json:"isMockEvent"`
	Timestamp    time.Time `json:"timestamp"`
}

type Feed struct {
	hub      Broadcaster
	catalog  map[string][]Template
	interval time.Duration
	rng      *rand.Rand
	now      func() time.Time
}

type Option func(*Feed)

// WithInterval overrides the broadcast cadence.
func WithInterval(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.interval = d
		}
	}
}

// WithCatalog replaces the default template catalog.
func WithCatalog(catalog map[string][]Template) Option {
	return func(f *Feed) {
		if len(catalog) > 0 {
			f.catalog = catalog
		}
	}
}

// WithRand fixes the random source, for tests.
func WithRand(rng *rand.Rand) Option {
	return func(f *Feed) { f.rng = rng }
}

func New(hub Broadcaster, opts ...Option) *Feed {
	f := &Feed{
		hub:      hub,
		catalog:  DefaultCatalog,
		interval: DefaultInterval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run broadcasts a synthesized event on every tick until the context is
// canceled. The feed has its own broadcast path and is never blocked by
// room traffic.
func (f *Feed) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	lg := logging.L(); lg.Info().Dur("interval", f.interval).Msg("mock event feed started")

	for {
		select {
		case <-ctx.Done():
			lg := logging.L(); lg.Info().Msg("mock event feed stopped")
			return
		case <-ticker.C:
			f.BroadcastOne()
		}
	}
}

// BroadcastOne synthesizes a single event and fans it out to every
// connection.
func (f *Feed) BroadcastOne() {
	event := f.Generate()
	data, err := json.Marshal(event)
	if err != nil {
		lg := logging.L(); lg.Error().Err(err).Msg("failed to marshal mock event")
		return
	}

	f.hub.BroadcastAll(data)
	lg := logging.L(); lg.Debug().Str("category", event.Category).Str("title", event.Title).Msg("broadcasted mock event")
}

// Generate rolls a random template with a randomized future date
// (1-30 days out, starting between 10:00 and 21:59) and capacity.
func (f *Feed) Generate() Event {
	categories := make([]string, 0, len(f.catalog))
	for category := range f.catalog {
		categories = append(categories, category)
	}
	// Map iteration order is random but not seedable; sort for
	// reproducible rolls under a fixed source.
	sort.Strings(categories)

	category := categories[f.rng.Intn(len(categories))]
	templates := f.catalog[category]
	tpl := templates[f.rng.Intn(len(templates))]

	now := f.now()
	date := now.AddDate(0, 0, f.rng.Intn(30)+1)
	date = time.Date(date.Year(), date.Month(), date.Day(),
		f.rng.Intn(12)+10, f.rng.Intn(60), 0, 0, date.Location())

	return Event{
		Type:         model.FrameNewMockEvent,
		Title:        tpl.Title,
		Description:  tpl.Description,
		Location:     tpl.Location,
		Category:     category,
		Date:         date,
		MaxAttendees: defaultCapacities[f.rng.Intn(len(defaultCapacities))],
		Attendees:    []string{},
		IsMockEvent:  true,
		Timestamp:    now,
	}
}
