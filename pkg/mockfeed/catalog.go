package mockfeed

// Template is one synthesizable event. The catalog is demo content, not
// domain logic; deployments can swap it out wholesale.
type Template struct {
	Title       string
	Description string
	Location    string
}

// DefaultCatalog maps category to its templates.
var DefaultCatalog = map[string][]Template{
	"concert": {
		{"Indie Rock Night Live", "Join us for an electrifying evening with local indie bands and amazing vibes!", "The Music Hall, Downtown"},
		{"Jazz & Coffee Evening", "Smooth jazz performances in a cozy cafe setting. Bring your friends!", "Blue Note Cafe"},
		{"Electronic Music Festival", "Dance the night away with top DJs spinning the best electronic beats.", "Riverside Arena"},
		{"Classical Orchestra Concert", "Experience the magic of classical music with our city orchestra.", "Symphony Center"},
		{"Pop Music Showcase", "Upcoming pop artists performing their latest hits. Don't miss out!", "Star Theatre"},
		{"Rock Legends Tribute", "Celebrating the greatest rock bands of all time with tribute performances.", "Electric Garden"},
	},
	"travel": {
		{"Weekend Beach Getaway", "Escape to pristine beaches and crystal-clear waters. Relaxation guaranteed!", "Coastal Paradise Resort"},
		{"Mountain Village Tour", "Explore charming mountain villages and experience local culture.", "Highland Valley"},
		{"City Food Tour", "Taste the best local cuisine and discover hidden food gems.", "Food District, Old Town"},
		{"Desert Safari Adventure", "Experience the thrill of dune bashing and traditional desert camping.", "Golden Dunes Desert"},
		{"Island Hopping Expedition", "Discover beautiful tropical islands and marine life.", "Azure Islands"},
		{"Historic City Walk", "Walk through centuries of history in our guided heritage tour.", "Heritage District"},
	},
	"trekking": {
		{"Sunrise Mountain Trek", "Wake up early and witness a breathtaking sunrise from the mountain peak.", "Eagle Peak Trail"},
		{"Forest Nature Walk", "Peaceful walk through ancient forests with expert naturalist guides.", "Evergreen Forest Reserve"},
		{"Canyon Exploration", "Navigate through stunning canyons and unique rock formations.", "Red Rock Canyon"},
		{"Waterfall Trail Adventure", "Trek to hidden waterfalls and swim in natural pools.", "Cascade Valley"},
		{"Alpine Meadows Hike", "Experience wildflower meadows and panoramic mountain views.", "Alpine Heights"},
		{"Coastal Cliff Trail", "Hike along dramatic coastal cliffs with ocean views.", "Windswept Shores"},
	},
}

var defaultCapacities = []int{20, 30, 40, 50, 75, 100}
