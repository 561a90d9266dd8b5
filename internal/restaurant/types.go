package restaurant

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PriceTier is the ordinal price level of a restaurant.
// The zero value means the tier is unknown (or, in a PreferenceContext, unset).
type PriceTier int

const (
	PriceUnknown PriceTier = iota
	PriceCheap
	PriceModerate
	PriceExpensive
)

// Symbol returns the "$" notation for the tier.
func (p PriceTier) Symbol() string {
	switch p {
	case PriceCheap:
		return "$"
	case PriceModerate:
		return "$$"
	case PriceExpensive:
		return "$$$"
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (p PriceTier) String() string {
	switch p {
	case PriceCheap:
		return "cheap"
	case PriceModerate:
		return "moderate"
	case PriceExpensive:
		return "expensive"
	default:
		return ""
	}
}

// ParsePriceTier accepts names ("cheap"), symbols ("$$") or ordinals ("3").
// An empty string parses to PriceUnknown.
func ParsePriceTier(s string) (PriceTier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return PriceUnknown, nil
	case "cheap", "$", "1":
		return PriceCheap, nil
	case "moderate", "$$", "2":
		return PriceModerate, nil
	case "expensive", "$$$", "3":
		return PriceExpensive, nil
	}
	return PriceUnknown, fmt.Errorf("invalid price tier %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p PriceTier) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PriceTier) UnmarshalText(text []byte) error {
	parsed, err := ParsePriceTier(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// RatingPriority controls how aggregate ratings influence a draw.
type RatingPriority int

const (
	// RatingNone ignores ratings.
	RatingNone RatingPriority = iota
	// RatingPrefer keeps every candidate but boosts well-rated ones.
	RatingPrefer
	// RatingOnly drops candidates rated below HighRatingThreshold (or unrated).
	RatingOnly
)

// HighRatingThreshold is the minimum aggregate rating for RatingOnly.
const HighRatingThreshold = 4.0

func (r RatingPriority) String() string {
	switch r {
	case RatingPrefer:
		return "prefer"
	case RatingOnly:
		return "only"
	default:
		return "none"
	}
}

// ParseRatingPriority parses "none", "prefer" or "only" (empty means none).
func ParseRatingPriority(s string) (RatingPriority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return RatingNone, nil
	case "prefer":
		return RatingPrefer, nil
	case "only":
		return RatingOnly, nil
	}
	return RatingNone, fmt.Errorf("invalid rating priority %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (r RatingPriority) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *RatingPriority) UnmarshalText(text []byte) error {
	parsed, err := ParseRatingPriority(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Location is a WGS84 coordinate.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate is inside WGS84 bounds.
func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// Candidate is the read-only view of a restaurant used by the selection core.
// The core never mutates a Candidate; callers own the values.
type Candidate struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Tags     []string  `json:"tags"`
	Price    PriceTier `json:"price,omitempty"`

	// Rating is the aggregate rating in [0, 5]; nil when the restaurant has
	// never been rated.
	Rating      *float64 `json:"rating,omitempty"`
	RatingCount int      `json:"rating_count,omitempty"`

	Favorite bool    `json:"favorite"`
	Address  string  `json:"address,omitempty"`
	City     string  `json:"city,omitempty"`
	State    string  `json:"state,omitempty"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// RatingValue returns the aggregate rating and whether one exists.
func (c Candidate) RatingValue() (float64, bool) {
	if c.Rating == nil {
		return 0, false
	}
	return *c.Rating, true
}

// Location returns the candidate coordinate.
func (c Candidate) Location() Location {
	return Location{Lat: c.Lat, Lng: c.Lng}
}

// Rating returns a pointer to r, for building candidates inline.
func Rating(r float64) *float64 {
	return &r
}

// PreferenceContext is the explicit, per-draw preference input.
// It is a value: construct one per draw and do not mutate it during a pick.
type PreferenceContext struct {
	DesiredTags    []string       `json:"desired_tags,omitempty"`
	AvoidTags      []string       `json:"avoid_tags,omitempty"`
	Price          PriceTier      `json:"price,omitempty"`
	RatingPriority RatingPriority `json:"rating_priority"`

	// UserLocation and RadiusKm are consumed by upstream radius filtering
	// (nearby search); the selection core ignores them.
	UserLocation *Location `json:"user_location,omitempty"`
	RadiusKm     int       `json:"radius_km,omitempty"`
}

// Visit is a persisted, rated visit to a restaurant.
type Visit struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID string    `json:"restaurant_id"`
	VisitedAt    time.Time `json:"visited_at"`
	Rating       int       `json:"rating"`
	Tags         []string  `json:"tags,omitempty"`
	Note         string    `json:"note,omitempty"`
	IsMatch      bool      `json:"is_match"`
	WouldReturn  bool      `json:"would_return"`
}

// ValidRating reports whether rating is within the 1..5 scale.
func ValidRating(rating int) bool {
	return rating >= 1 && rating <= 5
}

// FormatRating renders an optional rating for CLI output.
func FormatRating(r *float64) string {
	if r == nil {
		return "-"
	}
	return strconv.FormatFloat(*r, 'f', 1, 64)
}

// Restaurant is the full stored restaurant record. Candidate is the subset
// the selection core reads.
type Restaurant struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Address      string    `json:"address,omitempty"`
	City         string    `json:"city,omitempty"`
	State        string    `json:"state,omitempty"`
	Tags         []string  `json:"tags"`
	Notes        string    `json:"notes,omitempty"`
	ExternalLink string    `json:"external_link,omitempty"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	Price        PriceTier `json:"price,omitempty"`
	IsFavorite   bool      `json:"is_favorite"`

	RatingSnapshot
}

// Candidate projects the record into the selection core's view.
func (r Restaurant) Candidate() Candidate {
	c := Candidate{
		ID:          r.ID,
		Name:        r.Name,
		Category:    r.Category,
		Tags:        append([]string(nil), r.Tags...),
		Price:       r.Price,
		RatingCount: r.RatingCount,
		Favorite:    r.IsFavorite,
		Address:     r.Address,
		City:        r.City,
		State:       r.State,
		Lat:         r.Lat,
		Lng:         r.Lng,
	}
	if r.RatingCount > 0 {
		c.Rating = Rating(r.RatingAverage)
	}
	return c
}

// RatingSnapshot is the aggregate of a restaurant's visit ratings.
type RatingSnapshot struct {
	RatingAverage       float64    `json:"rating_average"`
	RatingCount         int        `json:"rating_count"`
	RatingLastVisitedAt *time.Time `json:"rating_last_visited_at,omitempty"`
}

// AggregateRatings summarizes visits. Visits with a rating outside 1..5
// are ignored; with no valid visits the snapshot is zero.
func AggregateRatings(visits []Visit) RatingSnapshot {
	var (
		snap RatingSnapshot
		sum  int
	)
	for _, v := range visits {
		if !ValidRating(v.Rating) {
			continue
		}
		sum += v.Rating
		snap.RatingCount++
		if snap.RatingLastVisitedAt == nil || v.VisitedAt.After(*snap.RatingLastVisitedAt) {
			at := v.VisitedAt
			snap.RatingLastVisitedAt = &at
		}
	}
	if snap.RatingCount > 0 {
		snap.RatingAverage = float64(sum) / float64(snap.RatingCount)
	}
	return snap
}
