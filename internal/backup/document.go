package backup

import (
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
)

// SchemaVersion is the only document version this package reads and writes.
const SchemaVersion = 1

// DefaultFileName is the suggested export file name.
const DefaultFileName = "choosethere_backup.json"

// Document is a version 1 backup.
type Document struct {
	SchemaVersion int          `json:"schemaVersion"`
	CreatedAt     time.Time    `json:"createdAt"`
	AppVersion    string       `json:"appVersion,omitempty"`
	Restaurants   []Restaurant `json:"restaurants"`
	Visits        []Visit      `json:"visits"`
}

// Restaurant is a backed up restaurant record. Rating fields are optional;
// a merge keeps the stored value when they are absent.
type Restaurant struct {
	ID                  string               `json:"id"`
	Name                string               `json:"name"`
	Category            string               `json:"category"`
	Address             string               `json:"address"`
	City                string               `json:"city"`
	State               string               `json:"state"`
	Tags                []string             `json:"tags"`
	Notes               string               `json:"notes"`
	ExternalLink        string               `json:"externalLink,omitempty"`
	Lat                 float64              `json:"lat"`
	Lng                 float64              `json:"lng"`
	Price               restaurant.PriceTier `json:"price,omitempty"`
	IsFavorite          bool                 `json:"isFavorite"`
	RatingAverage       *float64             `json:"ratingAverage,omitempty"`
	RatingCount         *int                 `json:"ratingCount,omitempty"`
	RatingLastVisitedAt *time.Time           `json:"ratingLastVisitedAt,omitempty"`
}

// Visit is a backed up visit.
type Visit struct {
	ID           uuid.UUID `json:"id"`
	RestaurantID string    `json:"restaurantId"`
	DateVisited  time.Time `json:"dateVisited"`
	Rating       int       `json:"rating"`
	Tags         []string  `json:"tags"`
	Note         string    `json:"note,omitempty"`
	IsMatch      bool      `json:"isMatch"`
	WouldReturn  bool      `json:"wouldReturn"`
}

// NewDocument builds a document from stored records.
func NewDocument(restaurants []restaurant.Restaurant, visits []restaurant.Visit, appVersion string, createdAt time.Time) *Document {
	doc := &Document{
		SchemaVersion: SchemaVersion,
		CreatedAt:     createdAt.UTC(),
		AppVersion:    appVersion,
		Restaurants:   make([]Restaurant, len(restaurants)),
		Visits:        make([]Visit, len(visits)),
	}
	for i, r := range restaurants {
		doc.Restaurants[i] = fromRestaurant(r)
	}
	for i, v := range visits {
		doc.Visits[i] = fromVisit(v)
	}
	return doc
}

func fromRestaurant(r restaurant.Restaurant) Restaurant {
	avg, count := r.RatingAverage, r.RatingCount
	return Restaurant{
		ID:                  r.ID,
		Name:                r.Name,
		Category:            r.Category,
		Address:             r.Address,
		City:                r.City,
		State:               r.State,
		Tags:                nonNil(r.Tags),
		Notes:               r.Notes,
		ExternalLink:        r.ExternalLink,
		Lat:                 r.Lat,
		Lng:                 r.Lng,
		Price:               r.Price,
		IsFavorite:          r.IsFavorite,
		RatingAverage:       &avg,
		RatingCount:         &count,
		RatingLastVisitedAt: r.RatingLastVisitedAt,
	}
}

// toRestaurant converts the record, taking absent rating fields from
// existing (which may be nil).
func (r Restaurant) toRestaurant(existing *restaurant.Restaurant) restaurant.Restaurant {
	out := restaurant.Restaurant{
		ID:           r.ID,
		Name:         r.Name,
		Category:     r.Category,
		Address:      r.Address,
		City:         r.City,
		State:        r.State,
		Tags:         nonNil(r.Tags),
		Notes:        r.Notes,
		ExternalLink: r.ExternalLink,
		Lat:          r.Lat,
		Lng:          r.Lng,
		Price:        r.Price,
		IsFavorite:   r.IsFavorite,
	}
	if existing != nil {
		out.RatingSnapshot = existing.RatingSnapshot
	}
	if r.RatingAverage != nil {
		out.RatingAverage = *r.RatingAverage
	}
	if r.RatingCount != nil {
		out.RatingCount = *r.RatingCount
	}
	if r.RatingLastVisitedAt != nil {
		out.RatingLastVisitedAt = r.RatingLastVisitedAt
	}
	return out
}

func fromVisit(v restaurant.Visit) Visit {
	return Visit{
		ID:           v.ID,
		RestaurantID: v.RestaurantID,
		DateVisited:  v.VisitedAt.UTC(),
		Rating:       v.Rating,
		Tags:         nonNil(v.Tags),
		Note:         v.Note,
		IsMatch:      v.IsMatch,
		WouldReturn:  v.WouldReturn,
	}
}

func (v Visit) toVisit() restaurant.Visit {
	return restaurant.Visit{
		ID:           v.ID,
		RestaurantID: v.RestaurantID,
		VisitedAt:    v.DateVisited,
		Rating:       v.Rating,
		Tags:         nonNil(v.Tags),
		Note:         v.Note,
		IsMatch:      v.IsMatch,
		WouldReturn:  v.WouldReturn,
	}
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
