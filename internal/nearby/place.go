package nearby

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
)

var (
	// ErrNoResults means the provider found nothing in the area.
	ErrNoResults = errors.New("no places found in this area")
	// ErrAllFiltered means places were found but none passed the filters.
	ErrAllFiltered = errors.New("no place matches the selected filters")
	// ErrSearchFailed wraps provider failures other than an empty result.
	ErrSearchFailed = errors.New("place search failed")
	// ErrInvalidCoordinate rejects user locations outside WGS84 bounds.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)

// Place is a transient provider result. It is never persisted.
type Place struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Address      string  `json:"address,omitempty"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	CategoryHint string  `json:"category_hint,omitempty"`
	ExternalLink string  `json:"external_link,omitempty"`
	Phone        string  `json:"phone,omitempty"`
}

// PlaceID derives a stable id from the name and the coordinate rounded to
// five decimals.
func PlaceID(name string, lat, lng float64) string {
	return base64.StdEncoding.EncodeToString(fmt.Appendf(nil, "%s|%.5f|%.5f", name, lat, lng))
}

// Location returns the place coordinate.
func (p Place) Location() restaurant.Location {
	return restaurant.Location{Lat: p.Lat, Lng: p.Lng}
}

// SearchRequest describes one provider query.
type SearchRequest struct {
	Category string
	RadiusKm int
	CityHint string
	Location restaurant.Location
}

// Searcher finds places around a location.
type Searcher interface {
	// Search returns the places found. An empty area is ErrNoResults.
	Search(ctx context.Context, req SearchRequest) ([]Place, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, req SearchRequest) ([]Place, error)

// Search implements Searcher.
func (f SearcherFunc) Search(ctx context.Context, req SearchRequest) ([]Place, error) {
	return f(ctx, req)
}
