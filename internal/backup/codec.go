package backup

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
)

// Kind classifies a ValidationError.
type Kind string

const (
	KindInvalidJSON       Kind = "invalid_json"
	KindUnsupportedSchema Kind = "unsupported_schema_version"
	KindMissingField      Kind = "missing_required_field"
	KindInvalidRestaurant Kind = "invalid_restaurant"
	KindInvalidVisit      Kind = "invalid_visit"
	KindOrphanedVisit     Kind = "orphaned_visit"
	KindEmptyBackup       Kind = "empty_backup"
	KindFutureDate        Kind = "future_date"
)

const (
	createdAtTolerance = time.Minute
	visitDateTolerance = 24 * time.Hour
	maxDocumentBytes   = 32 << 20
)

// ValidationError rejects a backup document.
type ValidationError struct {
	Kind   Kind
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return "invalid backup: " + string(e.Kind)
	}
	return fmt.Sprintf("invalid backup: %s: %s", e.Kind, e.Detail)
}

func invalid(kind Kind, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is a ValidationError of kind.
func IsKind(err error, kind Kind) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Kind == kind
}

// Codec encodes, decodes and validates documents.
type Codec struct {
	now func() time.Time
}

// NewCodec creates a codec using the wall clock for date checks.
func NewCodec() *Codec {
	return &Codec{now: time.Now}
}

// Encode renders doc as indented JSON.
func (c *Codec) Encode(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, invalid(KindInvalidJSON, "%v", err)
	}
	return data, nil
}

// presence mirrors the required keys as pointers so absent ones can be
// told apart from zero values.
type presence struct {
	SchemaVersion *int       `json:"schemaVersion"`
	CreatedAt     *time.Time `json:"createdAt"`
	Restaurants   *[]struct {
		ID   *string  `json:"id"`
		Name *string  `json:"name"`
		Lat  *float64 `json:"lat"`
		Lng  *float64 `json:"lng"`
	} `json:"restaurants"`
	Visits *[]struct {
		ID           *string    `json:"id"`
		RestaurantID *string    `json:"restaurantId"`
		DateVisited  *time.Time `json:"dateVisited"`
		Rating       *int       `json:"rating"`
	} `json:"visits"`
}

// Decode parses data. It checks JSON shape and required fields only; call
// Validate for content rules.
func (c *Codec) Decode(data []byte) (*Document, error) {
	if len(data) > maxDocumentBytes {
		return nil, invalid(KindInvalidJSON, "document exceeds %d bytes", maxDocumentBytes)
	}

	var p presence
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, mapDecodeError(err)
	}
	if err := p.missing(); err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, mapDecodeError(err)
	}
	return &doc, nil
}

func (p presence) missing() error {
	switch {
	case p.SchemaVersion == nil:
		return invalid(KindMissingField, "schemaVersion")
	case p.CreatedAt == nil:
		return invalid(KindMissingField, "createdAt")
	case p.Restaurants == nil:
		return invalid(KindMissingField, "restaurants")
	case p.Visits == nil:
		return invalid(KindMissingField, "visits")
	}

	for i, r := range *p.Restaurants {
		var name string
		switch {
		case r.ID == nil:
			name = "id"
		case r.Name == nil:
			name = "name"
		case r.Lat == nil:
			name = "lat"
		case r.Lng == nil:
			name = "lng"
		default:
			continue
		}
		return invalid(KindMissingField, "restaurants[%d].%s", i, name)
	}

	for i, v := range *p.Visits {
		var name string
		switch {
		case v.ID == nil:
			name = "id"
		case v.RestaurantID == nil:
			name = "restaurantId"
		case v.DateVisited == nil:
			name = "dateVisited"
		case v.Rating == nil:
			name = "rating"
		default:
			continue
		}
		return invalid(KindMissingField, "visits[%d].%s", i, name)
	}
	return nil
}

func mapDecodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		path := typeErr.Field
		if path == "" {
			path = typeErr.Struct
		}
		return invalid(KindInvalidJSON, "wrong type at %q", path)
	}
	return invalid(KindInvalidJSON, "%v", err)
}

// Validate checks doc. strict additionally requires every visit to
// reference a restaurant in the document.
func (c *Codec) Validate(doc *Document, strict bool) error {
	if doc.SchemaVersion != SchemaVersion {
		return invalid(KindUnsupportedSchema, "version %d", doc.SchemaVersion)
	}

	now := c.now()
	if doc.CreatedAt.After(now.Add(createdAtTolerance)) {
		return invalid(KindFutureDate, "created at %s", doc.CreatedAt.Format(time.RFC3339))
	}
	if len(doc.Restaurants) == 0 && len(doc.Visits) == 0 {
		return &ValidationError{Kind: KindEmptyBackup}
	}

	for _, r := range doc.Restaurants {
		if err := validateRestaurant(r); err != nil {
			return err
		}
	}
	for _, v := range doc.Visits {
		if err := validateVisit(v, now); err != nil {
			return err
		}
	}

	if strict {
		ids := make(map[string]struct{}, len(doc.Restaurants))
		for _, r := range doc.Restaurants {
			ids[r.ID] = struct{}{}
		}
		for _, v := range doc.Visits {
			if _, ok := ids[v.RestaurantID]; !ok {
				return invalid(KindOrphanedVisit, "visit %s references unknown restaurant %q", v.ID, v.RestaurantID)
			}
		}
	}
	return nil
}

func validateRestaurant(r Restaurant) error {
	switch {
	case strings.TrimSpace(r.ID) == "":
		return invalid(KindInvalidRestaurant, "restaurant %q: %s", r.ID, "empty id")
	case strings.TrimSpace(r.Name) == "":
		return invalid(KindInvalidRestaurant, "restaurant %q: %s", r.ID, "empty name")
	case r.Lat < -90 || r.Lat > 90:
		return invalid(KindInvalidRestaurant, "restaurant %q: %s", r.ID, fmt.Sprintf("latitude %v out of range", r.Lat))
	case r.Lng < -180 || r.Lng > 180:
		return invalid(KindInvalidRestaurant, "restaurant %q: %s", r.ID, fmt.Sprintf("longitude %v out of range", r.Lng))
	}
	return nil
}

func validateVisit(v Visit, now time.Time) error {
	switch {
	case v.ID == uuid.Nil:
		return invalid(KindInvalidVisit, "visit %s: %s", v.ID, "empty id")
	case strings.TrimSpace(v.RestaurantID) == "":
		return invalid(KindInvalidVisit, "visit %s: %s", v.ID, "empty restaurantId")
	case !restaurant.ValidRating(v.Rating):
		return invalid(KindInvalidVisit, "visit %s: %s", v.ID, fmt.Sprintf("rating %d out of range 1-5", v.Rating))
	case v.DateVisited.After(now.Add(visitDateTolerance)):
		return invalid(KindInvalidVisit, "visit %s: %s", v.ID, "visit date in the future")
	}
	return nil
}

// DecodeAndValidate decodes data and validates it.
func (c *Codec) DecodeAndValidate(data []byte, strict bool) (*Document, error) {
	doc, err := c.Decode(data)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(doc, strict); err != nil {
		return nil, err
	}
	return doc, nil
}

// Preview summarizes a backup before import.
type Preview struct {
	SchemaVersion   int       `json:"schema_version"`
	CreatedAt       time.Time `json:"created_at"`
	AppVersion      string    `json:"app_version,omitempty"`
	RestaurantCount int       `json:"restaurant_count"`
	VisitCount      int       `json:"visit_count"`
	FavoriteCount   int       `json:"favorite_count"`
	Cities          []string  `json:"cities"`
}

// Preview decodes data and summarizes it. Only the schema version is
// checked.
func (c *Codec) Preview(data []byte) (*Preview, error) {
	doc, err := c.Decode(data)
	if err != nil {
		return nil, err
	}
	if doc.SchemaVersion != SchemaVersion {
		return nil, invalid(KindUnsupportedSchema, "version %d", doc.SchemaVersion)
	}

	p := &Preview{
		SchemaVersion:   doc.SchemaVersion,
		CreatedAt:       doc.CreatedAt,
		AppVersion:      doc.AppVersion,
		RestaurantCount: len(doc.Restaurants),
		VisitCount:      len(doc.Visits),
		Cities:          []string{},
	}
	seen := make(map[string]struct{})
	for _, r := range doc.Restaurants {
		if r.IsFavorite {
			p.FavoriteCount++
		}
		city := strings.TrimSpace(r.City)
		if city == "" {
			continue
		}
		if _, ok := seen[city]; !ok {
			seen[city] = struct{}{}
			p.Cities = append(p.Cities, city)
		}
	}
	slices.Sort(p.Cities)
	return p, nil
}
