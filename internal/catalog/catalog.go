// Package catalog seeds the restaurant store from a TOML file and can keep
// it in sync while the file changes.
//
// A catalog file lists restaurants as an array of tables:
//
//	[[restaurant]]
//	id = "izakaya-matsu"
//	name = "Izakaya Matsu"
//	category = "Bar"
//	city = "São Paulo"
//	tags = ["izakaya", "japanese", "drinks"]
//	price = "$$"
//	lat = -23.5648
//	lng = -46.6933
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fyrsmithlabs/choosethere/internal/logging"
	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
	"github.com/fyrsmithlabs/choosethere/internal/storage"
)

var (
	// ErrInvalidTOML wraps catalog parse failures.
	ErrInvalidTOML = errors.New("invalid catalog TOML")
	// ErrInvalidEntry rejects a catalog entry.
	ErrInvalidEntry = errors.New("invalid catalog entry")
)

// Entry is one catalog restaurant.
type Entry struct {
	ID           string               `toml:"id"`
	Name         string               `toml:"name"`
	Category     string               `toml:"category"`
	Address      string               `toml:"address"`
	City         string               `toml:"city"`
	State        string               `toml:"state"`
	Tags         []string             `toml:"tags"`
	Notes        string               `toml:"notes"`
	ExternalLink string               `toml:"external_link"`
	Price        restaurant.PriceTier `toml:"price"`
	Lat          float64              `toml:"lat"`
	Lng          float64              `toml:"lng"`
}

type file struct {
	Restaurants []Entry `toml:"restaurant"`
}

// LoadFile parses and validates a catalog file.
func LoadFile(path string) ([]Entry, error) {
	var f file
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTOML, path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: %s: unknown key %q", ErrInvalidTOML, path, undecoded[0].String())
	}
	if len(f.Restaurants) == 0 {
		return nil, fmt.Errorf("%w: %s: no restaurants", ErrInvalidEntry, path)
	}
	if err := Validate(f.Restaurants); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f.Restaurants, nil
}

// Validate checks ids, names and coordinates, and rejects duplicate ids.
func Validate(entries []Entry) error {
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		id := strings.TrimSpace(e.ID)
		switch {
		case id == "":
			return fmt.Errorf("%w: restaurant[%d]: empty id", ErrInvalidEntry, i)
		case strings.TrimSpace(e.Name) == "":
			return fmt.Errorf("%w: %q: empty name", ErrInvalidEntry, id)
		case !(restaurant.Location{Lat: e.Lat, Lng: e.Lng}).Valid():
			return fmt.Errorf("%w: %q: coordinate %v,%v out of range", ErrInvalidEntry, id, e.Lat, e.Lng)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidEntry, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func (e Entry) toRestaurant() restaurant.Restaurant {
	tags := make([]string, 0, len(e.Tags))
	for _, t := range e.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return restaurant.Restaurant{
		ID:           strings.TrimSpace(e.ID),
		Name:         strings.TrimSpace(e.Name),
		Category:     strings.TrimSpace(e.Category),
		Address:      e.Address,
		City:         e.City,
		State:        e.State,
		Tags:         tags,
		Notes:        e.Notes,
		ExternalLink: e.ExternalLink,
		Price:        e.Price,
		Lat:          e.Lat,
		Lng:          e.Lng,
	}
}

// SeedResult counts what a seed changed.
type SeedResult struct {
	Inserted int
	Updated  int
}

// Seeder upserts catalog entries into the restaurant store.
type Seeder struct {
	db          *gorm.DB
	restaurants storage.RestaurantRepo
	logger      *logging.Logger
}

// NewSeeder creates a seeder.
func NewSeeder(db *gorm.DB, restaurants storage.RestaurantRepo, logger *logging.Logger) *Seeder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Seeder{db: db, restaurants: restaurants, logger: logger}
}

// Seed upserts entries by id. Favorites and rating snapshots of existing
// restaurants are kept; restaurants missing from the catalog are left alone.
func (s *Seeder) Seed(ctx context.Context, entries []Entry) (SeedResult, error) {
	var res SeedResult
	err := storage.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		existing, err := s.restaurants.List(ctx, tx)
		if err != nil {
			return err
		}
		byID := make(map[string]restaurant.Restaurant, len(existing))
		for _, r := range existing {
			byID[r.ID] = r
		}

		records := make([]restaurant.Restaurant, len(entries))
		for i, e := range entries {
			rec := e.toRestaurant()
			if old, ok := byID[rec.ID]; ok {
				rec.IsFavorite = old.IsFavorite
				rec.RatingSnapshot = old.RatingSnapshot
			}
			records[i] = rec
		}

		res.Inserted, res.Updated, err = s.restaurants.Save(ctx, tx, records)
		return err
	})
	if err != nil {
		return SeedResult{}, fmt.Errorf("seed catalog: %w", err)
	}

	s.logger.Info(ctx, "catalog seeded",
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated))
	return res, nil
}

// SeedFile loads path and seeds it.
func (s *Seeder) SeedFile(ctx context.Context, path string) (SeedResult, error) {
	entries, err := LoadFile(path)
	if err != nil {
		return SeedResult{}, err
	}
	return s.Seed(ctx, entries)
}
