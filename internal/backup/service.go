package backup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fyrsmithlabs/choosethere/internal/logging"
	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
	"github.com/fyrsmithlabs/choosethere/internal/storage"
)

// Mode selects how an import treats existing data.
type Mode string

const (
	// ModeReplaceAll deletes every stored restaurant and visit first.
	ModeReplaceAll Mode = "replaceAll"
	// ModeMergeByID inserts new records and overwrites existing ones by id.
	ModeMergeByID Mode = "mergeByID"
)

// ParseMode parses an import mode; empty means ModeMergeByID.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeMergeByID:
		return ModeMergeByID, nil
	case ModeReplaceAll:
		return ModeReplaceAll, nil
	}
	return "", fmt.Errorf("invalid import mode %q (want %s or %s)", s, ModeReplaceAll, ModeMergeByID)
}

// Result counts what an import changed.
type Result struct {
	ImportedRestaurants int `json:"imported_restaurants"`
	UpdatedRestaurants  int `json:"updated_restaurants"`
	ImportedVisits      int `json:"imported_visits"`
	UpdatedVisits       int `json:"updated_visits"`
}

// Service exports and imports backups against storage.
type Service struct {
	db          *gorm.DB
	restaurants storage.RestaurantRepo
	visits      storage.VisitRepo
	codec       *Codec
	appVersion  string
	now         func() time.Time
	logger      *logging.Logger
}

// NewService creates a backup service.
func NewService(db *gorm.DB, restaurants storage.RestaurantRepo, visits storage.VisitRepo, appVersion string, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		db:          db,
		restaurants: restaurants,
		visits:      visits,
		codec:       NewCodec(),
		appVersion:  appVersion,
		now:         time.Now,
		logger:      logger,
	}
}

// Codec returns the service codec.
func (s *Service) Codec() *Codec {
	return s.codec
}

// Export snapshots every restaurant and visit.
func (s *Service) Export(ctx context.Context) (*Document, error) {
	var doc *Document
	err := storage.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		restaurants, err := s.restaurants.List(ctx, tx)
		if err != nil {
			return err
		}
		visits, err := s.visits.List(ctx, tx)
		if err != nil {
			return err
		}
		doc = NewDocument(restaurants, visits, s.appVersion, s.now())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("export backup: %w", err)
	}
	s.logger.Info(ctx, "backup exported",
		zap.Int("restaurants", len(doc.Restaurants)),
		zap.Int("visits", len(doc.Visits)))
	return doc, nil
}

// ExportJSON exports and encodes a backup.
func (s *Service) ExportJSON(ctx context.Context) ([]byte, error) {
	doc, err := s.Export(ctx)
	if err != nil {
		return nil, err
	}
	return s.codec.Encode(doc)
}

// Import validates doc strictly and applies it in one transaction. On any
// error nothing is changed.
func (s *Service) Import(ctx context.Context, doc *Document, mode Mode) (Result, error) {
	if err := s.codec.Validate(doc, true); err != nil {
		return Result{}, err
	}

	var res Result
	err := storage.Transaction(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		switch mode {
		case ModeReplaceAll:
			res, err = s.replaceAll(ctx, tx, doc)
		case ModeMergeByID:
			res, err = s.mergeByID(ctx, tx, doc)
		default:
			err = fmt.Errorf("invalid import mode %q", mode)
		}
		return err
	})
	if err != nil {
		return Result{}, fmt.Errorf("import backup: %w", err)
	}

	s.logger.Info(ctx, "backup imported",
		zap.String("mode", string(mode)),
		zap.Int("imported_restaurants", res.ImportedRestaurants),
		zap.Int("updated_restaurants", res.UpdatedRestaurants),
		zap.Int("imported_visits", res.ImportedVisits),
		zap.Int("updated_visits", res.UpdatedVisits))
	return res, nil
}

// ImportJSON decodes data and imports it.
func (s *Service) ImportJSON(ctx context.Context, data []byte, mode Mode) (Result, error) {
	doc, err := s.codec.Decode(data)
	if err != nil {
		return Result{}, err
	}
	return s.Import(ctx, doc, mode)
}

func (s *Service) replaceAll(ctx context.Context, tx *gorm.DB, doc *Document) (Result, error) {
	if err := s.visits.DeleteAll(ctx, tx); err != nil {
		return Result{}, err
	}
	if err := s.restaurants.DeleteAll(ctx, tx); err != nil {
		return Result{}, err
	}

	restaurants := make([]restaurant.Restaurant, len(doc.Restaurants))
	for i, r := range doc.Restaurants {
		restaurants[i] = r.toRestaurant(nil)
	}
	inserted, _, err := s.restaurants.Save(ctx, tx, restaurants)
	if err != nil {
		return Result{}, err
	}

	visits, err := s.saveVisits(ctx, tx, doc)
	if err != nil {
		return Result{}, err
	}
	return Result{ImportedRestaurants: inserted, ImportedVisits: visits.ImportedVisits}, nil
}

func (s *Service) mergeByID(ctx context.Context, tx *gorm.DB, doc *Document) (Result, error) {
	restaurants := make([]restaurant.Restaurant, len(doc.Restaurants))
	for i, r := range doc.Restaurants {
		var existing *restaurant.Restaurant
		if r.RatingAverage == nil || r.RatingCount == nil || r.RatingLastVisitedAt == nil {
			found, err := s.restaurants.Get(ctx, tx, r.ID)
			if err != nil && !errors.Is(err, restaurant.ErrNotFound) {
				return Result{}, err
			}
			existing = found
		}
		restaurants[i] = r.toRestaurant(existing)
	}

	inserted, updated, err := s.restaurants.Save(ctx, tx, restaurants)
	if err != nil {
		return Result{}, err
	}

	res, err := s.saveVisits(ctx, tx, doc)
	if err != nil {
		return Result{}, err
	}
	res.ImportedRestaurants, res.UpdatedRestaurants = inserted, updated
	return res, nil
}

func (s *Service) saveVisits(ctx context.Context, tx *gorm.DB, doc *Document) (Result, error) {
	visits := make([]restaurant.Visit, len(doc.Visits))
	for i, v := range doc.Visits {
		visits[i] = v.toVisit()
	}
	inserted, updated, err := s.visits.Save(ctx, tx, visits)
	if err != nil {
		return Result{}, err
	}
	return Result{ImportedVisits: inserted, UpdatedVisits: updated}, nil
}
