package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fyrsmithlabs/choosethere/internal/logging"
	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
)

// RestaurantRepo stores restaurants.
type RestaurantRepo interface {
	restaurant.Source

	List(ctx context.Context, tx *gorm.DB) ([]restaurant.Restaurant, error)
	Get(ctx context.Context, tx *gorm.DB, id string) (*restaurant.Restaurant, error)
	// Save upserts by ID and reports how many records were new.
	Save(ctx context.Context, tx *gorm.DB, restaurants []restaurant.Restaurant) (inserted, updated int, err error)
	SetFavorite(ctx context.Context, id string, favorite bool) error
	UpdateRatingSnapshot(ctx context.Context, id string, snap restaurant.RatingSnapshot) error
	DeleteAll(ctx context.Context, tx *gorm.DB) error
}

type restaurantRepo struct {
	db  *gorm.DB
	log *logging.Logger
}

// NewRestaurantRepo creates a gorm-backed restaurant repository.
func NewRestaurantRepo(db *gorm.DB, baseLog *logging.Logger) RestaurantRepo {
	if baseLog == nil {
		baseLog = logging.NewNop()
	}
	return &restaurantRepo{db: db, log: baseLog.Named("restaurants")}
}

func (r *restaurantRepo) FetchAll(ctx context.Context) ([]restaurant.Candidate, error) {
	all, err := r.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]restaurant.Candidate, len(all))
	for i, rec := range all {
		out[i] = rec.Candidate()
	}
	return out, nil
}

func (r *restaurantRepo) FetchOne(ctx context.Context, id string) (*restaurant.Candidate, error) {
	rec, err := r.Get(ctx, nil, id)
	if errors.Is(err, restaurant.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c := rec.Candidate()
	return &c, nil
}

func (r *restaurantRepo) List(ctx context.Context, tx *gorm.DB) ([]restaurant.Restaurant, error) {
	var rows []restaurantRow
	if err := conn(r.db, tx).WithContext(ctx).
		Order("name ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, restaurant.StorageError("list restaurants", err)
	}
	out := make([]restaurant.Restaurant, len(rows))
	for i, row := range rows {
		out[i] = row.toRestaurant()
	}
	return out, nil
}

func (r *restaurantRepo) Get(ctx context.Context, tx *gorm.DB, id string) (*restaurant.Restaurant, error) {
	var row restaurantRow
	err := conn(r.db, tx).WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, restaurant.ErrNotFound
	}
	if err != nil {
		return nil, restaurant.StorageError("get restaurant", err)
	}
	rec := row.toRestaurant()
	return &rec, nil
}

func (r *restaurantRepo) Save(ctx context.Context, tx *gorm.DB, restaurants []restaurant.Restaurant) (int, int, error) {
	if len(restaurants) == 0 {
		return 0, 0, nil
	}
	db := conn(r.db, tx).WithContext(ctx)

	ids := make([]string, len(restaurants))
	rows := make([]restaurantRow, len(restaurants))
	for i, rec := range restaurants {
		ids[i] = rec.ID
		rows[i] = restaurantToRow(rec)
	}

	var existing []string
	if err := db.Model(&restaurantRow{}).Where("id IN ?", ids).Pluck("id", &existing).Error; err != nil {
		return 0, 0, restaurant.StorageError("check restaurants", err)
	}

	if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error; err != nil {
		return 0, 0, restaurant.StorageError("save restaurants", err)
	}

	updated := len(existing)
	return len(rows) - updated, updated, nil
}

func (r *restaurantRepo) SetFavorite(ctx context.Context, id string, favorite bool) error {
	res := r.db.WithContext(ctx).Model(&restaurantRow{}).Where("id = ?", id).Update("is_favorite", favorite)
	if res.Error != nil {
		return restaurant.StorageError("set favorite", res.Error)
	}
	if res.RowsAffected == 0 {
		return restaurant.ErrNotFound
	}
	return nil
}

func (r *restaurantRepo) UpdateRatingSnapshot(ctx context.Context, id string, snap restaurant.RatingSnapshot) error {
	res := r.db.WithContext(ctx).Model(&restaurantRow{}).Where("id = ?", id).Updates(map[string]interface{}{
		"rating_average":         snap.RatingAverage,
		"rating_count":           snap.RatingCount,
		"rating_last_visited_at": snap.RatingLastVisitedAt,
	})
	if res.Error != nil {
		return restaurant.StorageError("update rating snapshot", res.Error)
	}
	if res.RowsAffected == 0 {
		return restaurant.ErrNotFound
	}
	return nil
}

func (r *restaurantRepo) DeleteAll(ctx context.Context, tx *gorm.DB) error {
	if err := conn(r.db, tx).WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&restaurantRow{}).Error; err != nil {
		return restaurant.StorageError("delete restaurants", err)
	}
	return nil
}
