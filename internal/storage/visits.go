package storage

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fyrsmithlabs/choosethere/internal/logging"
	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
)

// VisitRepo stores rated visits.
type VisitRepo interface {
	restaurant.VisitSource

	// ForRestaurant returns a restaurant's visits, most recent first.
	ForRestaurant(ctx context.Context, restaurantID string) ([]restaurant.Visit, error)
	List(ctx context.Context, tx *gorm.DB) ([]restaurant.Visit, error)
	Save(ctx context.Context, tx *gorm.DB, visits []restaurant.Visit) (inserted, updated int, err error)
	DeleteAll(ctx context.Context, tx *gorm.DB) error
}

type visitRepo struct {
	db  *gorm.DB
	log *logging.Logger
}

// NewVisitRepo creates a gorm-backed visit repository.
func NewVisitRepo(db *gorm.DB, baseLog *logging.Logger) VisitRepo {
	if baseLog == nil {
		baseLog = logging.NewNop()
	}
	return &visitRepo{db: db, log: baseLog.Named("visits")}
}

func (r *visitRepo) Append(ctx context.Context, v restaurant.Visit) error {
	row := visitToRow(v)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return restaurant.StorageError("append visit", err)
	}
	return nil
}

func (r *visitRepo) FetchAll(ctx context.Context) ([]restaurant.Visit, error) {
	return r.List(ctx, nil)
}

func (r *visitRepo) List(ctx context.Context, tx *gorm.DB) ([]restaurant.Visit, error) {
	return r.find(ctx, conn(r.db, tx).WithContext(ctx))
}

func (r *visitRepo) ForRestaurant(ctx context.Context, restaurantID string) ([]restaurant.Visit, error) {
	return r.find(ctx, r.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID))
}

func (r *visitRepo) find(ctx context.Context, q *gorm.DB) ([]restaurant.Visit, error) {
	var rows []visitRow
	if err := q.Order("visited_at DESC").Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, restaurant.StorageError("list visits", err)
	}
	out := make([]restaurant.Visit, 0, len(rows))
	for _, row := range rows {
		v, err := row.toVisit()
		if err != nil {
			r.log.Warn(ctx, "skipping visit with malformed id")
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *visitRepo) Save(ctx context.Context, tx *gorm.DB, visits []restaurant.Visit) (int, int, error) {
	if len(visits) == 0 {
		return 0, 0, nil
	}
	db := conn(r.db, tx).WithContext(ctx)

	ids := make([]string, len(visits))
	rows := make([]visitRow, len(visits))
	for i, v := range visits {
		rows[i] = visitToRow(v)
		ids[i] = rows[i].ID
	}

	var existing []string
	if err := db.Model(&visitRow{}).Where("id IN ?", ids).Pluck("id", &existing).Error; err != nil {
		return 0, 0, restaurant.StorageError("check visits", err)
	}
	if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error; err != nil {
		return 0, 0, restaurant.StorageError("save visits", err)
	}
	return len(rows) - len(existing), len(existing), nil
}

func (r *visitRepo) DeleteAll(ctx context.Context, tx *gorm.DB) error {
	if err := conn(r.db, tx).WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&visitRow{}).Error; err != nil {
		return restaurant.StorageError("delete visits", err)
	}
	return nil
}
