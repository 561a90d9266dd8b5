package storage

import (
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
)

type restaurantRow struct {
	ID                  string `gorm:"primaryKey"`
	Name                string `gorm:"not null"`
	Category            string `gorm:"index"`
	Address             string
	City                string
	State               string
	Tags                []string `gorm:"serializer:json"`
	Notes               string
	ExternalLink        string
	Lat                 float64
	Lng                 float64
	Price               int
	IsFavorite          bool
	RatingAverage       float64
	RatingCount         int
	RatingLastVisitedAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (restaurantRow) TableName() string { return "restaurants" }

func restaurantToRow(r restaurant.Restaurant) restaurantRow {
	return restaurantRow{
		ID:                  r.ID,
		Name:                r.Name,
		Category:            r.Category,
		Address:             r.Address,
		City:                r.City,
		State:               r.State,
		Tags:                r.Tags,
		Notes:               r.Notes,
		ExternalLink:        r.ExternalLink,
		Lat:                 r.Lat,
		Lng:                 r.Lng,
		Price:               int(r.Price),
		IsFavorite:          r.IsFavorite,
		RatingAverage:       r.RatingAverage,
		RatingCount:         r.RatingCount,
		RatingLastVisitedAt: r.RatingLastVisitedAt,
	}
}

func (row restaurantRow) toRestaurant() restaurant.Restaurant {
	tags := row.Tags
	if tags == nil {
		tags = []string{}
	}
	return restaurant.Restaurant{
		ID:           row.ID,
		Name:         row.Name,
		Category:     row.Category,
		Address:      row.Address,
		City:         row.City,
		State:        row.State,
		Tags:         tags,
		Notes:        row.Notes,
		ExternalLink: row.ExternalLink,
		Lat:          row.Lat,
		Lng:          row.Lng,
		Price:        restaurant.PriceTier(row.Price),
		IsFavorite:   row.IsFavorite,
		RatingSnapshot: restaurant.RatingSnapshot{
			RatingAverage:       row.RatingAverage,
			RatingCount:         row.RatingCount,
			RatingLastVisitedAt: row.RatingLastVisitedAt,
		},
	}
}

type visitRow struct {
	ID           string    `gorm:"primaryKey"`
	RestaurantID string    `gorm:"index;not null"`
	VisitedAt    time.Time `gorm:"index"`
	Rating       int
	Tags         []string `gorm:"serializer:json"`
	Note         string
	IsMatch      bool
	WouldReturn  bool
	CreatedAt    time.Time
}

func (visitRow) TableName() string { return "visits" }

func visitToRow(v restaurant.Visit) visitRow {
	return visitRow{
		ID:           v.ID.String(),
		RestaurantID: v.RestaurantID,
		VisitedAt:    v.VisitedAt.UTC(),
		Rating:       v.Rating,
		Tags:         v.Tags,
		Note:         v.Note,
		IsMatch:      v.IsMatch,
		WouldReturn:  v.WouldReturn,
	}
}

func (row visitRow) toVisit() (restaurant.Visit, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return restaurant.Visit{}, err
	}
	return restaurant.Visit{
		ID:           id,
		RestaurantID: row.RestaurantID,
		VisitedAt:    row.VisitedAt,
		Rating:       row.Rating,
		Tags:         row.Tags,
		Note:         row.Note,
		IsMatch:      row.IsMatch,
		WouldReturn:  row.WouldReturn,
	}, nil
}
