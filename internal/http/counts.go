package http

import (
	"context"

	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
)

// CountRecords counts stored restaurants and visits.
//
// Each count is -1 when its source is nil or cannot be read, so a status
// probe never fails on storage trouble.
func CountRecords(ctx context.Context, restaurants restaurant.Source, visits restaurant.VisitSource) (restaurantCount int, visitCount int) {
	restaurantCount, visitCount = -1, -1

	if restaurants != nil {
		if all, err := restaurants.FetchAll(ctx); err == nil {
			restaurantCount = len(all)
		}
	}
	if visits != nil {
		if all, err := visits.FetchAll(ctx); err == nil {
			visitCount = len(all)
		}
	}
	return restaurantCount, visitCount
}
