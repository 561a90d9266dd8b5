// Package history derives recently visited restaurant IDs from stored
// visits.
package history

import (
	"context"

	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
)

// Recent implements restaurant.RecentHistorySource over a VisitSource.
type Recent struct {
	visits restaurant.VisitSource
}

// NewRecent creates a history source reading from visits.
func NewRecent(visits restaurant.VisitSource) *Recent {
	return &Recent{visits: visits}
}

// RecentIDs returns at most limit distinct restaurant IDs, most recently
// visited first. A limit <= 0 returns nothing without reading storage.
func (r *Recent) RecentIDs(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	visits, err := r.visits.FetchAll(ctx)
	if err != nil {
		return nil, restaurant.StorageError("recent history", err)
	}
	return UniqueRecent(visits, limit), nil
}

// UniqueRecent picks distinct restaurant IDs from visits, which must be
// ordered most recent first.
func UniqueRecent(visits []restaurant.Visit, limit int) []string {
	seen := make(map[string]struct{}, limit)
	out := make([]string, 0, limit)
	for _, v := range visits {
		if len(out) == limit {
			break
		}
		if v.RestaurantID == "" {
			continue
		}
		if _, dup := seen[v.RestaurantID]; dup {
			continue
		}
		seen[v.RestaurantID] = struct{}{}
		out = append(out, v.RestaurantID)
	}
	return out
}
