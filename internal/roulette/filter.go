package roulette

import (
	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
)

// Filter returns the candidates that satisfy every rule of pc:
//   - share at least one desired tag (when any are given)
//   - share no avoid tag
//   - match the price tier exactly (when one is given)
//   - have a rating >= restaurant.HighRatingThreshold under RatingOnly
//
// Order is preserved. An empty result is a normal outcome.
func Filter(candidates []restaurant.Candidate, pc restaurant.PreferenceContext) []restaurant.Candidate {
	desired := restaurant.KeySet(pc.DesiredTags)
	avoid := restaurant.KeySet(pc.AvoidTags)

	out := make([]restaurant.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if matches(c, pc, desired, avoid) {
			out = append(out, c)
		}
	}
	return out
}

func matches(c restaurant.Candidate, pc restaurant.PreferenceContext, desired, avoid map[string]struct{}) bool {
	if len(desired) > 0 && !restaurant.SharesAny(c.Tags, desired) {
		return false
	}
	if len(avoid) > 0 && restaurant.SharesAny(c.Tags, avoid) {
		return false
	}
	if pc.Price != restaurant.PriceUnknown && c.Price != pc.Price {
		return false
	}
	if pc.RatingPriority == restaurant.RatingOnly {
		r, ok := c.RatingValue()
		if !ok || r < restaurant.HighRatingThreshold {
			return false
		}
	}
	return true
}
