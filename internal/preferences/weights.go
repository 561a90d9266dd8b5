package preferences

import (
	"sort"
	"time"

	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
)

const (
	// CurrentVersion is the schema version written by this package.
	CurrentVersion = 1

	// MinWeight and MaxWeight bound every stored weight.
	MinWeight = -5.0
	MaxWeight = 5.0

	// DefaultWeight is returned for unknown keys.
	DefaultWeight = 0.0

	// MinSortingWeight keeps every candidate drawable.
	MinSortingWeight = 0.1
)

// LearnedPreferences is the persisted learned-weight table.
type LearnedPreferences struct {
	Version         int                `json:"version"`
	TagWeights      map[string]float64 `json:"tag_weights"`
	CategoryWeights map[string]float64 `json:"category_weights"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// Empty returns a table with no learned weights.
func Empty() LearnedPreferences {
	return LearnedPreferences{
		Version:         CurrentVersion,
		TagWeights:      map[string]float64{},
		CategoryWeights: map[string]float64{},
		UpdatedAt:       time.Now().UTC(),
	}
}

// WeightForTag returns the learned weight for tag, or DefaultWeight.
func (p LearnedPreferences) WeightForTag(tag string) float64 {
	if w, ok := p.TagWeights[restaurant.NormalizeKey(tag)]; ok {
		return w
	}
	return DefaultWeight
}

// WeightForCategory returns the learned weight for category, or DefaultWeight.
func (p LearnedPreferences) WeightForCategory(category string) float64 {
	if w, ok := p.CategoryWeights[restaurant.NormalizeKey(category)]; ok {
		return w
	}
	return DefaultWeight
}

// MatchScore sums the tag weights and the category weight. Duplicate tags
// (after normalization) count once.
func (p LearnedPreferences) MatchScore(tags []string, category string) float64 {
	score := 0.0
	for tag := range restaurant.KeySet(tags) {
		score += p.WeightForTag(tag)
	}
	return score + p.WeightForCategory(category)
}

// SortingWeight converts MatchScore into a strictly positive sampling mass:
// max(MinSortingWeight, 1 + score).
func (p LearnedPreferences) SortingWeight(tags []string, category string) float64 {
	return max(MinSortingWeight, 1.0+p.MatchScore(tags, category))
}

// HasLearned reports whether any weight has been recorded.
func (p LearnedPreferences) HasLearned() bool {
	return len(p.TagWeights) > 0 || len(p.CategoryWeights) > 0
}

// Count returns the number of stored weights.
func (p LearnedPreferences) Count() int {
	return len(p.TagWeights) + len(p.CategoryWeights)
}

// Clone returns a deep copy.
func (p LearnedPreferences) Clone() LearnedPreferences {
	out := LearnedPreferences{
		Version:         p.Version,
		TagWeights:      make(map[string]float64, len(p.TagWeights)),
		CategoryWeights: make(map[string]float64, len(p.CategoryWeights)),
		UpdatedAt:       p.UpdatedAt,
	}
	for k, v := range p.TagWeights {
		out.TagWeights[k] = v
	}
	for k, v := range p.CategoryWeights {
		out.CategoryWeights[k] = v
	}
	return out
}

// applyDelta mutates p in place. Callers hold the Store lock.
func (p *LearnedPreferences) applyDelta(tags []string, category string, delta float64, now time.Time) {
	if p.TagWeights == nil {
		p.TagWeights = map[string]float64{}
	}
	if p.CategoryWeights == nil {
		p.CategoryWeights = map[string]float64{}
	}
	for tag := range restaurant.KeySet(tags) {
		p.TagWeights[tag] = ClampWeight(p.TagWeights[tag] + delta)
	}
	if key := restaurant.NormalizeKey(category); key != "" {
		p.CategoryWeights[key] = ClampWeight(p.CategoryWeights[key] + delta)
	}
	p.UpdatedAt = now
}

// Entry is one row of a learned table, for display.
type Entry struct {
	Kind   string  `json:"kind"`
	Key    string  `json:"key"`
	Weight float64 `json:"weight"`
}

// Entries flattens the table sorted by weight (descending), then key.
func (p LearnedPreferences) Entries() []Entry {
	entries := make([]Entry, 0, p.Count())
	for k, w := range p.TagWeights {
		entries = append(entries, Entry{Kind: "tag", Key: k, Weight: w})
	}
	for k, w := range p.CategoryWeights {
		entries = append(entries, Entry{Kind: "category", Key: k, Weight: w})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Weight != entries[j].Weight {
			return entries[i].Weight > entries[j].Weight
		}
		if entries[i].Kind != entries[j].Kind {
			return entries[i].Kind < entries[j].Kind
		}
		return entries[i].Key < entries[j].Key
	})
	return entries
}

// RatingToDelta maps a 1..5 rating to a weight delta.
// Ratings above 5 clamp to +1.0, below 1 to -1.0.
func RatingToDelta(rating int) float64 {
	switch {
	case rating >= 5:
		return 1.0
	case rating == 4:
		return 0.5
	case rating == 3:
		return 0.0
	case rating == 2:
		return -0.5
	default:
		return -1.0
	}
}

// ClampWeight bounds w to [MinWeight, MaxWeight].
func ClampWeight(w float64) float64 {
	return min(MaxWeight, max(MinWeight, w))
}
