package preferences

import (
	"sync"
	"time"
)

// Store owns the live learned table. Reads return values computed under a
// read lock; ApplyRatingDelta is the only mutator besides Replace.
//
// A draw takes a Snapshot and scores against it, so a learning update that
// lands mid-draw is simply not seen by that draw.
type Store struct {
	mu    sync.RWMutex
	prefs LearnedPreferences
	now   func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the timestamp source used for UpdatedAt.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a store seeded with prefs.
func NewStore(prefs LearnedPreferences, opts ...StoreOption) *Store {
	s := &Store{
		prefs: prefs.Clone(),
		now:   func() time.Time { return time.Now().UTC() },
	}
	if s.prefs.Version == 0 {
		s.prefs.Version = CurrentVersion
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WeightForTag is a case-insensitive lookup; unknown tags are neutral.
func (s *Store) WeightForTag(tag string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.WeightForTag(tag)
}

// WeightForCategory is a case-insensitive lookup; unknown categories are neutral.
func (s *Store) WeightForCategory(category string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.WeightForCategory(category)
}

// MatchScore returns the summed learned weight for tags and category.
func (s *Store) MatchScore(tags []string, category string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.MatchScore(tags, category)
}

// SortingWeight returns max(0.1, 1 + MatchScore).
func (s *Store) SortingWeight(tags []string, category string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.SortingWeight(tags, category)
}

// ApplyRatingDelta adds RatingToDelta(rating) to every distinct tag and once
// to category, clamping each to [MinWeight, MaxWeight], and returns the
// resulting table. The update is applied atomically under the write lock.
func (s *Store) ApplyRatingDelta(tags []string, category string, rating int) LearnedPreferences {
	delta := RatingToDelta(rating)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.applyDelta(tags, category, delta, s.now())
	return s.prefs.Clone()
}

// Snapshot returns a deep copy of the current table.
func (s *Store) Snapshot() LearnedPreferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.Clone()
}

// Replace swaps in a new table (load at session start, reset).
func (s *Store) Replace(prefs LearnedPreferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = prefs.Clone()
}
