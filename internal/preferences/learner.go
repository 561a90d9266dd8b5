package preferences

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/choosethere/internal/logging"
	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
)

// Result describes what a learning attempt did.
type Result string

const (
	ResultApplied  Result = "applied"
	ResultDisabled Result = "disabled"
	ResultNeutral  Result = "neutral"
	ResultError    Result = "error"
)

// Learner applies visit ratings to the Store and persists the result.
// Mutations are serialized so the saved table is never older than the one
// in memory.
type Learner struct {
	mu      sync.Mutex
	store   *Store
	persist Persistence
	enabled bool
	logger  *logging.Logger
}

// LearnerOption configures a Learner.
type LearnerOption func(*Learner)

// WithLearningEnabled toggles learning. Disabled learners leave the table
// untouched.
func WithLearningEnabled(enabled bool) LearnerOption {
	return func(l *Learner) {
		l.enabled = enabled
	}
}

// WithLogger sets the learner's logger.
func WithLogger(logger *logging.Logger) LearnerOption {
	return func(l *Learner) {
		l.logger = logger
	}
}

// NewLearner creates a learner. Learning is enabled by default.
func NewLearner(store *Store, persist Persistence, opts ...LearnerOption) *Learner {
	l := &Learner{
		store:   store,
		persist: persist,
		enabled: true,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Enabled reports whether ratings are applied.
func (l *Learner) Enabled() bool {
	return l.enabled
}

// Store returns the live store.
func (l *Learner) Store() *Store {
	return l.store
}

// Load replaces the store's table with the persisted one (or Empty()).
func (l *Learner) Load(ctx context.Context) LearnedPreferences {
	l.mu.Lock()
	defer l.mu.Unlock()

	prefs := LoadOrEmpty(ctx, l.persist, l.logger)
	l.store.Replace(prefs)
	observeTable(prefs)
	return prefs
}

// ApplyRating feeds one rating into the table and saves it. A failed save
// leaves the in-memory table updated and returns an ErrStorage error; the
// next successful save persists it.
func (l *Learner) ApplyRating(ctx context.Context, rating int, tags []string, category string) (Result, error) {
	if !l.enabled {
		LearningUpdatesTotal.WithLabelValues(string(ResultDisabled)).Inc()
		return ResultDisabled, nil
	}
	if RatingToDelta(rating) == 0 {
		LearningUpdatesTotal.WithLabelValues(string(ResultNeutral)).Inc()
		return ResultNeutral, nil
	}

	l.mu.Lock()
	updated := l.store.ApplyRatingDelta(tags, category, rating)
	observeTable(updated)
	err := l.persist.Save(ctx, updated)
	l.mu.Unlock()

	if err != nil {
		LearningUpdatesTotal.WithLabelValues(string(ResultError)).Inc()
		return ResultError, restaurant.StorageError("save preferences", err)
	}

	LearningUpdatesTotal.WithLabelValues(string(ResultApplied)).Inc()
	l.logger.Debug(ctx, "learned from rating",
		zap.Int("rating", rating),
		zap.Float64("delta", RatingToDelta(rating)),
		zap.Strings("tags", tags),
		zap.String("category", category))
	return ResultApplied, nil
}

// Reset clears the learned table in memory and in storage.
func (l *Learner) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.store.Replace(Empty())
	observeTable(Empty())
	if err := l.persist.Reset(ctx); err != nil {
		return restaurant.StorageError("reset preferences", err)
	}
	l.logger.Info(ctx, "learned preferences reset")
	return nil
}
