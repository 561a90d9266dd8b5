package visits

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/choosethere/internal/logging"
	"github.com/fyrsmithlabs/choosethere/internal/preferences"
	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
)

// ErrInvalidRating is returned for ratings outside 1..5.
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// RestaurantStore is the restaurant side of visit recording.
type RestaurantStore interface {
	restaurant.Source
	UpdateRatingSnapshot(ctx context.Context, id string, snap restaurant.RatingSnapshot) error
}

// VisitStore is the visit side of visit recording.
type VisitStore interface {
	restaurant.VisitSource
	ForRestaurant(ctx context.Context, restaurantID string) ([]restaurant.Visit, error)
}

// RecordRequest is a new rated visit.
type RecordRequest struct {
	RestaurantID string    `json:"restaurant_id"`
	Rating       int       `json:"rating"`
	Tags         []string  `json:"tags,omitempty"`
	Note         string    `json:"note,omitempty"`
	IsMatch      bool      `json:"is_match"`
	WouldReturn  bool      `json:"would_return"`
	VisitedAt    time.Time `json:"visited_at,omitempty"`
}

// LearningEvent carries what ApplyLearning needs about a stored visit.
type LearningEvent struct {
	VisitID      string   `json:"visit_id"`
	RestaurantID string   `json:"restaurant_id"`
	Rating       int      `json:"rating"`
	Tags         []string `json:"tags"`
	Category     string   `json:"category"`
}

// Dispatcher hands a learning event off for asynchronous application.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev LearningEvent) error
}

// Service records visits and applies learning.
type Service struct {
	restaurants RestaurantStore
	visits      VisitStore
	learner     *preferences.Learner
	dispatcher  Dispatcher
	now         func() time.Time
	logger      *logging.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithDispatcher sets how Submit hands off learning. Without one, Submit
// applies learning inline after recording.
func WithDispatcher(d Dispatcher) Option {
	return func(s *Service) {
		s.dispatcher = d
	}
}

// WithClock overrides the visit timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a visit service. learner may be nil to disable
// learning entirely.
func NewService(restaurants RestaurantStore, visits VisitStore, learner *preferences.Learner, opts ...Option) *Service {
	s := &Service{
		restaurants: restaurants,
		visits:      visits,
		learner:     learner,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordVisit validates and durably stores a visit, then refreshes the
// restaurant's rating snapshot. Only the store step can fail the call.
func (s *Service) RecordVisit(ctx context.Context, req RecordRequest) (restaurant.Visit, restaurant.Candidate, error) {
	if !restaurant.ValidRating(req.Rating) {
		return restaurant.Visit{}, restaurant.Candidate{}, fmt.Errorf("%w: got %d", ErrInvalidRating, req.Rating)
	}

	rest, err := s.restaurants.FetchOne(ctx, req.RestaurantID)
	if err != nil {
		return restaurant.Visit{}, restaurant.Candidate{}, err
	}
	if rest == nil {
		return restaurant.Visit{}, restaurant.Candidate{}, fmt.Errorf("restaurant %q: %w", req.RestaurantID, restaurant.ErrNotFound)
	}

	visitedAt := req.VisitedAt
	if visitedAt.IsZero() {
		visitedAt = s.now()
	}
	visit := restaurant.Visit{
		ID:           uuid.New(),
		RestaurantID: rest.ID,
		VisitedAt:    visitedAt,
		Rating:       req.Rating,
		Tags:         cleanTags(req.Tags),
		Note:         strings.TrimSpace(req.Note),
		IsMatch:      req.IsMatch,
		WouldReturn:  req.WouldReturn,
	}

	if err := s.visits.Append(ctx, visit); err != nil {
		return restaurant.Visit{}, restaurant.Candidate{}, err
	}

	VisitsRecordedTotal.WithLabelValues(strconv.Itoa(visit.Rating)).Inc()
	s.refreshSnapshot(ctx, rest.ID)
	s.logger.Info(ctx, "visit recorded",
		zap.String("visit_id", visit.ID.String()),
		zap.String("restaurant_id", rest.ID),
		zap.Int("rating", visit.Rating))
	return visit, *rest, nil
}

func (s *Service) refreshSnapshot(ctx context.Context, restaurantID string) {
	visits, err := s.visits.ForRestaurant(ctx, restaurantID)
	if err == nil {
		err = s.restaurants.UpdateRatingSnapshot(ctx, restaurantID, restaurant.AggregateRatings(visits))
	}
	if err != nil {
		SnapshotRefreshFailures.Inc()
		s.logger.Warn(ctx, "failed to refresh rating snapshot",
			zap.String("restaurant_id", restaurantID), zap.Error(err))
	}
}

// ApplyLearning feeds a stored visit's rating into the learned table,
// keyed by the restaurant's tags and category. Errors are logged and
// returned for the caller to ignore.
func (s *Service) ApplyLearning(ctx context.Context, ev LearningEvent) error {
	if s.learner == nil {
		return nil
	}
	result, err := s.learner.ApplyRating(ctx, ev.Rating, ev.Tags, ev.Category)
	if err != nil {
		LearningFailures.WithLabelValues("apply").Inc()
		s.logger.Warn(ctx, "learning update failed",
			zap.String("visit_id", ev.VisitID),
			zap.String("restaurant_id", ev.RestaurantID),
			zap.Error(err))
		return err
	}
	s.logger.Debug(ctx, "learning applied",
		zap.String("visit_id", ev.VisitID),
		zap.String("result", string(result)))
	return nil
}

// Submit records the visit and hands learning to the dispatcher. A
// dispatch failure is logged; the visit stays recorded.
func (s *Service) Submit(ctx context.Context, req RecordRequest) (restaurant.Visit, error) {
	visit, rest, err := s.RecordVisit(ctx, req)
	if err != nil {
		return restaurant.Visit{}, err
	}

	ev := NewLearningEvent(visit, rest)
	if s.dispatcher == nil {
		_ = s.ApplyLearning(ctx, ev)
		return visit, nil
	}
	if err := s.dispatcher.Dispatch(ctx, ev); err != nil {
		LearningFailures.WithLabelValues("dispatch").Inc()
		s.logger.Warn(ctx, "failed to dispatch learning", zap.String("visit_id", ev.VisitID), zap.Error(err))
	}
	return visit, nil
}

// NewLearningEvent builds the learning input for a visit to rest.
func NewLearningEvent(visit restaurant.Visit, rest restaurant.Candidate) LearningEvent {
	return LearningEvent{
		VisitID:      visit.ID.String(),
		RestaurantID: rest.ID,
		Rating:       visit.Rating,
		Tags:         append([]string(nil), rest.Tags...),
		Category:     rest.Category,
	}
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := restaurant.NormalizeKey(t)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
