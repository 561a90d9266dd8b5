package roulette

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/choosethere/internal/logging"
	"github.com/fyrsmithlabs/choosethere/internal/preferences"
	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
)

const instrumentationName = "github.com/fyrsmithlabs/choosethere/internal/roulette"

// DefaultAvoidRepeatsLimit is how many recent visits are excluded by default.
const DefaultAvoidRepeatsLimit = 10

// PreferenceSource returns the learned table current at call time.
type PreferenceSource interface {
	Snapshot() preferences.LearnedPreferences
}

// Service loads draw inputs from storage and runs draws against them.
type Service struct {
	source      restaurant.Source
	history     restaurant.RecentHistorySource
	prefs       PreferenceSource
	learning    bool
	avoidRepeat int
	rng         Random
	logger      *logging.Logger
	tracer      trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithRandom sets the randomness source. It is wrapped for concurrent use.
func WithRandom(rng Random) Option {
	return func(s *Service) {
		s.rng = NewLockedRandom(rng)
	}
}

// WithAvoidRepeatsLimit sets how many recent visits are excluded; 0
// disables recency exclusion.
func WithAvoidRepeatsLimit(limit int) Option {
	return func(s *Service) {
		s.avoidRepeat = max(0, limit)
	}
}

// WithLearningEnabled controls whether learned weights influence draws.
func WithLearningEnabled(enabled bool) Option {
	return func(s *Service) {
		s.learning = enabled
	}
}

// NewService creates a draw service. history and prefs may be nil.
func NewService(source restaurant.Source, history restaurant.RecentHistorySource, prefs PreferenceSource, opts ...Option) *Service {
	s := &Service{
		source:      source,
		history:     history,
		prefs:       prefs,
		learning:    true,
		avoidRepeat: DefaultAvoidRepeatsLimit,
		rng:         NewLockedRandom(NewSeededRandom(uint64(time.Now().UnixNano()))),
		logger:      logging.NewNop(),
		tracer:      otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Random returns the service's randomness source.
func (s *Service) Random() Random {
	return s.rng
}

// Load fetches the candidate set and the draw snapshot.
//
// A restaurant fetch failure returns no candidates together with the
// ErrStorage error so the caller can surface it. History failures degrade
// to an empty history; learned preferences are read from memory and cannot
// fail.
func (s *Service) Load(ctx context.Context) ([]restaurant.Candidate, Snapshot, error) {
	candidates, err := s.source.FetchAll(ctx)
	if err != nil {
		DegradedInputsTotal.WithLabelValues("restaurants").Inc()
		s.logger.Warn(ctx, "restaurants unavailable", zap.Error(err))
		return nil, Snapshot{Preferences: s.snapshotPreferences()}, restaurant.StorageError("fetch restaurants", err)
	}
	return candidates, s.Snapshot(ctx), nil
}

// Snapshot returns the learned preferences and recent history a draw
// would use right now, degrading failures to neutral values.
func (s *Service) Snapshot(ctx context.Context) Snapshot {
	return Snapshot{
		Preferences:   s.snapshotPreferences(),
		RecentHistory: s.recentHistory(ctx),
	}
}

func (s *Service) snapshotPreferences() Scorer {
	if !s.learning || s.prefs == nil {
		return preferences.Empty()
	}
	return s.prefs.Snapshot()
}

func (s *Service) recentHistory(ctx context.Context) []string {
	if s.history == nil || s.avoidRepeat == 0 {
		return nil
	}
	ids, err := s.history.RecentIDs(ctx, s.avoidRepeat)
	if err != nil {
		DegradedInputsTotal.WithLabelValues("history").Inc()
		s.logger.Warn(ctx, "recent history unavailable, drawing without recency exclusion", zap.Error(err))
		return nil
	}
	return ids
}

// Draw performs the session's first (or a repeated, uncounted) draw.
func (s *Service) Draw(ctx context.Context, session *Session) (Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "roulette.draw")
	defer span.End()

	candidates, snap, err := s.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		outcome := Outcome{Kind: OutcomeNoCandidates}
		observeOutcome("draw", outcome)
		return outcome, err
	}

	outcome := session.Draw(candidates, snap, s.rng)
	s.record(ctx, span, "draw", session, outcome)
	return outcome, nil
}

// Reroll counts a re-roll against session and draws again. Past the cap it
// returns ErrRerollExhausted without touching storage.
func (s *Service) Reroll(ctx context.Context, session *Session) (Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "roulette.reroll")
	defer span.End()

	if !session.CanReroll() {
		RerollsRejectedTotal.Inc()
		span.SetAttributes(attribute.Bool("exhausted", true))
		return Outcome{}, ErrRerollExhausted
	}

	candidates, snap, err := s.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Outcome{Kind: OutcomeNoCandidates}, err
	}

	outcome, err := session.Reroll(candidates, snap, s.rng)
	if err != nil {
		return outcome, err
	}
	s.record(ctx, span, "reroll", session, outcome)
	return outcome, nil
}

func (s *Service) record(ctx context.Context, span trace.Span, kind string, session *Session, outcome Outcome) {
	observeOutcome(kind, outcome)
	span.SetAttributes(
		attribute.String("outcome", outcome.Kind.String()),
		attribute.String("relaxation", outcome.Relaxation.String()),
		attribute.Int("matched", outcome.Matched),
		attribute.Int("eligible", outcome.Eligible),
		attribute.Int("rerolls", session.State().Rerolls),
	)

	if !outcome.Picked() {
		s.logger.Info(ctx, "no candidates for draw",
			zap.String("kind", kind),
			zap.Strings("desired_tags", session.Context().DesiredTags),
			zap.Stringer("price", session.Context().Price),
			zap.Stringer("rating_priority", session.Context().RatingPriority))
		return
	}

	s.logger.Info(ctx, "draw picked",
		zap.String("kind", kind),
		zap.String("restaurant_id", outcome.Candidate.ID),
		zap.Float64("weight", outcome.Weight),
		zap.Stringer("relaxation", outcome.Relaxation),
		zap.Int("eligible", outcome.Eligible),
		zap.Int("rerolls_left", session.RerollsLeft()))
}

// AvailableCount returns how many candidates match pc and survive the
// unrelaxed exclusions for state.
func (s *Service) AvailableCount(ctx context.Context, pc restaurant.PreferenceContext, state State) (int, error) {
	candidates, snap, err := s.Load(ctx)
	if err != nil {
		return 0, err
	}
	pool := Filter(candidates, pc)
	return len(pool) - BaseExcluded(state.Drawn, snap.RecentHistory, pool), nil
}

// WouldRelax reports whether a draw for pc and state would have to relax
// its exclusions. It is false when nothing matches pc at all.
func (s *Service) WouldRelax(ctx context.Context, pc restaurant.PreferenceContext, state State) (bool, error) {
	candidates, snap, err := s.Load(ctx)
	if err != nil {
		return false, err
	}
	pool := Filter(candidates, pc)
	_, relaxation := LiveExclusions(state.Drawn, snap.RecentHistory, pool)
	return relaxation != RelaxNone, nil
}
