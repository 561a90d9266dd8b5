package nearby

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/choosethere/internal/logging"
	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
	"github.com/fyrsmithlabs/choosethere/internal/roulette"
)

const instrumentationName = "github.com/fyrsmithlabs/choosethere/internal/nearby"

const (
	// MaxRadiusKm bounds every nearby search.
	MaxRadiusKm = 10
	// DefaultRadiusKm applies when the context carries no radius.
	DefaultRadiusKm = 3
	// MatchDistanceMeters is how close a place must be to a stored
	// restaurant with a similar name to count as the same restaurant.
	MatchDistanceMeters = 200.0
	// DefaultCategory names transient candidates without a category hint.
	DefaultCategory = "Restaurant"
)

// Snapshotter supplies learned preferences and recent history for a draw.
type Snapshotter interface {
	Snapshot(ctx context.Context) roulette.Snapshot
}

// Request is one nearby draw.
type Request struct {
	Context  restaurant.PreferenceContext
	Location restaurant.Location
	CityHint string
	// State carries ids already drawn in this nearby session.
	State roulette.State
}

// Result is a nearby pick.
type Result struct {
	Outcome        roulette.Outcome
	State          roulette.State
	Place          *Place
	FromLocalBase  bool
	DistanceMeters float64
	RadiusKm       int
}

// Service runs nearby draws.
type Service struct {
	searcher    Searcher
	restaurants restaurant.Source
	snapshots   Snapshotter
	rng         roulette.Random
	defaultKm   int
	maxKm       int
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

// WithRadius sets the default and maximum search radius in km. Values are
// clamped to 1..MaxRadiusKm.
func WithRadius(defaultKm, maxKm int) Option {
	return func(s *Service) {
		s.maxKm = min(max(1, maxKm), MaxRadiusKm)
		s.defaultKm = min(max(1, defaultKm), s.maxKm)
	}
}

// NewService creates a nearby draw service. snapshots may be nil, in
// which case draws use neutral preferences and no history.
func NewService(searcher Searcher, restaurants restaurant.Source, snapshots Snapshotter, rng roulette.Random, opts ...Option) *Service {
	s := &Service{
		searcher:    searcher,
		restaurants: restaurants,
		snapshots:   snapshots,
		rng:         rng,
		defaultKm:   DefaultRadiusKm,
		maxKm:       MaxRadiusKm,
		logger:      logging.NewNop(),
		tracer:      otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Radius resolves the search radius for pc.
func (s *Service) Radius(pc restaurant.PreferenceContext) int {
	if pc.RadiusKm <= 0 {
		return s.defaultKm
	}
	return min(pc.RadiusKm, s.maxKm)
}

// SearchCategory picks the provider category from the desired tags: the
// first one in sorted order, or empty.
func SearchCategory(pc restaurant.PreferenceContext) string {
	tags := make([]string, 0, len(pc.DesiredTags))
	for _, t := range pc.DesiredTags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		return ""
	}
	slices.Sort(tags)
	return tags[0]
}

// Draw searches around req.Location and picks one place.
func (s *Service) Draw(ctx context.Context, req Request) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "nearby.draw")
	defer span.End()

	res, err := s.draw(ctx, span, req)
	if err != nil {
		DrawsTotal.WithLabelValues(resultLabel(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	DrawsTotal.WithLabelValues("picked").Inc()
	return res, nil
}

func (s *Service) draw(ctx context.Context, span trace.Span, req Request) (Result, error) {
	if !req.Location.Valid() {
		return Result{State: req.State}, fmt.Errorf("%w: %f,%f", ErrInvalidCoordinate, req.Location.Lat, req.Location.Lng)
	}

	pc := req.Context
	radius := s.Radius(pc)
	pc.RadiusKm = radius
	loc := req.Location
	pc.UserLocation = &loc

	search := SearchRequest{
		Category: SearchCategory(pc),
		RadiusKm: radius,
		CityHint: req.CityHint,
		Location: loc,
	}
	span.SetAttributes(
		attribute.Int("radius_km", radius),
		attribute.String("category", search.Category),
	)

	places, err := s.searcher.Search(ctx, search)
	if err != nil {
		if errors.Is(err, ErrNoResults) {
			return Result{State: req.State, RadiusKm: radius}, ErrNoResults
		}
		if errors.Is(err, ErrSearchFailed) {
			return Result{State: req.State, RadiusKm: radius}, err
		}
		return Result{State: req.State, RadiusKm: radius}, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	if len(places) == 0 {
		return Result{State: req.State, RadiusKm: radius}, ErrNoResults
	}

	local, err := s.restaurants.FetchAll(ctx)
	if err != nil {
		s.logger.Warn(ctx, "local restaurants unavailable, drawing provider places only", zap.Error(err))
		local = nil
	}

	converted := Convert(places, local, loc)
	candidates := make([]restaurant.Candidate, len(converted))
	for i, c := range converted {
		candidates[i] = c.Candidate
	}

	var snap roulette.Snapshot
	if s.snapshots != nil {
		snap = s.snapshots.Snapshot(ctx)
	}

	outcome, next := roulette.PickWithRatingFallback(candidates, pc, snap, req.State, s.rng)
	span.SetAttributes(
		attribute.Int("places", len(places)),
		attribute.String("outcome", outcome.Kind.String()),
		attribute.Bool("fell_back", outcome.FellBack),
	)
	if !outcome.Picked() {
		s.logger.Info(ctx, "no nearby place matches filters",
			zap.Int("places", len(places)),
			zap.Int("radius_km", radius))
		return Result{Outcome: outcome, State: req.State, RadiusKm: radius}, ErrAllFiltered
	}

	res := Result{Outcome: outcome, State: next, RadiusKm: radius}
	for _, c := range converted {
		if c.Candidate.ID == outcome.Candidate.ID {
			res.FromLocalBase = c.FromLocalBase
			res.DistanceMeters = c.DistanceMeters
			if !c.FromLocalBase {
				p := c.Place
				res.Place = &p
			}
			break
		}
	}

	s.logger.Info(ctx, "nearby draw picked",
		zap.String("restaurant_id", outcome.Candidate.ID),
		zap.Bool("from_local_base", res.FromLocalBase),
		zap.Float64("distance_m", res.DistanceMeters),
		zap.Bool("fell_back", outcome.FellBack))
	return res, nil
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrNoResults):
		return "no_results"
	case errors.Is(err, ErrAllFiltered):
		return "all_filtered"
	default:
		return "error"
	}
}

// Converted is a place turned into a draw candidate.
type Converted struct {
	Candidate      restaurant.Candidate
	Place          Place
	FromLocalBase  bool
	DistanceMeters float64
}

// Convert maps places to candidates, preferring a matching stored
// restaurant. Distances are measured from user. A stored restaurant matched
// by several places appears once, for the first of them.
func Convert(places []Place, local []restaurant.Candidate, user restaurant.Location) []Converted {
	out := make([]Converted, 0, len(places))
	matched := make(map[string]struct{})
	for _, p := range places {
		c := Converted{
			Place:          p,
			DistanceMeters: DistanceMeters(user, p.Location()),
		}
		if match, ok := FindMatch(p, local); ok {
			if _, dup := matched[match.ID]; dup {
				continue
			}
			matched[match.ID] = struct{}{}
			c.Candidate = match
			c.FromLocalBase = true
		} else {
			c.Candidate = TransientCandidate(p)
		}
		out = append(out, c)
	}
	return out
}

// FindMatch returns the first stored restaurant whose folded name contains,
// or is contained in, the place's folded name and that lies within
// MatchDistanceMeters of it.
func FindMatch(p Place, local []restaurant.Candidate) (restaurant.Candidate, bool) {
	name := FoldName(p.Name)
	if name == "" {
		return restaurant.Candidate{}, false
	}
	for _, r := range local {
		other := FoldName(r.Name)
		if other == "" {
			continue
		}
		if !strings.Contains(name, other) && !strings.Contains(other, name) {
			continue
		}
		if DistanceMeters(p.Location(), r.Location()) < MatchDistanceMeters {
			return r, true
		}
	}
	return restaurant.Candidate{}, false
}

// TransientCandidate builds an unrated candidate from a place, tagged with
// its lowercased category hint.
func TransientCandidate(p Place) restaurant.Candidate {
	var tags []string
	category := DefaultCategory
	if hint := strings.TrimSpace(p.CategoryHint); hint != "" {
		tags = []string{strings.ToLower(hint)}
		category = hint
	}
	return restaurant.Candidate{
		ID:       p.ID,
		Name:     p.Name,
		Category: category,
		Tags:     tags,
		Address:  p.Address,
		City:     cityFromAddress(p.Address),
		Lat:      p.Lat,
		Lng:      p.Lng,
	}
}

// cityFromAddress takes the second to last comma separated part of an
// address ("street, city, country").
func cityFromAddress(address string) string {
	parts := strings.Split(address, ",")
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[len(parts)-2])
}
