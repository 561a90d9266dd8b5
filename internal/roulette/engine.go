package roulette

import (
	"errors"
	"slices"

	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
)

// ErrNoCandidates is returned by Outcome.Err when nothing was drawable.
var ErrNoCandidates = errors.New("no candidates match the current preferences")

// Scorer supplies the learned sorting weight for a candidate.
// preferences.LearnedPreferences and *preferences.Store both satisfy it.
type Scorer interface {
	SortingWeight(tags []string, category string) float64
}

// Snapshot is the read-only input a draw scores against. A nil Preferences
// scores every candidate neutrally.
type Snapshot struct {
	Preferences   Scorer
	RecentHistory []string
}

// State is the caller-owned session exclusion state.
type State struct {
	Drawn   []string `json:"drawn"`
	Rerolls int      `json:"rerolls"`
}

// HasDrawn reports whether id was already drawn in this session.
func (s State) HasDrawn(id string) bool {
	return slices.Contains(s.Drawn, id)
}

func (s State) withDrawn(id string) State {
	next := State{
		Drawn:   make([]string, 0, len(s.Drawn)+1),
		Rerolls: s.Rerolls,
	}
	next.Drawn = append(next.Drawn, s.Drawn...)
	if !s.HasDrawn(id) {
		next.Drawn = append(next.Drawn, id)
	}
	return next
}

// OutcomeKind is the terminal state of a draw.
type OutcomeKind int

const (
	OutcomeNoCandidates OutcomeKind = iota
	OutcomePicked
)

func (k OutcomeKind) String() string {
	if k == OutcomePicked {
		return "picked"
	}
	return "no_candidates"
}

// MarshalText implements encoding.TextMarshaler.
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Outcome is the result of one draw.
type Outcome struct {
	Kind       OutcomeKind          `json:"outcome"`
	Candidate  restaurant.Candidate `json:"restaurant"`
	Weight     float64              `json:"weight,omitempty"`
	Relaxation Relaxation           `json:"relaxation"`
	// Matched is the number of candidates that passed the filter.
	Matched int `json:"matched"`
	// Eligible is the number left after exclusions.
	Eligible int `json:"eligible"`
	// FellBack is set when a rating-only draw was retried as prefer.
	FellBack bool `json:"fell_back,omitempty"`
}

// Picked reports whether a candidate was drawn.
func (o Outcome) Picked() bool {
	return o.Kind == OutcomePicked
}

// Err returns ErrNoCandidates for an empty outcome, nil otherwise.
func (o Outcome) Err() error {
	if o.Picked() {
		return nil
	}
	return ErrNoCandidates
}

// Pick draws one candidate. The returned State adds the winner to the
// session's drawn set; on NoCandidates the input state is returned as is.
// candidates and state are not modified.
func Pick(candidates []restaurant.Candidate, pc restaurant.PreferenceContext, snap Snapshot, state State, rng Random) (Outcome, State) {
	pool := Filter(candidates, pc)
	if len(pool) == 0 {
		return Outcome{Kind: OutcomeNoCandidates}, state
	}

	weights := make([]float64, len(pool))
	for i, c := range pool {
		weights[i] = SamplingWeight(c, pc, snap.Preferences)
	}

	excluded, relaxation := LiveExclusions(state.Drawn, snap.RecentHistory, pool)

	eligible := make([]restaurant.Candidate, 0, len(pool))
	eligibleWeights := make([]float64, 0, len(pool))
	for i, c := range pool {
		if _, skip := excluded[c.ID]; skip {
			continue
		}
		eligible = append(eligible, c)
		eligibleWeights = append(eligibleWeights, weights[i])
	}

	idx := Sample(eligibleWeights, rng)
	if idx < 0 {
		return Outcome{Kind: OutcomeNoCandidates, Matched: len(pool), Relaxation: relaxation}, state
	}

	winner := eligible[idx]
	return Outcome{
		Kind:       OutcomePicked,
		Candidate:  winner,
		Weight:     eligibleWeights[idx],
		Relaxation: relaxation,
		Matched:    len(pool),
		Eligible:   len(eligible),
	}, state.withDrawn(winner.ID)
}

// PickWithRatingFallback runs Pick and, when a RatingOnly context yields
// nothing, retries once with RatingPrefer.
func PickWithRatingFallback(candidates []restaurant.Candidate, pc restaurant.PreferenceContext, snap Snapshot, state State, rng Random) (Outcome, State) {
	outcome, next := Pick(candidates, pc, snap, state, rng)
	if outcome.Picked() || pc.RatingPriority != restaurant.RatingOnly {
		return outcome, next
	}

	relaxed := pc
	relaxed.RatingPriority = restaurant.RatingPrefer
	outcome, next = Pick(candidates, relaxed, snap, state, rng)
	outcome.FellBack = outcome.Picked()
	return outcome, next
}

// SamplingWeight is the learned sorting weight of c, multiplied by the
// rating boost under RatingPrefer.
func SamplingWeight(c restaurant.Candidate, pc restaurant.PreferenceContext, prefs Scorer) float64 {
	w := 1.0
	if prefs != nil {
		w = prefs.SortingWeight(c.Tags, c.Category)
	}
	if pc.RatingPriority == restaurant.RatingPrefer {
		w *= RatingBoost(c.Rating)
	}
	return w
}

// RatingBoost returns 1 + max(0, rating-3) * 0.25; unrated candidates get 1.
func RatingBoost(rating *float64) float64 {
	if rating == nil {
		return 1
	}
	return 1 + max(0, *rating-3)*0.25
}
