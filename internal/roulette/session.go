package roulette

import (
	"errors"

	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
)

// MaxRerolls is the number of re-rolls allowed after the first draw.
const MaxRerolls = 3

// ErrRerollExhausted is returned by Reroll once MaxRerolls is reached.
var ErrRerollExhausted = errors.New("reroll limit reached")

// Session tracks one uninterrupted draw/re-roll flow for a fixed context.
// It is not safe for concurrent use.
type Session struct {
	context restaurant.PreferenceContext
	state   State
	last    *Outcome
}

// NewSession starts a session for pc.
func NewSession(pc restaurant.PreferenceContext) *Session {
	return &Session{context: pc}
}

// Context returns the preference context the session draws with.
func (s *Session) Context() restaurant.PreferenceContext {
	return s.context
}

// State returns a copy of the session's exclusion state.
func (s *Session) State() State {
	return State{Drawn: append([]string(nil), s.state.Drawn...), Rerolls: s.state.Rerolls}
}

// Last returns the most recent outcome, if any.
func (s *Session) Last() (Outcome, bool) {
	if s.last == nil {
		return Outcome{}, false
	}
	return *s.last, true
}

// CanReroll reports whether another re-roll is allowed.
func (s *Session) CanReroll() bool {
	return s.state.Rerolls < MaxRerolls
}

// RerollsLeft returns how many re-rolls remain.
func (s *Session) RerollsLeft() int {
	return max(0, MaxRerolls-s.state.Rerolls)
}

// Draw performs a draw that does not count against the re-roll cap.
func (s *Session) Draw(candidates []restaurant.Candidate, snap Snapshot, rng Random) Outcome {
	outcome, next := Pick(candidates, s.context, snap, s.state, rng)
	s.state = next
	s.last = &outcome
	return outcome
}

// Reroll counts one re-roll and draws again, excluding everything already
// drawn this session. Past the cap it returns ErrRerollExhausted and leaves
// the session unchanged.
func (s *Session) Reroll(candidates []restaurant.Candidate, snap Snapshot, rng Random) (Outcome, error) {
	if !s.CanReroll() {
		return Outcome{}, ErrRerollExhausted
	}
	s.state.Rerolls++
	return s.Draw(candidates, snap, rng), nil
}

// Reset clears drawn candidates and the re-roll counter and switches to pc.
func (s *Session) Reset(pc restaurant.PreferenceContext) {
	s.context = pc
	s.state = State{}
	s.last = nil
}
