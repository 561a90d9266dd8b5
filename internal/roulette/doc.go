// Package roulette draws one restaurant from a candidate set.
//
// A draw runs Filter, then scores each survivor with its learned sorting
// weight (boosted by rating when the context prefers rated places), applies
// the anti-repetition guard, and samples one winner by weight:
//
//	outcome, next := roulette.Pick(candidates, pc, roulette.Snapshot{
//	    Preferences:   prefs,
//	    RecentHistory: recent,
//	}, state, rng)
//
// Pick is a pure function of its inputs: the same candidates, context,
// snapshot, state and random sequence always yield the same outcome. The
// caller owns State and threads it through successive calls; Session does
// that for the bounded re-roll flow.
//
// Service is the I/O boundary. It loads candidates, recent history and the
// learned table, degrading history and preference failures to neutral
// values so a draw can proceed whenever candidates exist.
package roulette
