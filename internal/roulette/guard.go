package roulette

import (
	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
)

// Relaxation records which exclusions a draw had to give up.
type Relaxation int

const (
	// RelaxNone: session draws and recent history were both excluded.
	RelaxNone Relaxation = iota
	// RelaxHistory: recent history was dropped, session draws still excluded.
	RelaxHistory
	// RelaxAll: every exclusion was dropped; repeats are possible.
	RelaxAll
)

func (r Relaxation) String() string {
	switch r {
	case RelaxHistory:
		return "history"
	case RelaxAll:
		return "all"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Relaxation) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// LiveExclusions computes the exclusion set for pool.
//
// The base set is sessionDrawn ∪ recentHistory. If that would exclude every
// candidate, recent history is dropped; if session draws alone still
// exclude everything, the set is emptied. A non-empty pool therefore always
// keeps at least one drawable candidate.
func LiveExclusions(sessionDrawn, recentHistory []string, pool []restaurant.Candidate) (map[string]struct{}, Relaxation) {
	base := idSet(sessionDrawn, recentHistory)
	if len(pool) == 0 || anyAllowed(pool, base) {
		return base, RelaxNone
	}

	sessionOnly := idSet(sessionDrawn)
	if anyAllowed(pool, sessionOnly) {
		return sessionOnly, RelaxHistory
	}

	return map[string]struct{}{}, RelaxAll
}

// BaseExcluded counts the candidates in pool removed by the unrelaxed
// exclusion set.
func BaseExcluded(sessionDrawn, recentHistory []string, pool []restaurant.Candidate) int {
	base := idSet(sessionDrawn, recentHistory)
	n := 0
	for _, c := range pool {
		if _, ok := base[c.ID]; ok {
			n++
		}
	}
	return n
}

func idSet(lists ...[]string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, ids := range lists {
		for _, id := range ids {
			if id != "" {
				set[id] = struct{}{}
			}
		}
	}
	return set
}

func anyAllowed(pool []restaurant.Candidate, excluded map[string]struct{}) bool {
	for _, c := range pool {
		if _, ok := excluded[c.ID]; !ok {
			return true
		}
	}
	return false
}
