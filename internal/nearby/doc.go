// Package nearby draws a restaurant from places found around the user by
// an external map provider.
//
// Provider results are converted into roulette candidates: a place that
// matches a stored restaurant (similar name, under 200 m apart) borrows
// the stored record with its tags and rating, anything else becomes a
// transient candidate tagged with the provider's category hint. The draw
// itself runs through the roulette engine with the rating-only fallback.
//
// The provider is reached through a Searcher chain:
//
//	CachedSearcher -> GuardedSearcher -> HTTPProvider
//
// which caches results per location bucket, rate limits outgoing calls and
// trips a circuit breaker on repeated failures.
package nearby
