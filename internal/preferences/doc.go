// Package preferences holds the learned preference table: per-tag and
// per-category weights accumulated from visit ratings.
//
// Weights are keyed by normalized tag/category strings rather than by
// restaurant, so feedback on one restaurant generalizes to untried
// restaurants that share its tags. Every stored weight stays within
// [MinWeight, MaxWeight]; updates are pure addition followed by a clamp, so
// replaying a rating log from an empty table reproduces the same table.
//
// The package has three layers:
//
//   - LearnedPreferences: the value type and its pure scoring functions.
//   - Store: the in-memory, mutex-guarded owner of the current table.
//   - Persistence: load/save of the table (badger or in-memory). Absent or
//     corrupt state loads as Empty() and is never fatal.
//
// Learner ties them together for the best-effort learning step that follows
// a saved visit.
package preferences
