// Package visits records rated visits and feeds them to preference
// learning.
//
// Recording is a two-step protocol. RecordVisit returns once the visit is
// durably stored (the restaurant's rating snapshot is refreshed on a best
// effort basis). ApplyLearning is a separate call whose failure is logged
// and never retried; it never affects the stored visit.
//
// Submit runs both steps, handing learning to a Dispatcher so the caller
// does not wait on it: InlineDispatcher uses a goroutine, NATSDispatcher
// publishes a LearningEvent that a Subscribe'd consumer applies.
package visits
