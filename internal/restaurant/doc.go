// Package restaurant defines the shared domain model for the roulette:
// restaurant candidates, visits, per-draw preference context, and the narrow
// collaborator interfaces the selection core reads from.
//
// Nothing in this package performs I/O. Storage, history and map search are
// implemented elsewhere against the interfaces declared in ports.go.
package restaurant
