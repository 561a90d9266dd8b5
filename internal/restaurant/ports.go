package restaurant

import (
	"context"
	"errors"
	"fmt"
)

// ErrStorage marks any collaborator I/O failure. Callers at the boundary
// degrade it to a neutral value rather than failing a draw.
var ErrStorage = errors.New("storage error")

// ErrNotFound is returned by lookups that require the record to exist.
var ErrNotFound = errors.New("not found")

// StorageError wraps err so that errors.Is(result, ErrStorage) holds.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// Source provides the restaurant set.
type Source interface {
	// FetchAll returns every restaurant.
	FetchAll(ctx context.Context) ([]Candidate, error)

	// FetchOne returns the restaurant with id, or nil if absent.
	FetchOne(ctx context.Context, id string) (*Candidate, error)
}

// VisitSource stores rated visits.
type VisitSource interface {
	// Append durably stores a visit.
	Append(ctx context.Context, v Visit) error

	// FetchAll returns all visits ordered most-recent-first.
	FetchAll(ctx context.Context) ([]Visit, error)
}

// RecentHistorySource yields recently visited restaurant IDs.
type RecentHistorySource interface {
	// RecentIDs returns at most limit unique restaurant IDs, most recent first.
	RecentIDs(ctx context.Context, limit int) ([]string, error)
}
