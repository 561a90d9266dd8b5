package preferences

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"sync"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/choosethere/internal/logging"
	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
)

// ErrCorrupt is returned when a stored table cannot be decoded.
var ErrCorrupt = errors.New("corrupt learned preferences")

// Persistence loads and saves the learned table.
//
// Load returns (Empty(), nil) when nothing has been saved yet.
type Persistence interface {
	Load(ctx context.Context) (LearnedPreferences, error)
	Save(ctx context.Context, prefs LearnedPreferences) error
	Reset(ctx context.Context) error
}

// LoadOrEmpty loads the table and never fails: read errors and corrupt
// blobs produce Empty() with a warning. Older schema versions are migrated
// and written back.
func LoadOrEmpty(ctx context.Context, p Persistence, logger *logging.Logger) LearnedPreferences {
	prefs, err := p.Load(ctx)
	if err != nil {
		logger.Warn(ctx, "learned preferences unavailable, starting empty", zap.Error(err))
		return Empty()
	}

	migrated, changed := Migrate(prefs)
	if changed {
		if err := p.Save(ctx, migrated); err != nil {
			logger.Warn(ctx, "failed to persist migrated preferences", zap.Error(err))
		} else {
			logger.Info(ctx, "migrated learned preferences",
				zap.Int("from_version", prefs.Version),
				zap.Int("to_version", migrated.Version))
		}
	}
	return migrated
}

// Migrate upgrades prefs to CurrentVersion and repairs the table: keys are
// folded to lowercase/trimmed, colliding weights summed and clamped. Version
// 0 tables predate key normalization; later versions only change when a
// stored key or weight violates those rules. changed reports whether the
// result differs from prefs.
func Migrate(prefs LearnedPreferences) (LearnedPreferences, bool) {
	out := LearnedPreferences{
		Version:         max(prefs.Version, CurrentVersion),
		TagWeights:      normalizeWeights(prefs.TagWeights),
		CategoryWeights: normalizeWeights(prefs.CategoryWeights),
		UpdatedAt:       prefs.UpdatedAt,
	}
	changed := prefs.Version < CurrentVersion ||
		!maps.Equal(out.TagWeights, prefs.TagWeights) ||
		!maps.Equal(out.CategoryWeights, prefs.CategoryWeights)
	return out, changed
}

func normalizeWeights(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, w := range in {
		key := restaurant.NormalizeKey(k)
		if key == "" || math.IsNaN(w) {
			continue
		}
		out[key] = ClampWeight(out[key] + w)
	}
	return out
}

func encode(prefs LearnedPreferences) ([]byte, error) {
	data, err := json.Marshal(prefs)
	if err != nil {
		return nil, fmt.Errorf("marshal preferences: %w", err)
	}
	return data, nil
}

func decode(data []byte) (LearnedPreferences, error) {
	var prefs LearnedPreferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return Empty(), fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if prefs.TagWeights == nil {
		prefs.TagWeights = map[string]float64{}
	}
	if prefs.CategoryWeights == nil {
		prefs.CategoryWeights = map[string]float64{}
	}
	return prefs, nil
}

// MemoryPersistence keeps the encoded table in memory. It round-trips
// through the same encoding as BadgerPersistence.
type MemoryPersistence struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryPersistence creates an empty in-memory persistence.
func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{}
}

// Load implements Persistence.
func (m *MemoryPersistence) Load(_ context.Context) (LearnedPreferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return Empty(), nil
	}
	return decode(m.data)
}

// Save implements Persistence.
func (m *MemoryPersistence) Save(_ context.Context, prefs LearnedPreferences) error {
	data, err := encode(prefs)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	return nil
}

// Reset implements Persistence.
func (m *MemoryPersistence) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}

// SetRaw stores raw bytes, for exercising corrupt-state handling.
func (m *MemoryPersistence) SetRaw(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
}
