package preferences

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/choosethere/internal/logging"
	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
)

type failingPersistence struct {
	MemoryPersistence
	saveErr error
}

func (f *failingPersistence) Save(ctx context.Context, prefs LearnedPreferences) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.MemoryPersistence.Save(ctx, prefs)
}

func newBadgerPersistence(t *testing.T) *BadgerPersistence {
	t.Helper()
	db, err := OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewBadgerPersistence(db)
}

func TestPersistence_RoundTrip(t *testing.T) {
	ctx := context.Background()
	backends := map[string]Persistence{
		"memory": NewMemoryPersistence(),
		"badger": newBadgerPersistence(t),
	}

	for name, p := range backends {
		t.Run(name, func(t *testing.T) {
			loaded, err := p.Load(ctx)
			require.NoError(t, err)
			assert.False(t, loaded.HasLearned())

			prefs := Empty()
			prefs.applyDelta([]string{"spicy"}, "thai", 1, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
			require.NoError(t, p.Save(ctx, prefs))

			loaded, err = p.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, prefs.TagWeights, loaded.TagWeights)
			assert.Equal(t, prefs.CategoryWeights, loaded.CategoryWeights)
			assert.True(t, prefs.UpdatedAt.Equal(loaded.UpdatedAt))

			require.NoError(t, p.Reset(ctx))
			loaded, err = p.Load(ctx)
			require.NoError(t, err)
			assert.False(t, loaded.HasLearned())
		})
	}
}

func TestLoadOrEmpty_Corrupt(t *testing.T) {
	ctx := context.Background()
	tl := logging.NewTestLogger()

	p := NewMemoryPersistence()
	p.SetRaw([]byte("{not json"))

	_, err := p.Load(ctx)
	assert.ErrorIs(t, err, ErrCorrupt)

	prefs := LoadOrEmpty(ctx, p, tl.Logger)
	assert.False(t, prefs.HasLearned())
	assert.Equal(t, CurrentVersion, prefs.Version)
	tl.AssertLogged(t, zapcore.WarnLevel, "starting empty")
}

func TestLoadOrEmpty_MigratesOldVersion(t *testing.T) {
	ctx := context.Background()
	tl := logging.NewTestLogger()
	p := NewMemoryPersistence()
	p.SetRaw([]byte(`{"version":0,"tag_weights":{"Spicy":3,"spicy ":4},"category_weights":{"THAI":-1}}`))

	prefs := LoadOrEmpty(ctx, p, tl.Logger)
	assert.Equal(t, CurrentVersion, prefs.Version)
	assert.Equal(t, MaxWeight, prefs.WeightForTag("spicy"))
	assert.Equal(t, -1.0, prefs.WeightForCategory("thai"))
	tl.AssertLogged(t, zapcore.InfoLevel, "migrated learned preferences")

	stored, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, stored.Version)
}

func TestLoadOrEmpty_RepairsCurrentVersion(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersistence()
	p.SetRaw([]byte(`{"version":1,"tag_weights":{"sushi":42," Ramen":-1},"category_weights":{"Japanese":-99}}`))

	prefs := LoadOrEmpty(ctx, p, logging.NewNop())
	assert.Equal(t, MaxWeight, prefs.WeightForTag("sushi"))
	assert.Equal(t, -1.0, prefs.WeightForTag("ramen"))
	assert.Equal(t, MinWeight, prefs.WeightForCategory("Japanese"))
	assert.Equal(t, 1+MaxWeight+MinWeight, prefs.SortingWeight([]string{"sushi"}, "japanese"))

	stored, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"sushi": MaxWeight, "ramen": -1}, stored.TagWeights)
	assert.Equal(t, map[string]float64{"japanese": MinWeight}, stored.CategoryWeights)
}

func TestMigrate_CleanTableUnchanged(t *testing.T) {
	prefs := Empty()
	prefs.TagWeights["sushi"] = 2
	_, changed := Migrate(prefs)
	assert.False(t, changed)
}

// stallingPersistence holds the first Save until release is closed.
type stallingPersistence struct {
	MemoryPersistence
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *stallingPersistence) Save(ctx context.Context, prefs LearnedPreferences) error {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		<-s.release
	}
	return s.MemoryPersistence.Save(ctx, prefs)
}

func TestLearner_ConcurrentRatingsPersistLatestTable(t *testing.T) {
	ctx := context.Background()
	p := &stallingPersistence{entered: make(chan struct{}), release: make(chan struct{})}
	l := NewLearner(NewStore(Empty()), p)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := l.ApplyRating(ctx, 5, []string{"sushi"}, "japanese")
		assert.NoError(t, err)
	}()
	<-p.entered
	go func() {
		defer wg.Done()
		_, err := l.ApplyRating(ctx, 5, []string{"pizza"}, "italian")
		assert.NoError(t, err)
	}()
	time.Sleep(20 * time.Millisecond)
	close(p.release)
	wg.Wait()

	stored, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, l.Store().Snapshot().TagWeights, stored.TagWeights)
	assert.Equal(t, map[string]float64{"sushi": 1, "pizza": 1}, stored.TagWeights)
}

func TestLearner_ApplyRating(t *testing.T) {
	ctx := context.Background()
	p := newBadgerPersistence(t)
	l := NewLearner(NewStore(Empty()), p)

	res, err := l.ApplyRating(ctx, 5, []string{"Spicy"}, "Thai")
	require.NoError(t, err)
	assert.Equal(t, ResultApplied, res)
	assert.Equal(t, 1.0, l.Store().WeightForTag("spicy"))

	res, err = l.ApplyRating(ctx, 3, []string{"spicy"}, "thai")
	require.NoError(t, err)
	assert.Equal(t, ResultNeutral, res)
	assert.Equal(t, 1.0, l.Store().WeightForTag("spicy"))

	reloaded := NewLearner(NewStore(Empty()), p)
	reloaded.Load(ctx)
	assert.Equal(t, 1.0, reloaded.Store().WeightForCategory("thai"))
}

func TestLearner_Disabled(t *testing.T) {
	l := NewLearner(NewStore(Empty()), NewMemoryPersistence(), WithLearningEnabled(false))
	assert.False(t, l.Enabled())

	res, err := l.ApplyRating(context.Background(), 5, []string{"spicy"}, "thai")
	require.NoError(t, err)
	assert.Equal(t, ResultDisabled, res)
	assert.False(t, l.Store().Snapshot().HasLearned())
}

func TestLearner_SaveFailureIsStorageError(t *testing.T) {
	p := &failingPersistence{saveErr: errors.New("disk full")}
	l := NewLearner(NewStore(Empty()), p)

	res, err := l.ApplyRating(context.Background(), 1, []string{"loud"}, "bar")
	assert.Equal(t, ResultError, res)
	assert.ErrorIs(t, err, restaurant.ErrStorage)
	assert.Equal(t, -1.0, l.Store().WeightForTag("loud"))
}

func TestLearner_Reset(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersistence()
	l := NewLearner(NewStore(Empty()), p)
	_, err := l.ApplyRating(ctx, 5, []string{"spicy"}, "thai")
	require.NoError(t, err)

	require.NoError(t, l.Reset(ctx))
	assert.False(t, l.Store().Snapshot().HasLearned())
	stored, err := p.Load(ctx)
	require.NoError(t, err)
	assert.False(t, stored.HasLearned())
}

func TestStore_ConcurrentUpdatesAreAtomic(t *testing.T) {
	s := NewStore(Empty())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 4; j++ {
				s.ApplyRatingDelta([]string{"a"}, "", 4)
				_ = s.SortingWeight([]string{"a"}, "")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, MaxWeight, s.WeightForTag("a"))
}

func TestStore_SnapshotIsolation(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s := NewStore(Empty(), WithClock(func() time.Time { return fixed }))

	snap := s.Snapshot()
	s.ApplyRatingDelta([]string{"a"}, "c", 5)

	assert.Equal(t, 0.0, snap.WeightForTag("a"))
	assert.Equal(t, 1.0, s.WeightForTag("a"))
	assert.True(t, s.Snapshot().UpdatedAt.Equal(fixed))
}
