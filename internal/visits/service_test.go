package visits

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/choosethere/internal/logging"
	"github.com/fyrsmithlabs/choosethere/internal/preferences"
	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
	"github.com/fyrsmithlabs/choosethere/internal/storage"
)

var fixedNow = time.Date(2026, 6, 1, 20, 0, 0, 0, time.UTC)

type fixture struct {
	restaurants storage.RestaurantRepo
	visits      storage.VisitRepo
	learner     *preferences.Learner
	persist     *preferences.MemoryPersistence
	logger      *logging.TestLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "visits.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close(db) })

	f := &fixture{
		restaurants: storage.NewRestaurantRepo(db, nil),
		visits:      storage.NewVisitRepo(db, nil),
		persist:     preferences.NewMemoryPersistence(),
		logger:      logging.NewTestLogger(),
	}
	f.learner = preferences.NewLearner(preferences.NewStore(preferences.Empty()), f.persist)

	_, _, err = f.restaurants.Save(context.Background(), nil, []restaurant.Restaurant{
		{ID: "r1", Name: "Sushi Go", Category: "Japanese", Tags: []string{"Sushi", "Bar"}},
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) service(opts ...Option) *Service {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow }), WithLogger(f.logger.Logger)}, opts...)
	return NewService(f.restaurants, f.visits, f.learner, opts...)
}

func TestRecordVisit_StoresAndRefreshesSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.service()

	visit, rest, err := svc.RecordVisit(ctx, RecordRequest{
		RestaurantID: "r1",
		Rating:       4,
		Tags:         []string{" date night ", "DATE NIGHT", ""},
		Note:         "  omakase  ",
		WouldReturn:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, "r1", rest.ID)
	assert.Equal(t, fixedNow, visit.VisitedAt)
	assert.Equal(t, []string{"date night"}, visit.Tags)
	assert.Equal(t, "omakase", visit.Note)

	stored, err := f.visits.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, visit.ID, stored[0].ID)

	_, _, err = svc.RecordVisit(ctx, RecordRequest{RestaurantID: "r1", Rating: 2})
	require.NoError(t, err)

	one, err := f.restaurants.FetchOne(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, one.Rating)
	assert.InDelta(t, 3.0, *one.Rating, 1e-9)
	assert.Equal(t, 2, one.RatingCount)

	// Recording alone never learns.
	assert.False(t, f.learner.Store().Snapshot().HasLearned())
}

func TestRecordVisit_Rejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.service()

	_, _, err := svc.RecordVisit(ctx, RecordRequest{RestaurantID: "r1", Rating: 6})
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, _, err = svc.RecordVisit(ctx, RecordRequest{RestaurantID: "r1", Rating: 0})
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, _, err = svc.RecordVisit(ctx, RecordRequest{RestaurantID: "missing", Rating: 3})
	assert.ErrorIs(t, err, restaurant.ErrNotFound)

	stored, err := f.visits.FetchAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

type brokenSnapshots struct {
	storage.RestaurantRepo
}

func (brokenSnapshots) UpdateRatingSnapshot(context.Context, string, restaurant.RatingSnapshot) error {
	return errors.New("disk full")
}

func TestRecordVisit_SnapshotFailureIsBestEffort(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewService(brokenSnapshots{f.restaurants}, f.visits, f.learner, WithLogger(f.logger.Logger))

	_, _, err := svc.RecordVisit(ctx, RecordRequest{RestaurantID: "r1", Rating: 5})
	require.NoError(t, err)

	stored, err := f.visits.FetchAll(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
	f.logger.AssertLogged(t, zapcore.WarnLevel, "failed to refresh rating snapshot")
}

func TestSubmit_LearnsFromRestaurantTags(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.service()

	_, err := svc.Submit(ctx, RecordRequest{RestaurantID: "r1", Rating: 5, Tags: []string{"noisy"}})
	require.NoError(t, err)

	prefs := f.learner.Store().Snapshot()
	assert.InDelta(t, 1.0, prefs.WeightForTag("sushi"), 1e-9)
	assert.InDelta(t, 1.0, prefs.WeightForTag("bar"), 1e-9)
	assert.InDelta(t, 1.0, prefs.WeightForCategory("japanese"), 1e-9)
	assert.Zero(t, prefs.WeightForTag("noisy"), "visit tags are not learned")

	saved, err := f.persist.Load(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, saved.WeightForTag("sushi"), 1e-9)
}

func TestSubmit_NeutralRatingLeavesTable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.service().Submit(ctx, RecordRequest{RestaurantID: "r1", Rating: 3})
	require.NoError(t, err)
	assert.False(t, f.learner.Store().Snapshot().HasLearned())
}

type failingSave struct {
	*preferences.MemoryPersistence
}

func (failingSave) Save(context.Context, preferences.LearnedPreferences) error {
	return errors.New("read-only")
}

func TestSubmit_LearningFailureKeepsVisit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	learner := preferences.NewLearner(preferences.NewStore(preferences.Empty()), failingSave{preferences.NewMemoryPersistence()})
	svc := NewService(f.restaurants, f.visits, learner, WithLogger(f.logger.Logger))

	visit, err := svc.Submit(ctx, RecordRequest{RestaurantID: "r1", Rating: 1})
	require.NoError(t, err)

	stored, err := f.visits.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, visit.ID, stored[0].ID)
	f.logger.AssertLogged(t, zapcore.WarnLevel, "learning update failed")
}

func TestSubmit_InlineDispatcher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newFixture(t)

	var svc *Service
	dispatcher := NewInlineDispatcher(func(ctx context.Context, ev LearningEvent) error {
		return svc.ApplyLearning(ctx, ev)
	})
	svc = f.service(WithDispatcher(dispatcher))

	_, err := svc.Submit(ctx, RecordRequest{RestaurantID: "r1", Rating: 1})
	require.NoError(t, err)
	// Cancelling the request must not abort the detached update.
	cancel()
	dispatcher.Wait()

	assert.InDelta(t, -1.0, f.learner.Store().Snapshot().WeightForTag("sushi"), 1e-9)
}

func TestApplyLearning_DisabledLearner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	learner := preferences.NewLearner(preferences.NewStore(preferences.Empty()), f.persist,
		preferences.WithLearningEnabled(false))
	svc := NewService(f.restaurants, f.visits, learner)

	require.NoError(t, svc.ApplyLearning(ctx, LearningEvent{Rating: 5, Tags: []string{"sushi"}, Category: "Japanese"}))
	assert.False(t, learner.Store().Snapshot().HasLearned())

	assert.NoError(t, NewService(f.restaurants, f.visits, nil).ApplyLearning(ctx, LearningEvent{Rating: 5}))
}
