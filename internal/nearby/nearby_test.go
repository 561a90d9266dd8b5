package nearby

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
)

var paris = restaurant.Location{Lat: 48.8566, Lng: 2.3522}

func TestDistanceMeters(t *testing.T) {
	london := restaurant.Location{Lat: 51.5074, Lng: -0.1278}
	assert.InDelta(t, 343_500, DistanceMeters(paris, london), 2_000)
	assert.Zero(t, DistanceMeters(paris, paris))

	north := restaurant.Location{Lat: paris.Lat + 0.00045, Lng: paris.Lng}
	assert.InDelta(t, 50, DistanceMeters(paris, north), 1)
}

func TestFoldName(t *testing.T) {
	assert.Equal(t, "cafe creme", FoldName("  Café Crème "))
	assert.Equal(t, "sao joao", FoldName("São João"))
	assert.Equal(t, "", FoldName("   "))
}

func TestPlaceID(t *testing.T) {
	a := PlaceID("Chez Nous", 48.856600001, 2.3522)
	assert.Equal(t, a, PlaceID("Chez Nous", 48.8566, 2.3522))
	assert.NotEqual(t, a, PlaceID("Chez Nous", 48.8567, 2.3522))
	assert.NotEqual(t, a, PlaceID("Chez Vous", 48.8566, 2.3522))
}

func TestSearchCategory(t *testing.T) {
	assert.Equal(t, "", SearchCategory(restaurant.PreferenceContext{}))
	assert.Equal(t, "pizza", SearchCategory(restaurant.PreferenceContext{DesiredTags: []string{"sushi", " ", "pizza"}}))
}

func TestRadius(t *testing.T) {
	s := NewService(nil, nil, nil, nil)
	assert.Equal(t, DefaultRadiusKm, s.Radius(restaurant.PreferenceContext{}))
	assert.Equal(t, 7, s.Radius(restaurant.PreferenceContext{RadiusKm: 7}))
	assert.Equal(t, MaxRadiusKm, s.Radius(restaurant.PreferenceContext{RadiusKm: 25}))

	s = NewService(nil, nil, nil, nil, WithRadius(8, 5))
	assert.Equal(t, 5, s.Radius(restaurant.PreferenceContext{}))
	s = NewService(nil, nil, nil, nil, WithRadius(2, 50))
	assert.Equal(t, MaxRadiusKm, s.Radius(restaurant.PreferenceContext{RadiusKm: 40}))
}

func TestConvert(t *testing.T) {
	local := []restaurant.Candidate{
		{ID: "r1", Name: "Café du Coin", Tags: []string{"bistro"}, Rating: restaurant.Rating(4.5), RatingCount: 2, Lat: paris.Lat, Lng: paris.Lng},
	}
	near := Place{ID: "p1", Name: "CAFE DU COIN Paris", Lat: paris.Lat + 0.00045, Lng: paris.Lng}
	far := Place{ID: "p2", Name: "Cafe du Coin", Lat: paris.Lat + 0.01, Lng: paris.Lng}
	other := Place{ID: "p3", Name: "Pho 99", CategoryHint: "Vietnamese", Address: "1 Rue X, Paris, France", Lat: paris.Lat, Lng: paris.Lng}
	bare := Place{ID: "p4", Name: "Snack", Lat: paris.Lat, Lng: paris.Lng}

	got := Convert([]Place{near, far, other, bare}, local, paris)
	require.Len(t, got, 4)

	assert.True(t, got[0].FromLocalBase)
	assert.Equal(t, "r1", got[0].Candidate.ID)
	assert.InDelta(t, 50, got[0].DistanceMeters, 1)

	assert.False(t, got[1].FromLocalBase, "same name but too far away")
	assert.Equal(t, "p2", got[1].Candidate.ID)
	assert.Nil(t, got[1].Candidate.Rating)

	assert.Equal(t, []string{"vietnamese"}, got[2].Candidate.Tags)
	assert.Equal(t, "Vietnamese", got[2].Candidate.Category)
	assert.Equal(t, "Paris", got[2].Candidate.City)

	assert.Empty(t, got[3].Candidate.Tags)
	assert.Equal(t, DefaultCategory, got[3].Candidate.Category)
}

func TestConvert_MatchedRestaurantAppearsOnce(t *testing.T) {
	local := []restaurant.Candidate{
		{ID: "r1", Name: "Café du Coin", Lat: paris.Lat, Lng: paris.Lng},
	}
	first := Place{ID: "p1", Name: "Cafe du Coin", Lat: paris.Lat + 0.0002, Lng: paris.Lng}
	second := Place{ID: "p2", Name: "Café du Coin (terrasse)", Lat: paris.Lat, Lng: paris.Lng + 0.0002}
	other := Place{ID: "p3", Name: "Pho 99", Lat: paris.Lat, Lng: paris.Lng}

	got := Convert([]Place{first, second, other}, local, paris)
	require.Len(t, got, 2)
	assert.Equal(t, "r1", got[0].Candidate.ID)
	assert.Equal(t, "p1", got[0].Place.ID)
	assert.Equal(t, "p3", got[1].Candidate.ID)
}

type countingSearcher struct {
	calls  atomic.Int32
	places []Place
	err    error
}

func (c *countingSearcher) Search(context.Context, SearchRequest) ([]Place, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.places, nil
}

func TestCachedSearcher(t *testing.T) {
	ctx := context.Background()
	next := &countingSearcher{places: []Place{{ID: "p1", Name: "Pho 99", Lat: 1, Lng: 2}}}
	cache := NewCachedSearcher(next, 8, time.Minute, nil)

	req := SearchRequest{Category: "pho", RadiusKm: 3, Location: restaurant.Location{Lat: 48.8566, Lng: 2.3522}}
	first, err := cache.Search(ctx, req)
	require.NoError(t, err)

	moved := req
	moved.Location = restaurant.Location{Lat: 48.8571, Lng: 2.3549}
	second, err := cache.Search(ctx, moved)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, next.calls.Load(), "same bucket is served from cache")

	wider := req
	wider.RadiusKm = 5
	_, err = cache.Search(ctx, wider)
	require.NoError(t, err)
	assert.EqualValues(t, 2, next.calls.Load())
	assert.Equal(t, 2, cache.Len())

	cache.Purge()
	assert.Zero(t, cache.Len())
}

func TestCachedSearcher_DoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	next := &countingSearcher{err: ErrNoResults}
	cache := NewCachedSearcher(next, 8, time.Minute, nil)

	req := SearchRequest{RadiusKm: 3, Location: paris}
	_, err := cache.Search(ctx, req)
	assert.ErrorIs(t, err, ErrNoResults)
	_, err = cache.Search(ctx, req)
	assert.ErrorIs(t, err, ErrNoResults)
	assert.EqualValues(t, 2, next.calls.Load())
}

func TestCacheKey(t *testing.T) {
	k := NewCacheKey(SearchRequest{Category: "sushi", RadiusKm: 3, CityHint: "Paris", Location: restaurant.Location{Lat: -23.5614, Lng: -46.6559}})
	assert.Equal(t, CacheKey{Source: "provider", Category: "sushi", RadiusKm: 3, CityHint: "Paris", Bucket: "-23.56|-46.66"}, k)
}

func TestGuardedSearcher_OpensAfterFailures(t *testing.T) {
	ctx := context.Background()
	next := &countingSearcher{err: errors.New("503")}
	g := NewGuardedSearcher(next, GuardConfig{RatePerSecond: 1000, Burst: 10, MaxFailures: 3, OpenTimeout: time.Minute}, nil)

	for i := 0; i < 3; i++ {
		_, err := g.Search(ctx, SearchRequest{})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrSearchFailed)
	}
	assert.Equal(t, gobreaker.StateOpen, g.State())

	_, err := g.Search(ctx, SearchRequest{})
	assert.ErrorIs(t, err, ErrSearchFailed)
	assert.EqualValues(t, 3, next.calls.Load(), "open breaker short-circuits")
}

func TestGuardedSearcher_EmptyAreaIsNotAFailure(t *testing.T) {
	ctx := context.Background()
	next := &countingSearcher{err: ErrNoResults}
	g := NewGuardedSearcher(next, GuardConfig{RatePerSecond: 1000, Burst: 10, MaxFailures: 2}, nil)

	for i := 0; i < 5; i++ {
		_, err := g.Search(ctx, SearchRequest{})
		assert.ErrorIs(t, err, ErrNoResults)
	}
	assert.Equal(t, gobreaker.StateClosed, g.State())
	assert.EqualValues(t, 5, next.calls.Load())
}

func TestGuardedSearcher_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	next := &countingSearcher{}
	g := NewGuardedSearcher(next, GuardConfig{RatePerSecond: 0.001, Burst: 1}, nil)

	_, err := g.Search(context.Background(), SearchRequest{})
	require.NoError(t, err)
	_, err = g.Search(ctx, SearchRequest{})
	assert.Error(t, err)
	assert.EqualValues(t, 1, next.calls.Load())
}

func TestHTTPProvider_Search(t *testing.T) {
	var gotQuery, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/places/search", r.URL.Path)
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"places":[
			{"name":" Pho 99 ","address":"1 Rue X, Paris, France","lat":48.857,"lng":2.353,"category":"Vietnamese","url":"https://maps.example/p","phone":"+33"},
			{"name":"","lat":1,"lng":1}
		]}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL+"/", "k-1", time.Second)
	places, err := p.Search(context.Background(), SearchRequest{Category: "pho", RadiusKm: 2, CityHint: "Paris", Location: paris})
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "Pho 99", places[0].Name)
	assert.Equal(t, "Vietnamese", places[0].CategoryHint)
	assert.Equal(t, PlaceID("Pho 99", 48.857, 2.353), places[0].ID)
	assert.Equal(t, "k-1", gotKey)
	assert.Contains(t, gotQuery, "radius_m=2000")
	assert.Contains(t, gotQuery, "category=pho")
	assert.Contains(t, gotQuery, "city=Paris")
}

func TestHTTPProvider_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "empty", status: http.StatusOK, body: `{"places":[]}`, wantErr: ErrNoResults},
		{name: "not found", status: http.StatusNotFound, wantErr: ErrNoResults},
		{name: "server error", status: http.StatusInternalServerError},
		{name: "bad json", status: http.StatusOK, body: `{"places":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTPProvider(srv.URL, "", time.Second).Search(context.Background(), SearchRequest{RadiusKm: 1, Location: paris})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
