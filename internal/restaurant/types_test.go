package restaurant

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriceTier(t *testing.T) {
	tests := []struct {
		in      string
		want    PriceTier
		wantErr bool
	}{
		{"", PriceUnknown, false},
		{"cheap", PriceCheap, false},
		{"$$", PriceModerate, false},
		{" 3 ", PriceExpensive, false},
		{"EXPENSIVE", PriceExpensive, false},
		{"free", PriceUnknown, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePriceTier(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRatingPriority_TextRoundTrip(t *testing.T) {
	for _, rp := range []RatingPriority{RatingNone, RatingPrefer, RatingOnly} {
		text, err := rp.MarshalText()
		require.NoError(t, err)

		var got RatingPriority
		require.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, rp, got)
	}

	var bad RatingPriority
	assert.Error(t, bad.UnmarshalText([]byte("sometimes")))
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "sushi", NormalizeKey("  SuShi "))
	assert.Equal(t, "", NormalizeKey("   "))

	set := KeySet([]string{"Bar", " bar", "", "Pizza"})
	assert.Len(t, set, 2)
	assert.True(t, SharesAny([]string{"PIZZA"}, set))
	assert.False(t, SharesAny([]string{"sushi"}, set))
}

func TestStorageError(t *testing.T) {
	cause := errors.New("disk full")
	err := StorageError("fetch restaurants", cause)

	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, StorageError("noop", nil))
}

func TestCandidate_RatingValue(t *testing.T) {
	c := Candidate{ID: "a"}
	_, ok := c.RatingValue()
	assert.False(t, ok)

	c.Rating = Rating(4.5)
	v, ok := c.RatingValue()
	assert.True(t, ok)
	assert.Equal(t, 4.5, v)
	assert.Equal(t, "4.5", FormatRating(c.Rating))
	assert.Equal(t, "-", FormatRating(nil))
}

func TestAggregateRatings(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(48 * time.Hour)

	snap := AggregateRatings([]Visit{
		{Rating: 5, VisitedAt: t1},
		{Rating: 2, VisitedAt: t2},
		{Rating: 9, VisitedAt: t2.Add(time.Hour)},
	})
	assert.Equal(t, 2, snap.RatingCount)
	assert.Equal(t, 3.5, snap.RatingAverage)
	require.NotNil(t, snap.RatingLastVisitedAt)
	assert.True(t, snap.RatingLastVisitedAt.Equal(t2))

	assert.Equal(t, RatingSnapshot{}, AggregateRatings(nil))
}

func TestRestaurant_Candidate(t *testing.T) {
	r := Restaurant{ID: "r1", Name: "Noodle Bar", Tags: []string{"ramen"}, IsFavorite: true}
	c := r.Candidate()
	assert.Nil(t, c.Rating, "unrated restaurants have no rating")
	assert.True(t, c.Favorite)

	r.RatingSnapshot = RatingSnapshot{RatingAverage: 4.2, RatingCount: 3}
	c = r.Candidate()
	require.NotNil(t, c.Rating)
	assert.Equal(t, 4.2, *c.Rating)
	assert.Equal(t, 3, c.RatingCount)
}
