package preferences

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatingToDelta(t *testing.T) {
	tests := []struct {
		rating int
		want   float64
	}{
		{7, 1.0},
		{5, 1.0},
		{4, 0.5},
		{3, 0.0},
		{2, -0.5},
		{1, -1.0},
		{0, -1.0},
		{-3, -1.0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RatingToDelta(tt.rating), "rating %d", tt.rating)
	}
}

func TestClampWeight(t *testing.T) {
	assert.Equal(t, MaxWeight, ClampWeight(9))
	assert.Equal(t, MinWeight, ClampWeight(-9))
	assert.Equal(t, 1.5, ClampWeight(1.5))
}

func TestLearnedPreferences_Lookups(t *testing.T) {
	p := Empty()
	p.applyDelta([]string{" Spicy ", "spicy", "Cozy"}, "Thai", 1, time.Now())

	assert.Equal(t, 1.0, p.WeightForTag("SPICY"), "duplicate tags count once")
	assert.Equal(t, 1.0, p.WeightForTag("cozy"))
	assert.Equal(t, 1.0, p.WeightForCategory(" thai"))
	assert.Equal(t, DefaultWeight, p.WeightForTag("unknown"))

	assert.Equal(t, 3.0, p.MatchScore([]string{"spicy", "Spicy", "cozy"}, "thai"))
	assert.Equal(t, 4.0, p.SortingWeight([]string{"spicy", "cozy"}, "thai"))
	assert.True(t, p.HasLearned())
	assert.Equal(t, 3, p.Count())
}

func TestLearnedPreferences_EmptyCategorySkipped(t *testing.T) {
	p := Empty()
	p.applyDelta(nil, "  ", -1, time.Now())
	assert.False(t, p.HasLearned())
}

func TestSortingWeight_NeverBelowFloor(t *testing.T) {
	p := Empty()
	for i := 0; i < 10; i++ {
		p.applyDelta([]string{"a", "b", "c"}, "x", -1, time.Now())
	}
	assert.Equal(t, MinWeight, p.WeightForTag("a"))
	assert.Equal(t, MinSortingWeight, p.SortingWeight([]string{"a", "b", "c"}, "x"))
	assert.Equal(t, MinSortingWeight, p.SortingWeight([]string{"a"}, ""))
}

func TestWeightsStayBounded_RandomSequences(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	tags := []string{"spicy", "cozy", "quick", "vegan"}
	cats := []string{"thai", "pizza", ""}

	p := Empty()
	for i := 0; i < 2000; i++ {
		rating := rng.IntN(7) - 1
		n := rng.IntN(len(tags) + 1)
		p.applyDelta(tags[:n], cats[rng.IntN(len(cats))], RatingToDelta(rating), time.Now())

		for k, w := range p.TagWeights {
			require.True(t, w >= MinWeight && w <= MaxWeight, "tag %s=%v", k, w)
		}
		for k, w := range p.CategoryWeights {
			require.True(t, w >= MinWeight && w <= MaxWeight, "category %s=%v", k, w)
		}
		require.GreaterOrEqual(t, p.SortingWeight(tags, "thai"), MinSortingWeight)
	}
}

func TestReplayIsDeterministic(t *testing.T) {
	type rating struct {
		r    int
		tags []string
		cat  string
	}
	log := []rating{
		{5, []string{"spicy"}, "thai"},
		{2, []string{"spicy", "loud"}, "bar"},
		{4, []string{"cozy"}, "thai"},
		{1, nil, "bar"},
	}

	replay := func() LearnedPreferences {
		p := Empty()
		for _, r := range log {
			p.applyDelta(r.tags, r.cat, RatingToDelta(r.r), time.Time{})
		}
		return p
	}

	a, b := replay(), replay()
	assert.Equal(t, a.TagWeights, b.TagWeights)
	assert.Equal(t, a.CategoryWeights, b.CategoryWeights)
	assert.Equal(t, 0.5, a.WeightForTag("spicy"))
	assert.Equal(t, -1.5, a.WeightForCategory("bar"))
}

func TestOrderIndependenceWithoutClamping(t *testing.T) {
	forward, backward := Empty(), Empty()
	deltas := []int{5, 4, 2, 1, 5}

	for _, r := range deltas {
		forward.applyDelta([]string{"t"}, "c", RatingToDelta(r), time.Time{})
	}
	for i := len(deltas) - 1; i >= 0; i-- {
		backward.applyDelta([]string{"t"}, "c", RatingToDelta(deltas[i]), time.Time{})
	}
	assert.Equal(t, forward.WeightForTag("t"), backward.WeightForTag("t"))
	assert.Equal(t, forward.WeightForCategory("c"), backward.WeightForCategory("c"))
}

func TestClone_IsDeep(t *testing.T) {
	p := Empty()
	p.applyDelta([]string{"a"}, "b", 1, time.Now())
	c := p.Clone()
	c.TagWeights["a"] = 4
	assert.Equal(t, 1.0, p.WeightForTag("a"))
}

func TestEntries_Sorted(t *testing.T) {
	p := Empty()
	p.applyDelta([]string{"spicy"}, "thai", 1, time.Now())
	p.applyDelta([]string{"loud"}, "", -1, time.Now())
	p.applyDelta([]string{"spicy"}, "", 0.5, time.Now())

	entries := p.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, Entry{Kind: "tag", Key: "spicy", Weight: 1.5}, entries[0])
	assert.Equal(t, Entry{Kind: "category", Key: "thai", Weight: 1}, entries[1])
	assert.Equal(t, Entry{Kind: "tag", Key: "loud", Weight: -1}, entries[2])
}
