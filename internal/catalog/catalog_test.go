package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/choosethere/internal/restaurant"
	"github.com/fyrsmithlabs/choosethere/internal/storage"
)

const sampleCatalog = `
[[restaurant]]
id = "izakaya-matsu"
name = "Izakaya Matsu"
category = "Bar"
address = "Rua Augusta 100, São Paulo, SP"
city = "São Paulo"
state = "SP"
tags = ["izakaya", " japanese ", ""]
price = "$$"
lat = -23.5648
lng = -46.6933

[[restaurant]]
id = "cantina-roma"
name = "Cantina Roma"
category = "Italian"
tags = ["pasta"]
price = "cheap"
`

func writeCatalog(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "catalog.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

type fixture struct {
	repo   storage.RestaurantRepo
	seeder *Seeder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "choosethere.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close(db) })
	repo := storage.NewRestaurantRepo(db, nil)
	return fixture{repo: repo, seeder: NewSeeder(db, repo, nil)}
}

func TestLoadFile(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), sampleCatalog)

	entries, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Izakaya Matsu", entries[0].Name)
	assert.Equal(t, restaurant.PriceModerate, entries[0].Price)
	assert.Equal(t, restaurant.PriceCheap, entries[1].Price)
	assert.Zero(t, entries[1].Lat)

	rec := entries[0].toRestaurant()
	assert.Equal(t, []string{"izakaya", "japanese"}, rec.Tags)
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"syntax", "[[restaurant]\nid=", ErrInvalidTOML},
		{"unknown key", "[[restaurant]]\nid = \"a\"\nname = \"A\"\ncuisine = \"x\"\n", ErrInvalidTOML},
		{"bad price", "[[restaurant]]\nid = \"a\"\nname = \"A\"\nprice = \"$$$$$\"\n", ErrInvalidTOML},
		{"missing id", "[[restaurant]]\nname = \"A\"\n", ErrInvalidEntry},
		{"missing name", "[[restaurant]]\nid = \"a\"\n", ErrInvalidEntry},
		{"bad lat", "[[restaurant]]\nid = \"a\"\nname = \"A\"\nlat = 91.0\n", ErrInvalidEntry},
		{"duplicate", "[[restaurant]]\nid = \"a\"\nname = \"A\"\n[[restaurant]]\nid = \"a\"\nname = \"B\"\n", ErrInvalidEntry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCatalog(t, t.TempDir(), tt.content)
			_, err := LoadFile(path)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorIs(t, err, ErrInvalidTOML)
}

func TestSeeder_KeepsFavoritesAndRatings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	path := writeCatalog(t, t.TempDir(), sampleCatalog)

	res, err := f.seeder.SeedFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Inserted: 2}, res)

	require.NoError(t, f.repo.SetFavorite(ctx, "cantina-roma", true))
	visited := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, f.repo.UpdateRatingSnapshot(ctx, "cantina-roma", restaurant.RatingSnapshot{
		RatingAverage: 4.5, RatingCount: 2, RatingLastVisitedAt: &visited,
	}))

	res, err = f.seeder.SeedFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Updated: 2}, res)

	got, err := f.repo.Get(ctx, nil, "cantina-roma")
	require.NoError(t, err)
	assert.True(t, got.IsFavorite)
	assert.Equal(t, 4.5, got.RatingAverage)
	assert.Equal(t, 2, got.RatingCount)
}

func TestSeeder_LeavesUnlistedRestaurants(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, _, err := f.repo.Save(ctx, nil, []restaurant.Restaurant{{ID: "old", Name: "Old Place"}})
	require.NoError(t, err)

	_, err = f.seeder.SeedFile(ctx, writeCatalog(t, t.TempDir(), sampleCatalog))
	require.NoError(t, err)

	all, err := f.repo.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestWatcher_ReseedsOnWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	dir := t.TempDir()
	path := writeCatalog(t, dir, sampleCatalog)

	w, err := NewWatcher(path, f.seeder, nil)
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond
	require.NoError(t, w.Start(ctx))
	t.Cleanup(w.Stop)

	writeCatalog(t, dir, sampleCatalog+`
[[restaurant]]
id = "taqueria"
name = "Taqueria"
category = "Mexican"
`)

	select {
	case res := <-w.Seeded():
		assert.Equal(t, 3, res.Inserted)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reseed")
	}

	got, err := f.repo.FetchOne(ctx, "taqueria")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Taqueria", got.Name)
}

func TestWatcher_KeepsDataOnBadFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	dir := t.TempDir()
	path := writeCatalog(t, dir, sampleCatalog)
	_, err := f.seeder.SeedFile(ctx, path)
	require.NoError(t, err)

	w, err := NewWatcher(path, f.seeder, nil)
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond
	require.NoError(t, w.Start(ctx))

	writeCatalog(t, dir, "[[restaurant]\n")
	time.Sleep(200 * time.Millisecond)
	w.Stop()

	all, err := f.repo.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	select {
	case <-w.Seeded():
		t.Fatal("bad file must not report a seed")
	default:
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	f := newFixture(t)
	path := writeCatalog(t, t.TempDir(), sampleCatalog)
	w, err := NewWatcher(path, f.seeder, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	w.Stop()
}

func TestLoadFile_Empty(t *testing.T) {
	_, err := LoadFile(writeCatalog(t, t.TempDir(), "# nothing yet\n"))
	assert.ErrorIs(t, err, ErrInvalidEntry)
}
