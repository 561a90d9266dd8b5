package nearby

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/choosethere/internal/logging"
)

const (
	// DefaultCacheTTL is how long provider results are reused.
	DefaultCacheTTL  = 30 * time.Minute
	defaultCacheSize = 128
	cacheSource      = "provider"
)

// CacheKey identifies a cached search. Locations are bucketed to two
// decimals so nearby queries share an entry.
type CacheKey struct {
	Source   string
	Category string
	RadiusKm int
	CityHint string
	Bucket   string
}

// NewCacheKey builds the key for req.
func NewCacheKey(req SearchRequest) CacheKey {
	return CacheKey{
		Source:   cacheSource,
		Category: req.Category,
		RadiusKm: req.RadiusKm,
		CityHint: req.CityHint,
		Bucket:   fmt.Sprintf("%.2f|%.2f", bucket(req.Location.Lat), bucket(req.Location.Lng)),
	}
}

// CachedSearcher serves repeated searches from an expiring LRU of encoded
// results. Failures are never cached.
type CachedSearcher struct {
	next   Searcher
	cache  *expirable.LRU[CacheKey, []byte]
	logger *logging.Logger
}

// NewCachedSearcher wraps next. Non-positive size or ttl use the defaults.
func NewCachedSearcher(next Searcher, size int, ttl time.Duration, logger *logging.Logger) *CachedSearcher {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CachedSearcher{
		next:   next,
		cache:  expirable.NewLRU[CacheKey, []byte](size, nil, ttl),
		logger: logger,
	}
}

// Search implements Searcher.
func (c *CachedSearcher) Search(ctx context.Context, req SearchRequest) ([]Place, error) {
	key := NewCacheKey(req)
	if data, ok := c.cache.Get(key); ok {
		var places []Place
		if err := json.Unmarshal(data, &places); err == nil {
			SearchesTotal.WithLabelValues("cache").Inc()
			return places, nil
		}
		c.cache.Remove(key)
	}

	places, err := c.next.Search(ctx, req)
	if err != nil {
		SearchesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	SearchesTotal.WithLabelValues("provider").Inc()

	data, err := json.Marshal(places)
	if err != nil {
		c.logger.Warn(ctx, "failed to encode places for cache", zap.Error(err))
		return places, nil
	}
	c.cache.Add(key, data)
	return places, nil
}

// Purge drops every cached entry.
func (c *CachedSearcher) Purge() {
	c.cache.Purge()
}

// Len returns the number of cached entries.
func (c *CachedSearcher) Len() int {
	return c.cache.Len()
}
