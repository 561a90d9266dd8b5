package nearby

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/choosethere/internal/logging"
)

// GuardConfig tunes the provider guard.
type GuardConfig struct {
	// RatePerSecond and Burst bound outgoing provider calls.
	RatePerSecond float64
	Burst         int
	// MaxFailures consecutive failures open the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

// DefaultGuardConfig returns the production guard settings.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		RatePerSecond: 5,
		Burst:         2,
		MaxFailures:   3,
		OpenTimeout:   time.Minute,
	}
}

// GuardedSearcher rate limits calls to next and stops calling it while it
// keeps failing. An empty area does not count as a failure.
type GuardedSearcher struct {
	next    Searcher
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]Place]
	logger  *logging.Logger
}

// NewGuardedSearcher wraps next.
func NewGuardedSearcher(next Searcher, cfg GuardConfig, logger *logging.Logger) *GuardedSearcher {
	def := DefaultGuardConfig()
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = def.RatePerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = def.MaxFailures
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	g := &GuardedSearcher{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		logger:  logger,
	}
	BreakerState.Set(0)
	g.cb = gobreaker.NewCircuitBreaker[[]Place](gobreaker.Settings{
		Name:        "place-provider",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoResults) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			BreakerState.Set(stateValue(to))
			g.logger.Warn(context.Background(), "place provider circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return g
}

// Search implements Searcher.
func (g *GuardedSearcher) Search(ctx context.Context, req SearchRequest) ([]Place, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	places, err := g.cb.Execute(func() ([]Place, error) {
		return g.next.Search(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: provider unavailable: %w", ErrSearchFailed, err)
	}
	return places, err
}

// State returns the breaker state.
func (g *GuardedSearcher) State() gobreaker.State {
	return g.cb.State()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
