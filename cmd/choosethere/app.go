package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fyrsmithlabs/choosethere/internal/backup"
	"github.com/fyrsmithlabs/choosethere/internal/catalog"
	"github.com/fyrsmithlabs/choosethere/internal/config"
	"github.com/fyrsmithlabs/choosethere/internal/history"
	"github.com/fyrsmithlabs/choosethere/internal/logging"
	"github.com/fyrsmithlabs/choosethere/internal/nearby"
	"github.com/fyrsmithlabs/choosethere/internal/preferences"
	"github.com/fyrsmithlabs/choosethere/internal/roulette"
	"github.com/fyrsmithlabs/choosethere/internal/storage"
	"github.com/fyrsmithlabs/choosethere/internal/visits"
)

const natsDrainTimeout = 5 * time.Second

// app holds every wired dependency and service.
type app struct {
	cfg    *config.Config
	logger *logging.Logger

	db          *gorm.DB
	prefsDB     *badger.DB
	restaurants storage.RestaurantRepo
	visitRepo   storage.VisitRepo

	learner  *preferences.Learner
	roulette *roulette.Service
	visits   *visits.Service
	backup   *backup.Service
	nearby   *nearby.Service
	seeder   *catalog.Seeder

	natsConn *nats.Conn
	natsSub  *nats.Subscription
	inline   *visits.InlineDispatcher
}

// appOptions select the optional parts of the wiring.
type appOptions struct {
	// asyncLearning hands learning to a goroutine or NATS instead of
	// applying it before the command returns.
	asyncLearning bool
	nearby        bool
}

func loadConfig(opts *rootOptions) (*config.Config, *logging.Logger, error) {
	cfg, err := config.LoadWithFile(opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

// newApp opens storage and wires the services. Close releases everything.
func newApp(ctx context.Context, cfg *config.Config, logger *logging.Logger, opts appOptions) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	sqlitePath, err := config.ExpandHome(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(sqlitePath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	a.db, err = storage.Open(sqlitePath, logger.Named("storage"))
	if err != nil {
		return nil, err
	}
	a.restaurants = storage.NewRestaurantRepo(a.db, logger)
	a.visitRepo = storage.NewVisitRepo(a.db, logger)

	prefsPath, err := config.ExpandHome(cfg.Storage.PrefsPath)
	if err != nil {
		return nil, err
	}
	a.prefsDB, err = preferences.OpenBadger(prefsPath)
	if err != nil {
		return nil, err
	}
	a.learner = preferences.NewLearner(
		preferences.NewStore(preferences.Empty()),
		preferences.NewBadgerPersistence(a.prefsDB),
		preferences.WithLearningEnabled(cfg.Roulette.LearningEnabled),
		preferences.WithLogger(logger.Named("preferences")),
	)
	a.learner.Load(ctx)

	a.roulette = roulette.NewService(a.restaurants, history.NewRecent(a.visitRepo), a.learner.Store(),
		roulette.WithLogger(logger.Named("roulette")),
		roulette.WithAvoidRepeatsLimit(cfg.Roulette.AvoidRepeatsLimit),
		roulette.WithLearningEnabled(cfg.Roulette.LearningEnabled),
	)

	if err := a.wireVisits(opts.asyncLearning); err != nil {
		return nil, err
	}

	a.backup = backup.NewService(a.db, a.restaurants, a.visitRepo, version, logger.Named("backup"))
	a.seeder = catalog.NewSeeder(a.db, a.restaurants, logger.Named("catalog"))

	if opts.nearby && cfg.Nearby.Enabled {
		a.nearby = a.newNearby()
	}
	return a, nil
}

func (a *app) wireVisits(async bool) error {
	visitOpts := []visits.Option{visits.WithLogger(a.logger.Named("visits"))}
	var svc *visits.Service
	apply := func(ctx context.Context, ev visits.LearningEvent) error {
		return svc.ApplyLearning(ctx, ev)
	}

	switch {
	case !async:
	case a.cfg.Events.NATSURL.IsSet():
		nc, err := visits.Connect(a.cfg.Events.NATSURL.Value())
		if err != nil {
			return err
		}
		a.natsConn = nc
		visitOpts = append(visitOpts, visits.WithDispatcher(visits.NewNATSDispatcher(nc, a.cfg.Events.Subject)))
	default:
		a.inline = visits.NewInlineDispatcher(apply)
		visitOpts = append(visitOpts, visits.WithDispatcher(a.inline))
	}

	svc = visits.NewService(a.restaurants, a.visitRepo, a.learner, visitOpts...)
	a.visits = svc

	if a.natsConn != nil {
		sub, err := visits.Subscribe(a.natsConn, a.cfg.Events.Subject, apply, a.logger.Named("visits"))
		if err != nil {
			return err
		}
		a.natsSub = sub
	}
	return nil
}

// newNearby builds the provider chain: cache, then rate limit and breaker,
// then the HTTP provider.
func (a *app) newNearby() *nearby.Service {
	n := a.cfg.Nearby
	log := a.logger.Named("nearby")

	provider := nearby.NewHTTPProvider(n.ProviderURL, n.APIKey.Value(), n.Timeout.Duration())
	guardCfg := nearby.DefaultGuardConfig()
	guardCfg.RatePerSecond = n.RateLimit
	guardCfg.Burst = n.Burst
	guardCfg.MaxFailures = n.BreakerFailures
	guarded := nearby.NewGuardedSearcher(provider, guardCfg, log)
	cached := nearby.NewCachedSearcher(guarded, n.CacheSize, n.CacheTTL.Duration(), log)

	return nearby.NewService(cached, a.restaurants, a.roulette, a.roulette.Random(),
		nearby.WithLogger(log),
		nearby.WithRadius(n.DefaultRadiusKm, n.MaxRadiusKm),
	)
}

// Close drains pending learning, then closes stores.
func (a *app) Close() {
	ctx := context.Background()
	if a.natsConn != nil {
		// Drain finishes in-flight learning events, then closes.
		if err := a.natsConn.Drain(); err != nil {
			a.logger.Warn(ctx, "failed to drain nats connection", zap.Error(err))
		}
		deadline := time.Now().Add(natsDrainTimeout)
		for !a.natsConn.IsClosed() && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
		a.natsConn.Close()
	}
	if a.inline != nil {
		a.inline.Wait()
	}
	if a.prefsDB != nil {
		if err := a.prefsDB.Close(); err != nil {
			a.logger.Warn(ctx, "failed to close preference store", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := storage.Close(a.db); err != nil {
			a.logger.Warn(ctx, "failed to close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// withApp loads config, wires the app and runs fn against it.
func withApp(ctx context.Context, opts *rootOptions, appOpts appOptions, fn func(*app) error) error {
	cfg, logger, err := loadConfig(opts)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, logger, appOpts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
