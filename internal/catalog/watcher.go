package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/choosethere/internal/logging"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize catalog watcher")

const defaultDebounce = 250 * time.Millisecond

// Watcher re-seeds the catalog whenever its file is written, created or
// renamed into place. The parent directory is watched so editors that
// replace the file are seen too.
type Watcher struct {
	path     string
	seeder   *Seeder
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *logging.Logger
	seeded   chan SeedResult

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewWatcher creates a watcher for path.
func NewWatcher(path string, seeder *Seeder, logger *logging.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve catalog path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		path:     abs,
		seeder:   seeder,
		watcher:  w,
		debounce: defaultDebounce,
		logger:   logger,
		seeded:   make(chan SeedResult, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Seeded delivers the result of each successful re-seed. Results are
// dropped when nobody is reading.
func (w *Watcher) Seeded() <-chan SeedResult {
	return w.seeded
}

// Start begins watching in a background goroutine. Call Stop to release
// the watcher.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watching catalog directory: %w", err)
	}
	w.started.Store(true)
	go w.run(ctx)
	return nil
}

// Stop stops watching and waits for the goroutine to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		_ = w.watcher.Close()
	})
	if w.started.Load() {
		<-w.done
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.reseed(ctx)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, "catalog watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reseed(ctx context.Context) {
	res, err := w.seeder.SeedFile(ctx, w.path)
	if err != nil {
		w.logger.Warn(ctx, "catalog reseed failed, keeping current restaurants",
			zap.String("path", w.path), zap.Error(err))
		return
	}
	select {
	case w.seeded <- res:
	default:
	}
}
