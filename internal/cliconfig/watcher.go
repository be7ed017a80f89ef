package cliconfig

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/repovault/pkg/log"
)

// Watcher monitors the TOML config file and refreshes the run-to-run
// tunables between backup runs: retention count, incremental toggle,
// metadata/wiki inclusion, worker count, schedule and alert level.
// Identity and credential fields (owner, token, bucket, keys) require a
// restart and are never touched by a reload.
type Watcher struct {
	path   string
	logger log.Logger

	mu       sync.Mutex
	cfg      Config
	debounce *time.Timer
}

// NewWatcher creates a watcher seeded with the validated startup config.
func NewWatcher(path string, initial Config, logger log.Logger) *Watcher {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Watcher{path: path, cfg: initial, logger: logger}
}

// Snapshot returns the current effective configuration. The service reads a
// snapshot before each run so a reload never changes a run in flight.
func (w *Watcher) Snapshot() Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg
}

// Run watches the config file's directory until the context is canceled.
// Editors replace files rather than writing in place, so the directory is
// watched and events are filtered by name.
func (w *Watcher) Run(ctx context.Context) {
	if w.path == "" {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("config watcher disabled", log.Err(err))
		return
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		w.logger.Warn("config watcher disabled", log.String("dir", filepath.Dir(w.path)), log.Err(err))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.debounceReload(100 * time.Millisecond)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", log.Err(err))
		}
	}
}

func (w *Watcher) debounceReload(delay time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(delay, w.reload)
}

// reload re-reads the file and applies the dynamic subset onto the current
// snapshot. Parse or validation failures keep the previous configuration.
func (w *Watcher) reload() {
	fc, err := LoadFileConfig(w.path)
	if err != nil {
		w.logger.Warn("config reload failed", log.String("path", w.path), log.Err(err))
		return
	}

	w.mu.Lock()
	next := w.cfg
	w.mu.Unlock()

	applyDynamic(&next, fc)
	if err := next.Validate(); err != nil {
		w.logger.Warn("config reload rejected", log.Err(err))
		return
	}

	w.mu.Lock()
	w.cfg = next
	w.mu.Unlock()
	w.logger.Info("configuration reloaded",
		log.Int("retention", next.RetentionCount),
		log.Bool("incremental", next.Incremental),
	)
}

// applyDynamic copies only the reload-safe fields from the file config.
func applyDynamic(cfg *Config, fc FileConfig) {
	s := newConfigSetter(nil)

	s.setInt("retention", fc.RetentionCount, &cfg.RetentionCount)
	s.setBool("metadata", fc.IncludeMetadata, &cfg.IncludeMetadata)
	s.setBool("wiki", fc.IncludeWiki, &cfg.IncludeWiki)
	s.setBool("incremental", fc.Incremental, &cfg.Incremental)
	s.setInt("workers", fc.Workers, &cfg.Workers)

	s.setBool("schedule", fc.ScheduleEnabled, &cfg.ScheduleEnabled)
	s.setString("schedule-mode", fc.ScheduleMode, &cfg.ScheduleMode)
	s.setIntPtr("schedule-hour", fc.ScheduleHour, &cfg.ScheduleHour)
	s.setIntPtr("schedule-minute", fc.ScheduleMinute, &cfg.ScheduleMinute)
	s.setString("schedule-days", fc.ScheduleDayOfWeek, &cfg.ScheduleDayOfWeek)
	s.setInt("schedule-interval", fc.ScheduleIntervalHours, &cfg.ScheduleIntervalHours)

	s.setString("alert-level", fc.AlertLevel, &cfg.AlertLevel)
}
