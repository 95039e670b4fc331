// Package watch processes instrument files as they appear in a directory,
// with a cron-scheduled rescan as backstop for missed events.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/atmoslab/fluxpro/internal/config"
)

// settleDelay is how long a file must be quiet after the last write event
// before it is processed. Instruments append in bursts.
const settleDelay = 2 * time.Second

// Watcher watches a directory for new instrument files and hands them to a
// ProcessJob.
type Watcher struct {
	dir    string
	cfg    *config.Config
	job    *ProcessJob
	logger *zap.Logger
	cron   *cron.Cron

	mu        sync.Mutex
	processed map[string]time.Time
	pending   map[string]*time.Timer
	inflight  map[string]bool
	running   bool
}

// NewWatcher creates a watcher for the given directory.
func NewWatcher(dir string, cfg *config.Config, job *ProcessJob, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if job == nil {
		return nil, fmt.Errorf("process job is required")
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch directory not found: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch path is not a directory: %s", dir)
	}

	c := cron.New(
		cron.WithLogger(cron.VerbosePrintfLogger(&cronLogger{logger: logger})),
		cron.WithChain(
			cron.Recover(cron.VerbosePrintfLogger(&cronLogger{logger: logger})),
		),
	)

	return &Watcher{
		dir:       dir,
		cfg:       cfg,
		job:       job,
		logger:    logger,
		cron:      c,
		processed: make(map[string]time.Time),
		pending:   make(map[string]*time.Timer),
		inflight:  make(map[string]bool),
	}, nil
}

// Run starts the watcher and blocks until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	// Cron rescan for files that appeared while events were missed.
	if w.cfg.Watch.Enabled {
		if _, err := w.cron.AddFunc(w.cfg.Watch.Schedule, func() { w.Rescan(ctx) }); err != nil {
			return fmt.Errorf("failed to add cron job: %w (schedule: %s)", err, w.cfg.Watch.Schedule)
		}
		w.cron.Start()
		defer func() {
			stopCtx := w.cron.Stop()
			<-stopCtx.Done()
		}()
		w.logger.Info("Rescan scheduled", zap.String("schedule", w.cfg.Watch.Schedule))
	}

	w.logger.Info("Watching for instrument files",
		zap.String("dir", w.dir),
		zap.Strings("extensions", w.cfg.Watch.Extensions),
	)

	// Pick up whatever is already there.
	w.Rescan(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			w.schedule(ctx, event.Name)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", zap.Error(err))
		}
	}
}

// schedule queues a file for processing once it has settled.
func (w *Watcher) schedule(ctx context.Context, path string) {
	if !w.eligible(path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(settleDelay)
		return
	}
	w.pending[path] = time.AfterFunc(settleDelay, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.process(ctx, path)
	})
}

// Rescan walks the directory and processes any unprocessed instrument file.
func (w *Watcher) Rescan(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("Rescan failed", zap.Error(err))
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if !w.eligible(path) {
			continue
		}
		if w.alreadyProcessed(path) {
			continue
		}
		w.process(ctx, path)
	}
}

// eligible filters for instrument files and skips fluxpro's own outputs.
func (w *Watcher) eligible(path string) bool {
	name := filepath.Base(path)
	if strings.HasSuffix(name, "_out.csv") {
		return false
	}
	return w.cfg.Watch.HasExtension(name)
}

func (w *Watcher) alreadyProcessed(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return true
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	done, ok := w.processed[path]
	return ok && !info.ModTime().After(done)
}

func (w *Watcher) process(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		return
	}

	// A settle timer and a cron rescan can race on the same file. Claim
	// the path under the lock so only one of them runs the job.
	w.mu.Lock()
	if w.inflight[path] {
		w.mu.Unlock()
		return
	}
	if done, ok := w.processed[path]; ok && !info.ModTime().After(done) {
		w.mu.Unlock()
		return
	}
	w.inflight[path] = true
	w.mu.Unlock()

	if err := w.job.Process(ctx, path); err != nil {
		w.logger.Error("Failed to process file",
			zap.String("file", path),
			zap.Error(err),
		)
		// Remember the attempt anyway so a broken file does not loop.
	}

	w.mu.Lock()
	delete(w.inflight, path)
	w.processed[path] = time.Now()
	w.mu.Unlock()
}

// cronLogger adapts zap.Logger to cron's logger interface.
type cronLogger struct {
	logger *zap.Logger
}

func (l *cronLogger) Printf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
